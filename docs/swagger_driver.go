package docs

// @title           Driver Service API
// @version         1.0
// @description     Driver service accepts, starts and completes rides and lets drivers long-poll for new ride requests.

// @host      localhost:3001
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
