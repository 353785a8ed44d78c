package docs

// @title           Ride Service API
// @version         1.0
// @description     Ride service handles ride requests and cancellations for passengers and pushes ride status events over a WebSocket.

// @host      localhost:3000
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
