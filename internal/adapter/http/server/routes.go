package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/Temutjin2k/ride-dispatch/docs" // registers the swagger specs
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/middleware"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
)

// setupRoutes - setups http routes
func setupRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware, mode types.ServiceMode) {
	// System Health
	mux.HandleFunc("GET /health", routes.health.HealthCheck)

	setupSwaggerRoutes(mux, mode)
	setupMetricsRoute(mux)

	if routes.ride != nil {
		setupRideRoutes(mux, routes, m)
	}
	if routes.driver != nil {
		setupDriverRoutes(mux, routes, m)
	}
}

// setupRideRoutes setups routes for ride service
func setupRideRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware) {
	mux.Handle("POST /rides", m.RequireRoles(routes.ride.CreateRide, types.RolePassenger))                                    // Request a ride
	mux.Handle("GET /rides/{ride_id}", m.RequireRoles(routes.ride.GetRide))                                                   // Ride details
	mux.Handle("POST /rides/{ride_id}/cancel", m.RequireRoles(routes.ride.CancelRide, types.RolePassenger, types.RoleDriver)) // Cancel a ride
	mux.HandleFunc("GET /ws/passengers/{passenger_id}", routes.riderWs.HandleWebSocket)                                       // Ride notifications for passengers
}

// setupDriverRoutes setups routes for driver service
func setupDriverRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware) {
	// Accept a ride
	mux.Handle("PUT /rides/{ride_id}/accept", m.RequireRoles(routes.driver.AcceptRide, types.RoleDriver))
	// Start a ride
	mux.Handle("POST /rides/{ride_id}/start", m.RequireRoles(routes.driver.StartRide, types.RoleDriver))
	// Complete a ride
	mux.Handle("POST /rides/{ride_id}/complete", m.RequireRoles(routes.driver.CompleteRide, types.RoleDriver))
	// Long-poll for new rides
	mux.Handle("GET /drivers/{driver_id}/rides/wait", m.RequireSelf(routes.driver.WaitForRide, "driver_id", types.RoleDriver))
}

// setupSwaggerRoutes serves the Swagger UI of the API docs registered for mode.
func setupSwaggerRoutes(mux *http.ServeMux, mode types.ServiceMode) {
	swaggerURL := httpSwagger.InstanceName(mode.SwaggerInstance())
	mux.HandleFunc("GET /swagger/", httpSwagger.Handler(swaggerURL))
}

// setupMetricsRoute configures the Prometheus metrics endpoint
func setupMetricsRoute(mux *http.ServeMux) {
	mux.Handle("GET /metrics", promhttp.Handler())
}
