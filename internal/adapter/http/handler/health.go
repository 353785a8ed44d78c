package handler

import (
	"net/http"

	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
)

// BusStatus reports message bus connectivity.
type BusStatus interface {
	Connected() bool
}

type Health struct {
	serviceName string
	bus         BusStatus
	log         logger.Logger
}

// NewHealth builds the health handler. bus may be nil.
func NewHealth(serviceName string, bus BusStatus, log logger.Logger) *Health {
	return &Health{
		serviceName: serviceName,
		bus:         bus,
		log:         log,
	}
}

// HealthCheck godoc
// @Summary      Health Check
// @Description  Returns the health status of the service and its message bus connectivity
// @Tags         Health
// @Produce      json
// @Success      200  {object}  map[string]any
// @Failure      503  {object}  map[string]any
// @Router       /health [get]
func (h *Health) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "health_check")

	status, code := "available", http.StatusOK
	busState := "disabled"
	if h.bus != nil {
		busState = "connected"
		if !h.bus.Connected() {
			status, code, busState = "degraded", http.StatusServiceUnavailable, "disconnected"
		}
	}

	response := envelope{
		"status": status,
		"system_info": map[string]string{
			"service-name": h.serviceName,
			"rabbitmq":     busState,
		},
	}

	if err := writeJSON(w, code, response, nil); err != nil {
		h.log.Error(ctx, "healthcheck", err)
	}
}
