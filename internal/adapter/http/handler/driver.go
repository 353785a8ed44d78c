package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/handler/dto"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/validator"
)

type (
	DriverRideService interface {
		Accept(ctx context.Context, rideID, driverID string) (*models.Ride, error)
		Start(ctx context.Context, rideID, driverID string) (*models.Ride, error)
		Complete(ctx context.Context, rideID, driverID string, fare, distanceKm float64) (*models.Ride, error)
	}

	CaptainService interface {
		WaitForRide(ctx context.Context, driverID string, timeout time.Duration) (models.DomainEvent, bool, error)
	}
)

// Driver serves the driver-facing routes: ride transitions and the long-poll.
type Driver struct {
	rides    DriverRideService
	captains CaptainService
	l        logger.Logger
}

func NewDriver(rides DriverRideService, captains CaptainService, l logger.Logger) *Driver {
	return &Driver{
		rides:    rides,
		captains: captains,
		l:        l,
	}
}

// AcceptRide godoc
// @Summary      Accept a requested ride
// @Description  Of several drivers accepting the same ride exactly one wins; the others get 409 with the current status.
// @Tags         Driver
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id  path      string  true  "ride id"
// @Success      200      {object}  dto.RideResponse
// @Failure      401,403,404,409,500  {object}  map[string]any
// @Router       /rides/{ride_id}/accept [put]
func (h *Driver) AcceptRide(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionAcceptRide)
	user := models.UserFromContext(ctx)

	ride, err := h.rides.Accept(ctx, r.PathValue("ride_id"), user.ID)
	h.transitionResponse(ctx, w, ride, err)
}

// StartRide godoc
// @Summary      Start an accepted ride
// @Tags         Driver
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id  path      string  true  "ride id"
// @Success      200      {object}  dto.RideResponse
// @Failure      401,403,404,409,500  {object}  map[string]any
// @Router       /rides/{ride_id}/start [post]
func (h *Driver) StartRide(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionStartRide)
	user := models.UserFromContext(ctx)

	ride, err := h.rides.Start(ctx, r.PathValue("ride_id"), user.ID)
	h.transitionResponse(ctx, w, ride, err)
}

// CompleteRide godoc
// @Summary      Complete a started ride
// @Tags         Driver
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id  path      string                   true  "ride id"
// @Param        request  body      dto.CompleteRideRequest  true  "fare and distance"
// @Success      200      {object}  dto.RideResponse
// @Failure      400,401,403,404,409,422,500  {object}  map[string]any
// @Router       /rides/{ride_id}/complete [post]
func (h *Driver) CompleteRide(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionCompleteRide)
	user := models.UserFromContext(ctx)

	var req dto.CompleteRideRequest
	if err := readJSON(w, r, &req); err != nil {
		h.l.Warn(ctx, "failed to read request JSON data", "error", err)
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	ride, err := h.rides.Complete(ctx, r.PathValue("ride_id"), user.ID, *req.Fare, *req.DistanceKm)
	h.transitionResponse(ctx, w, ride, err)
}

func (h *Driver) transitionResponse(ctx context.Context, w http.ResponseWriter, ride *models.Ride, err error) {
	if err != nil {
		switch GetCode(err) {
		case http.StatusInternalServerError:
			h.l.Error(wrap.ErrorCtx(ctx, err), "ride transition failed", err)
		case http.StatusConflict:
			h.l.Info(wrap.ErrorCtx(ctx, err), "ride transition lost", "reason", err.Error())
		}
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"ride": dto.NewRideResponse(ride)}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
	}
}

// WaitForRide godoc
// @Summary      Long-poll for a new ride
// @Description  Blocks until a ride is requested or the timeout elapses. The timeout is capped at the configured maximum (30s by default).
// @Tags         Driver
// @Produce      json
// @Security     BearerAuth
// @Param        driver_id   path      string  true   "driver id"
// @Param        timeout_ms  query     int     false  "wait timeout in milliseconds"
// @Success      200         {object}  dto.RideOffer
// @Success      204         "no ride within the timeout"
// @Failure      400,401,403,500  {object}  map[string]any
// @Router       /drivers/{driver_id}/rides/wait [get]
func (h *Driver) WaitForRide(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionWaitForRide)
	driverID := r.PathValue("driver_id")

	timeout, err := parseTimeout(r.URL.Query().Get("timeout_ms"))
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	evt, ok, err := h.captains.WaitForRide(ctx, driverID, timeout)
	if err != nil {
		if ctx.Err() != nil {
			// client gone or server draining; the poll just ends empty
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.l.Error(wrap.ErrorCtx(ctx, err), "long-poll failed", err)
		internalErrorResponse(w)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"ride": dto.NewRideOffer(evt)}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
	}
}

// parseTimeout reads timeout_ms. Empty means the service maximum.
func parseTimeout(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms < 0 {
		return 0, errInvalidTimeout
	}
	return time.Duration(ms) * time.Millisecond, nil
}
