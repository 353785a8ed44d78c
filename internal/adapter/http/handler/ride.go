package handler

import (
	"context"
	"net/http"

	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/handler/dto"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/validator"
)

type RideService interface {
	Create(ctx context.Context, riderID, pickup, destination string) (*models.Ride, error)
	Get(ctx context.Context, rideID string) (*models.Ride, error)
	Cancel(ctx context.Context, rideID, reason string) (*models.Ride, error)
}

// Ride serves the rider-facing ride routes.
type Ride struct {
	service RideService
	l       logger.Logger
}

func NewRide(service RideService, l logger.Logger) *Ride {
	return &Ride{
		service: service,
		l:       l,
	}
}

// CreateRide godoc
// @Summary      Request a ride
// @Tags         Rides
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      dto.CreateRideRequest  true  "pickup and destination"
// @Success      201      {object}  dto.RideResponse
// @Failure      401,403,422,500  {object}  map[string]any
// @Router       /rides [post]
func (h *Ride) CreateRide(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionCreateRide)
	user := models.UserFromContext(ctx)

	var req dto.CreateRideRequest
	if err := readJSON(w, r, &req); err != nil {
		h.l.Warn(ctx, "failed to read request JSON data", "error", err)
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		h.l.Warn(ctx, "invalid request data")
		failedValidationResponse(w, v.Errors)
		return
	}

	ride, err := h.service.Create(ctx, user.ID, req.Pickup, req.Destination)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to create ride", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, envelope{"ride": dto.NewRideResponse(ride)}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
	}
}

// GetRide godoc
// @Summary      Get a ride
// @Tags         Rides
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id  path      string  true  "ride id"
// @Success      200      {object}  dto.RideResponse
// @Failure      401,404,500  {object}  map[string]any
// @Router       /rides/{ride_id} [get]
func (h *Ride) GetRide(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionGetRide)

	ride, err := h.service.Get(ctx, r.PathValue("ride_id"))
	if err != nil {
		if GetCode(err) == http.StatusInternalServerError {
			h.l.Error(wrap.ErrorCtx(ctx, err), "failed to get ride", err)
		}
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"ride": dto.NewRideResponse(ride)}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
	}
}

// CancelRide godoc
// @Summary      Cancel a ride
// @Description  Riders cancel their own rides, drivers the rides assigned to them. Only requested and accepted rides can be cancelled.
// @Tags         Rides
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id  path      string                 true   "ride id"
// @Param        request  body      dto.CancelRideRequest  false  "cancellation reason"
// @Success      200      {object}  dto.RideResponse
// @Failure      401,403,404,409,422,500  {object}  map[string]any
// @Router       /rides/{ride_id}/cancel [post]
func (h *Ride) CancelRide(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionCancelRide)
	user := models.UserFromContext(ctx)
	rideID := r.PathValue("ride_id")
	ctx = wrap.WithRideID(ctx, rideID)

	var req dto.CancelRideRequest
	if r.ContentLength != 0 {
		if err := readJSON(w, r, &req); err != nil {
			h.l.Warn(ctx, "failed to read request JSON data", "error", err)
			badRequestResponse(w, err.Error())
			return
		}
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	ride, err := h.service.Get(ctx, rideID)
	if err != nil {
		serviceErrorResponse(w, err)
		return
	}
	if !canCancel(user, ride) {
		h.l.Warn(ctx, "cancel of someone else's ride rejected")
		errorResponse(w, http.StatusForbidden, "forbidden: not your ride")
		return
	}

	ride, err = h.service.Cancel(ctx, rideID, req.Reason)
	if err != nil {
		if GetCode(err) == http.StatusInternalServerError {
			h.l.Error(wrap.ErrorCtx(ctx, err), "failed to cancel ride", err)
		}
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"ride": dto.NewRideResponse(ride)}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
	}
}

func canCancel(user *models.User, ride *models.Ride) bool {
	switch user.Role {
	case types.RoleAdmin:
		return true
	case types.RolePassenger:
		return ride.RiderID == user.ID
	case types.RoleDriver:
		return ride.HasDriver() && ride.DriverID == user.ID
	default:
		return false
	}
}
