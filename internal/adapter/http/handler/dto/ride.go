package dto

import (
	"strings"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/validator"
)

const maxAddressLen = 255

type CreateRideRequest struct {
	Pickup      string `json:"pickup"`
	Destination string `json:"destination"`
}

// для создания поездки
func (r *CreateRideRequest) Validate(v *validator.Validator) {
	pickup, destination := strings.TrimSpace(r.Pickup), strings.TrimSpace(r.Destination)

	v.Check(pickup != "", "pickup", "must be provided")
	v.Check(len(pickup) <= maxAddressLen, "pickup", "must not be more than 255 characters long")

	v.Check(destination != "", "destination", "must be provided")
	v.Check(len(destination) <= maxAddressLen, "destination", "must not be more than 255 characters long")

	if pickup != "" && strings.EqualFold(pickup, destination) {
		v.AddError("destination", "must differ from pickup")
	}
}

type CancelRideRequest struct {
	Reason string `json:"reason"`
}

// для отмены поездки
func (r *CancelRideRequest) Validate(v *validator.Validator) {
	v.Check(len(r.Reason) <= 500, "reason", "must not be more than 500 characters long")
}

type CompleteRideRequest struct {
	Fare       *float64 `json:"fare"`
	DistanceKm *float64 `json:"distance_km"`
}

func (r *CompleteRideRequest) Validate(v *validator.Validator) {
	v.Check(r.Fare != nil, "fare", "must be provided")
	if r.Fare != nil {
		v.Check(*r.Fare >= 0, "fare", "must not be negative")
	}
	v.Check(r.DistanceKm != nil, "distance_km", "must be provided")
	if r.DistanceKm != nil {
		v.Check(*r.DistanceKm >= 0, "distance_km", "must not be negative")
	}
}

type RideResponse struct {
	RideID             string           `json:"ride_id"`
	RiderID            string           `json:"rider_id"`
	DriverID           string           `json:"driver_id,omitempty"`
	Pickup             string           `json:"pickup"`
	Destination        string           `json:"destination"`
	Status             types.RideStatus `json:"status"`
	Fare               *float64         `json:"fare,omitempty"`
	DistanceKm         *float64         `json:"distance_km,omitempty"`
	CancellationReason *string          `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

func NewRideResponse(ride *models.Ride) RideResponse {
	return RideResponse{
		RideID:             ride.ID,
		RiderID:            ride.RiderID,
		DriverID:           ride.DriverID,
		Pickup:             ride.Pickup,
		Destination:        ride.Destination,
		Status:             ride.Status,
		Fare:               ride.Fare,
		DistanceKm:         ride.DistanceKm,
		CancellationReason: ride.CancellationReason,
		CreatedAt:          ride.CreatedAt,
		UpdatedAt:          ride.UpdatedAt,
	}
}

// RideOffer is what a waiting driver receives for a new ride.
type RideOffer struct {
	RideID      string           `json:"ride_id"`
	RiderID     string           `json:"rider_id"`
	Pickup      string           `json:"pickup"`
	Destination string           `json:"destination"`
	Status      types.RideStatus `json:"status"`
	CreatedAt   *time.Time       `json:"created_at,omitempty"`
	OfferedAt   time.Time        `json:"offered_at"`
}

func NewRideOffer(evt models.DomainEvent) RideOffer {
	return RideOffer{
		RideID:      evt.RideID,
		RiderID:     evt.UserID,
		Pickup:      evt.Pickup,
		Destination: evt.Destination,
		Status:      evt.Status,
		CreatedAt:   evt.CreatedAt,
		OfferedAt:   evt.Timestamp,
	}
}
