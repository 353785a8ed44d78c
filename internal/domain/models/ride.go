package models

import (
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
)

// Ride is the system-of-record entity mutated only by the ride lifecycle service.
type Ride struct {
	ID          string           `json:"ride_id"`
	RiderID     string           `json:"rider_id"`
	DriverID    string           `json:"driver_id,omitempty"` // empty until accepted, immutable afterwards
	Pickup      string           `json:"pickup"`
	Destination string           `json:"destination"`
	Status      types.RideStatus `json:"status"`

	Fare       *float64 `json:"fare,omitempty"`
	DistanceKm *float64 `json:"distance_km,omitempty"`

	// Причина отмены, есть только у отмененных поездок
	CancellationReason *string `json:"cancellation_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasDriver reports whether a driver has been assigned.
func (r *Ride) HasDriver() bool {
	return r.DriverID != ""
}

// RideUpdate carries the extra columns written together with a status change.
// Nil/empty fields are left untouched.
type RideUpdate struct {
	DriverID           string
	Fare               *float64
	DistanceKm         *float64
	CancellationReason *string
	UpdatedAt          time.Time
}

// Apply writes non-empty fields of u into r. DriverID is only set once.
func (u RideUpdate) Apply(r *Ride) {
	if u.DriverID != "" && r.DriverID == "" {
		r.DriverID = u.DriverID
	}
	if u.Fare != nil {
		r.Fare = u.Fare
	}
	if u.DistanceKm != nil {
		r.DistanceKm = u.DistanceKm
	}
	if u.CancellationReason != nil {
		r.CancellationReason = u.CancellationReason
	}
	if !u.UpdatedAt.IsZero() {
		r.UpdatedAt = u.UpdatedAt
	}
}
