package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
)

var ErrInvalidEvent = errors.New("invalid domain event")

// DomainEvent is published on every committed ride transition. Kind doubles
// as the queue name.
type DomainEvent struct {
	Kind        types.EventKind  `json:"kind"`
	RideID      string           `json:"rideId"`
	UserID      string           `json:"userId,omitempty"`
	CaptainID   string           `json:"captainId,omitempty"`
	Pickup      string           `json:"pickup,omitempty"`
	Destination string           `json:"destination,omitempty"`
	Status      types.RideStatus `json:"status"`
	Fare        *float64         `json:"fare,omitempty"`
	DistanceKm  *float64         `json:"distanceKm,omitempty"`
	Reason      string           `json:"reason,omitempty"`
	CreatedAt   *time.Time       `json:"createdAt,omitempty"`
	Timestamp   time.Time        `json:"timestamp"`
}

// NewRideEvent builds the event announcing that ride entered its current status.
func NewRideEvent(ride *Ride, at time.Time) (DomainEvent, error) {
	kind, ok := types.EventFor(ride.Status)
	if !ok {
		return DomainEvent{}, fmt.Errorf("%w: no event for status %q", ErrInvalidEvent, ride.Status)
	}

	evt := DomainEvent{
		Kind:      kind,
		RideID:    ride.ID,
		UserID:    ride.RiderID,
		Status:    ride.Status,
		Timestamp: at.UTC(),
	}

	switch kind {
	case types.EventNewRide:
		createdAt := ride.CreatedAt.UTC()
		evt.Pickup = ride.Pickup
		evt.Destination = ride.Destination
		evt.CreatedAt = &createdAt
	case types.EventRideAccepted, types.EventRideStarted:
		evt.CaptainID = ride.DriverID
	case types.EventRideCompleted:
		evt.CaptainID = ride.DriverID
		evt.Fare = ride.Fare
		evt.DistanceKm = ride.DistanceKm
	case types.EventRideCancelled:
		evt.CaptainID = ride.DriverID
		if ride.CancellationReason != nil {
			evt.Reason = *ride.CancellationReason
		}
	}

	return evt, nil
}

// Encode serializes the event to UTF-8 JSON.
func (e DomainEvent) Encode() ([]byte, error) {
	body, err := sonic.ConfigStd.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", e.Kind, err)
	}
	return body, nil
}

// DecodeEvent parses and validates an encoded DomainEvent.
func DecodeEvent(body []byte) (DomainEvent, error) {
	var e DomainEvent
	if err := sonic.ConfigStd.Unmarshal(body, &e); err != nil {
		return DomainEvent{}, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	if err := e.Validate(); err != nil {
		return DomainEvent{}, err
	}
	return e, nil
}

// Validate checks the fields every consumer relies on.
func (e DomainEvent) Validate() error {
	known := false
	for _, k := range types.EventKinds() {
		if e.Kind == k {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, e.Kind)
	}
	if e.RideID == "" {
		return fmt.Errorf("%w: ride id is empty", ErrInvalidEvent)
	}
	if !e.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidEvent, e.Status)
	}
	return nil
}
