package types

import (
	"errors"
	"fmt"
)

var (
	ErrRideNotFound   = errors.New("ride not found")
	ErrRideConflict   = errors.New("ride status conflict")
	ErrInvalidRide    = errors.New("invalid ride")
	ErrDriverMismatch = errors.New("ride is assigned to another driver")
	ErrNotFound       = errors.New("requested item not found")

	ErrDatabaseFailed = errors.New("database failed")
)

// ConflictError is returned when a transition is requested from a status that
// does not allow it. Current is the status the ride was observed in.
type ConflictError struct {
	Current RideStatus
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("ride already %s", e.Current)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrRideConflict
}

// NewConflict builds a ConflictError for the observed status.
func NewConflict(current RideStatus) error {
	return &ConflictError{Current: current}
}
