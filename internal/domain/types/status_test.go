package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to RideStatus
		want     bool
	}{
		{StatusRequested, StatusAccepted, true},
		{StatusRequested, StatusCancelled, true},
		{StatusAccepted, StatusStarted, true},
		{StatusAccepted, StatusCancelled, true},
		{StatusStarted, StatusCompleted, true},

		{StatusRequested, StatusStarted, false},
		{StatusRequested, StatusCompleted, false},
		{StatusAccepted, StatusRequested, false},
		{StatusStarted, StatusCancelled, false},
		{StatusStarted, StatusAccepted, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusRequested, false},
		{StatusRequested, StatusRequested, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestEventFor(t *testing.T) {
	for _, status := range []RideStatus{StatusRequested, StatusAccepted, StatusStarted, StatusCompleted, StatusCancelled} {
		if _, ok := EventFor(status); !ok {
			t.Errorf("no event for %s", status)
		}
	}
	if kind, _ := EventFor(StatusRequested); kind != EventNewRide {
		t.Fatalf("requested must map to new-ride, got %s", kind)
	}
}

func TestConflictError(t *testing.T) {
	err := fmt.Errorf("accept: %w", NewConflict(StatusAccepted))

	if !errors.Is(err, ErrRideConflict) {
		t.Fatalf("conflict must match ErrRideConflict")
	}

	var ce *ConflictError
	if !errors.As(err, &ce) || ce.Current != StatusAccepted {
		t.Fatalf("expected current status accepted, got %+v", ce)
	}
	if ce.Error() != "ride already accepted" {
		t.Fatalf("unexpected message %q", ce.Error())
	}
}

func TestServiceMode_SwaggerInstance(t *testing.T) {
	tests := map[ServiceMode]string{
		RideService:   "ride",
		DriverService: "driver",
		Standalone:    "standalone",
	}
	for mode, want := range tests {
		if got := mode.SwaggerInstance(); got != want {
			t.Errorf("%s: got %q, want %q", mode, got, want)
		}
	}
}
