package captain

import (
	"context"
	"testing"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
)

func TestService_ClampTimeout(t *testing.T) {
	s := NewService(NewBroker("test"), 30*time.Second, logger.Nop())

	tests := []struct {
		in, want time.Duration
	}{
		{0, 30 * time.Second},
		{-time.Second, 30 * time.Second},
		{5 * time.Second, 5 * time.Second},
		{30 * time.Second, 30 * time.Second},
		{time.Hour, 30 * time.Second},
	}
	for _, tt := range tests {
		if got := s.ClampTimeout(tt.in); got != tt.want {
			t.Errorf("ClampTimeout(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestService_WaitForRideReceivesNewRide(t *testing.T) {
	s := NewService(NewBroker("test"), time.Second, logger.Nop())

	ride := &models.Ride{
		ID:          "r1",
		RiderID:     "u1",
		Pickup:      "123 Main St",
		Destination: "456 Oak Ave",
		Status:      types.StatusRequested,
		CreatedAt:   time.Now(),
	}
	evt, err := models.NewRideEvent(ride, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	raw, err := evt.Encode()
	if err != nil {
		t.Fatal(err)
	}

	type result struct {
		evt models.DomainEvent
		ok  bool
		err error
	}
	done := make(chan result, 1)
	go func() {
		got, ok, err := s.WaitForRide(context.Background(), "c1", time.Second)
		done <- result{got, ok, err}
	}()

	waitPending(t, s.broker, 1)
	if n := s.HandleNewRide(context.Background(), evt, raw); n != 1 {
		t.Fatalf("HandleNewRide offered to %d captains, want 1", n)
	}

	r := <-done
	if r.err != nil || !r.ok {
		t.Fatalf("WaitForRide: ok=%v err=%v", r.ok, r.err)
	}
	if r.evt.RideID != "r1" || r.evt.Pickup != "123 Main St" || r.evt.Destination != "456 Oak Ave" {
		t.Fatalf("unexpected event %+v", r.evt)
	}
}

func TestService_WaitForRideTimesOutWithoutError(t *testing.T) {
	s := NewService(NewBroker("test"), 20*time.Millisecond, logger.Nop())

	start := time.Now()
	_, ok, err := s.WaitForRide(context.Background(), "c1", time.Hour)
	if err != nil {
		t.Fatalf("timeout must not be an error: %v", err)
	}
	if ok {
		t.Fatal("expected no ride")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("timeout was not clamped, waited %s", elapsed)
	}
}
