package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
)

// RideRepo keeps rides in process memory. The status check and write of
// UpdateStatus happen under one lock, mirroring the conditional UPDATE of the
// postgres repository.
type RideRepo struct {
	mu    sync.RWMutex
	rides map[string]models.Ride
}

func NewRideRepo() *RideRepo {
	return &RideRepo{rides: make(map[string]models.Ride)}
}

func (r *RideRepo) Create(_ context.Context, ride *models.Ride) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rides[ride.ID]; ok {
		return fmt.Errorf("ride %s already exists", ride.ID)
	}
	r.rides[ride.ID] = *ride
	return nil
}

func (r *RideRepo) Get(_ context.Context, rideID string) (*models.Ride, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ride, ok := r.rides[rideID]
	if !ok {
		return nil, types.ErrRideNotFound
	}
	return &ride, nil
}

func (r *RideRepo) UpdateStatus(_ context.Context, rideID string, expected, next types.RideStatus, upd models.RideUpdate) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ride, ok := r.rides[rideID]
	if !ok {
		return false, types.ErrRideNotFound
	}
	if ride.Status != expected {
		return false, nil
	}

	if upd.UpdatedAt.IsZero() {
		upd.UpdatedAt = time.Now().UTC()
	}
	upd.Apply(&ride)
	ride.Status = next
	r.rides[rideID] = ride
	return true, nil
}

// RideEvent is one stored audit row.
type RideEvent struct {
	RideID    string
	Kind      types.EventKind
	Data      []byte
	CreatedAt time.Time
}

type RideEventRepo struct {
	mu     sync.Mutex
	events []RideEvent
}

func NewRideEventRepo() *RideEventRepo {
	return &RideEventRepo{}
}

func (r *RideEventRepo) CreateEvent(_ context.Context, rideID string, kind types.EventKind, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, RideEvent{
		RideID:    rideID,
		Kind:      kind,
		Data:      append([]byte(nil), data...),
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

// Events returns the audit trail of rideID in insertion order.
func (r *RideEventRepo) Events(rideID string) []RideEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []RideEvent
	for _, e := range r.events {
		if e.RideID == rideID {
			out = append(out, e)
		}
	}
	return out
}
