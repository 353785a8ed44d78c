package ride

import (
	"context"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
)

type RideRepo interface {
	Create(ctx context.Context, ride *models.Ride) error
	// Get returns types.ErrRideNotFound when the ride does not exist.
	Get(ctx context.Context, rideID string) (*models.Ride, error)
	// UpdateStatus moves the ride to next only if it is still in expected.
	// It reports false when another writer changed the status first.
	UpdateStatus(ctx context.Context, rideID string, expected, next types.RideStatus, upd models.RideUpdate) (bool, error)
}

type RideEventRepo interface {
	CreateEvent(ctx context.Context, rideID string, kind types.EventKind, data []byte) error
}

type EventPublisher interface {
	Publish(ctx context.Context, evt models.DomainEvent) error
}
