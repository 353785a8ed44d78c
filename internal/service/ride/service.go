package ride

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
	"github.com/Temutjin2k/ride-dispatch/pkg/trm"
)

// RideService owns the ride state machine. Every transition is a conditional
// write; its event is published only after the write committed.
type RideService struct {
	repo      RideRepo
	eventRepo RideEventRepo
	publisher EventPublisher
	trm       trm.TxManager
	logger    logger.Logger

	service string
	now     func() time.Time
}

func NewRideService(repo RideRepo, eventRepo RideEventRepo, publisher EventPublisher, trm trm.TxManager, logger logger.Logger, service string) *RideService {
	return &RideService{
		repo:      repo,
		eventRepo: eventRepo,
		publisher: publisher,
		trm:       trm,
		logger:    logger,
		service:   service,
		now:       time.Now,
	}
}

// Create persists a requested ride and announces it on new-ride.
func (s *RideService) Create(ctx context.Context, riderID, pickup, destination string) (*models.Ride, error) {
	ctx = wrap.WithUserID(wrap.WithAction(ctx, types.ActionCreateRide), riderID)

	riderID, pickup, destination = strings.TrimSpace(riderID), strings.TrimSpace(pickup), strings.TrimSpace(destination)
	if riderID == "" || pickup == "" || destination == "" {
		return nil, wrap.Error(ctx, fmt.Errorf("%w: rider, pickup and destination are required", types.ErrInvalidRide))
	}

	now := s.now().UTC()
	ride := &models.Ride{
		ID:          uuid.NewString(),
		RiderID:     riderID,
		Pickup:      pickup,
		Destination: destination,
		Status:      types.StatusRequested,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	ctx = wrap.WithRideID(ctx, ride.ID)

	evt, err := models.NewRideEvent(ride, now)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	err = s.trm.Do(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, ride); err != nil {
			return fmt.Errorf("%w: could not create ride in repo: %w", types.ErrDatabaseFailed, err)
		}
		return s.recordEvent(ctx, evt)
	})
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	metrics.RidesTotal.WithLabelValues(s.service, ride.Status.String()).Inc()
	metrics.ActiveRidesGauge.WithLabelValues(s.service).Inc()
	s.logger.Info(ctx, "ride requested", "pickup", pickup, "destination", destination)

	s.publish(ctx, evt)
	return ride, nil
}

// Get returns the ride with rideID.
func (s *RideService) Get(ctx context.Context, rideID string) (*models.Ride, error) {
	ctx = wrap.WithRideID(wrap.WithAction(ctx, types.ActionGetRide), rideID)

	if err := validateID(rideID); err != nil {
		return nil, wrap.Error(ctx, err)
	}
	ride, err := s.repo.Get(ctx, rideID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	return ride, nil
}

// Accept assigns driverID to a requested ride. Of several concurrent accepts
// exactly one succeeds; the others get a ConflictError with the status the
// winner left the ride in.
func (s *RideService) Accept(ctx context.Context, rideID, driverID string) (*models.Ride, error) {
	ctx = wrap.WithDriverID(wrap.WithAction(ctx, types.ActionAcceptRide), driverID)
	if strings.TrimSpace(driverID) == "" {
		return nil, wrap.Error(ctx, fmt.Errorf("%w: driver id is required", types.ErrInvalidRide))
	}

	return s.transition(ctx, rideID, transition{
		to:     types.StatusAccepted,
		update: models.RideUpdate{DriverID: driverID},
	})
}

// Start moves an accepted ride to started. Only the assigned driver may do it.
func (s *RideService) Start(ctx context.Context, rideID, driverID string) (*models.Ride, error) {
	ctx = wrap.WithDriverID(wrap.WithAction(ctx, types.ActionStartRide), driverID)

	return s.transition(ctx, rideID, transition{
		to:       types.StatusStarted,
		driverID: driverID,
	})
}

// Complete finishes a started ride and records fare and distance.
func (s *RideService) Complete(ctx context.Context, rideID, driverID string, fare, distanceKm float64) (*models.Ride, error) {
	ctx = wrap.WithDriverID(wrap.WithAction(ctx, types.ActionCompleteRide), driverID)
	if fare < 0 || distanceKm < 0 {
		return nil, wrap.Error(ctx, fmt.Errorf("%w: fare and distance must not be negative", types.ErrInvalidRide))
	}

	return s.transition(ctx, rideID, transition{
		to:       types.StatusCompleted,
		driverID: driverID,
		update:   models.RideUpdate{Fare: &fare, DistanceKm: &distanceKm},
	})
}

// Cancel cancels a ride that has not started yet.
func (s *RideService) Cancel(ctx context.Context, rideID, reason string) (*models.Ride, error) {
	ctx = wrap.WithAction(ctx, types.ActionCancelRide)

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "cancelled by user"
	}
	return s.transition(ctx, rideID, transition{
		to:     types.StatusCancelled,
		update: models.RideUpdate{CancellationReason: &reason},
	})
}

func validateID(rideID string) error {
	if _, err := uuid.Parse(rideID); err != nil {
		return types.ErrRideNotFound
	}
	return nil
}
