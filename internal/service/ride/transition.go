package ride

import (
	"context"
	"errors"
	"fmt"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
)

type transition struct {
	to types.RideStatus
	// driverID, when set, must match the driver already assigned to the ride.
	driverID string
	update   models.RideUpdate
}

// transition applies t to the ride inside one transaction together with its
// audit row, then publishes the resulting event.
func (s *RideService) transition(ctx context.Context, rideID string, t transition) (*models.Ride, error) {
	ctx = wrap.WithRideID(ctx, rideID)

	if err := validateID(rideID); err != nil {
		return nil, wrap.Error(ctx, err)
	}

	var (
		ride *models.Ride
		evt  models.DomainEvent
	)
	err := s.trm.Do(ctx, func(ctx context.Context) error {
		current, err := s.repo.Get(ctx, rideID)
		if err != nil {
			return err
		}

		if !types.CanTransition(current.Status, t.to) {
			return types.NewConflict(current.Status)
		}
		if t.driverID != "" && current.DriverID != t.driverID {
			return types.ErrDriverMismatch
		}

		now := s.now().UTC()
		t.update.UpdatedAt = now

		ok, err := s.repo.UpdateStatus(ctx, rideID, current.Status, t.to, t.update)
		if err != nil {
			return fmt.Errorf("%w: failed to update ride status: %w", types.ErrDatabaseFailed, err)
		}
		if !ok {
			// lost the race: report what the winner left behind
			latest, err := s.repo.Get(ctx, rideID)
			if err != nil {
				return err
			}
			s.logger.Warn(ctx, "status already changed", "current_status", latest.Status, "expected_status", current.Status)
			return types.NewConflict(latest.Status)
		}

		t.update.Apply(current)
		current.Status = t.to

		evt, err = models.NewRideEvent(current, now)
		if err != nil {
			return err
		}
		if err := s.recordEvent(ctx, evt); err != nil {
			return err
		}

		ride = current
		return nil
	})
	if err != nil {
		var conflict *types.ConflictError
		if errors.As(err, &conflict) {
			s.logger.Info(ctx, "transition rejected", "target_status", t.to, "current_status", conflict.Current)
		}
		return nil, wrap.Error(ctx, err)
	}

	metrics.RidesTotal.WithLabelValues(s.service, ride.Status.String()).Inc()
	if ride.Status.IsTerminal() {
		metrics.ActiveRidesGauge.WithLabelValues(s.service).Dec()
	}
	s.logger.Info(ctx, "ride status changed", "status", ride.Status)

	s.publish(ctx, evt)
	return ride, nil
}

// recordEvent writes the audit row of evt in the current transaction.
func (s *RideService) recordEvent(ctx context.Context, evt models.DomainEvent) error {
	data, err := evt.Encode()
	if err != nil {
		return err
	}
	if err := s.eventRepo.CreateEvent(ctx, evt.RideID, evt.Kind, data); err != nil {
		return fmt.Errorf("%w: failed to create ride event: %w", types.ErrDatabaseFailed, err)
	}
	return nil
}

// publish is best effort: the transition is already committed and failures
// are only logged.
func (s *RideService) publish(ctx context.Context, evt models.DomainEvent) {
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Error(wrap.WithAction(ctx, types.ActionPublishFailed), "failed to publish ride event", err, "event_kind", evt.Kind)
		return
	}
	s.logger.Debug(ctx, "ride event published", "event_kind", evt.Kind)
}
