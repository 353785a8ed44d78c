package captain

import (
	"context"
	"fmt"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
)

// DefaultMaxTimeout is the ceiling of a single long-poll.
const DefaultMaxTimeout = 30 * time.Second

// Service lets drivers long-poll for new ride requests.
type Service struct {
	broker     *Broker
	maxTimeout time.Duration
	logger     logger.Logger
}

func NewService(broker *Broker, maxTimeout time.Duration, logger logger.Logger) *Service {
	if maxTimeout <= 0 {
		maxTimeout = DefaultMaxTimeout
	}
	return &Service{
		broker:     broker,
		maxTimeout: maxTimeout,
		logger:     logger,
	}
}

// ClampTimeout maps a requested timeout into (0, maxTimeout]. Zero and
// negative values mean the maximum.
func (s *Service) ClampTimeout(d time.Duration) time.Duration {
	if d <= 0 || d > s.maxTimeout {
		return s.maxTimeout
	}
	return d
}

// WaitForRide blocks until a new ride is published or the timeout elapses.
// It returns ok=false when no ride arrived in time.
func (s *Service) WaitForRide(ctx context.Context, driverID string, timeout time.Duration) (models.DomainEvent, bool, error) {
	ctx = wrap.WithDriverID(wrap.WithAction(ctx, types.ActionWaitForRide), driverID)
	timeout = s.ClampTimeout(timeout)

	s.logger.Debug(ctx, "captain waiting for ride", "timeout", timeout.String())

	payload, ok, err := s.broker.Wait(ctx, driverID, timeout)
	if err != nil {
		return models.DomainEvent{}, false, wrap.Error(ctx, err)
	}
	if !ok {
		return models.DomainEvent{}, false, nil
	}

	evt, err := models.DecodeEvent(payload)
	if err != nil {
		return models.DomainEvent{}, false, wrap.Error(ctx, fmt.Errorf("decode offered ride: %w", err))
	}
	return evt, true, nil
}

// HandleNewRide offers a new-ride event to every captain waiting right now.
// raw is the payload exactly as received and is what the captains get.
func (s *Service) HandleNewRide(ctx context.Context, evt models.DomainEvent, raw []byte) int {
	ctx = wrap.WithRideID(wrap.WithAction(ctx, types.ActionOfferRide), evt.RideID)

	n := s.broker.Deliver(raw)
	if n == 0 {
		s.logger.Info(ctx, "no captains waiting for ride")
		return 0
	}
	s.logger.Info(ctx, "ride offered to waiting captains", "captains", n)
	return n
}

// Pending returns the number of captains currently waiting.
func (s *Service) Pending() int {
	return s.broker.Pending()
}
