package rabbit

import (
	"context"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/rabbit"
)

const (
	publishAttempts = 3
	publishBackoff  = 200 * time.Millisecond
)

type Bus interface {
	Publish(ctx context.Context, queue string, body []byte) error
	Subscribe(ctx context.Context, queue string, handler rabbit.Handler) error
}

// RideEventPublisher publishes domain events to the queue named after their kind.
type RideEventPublisher struct {
	bus Bus
	l   logger.Logger
}

func NewRideEventPublisher(bus Bus, l logger.Logger) *RideEventPublisher {
	return &RideEventPublisher{bus: bus, l: l}
}

func (p *RideEventPublisher) Publish(ctx context.Context, evt models.DomainEvent) error {
	ctx = wrap.WithAction(ctx, "rabbitmq_publish_"+evt.Kind.String())

	body, err := evt.Encode()
	if err != nil {
		return wrap.Error(ctx, err)
	}

	if err := retry(publishAttempts, publishBackoff, func() error {
		return p.bus.Publish(ctx, evt.Kind.String(), body)
	}); err != nil {
		return wrap.Error(ctx, err)
	}
	return nil
}
