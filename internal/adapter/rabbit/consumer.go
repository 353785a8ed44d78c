package rabbit

import (
	"context"
	"errors"
	"fmt"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/rabbit"
)

// EventHandler processes a decoded event. raw is the payload as received.
type EventHandler func(ctx context.Context, evt models.DomainEvent, raw []byte) error

// RideEventConsumer decodes ride events from their queues and hands them to
// a handler. Undecodable messages and non-recoverable handler errors are
// dropped, recoverable ones requeued.
type RideEventConsumer struct {
	bus Bus
	l   logger.Logger
}

func NewRideEventConsumer(bus Bus, l logger.Logger) *RideEventConsumer {
	return &RideEventConsumer{bus: bus, l: l}
}

// Consume subscribes fn to the queue of every kind. Subscriptions made while
// the bus is disconnected become active once it connects.
func (c *RideEventConsumer) Consume(ctx context.Context, fn EventHandler, kinds ...types.EventKind) error {
	for _, kind := range kinds {
		queue := kind.String()
		err := c.bus.Subscribe(ctx, queue, c.handler(kind, fn))
		switch {
		case err == nil:
			c.l.Info(wrap.WithAction(ctx, types.ActionRabbitConsume), "subscribed to ride events", "queue", queue)
		case errors.Is(err, rabbit.ErrBusUnavailable):
			c.l.Warn(wrap.WithAction(ctx, types.ActionRabbitConsume), "bus not connected, subscription deferred", "queue", queue)
		default:
			return fmt.Errorf("subscribe to %s: %w", queue, err)
		}
	}
	return nil
}

func (c *RideEventConsumer) handler(kind types.EventKind, fn EventHandler) rabbit.Handler {
	return func(ctx context.Context, msg rabbit.Envelope) error {
		evt, err := models.DecodeEvent(msg.Body)
		if err != nil {
			c.l.Error(ctx, "decode failed", err, "queue", msg.Queue)
			return fmt.Errorf("%w: %w", rabbit.ErrDropMessage, err)
		}
		if evt.Kind != kind {
			return fmt.Errorf("%w: %s event on %s queue", rabbit.ErrDropMessage, evt.Kind, kind)
		}

		ctx = wrap.WithRideID(ctx, evt.RideID)
		if err := fn(ctx, evt, msg.Body); err != nil {
			if isRecoverableError(err) {
				return err
			}
			return fmt.Errorf("%w: %w", rabbit.ErrDropMessage, err)
		}
		return nil
	}
}
