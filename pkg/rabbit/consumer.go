package rabbit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
	amqp "github.com/rabbitmq/amqp091-go"
)

type subscription struct {
	ctx     context.Context
	queue   string
	handler Handler

	gen uint64 // connection generation the subscription is active on, guarded by Bus.mu
}

// activate opens a dedicated consumer channel for s on conn. Each
// subscription is started at most once per connection generation. A failed
// activation recycles the connection so the next session replays it.
func (b *Bus) activate(conn Connection, s *subscription, gen uint64) (err error) {
	if s.ctx.Err() != nil {
		return nil
	}

	b.mu.Lock()
	// a newer session replays s itself
	if s.gen == gen || gen != b.gen {
		b.mu.Unlock()
		return nil
	}
	s.gen = gen
	b.mu.Unlock()

	defer func() {
		if err != nil {
			_ = conn.Close()
		}
	}()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open consumer channel: %w", err)
	}
	if err := ch.Qos(prefetchCount, 0, false); err != nil {
		_ = ch.Close()
		return fmt.Errorf("set qos: %w", err)
	}
	if _, err := ch.QueueDeclare(s.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return fmt.Errorf("declare queue %s: %w", s.queue, err)
	}

	deliveries, err := ch.Consume(s.queue, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("consume %s: %w", s.queue, err)
	}

	b.consumers.Add(1)
	go b.consume(s, ch, deliveries, gen)
	return nil
}

func (b *Bus) consume(s *subscription, ch Channel, deliveries <-chan amqp.Delivery, gen uint64) {
	defer b.consumers.Done()

	ctx := wrap.WithAction(s.ctx, types.ActionRabbitConsume)
	b.log.Info(ctx, "started consuming", "queue", s.queue)

consumeLoop:
	for {
		select {
		case <-s.ctx.Done():
			_ = ch.Close()
			break consumeLoop
		case <-b.done:
			_ = ch.Close()
			break consumeLoop
		case d, ok := <-deliveries:
			if !ok {
				b.log.Warn(ctx, "delivery channel closed", "queue", s.queue)
				_ = ch.Close()
				b.resubscribe(ctx, s, gen)
				break consumeLoop
			}
			b.handle(ctx, s, d)
		}
	}
}

// resubscribe reopens the consumer channel of s after its deliveries stopped
// while the connection itself stayed up, as happens on a channel exception or
// a broker-side consumer cancel. When the connection was lost instead, the
// supervisor replays s on the next generation and this is a no-op.
func (b *Bus) resubscribe(ctx context.Context, s *subscription, gen uint64) {
	b.mu.Lock()
	if s.gen == gen {
		s.gen = 0
	}
	b.mu.Unlock()

	b.consumers.Add(1)
	go func() {
		defer b.consumers.Done()

		timer := time.NewTimer(b.cfg.RetryDelay)
		defer timer.Stop()
		select {
		case <-s.ctx.Done():
			return
		case <-b.done:
			return
		case <-timer.C:
		}

		b.mu.Lock()
		conn, current := b.conn, b.gen
		b.mu.Unlock()
		if conn == nil || current != gen || conn.IsClosed() {
			return
		}

		if err := b.activate(conn, s, gen); err != nil {
			b.log.Error(ctx, "failed to resume subscription, recycling connection", err, "queue", s.queue)
			return
		}
		metrics.RabbitMQResubscribes.WithLabelValues(b.cfg.Service, s.queue).Inc()
	}()
}

func (b *Bus) handle(ctx context.Context, s *subscription, d amqp.Delivery) {
	if d.CorrelationId != "" {
		ctx = wrap.WithRequestID(ctx, d.CorrelationId)
	}

	msg := Envelope{
		Queue:         s.queue,
		Body:          d.Body,
		Durable:       true,
		Persistent:    d.DeliveryMode == amqp.Persistent,
		Redelivered:   d.Redelivered,
		CorrelationID: d.CorrelationId,
		Timestamp:     d.Timestamp,
		deliveryTag:   d.DeliveryTag,
	}

	err := invoke(ctx, s.handler, msg)
	metrics.RecordRabbitMQConsume(b.cfg.Service, s.queue, err)
	b.settle(ctx, msg, d, err)
}

func invoke(ctx context.Context, h Handler, msg Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, msg)
}

func (b *Bus) settle(ctx context.Context, msg Envelope, d amqp.Delivery, handlerErr error) {
	var err error
	switch {
	case handlerErr == nil:
		err = d.Ack(false)
	case b.cfg.AckPolicy == AckAlways:
		b.log.Warn(ctx, "handler failed, message acknowledged", "queue", msg.Queue, "error", handlerErr.Error())
		err = d.Ack(false)
	case errors.Is(handlerErr, ErrDropMessage) || msg.Redelivered:
		b.log.Error(ctx, "handler failed, message dropped", handlerErr, "queue", msg.Queue, "redelivered", msg.Redelivered)
		err = d.Nack(false, false)
	default:
		b.log.Warn(ctx, "handler failed, message requeued", "queue", msg.Queue, "error", handlerErr.Error())
		err = d.Nack(false, true)
	}

	if err != nil {
		b.log.Error(ctx, "failed to settle message", err, "queue", msg.Queue, "delivery_tag", msg.deliveryTag)
	}
}
