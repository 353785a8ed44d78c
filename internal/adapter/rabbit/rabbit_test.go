package rabbit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	"github.com/Temutjin2k/ride-dispatch/pkg/rabbit"
)

// memBus delivers published messages synchronously to subscribed handlers.
type memBus struct {
	mu          sync.Mutex
	handlers    map[string]rabbit.Handler
	published   map[string][][]byte
	publishErrs []error
	calls       int
	subErr      error
}

func newMemBus() *memBus {
	return &memBus{handlers: make(map[string]rabbit.Handler), published: make(map[string][][]byte)}
}

func (b *memBus) Publish(ctx context.Context, queue string, body []byte) error {
	b.mu.Lock()
	b.calls++
	if len(b.publishErrs) > 0 {
		err := b.publishErrs[0]
		b.publishErrs = b.publishErrs[1:]
		b.mu.Unlock()
		return err
	}
	b.published[queue] = append(b.published[queue], body)
	h := b.handlers[queue]
	b.mu.Unlock()

	if h != nil {
		_ = h(ctx, rabbit.Envelope{Queue: queue, Body: body, Durable: true, Persistent: true})
	}
	return nil
}

func (b *memBus) Subscribe(_ context.Context, queue string, handler rabbit.Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[queue] = handler
	return b.subErr
}

func (b *memBus) deliver(queue string, body []byte) error {
	b.mu.Lock()
	h := b.handlers[queue]
	b.mu.Unlock()
	return h(context.Background(), rabbit.Envelope{Queue: queue, Body: body})
}

func acceptedEvent() models.DomainEvent {
	return models.DomainEvent{
		Kind:      types.EventRideAccepted,
		RideID:    "r1",
		UserID:    "u1",
		CaptainID: "c1",
		Status:    types.StatusAccepted,
		Timestamp: time.Now().UTC(),
	}
}

func TestPublisher_RoutesByKind(t *testing.T) {
	bus := newMemBus()
	p := NewRideEventPublisher(bus, logger.Nop())

	if err := p.Publish(context.Background(), acceptedEvent()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	msgs := bus.published["ride-accepted"]
	if len(msgs) != 1 {
		t.Fatalf("ride-accepted got %d messages", len(msgs))
	}
	evt, err := models.DecodeEvent(msgs[0])
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	if evt.CaptainID != "c1" || evt.UserID != "u1" {
		t.Fatalf("unexpected payload %+v", evt)
	}
}

func TestPublisher_DoesNotRetryUnavailableBus(t *testing.T) {
	bus := newMemBus()
	bus.publishErrs = []error{rabbit.ErrBusUnavailable, rabbit.ErrBusUnavailable}
	p := NewRideEventPublisher(bus, logger.Nop())

	err := p.Publish(context.Background(), acceptedEvent())
	if !errors.Is(err, rabbit.ErrBusUnavailable) {
		t.Fatalf("expected ErrBusUnavailable, got %v", err)
	}
	if bus.calls != 1 {
		t.Fatalf("publish attempted %d times, want 1", bus.calls)
	}
}

func TestPublisher_RetriesTransientErrors(t *testing.T) {
	bus := newMemBus()
	bus.publishErrs = []error{errors.New("channel busy")}
	p := NewRideEventPublisher(bus, logger.Nop())

	if err := p.Publish(context.Background(), acceptedEvent()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if bus.calls != 2 {
		t.Fatalf("publish attempted %d times, want 2", bus.calls)
	}
}

func TestConsumer_DecodesAndDispatches(t *testing.T) {
	bus := newMemBus()
	c := NewRideEventConsumer(bus, logger.Nop())

	var got []models.DomainEvent
	err := c.Consume(context.Background(), func(_ context.Context, evt models.DomainEvent, raw []byte) error {
		got = append(got, evt)
		if len(raw) == 0 {
			t.Error("raw payload is empty")
		}
		return nil
	}, types.EventRideAccepted, types.EventRideCancelled)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}

	p := NewRideEventPublisher(bus, logger.Nop())
	if err := p.Publish(context.Background(), acceptedEvent()); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].RideID != "r1" {
		t.Fatalf("handler got %+v", got)
	}
}

func TestConsumer_ErrorClassification(t *testing.T) {
	bus := newMemBus()
	c := NewRideEventConsumer(bus, logger.Nop())

	var handlerErr error
	_ = c.Consume(context.Background(), func(context.Context, models.DomainEvent, []byte) error {
		return handlerErr
	}, types.EventRideAccepted)

	valid, _ := acceptedEvent().Encode()
	wrongKind := acceptedEvent()
	wrongKind.Kind = types.EventNewRide
	wrongKindBody, _ := wrongKind.Encode()

	tests := []struct {
		name     string
		body     []byte
		err      error
		wantDrop bool
		wantNil  bool
	}{
		{"ok", valid, nil, false, true},
		{"garbage", []byte("{"), nil, true, false},
		{"wrong queue", wrongKindBody, nil, true, false},
		{"recoverable", valid, types.ErrDatabaseFailed, false, false},
		{"permanent", valid, types.ErrRideNotFound, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlerErr = tt.err
			err := bus.deliver("ride-accepted", tt.body)
			if tt.wantNil {
				if err != nil {
					t.Fatalf("unexpected error %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, rabbit.ErrDropMessage); got != tt.wantDrop {
				t.Fatalf("drop = %v, want %v (err %v)", got, tt.wantDrop, err)
			}
		})
	}
}

func TestConsumer_DeferredSubscriptionIsNotAnError(t *testing.T) {
	bus := newMemBus()
	bus.subErr = rabbit.ErrBusUnavailable
	c := NewRideEventConsumer(bus, logger.Nop())

	err := c.Consume(context.Background(), func(context.Context, models.DomainEvent, []byte) error { return nil }, types.EventNewRide)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}

	bus.subErr = rabbit.ErrBusClosed
	if err := c.Consume(context.Background(), nil, types.EventNewRide); !errors.Is(err, rabbit.ErrBusClosed) {
		t.Fatalf("expected ErrBusClosed, got %v", err)
	}
}
