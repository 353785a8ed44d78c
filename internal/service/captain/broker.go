package captain

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
)

const (
	statePending int32 = iota
	stateFulfilled
	stateExpired
)

// Long-poll outcomes, used as metric labels.
const (
	OutcomeDelivered = "delivered"
	OutcomeTimeout   = "timeout"
	OutcomeCancelled = "cancelled"
)

// Waiter is one blocked long-poll request. It resolves exactly once: either
// it is fulfilled with a payload or it expires.
type Waiter struct {
	id       uint64
	driverID string
	deadline time.Time

	state   atomic.Int32
	ready   chan []byte
	expired chan struct{}
	timer   *time.Timer
}

func (w *Waiter) ID() uint64          { return w.id }
func (w *Waiter) DriverID() string    { return w.driverID }
func (w *Waiter) Deadline() time.Time { return w.deadline }

// Ready yields the payload once the waiter is fulfilled.
func (w *Waiter) Ready() <-chan []byte { return w.ready }

// Expired is closed once the waiter timed out or was unregistered.
func (w *Waiter) Expired() <-chan struct{} { return w.expired }

func (w *Waiter) claim(to int32) bool {
	return w.state.CompareAndSwap(statePending, to)
}

// Broker matches ride payloads to the waiters registered at delivery time.
// A waiter registered after a delivery does not see it.
type Broker struct {
	mu      sync.Mutex
	waiters map[uint64]*Waiter
	nextID  atomic.Uint64

	service string
}

func NewBroker(service string) *Broker {
	return &Broker{
		waiters: make(map[uint64]*Waiter),
		service: service,
	}
}

// Register adds a pending waiter that expires after timeout.
func (b *Broker) Register(driverID string, timeout time.Duration) *Waiter {
	w := &Waiter{
		id:       b.nextID.Add(1),
		driverID: driverID,
		deadline: time.Now().Add(timeout),
		ready:    make(chan []byte, 1),
		expired:  make(chan struct{}),
	}

	b.mu.Lock()
	b.waiters[w.id] = w
	w.timer = time.AfterFunc(timeout, func() { b.expire(w) })
	b.setGauge(len(b.waiters))
	b.mu.Unlock()

	return w
}

// Unregister releases w early, e.g. when the client went away. It returns
// false if w was already fulfilled or expired.
func (b *Broker) Unregister(w *Waiter) bool {
	if !w.claim(stateExpired) {
		return false
	}
	b.mu.Lock()
	w.timer.Stop()
	b.mu.Unlock()

	b.remove(w)
	close(w.expired)
	metrics.RecordLongPoll(b.service, OutcomeCancelled)
	return true
}

// Deliver hands a private copy of payload to every waiter registered at this
// instant and returns how many were fulfilled.
func (b *Broker) Deliver(payload []byte) int {
	b.mu.Lock()
	drained := b.waiters
	b.waiters = make(map[uint64]*Waiter)
	b.setGauge(0)
	b.mu.Unlock()

	fulfilled := 0
	for _, w := range drained {
		if !w.claim(stateFulfilled) {
			continue
		}
		w.timer.Stop()
		w.ready <- bytes.Clone(payload)
		fulfilled++
		metrics.RecordLongPoll(b.service, OutcomeDelivered)
	}
	return fulfilled
}

// Wait blocks until a payload is delivered, timeout elapses or ctx is done.
// ok is false when no payload arrived. A payload that won the race against
// cancellation is still returned.
func (b *Broker) Wait(ctx context.Context, driverID string, timeout time.Duration) (payload []byte, ok bool, err error) {
	w := b.Register(driverID, timeout)

	select {
	case p := <-w.ready:
		return p, true, nil
	case <-w.expired:
		return nil, false, nil
	case <-ctx.Done():
		if b.Unregister(w) {
			return nil, false, ctx.Err()
		}
		select {
		case p := <-w.ready:
			return p, true, nil
		case <-w.expired:
			return nil, false, nil
		}
	}
}

// Pending returns the number of registered waiters.
func (b *Broker) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.waiters)
}

func (b *Broker) expire(w *Waiter) {
	if !w.claim(stateExpired) {
		return
	}
	b.remove(w)
	close(w.expired)
	metrics.RecordLongPoll(b.service, OutcomeTimeout)
}

func (b *Broker) remove(w *Waiter) {
	b.mu.Lock()
	delete(b.waiters, w.id)
	b.setGauge(len(b.waiters))
	b.mu.Unlock()
}

// setGauge must be called with b.mu held.
func (b *Broker) setGauge(n int) {
	metrics.CaptainsWaitingGauge.WithLabelValues(b.service).Set(float64(n))
}
