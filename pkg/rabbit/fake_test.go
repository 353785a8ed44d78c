package rabbit

import (
	"context"
	"errors"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// fakeBroker is an in-process stand-in for RabbitMQ: durable queues,
// manual acknowledgements with requeue and connection drops.
type fakeBroker struct {
	mu        sync.Mutex
	failDials int
	dials     int
	conns     []*fakeConn
	queues    map[string]*fakeQueue
	published []fakePublished
	prefetch  []int
	settled   []settleRecord
}

type fakeQueue struct {
	durable bool
	ch      chan amqp.Delivery
}

type fakePublished struct {
	queue string
	msg   amqp.Publishing
}

type settleRecord struct {
	body    string
	outcome string
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{queues: make(map[string]*fakeQueue)}
}

func (f *fakeBroker) dial(string) (Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.dials++
	if f.failDials > 0 {
		f.failDials--
		return nil, errors.New("connection refused")
	}
	c := &fakeConn{broker: f, closed: make(chan struct{})}
	f.conns = append(f.conns, c)
	return c, nil
}

func (f *fakeBroker) queue(name string) *fakeQueue {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queueLocked(name)
}

func (f *fakeBroker) queueLocked(name string) *fakeQueue {
	q, ok := f.queues[name]
	if !ok {
		q = &fakeQueue{ch: make(chan amqp.Delivery, 64)}
		f.queues[name] = q
	}
	return q
}

func (f *fakeBroker) dialCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dials
}

func (f *fakeBroker) lastConn() *fakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.conns) == 0 {
		return nil
	}
	return f.conns[len(f.conns)-1]
}

func (f *fakeBroker) publishedMessages() []fakePublished {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakePublished(nil), f.published...)
}

func (f *fakeBroker) prefetchCounts() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.prefetch...)
}

func (f *fakeBroker) settlements() []settleRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]settleRecord(nil), f.settled...)
}

func (f *fakeBroker) record(body []byte, outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settled = append(f.settled, settleRecord{body: string(body), outcome: outcome})
}

type fakeConn struct {
	broker *fakeBroker

	mu       sync.Mutex
	channels []*fakeChannel
	notify   []chan *amqp.Error
	closed   chan struct{}
	isClosed bool
}

func (c *fakeConn) Channel() (Channel, error) {
	if c.IsClosed() {
		return nil, amqp.ErrClosed
	}
	ch := &fakeChannel{conn: c, done: make(chan struct{})}
	c.mu.Lock()
	c.channels = append(c.channels, ch)
	c.mu.Unlock()
	return ch, nil
}

// channel returns the i-th channel opened on c; 0 is the publish channel.
func (c *fakeConn) channel(i int) *fakeChannel {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i >= len(c.channels) {
		return nil
	}
	return c.channels[i]
}

func (c *fakeConn) NotifyClose(r chan *amqp.Error) chan *amqp.Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isClosed {
		close(r)
		return r
	}
	c.notify = append(c.notify, r)
	return r
}

func (c *fakeConn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isClosed
}

func (c *fakeConn) Close() error {
	return c.shutdown(nil)
}

// drop simulates the broker going away.
func (c *fakeConn) drop() {
	_ = c.shutdown(&amqp.Error{Code: 320, Reason: "CONNECTION_FORCED"})
}

func (c *fakeConn) shutdown(reason *amqp.Error) error {
	c.mu.Lock()
	if c.isClosed {
		c.mu.Unlock()
		return amqp.ErrClosed
	}
	c.isClosed = true
	close(c.closed)
	receivers := c.notify
	c.notify = nil
	c.mu.Unlock()

	for _, r := range receivers {
		if reason != nil {
			r <- reason
		}
		close(r)
	}
	return nil
}

type fakeChannel struct {
	conn *fakeConn

	once sync.Once
	done chan struct{}
}

func (ch *fakeChannel) QueueDeclare(name string, durable, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	if ch.conn.IsClosed() {
		return amqp.Queue{}, amqp.ErrClosed
	}
	b := ch.conn.broker
	b.mu.Lock()
	defer b.mu.Unlock()
	q := b.queueLocked(name)
	q.durable = durable
	return amqp.Queue{Name: name}, nil
}

func (ch *fakeChannel) Qos(prefetchCount, _ int, _ bool) error {
	b := ch.conn.broker
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prefetch = append(b.prefetch, prefetchCount)
	return nil
}

func (ch *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	if ch.conn.IsClosed() {
		return amqp.ErrClosed
	}
	b := ch.conn.broker
	b.mu.Lock()
	b.published = append(b.published, fakePublished{queue: key, msg: msg})
	q := b.queueLocked(key)
	b.mu.Unlock()

	d := amqp.Delivery{
		Body:          msg.Body,
		DeliveryMode:  msg.DeliveryMode,
		CorrelationId: msg.CorrelationId,
		Timestamp:     msg.Timestamp,
		RoutingKey:    key,
	}
	d.Acknowledger = &fakeAck{broker: b, queue: q, delivery: d}
	q.ch <- d
	return nil
}

func (ch *fakeChannel) Consume(queue, _ string, _, _, _, _ bool, _ amqp.Table) (<-chan amqp.Delivery, error) {
	if ch.conn.IsClosed() {
		return nil, amqp.ErrClosed
	}
	q := ch.conn.broker.queue(queue)
	out := make(chan amqp.Delivery)

	go func() {
		defer close(out)
		for {
			select {
			case <-ch.conn.closed:
				return
			case <-ch.done:
				return
			case d := <-q.ch:
				select {
				case out <- d:
				case <-ch.conn.closed:
					q.ch <- d
					return
				case <-ch.done:
					q.ch <- d
					return
				}
			}
		}
	}()
	return out, nil
}

func (ch *fakeChannel) NotifyClose(r chan *amqp.Error) chan *amqp.Error {
	return ch.conn.NotifyClose(r)
}

func (ch *fakeChannel) Close() error {
	ch.once.Do(func() { close(ch.done) })
	return nil
}

type fakeAck struct {
	broker   *fakeBroker
	queue    *fakeQueue
	delivery amqp.Delivery
}

func (a *fakeAck) Ack(uint64, bool) error {
	a.broker.record(a.delivery.Body, "ack")
	return nil
}

func (a *fakeAck) Nack(_ uint64, _ bool, requeue bool) error {
	if !requeue {
		a.broker.record(a.delivery.Body, "drop")
		return nil
	}
	a.broker.record(a.delivery.Body, "requeue")
	d := a.delivery
	d.Redelivered = true
	d.Acknowledger = &fakeAck{broker: a.broker, queue: a.queue, delivery: d}
	a.queue.ch <- d
	return nil
}

func (a *fakeAck) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}
