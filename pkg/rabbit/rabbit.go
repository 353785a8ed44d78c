package rabbit

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	defaultRetryDelay  = 5 * time.Second
	defaultDialTimeout = 10 * time.Second
	prefetchCount      = 1
)

type Config struct {
	URL         string
	RetryDelay  time.Duration
	DialTimeout time.Duration
	AckPolicy   AckPolicy
	Service     string // metrics label
}

// Bus is a RabbitMQ client that survives broker outages. A single supervisor
// goroutine owns the connection: it dials, replays subscriptions, serves
// publishes and redials after RetryDelay when the connection drops.
type Bus struct {
	cfg  Config
	dial Dialer
	log  logger.Logger

	publishCh chan publishRequest

	mu   sync.Mutex
	subs []*subscription
	conn Connection
	gen  uint64

	connected atomic.Bool
	started   atomic.Bool
	startOnce sync.Once
	closeOnce sync.Once
	done      chan struct{}
	stopped   chan struct{}
	consumers sync.WaitGroup
}

type publishRequest struct {
	ctx   context.Context
	queue string
	body  []byte
	reply chan error
}

type Option func(*Bus)

// WithDialer replaces the AMQP dialer.
func WithDialer(d Dialer) Option {
	return func(b *Bus) { b.dial = d }
}

// New creates a bus. Nothing is dialed until Start.
func New(cfg Config, log logger.Logger, opts ...Option) (*Bus, error) {
	if cfg.URL == "" {
		return nil, ErrEmptyURL
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.AckPolicy == "" {
		cfg.AckPolicy = AckRequeue
	}

	b := &Bus{
		cfg:       cfg,
		log:       log,
		publishCh: make(chan publishRequest),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	b.dial = AMQPDialer(cfg.DialTimeout)
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Start launches the connection supervisor. Calling it again is a no-op.
// The supervisor stops when ctx is cancelled or Close is called.
func (b *Bus) Start(ctx context.Context) {
	if b.isClosed() {
		return
	}
	b.startOnce.Do(func() {
		b.started.Store(true)
		go b.supervise(ctx)
	})
}

// Connected reports whether a broker connection is currently established.
func (b *Bus) Connected() bool {
	return b.connected.Load()
}

// Publish sends body to the durable queue of the same name as a persistent
// message. It fails fast with ErrBusUnavailable while disconnected; the
// caller decides whether to retry.
func (b *Bus) Publish(ctx context.Context, queue string, body []byte) (err error) {
	defer func() { metrics.RecordRabbitMQPublish(b.cfg.Service, queue, err) }()

	if b.isClosed() {
		return ErrBusClosed
	}
	if !b.connected.Load() {
		return ErrBusUnavailable
	}

	req := publishRequest{ctx: ctx, queue: queue, body: body, reply: make(chan error, 1)}
	select {
	case b.publishCh <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-b.stopped:
		return ErrBusClosed
	}

	select {
	case err = <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers handler for queue. The registration is kept for the
// lifetime of ctx and replayed after every reconnect. When the bus is not
// connected the subscription is still registered and ErrBusUnavailable is
// returned; it becomes active with the next connection.
func (b *Bus) Subscribe(ctx context.Context, queue string, handler Handler) error {
	if queue == "" || handler == nil {
		return errors.New("subscribe: queue and handler are required")
	}
	if b.isClosed() {
		return ErrBusClosed
	}

	s := &subscription{ctx: ctx, queue: queue, handler: handler}

	b.mu.Lock()
	b.subs = append(b.subs, s)
	conn, gen := b.conn, b.gen
	b.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("subscribe %s: %w", queue, ErrBusUnavailable)
	}
	if err := b.activate(conn, s, gen); err != nil {
		return fmt.Errorf("subscribe %s: %w: %w", queue, ErrBusUnavailable, err)
	}
	return nil
}

// Close stops the supervisor, closes the connection and waits for running
// handlers to return.
func (b *Bus) Close(ctx context.Context) error {
	ctx = wrap.WithAction(ctx, types.ActionRabbitConnectionClosing)
	b.closeOnce.Do(func() { close(b.done) })

	if !b.started.Load() {
		return nil
	}

	select {
	case <-b.stopped:
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := closeWithCtxFunc(ctx, func() error {
		b.consumers.Wait()
		return nil
	}); err != nil {
		b.log.Debug(ctx, "context cancelled while waiting for consumers")
		return err
	}

	b.log.Info(wrap.WithAction(ctx, types.ActionRabbitConnectionClosed), "rabbitMQ closed")
	return nil
}

func (b *Bus) isClosed() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}

func (b *Bus) supervise(ctx context.Context) {
	defer close(b.stopped)

	everConnected := false
	for attempt := 0; ; attempt++ {
		if attempt > 0 && !b.backoff(ctx) {
			return
		}
		if ctx.Err() != nil || b.isClosed() {
			return
		}

		conn, ch, err := b.connect()
		if err != nil {
			b.log.Error(wrap.WithAction(ctx, types.ActionRabbitReconnecting), "failed to connect to rabbitMQ", err, "retry_in", b.cfg.RetryDelay.String())
			continue
		}
		if everConnected {
			metrics.RabbitMQReconnects.WithLabelValues(b.cfg.Service).Inc()
		}
		everConnected = true

		lost := b.serve(ctx, conn, ch)
		b.teardown(conn)
		if !lost {
			return
		}
	}
}

func (b *Bus) connect() (Connection, Channel, error) {
	conn, err := b.dial(b.cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open publish channel: %w", err)
	}
	return conn, ch, nil
}

// serve runs one connection session. It returns true when the connection was
// lost and the supervisor should redial.
func (b *Bus) serve(ctx context.Context, conn Connection, ch Channel) bool {
	connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
	chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))

	b.mu.Lock()
	b.conn = conn
	b.gen++
	gen := b.gen
	b.subs = slices.DeleteFunc(b.subs, func(s *subscription) bool { return s.ctx.Err() != nil })
	subs := slices.Clone(b.subs)
	b.connected.Store(true)
	b.mu.Unlock()

	metrics.RabbitMQConnected.WithLabelValues(b.cfg.Service).Set(1)
	b.log.Info(wrap.WithAction(ctx, types.ActionRabbitMQConnected), "connected to rabbitMQ", "subscriptions", len(subs))

	for _, s := range subs {
		if err := b.activate(conn, s, gen); err != nil {
			b.log.Error(wrap.WithAction(ctx, types.ActionRabbitConsume), "failed to resume subscription", err, "queue", s.queue)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return false
		case <-b.done:
			return false
		case err := <-connClosed:
			b.logLost(ctx, "connection", err)
			return true
		case err := <-chClosed:
			b.logLost(ctx, "channel", err)
			return true
		case req := <-b.publishCh:
			req.reply <- b.publish(req.ctx, ch, req.queue, req.body)
		}
	}
}

func (b *Bus) logLost(ctx context.Context, what string, err *amqp.Error) {
	ctx = wrap.WithAction(ctx, types.ActionRabbitConnectionClosed)
	if err != nil {
		b.log.Error(ctx, "rabbitMQ "+what+" closed", err)
		return
	}
	b.log.Warn(ctx, "rabbitMQ "+what+" closed")
}

func (b *Bus) teardown(conn Connection) {
	b.mu.Lock()
	b.conn = nil
	b.connected.Store(false)
	b.mu.Unlock()

	metrics.RabbitMQConnected.WithLabelValues(b.cfg.Service).Set(0)
	if !conn.IsClosed() {
		_ = conn.Close()
	}
}

// backoff waits RetryDelay while answering publishes with ErrBusUnavailable.
func (b *Bus) backoff(ctx context.Context) bool {
	timer := time.NewTimer(b.cfg.RetryDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-b.done:
			return false
		case <-timer.C:
			return true
		case req := <-b.publishCh:
			req.reply <- ErrBusUnavailable
		}
	}
}

func (b *Bus) publish(ctx context.Context, ch Channel, queue string, body []byte) error {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}

	err := ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		CorrelationId: wrap.GetRequestID(ctx),
		Timestamp:     time.Now().UTC(),
		Body:          body,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", queue, err)
	}
	return nil
}

// helper to close a resource with context cancellation safely
func closeWithCtxFunc(ctx context.Context, fn func() error) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- fn()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
