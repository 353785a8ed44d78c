package rabbit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrBusUnavailable = errors.New("message bus unavailable")
	ErrBusClosed      = errors.New("message bus closed")
	ErrEmptyURL       = errors.New("rabbitmq url is empty")

	// ErrDropMessage marks a handler error as permanent: the message is
	// removed from the queue instead of being requeued.
	ErrDropMessage = errors.New("drop message")
)

// Envelope is a consumed message as seen by a Handler. The bus settles the
// underlying delivery once the handler returns, so nothing in the envelope
// outlives the handler invocation.
type Envelope struct {
	Queue         string
	Body          []byte
	Durable       bool
	Persistent    bool
	Redelivered   bool
	CorrelationID string
	Timestamp     time.Time

	deliveryTag uint64
}

// Handler processes one message. A nil error acknowledges it.
type Handler func(ctx context.Context, msg Envelope) error

// AckPolicy decides what happens to a message whose handler failed.
type AckPolicy string

const (
	// AckRequeue acks on success, requeues a failed message once and drops it
	// on the second failure.
	AckRequeue AckPolicy = "requeue"
	// AckAlways acks regardless of the handler outcome; a failed message is lost.
	AckAlways AckPolicy = "always"
)

// ParseAckPolicy validates a configured policy name.
func ParseAckPolicy(s string) (AckPolicy, error) {
	switch p := AckPolicy(s); p {
	case AckRequeue, AckAlways:
		return p, nil
	case "":
		return AckRequeue, nil
	default:
		return "", fmt.Errorf("unknown ack policy %q", s)
	}
}
