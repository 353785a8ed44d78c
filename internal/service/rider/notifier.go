package rider

import (
	"context"
	"errors"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	ws "github.com/Temutjin2k/ride-dispatch/pkg/wsHub"
)

type Sender interface {
	SendTo(id string, msg any) error
}

// Message is what a rider receives over the websocket.
type Message struct {
	Type string             `json:"type"`
	Data models.DomainEvent `json:"data"`
}

// Notifier pushes ride status events to the rider who requested the ride.
type Notifier struct {
	sender Sender
	logger logger.Logger
}

func NewNotifier(sender Sender, logger logger.Logger) *Notifier {
	return &Notifier{sender: sender, logger: logger}
}

// HandleRideEvent forwards evt to the rider's open connection. A rider
// without a connection is not an error: the ride can still be polled.
func (n *Notifier) HandleRideEvent(ctx context.Context, evt models.DomainEvent, _ []byte) error {
	ctx = wrap.WithUserID(wrap.WithAction(ctx, types.ActionNotifyRider), evt.UserID)

	if evt.UserID == "" {
		n.logger.Warn(ctx, "ride event without rider id", "event_kind", evt.Kind)
		return nil
	}

	err := n.sender.SendTo(evt.UserID, Message{Type: evt.Kind.String(), Data: evt})
	switch {
	case err == nil:
		n.logger.Debug(ctx, "rider notified", "event_kind", evt.Kind)
	case errors.Is(err, ws.ErrConnIsNotFound):
		n.logger.Debug(ctx, "rider not connected", "event_kind", evt.Kind)
	default:
		n.logger.Warn(ctx, "failed to notify rider", "event_kind", evt.Kind, "error", err.Error())
	}
	return nil
}
