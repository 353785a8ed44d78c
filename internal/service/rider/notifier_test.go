package rider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	ws "github.com/Temutjin2k/ride-dispatch/pkg/wsHub"
)

type fakeSender struct {
	sent map[string][]any
	err  error
}

func (f *fakeSender) SendTo(id string, msg any) error {
	if f.err != nil {
		return f.err
	}
	if f.sent == nil {
		f.sent = make(map[string][]any)
	}
	f.sent[id] = append(f.sent[id], msg)
	return nil
}

func TestNotifier_SendsToRider(t *testing.T) {
	sender := &fakeSender{}
	n := NewNotifier(sender, logger.Nop())

	evt := models.DomainEvent{
		Kind:      types.EventRideAccepted,
		RideID:    "r1",
		UserID:    "u1",
		CaptainID: "c1",
		Status:    types.StatusAccepted,
		Timestamp: time.Now(),
	}
	if err := n.HandleRideEvent(context.Background(), evt, nil); err != nil {
		t.Fatalf("HandleRideEvent: %v", err)
	}

	msgs := sender.sent["u1"]
	if len(msgs) != 1 {
		t.Fatalf("rider got %d messages", len(msgs))
	}
	msg, ok := msgs[0].(Message)
	if !ok || msg.Type != "ride-accepted" || msg.Data.CaptainID != "c1" {
		t.Fatalf("unexpected message %+v", msgs[0])
	}
}

func TestNotifier_IgnoresDeliveryProblems(t *testing.T) {
	evt := models.DomainEvent{Kind: types.EventRideStarted, RideID: "r1", UserID: "u1", Status: types.StatusStarted}

	for _, err := range []error{ws.ErrConnIsNotFound, errors.New("broken pipe")} {
		n := NewNotifier(&fakeSender{err: err}, logger.Nop())
		if got := n.HandleRideEvent(context.Background(), evt, nil); got != nil {
			t.Fatalf("send error %v must not fail the message, got %v", err, got)
		}
	}

	n := NewNotifier(&fakeSender{}, logger.Nop())
	evt.UserID = ""
	if err := n.HandleRideEvent(context.Background(), evt, nil); err != nil {
		t.Fatalf("event without rider: %v", err)
	}
}
