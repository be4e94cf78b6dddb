package notify

import (
	"context"
	"encoding/json"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/pizzabox/order-core/internal/kafka"
	"github.com/pizzabox/order-core/internal/orders"
)

// Deduper is satisfied by redisx.Dedup.
type Deduper interface {
	FirstSeen(ctx context.Context, id string) (bool, error)
	Forget(ctx context.Context, id string) error
}

// Sender delivers one rendered message to a customer.
type Sender interface {
	Send(ctx context.Context, phone, text string) error
}

type Handler struct {
	Dedup  Deduper
	Sender Sender
	Log    *zap.Logger
}

func NewHandler(dedup Deduper, sender Sender, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Dedup: dedup, Sender: sender, Log: log}
}

// HandleMessage is a kafka.Handler. Undecodable and unknown events are
// skipped so they do not block the partition. A failed send drops the dedup
// mark and returns the error, so the consumer's retry sends it again.
func (h *Handler) HandleMessage(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		h.Log.Warn("skip undecodable event", zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}
	n, err := kafkax.UnwrapPayload[orders.Notification](env.Payload)
	if err != nil {
		h.Log.Warn("skip event", zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}
	text, ok := Render(n)
	if !ok {
		return nil
	}
	if n.Phone == "" {
		h.Log.Debug("no phone on order", zap.String("order_id", n.OrderID))
		return nil
	}

	first, err := h.Dedup.FirstSeen(ctx, env.EventID)
	if err != nil {
		return fmt.Errorf("dedup %s: %w", env.EventID, err)
	}
	if !first {
		return nil
	}
	if err := h.Sender.Send(ctx, n.Phone, text); err != nil {
		if ferr := h.Dedup.Forget(ctx, env.EventID); ferr != nil {
			h.Log.Warn("forget dedup mark", zap.String("event_id", env.EventID), zap.Error(ferr))
		}
		return fmt.Errorf("send %s for order %s: %w", n.Event, n.OrderID, err)
	}
	h.Log.Info("notification sent",
		zap.String("event", n.Event),
		zap.String("order_id", n.OrderID),
		zap.Int64("order_number", n.OrderNumber))
	return nil
}

// LogSender writes messages to the log instead of a real channel.
type LogSender struct{ Log *zap.Logger }

func (s LogSender) Send(_ context.Context, phone, text string) error {
	s.Log.Info("customer message", zap.String("phone", phone), zap.String("text", text))
	return nil
}
