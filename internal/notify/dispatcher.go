// Package notify carries order notifications from the order service to the
// customer-facing channels. The order side only enqueues; delivery happens
// in the notifier worker.
package notify

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/pizzabox/order-core/internal/kafka"
	"github.com/pizzabox/order-core/internal/orders"
)

const EventVersion = 1

type publisher interface {
	TryPublish(key, value []byte, headers ...kafkago.Header) bool
}

// Dispatcher implements orders.Notifier on top of the Kafka producer. A full
// buffer drops the notification; the order is already committed.
type Dispatcher struct {
	pub     publisher
	service string
	log     *zap.Logger
	now     func() time.Time
}

var _ orders.Notifier = (*Dispatcher)(nil)

func NewDispatcher(pub publisher, service string, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{pub: pub, service: service, log: log, now: time.Now}
}

func (d *Dispatcher) Notify(ctx context.Context, n orders.Notification) {
	env := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     n.Event,
		EventVersion:  EventVersion,
		OccurredAt:    d.now().UTC(),
		Producer:      d.service,
		TraceID:       middleware.GetReqID(ctx),
		CorrelationID: n.OrderID,
		Payload:       kafkax.MustMarshal(n),
	}
	ok := d.pub.TryPublish(orders.PartitionKey(n.OrderID), kafkax.MustMarshal(env),
		kafkago.Header{Key: "x-event-type", Value: []byte(n.Event)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
	if !ok {
		d.log.Warn("notification dropped",
			zap.String("event", n.Event),
			zap.String("order_id", n.OrderID))
	}
}
