package orders

import (
	"context"
	"encoding/json"
	"time"
)

const (
	EventOrderPlaced    = "order.placed"
	EventOrderScheduled = "order.scheduled"
	EventOrderActivated = "order.activated"
	EventOrderAccepted  = "order.accepted"
	EventOrderPreparing = "order.preparing"
	EventOrderBaking    = "order.baking"
	EventOrderReady     = "order.ready_for_pickup"
	EventOutForDelivery = "order.out_for_delivery"
	EventOrderDelivered = "order.delivered"
	EventOrderCancelled = "order.cancelled"
	EventOrderRefunded  = "order.refunded"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

// Notification is the flat payload handed to the notification dispatcher.
type Notification struct {
	Event        string     `json:"event"`
	OrderID      string     `json:"order_id"`
	OrderNumber  int64      `json:"order_number"`
	CustomerName string     `json:"customer_name"`
	Phone        string     `json:"phone"`
	Amount       string     `json:"amount"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
}

// Notifier is best-effort. Implementations must not block the caller on
// delivery and have no way to report failure back.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Notification) {}

type Transition struct {
	From Status
	To   Status
}

// transitionEvents maps a transition to its notification. An empty From
// matches any source state; exact entries win.
var transitionEvents = map[Transition]string{
	{From: StatusScheduled, To: StatusPending}: EventOrderActivated,
	{To: StatusAccepted}:                       EventOrderAccepted,
	{To: StatusPreparing}:                      EventOrderPreparing,
	{To: StatusBaking}:                         EventOrderBaking,
	{To: StatusReadyForPickup}:                 EventOrderReady,
	{To: StatusOutForDelivery}:                 EventOutForDelivery,
	{To: StatusDelivered}:                      EventOrderDelivered,
	{To: StatusCancelled}:                      EventOrderCancelled,
	{To: StatusRefunded}:                       EventOrderRefunded,
}

func EventFor(from, to Status) (string, bool) {
	if ev, ok := transitionEvents[Transition{From: from, To: to}]; ok {
		return ev, true
	}
	ev, ok := transitionEvents[Transition{To: to}]
	return ev, ok
}

func notificationFor(event string, o *Order) Notification {
	return Notification{
		Event:        event,
		OrderID:      o.ID,
		OrderNumber:  o.Number,
		CustomerName: o.CustomerName,
		Phone:        o.CustomerPhone,
		Amount:       o.Total.StringFixed(2),
		ScheduledFor: o.ScheduledFor,
	}
}
