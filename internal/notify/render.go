package notify

import (
	"fmt"

	"github.com/pizzabox/order-core/internal/orders"
)

var templates = map[string]string{
	orders.EventOrderPlaced:    "Hi %s, we received order #%d (Rs %s).",
	orders.EventOrderScheduled: "Hi %s, order #%d (Rs %s) is scheduled.",
	orders.EventOrderActivated: "Hi %s, your scheduled order #%d (Rs %s) is now in the kitchen queue.",
	orders.EventOrderAccepted:  "Hi %s, order #%d (Rs %s) has been accepted.",
	orders.EventOrderPreparing: "Hi %s, order #%d (Rs %s) is being prepared.",
	orders.EventOrderBaking:    "Hi %s, order #%d (Rs %s) is in the oven.",
	orders.EventOrderReady:     "Hi %s, order #%d (Rs %s) is packed and waiting for a rider.",
	orders.EventOutForDelivery: "Hi %s, order #%d (Rs %s) is on its way.",
	orders.EventOrderDelivered: "Hi %s, order #%d (Rs %s) has been delivered. Enjoy!",
	orders.EventOrderCancelled: "Hi %s, order #%d (Rs %s) was cancelled.",
	orders.EventOrderRefunded:  "Hi %s, order #%d (Rs %s) has been refunded.",
}

// Render returns the customer text for n; ok is false for unknown events.
func Render(n orders.Notification) (string, bool) {
	tpl, ok := templates[n.Event]
	if !ok {
		return "", false
	}
	name := n.CustomerName
	if name == "" {
		name = "there"
	}
	text := fmt.Sprintf(tpl, name, n.OrderNumber, n.Amount)
	if n.Event == orders.EventOrderScheduled && n.ScheduledFor != nil {
		text += " Delivery at " + n.ScheduledFor.Format("02 Jan 15:04 MST") + "."
	}
	return text, true
}
