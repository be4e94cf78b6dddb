package orders

type Status string

const (
	StatusScheduled      Status = "SCHEDULED"
	StatusPending        Status = "PENDING"
	StatusAccepted       Status = "ACCEPTED"
	StatusPreparing      Status = "PREPARING"
	StatusBaking         Status = "BAKING"
	StatusReadyForPickup Status = "READY_FOR_PICKUP"
	StatusOutForDelivery Status = "OUT_FOR_DELIVERY"
	StatusDelivered      Status = "DELIVERED"
	StatusCancelled      Status = "CANCELLED"
	StatusRefunded       Status = "REFUNDED"
)

var allStatuses = []Status{
	StatusScheduled, StatusPending, StatusAccepted, StatusPreparing, StatusBaking,
	StatusReadyForPickup, StatusOutForDelivery, StatusDelivered, StatusCancelled, StatusRefunded,
}

// kitchenStates may be entered in any order; staff skip BAKING for items that are not baked.
var kitchenStates = []Status{StatusAccepted, StatusPreparing, StatusBaking, StatusReadyForPickup}

func ParseStatus(s string) (Status, bool) {
	for _, st := range allStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled || s == StatusRefunded
}

// Effect is the side effect that must be applied in the same update as the status change.
type Effect int

const (
	EffectNone Effect = iota
	// EffectRequirePartner: a delivery partner must already be on the order.
	EffectRequirePartner
	// EffectReleasePartner: the order's partner goes back to AVAILABLE.
	EffectReleasePartner
)

type Actor string

const (
	ActorKitchen   Actor = "KITCHEN"
	ActorAdmin     Actor = "ADMIN"
	ActorScheduler Actor = "SCHEDULER"
)

func ParseActor(s string) (Actor, bool) {
	switch Actor(s) {
	case ActorKitchen, ActorAdmin, ActorScheduler:
		return Actor(s), true
	}
	return "", false
}

type Rule struct {
	Effect Effect
	// Actors restricts who may trigger the transition; empty means any.
	Actors []Actor
}

func (r Rule) Permits(a Actor) bool {
	if len(r.Actors) == 0 {
		return true
	}
	for _, x := range r.Actors {
		if x == a {
			return true
		}
	}
	return false
}

var transitions = buildTransitions()

func buildTransitions() map[Status]map[Status]Rule {
	t := make(map[Status]map[Status]Rule)
	allow := func(from, to Status, r Rule) {
		if t[from] == nil {
			t[from] = make(map[Status]Rule)
		}
		t[from][to] = r
	}

	allow(StatusScheduled, StatusPending, Rule{Actors: []Actor{ActorScheduler, ActorAdmin}})
	allow(StatusScheduled, StatusCancelled, Rule{})

	for _, from := range append([]Status{StatusPending}, kitchenStates...) {
		for _, to := range kitchenStates {
			if from != to {
				allow(from, to, Rule{})
			}
		}
		allow(from, StatusCancelled, Rule{})
		allow(from, StatusRefunded, Rule{})
	}
	for _, from := range kitchenStates {
		allow(from, StatusOutForDelivery, Rule{Effect: EffectRequirePartner})
	}

	release := Rule{Effect: EffectReleasePartner}
	allow(StatusOutForDelivery, StatusDelivered, release)
	allow(StatusOutForDelivery, StatusCancelled, release)
	allow(StatusOutForDelivery, StatusRefunded, release)
	// refund after delivery is the only way out of DELIVERED; the partner
	// was already released on delivery
	allow(StatusDelivered, StatusRefunded, Rule{})
	return t
}

// Lookup returns the rule for from → to; ok is false when the move is not allowed at all.
func Lookup(from, to Status) (Rule, bool) {
	r, ok := transitions[from][to]
	return r, ok
}

func CanTransition(from, to Status) bool {
	_, ok := Lookup(from, to)
	return ok
}
