package billing

// EventKind is the webhook event dispatch arm. Unknown event types fall into
// EventIgnored and are acknowledged without action.
type EventKind int

const (
	EventIgnored EventKind = iota
	EventSubscriptionActive
	EventSubscriptionRevoked
)

const (
	eventTypeSubscriptionActive  = "subscription.active"
	eventTypeSubscriptionRevoked = "subscription.revoked"
)

func KindOfEvent(eventType string) EventKind {
	switch eventType {
	case eventTypeSubscriptionActive:
		return EventSubscriptionActive
	case eventTypeSubscriptionRevoked:
		return EventSubscriptionRevoked
	default:
		return EventIgnored
	}
}

// SubscriptionEvent is the payload of a subscription lifecycle webhook. The
// checkout reference links back to the session that started the subscription.
type SubscriptionEvent struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	CustomerID string `json:"customer_id"`
	CheckoutID string `json:"checkout_id"`
}
