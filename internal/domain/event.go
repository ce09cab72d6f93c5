package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event names, dot-namespaced. customer.created is part of the public
// catalog so subscriptions may register for it, even though this core never
// emits it itself.
const (
	EventOrderCreated        = "order.created"
	EventOrderUpdated        = "order.updated"
	EventOrderCompleted      = "order.completed"
	EventOrderDeleted        = "order.deleted"
	EventKitchenTokenCreated = "kitchen.token.created"
	EventKitchenTokenUpdated = "kitchen.token.updated"
	EventBillCreated         = "bill.created"
	EventBillPaid            = "bill.paid"
	EventCustomerCreated     = "customer.created"
)

// EventCatalog lists every event name a subscription may register for.
var EventCatalog = []string{
	EventOrderCreated,
	EventOrderUpdated,
	EventOrderCompleted,
	EventOrderDeleted,
	EventKitchenTokenCreated,
	EventKitchenTokenUpdated,
	EventBillCreated,
	EventBillPaid,
	EventCustomerCreated,
}

// KnownEvent reports whether name is part of the catalog.
func KnownEvent(name string) bool {
	for _, e := range EventCatalog {
		if e == name {
			return true
		}
	}
	return false
}

// Event is one state change flowing through the bus. DeliveryID is the
// idempotency key: minted once here and reused across every webhook retry of
// the same logical delivery.
type Event struct {
	Name       string         `json:"event"`
	Payload    map[string]any `json:"payload"`
	Timestamp  time.Time      `json:"timestamp"`
	DeliveryID string         `json:"delivery_id"`
}

func NewEvent(name string, payload map[string]any) Event {
	return Event{
		Name:       name,
		Payload:    payload,
		Timestamp:  time.Now().UTC(),
		DeliveryID: uuid.NewString(),
	}
}
