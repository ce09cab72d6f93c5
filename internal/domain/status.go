package domain

// OrderStatus is the lifecycle position of an order. The forward chain is
// pending -> preparing -> ready -> completed -> billed; delivered is an
// alternate terminal reachable from ready/completed for delivery orders.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusCompleted OrderStatus = "completed"
	StatusBilled    OrderStatus = "billed"
	StatusDelivered OrderStatus = "delivered"
)

var forwardChain = []OrderStatus{
	StatusPending,
	StatusPreparing,
	StatusReady,
	StatusCompleted,
	StatusBilled,
}

// NextStatus returns the immediate forward successor of s, or "" when s is
// terminal or not part of the forward chain.
func NextStatus(s OrderStatus) OrderStatus {
	for i, st := range forwardChain {
		if st == s && i+1 < len(forwardChain) {
			return forwardChain[i+1]
		}
	}
	return ""
}

// ValidStep reports whether a single-step transition from -> to is legal for
// an order originating from the given channel. Skipping and backward moves
// are never legal; delivered is only reachable from ready or completed and
// only for delivery-channel orders.
func ValidStep(from, to OrderStatus, origin Channel) bool {
	if to == StatusDelivered {
		if origin != ChannelDelivery {
			return false
		}
		return from == StatusReady || from == StatusCompleted
	}
	return NextStatus(from) == to
}

// ParseStatus maps a string onto a known status.
func ParseStatus(s string) (OrderStatus, bool) {
	switch OrderStatus(s) {
	case StatusPending, StatusPreparing, StatusReady, StatusCompleted, StatusBilled, StatusDelivered:
		return OrderStatus(s), true
	}
	return "", false
}

// Channel identifies where an order originated.
type Channel string

const (
	ChannelVoice    Channel = "voice"
	ChannelChat     Channel = "chat"
	ChannelUI       Channel = "ui"
	ChannelPhone    Channel = "phone"
	ChannelDelivery Channel = "delivery-platform"
)

// KitchenTokenStatus mirrors the subset of order statuses the kitchen cares
// about.
type KitchenTokenStatus string

const (
	TokenPreparing KitchenTokenStatus = "preparing"
	TokenReady     KitchenTokenStatus = "ready"
	TokenDone      KitchenTokenStatus = "done"
)

// PaymentStatus is the settlement state of a bill.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)
