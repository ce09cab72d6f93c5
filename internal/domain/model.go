package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type MenuItem struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Category  string          `json:"category"`
	Available bool            `json:"available"`
}

type Order struct {
	ID            string          `json:"id"`
	OrderNumber   string          `json:"order_number"`
	TableNumber   *string         `json:"table_number,omitempty"`
	Status        OrderStatus     `json:"status"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	OriginChannel Channel         `json:"origin_channel"`
	ChannelAddr   string          `json:"channel_address,omitempty"`
	Items         []OrderItem     `json:"items"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// RecomputeTotal derives TotalAmount from the order's items. Orders from
// channels that never populate items keep whatever total they were created
// with, so an empty item list leaves the total untouched.
func (o *Order) RecomputeTotal() {
	if len(o.Items) == 0 {
		return
	}
	o.TotalAmount = o.Subtotal()
}

// Subtotal is the item-derived amount used for billing; it falls back to
// TotalAmount for orders whose channel supplied only a total.
func (o *Order) Subtotal() decimal.Decimal {
	if len(o.Items) == 0 {
		return o.TotalAmount
	}
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

type OrderItem struct {
	ID         string          `json:"id"`
	OrderID    string          `json:"order_id"`
	MenuItemID string          `json:"menu_item_id"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"` // frozen copy of the menu price at add time
	Notes      string          `json:"notes,omitempty"`
	Position   int             `json:"position"` // insertion order, the kitchen preparation hint
}

type KitchenToken struct {
	ID        string             `json:"id"`
	OrderID   string             `json:"order_id"`
	Status    KitchenTokenStatus `json:"status"`
	IsUrgent  bool               `json:"is_urgent"`
	StartTime time.Time          `json:"start_time"`
}

type Bill struct {
	ID            string          `json:"id"`
	OrderID       string          `json:"order_id"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	Discount      decimal.Decimal `json:"discount"`
	Total         decimal.Decimal `json:"total"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	PaymentMethod string          `json:"payment_method"`
	CreatedAt     time.Time       `json:"created_at"`
}

type WebhookSubscription struct {
	ID     string   `json:"id"`
	URL    string   `json:"url"`
	Secret string   `json:"secret"`
	Events []string `json:"events"`
	Active bool     `json:"active"`
}

// Wants reports whether the subscription should receive the named event.
func (s *WebhookSubscription) Wants(event string) bool {
	if !s.Active {
		return false
	}
	for _, e := range s.Events {
		if e == event {
			return true
		}
	}
	return false
}

// Activity is one line of the audit trail: order mutations, bill changes and
// webhook delivery outcomes all land here.
type Activity struct {
	ID        string         `json:"id"`
	OrderID   string         `json:"order_id,omitempty"`
	Action    string         `json:"action"`
	Detail    map[string]any `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
