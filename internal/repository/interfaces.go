// Package repository defines the narrow persistence contracts the core
// depends on. The core never sees a storage engine, only these signatures.
package repository

import (
	"context"

	"dinewire/internal/domain"
)

type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	Get(ctx context.Context, id string) (*domain.Order, error)
	GetByNumber(ctx context.Context, number string) (*domain.Order, error)
	List(ctx context.Context) ([]*domain.Order, error)
	Update(ctx context.Context, order *domain.Order) error
	AddItem(ctx context.Context, item *domain.OrderItem) error
	Delete(ctx context.Context, id string) error
	// NextNumber issues the next numeric order number. Issued numbers are
	// never handed out again, deletions included.
	NextNumber(ctx context.Context) (int, error)
}

type MenuItemRepository interface {
	Create(ctx context.Context, item *domain.MenuItem) error
	Get(ctx context.Context, id string) (*domain.MenuItem, error)
	List(ctx context.Context) ([]*domain.MenuItem, error)
	Update(ctx context.Context, item *domain.MenuItem) error
}

type KitchenTokenRepository interface {
	Create(ctx context.Context, token *domain.KitchenToken) error
	GetByOrder(ctx context.Context, orderID string) (*domain.KitchenToken, error)
	Update(ctx context.Context, token *domain.KitchenToken) error
	DeleteByOrder(ctx context.Context, orderID string) error
}

type BillRepository interface {
	Create(ctx context.Context, bill *domain.Bill) error
	Get(ctx context.Context, id string) (*domain.Bill, error)
	GetByOrder(ctx context.Context, orderID string) (*domain.Bill, error)
	Update(ctx context.Context, bill *domain.Bill) error
}

type SubscriptionRepository interface {
	Create(ctx context.Context, sub *domain.WebhookSubscription) error
	Get(ctx context.Context, id string) (*domain.WebhookSubscription, error)
	List(ctx context.Context) ([]*domain.WebhookSubscription, error)
	Update(ctx context.Context, sub *domain.WebhookSubscription) error
	Delete(ctx context.Context, id string) error
}

type ActivityRepository interface {
	Create(ctx context.Context, act *domain.Activity) error
	ListByOrder(ctx context.Context, orderID string, limit int) ([]*domain.Activity, error)
}

// Store bundles every repository behind one handle so wiring stays flat.
type Store struct {
	Orders        OrderRepository
	MenuItems     MenuItemRepository
	KitchenTokens KitchenTokenRepository
	Bills         BillRepository
	Subscriptions SubscriptionRepository
	Activities    ActivityRepository
}
