// Package memory is an in-process storage driver used by tests and
// standalone runs. Every repository shares one RWMutex-guarded state and
// returns copies, never internal pointers.
package memory

import (
	"context"
	"sort"
	"sync"

	"dinewire/internal/domain"
	"dinewire/internal/repository"
)

type state struct {
	mu         sync.RWMutex
	orderSeq   int
	orders     map[string]*domain.Order
	menuItems  map[string]*domain.MenuItem
	tokens     map[string]*domain.KitchenToken // keyed by order id (1:1)
	bills      map[string]*domain.Bill
	subs       map[string]*domain.WebhookSubscription
	activities []*domain.Activity
}

// NewStore returns a repository.Store backed by shared in-memory state.
func NewStore() *repository.Store {
	s := &state{
		orders:    make(map[string]*domain.Order),
		menuItems: make(map[string]*domain.MenuItem),
		tokens:    make(map[string]*domain.KitchenToken),
		bills:     make(map[string]*domain.Bill),
		subs:      make(map[string]*domain.WebhookSubscription),
	}
	return &repository.Store{
		Orders:        &orderRepo{s},
		MenuItems:     &menuRepo{s},
		KitchenTokens: &tokenRepo{s},
		Bills:         &billRepo{s},
		Subscriptions: &subRepo{s},
		Activities:    &activityRepo{s},
	}
}

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	c.Items = make([]domain.OrderItem, len(o.Items))
	copy(c.Items, o.Items)
	return &c
}

type orderRepo struct{ s *state }

func (r *orderRepo) Create(_ context.Context, order *domain.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.orders[order.ID] = cloneOrder(order)
	return nil
}

func (r *orderRepo) Get(_ context.Context, id string) (*domain.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (r *orderRepo) GetByNumber(_ context.Context, number string) (*domain.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, o := range r.s.orders {
		if o.OrderNumber == number {
			return cloneOrder(o), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *orderRepo) List(_ context.Context) ([]*domain.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.Order, 0, len(r.s.orders))
	for _, o := range r.s.orders {
		out = append(out, cloneOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *orderRepo) Update(_ context.Context, order *domain.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.orders[order.ID]; !ok {
		return domain.ErrNotFound
	}
	r.s.orders[order.ID] = cloneOrder(order)
	return nil
}

func (r *orderRepo) AddItem(_ context.Context, item *domain.OrderItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[item.OrderID]
	if !ok {
		return domain.ErrNotFound
	}
	o.Items = append(o.Items, *item)
	return nil
}

func (r *orderRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.orders[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.orders, id)
	delete(r.s.tokens, id)
	return nil
}

func (r *orderRepo) NextNumber(_ context.Context) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.orderSeq == 0 {
		r.s.orderSeq = 1001
	}
	n := r.s.orderSeq
	r.s.orderSeq++
	return n, nil
}

type menuRepo struct{ s *state }

func (r *menuRepo) Create(_ context.Context, item *domain.MenuItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *item
	r.s.menuItems[item.ID] = &c
	return nil
}

func (r *menuRepo) Get(_ context.Context, id string) (*domain.MenuItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.menuItems[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *m
	return &c, nil
}

func (r *menuRepo) List(_ context.Context) ([]*domain.MenuItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.MenuItem, 0, len(r.s.menuItems))
	for _, m := range r.s.menuItems {
		c := *m
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *menuRepo) Update(_ context.Context, item *domain.MenuItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.menuItems[item.ID]; !ok {
		return domain.ErrNotFound
	}
	c := *item
	r.s.menuItems[item.ID] = &c
	return nil
}

type tokenRepo struct{ s *state }

func (r *tokenRepo) Create(_ context.Context, token *domain.KitchenToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *token
	r.s.tokens[token.OrderID] = &c
	return nil
}

func (r *tokenRepo) GetByOrder(_ context.Context, orderID string) (*domain.KitchenToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.tokens[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *t
	return &c, nil
}

func (r *tokenRepo) Update(_ context.Context, token *domain.KitchenToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tokens[token.OrderID]; !ok {
		return domain.ErrNotFound
	}
	c := *token
	r.s.tokens[token.OrderID] = &c
	return nil
}

func (r *tokenRepo) DeleteByOrder(_ context.Context, orderID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.tokens, orderID)
	return nil
}

type billRepo struct{ s *state }

func (r *billRepo) Create(_ context.Context, bill *domain.Bill) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *bill
	r.s.bills[bill.ID] = &c
	return nil
}

func (r *billRepo) Get(_ context.Context, id string) (*domain.Bill, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.bills[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *b
	return &c, nil
}

func (r *billRepo) GetByOrder(_ context.Context, orderID string) (*domain.Bill, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, b := range r.s.bills {
		if b.OrderID == orderID {
			c := *b
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *billRepo) Update(_ context.Context, bill *domain.Bill) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.bills[bill.ID]; !ok {
		return domain.ErrNotFound
	}
	c := *bill
	r.s.bills[bill.ID] = &c
	return nil
}

type subRepo struct{ s *state }

func (r *subRepo) Create(_ context.Context, sub *domain.WebhookSubscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *sub
	c.Events = append([]string(nil), sub.Events...)
	r.s.subs[sub.ID] = &c
	return nil
}

func (r *subRepo) Get(_ context.Context, id string) (*domain.WebhookSubscription, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sub, ok := r.s.subs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *sub
	c.Events = append([]string(nil), sub.Events...)
	return &c, nil
}

func (r *subRepo) List(_ context.Context) ([]*domain.WebhookSubscription, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.WebhookSubscription, 0, len(r.s.subs))
	for _, sub := range r.s.subs {
		c := *sub
		c.Events = append([]string(nil), sub.Events...)
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *subRepo) Update(_ context.Context, sub *domain.WebhookSubscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.subs[sub.ID]; !ok {
		return domain.ErrNotFound
	}
	c := *sub
	c.Events = append([]string(nil), sub.Events...)
	r.s.subs[sub.ID] = &c
	return nil
}

func (r *subRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.subs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.subs, id)
	return nil
}

type activityRepo struct{ s *state }

func (r *activityRepo) Create(_ context.Context, act *domain.Activity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *act
	r.s.activities = append(r.s.activities, &c)
	return nil
}

func (r *activityRepo) ListByOrder(_ context.Context, orderID string, limit int) ([]*domain.Activity, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*domain.Activity
	for i := len(r.s.activities) - 1; i >= 0; i-- {
		a := r.s.activities[i]
		if orderID != "" && a.OrderID != orderID {
			continue
		}
		c := *a
		out = append(out, &c)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
