// Package orders owns the Order aggregate: its invariants, the status state
// machine and every side effect a transition carries. All mutations emit
// events on the bus; webhook delivery and channel acks hang off those events,
// never off this package directly.
package orders

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/lucsky/cuid"
	"github.com/shopspring/decimal"

	"dinewire/internal/domain"
	"dinewire/internal/events"
	"dinewire/internal/logger"
	"dinewire/internal/repository"
)

type Service struct {
	store   *repository.Store
	bus     *events.Bus
	log     *logger.Logger
	taxRate decimal.Decimal
	parser  TextParser
	locks   keyedLocks
}

func NewService(store *repository.Store, bus *events.Bus, log *logger.Logger, taxRate float64) *Service {
	return &Service{
		store:   store,
		bus:     bus,
		log:     log.Named("orders"),
		taxRate: decimal.NewFromFloat(taxRate),
	}
}

// WithParser attaches the optional text-parsing collaborator. Parser
// failures always degrade to the rule-based matcher.
func (s *Service) WithParser(p TextParser) *Service {
	s.parser = p
	return s
}

type ItemInput struct {
	MenuItemID string
	Quantity   int
	Notes      string
}

type CreateInput struct {
	Table       *string
	Channel     domain.Channel
	ChannelAddr string
	Items       []ItemInput
	// TotalOverride is the legacy fallback for channels that send a total
	// but no items. Ignored when Items is non-empty.
	TotalOverride *decimal.Decimal
}

// Create builds a new pending order. Zero items is legal: an order may be
// created empty and populated later.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Order, error) {
	if in.Channel == "" {
		return nil, domain.Invalid("channel", "origin channel is required")
	}

	now := time.Now().UTC()
	order := &domain.Order{
		ID:            cuid.New(),
		TableNumber:   in.Table,
		Status:        domain.StatusPending,
		OriginChannel: in.Channel,
		ChannelAddr:   in.ChannelAddr,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	for _, it := range in.Items {
		frozen, err := s.freezeItem(ctx, order.ID, it)
		if err != nil {
			return nil, err
		}
		frozen.Position = len(order.Items)
		order.Items = append(order.Items, *frozen)
	}
	order.RecomputeTotal()
	if len(order.Items) == 0 && in.TotalOverride != nil {
		order.TotalAmount = *in.TotalOverride
	}

	num, err := s.store.Orders.NextNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("order sequence: %w", err)
	}
	order.OrderNumber = strconv.Itoa(num)

	if err := s.store.Orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("save order: %w", err)
	}

	s.log.Info("order_created", map[string]any{
		"order_number": order.OrderNumber, "channel": string(in.Channel), "items": len(order.Items),
	})
	s.emit(ctx, domain.EventOrderCreated, map[string]any{"order": order})
	return order, nil
}

// freezeItem resolves a menu reference into an order item with the price
// copied at add time. Later menu price changes never touch existing orders.
func (s *Service) freezeItem(ctx context.Context, orderID string, in ItemInput) (*domain.OrderItem, error) {
	if in.Quantity <= 0 {
		return nil, domain.Invalid("quantity", "must be a positive integer")
	}
	menuItem, err := s.store.MenuItems.Get(ctx, in.MenuItemID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Invalid("menu_item_id", "unknown menu item "+in.MenuItemID)
		}
		return nil, err
	}
	if !menuItem.Available {
		return nil, domain.Invalid("menu_item_id", menuItem.Name+" is not available")
	}
	return &domain.OrderItem{
		ID:         cuid.New(),
		OrderID:    orderID,
		MenuItemID: menuItem.ID,
		Name:       menuItem.Name,
		Quantity:   in.Quantity,
		UnitPrice:  menuItem.Price,
		Notes:      in.Notes,
	}, nil
}

// AddItem appends an item to an order that is still pending or preparing.
func (s *Service) AddItem(ctx context.Context, orderID string, in ItemInput) (*domain.Order, error) {
	unlock := s.locks.lock(orderID)
	defer unlock()

	order, err := s.store.Orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.StatusPending && order.Status != domain.StatusPreparing {
		return nil, domain.Invalid("status", "items can only be added while pending or preparing")
	}

	frozen, err := s.freezeItem(ctx, order.ID, in)
	if err != nil {
		return nil, err
	}
	frozen.Position = len(order.Items)
	if err := s.store.Orders.AddItem(ctx, frozen); err != nil {
		return nil, fmt.Errorf("add item: %w", err)
	}

	order.Items = append(order.Items, *frozen)
	order.RecomputeTotal()
	order.UpdatedAt = time.Now().UTC()
	if err := s.store.Orders.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("update total: %w", err)
	}

	// No previous_status here: the order did not change state, only contents.
	s.emit(ctx, domain.EventOrderUpdated, map[string]any{"order": order})
	return order, nil
}

// SetStatus advances an order exactly one step along the forward chain.
// Anything else fails with ErrInvalidTransition and leaves the order
// untouched.
func (s *Service) SetStatus(ctx context.Context, orderID string, newStatus domain.OrderStatus) (*domain.Order, error) {
	unlock := s.locks.lock(orderID)
	defer unlock()
	return s.setStatusLocked(ctx, orderID, newStatus)
}

func (s *Service) setStatusLocked(ctx context.Context, orderID string, newStatus domain.OrderStatus) (*domain.Order, error) {
	order, err := s.store.Orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	prev := order.Status
	if !domain.ValidStep(prev, newStatus, order.OriginChannel) {
		return nil, fmt.Errorf("%s -> %s: %w", prev, newStatus, domain.ErrInvalidTransition)
	}

	// Side effects run before the write so a failed effect leaves the order
	// exactly as it was.
	switch newStatus {
	case domain.StatusPreparing:
		if err := s.ensureKitchenToken(ctx, order); err != nil {
			return nil, err
		}
	case domain.StatusReady:
		if err := s.updateKitchenToken(ctx, order.ID, domain.TokenReady); err != nil {
			return nil, err
		}
	case domain.StatusCompleted, domain.StatusDelivered:
		if err := s.updateKitchenToken(ctx, order.ID, domain.TokenDone); err != nil {
			return nil, err
		}
	case domain.StatusBilled:
		bill, err := s.store.Bills.GetByOrder(ctx, order.ID)
		if err != nil || bill.PaymentStatus != domain.PaymentPaid {
			return nil, fmt.Errorf("order %s: %w", order.OrderNumber, domain.ErrPaymentRequired)
		}
	}

	order.Status = newStatus
	order.UpdatedAt = time.Now().UTC()
	if err := s.store.Orders.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}

	s.log.Info("order_status_changed", map[string]any{
		"order_number": order.OrderNumber, "from": string(prev), "to": string(newStatus),
	})
	s.emit(ctx, domain.EventOrderUpdated, map[string]any{
		"order": order, "previous_status": string(prev),
	})
	if newStatus == domain.StatusCompleted {
		s.emit(ctx, domain.EventOrderCompleted, map[string]any{"order": order})
	}
	return order, nil
}

// Advance walks the order forward one legal step at a time until it reaches
// target. It is the trusted helper the single-step rule carves out: each
// step is still validated individually.
func (s *Service) Advance(ctx context.Context, orderID string, target domain.OrderStatus) (*domain.Order, error) {
	unlock := s.locks.lock(orderID)
	defer unlock()

	order, err := s.store.Orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	for order.Status != target {
		next := domain.NextStatus(order.Status)
		if target == domain.StatusDelivered &&
			(order.Status == domain.StatusReady || order.Status == domain.StatusCompleted) {
			next = domain.StatusDelivered
		}
		if next == "" {
			return nil, fmt.Errorf("%s -> %s: %w", order.Status, target, domain.ErrInvalidTransition)
		}
		order, err = s.setStatusLocked(ctx, orderID, next)
		if err != nil {
			return nil, err
		}
	}
	return order, nil
}

// ensureKitchenToken creates the 1:1 preparation ticket if this is the first
// time the order enters the kitchen.
func (s *Service) ensureKitchenToken(ctx context.Context, order *domain.Order) error {
	_, err := s.store.KitchenTokens.GetByOrder(ctx, order.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	token := &domain.KitchenToken{
		ID:        cuid.New(),
		OrderID:   order.ID,
		Status:    domain.TokenPreparing,
		IsUrgent:  order.OriginChannel == domain.ChannelDelivery,
		StartTime: time.Now().UTC(),
	}
	if err := s.store.KitchenTokens.Create(ctx, token); err != nil {
		return fmt.Errorf("create kitchen token: %w", err)
	}
	s.emit(ctx, domain.EventKitchenTokenCreated, map[string]any{"kitchen_token": token})
	return nil
}

func (s *Service) updateKitchenToken(ctx context.Context, orderID string, status domain.KitchenTokenStatus) error {
	token, err := s.store.KitchenTokens.GetByOrder(ctx, orderID)
	if errors.Is(err, domain.ErrNotFound) {
		// Orders that skip the kitchen (delivery terminal from completed)
		// have nothing to mirror.
		return nil
	}
	if err != nil {
		return err
	}
	if token.Status == status {
		return nil
	}
	token.Status = status
	if err := s.store.KitchenTokens.Update(ctx, token); err != nil {
		return fmt.Errorf("update kitchen token: %w", err)
	}
	s.emit(ctx, domain.EventKitchenTokenUpdated, map[string]any{"kitchen_token": token})
	return nil
}

// Delete removes an order that has not gone past preparing. Deletion is a
// terminal removal, not a status.
func (s *Service) Delete(ctx context.Context, orderID string) error {
	unlock := s.locks.lock(orderID)
	defer unlock()

	order, err := s.store.Orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status != domain.StatusPending && order.Status != domain.StatusPreparing {
		return fmt.Errorf("order %s is %s: %w", order.OrderNumber, order.Status, domain.ErrOrderNotDeletable)
	}
	if err := s.store.Orders.Delete(ctx, orderID); err != nil {
		return err
	}

	s.log.Info("order_deleted", map[string]any{"order_number": order.OrderNumber})
	s.emit(ctx, domain.EventOrderDeleted, map[string]any{"order": order})
	return nil
}

// GenerateBill creates the single bill for a completed order. Totals are
// clamped at zero so an oversized discount never produces a negative bill.
func (s *Service) GenerateBill(ctx context.Context, orderID string, discount decimal.Decimal, paymentMethod string) (*domain.Bill, error) {
	unlock := s.locks.lock(orderID)
	defer unlock()

	order, err := s.store.Orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.StatusCompleted {
		return nil, domain.Invalid("status", "order must be completed before billing")
	}
	if discount.IsNegative() {
		return nil, domain.Invalid("discount", "must not be negative")
	}
	if existing, err := s.store.Bills.GetByOrder(ctx, orderID); err == nil {
		return nil, fmt.Errorf("bill %s: %w", existing.ID, domain.ErrBillAlreadyExists)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	subtotal := order.Subtotal()
	tax := subtotal.Mul(s.taxRate).Round(2)
	total := subtotal.Add(tax).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	bill := &domain.Bill{
		ID:            cuid.New(),
		OrderID:       orderID,
		Subtotal:      subtotal,
		Tax:           tax,
		Discount:      discount,
		Total:         total,
		PaymentStatus: domain.PaymentPending,
		PaymentMethod: paymentMethod,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.store.Bills.Create(ctx, bill); err != nil {
		return nil, fmt.Errorf("save bill: %w", err)
	}

	s.log.Info("bill_created", map[string]any{"order_number": order.OrderNumber, "total": total.String()})
	s.emit(ctx, domain.EventBillCreated, map[string]any{"bill": bill, "order": order})
	return bill, nil
}

// MarkBillPaid is idempotent: paying a paid bill returns it unchanged and
// emits nothing.
func (s *Service) MarkBillPaid(ctx context.Context, billID string) (*domain.Bill, error) {
	bill, err := s.store.Bills.Get(ctx, billID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(bill.OrderID)
	defer unlock()

	bill, err = s.store.Bills.Get(ctx, billID)
	if err != nil {
		return nil, err
	}
	if bill.PaymentStatus == domain.PaymentPaid {
		return bill, nil
	}

	bill.PaymentStatus = domain.PaymentPaid
	if err := s.store.Bills.Update(ctx, bill); err != nil {
		return nil, fmt.Errorf("update bill: %w", err)
	}

	s.log.Info("bill_paid", map[string]any{"bill_id": bill.ID})
	s.emit(ctx, domain.EventBillPaid, map[string]any{"bill": bill})
	return bill, nil
}

func (s *Service) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.store.Orders.Get(ctx, orderID)
}

// GetByRef resolves a human-facing reference: order number first, raw id as
// a fallback.
func (s *Service) GetByRef(ctx context.Context, ref string) (*domain.Order, error) {
	order, err := s.store.Orders.GetByNumber(ctx, ref)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return s.store.Orders.Get(ctx, ref)
}

func (s *Service) List(ctx context.Context) ([]*domain.Order, error) {
	return s.store.Orders.List(ctx)
}

func (s *Service) emit(ctx context.Context, name string, payload map[string]any) {
	s.bus.Publish(ctx, domain.NewEvent(name, payload))
}
