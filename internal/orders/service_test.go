package orders

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dinewire/internal/domain"
	"dinewire/internal/events"
	"dinewire/internal/logger"
	"dinewire/internal/repository"
	"dinewire/internal/repository/memory"
)

// capture records every published event for assertions.
type capture struct {
	mu     sync.Mutex
	events []domain.Event
}

func (c *capture) Name() string { return "capture" }

func (c *capture) Handle(_ context.Context, ev domain.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *capture) named(name string) []domain.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.Event
	for _, ev := range c.events {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

func (c *capture) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}

func newTestService(t *testing.T) (*Service, *repository.Store, *capture) {
	t.Helper()
	store := memory.NewStore()
	cap := &capture{}
	bus := events.NewBus(logger.New("test"))
	bus.Subscribe(cap)
	return NewService(store, bus, logger.New("test"), 0.10), store, cap
}

func seedMenu(t *testing.T, store *repository.Store) (butterChicken, naan domain.MenuItem) {
	t.Helper()
	ctx := context.Background()
	butterChicken = domain.MenuItem{ID: "m1", Name: "Butter Chicken", Price: decimal.NewFromInt(12), Available: true}
	naan = domain.MenuItem{ID: "m2", Name: "Naan", Price: decimal.NewFromInt(3), Available: true}
	require.NoError(t, store.MenuItems.Create(ctx, &butterChicken))
	require.NoError(t, store.MenuItems.Create(ctx, &naan))
	return
}

func createOrder(t *testing.T, svc *Service, items ...ItemInput) *domain.Order {
	t.Helper()
	table := "5"
	order, err := svc.Create(context.Background(), CreateInput{
		Table:   &table,
		Channel: domain.ChannelUI,
		Items:   items,
	})
	require.NoError(t, err)
	return order
}

func TestCreateComputesTotalAndEmits(t *testing.T) {
	svc, store, cap := newTestService(t)
	seedMenu(t, store)

	order := createOrder(t, svc,
		ItemInput{MenuItemID: "m1", Quantity: 2},
		ItemInput{MenuItemID: "m2", Quantity: 3},
	)

	assert.Equal(t, domain.StatusPending, order.Status)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(33)), "2*12 + 3*3 = 33, got %s", order.TotalAmount)
	assert.Len(t, cap.named(domain.EventOrderCreated), 1)

	// No kitchen token at creation time: the ticket appears on the
	// pending -> preparing transition.
	_, err := store.KitchenTokens.GetByOrder(context.Background(), order.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateEmptyOrderIsLegal(t *testing.T) {
	svc, _, _ := newTestService(t)
	order := createOrder(t, svc)
	assert.Empty(t, order.Items)
	assert.True(t, order.TotalAmount.IsZero())
}

func TestCreateRejectsNonPositiveQuantity(t *testing.T) {
	svc, store, _ := newTestService(t)
	seedMenu(t, store)

	_, err := svc.Create(context.Background(), CreateInput{
		Channel: domain.ChannelUI,
		Items:   []ItemInput{{MenuItemID: "m1", Quantity: 0}},
	})
	assert.True(t, domain.IsValidation(err))
}

func TestForwardAdjacentTransitions(t *testing.T) {
	pairs := []struct{ from, to domain.OrderStatus }{
		{domain.StatusPending, domain.StatusPreparing},
		{domain.StatusPreparing, domain.StatusReady},
		{domain.StatusReady, domain.StatusCompleted},
	}
	for _, p := range pairs {
		t.Run(string(p.from)+"_to_"+string(p.to), func(t *testing.T) {
			svc, _, cap := newTestService(t)
			order := createOrder(t, svc)
			_, err := svc.Advance(context.Background(), order.ID, p.from)
			require.NoError(t, err)
			cap.reset()

			updated, err := svc.SetStatus(context.Background(), order.ID, p.to)
			require.NoError(t, err)
			assert.Equal(t, p.to, updated.Status)

			evs := cap.named(domain.EventOrderUpdated)
			require.Len(t, evs, 1)
			assert.Equal(t, string(p.from), evs[0].Payload["previous_status"])
		})
	}
}

func TestNonAdjacentTransitionsFail(t *testing.T) {
	pairs := []struct{ from, to domain.OrderStatus }{
		{domain.StatusPending, domain.StatusReady},      // skip
		{domain.StatusPending, domain.StatusCompleted},  // skip
		{domain.StatusReady, domain.StatusPending},      // backward
		{domain.StatusCompleted, domain.StatusPending},  // backward
		{domain.StatusPreparing, domain.StatusPending},  // backward
		{domain.StatusPreparing, domain.StatusPreparing}, // same
	}
	for _, p := range pairs {
		t.Run(string(p.from)+"_to_"+string(p.to), func(t *testing.T) {
			svc, _, cap := newTestService(t)
			order := createOrder(t, svc)
			_, err := svc.Advance(context.Background(), order.ID, p.from)
			require.NoError(t, err)
			cap.reset()

			_, err = svc.SetStatus(context.Background(), order.ID, p.to)
			assert.ErrorIs(t, err, domain.ErrInvalidTransition)
			assert.Empty(t, cap.events, "failed transition must emit nothing")

			after, err := svc.Get(context.Background(), order.ID)
			require.NoError(t, err)
			assert.Equal(t, p.from, after.Status, "failed transition must not change state")
		})
	}
}

func TestKitchenTokenCreatedOnPreparing(t *testing.T) {
	svc, store, cap := newTestService(t)
	order := createOrder(t, svc)

	_, err := svc.SetStatus(context.Background(), order.ID, domain.StatusPreparing)
	require.NoError(t, err)

	token, err := store.KitchenTokens.GetByOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TokenPreparing, token.Status)
	assert.Len(t, cap.named(domain.EventKitchenTokenCreated), 1)

	// ready mirrors onto the token
	_, err = svc.SetStatus(context.Background(), order.ID, domain.StatusReady)
	require.NoError(t, err)
	token, err = store.KitchenTokens.GetByOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TokenReady, token.Status)
	assert.Len(t, cap.named(domain.EventKitchenTokenUpdated), 1)
}

func TestCompletedEmitsOrderCompleted(t *testing.T) {
	svc, _, cap := newTestService(t)
	order := createOrder(t, svc)

	_, err := svc.Advance(context.Background(), order.ID, domain.StatusCompleted)
	require.NoError(t, err)
	assert.Len(t, cap.named(domain.EventOrderCompleted), 1)
}

func TestBilledRequiresPaidBill(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	order := createOrder(t, svc)
	_, err := svc.Advance(ctx, order.ID, domain.StatusCompleted)
	require.NoError(t, err)

	_, err = svc.SetStatus(ctx, order.ID, domain.StatusBilled)
	assert.ErrorIs(t, err, domain.ErrPaymentRequired)

	bill, err := svc.GenerateBill(ctx, order.ID, decimal.Zero, "card")
	require.NoError(t, err)
	_, err = svc.SetStatus(ctx, order.ID, domain.StatusBilled)
	assert.ErrorIs(t, err, domain.ErrPaymentRequired, "pending bill is not enough")

	_, err = svc.MarkBillPaid(ctx, bill.ID)
	require.NoError(t, err)
	updated, err := svc.SetStatus(ctx, order.ID, domain.StatusBilled)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusBilled, updated.Status)
}

func TestDeliveredTerminalForDeliveryChannel(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	order, err := svc.Create(ctx, CreateInput{Channel: domain.ChannelDelivery})
	require.NoError(t, err)
	_, err = svc.Advance(ctx, order.ID, domain.StatusReady)
	require.NoError(t, err)

	updated, err := svc.SetStatus(ctx, order.ID, domain.StatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, updated.Status)

	// delivered never feeds back into billed
	_, err = svc.SetStatus(ctx, order.ID, domain.StatusBilled)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestDeliveredRejectedForDineInChannel(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	order := createOrder(t, svc)
	_, err := svc.Advance(ctx, order.ID, domain.StatusReady)
	require.NoError(t, err)

	_, err = svc.SetStatus(ctx, order.ID, domain.StatusDelivered)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestDeleteOnlyWhilePendingOrPreparing(t *testing.T) {
	svc, _, cap := newTestService(t)
	ctx := context.Background()

	order := createOrder(t, svc)
	require.NoError(t, svc.Delete(ctx, order.ID))
	assert.Len(t, cap.named(domain.EventOrderDeleted), 1)
	_, err := svc.Get(ctx, order.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	done := createOrder(t, svc)
	_, err = svc.Advance(ctx, done.ID, domain.StatusReady)
	require.NoError(t, err)
	err = svc.Delete(ctx, done.ID)
	assert.ErrorIs(t, err, domain.ErrOrderNotDeletable)
}

func TestGenerateBillTwiceFails(t *testing.T) {
	svc, store, _ := newTestService(t)
	seedMenu(t, store)
	ctx := context.Background()

	order := createOrder(t, svc, ItemInput{MenuItemID: "m1", Quantity: 2})
	_, err := svc.Advance(ctx, order.ID, domain.StatusCompleted)
	require.NoError(t, err)

	first, err := svc.GenerateBill(ctx, order.ID, decimal.Zero, "cash")
	require.NoError(t, err)
	// subtotal 24, tax 2.40, total 26.40
	assert.True(t, first.Total.Equal(decimal.RequireFromString("26.4")), "got %s", first.Total)

	_, err = svc.GenerateBill(ctx, order.ID, decimal.Zero, "cash")
	assert.ErrorIs(t, err, domain.ErrBillAlreadyExists)

	again, err := store.Bills.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, again.Total.Equal(first.Total), "total must never be recomputed")
}

func TestGenerateBillRequiresCompleted(t *testing.T) {
	svc, _, _ := newTestService(t)
	order := createOrder(t, svc)
	_, err := svc.GenerateBill(context.Background(), order.ID, decimal.Zero, "cash")
	assert.True(t, domain.IsValidation(err))
}

func TestGenerateBillClampsTotalAtZero(t *testing.T) {
	svc, store, _ := newTestService(t)
	seedMenu(t, store)
	ctx := context.Background()

	order := createOrder(t, svc, ItemInput{MenuItemID: "m2", Quantity: 1}) // 3.00
	_, err := svc.Advance(ctx, order.ID, domain.StatusCompleted)
	require.NoError(t, err)

	bill, err := svc.GenerateBill(ctx, order.ID, decimal.NewFromInt(100), "voucher")
	require.NoError(t, err)
	assert.True(t, bill.Total.IsZero())
}

func TestMarkBillPaidIdempotent(t *testing.T) {
	svc, store, cap := newTestService(t)
	seedMenu(t, store)
	ctx := context.Background()

	order := createOrder(t, svc, ItemInput{MenuItemID: "m1", Quantity: 1})
	_, err := svc.Advance(ctx, order.ID, domain.StatusCompleted)
	require.NoError(t, err)
	bill, err := svc.GenerateBill(ctx, order.ID, decimal.Zero, "card")
	require.NoError(t, err)

	paid, err := svc.MarkBillPaid(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, paid.PaymentStatus)

	paidAgain, err := svc.MarkBillPaid(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, paid.ID, paidAgain.ID)
	assert.Equal(t, domain.PaymentPaid, paidAgain.PaymentStatus)
	assert.Len(t, cap.named(domain.EventBillPaid), 1, "second pay must not emit again")
}

func TestAddItemFreezesPrice(t *testing.T) {
	svc, store, _ := newTestService(t)
	bc, _ := seedMenu(t, store)
	ctx := context.Background()

	order := createOrder(t, svc)
	updated, err := svc.AddItem(ctx, order.ID, ItemInput{MenuItemID: bc.ID, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)
	assert.True(t, updated.Items[0].UnitPrice.Equal(decimal.NewFromInt(12)))
	assert.True(t, updated.TotalAmount.Equal(decimal.NewFromInt(24)))

	// menu price change never touches the frozen copy
	bc.Price = decimal.NewFromInt(99)
	require.NoError(t, store.MenuItems.Update(ctx, &bc))
	after, err := svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, after.Items[0].UnitPrice.Equal(decimal.NewFromInt(12)))
}

func TestAddItemEventCarriesNoPreviousStatus(t *testing.T) {
	svc, store, cap := newTestService(t)
	bc, _ := seedMenu(t, store)

	order := createOrder(t, svc)
	cap.reset()
	_, err := svc.AddItem(context.Background(), order.ID, ItemInput{MenuItemID: bc.ID, Quantity: 1})
	require.NoError(t, err)

	evs := cap.named(domain.EventOrderUpdated)
	require.Len(t, evs, 1)
	assert.NotContains(t, evs[0].Payload, "previous_status",
		"a content mutation is not a status change")
}

func TestItemInsertionOrderPreserved(t *testing.T) {
	svc, store, _ := newTestService(t)
	bc, naan := seedMenu(t, store)
	ctx := context.Background()

	order := createOrder(t, svc,
		ItemInput{MenuItemID: bc.ID, Quantity: 1},
		ItemInput{MenuItemID: naan.ID, Quantity: 2},
	)
	_, err := svc.AddItem(ctx, order.ID, ItemInput{MenuItemID: bc.ID, Quantity: 3})
	require.NoError(t, err)

	got, err := svc.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 3)
	for i, it := range got.Items {
		assert.Equal(t, i, it.Position)
	}
	assert.Equal(t, "Butter Chicken", got.Items[0].Name)
	assert.Equal(t, "Naan", got.Items[1].Name)
	assert.Equal(t, "Butter Chicken", got.Items[2].Name)
}

func TestOrderNumbersNeverReissued(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	first := createOrder(t, svc)
	second := createOrder(t, svc)
	assert.Equal(t, "1001", first.OrderNumber)
	assert.Equal(t, "1002", second.OrderNumber)

	require.NoError(t, svc.Delete(ctx, first.ID))

	// a deleted order's number must not come back
	third := createOrder(t, svc)
	assert.Equal(t, "1003", third.OrderNumber)

	got, err := svc.GetByRef(ctx, "1002")
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
}

func TestAddItemRejectedAfterReady(t *testing.T) {
	svc, store, _ := newTestService(t)
	bc, _ := seedMenu(t, store)
	ctx := context.Background()

	order := createOrder(t, svc)
	_, err := svc.Advance(ctx, order.ID, domain.StatusReady)
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, order.ID, ItemInput{MenuItemID: bc.ID, Quantity: 1})
	assert.True(t, domain.IsValidation(err))
}

func TestConcurrentAdvanceSingleWinner(t *testing.T) {
	svc, _, cap := newTestService(t)
	order := createOrder(t, svc)
	cap.reset()

	const n = 100
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SetStatus(context.Background(), order.ID, domain.StatusPreparing)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, invalid int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrInvalidTransition):
			invalid++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok, "exactly one transition must win")
	assert.Equal(t, n-1, invalid)

	after, err := svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPreparing, after.Status)
	assert.Len(t, cap.named(domain.EventOrderUpdated), 1)
}

func TestNotFoundErrors(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SetStatus(ctx, "missing", domain.StatusPreparing)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	err = svc.Delete(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.MarkBillPaid(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
