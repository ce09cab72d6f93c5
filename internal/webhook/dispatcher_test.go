package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dinewire/internal/domain"
	"dinewire/internal/logger"
	"dinewire/internal/repository/memory"
)

type recordedRequest struct {
	body      []byte
	signature string
	event     string
	at        time.Time
}

// endpoint is a test receiver that can fail the first n attempts.
type endpoint struct {
	mu       sync.Mutex
	requests []recordedRequest
	failAll  bool
	srv      *httptest.Server
}

func newEndpoint() *endpoint {
	e := &endpoint{}
	e.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		e.mu.Lock()
		e.requests = append(e.requests, recordedRequest{
			body:      body,
			signature: r.Header.Get(headerSignature),
			event:     r.Header.Get(headerEvent),
			at:        time.Now(),
		})
		fail := e.failAll
		e.mu.Unlock()
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	return e
}

func (e *endpoint) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.requests)
}

func (e *endpoint) all() []recordedRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]recordedRequest, len(e.requests))
	copy(out, e.requests)
	return out
}

func newTestDispatcher(t *testing.T, cfg Config) (*Dispatcher, context.CancelFunc) {
	t.Helper()
	store := memory.NewStore()
	d := NewDispatcher(cfg, store.Subscriptions, nil, logger.New("test"))
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, d.Start(ctx))
	t.Cleanup(func() {
		cancel()
		d.Wait()
	})
	return d, cancel
}

func register(t *testing.T, d *Dispatcher, url string, eventNames ...string) *domain.WebhookSubscription {
	t.Helper()
	sub := &domain.WebhookSubscription{URL: url, Secret: "s3cret", Events: eventNames}
	require.NoError(t, d.Register(context.Background(), sub))
	return sub
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestDeliverySignedAndFiltered(t *testing.T) {
	e := newEndpoint()
	defer e.srv.Close()
	d, _ := newTestDispatcher(t, Config{BaseBackoff: 10 * time.Millisecond})
	sub := register(t, d, e.srv.URL, domain.EventOrderCreated)

	ev := domain.NewEvent(domain.EventOrderCreated, map[string]any{"order_number": "1001"})
	d.OnEvent(ev)
	waitFor(t, func() bool { return e.count() == 1 })

	req := e.all()[0]
	assert.Equal(t, domain.EventOrderCreated, req.event)
	assert.Equal(t, Sign(req.body, sub.Secret), req.signature)

	var body wireBody
	require.NoError(t, json.Unmarshal(req.body, &body))
	assert.Equal(t, domain.EventOrderCreated, body.Event)
	assert.Equal(t, sub.ID, body.WebhookID)
	assert.Equal(t, ev.DeliveryID, body.DeliveryID)

	// bill.paid is not in the subscription's event set
	d.OnEvent(domain.NewEvent(domain.EventBillPaid, nil))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, e.count(), "unsubscribed event must never be delivered")
}

func TestRetriesWithBackoffThenGivesUp(t *testing.T) {
	e := newEndpoint()
	e.failAll = true
	defer e.srv.Close()

	const maxAttempts = 4
	d, _ := newTestDispatcher(t, Config{MaxAttempts: maxAttempts, BaseBackoff: 20 * time.Millisecond})
	register(t, d, e.srv.URL, domain.EventOrderUpdated)

	ev := domain.NewEvent(domain.EventOrderUpdated, nil)
	d.OnEvent(ev)
	waitFor(t, func() bool { return e.count() == maxAttempts })

	time.Sleep(150 * time.Millisecond)
	require.Equal(t, maxAttempts, e.count(), "retries stop at the configured cap")

	reqs := e.all()
	var prevGap time.Duration
	for i := 1; i < len(reqs); i++ {
		gap := reqs[i].at.Sub(reqs[i-1].at)
		assert.Greater(t, gap, prevGap, "inter-attempt delay must strictly increase")
		prevGap = gap
	}

	// deliveryId stable across every retry
	for _, r := range reqs {
		var body wireBody
		require.NoError(t, json.Unmarshal(r.body, &body))
		assert.Equal(t, ev.DeliveryID, body.DeliveryID)
	}
}

func TestRemoveCancelsRetries(t *testing.T) {
	e := newEndpoint()
	e.failAll = true
	defer e.srv.Close()

	d, _ := newTestDispatcher(t, Config{MaxAttempts: 5, BaseBackoff: 100 * time.Millisecond})
	sub := register(t, d, e.srv.URL, domain.EventOrderUpdated)

	d.OnEvent(domain.NewEvent(domain.EventOrderUpdated, nil))
	waitFor(t, func() bool { return e.count() >= 1 })
	require.NoError(t, d.Remove(context.Background(), sub.ID))

	time.Sleep(400 * time.Millisecond)
	assert.LessOrEqual(t, e.count(), 2, "removal must stop further retries")
}

func TestTestTriggerBypassesEventFilter(t *testing.T) {
	e := newEndpoint()
	defer e.srv.Close()

	d, _ := newTestDispatcher(t, Config{})
	sub := register(t, d, e.srv.URL, domain.EventOrderCreated)

	payload := map[string]any{"note": "diagnostics"}
	err := d.TestTrigger(context.Background(), sub.ID, domain.EventBillPaid, payload)
	require.NoError(t, err)
	require.Equal(t, 1, e.count())

	var body wireBody
	require.NoError(t, json.Unmarshal(e.all()[0].body, &body))
	assert.Equal(t, domain.EventBillPaid, body.Event)
	assert.Equal(t, true, body.Payload["test"], "test deliveries must be flagged")
	assert.NotContains(t, payload, "test", "the caller's map must stay untouched")
}

type failureLog struct {
	mu      sync.Mutex
	actions []string
}

func (f *failureLog) RecordFailure(_ context.Context, _, action string, _ map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action)
}

func TestQueueFullDropIsRecorded(t *testing.T) {
	store := memory.NewStore()
	rec := &failureLog{}
	// no Start: with no workers draining, a 1-slot queue fills immediately
	d := NewDispatcher(Config{QueueSize: 1}, store.Subscriptions, rec, logger.New("test"))
	sub := &domain.WebhookSubscription{URL: "http://x.test/h", Secret: "s", Events: []string{domain.EventOrderCreated}}
	require.NoError(t, d.Register(context.Background(), sub))

	d.OnEvent(domain.NewEvent(domain.EventOrderCreated, nil))
	d.OnEvent(domain.NewEvent(domain.EventOrderCreated, nil))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.actions, 1)
	assert.Equal(t, "webhook.delivery_dropped", rec.actions[0])
}

func TestTestTriggerUnknownSubscription(t *testing.T) {
	d, _ := newTestDispatcher(t, Config{})
	err := d.TestTrigger(context.Background(), "missing", "", nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRegisterValidation(t *testing.T) {
	d, _ := newTestDispatcher(t, Config{})
	ctx := context.Background()

	cases := []struct {
		name string
		sub  domain.WebhookSubscription
	}{
		{"missing url", domain.WebhookSubscription{Secret: "s", Events: []string{domain.EventOrderCreated}}},
		{"relative url", domain.WebhookSubscription{URL: "/hook", Secret: "s", Events: []string{domain.EventOrderCreated}}},
		{"missing secret", domain.WebhookSubscription{URL: "http://x.test/h", Events: []string{domain.EventOrderCreated}}},
		{"no events", domain.WebhookSubscription{URL: "http://x.test/h", Secret: "s"}},
		{"unknown event", domain.WebhookSubscription{URL: "http://x.test/h", Secret: "s", Events: []string{"order.exploded"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sub := tc.sub
			assert.True(t, domain.IsValidation(d.Register(ctx, &sub)))
		})
	}
}

func TestSubscriptionsSurviveRestart(t *testing.T) {
	store := memory.NewStore()
	log := logger.New("test")

	d1 := NewDispatcher(Config{}, store.Subscriptions, nil, log)
	ctx1, cancel1 := context.WithCancel(context.Background())
	require.NoError(t, d1.Start(ctx1))
	sub := &domain.WebhookSubscription{URL: "http://x.test/h", Secret: "s", Events: []string{domain.EventOrderCreated}}
	require.NoError(t, d1.Register(context.Background(), sub))
	cancel1()
	d1.Wait()

	d2 := NewDispatcher(Config{}, store.Subscriptions, nil, log)
	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel2()
	require.NoError(t, d2.Start(ctx2))
	got, err := d2.Get(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.URL, got.URL)
}
