// Package webhook notifies external automation subscribers of domain
// events: registry, HMAC signing, asynchronous delivery with retries.
package webhook

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/lucsky/cuid"

	"dinewire/internal/domain"
	"dinewire/internal/logger"
	"dinewire/internal/repository"
)

type Config struct {
	MaxAttempts    int
	BaseBackoff    time.Duration
	AttemptTimeout time.Duration
	Workers        int
	QueueSize      int
}

// FailureRecorder lands exhausted deliveries in the audit trail.
type FailureRecorder interface {
	RecordFailure(ctx context.Context, orderID, action string, detail map[string]any)
}

type Dispatcher struct {
	cfg      Config
	repo     repository.SubscriptionRepository
	client   *http.Client
	log      *logger.Logger
	failures FailureRecorder

	mu   sync.RWMutex // registry is read-heavy, write-rarely
	subs map[string]*domain.WebhookSubscription

	queue chan delivery
	wg    sync.WaitGroup
}

type delivery struct {
	sub domain.WebhookSubscription // snapshot at enqueue time
	ev  domain.Event
}

func NewDispatcher(cfg Config, repo repository.SubscriptionRepository, failures FailureRecorder, log *logger.Logger) *Dispatcher {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = time.Second
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 10 * time.Second
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	return &Dispatcher{
		cfg:      cfg,
		repo:     repo,
		client:   &http.Client{Timeout: cfg.AttemptTimeout},
		log:      log.Named("webhook-dispatcher"),
		failures: failures,
		subs:     make(map[string]*domain.WebhookSubscription),
		queue:    make(chan delivery, cfg.QueueSize),
	}
}

// Start loads persisted subscriptions and spins up the delivery workers.
// Workers drain until ctx is canceled.
func (d *Dispatcher) Start(ctx context.Context) error {
	subs, err := d.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("load subscriptions: %w", err)
	}
	d.mu.Lock()
	for _, s := range subs {
		d.subs[s.ID] = s
	}
	d.mu.Unlock()

	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx)
	}
	d.log.Info("dispatcher_started", map[string]any{"subscriptions": len(subs), "workers": d.cfg.Workers})
	return nil
}

// Wait blocks until every worker has drained after cancellation.
func (d *Dispatcher) Wait() { d.wg.Wait() }

// Register validates and stores a subscription. The id is minted here when
// absent.
func (d *Dispatcher) Register(ctx context.Context, sub *domain.WebhookSubscription) error {
	if sub.URL == "" {
		return domain.Invalid("url", "target URL is required")
	}
	if u, err := url.Parse(sub.URL); err != nil || u.Scheme == "" || u.Host == "" {
		return domain.Invalid("url", "target URL must be absolute")
	}
	if sub.Secret == "" {
		return domain.Invalid("secret", "shared secret is required")
	}
	if len(sub.Events) == 0 {
		return domain.Invalid("events", "at least one event name is required")
	}
	for _, e := range sub.Events {
		if !domain.KnownEvent(e) {
			return domain.Invalid("events", "unknown event "+e)
		}
	}
	if sub.ID == "" {
		sub.ID = cuid.New()
	}
	sub.Active = true

	if err := d.repo.Create(ctx, sub); err != nil {
		return fmt.Errorf("persist subscription: %w", err)
	}
	d.mu.Lock()
	d.subs[sub.ID] = sub
	d.mu.Unlock()

	d.log.Info("subscription_registered", map[string]any{"id": sub.ID, "url": sub.URL, "events": sub.Events})
	return nil
}

// Remove drops a subscription. In-flight retries for it stop after their
// current attempt.
func (d *Dispatcher) Remove(ctx context.Context, id string) error {
	d.mu.Lock()
	_, ok := d.subs[id]
	delete(d.subs, id)
	d.mu.Unlock()
	if !ok {
		return domain.ErrNotFound
	}
	if err := d.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	d.log.Info("subscription_removed", map[string]any{"id": id})
	return nil
}

func (d *Dispatcher) List() []*domain.WebhookSubscription {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*domain.WebhookSubscription, 0, len(d.subs))
	for _, s := range d.subs {
		c := *s
		out = append(out, &c)
	}
	return out
}

func (d *Dispatcher) Get(id string) (*domain.WebhookSubscription, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.subs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *s
	return &c, nil
}

// active reports whether the subscription still exists and is active; the
// workers consult it between attempts so removals cancel retries.
func (d *Dispatcher) active(id string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.subs[id]
	return ok && s.Active
}

// OnEvent fans the event out to every matching subscription. Enqueue only:
// the bus publish call never waits on subscriber I/O.
func (d *Dispatcher) OnEvent(ev domain.Event) {
	d.mu.RLock()
	matches := make([]domain.WebhookSubscription, 0)
	for _, s := range d.subs {
		if s.Wants(ev.Name) {
			matches = append(matches, *s)
		}
	}
	d.mu.RUnlock()

	for _, sub := range matches {
		select {
		case d.queue <- delivery{sub: sub, ev: ev}:
		default:
			d.log.Error("delivery_queue_full", domain.ErrDeliveryFailure,
				map[string]any{"subscription": sub.ID, "event": ev.Name, "delivery_id": ev.DeliveryID})
			if d.failures != nil {
				d.failures.RecordFailure(context.Background(), orderIDFromPayload(ev.Payload), "webhook.delivery_dropped", map[string]any{
					"subscription": sub.ID,
					"event":        ev.Name,
					"delivery_id":  ev.DeliveryID,
					"url":          sub.URL,
				})
			}
		}
	}
}

// Name and Handle make the dispatcher a bus subscriber.
func (d *Dispatcher) Name() string { return "webhook-dispatcher" }

func (d *Dispatcher) Handle(_ context.Context, ev domain.Event) error {
	d.OnEvent(ev)
	return nil
}

// TestTrigger delivers one synthetic event to a single subscription,
// bypassing its event filter. The payload is flagged so receivers cannot
// mistake it for a real domain event. One attempt, synchronous, for
// diagnostics.
func (d *Dispatcher) TestTrigger(ctx context.Context, subscriptionID, eventName string, payload map[string]any) error {
	sub, err := d.Get(subscriptionID)
	if err != nil {
		return err
	}
	if eventName == "" {
		eventName = domain.EventOrderUpdated
	}
	p := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		p[k] = v
	}
	p["test"] = true

	ev := domain.NewEvent(eventName, p)
	if err := d.attempt(ctx, *sub, ev); err != nil {
		return fmt.Errorf("test delivery to %s: %w", sub.URL, err)
	}
	return nil
}
