// Package events is the in-process publish point. Every state mutation in
// the order aggregate flows through one Bus before it can reach the outside
// world.
package events

import (
	"context"
	"fmt"
	"sync"

	"dinewire/internal/domain"
	"dinewire/internal/logger"
)

// Subscriber receives every published event. Handle errors are logged and
// never propagate to the publisher or to other subscribers.
type Subscriber interface {
	Name() string
	Handle(ctx context.Context, ev domain.Event) error
}

type Bus struct {
	mu   sync.RWMutex
	subs []Subscriber
	log  *logger.Logger
}

func NewBus(log *logger.Logger) *Bus {
	return &Bus{log: log.Named("event-bus")}
}

// Subscribe appends a subscriber; delivery happens in registration order.
func (b *Bus) Subscribe(s Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, s)
}

// Publish delivers ev synchronously to every subscriber. A panicking or
// failing subscriber is isolated: the rest still get the event.
func (b *Bus) Publish(ctx context.Context, ev domain.Event) {
	b.mu.RLock()
	subs := make([]Subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		b.deliver(ctx, s, ev)
	}
}

func (b *Bus) deliver(ctx context.Context, s Subscriber, ev domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("subscriber_panic", fmt.Errorf("%v", r),
				map[string]any{"subscriber": s.Name(), "event": ev.Name})
		}
	}()
	if err := s.Handle(ctx, ev); err != nil {
		b.log.Error("subscriber_failed", err,
			map[string]any{"subscriber": s.Name(), "event": ev.Name, "delivery_id": ev.DeliveryID})
	}
}

// SubscriberFunc adapts a function to the Subscriber interface.
type SubscriberFunc struct {
	SubName string
	Fn      func(ctx context.Context, ev domain.Event) error
}

func (s SubscriberFunc) Name() string { return s.SubName }

func (s SubscriberFunc) Handle(ctx context.Context, ev domain.Event) error {
	return s.Fn(ctx, ev)
}
