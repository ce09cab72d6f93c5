package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"dinewire/internal/domain"
	"dinewire/internal/logger"
)

func TestPublishDeliversInRegistrationOrder(t *testing.T) {
	bus := NewBus(logger.New("test"))
	var got []string
	for _, name := range []string{"first", "second", "third"} {
		name := name
		bus.Subscribe(SubscriberFunc{SubName: name, Fn: func(context.Context, domain.Event) error {
			got = append(got, name)
			return nil
		}})
	}

	bus.Publish(context.Background(), domain.NewEvent(domain.EventOrderCreated, nil))

	assert.Equal(t, []string{"first", "second", "third"}, got)
}

func TestPublishIsolatesFailingSubscriber(t *testing.T) {
	bus := NewBus(logger.New("test"))
	var reached bool
	bus.Subscribe(SubscriberFunc{SubName: "boom", Fn: func(context.Context, domain.Event) error {
		return errors.New("boom")
	}})
	bus.Subscribe(SubscriberFunc{SubName: "panics", Fn: func(context.Context, domain.Event) error {
		panic("subscriber bug")
	}})
	bus.Subscribe(SubscriberFunc{SubName: "after", Fn: func(context.Context, domain.Event) error {
		reached = true
		return nil
	}})

	bus.Publish(context.Background(), domain.NewEvent(domain.EventOrderUpdated, nil))

	assert.True(t, reached, "subscriber after a failure must still receive the event")
}

func TestEventDeliveryIDStablePerEvent(t *testing.T) {
	ev := domain.NewEvent(domain.EventBillPaid, map[string]any{"bill_id": "b1"})
	assert.NotEmpty(t, ev.DeliveryID)

	other := domain.NewEvent(domain.EventBillPaid, map[string]any{"bill_id": "b1"})
	assert.NotEqual(t, ev.DeliveryID, other.DeliveryID)
}
