// Package activity projects every bus event into the persistent audit
// trail, the way a tracking view follows a status feed.
package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/lucsky/cuid"

	"dinewire/internal/domain"
	"dinewire/internal/repository"
)

type Recorder struct {
	repo repository.ActivityRepository
}

func NewRecorder(repo repository.ActivityRepository) *Recorder {
	return &Recorder{repo: repo}
}

func (r *Recorder) Name() string { return "activity-log" }

func (r *Recorder) Handle(ctx context.Context, ev domain.Event) error {
	act := &domain.Activity{
		ID:        cuid.New(),
		OrderID:   orderIDFrom(ev.Payload),
		Action:    ev.Name,
		Detail:    ev.Payload,
		CreatedAt: ev.Timestamp,
	}
	if err := r.repo.Create(ctx, act); err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	return nil
}

// RecordFailure writes a delivery-failure line outside the event flow; the
// webhook workers call it after retries are exhausted.
func (r *Recorder) RecordFailure(ctx context.Context, orderID, action string, detail map[string]any) {
	_ = r.repo.Create(ctx, &domain.Activity{
		ID:        cuid.New(),
		OrderID:   orderID,
		Action:    action,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	})
}

func orderIDFrom(payload map[string]any) string {
	if payload == nil {
		return ""
	}
	if o, ok := payload["order"].(*domain.Order); ok {
		return o.ID
	}
	if t, ok := payload["kitchen_token"].(*domain.KitchenToken); ok {
		return t.OrderID
	}
	if b, ok := payload["bill"].(*domain.Bill); ok {
		return b.OrderID
	}
	return ""
}
