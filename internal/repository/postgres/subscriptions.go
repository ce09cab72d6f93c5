package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dinewire/internal/domain"
)

type SubscriptionRepository struct {
	pool *pgxpool.Pool
}

func (r *SubscriptionRepository) Create(ctx context.Context, sub *domain.WebhookSubscription) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO webhook_subscriptions (id, url, secret, events, active)
		VALUES ($1, $2, $3, $4, $5)`,
		sub.ID, sub.URL, sub.Secret, sub.Events, sub.Active,
	)
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

func (r *SubscriptionRepository) Get(ctx context.Context, id string) (*domain.WebhookSubscription, error) {
	var s domain.WebhookSubscription
	err := r.pool.QueryRow(ctx, `
		SELECT id, url, secret, events, active FROM webhook_subscriptions WHERE id = $1`, id).
		Scan(&s.ID, &s.URL, &s.Secret, &s.Events, &s.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan subscription: %w", err)
	}
	return &s, nil
}

func (r *SubscriptionRepository) List(ctx context.Context) ([]*domain.WebhookSubscription, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, url, secret, events, active FROM webhook_subscriptions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer rows.Close()

	var out []*domain.WebhookSubscription
	for rows.Next() {
		var s domain.WebhookSubscription
		if err := rows.Scan(&s.ID, &s.URL, &s.Secret, &s.Events, &s.Active); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (r *SubscriptionRepository) Update(ctx context.Context, sub *domain.WebhookSubscription) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE webhook_subscriptions SET url = $2, secret = $3, events = $4, active = $5
		WHERE id = $1`,
		sub.ID, sub.URL, sub.Secret, sub.Events, sub.Active,
	)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *SubscriptionRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM webhook_subscriptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
