package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dinewire/internal/domain"
)

type KitchenTokenRepository struct {
	pool *pgxpool.Pool
}

func (r *KitchenTokenRepository) Create(ctx context.Context, token *domain.KitchenToken) error {
	// order_id is unique, so a concurrent double-create surfaces as an error
	// instead of a second token.
	_, err := r.pool.Exec(ctx, `
		INSERT INTO kitchen_tokens (id, order_id, status, is_urgent, start_time)
		VALUES ($1, $2, $3, $4, $5)`,
		token.ID, token.OrderID, token.Status, token.IsUrgent, token.StartTime,
	)
	if err != nil {
		return fmt.Errorf("insert kitchen token: %w", err)
	}
	return nil
}

func (r *KitchenTokenRepository) GetByOrder(ctx context.Context, orderID string) (*domain.KitchenToken, error) {
	var t domain.KitchenToken
	err := r.pool.QueryRow(ctx, `
		SELECT id, order_id, status, is_urgent, start_time FROM kitchen_tokens WHERE order_id = $1`, orderID).
		Scan(&t.ID, &t.OrderID, &t.Status, &t.IsUrgent, &t.StartTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan kitchen token: %w", err)
	}
	return &t, nil
}

func (r *KitchenTokenRepository) Update(ctx context.Context, token *domain.KitchenToken) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE kitchen_tokens SET status = $2, is_urgent = $3 WHERE order_id = $1`,
		token.OrderID, token.Status, token.IsUrgent,
	)
	if err != nil {
		return fmt.Errorf("update kitchen token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *KitchenTokenRepository) DeleteByOrder(ctx context.Context, orderID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM kitchen_tokens WHERE order_id = $1`, orderID)
	if err != nil {
		return fmt.Errorf("delete kitchen token: %w", err)
	}
	return nil
}
