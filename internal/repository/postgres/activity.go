package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"dinewire/internal/domain"
)

type ActivityRepository struct {
	pool *pgxpool.Pool
}

func (r *ActivityRepository) Create(ctx context.Context, act *domain.Activity) error {
	detail, err := json.Marshal(act.Detail)
	if err != nil {
		return fmt.Errorf("marshal activity detail: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO activities (id, order_id, action, detail, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		act.ID, act.OrderID, act.Action, detail, act.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (r *ActivityRepository) ListByOrder(ctx context.Context, orderID string, limit int) ([]*domain.Activity, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, action, detail, created_at
		FROM activities
		WHERE ($1 = '' OR order_id = $1)
		ORDER BY created_at DESC
		LIMIT $2`, orderID, limit)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	var out []*domain.Activity
	for rows.Next() {
		var a domain.Activity
		var detail []byte
		if err := rows.Scan(&a.ID, &a.OrderID, &a.Action, &detail, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if len(detail) > 0 {
			_ = json.Unmarshal(detail, &a.Detail)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}
