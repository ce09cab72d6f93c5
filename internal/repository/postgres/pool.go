// Package postgres implements the repository contracts on pgx.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"dinewire/internal/repository"
)

// Connect opens a pgx pool, retrying until the database answers a ping or
// the attempts run out.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	const (
		maxRetries = 10
		retryDelay = 2 * time.Second
		pingTTL    = 5 * time.Second
	)

	var lastErr error
	for i := 1; i <= maxRetries; i++ {
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			lastErr = err
		} else {
			pctx, cancel := context.WithTimeout(ctx, pingTTL)
			err = pool.Ping(pctx)
			cancel()
			if err == nil {
				return pool, nil
			}
			lastErr = err
			pool.Close()
		}

		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
			return nil, fmt.Errorf("db connect canceled: %w", ctx.Err())
		}
	}
	return nil, fmt.Errorf("database unreachable after %d attempts: %w", maxRetries, lastErr)
}

// NewStore wires every repository onto one pool.
func NewStore(pool *pgxpool.Pool) *repository.Store {
	return &repository.Store{
		Orders:        &OrderRepository{pool: pool},
		MenuItems:     &MenuItemRepository{pool: pool},
		KitchenTokens: &KitchenTokenRepository{pool: pool},
		Bills:         &BillRepository{pool: pool},
		Subscriptions: &SubscriptionRepository{pool: pool},
		Activities:    &ActivityRepository{pool: pool},
	}
}
