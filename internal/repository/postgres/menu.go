package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dinewire/internal/domain"
)

type MenuItemRepository struct {
	pool *pgxpool.Pool
}

func (r *MenuItemRepository) Create(ctx context.Context, item *domain.MenuItem) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO menu_items (id, name, price, category, available)
		VALUES ($1, $2, $3, $4, $5)`,
		item.ID, item.Name, item.Price, item.Category, item.Available,
	)
	if err != nil {
		return fmt.Errorf("insert menu item: %w", err)
	}
	return nil
}

func (r *MenuItemRepository) Get(ctx context.Context, id string) (*domain.MenuItem, error) {
	var m domain.MenuItem
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, price, category, available FROM menu_items WHERE id = $1`, id).
		Scan(&m.ID, &m.Name, &m.Price, &m.Category, &m.Available)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan menu item: %w", err)
	}
	return &m, nil
}

func (r *MenuItemRepository) List(ctx context.Context) ([]*domain.MenuItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, price, category, available FROM menu_items ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query menu items: %w", err)
	}
	defer rows.Close()

	var out []*domain.MenuItem
	for rows.Next() {
		var m domain.MenuItem
		if err := rows.Scan(&m.ID, &m.Name, &m.Price, &m.Category, &m.Available); err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (r *MenuItemRepository) Update(ctx context.Context, item *domain.MenuItem) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE menu_items SET name = $2, price = $3, category = $4, available = $5
		WHERE id = $1`,
		item.ID, item.Name, item.Price, item.Category, item.Available,
	)
	if err != nil {
		return fmt.Errorf("update menu item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
