package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dinewire/internal/domain"
)

type OrderRepository struct {
	pool *pgxpool.Pool
}

// Create inserts the order and its items in one transaction so a partial
// order can never be observed.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO orders
			(id, order_number, table_number, status, total_amount, origin_channel, channel_address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		order.ID, order.OrderNumber, order.TableNumber, order.Status,
		order.TotalAmount, order.OriginChannel, order.ChannelAddr,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, it := range order.Items {
		if err := insertItem(ctx, tx, &it); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insertItem(ctx context.Context, tx pgx.Tx, it *domain.OrderItem) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO order_items (id, order_id, menu_item_id, name, quantity, unit_price, notes, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		it.ID, it.OrderID, it.MenuItemID, it.Name, it.Quantity, it.UnitPrice, it.Notes, it.Position,
	)
	if err != nil {
		return fmt.Errorf("insert order item %s: %w", it.Name, err)
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	return r.getOne(ctx, `WHERE order_number = $1`, number)
}

func (r *OrderRepository) getOne(ctx context.Context, where string, arg any) (*domain.Order, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, order_number, table_number, status, total_amount, origin_channel, channel_address, created_at, updated_at
		FROM orders `+where, arg)

	var o domain.Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.TableNumber, &o.Status,
		&o.TotalAmount, &o.OriginChannel, &o.ChannelAddr, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}
	if err := r.loadItems(ctx, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, o *domain.Order) error {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, menu_item_id, name, quantity, unit_price, notes, position
		FROM order_items WHERE order_id = $1 ORDER BY position`, o.ID)
	if err != nil {
		return fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.Name,
			&it.Quantity, &it.UnitPrice, &it.Notes, &it.Position); err != nil {
			return fmt.Errorf("scan item: %w", err)
		}
		o.Items = append(o.Items, it)
	}
	return rows.Err()
}

func (r *OrderRepository) List(ctx context.Context) ([]*domain.Order, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_number, table_number, status, total_amount, origin_channel, channel_address, created_at, updated_at
		FROM orders ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var out []*domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.OrderNumber, &o.TableNumber, &o.Status,
			&o.TotalAmount, &o.OriginChannel, &o.ChannelAddr, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, o := range out {
		if err := r.loadItems(ctx, o); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *OrderRepository) Update(ctx context.Context, order *domain.Order) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE orders SET status = $2, total_amount = $3, table_number = $4, updated_at = $5
		WHERE id = $1`,
		order.ID, order.Status, order.TotalAmount, order.TableNumber, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) AddItem(ctx context.Context, item *domain.OrderItem) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO order_items (id, order_id, menu_item_id, name, quantity, unit_price, notes, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		item.ID, item.OrderID, item.MenuItemID, item.Name, item.Quantity, item.UnitPrice, item.Notes, item.Position,
	)
	if err != nil {
		return fmt.Errorf("insert order item: %w", err)
	}
	return nil
}

func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, id); err != nil {
		return fmt.Errorf("delete items: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM kitchen_tokens WHERE order_id = $1`, id); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return tx.Commit(ctx)
}

func (r *OrderRepository) NextNumber(ctx context.Context) (int, error) {
	var next int
	err := r.pool.QueryRow(ctx,
		`SELECT nextval('order_number_seq')`).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next order number: %w", err)
	}
	return next, nil
}
