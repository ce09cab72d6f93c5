package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dinewire/internal/domain"
)

type BillRepository struct {
	pool *pgxpool.Pool
}

func (r *BillRepository) Create(ctx context.Context, bill *domain.Bill) error {
	// order_id is unique: at most one bill per order is enforced by the
	// schema as well as by the aggregate.
	_, err := r.pool.Exec(ctx, `
		INSERT INTO bills (id, order_id, subtotal, tax, discount, total, payment_status, payment_method, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		bill.ID, bill.OrderID, bill.Subtotal, bill.Tax, bill.Discount,
		bill.Total, bill.PaymentStatus, bill.PaymentMethod, bill.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert bill: %w", err)
	}
	return nil
}

func (r *BillRepository) Get(ctx context.Context, id string) (*domain.Bill, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

func (r *BillRepository) GetByOrder(ctx context.Context, orderID string) (*domain.Bill, error) {
	return r.getOne(ctx, `WHERE order_id = $1`, orderID)
}

func (r *BillRepository) getOne(ctx context.Context, where string, arg any) (*domain.Bill, error) {
	var b domain.Bill
	err := r.pool.QueryRow(ctx, `
		SELECT id, order_id, subtotal, tax, discount, total, payment_status, payment_method, created_at
		FROM bills `+where, arg).
		Scan(&b.ID, &b.OrderID, &b.Subtotal, &b.Tax, &b.Discount,
			&b.Total, &b.PaymentStatus, &b.PaymentMethod, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan bill: %w", err)
	}
	return &b, nil
}

func (r *BillRepository) Update(ctx context.Context, bill *domain.Bill) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE bills SET payment_status = $2, payment_method = $3 WHERE id = $1`,
		bill.ID, bill.PaymentStatus, bill.PaymentMethod,
	)
	if err != nil {
		return fmt.Errorf("update bill: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
