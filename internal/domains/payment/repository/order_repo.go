package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"icepay-gateway/internal/domains/payment/model"
)

// =====================================================
// ORDER REPOSITORY IMPLEMENTATION
// =====================================================

// orderRepository reads orders owned by the order-management system. Only
// the icepay_status marker is ever written.
type orderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &orderRepository{pool: pool}
}

func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	query := `
		SELECT id, total, currency, country_code, icepay_status, updated_at
		FROM orders
		WHERE id = $1
	`

	var (
		order  model.Order
		marker *string
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&order.ID,
		&order.Total,
		&order.Currency,
		&order.CountryCode,
		&marker,
		&order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if marker != nil {
		s := model.StatusCode(*marker)
		order.RemoteStatus = &s
	}

	return &order, nil
}

func (r *orderRepository) UpdateRemoteStatusWithTx(
	ctx context.Context,
	tx pgx.Tx,
	id uuid.UUID,
	from *model.StatusCode,
	to model.StatusCode,
) error {
	query := `
		UPDATE orders
		SET icepay_status = $1, updated_at = NOW()
		WHERE id = $2 AND icepay_status IS NOT DISTINCT FROM $3
	`

	result, err := tx.Exec(ctx, query, string(to), id, nullableStatus(from))
	if err != nil {
		return fmt.Errorf("failed to update order marker: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrConcurrentUpdate
	}

	return nil
}
