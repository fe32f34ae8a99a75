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
// PAYMENT REPOSITORY IMPLEMENTATION
// =====================================================
type paymentRepository struct {
	pool *pgxpool.Pool
}

func NewPaymentRepository(pool *pgxpool.Pool) PaymentRepository {
	return &paymentRepository{pool: pool}
}

const paymentColumns = `
	id, order_id, gateway, amount, currency, state, remote_status,
	remote_transaction_id, test_mode, version, created_at, updated_at
`

func scanPayment(row pgx.Row) (*model.Payment, error) {
	var (
		p            model.Payment
		remoteStatus *string
	)
	err := row.Scan(
		&p.ID,
		&p.OrderID,
		&p.Gateway,
		&p.Amount,
		&p.Currency,
		&p.State,
		&remoteStatus,
		&p.RemoteTransactionID,
		&p.TestMode,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if remoteStatus != nil {
		s := model.StatusCode(*remoteStatus)
		p.RemoteStatus = &s
	}
	return &p, nil
}

func nullableStatus(s *model.StatusCode) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

// Create creates payment
func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	query := `
		INSERT INTO icepay_payments (
			id, order_id, gateway, amount, currency, state, test_mode, version
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, 1
		)
		RETURNING version, created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		payment.ID,
		payment.OrderID,
		payment.Gateway,
		payment.Amount,
		payment.Currency,
		payment.State,
		payment.TestMode,
	).Scan(&payment.Version, &payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}

// GetByID gets payment by ID
func (r *paymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM icepay_payments WHERE id = $1`

	payment, err := scanPayment(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	return payment, nil
}

// ListByOrderID lists payments of an order
func (r *paymentRepository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]*model.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM icepay_payments WHERE order_id = $1 ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return payments, nil
}

// SaveWithTx applies a reconciled transition with an optimistic version check
func (r *paymentRepository) SaveWithTx(ctx context.Context, tx pgx.Tx, payment *model.Payment) error {
	query := `
		UPDATE icepay_payments
		SET state = $1,
			remote_status = $2,
			remote_transaction_id = $3,
			version = version + 1,
			updated_at = $4
		WHERE id = $5 AND version = $6
		RETURNING version
	`

	err := tx.QueryRow(ctx, query,
		payment.State,
		nullableStatus(payment.RemoteStatus),
		payment.RemoteTransactionID,
		payment.UpdatedAt,
		payment.ID,
		payment.Version,
	).Scan(&payment.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrConcurrentUpdate
		}
		return fmt.Errorf("failed to save payment: %w", err)
	}

	return nil
}

// DeleteNewWithTx deletes a speculative payment
func (r *paymentRepository) DeleteNewWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, version int64) error {
	query := `DELETE FROM icepay_payments WHERE id = $1 AND version = $2 AND state = $3`

	result, err := tx.Exec(ctx, query, id, version, model.StateNew)
	if err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrConcurrentUpdate
	}

	return nil
}

// Delete deletes a payment still in new state
func (r *paymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM icepay_payments WHERE id = $1 AND state = $2`

	result, err := r.pool.Exec(ctx, query, id, model.StateNew)
	if err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrPaymentNotRemovable
	}

	return nil
}
