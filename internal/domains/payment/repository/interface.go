package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"icepay-gateway/internal/domains/payment/model"
)

// =====================================================
// PAYMENT REPOSITORY INTERFACE
// =====================================================
type PaymentRepository interface {
	// Create inserts a payment in state new with version 1
	Create(ctx context.Context, payment *model.Payment) error

	// GetByID returns model.ErrPaymentNotFound when absent
	GetByID(ctx context.Context, id uuid.UUID) (*model.Payment, error)

	// ListByOrderID returns every payment of an order, oldest first
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]*model.Payment, error)

	// SaveWithTx persists state, remote status and remote transaction id if
	// payment.Version is still current, then bumps payment.Version.
	// Returns model.ErrConcurrentUpdate otherwise.
	SaveWithTx(ctx context.Context, tx pgx.Tx, payment *model.Payment) error

	// DeleteNewWithTx removes a payment that is still new at the given version
	DeleteNewWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, version int64) error

	// Delete removes a payment that is still new, regardless of version
	Delete(ctx context.Context, id uuid.UUID) error
}

// =====================================================
// ORDER REPOSITORY INTERFACE
// =====================================================
type OrderRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// UpdateRemoteStatusWithTx moves the order marker from `from` to `to`.
	// Returns model.ErrConcurrentUpdate if the marker is no longer `from`.
	UpdateRemoteStatusWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, from *model.StatusCode, to model.StatusCode) error
}

// =====================================================
// POSTBACK LOG REPOSITORY INTERFACE
// =====================================================
type PostbackLogRepository interface {
	// Create stores the raw postback before any processing
	Create(ctx context.Context, log *model.PostbackLog) error

	GetByID(ctx context.Context, id uuid.UUID) (*model.PostbackLog, error)

	MarkProcessed(ctx context.Context, id uuid.UUID, paymentID, orderID *uuid.UUID) error
	MarkInvalid(ctx context.Context, id uuid.UUID, reason string) error
	MarkProcessingError(ctx context.Context, id uuid.UUID, errMsg string) error

	// GetFailed returns valid, unprocessed postbacks below the retry limit
	GetFailed(ctx context.Context, limit int) ([]*model.PostbackLog, error)
	IncrementRetryCount(ctx context.Context, id uuid.UUID) error

	List(ctx context.Context, req model.ListPostbacksRequest) ([]*model.PostbackLog, int, error)
}

// =====================================================
// TRANSACTION MANAGER
// =====================================================
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}
