package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"icepay-gateway/internal/domains/payment/model"
)

// =====================================================
// POSTBACK LOG REPOSITORY IMPLEMENTATION
// =====================================================
type postbackLogRepository struct {
	pool *pgxpool.Pool
}

func NewPostbackLogRepository(pool *pgxpool.Pool) PostbackLogRepository {
	return &postbackLogRepository{pool: pool}
}

const postbackColumns = `
	id, payment_id, order_id, gateway, status, checksum, body,
	is_valid, is_processed, processing_error, retry_count, received_at
`

func scanPostback(row pgx.Row) (*model.PostbackLog, error) {
	l := &model.PostbackLog{}
	var bodyJSON []byte

	err := row.Scan(
		&l.ID,
		&l.PaymentID,
		&l.OrderID,
		&l.Gateway,
		&l.Status,
		&l.Checksum,
		&bodyJSON,
		&l.IsValid,
		&l.IsProcessed,
		&l.ProcessingError,
		&l.RetryCount,
		&l.ReceivedAt,
	)
	if err != nil {
		return nil, err
	}

	if bodyJSON != nil {
		if err := json.Unmarshal(bodyJSON, &l.Body); err != nil {
			return nil, fmt.Errorf("failed to unmarshal postback body: %w", err)
		}
	}

	return l, nil
}

// Create stores the raw postback. Called before validation so that invalid
// and failed postbacks stay auditable.
func (r *postbackLogRepository) Create(ctx context.Context, log *model.PostbackLog) error {
	query := `
		INSERT INTO icepay_postback_logs (
			id, payment_id, order_id, gateway, status, checksum, body,
			is_valid, is_processed, retry_count, received_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
	`

	bodyJSON, err := json.Marshal(log.Body)
	if err != nil {
		return fmt.Errorf("failed to marshal body: %w", err)
	}

	_, err = r.pool.Exec(ctx, query,
		log.ID,
		log.PaymentID,
		log.OrderID,
		log.Gateway,
		log.Status,
		log.Checksum,
		bodyJSON,
		log.IsValid,
		log.IsProcessed,
		log.RetryCount,
		log.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create postback log: %w", err)
	}

	return nil
}

func (r *postbackLogRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.PostbackLog, error) {
	query := `SELECT ` + postbackColumns + ` FROM icepay_postback_logs WHERE id = $1`

	l, err := scanPostback(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("postback log not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get postback log: %w", err)
	}

	return l, nil
}

// =====================================================
// STATUS UPDATE METHODS
// =====================================================

func (r *postbackLogRepository) MarkProcessed(ctx context.Context, id uuid.UUID, paymentID, orderID *uuid.UUID) error {
	query := `
		UPDATE icepay_postback_logs
		SET is_valid = true,
			is_processed = true,
			processing_error = NULL,
			payment_id = COALESCE($2, payment_id),
			order_id = COALESCE($3, order_id)
		WHERE id = $1
	`

	return r.exec(ctx, "mark postback as processed", query, id, paymentID, orderID)
}

// MarkInvalid marks a postback whose checksum or payload failed validation
func (r *postbackLogRepository) MarkInvalid(ctx context.Context, id uuid.UUID, reason string) error {
	query := `
		UPDATE icepay_postback_logs
		SET is_valid = false,
			processing_error = $2
		WHERE id = $1
	`

	return r.exec(ctx, "mark postback as invalid", query, id, reason)
}

// MarkProcessingError records a failure on a postback that passed validation
func (r *postbackLogRepository) MarkProcessingError(ctx context.Context, id uuid.UUID, errMsg string) error {
	query := `
		UPDATE icepay_postback_logs
		SET is_valid = true,
			processing_error = $2
		WHERE id = $1
	`

	return r.exec(ctx, "mark postback processing error", query, id, errMsg)
}

func (r *postbackLogRepository) IncrementRetryCount(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE icepay_postback_logs SET retry_count = retry_count + 1 WHERE id = $1`

	return r.exec(ctx, "increment postback retry count", query, id)
}

func (r *postbackLogRepository) exec(ctx context.Context, op, query string, args ...interface{}) error {
	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("postback log not found: %v", args[0])
	}

	return nil
}

// =====================================================
// RETRY MECHANISM
// =====================================================

// GetFailed returns postbacks that passed validation but were not processed,
// received within the last 24 hours.
func (r *postbackLogRepository) GetFailed(ctx context.Context, limit int) ([]*model.PostbackLog, error) {
	query := `SELECT ` + postbackColumns + `
		FROM icepay_postback_logs
		WHERE is_processed = false
		AND is_valid = true
		AND retry_count < $1
		AND received_at > NOW() - INTERVAL '24 hours'
		ORDER BY received_at ASC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, model.MaxPostbackRetries, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get failed postbacks: %w", err)
	}
	defer rows.Close()

	var logs []*model.PostbackLog
	for rows.Next() {
		l, err := scanPostback(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan postback: %w", err)
		}
		logs = append(logs, l)
	}

	return logs, rows.Err()
}

// =====================================================
// ADMIN DEBUGGING METHODS
// =====================================================

func (r *postbackLogRepository) List(ctx context.Context, req model.ListPostbacksRequest) ([]*model.PostbackLog, int, error) {
	req.Normalize()

	var (
		conds []string
		args  []interface{}
	)
	if req.PaymentID != nil {
		args = append(args, *req.PaymentID)
		conds = append(conds, fmt.Sprintf("payment_id = $%d", len(args)))
	}
	if req.Failed {
		conds = append(conds, "is_processed = false")
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM icepay_postback_logs ` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count postbacks: %w", err)
	}

	args = append(args, req.Limit, (req.Page-1)*req.Limit)
	query := fmt.Sprintf(`SELECT %s FROM icepay_postback_logs %s ORDER BY received_at DESC LIMIT $%d OFFSET $%d`,
		postbackColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list postbacks: %w", err)
	}
	defer rows.Close()

	var logs []*model.PostbackLog
	for rows.Next() {
		l, err := scanPostback(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan postback: %w", err)
		}
		logs = append(logs, l)
	}

	return logs, total, rows.Err()
}
