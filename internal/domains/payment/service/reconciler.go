package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"icepay-gateway/internal/domains/payment/model"
	repo "icepay-gateway/internal/domains/payment/repository"
)

// ReconcilerDeps are the collaborators shared by every Reconciler.
type ReconcilerDeps struct {
	Payments  repo.PaymentRepository
	Orders    repo.OrderRepository
	TxManager repo.TransactionManager
	Locker    Locker
	Publisher EventPublisher
	Metrics   MetricsRecorder
	Clock     Clock
	Logger    zerolog.Logger

	// GatewayLabel is shown to the payer in the cancellation message.
	GatewayLabel string
	LockTTL      time.Duration
	MaxAttempts  int
}

// Reconciler applies validated ICEPAY results to local payments. The
// resolver decides how a result is matched to a payment.
type Reconciler struct {
	deps     ReconcilerDeps
	resolver PaymentResolver
	matcher  AmountMatcher
}

func NewReconciler(deps ReconcilerDeps, resolver PaymentResolver) *Reconciler {
	if deps.Publisher == nil {
		deps.Publisher = noopPublisher{}
	}
	if deps.Metrics == nil {
		deps.Metrics = noopMetrics{}
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.LockTTL <= 0 {
		deps.LockTTL = model.PaymentLockTTLSeconds * time.Second
	}
	if deps.MaxAttempts <= 0 {
		deps.MaxAttempts = model.MaxReconcileAttempts
	}
	if deps.GatewayLabel == "" {
		deps.GatewayLabel = "ICEPAY"
	}
	return &Reconciler{deps: deps, resolver: resolver}
}

// Reconcile advances the payment referred to by result.
//
// Stale and duplicate results return model.OutcomeNoOp without writing. A
// remote ERROR is persisted and then reported as model.ErrPaymentFailed.
func (r *Reconciler) Reconcile(ctx context.Context, order *model.Order, result *model.RemoteResult, cancelFlow bool) (outcome *model.Outcome, err error) {
	start := r.deps.Clock()
	defer func() {
		r.deps.Metrics.ObserveReconcile(result.Channel, outcomeLabel(outcome, err), r.deps.Clock().Sub(start))
	}()

	log := r.deps.Logger.With().
		Str("order_id", order.ID.String()).
		Str("payment_ref", result.PaymentID).
		Str("status", string(result.Status)).
		Str("channel", string(result.Channel)).
		Bool("cancel_flow", cancelFlow).
		Logger()

	payment, err := r.resolver.Resolve(ctx, order, result)
	if err != nil {
		log.Warn().Err(err).Msg("payment resolution failed")
		return nil, err
	}

	if err := checkIdentity(order, payment, result); err != nil {
		log.Warn().Err(err).Msg("order identity check failed")
		return nil, err
	}

	if err := r.checkAmount(order, payment, result); err != nil {
		log.Warn().Err(err).Msg("amount check failed")
		return nil, err
	}

	release, err := r.deps.Locker.Acquire(ctx, lockKey(payment.ID), r.deps.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire payment lock: %w", err)
	}
	defer release()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 10 * time.Millisecond
	policy.MaxInterval = 200 * time.Millisecond

	op := func() error {
		outcome, err = r.apply(ctx, log, order, payment.ID, result, cancelFlow)
		if errors.Is(err, model.ErrConcurrentUpdate) {
			log.Debug().Msg("concurrent payment update, reloading")
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	retries := uint64(r.deps.MaxAttempts - 1)
	if err = backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, retries), ctx)); err != nil {
		return nil, err
	}

	return outcome, nil
}

// apply runs the load-check-mutate-save sequence once. It must be called with
// the payment lock held.
func (r *Reconciler) apply(
	ctx context.Context,
	log zerolog.Logger,
	order *model.Order,
	paymentID uuid.UUID,
	result *model.RemoteResult,
	cancelFlow bool,
) (*model.Outcome, error) {
	current, err := r.deps.Payments.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, model.ErrPaymentNotFound) {
			return nil, model.NewPaymentNotFoundError(paymentID.String())
		}
		return nil, fmt.Errorf("reload payment: %w", err)
	}

	if !model.CanAdvance(current.RemoteStatus, result.Status) || model.IsDuplicate(current.RemoteStatus, result.Status) {
		log.Info().Str("state", string(current.State)).Msg("stale or duplicate result ignored")
		return &model.Outcome{Kind: model.OutcomeNoOp, Payment: current}, nil
	}

	if cancelFlow {
		switch result.Status {
		case model.StatusOpen:
			// Test mode can report OPEN on the error URL.
			log.Warn().Msg("open status reported on cancel flow")
			return nil, model.NewPaymentFailedError(order.ID.String(), result.StatusText)
		case model.StatusError:
			if current.CanBeRemoved() {
				return r.remove(ctx, log, current, result)
			}
		}
	}

	next, ok := model.NextState(current.State, result.Status)
	if !ok {
		log.Error().Str("state", string(current.State)).Msg("undefined state transition")
		return nil, model.NewInvalidStateTransitionError(current.State, result.Status)
	}

	updated := current.Clone()
	status := result.Status
	updated.State = next
	updated.RemoteStatus = &status
	if txnID := remoteTransactionID(result); txnID != "" {
		updated.RemoteTransactionID = &txnID
	}
	updated.UpdatedAt = r.deps.Clock()

	err = r.deps.TxManager.RunInTx(ctx, func(tx pgx.Tx) error {
		if err := r.deps.Payments.SaveWithTx(ctx, tx, updated); err != nil {
			return err
		}
		if r.resolver.MarksOrder() {
			return r.advanceOrderMarker(ctx, tx, order.ID, status)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.committed(ctx, log, current, updated, result)

	switch status {
	case model.StatusError:
		return nil, model.NewPaymentFailedError(order.ID.String(), result.StatusText)
	case model.StatusSuccess:
		return &model.Outcome{Kind: model.OutcomeSuccess, Payment: updated}, nil
	default:
		return &model.Outcome{Kind: model.OutcomeUpdated, Payment: updated}, nil
	}
}

// remove deletes a payment the payer abandoned before any remote commitment.
func (r *Reconciler) remove(ctx context.Context, log zerolog.Logger, current *model.Payment, result *model.RemoteResult) (*model.Outcome, error) {
	err := r.deps.TxManager.RunInTx(ctx, func(tx pgx.Tx) error {
		return r.deps.Payments.DeleteNewWithTx(ctx, tx, current.ID, current.Version)
	})
	if err != nil {
		return nil, err
	}

	removed := current.Clone()
	removed.State = model.StateRemoved
	removed.UpdatedAt = r.deps.Clock()

	r.committed(ctx, log, current, removed, result)

	return &model.Outcome{
		Kind:    model.OutcomeCancelled,
		Payment: removed,
		Message: fmt.Sprintf(model.CancelledMessage, r.deps.GatewayLabel),
	}, nil
}

func (r *Reconciler) advanceOrderMarker(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, status model.StatusCode) error {
	fresh, err := r.deps.Orders.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("reload order: %w", err)
	}
	if !model.CanAdvance(fresh.RemoteStatus, status) || model.IsDuplicate(fresh.RemoteStatus, status) {
		return nil
	}
	return r.deps.Orders.UpdateRemoteStatusWithTx(ctx, tx, orderID, fresh.RemoteStatus, status)
}

// committed runs the side effects of a transition that is already durable.
func (r *Reconciler) committed(ctx context.Context, log zerolog.Logger, before, after *model.Payment, result *model.RemoteResult) {
	r.deps.Metrics.IncTransition(before.State, after.State)

	log.Info().
		Str("payment_id", after.ID.String()).
		Str("from", string(before.State)).
		Str("to", string(after.State)).
		Msg("payment transition committed")

	event := model.StatusChangedEvent{
		EventID:       uuid.New(),
		PaymentID:     after.ID,
		OrderID:       after.OrderID,
		FromState:     before.State,
		ToState:       after.State,
		RemoteStatus:  after.RemoteStatus,
		TransactionID: after.RemoteTransactionID,
		Channel:       result.Channel,
		OccurredAt:    after.UpdatedAt,
	}
	if err := r.deps.Publisher.PublishStatusChanged(ctx, event); err != nil {
		log.Error().Err(err).Str("payment_id", after.ID.String()).Msg("failed to publish status change")
	}
}

func checkIdentity(order *model.Order, payment *model.Payment, result *model.RemoteResult) error {
	if order.ID.String() != result.Reference {
		return model.NewOrderMismatchError(order.ID.String(), result.Reference)
	}
	if payment.OrderID != order.ID {
		return model.NewOrderMismatchError(order.ID.String(), payment.OrderID.String())
	}
	return nil
}

// checkAmount compares the reported amount with the order total. Browser
// returns carry no amount, so the amount bound to the payment is used.
func (r *Reconciler) checkAmount(order *model.Order, payment *model.Payment, result *model.RemoteResult) error {
	amount, currency := payment.Amount, payment.Currency
	if result.HasAmount {
		amount, currency = result.Amount, result.Currency
	}
	if !r.matcher.Matches(amount, currency, order) {
		return model.NewAmountMismatchError(
			order.Total.String()+" "+order.Currency,
			strconv.FormatInt(amount, 10)+" "+currency,
		)
	}
	return nil
}

func remoteTransactionID(result *model.RemoteResult) string {
	if result.ProcessorPaymentID != "" {
		return result.ProcessorPaymentID
	}
	return result.TransactionID
}

func lockKey(id uuid.UUID) string {
	return "icepay:payment_lock:" + id.String()
}

func outcomeLabel(outcome *model.Outcome, err error) string {
	if err != nil {
		if pErr, ok := model.IsPaymentError(err); ok {
			return pErr.Code
		}
		return model.ErrCodeInternalError
	}
	if outcome == nil {
		return "unknown"
	}
	return string(outcome.Kind)
}
