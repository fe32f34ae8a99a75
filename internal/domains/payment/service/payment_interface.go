package service

import (
	"context"
	"net/url"
	"time"

	"github.com/google/uuid"

	"icepay-gateway/internal/domains/payment/model"
)

// =====================================================
// SERVICE INTERFACES
// =====================================================
type PaymentService interface {
	// ============================================
	// CHECKOUT
	// ============================================

	// StartCheckout creates a new payment and returns the ICEPAY redirect URL
	StartCheckout(ctx context.Context, orderID uuid.UUID, req model.CheckoutRequest) (*model.CheckoutResponse, error)

	// ============================================
	// PROCESSOR CALLBACKS
	// ============================================

	// HandleReturn reconciles a browser return or cancel redirect
	HandleReturn(ctx context.Context, orderID uuid.UUID, params url.Values, cancelFlow bool) (*model.Outcome, error)

	// HandlePostback reconciles a server-to-server postback
	HandlePostback(ctx context.Context, params url.Values) (*model.Outcome, error)

	// ============================================
	// ADMIN
	// ============================================

	GetPayment(ctx context.Context, paymentID uuid.UUID) (*model.Payment, error)
	ListPostbacks(ctx context.Context, req model.ListPostbacksRequest) ([]*model.PostbackLog, int, error)

	// ============================================
	// BACKGROUND JOBS
	// ============================================

	// RetryFailedPostbacks replays stored postbacks that failed processing
	RetryFailedPostbacks(ctx context.Context, limit int) (model.RetryReport, error)
}

// =====================================================
// COLLABORATORS
// =====================================================

// Locker provides per-key mutual exclusion across service instances.
type Locker interface {
	// Acquire blocks until the lock is held or ctx is done.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// EventPublisher announces committed payment transitions.
type EventPublisher interface {
	PublishStatusChanged(ctx context.Context, event model.StatusChangedEvent) error
}

// MetricsRecorder receives reconciliation telemetry.
type MetricsRecorder interface {
	ObserveReconcile(channel model.Channel, outcome string, elapsed time.Duration)
	IncTransition(from, to model.LocalState)
}

// Clock returns the current time.
type Clock func() time.Time

type noopPublisher struct{}

func (noopPublisher) PublishStatusChanged(context.Context, model.StatusChangedEvent) error { return nil }

type noopMetrics struct{}

func (noopMetrics) ObserveReconcile(model.Channel, string, time.Duration) {}
func (noopMetrics) IncTransition(model.LocalState, model.LocalState)      {}
