package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"icepay-gateway/internal/domains/payment/model"
	repo "icepay-gateway/internal/domains/payment/repository"
)

// PaymentResolver locates the payment a remote result refers to.
type PaymentResolver interface {
	Resolve(ctx context.Context, order *model.Order, result *model.RemoteResult) (*model.Payment, error)

	// MarksOrder reports whether the order-level status marker is kept in
	// step with the payment.
	MarksOrder() bool
}

// =====================================================
// BY-ID RESOLVER (postback path)
// =====================================================

// ByIDResolver loads the payment named by the result's OrderID field.
type ByIDResolver struct {
	payments repo.PaymentRepository
	gateway  string
}

func NewByIDResolver(payments repo.PaymentRepository, gateway string) *ByIDResolver {
	return &ByIDResolver{payments: payments, gateway: gateway}
}

func (r *ByIDResolver) Resolve(ctx context.Context, _ *model.Order, result *model.RemoteResult) (*model.Payment, error) {
	id, err := uuid.Parse(result.PaymentID)
	if err != nil {
		return nil, model.NewPaymentNotFoundError(result.PaymentID)
	}

	payment, err := r.payments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrPaymentNotFound) {
			return nil, model.NewPaymentNotFoundError(result.PaymentID)
		}
		return nil, fmt.Errorf("resolve payment %s: %w", id, err)
	}

	if payment.Gateway != r.gateway {
		return nil, model.NewPaymentNotFoundError(result.PaymentID)
	}

	return payment, nil
}

func (r *ByIDResolver) MarksOrder() bool { return false }

// =====================================================
// ORDER-SCAN RESOLVER (legacy return path)
// =====================================================

// OrderScanResolver scans the order's payments for one whose id and amount
// match the result.
type OrderScanResolver struct {
	payments repo.PaymentRepository
	gateway  string
}

func NewOrderScanResolver(payments repo.PaymentRepository, gateway string) *OrderScanResolver {
	return &OrderScanResolver{payments: payments, gateway: gateway}
}

func (r *OrderScanResolver) Resolve(ctx context.Context, order *model.Order, result *model.RemoteResult) (*model.Payment, error) {
	payments, err := r.payments.ListByOrderID(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list payments for order %s: %w", order.ID, err)
	}

	wantAmount, wantCurrency := result.Amount, result.Currency
	if !result.HasAmount {
		// Browser returns carry no amount; the payment must match the order total.
		total, ok := ToMinorUnits(order.Total, order.Currency)
		if !ok {
			return nil, model.NewPaymentNotFoundError(result.PaymentID)
		}
		wantAmount, wantCurrency = total, order.Currency
	}

	for _, p := range payments {
		if p.ID.String() != result.PaymentID {
			continue
		}
		if p.Gateway != r.gateway {
			return nil, model.NewPaymentNotFoundError(result.PaymentID)
		}
		if p.Amount == wantAmount && strings.EqualFold(p.Currency, wantCurrency) {
			return p, nil
		}
	}

	return nil, model.NewPaymentNotFoundError(result.PaymentID)
}

func (r *OrderScanResolver) MarksOrder() bool { return true }
