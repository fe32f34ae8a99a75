package mock

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"icepay-gateway/internal/domains/payment/gateway"
	"icepay-gateway/internal/domains/payment/gateway/icepay"
	"icepay-gateway/internal/domains/payment/model"
)

// =====================================================
// MOCK ICEPAY GATEWAY FOR TESTING
// =====================================================

// MockIcepayGateway validates with the real checksum rules but never calls
// ICEPAY when creating payments.
type MockIcepayGateway struct {
	mu                sync.Mutex
	validator         *icepay.Validator
	shouldFailPayment bool
	requests          []gateway.IcepayPaymentRequest
}

func NewMockIcepayGateway(merchantID, secretCode string) *MockIcepayGateway {
	return &MockIcepayGateway{
		validator: icepay.NewValidator(merchantID, secretCode),
	}
}

var _ gateway.IcepayGateway = (*MockIcepayGateway)(nil)

func (m *MockIcepayGateway) CreatePaymentURL(ctx context.Context, req gateway.IcepayPaymentRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shouldFailPayment {
		return "", fmt.Errorf("mock payment creation failed")
	}
	m.requests = append(m.requests, req)

	return fmt.Sprintf(
		"https://mock-icepay.test/pay?orderid=%s&amount=%d&currency=%s",
		url.QueryEscape(req.PaymentID),
		req.Amount,
		req.Currency,
	), nil
}

func (m *MockIcepayGateway) ValidateResult(params url.Values, channel model.Channel) (*model.RemoteResult, error) {
	return m.validator.Validate(params, channel)
}

func (m *MockIcepayGateway) DisplayLabel() string {
	return "ICEPAY"
}

// SetFailPayment sets whether payment creation should fail
func (m *MockIcepayGateway) SetFailPayment(shouldFail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFailPayment = shouldFail
}

// Requests returns the payment requests received so far
func (m *MockIcepayGateway) Requests() []gateway.IcepayPaymentRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]gateway.IcepayPaymentRequest(nil), m.requests...)
}
