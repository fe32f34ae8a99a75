package gateway

import (
	"context"
	"net/url"

	"icepay-gateway/internal/domains/payment/model"
)

// =====================================================
// GATEWAY INTERFACES
// =====================================================

// IcepayGateway covers both directions of the ICEPAY protocol.
type IcepayGateway interface {
	// CreatePaymentURL submits a basic-mode payment and returns the redirect URL
	CreatePaymentURL(ctx context.Context, req IcepayPaymentRequest) (string, error)

	// ValidateResult checks the checksum of an inbound payload and parses it
	ValidateResult(params url.Values, channel model.Channel) (*model.RemoteResult, error)

	// DisplayLabel is the name shown to payers
	DisplayLabel() string
}

// =====================================================
// COMMON REQUEST/RESPONSE TYPES
// =====================================================

// IcepayPaymentRequest request to create an ICEPAY basic-mode payment
type IcepayPaymentRequest struct {
	PaymentID   string // sent as ICEPAY OrderID
	Amount      int64  // minor units
	Currency    string
	Country     string
	Language    string // two-letter, upper-case
	Reference   string // local order id
	Description string
	SuccessURL  string
	ErrorURL    string
}
