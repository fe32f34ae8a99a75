package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =====================================================
// CHECKOUT REQUEST/RESPONSE
// =====================================================

type CheckoutRequest struct {
	// Language is a locale such as "nl-NL"; only the primary subtag is sent.
	Language string `json:"language"`
	// ReturnURL and CancelURL override the configured callback URLs.
	ReturnURL string `json:"return_url,omitempty"`
	CancelURL string `json:"cancel_url,omitempty"`
}

// Validate validates CheckoutRequest
func (r CheckoutRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Language, validation.Required, validation.Length(2, 12)),
		validation.Field(&r.ReturnURL, is.URL),
		validation.Field(&r.CancelURL, is.URL),
	)
}

type CheckoutResponse struct {
	PaymentID   uuid.UUID       `json:"payment_id"`
	OrderID     uuid.UUID       `json:"order_id"`
	Gateway     string          `json:"gateway"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	RedirectURL string          `json:"redirect_url"`
}

// =====================================================
// RECONCILE RESPONSE
// =====================================================

type ReconcileResponse struct {
	Outcome      OutcomeKind `json:"outcome"`
	PaymentID    *uuid.UUID  `json:"payment_id,omitempty"`
	State        *LocalState `json:"state,omitempty"`
	RemoteStatus *StatusCode `json:"remote_status,omitempty"`
	Message      string      `json:"message,omitempty"`
}

// NewReconcileResponse flattens an outcome for API consumers.
func NewReconcileResponse(o *Outcome) ReconcileResponse {
	resp := ReconcileResponse{Outcome: o.Kind, Message: o.Message}
	if o.Payment != nil {
		id := o.Payment.ID
		state := o.Payment.State
		resp.PaymentID = &id
		resp.State = &state
		resp.RemoteStatus = o.Payment.RemoteStatus
	}
	return resp
}

// =====================================================
// ADMIN PAYMENT RESPONSE
// =====================================================

type PaymentResponse struct {
	ID                  uuid.UUID   `json:"id"`
	OrderID             uuid.UUID   `json:"order_id"`
	Gateway             string      `json:"gateway"`
	State               LocalState  `json:"state"`
	RemoteStatus        *StatusCode `json:"remote_status,omitempty"`
	RemoteTransactionID *string     `json:"remote_transaction_id,omitempty"`
	Amount              int64       `json:"amount"`
	Currency            string      `json:"currency"`
	TestMode            bool        `json:"test_mode"`
	Version             int64       `json:"version"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

func NewPaymentResponse(p *Payment) PaymentResponse {
	return PaymentResponse{
		ID:                  p.ID,
		OrderID:             p.OrderID,
		Gateway:             p.Gateway,
		State:               p.State,
		RemoteStatus:        p.RemoteStatus,
		RemoteTransactionID: p.RemoteTransactionID,
		Amount:              p.Amount,
		Currency:            p.Currency,
		TestMode:            p.TestMode,
		Version:             p.Version,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

// =====================================================
// POSTBACK LIST REQUEST
// =====================================================

type ListPostbacksRequest struct {
	PaymentID *uuid.UUID `form:"-"`
	Failed    bool       `form:"failed"`
	Page      int        `form:"page"`
	Limit     int        `form:"limit"`
}

func (r *ListPostbacksRequest) Normalize() {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.Limit < 1 || r.Limit > 100 {
		r.Limit = 20
	}
}

// =====================================================
// POSTBACK RETRY REPORT
// =====================================================

type RetryReport struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
}
