package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =====================================================
// PAYMENT ENTITY
// =====================================================
type Payment struct {
	ID      uuid.UUID `json:"id" db:"id"`
	OrderID uuid.UUID `json:"order_id" db:"order_id"`

	// Gateway information
	Gateway             string      `json:"gateway" db:"gateway"`
	RemoteStatus        *StatusCode `json:"remote_status,omitempty" db:"remote_status"`
	RemoteTransactionID *string     `json:"remote_transaction_id,omitempty" db:"remote_transaction_id"`
	TestMode            bool        `json:"test_mode" db:"test_mode"`

	// Amount in minor units
	Amount   int64  `json:"amount" db:"amount"`
	Currency string `json:"currency" db:"currency"`

	// Lifecycle
	State   LocalState `json:"state" db:"state"`
	Version int64      `json:"version" db:"version"`

	// Timestamps
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Clone returns a copy that shares no pointers with p.
func (p *Payment) Clone() *Payment {
	cp := *p
	if p.RemoteStatus != nil {
		s := *p.RemoteStatus
		cp.RemoteStatus = &s
	}
	if p.RemoteTransactionID != nil {
		t := *p.RemoteTransactionID
		cp.RemoteTransactionID = &t
	}
	return &cp
}

// CanBeRemoved checks if the payment is still a speculative checkout artifact
func (p *Payment) CanBeRemoved() bool {
	return p.State == StateNew
}

// IsSuccessful checks if payment was successful
func (p *Payment) IsSuccessful() bool {
	return p.State == StateSuccess
}

// =====================================================
// ORDER ENTITY
// =====================================================

// Order is the order-management system's view of an order. The service only
// writes RemoteStatus.
type Order struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	Total        decimal.Decimal `json:"total" db:"total"`
	Currency     string          `json:"currency" db:"currency"`
	CountryCode  string          `json:"country_code" db:"country_code"`
	RemoteStatus *StatusCode     `json:"remote_status,omitempty" db:"icepay_status"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// =====================================================
// REMOTE RESULT
// =====================================================

// RemoteResult is a processor payload that has passed checksum validation.
type RemoteResult struct {
	Channel    Channel
	MerchantID string

	Status     StatusCode
	StatusText string

	// PaymentID is the local payment id, sent to ICEPAY as its OrderID.
	PaymentID string
	// ProcessorPaymentID is ICEPAY's own payment id.
	ProcessorPaymentID string
	// Reference is the local order id.
	Reference     string
	TransactionID string

	// Amount is only present on postbacks.
	Amount    int64
	HasAmount bool
	Currency  string

	Duration   string
	ConsumerIP string
	Checksum   string
}

// =====================================================
// RECONCILE OUTCOME
// =====================================================
type Outcome struct {
	Kind    OutcomeKind `json:"kind"`
	Payment *Payment    `json:"payment,omitempty"`
	Message string      `json:"message,omitempty"`
}

// =====================================================
// POSTBACK LOG ENTITY
// =====================================================
type PostbackLog struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	PaymentID *uuid.UUID `json:"payment_id,omitempty" db:"payment_id"`
	OrderID   *uuid.UUID `json:"order_id,omitempty" db:"order_id"`

	// Postback details
	Gateway  string  `json:"gateway" db:"gateway"`
	Status   *string `json:"status,omitempty" db:"status"`
	Checksum *string `json:"checksum,omitempty" db:"checksum"`

	// Raw form data
	Body map[string]string `json:"body" db:"body"`

	// Processing result
	IsValid         *bool   `json:"is_valid,omitempty" db:"is_valid"`
	IsProcessed     bool    `json:"is_processed" db:"is_processed"`
	ProcessingError *string `json:"processing_error,omitempty" db:"processing_error"`
	RetryCount      int     `json:"retry_count" db:"retry_count"`

	// Timestamp
	ReceivedAt time.Time `json:"received_at" db:"received_at"`
}

// MarkAsProcessed marks postback as processed
func (l *PostbackLog) MarkAsProcessed() {
	valid := true
	l.IsValid = &valid
	l.IsProcessed = true
	l.ProcessingError = nil
}

// MarkAsInvalid marks postback as invalid (checksum verification failed)
func (l *PostbackLog) MarkAsInvalid(reason string) {
	isValid := false
	l.IsValid = &isValid
	l.ProcessingError = &reason
}

// MarkProcessingError marks postback processing error
func (l *PostbackLog) MarkProcessingError(err error) {
	errMsg := err.Error()
	l.ProcessingError = &errMsg
}

// CanRetry reports whether the retry job should pick the postback up again.
func (l *PostbackLog) CanRetry() bool {
	if l.IsProcessed || l.RetryCount >= MaxPostbackRetries {
		return false
	}
	return l.IsValid == nil || *l.IsValid
}
