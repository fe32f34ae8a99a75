package model

// =====================================================
// PAYMENT GATEWAYS
// =====================================================
const (
	GatewayIcepay = "icepay"
)

var ValidGateways = []string{
	GatewayIcepay,
}

// =====================================================
// LOCAL PAYMENT STATE
// =====================================================

// LocalState is the merchant-side lifecycle state of a payment.
type LocalState string

const (
	StateNew        LocalState = "new"
	StateOpen       LocalState = "open"
	StateAuthorized LocalState = "authorized"
	StateSuccess    LocalState = "success"
	StateError      LocalState = "error"
	StateRemoved    LocalState = "removed"
)

var ValidLocalStates = []LocalState{
	StateNew,
	StateOpen,
	StateAuthorized,
	StateSuccess,
	StateError,
	StateRemoved,
}

// IsTerminal reports whether no further transition can leave the state.
func (s LocalState) IsTerminal() bool {
	return s == StateSuccess || s == StateError || s == StateRemoved
}

// =====================================================
// REMOTE STATUS CODES
// =====================================================

// StatusCode is a status reported by ICEPAY.
type StatusCode string

const (
	StatusOpen       StatusCode = "OPEN"
	StatusAuthorized StatusCode = "AUTHORIZED"
	StatusSuccess    StatusCode = "SUCCESS"
	StatusError      StatusCode = "ERROR"

	// Recognised by the protocol, never actioned.
	StatusRefund   StatusCode = "REFUND"
	StatusCBack    StatusCode = "CBACK"
	StatusValidate StatusCode = "VALIDATE"
)

var knownStatusCodes = map[StatusCode]bool{
	StatusOpen:       true,
	StatusAuthorized: true,
	StatusSuccess:    true,
	StatusError:      true,
	StatusRefund:     true,
	StatusCBack:      true,
	StatusValidate:   true,
}

// ParseStatusCode maps a raw protocol value to a StatusCode.
func ParseStatusCode(raw string) (StatusCode, bool) {
	code := StatusCode(raw)
	return code, knownStatusCodes[code]
}

// IsActionable reports whether the reconciliation core acts on the status.
func (c StatusCode) IsActionable() bool {
	switch c {
	case StatusOpen, StatusAuthorized, StatusSuccess, StatusError:
		return true
	}
	return false
}

// IsTerminal reports whether the status can never be overridden.
func (c StatusCode) IsTerminal() bool {
	return c == StatusSuccess || c == StatusError
}

// =====================================================
// RESULT CHANNELS
// =====================================================

// Channel identifies how a remote result reached the service.
type Channel string

const (
	ChannelResult   Channel = "result"
	ChannelPostback Channel = "postback"
)

// =====================================================
// RECONCILE OUTCOMES
// =====================================================

// OutcomeKind classifies a successful reconciliation.
type OutcomeKind string

const (
	OutcomeNoOp      OutcomeKind = "noop"
	OutcomeUpdated   OutcomeKind = "updated"
	OutcomeSuccess   OutcomeKind = "success"
	OutcomeCancelled OutcomeKind = "cancelled"
)

// CancelledMessage is shown when the payer abandons checkout at the processor.
const CancelledMessage = "You have canceled checkout at %s but may resume the checkout process here when you are ready."

// =====================================================
// INTERNAL ERROR CODES
// =====================================================
const (
	// Validation
	ErrCodeValidation = "ICP001"

	// Resolution
	ErrCodePaymentNotFound = "ICP002"
	ErrCodeOrderMismatch   = "ICP003"
	ErrCodeAmountMismatch  = "ICP004"

	// State machine
	ErrCodeInvalidStateTransition = "ICP005"
	ErrCodePaymentFailed          = "ICP006"
	ErrCodeConcurrentUpdate       = "ICP007"

	// Gateway
	ErrCodeGatewayUnavailable = "ICP008"
	ErrCodeOrderNotFound      = "ICP009"

	// System
	ErrCodeInternalError = "ICP010"
)

// =====================================================
// BUSINESS RULES
// =====================================================
const (
	DefaultCurrencyExponent = 2
	MaxPostbackRetries      = 5
	PaymentLockTTLSeconds   = 30
	MaxReconcileAttempts    = 5
)

// CurrencyExponents lists ISO-4217 minor-unit exponents that differ from the default.
var CurrencyExponents = map[string]int32{
	"JPY": 0,
	"KRW": 0,
	"VND": 0,
	"CLP": 0,
	"ISK": 0,
	"BHD": 3,
	"KWD": 3,
	"OMR": 3,
	"TND": 3,
}
