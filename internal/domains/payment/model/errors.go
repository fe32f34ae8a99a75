package model

import (
	"errors"
	"fmt"
)

// =====================================================
// PREDEFINED ERRORS
// =====================================================

var (
	ErrValidation             = errors.New("remote result validation failed")
	ErrPaymentNotFound        = errors.New("payment not found")
	ErrOrderNotFound          = errors.New("order not found")
	ErrOrderMismatch          = errors.New("order mismatch")
	ErrAmountMismatch         = errors.New("amount mismatch")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrPaymentFailed          = errors.New("payment failed")
	ErrConcurrentUpdate       = errors.New("payment was modified concurrently")
	ErrGatewayUnavailable     = errors.New("payment gateway unavailable")
	ErrPaymentNotRemovable    = errors.New("payment can only be removed from new state")
)

// =====================================================
// CUSTOM PAYMENT ERROR
// =====================================================

type PaymentError struct {
	Code    string
	Message string
	Err     error
}

func (e *PaymentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PaymentError) Unwrap() error {
	return e.Err
}

// NewPaymentError creates a new payment error
func NewPaymentError(code, message string, err error) *PaymentError {
	return &PaymentError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// =====================================================
// ERROR CONSTRUCTORS
// =====================================================

func NewValidationError(reason string) *PaymentError {
	return NewPaymentError(
		ErrCodeValidation,
		fmt.Sprintf("Invalid remote result: %s", reason),
		ErrValidation,
	)
}

func NewPaymentNotFoundError(ref string) *PaymentError {
	return NewPaymentError(
		ErrCodePaymentNotFound,
		fmt.Sprintf("Payment not found: %s", ref),
		ErrPaymentNotFound,
	)
}

func NewOrderNotFoundError(orderID string) *PaymentError {
	return NewPaymentError(
		ErrCodeOrderNotFound,
		fmt.Sprintf("Order not found: %s", orderID),
		ErrOrderNotFound,
	)
}

func NewOrderMismatchError(expected, got string) *PaymentError {
	return NewPaymentError(
		ErrCodeOrderMismatch,
		fmt.Sprintf("Wrong order ID: expected %s, got %s", expected, got),
		ErrOrderMismatch,
	)
}

func NewAmountMismatchError(expected, got string) *PaymentError {
	return NewPaymentError(
		ErrCodeAmountMismatch,
		fmt.Sprintf("Reported amount %s does not match order total %s", got, expected),
		ErrAmountMismatch,
	)
}

func NewInvalidStateTransitionError(from LocalState, status StatusCode) *PaymentError {
	return NewPaymentError(
		ErrCodeInvalidStateTransition,
		fmt.Sprintf("No transition from %s on %s", from, status),
		ErrInvalidStateTransition,
	)
}

// NewPaymentFailedError carries the processor's status text to the caller.
func NewPaymentFailedError(orderID, statusText string) *PaymentError {
	return NewPaymentError(
		ErrCodePaymentFailed,
		fmt.Sprintf("Order %s failed. %s", orderID, statusText),
		ErrPaymentFailed,
	)
}

func NewGatewayUnavailableError(err error) *PaymentError {
	return NewPaymentError(
		ErrCodeGatewayUnavailable,
		"Could not reach ICEPAY, please try again later",
		fmt.Errorf("%w: %v", ErrGatewayUnavailable, err),
	)
}

// IsPaymentError returns the wrapped PaymentError, if any.
func IsPaymentError(err error) (*PaymentError, bool) {
	var pErr *PaymentError
	if errors.As(err, &pErr) {
		return pErr, true
	}
	return nil, false
}
