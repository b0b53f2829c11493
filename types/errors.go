package types

import (
	"errors"
	"fmt"
)

// Error codes surfaced by the payment engine
const (
	ErrCodeIntentCreationFailed      = "INTENT_CREATION_FAILED"
	ErrCodeInvalidTransactionPayload = "INVALID_TRANSACTION_PAYLOAD"
	ErrCodeUnsupportedWalletVersion  = "UNSUPPORTED_WALLET_VERSION"
	ErrCodeWalletCannotSign          = "WALLET_CANNOT_SIGN"
	ErrCodeUserRejected              = "USER_REJECTED"
	ErrCodeInsufficientBalance       = "INSUFFICIENT_BALANCE"
	ErrCodeExpired                   = "EXPIRED"
	ErrCodeBlocked                   = "BLOCKED"
	ErrCodeNetworkTransient          = "NETWORK_TRANSIENT"
	ErrCodeBackendFailed             = "BACKEND_FAILED"
	ErrCodeInvalidState              = "INVALID_STATE"
	ErrCodeConfig                    = "CONFIG_ERROR"
)

// PaymentError is the single error type surfaced to the UI layer.
type PaymentError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	Err       error  `json:"-"`
}

func (e *PaymentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *PaymentError) Unwrap() error {
	return e.Err
}

// Is matches any PaymentError carrying the same code, so the sentinels
// below work with errors.Is.
func (e *PaymentError) Is(target error) bool {
	t, ok := target.(*PaymentError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is
var (
	ErrIntentCreationFailed      = &PaymentError{Code: ErrCodeIntentCreationFailed}
	ErrInvalidTransactionPayload = &PaymentError{Code: ErrCodeInvalidTransactionPayload}
	ErrUnsupportedWalletVersion  = &PaymentError{Code: ErrCodeUnsupportedWalletVersion}
	ErrWalletCannotSign          = &PaymentError{Code: ErrCodeWalletCannotSign}
	ErrUserRejected              = &PaymentError{Code: ErrCodeUserRejected}
	ErrInsufficientBalance       = &PaymentError{Code: ErrCodeInsufficientBalance}
	ErrExpired                   = &PaymentError{Code: ErrCodeExpired}
	ErrBlocked                   = &PaymentError{Code: ErrCodeBlocked}
	ErrNetworkTransient          = &PaymentError{Code: ErrCodeNetworkTransient}
	ErrBackendFailed             = &PaymentError{Code: ErrCodeBackendFailed}
	ErrInvalidState              = &PaymentError{Code: ErrCodeInvalidState}
)

// NewError builds a retryable PaymentError. Blocked errors are never retryable.
func NewError(code, message string, err error) *PaymentError {
	return &PaymentError{
		Code:      code,
		Message:   message,
		Retryable: code != ErrCodeBlocked,
		Err:       err,
	}
}

// AsPaymentError returns err as a PaymentError, wrapping unknown errors
// under fallbackCode.
func AsPaymentError(err error, fallbackCode, fallbackMessage string) *PaymentError {
	var pe *PaymentError
	if errors.As(err, &pe) {
		return pe
	}
	return NewError(fallbackCode, fallbackMessage, err)
}

// ExpiredMessage is shown when a payment window elapses.
const ExpiredMessage = "Payment window expired. Please try again"

// IsBlocked reports whether err is a Blocked refusal.
func IsBlocked(err error) bool {
	return err != nil && errors.Is(err, ErrBlocked)
}
