package types

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Status represents the state of a payment session
type Status string

const (
	StatusSelecting  Status = "selecting"
	StatusProcessing Status = "processing"
	StatusConfirming Status = "confirming"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
	StatusDisposed   Status = "disposed"
)

// IsTerminal reports whether no further automatic transitions may happen
// from the status.
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusError || s == StatusDisposed
}

// IsActive reports whether a timer pair is expected to be alive.
func (s Status) IsActive() bool {
	return s == StatusProcessing || s == StatusConfirming
}

func (s Status) String() string {
	return string(s)
}

// IntentRequest asks the backend for a new time-boxed payment intent.
type IntentRequest struct {
	PriceID     string `json:"priceId" validate:"required"`
	TokenSymbol string `json:"token" validate:"required"`

	// Wallet is the payer public key, if a wallet is already connected.
	Wallet string `json:"wallet,omitempty"`
}

// PaymentIntent is a backend-issued description of one crypto payment attempt.
// It is never mutated once issued; a refresh produces a new intent.
type PaymentIntent struct {
	// Reference is the correlation id used for status polling.
	Reference string `json:"reference" validate:"required"`

	// IntentID is the backend-side identifier used in submission payloads.
	IntentID string `json:"intentId" validate:"required"`

	AmountFiat  decimal.Decimal `json:"amount"`
	TokenAmount decimal.Decimal `json:"tokenAmount"`
	TokenSymbol string          `json:"tokenSymbol,omitempty"`

	// Payload is a Solana Pay URI for the QR path, or a base64 transaction
	// for the wallet path.
	Payload string `json:"payload" validate:"required"`

	ExpiresAt time.Time `json:"expiresAt" validate:"required"`
}

// Remaining returns whole seconds left before expiry, never negative.
func (p *PaymentIntent) Remaining(now time.Time) int {
	d := p.ExpiresAt.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(d / time.Second)
}

// SignedSubmission carries a wallet-signed transaction back to the backend.
type SignedSubmission struct {
	IntentID          string `json:"intentId"`
	Reference         string `json:"reference"`
	SignedTransaction string `json:"signedTransaction"`
	Wallet            string `json:"wallet,omitempty"`
}

// SuccessPayload is delivered to notification sinks when a session succeeds.
type SuccessPayload struct {
	SessionID     string            `json:"sessionId"`
	TransactionID string            `json:"transactionId,omitempty"`
	Processor     string            `json:"processor"`
	Pending       bool              `json:"pending,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Snapshot is a read-only view of a session at one instant.
type Snapshot struct {
	SessionID     string
	Status        Status
	Intent        *PaymentIntent
	Remaining     int
	TransactionID string
	ErrorCode     string
	ErrorMessage  string
	CanRetry      bool
	RedirectURL   string
}

// TransactionVersion tags a wallet transaction. Legacy transactions carry
// LegacyTransaction; versioned formats carry their version number.
type TransactionVersion int

const LegacyTransaction TransactionVersion = -1

func (v TransactionVersion) String() string {
	if v == LegacyTransaction {
		return "legacy"
	}
	return fmt.Sprintf("%d", int(v))
}

// WalletTransaction is an opaque transaction blob plus its detected format.
type WalletTransaction struct {
	Format  string
	Version TransactionVersion
	Raw     []byte
}

func (t WalletTransaction) IsVersioned() bool {
	return t.Version != LegacyTransaction
}
