package types

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// CheckoutKind selects which processor path a checkout uses.
type CheckoutKind string

const (
	CheckoutNewCard     CheckoutKind = "card_token"
	CheckoutSavedMethod CheckoutKind = "saved_method"
	CheckoutAlternate   CheckoutKind = "alternate_processor"
)

// CheckoutRequest is one card or alternate-processor checkout submission.
type CheckoutRequest struct {
	Kind    CheckoutKind `json:"kind" validate:"required,oneof=card_token saved_method alternate_processor"`
	PriceID string       `json:"priceId" validate:"required"`

	CardToken       string `json:"cardToken,omitempty" validate:"required_if=Kind card_token"`
	PaymentMethodID string `json:"paymentMethodId,omitempty" validate:"required_if=Kind saved_method"`
	Processor       string `json:"processor,omitempty" validate:"required_if=Kind alternate_processor"`

	Metadata map[string]string `json:"metadata,omitempty"`

	// IdempotencyKey is stamped by the orchestrator from the current attempt.
	IdempotencyKey string `json:"-"`
}

// ProcessorName names the processor for success notifications.
func (r *CheckoutRequest) ProcessorName() string {
	if r.Kind == CheckoutAlternate && r.Processor != "" {
		return r.Processor
	}
	return "card"
}

// Fingerprint identifies the user-visible inputs of a request, excluding
// the idempotency key.
func (r *CheckoutRequest) Fingerprint() string {
	var b strings.Builder
	b.WriteString(string(r.Kind))
	b.WriteByte('|')
	b.WriteString(r.PriceID)
	b.WriteByte('|')
	b.WriteString(r.CardToken)
	b.WriteByte('|')
	b.WriteString(r.PaymentMethodID)
	b.WriteByte('|')
	b.WriteString(r.Processor)

	keys := make([]string, 0, len(r.Metadata))
	for k := range r.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(r.Metadata[k])
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// CheckoutResponse is the wire shape returned by the checkout endpoint.
type CheckoutResponse struct {
	Status        string `json:"status"`
	Message       string `json:"message,omitempty"`
	RedirectURL   string `json:"redirectUrl,omitempty"`
	TransactionID string `json:"transactionId,omitempty"`
}

// CheckoutOutcome is the classified result of a checkout.
type CheckoutOutcome interface {
	isCheckoutOutcome()
}

// CheckoutSucceeded covers both success and pending. Pending means the
// backend finalizes asynchronously.
type CheckoutSucceeded struct {
	TransactionID string
	Pending       bool
}

// CheckoutRedirect hands control to an external page.
type CheckoutRedirect struct {
	URL string
}

// CheckoutBlocked is a terminal refusal.
type CheckoutBlocked struct {
	Message string
}

func (CheckoutSucceeded) isCheckoutOutcome() {}
func (CheckoutRedirect) isCheckoutOutcome()  {}
func (CheckoutBlocked) isCheckoutOutcome()   {}

// DefaultBlockedMessage is used when the backend blocks without a message.
const DefaultBlockedMessage = "This payment cannot be completed"
