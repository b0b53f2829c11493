package utils

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vitwit/paysession/types"
)

// intentWire is the backend create-intent response. Amounts may arrive as
// numbers or strings; expiry as epoch seconds, epoch milliseconds or
// RFC 3339.
type intentWire struct {
	Reference   string          `json:"reference"`
	IntentID    string          `json:"intentId"`
	Payload     string          `json:"payload"`
	Transaction string          `json:"transaction"`
	URL         string          `json:"url"`
	Amount      decimal.Decimal `json:"amount"`
	TokenAmount decimal.Decimal `json:"tokenAmount"`
	TokenSymbol string          `json:"tokenSymbol"`
	ExpiresAt   json.RawMessage `json:"expiresAt"`
}

// ParsePaymentIntent decodes and validates a create-intent response.
func ParsePaymentIntent(data []byte) (*types.PaymentIntent, error) {
	var w intentWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to parse payment intent: %w", err)
	}

	expiresAt, err := ParseExpiry(w.ExpiresAt)
	if err != nil {
		return nil, err
	}

	payload := w.Payload
	if payload == "" {
		payload = w.Transaction
	}
	if payload == "" {
		payload = w.URL
	}

	intent := &types.PaymentIntent{
		Reference:   w.Reference,
		IntentID:    w.IntentID,
		AmountFiat:  w.Amount,
		TokenAmount: w.TokenAmount,
		TokenSymbol: w.TokenSymbol,
		Payload:     payload,
		ExpiresAt:   expiresAt,
	}

	if err := ValidateStruct(intent); err != nil {
		return nil, err
	}
	if intent.TokenAmount.IsNegative() || intent.AmountFiat.IsNegative() {
		return nil, fmt.Errorf("payment intent amounts cannot be negative")
	}
	return intent, nil
}

// ParseExpiry accepts epoch seconds, epoch milliseconds or an RFC 3339
// string.
func ParseExpiry(raw json.RawMessage) (time.Time, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return time.Time{}, fmt.Errorf("expiresAt is required")
	}

	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return time.Time{}, fmt.Errorf("invalid expiresAt: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, str); err == nil {
			return t, nil
		}
		s = str
	}

	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid expiresAt %q", s)
	}
	// anything past year 33658 in seconds is really milliseconds
	if n > 1e12 {
		return time.UnixMilli(int64(n)), nil
	}
	return time.Unix(int64(n), 0), nil
}
