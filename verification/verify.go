// Package verification checks a backend-issued payment intent before it is
// shown to the user: the payload must be either a Solana Pay transfer URI
// for the QR path or a transaction the wallet codec can read.
package verification

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/vitwit/paysession/types"
	"github.com/vitwit/paysession/utils"
	"github.com/vitwit/paysession/wallet"
)

const msgUnreadablePayload = "The payment request could not be read. Please refresh and try again"

// PayloadKind tells the QR path apart from the wallet path.
type PayloadKind int

const (
	PayloadUnknown PayloadKind = iota
	PayloadPaymentURI
	PayloadTransaction
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadPaymentURI:
		return "payment_uri"
	case PayloadTransaction:
		return "transaction"
	default:
		return "unknown"
	}
}

// Result describes a verified intent payload.
type Result struct {
	Kind PayloadKind

	// Transfer request fields, set for PayloadPaymentURI
	Recipient  string
	Amount     decimal.Decimal
	SPLToken   string
	References []string
	Label      string
	Message    string
	Memo       string

	// Set for PayloadTransaction
	Transaction *types.WalletTransaction
}

type Verifier struct {
	codec wallet.Codec
}

// New returns a Verifier that decodes transaction payloads with codec.
// A nil codec uses the Solana codec.
func New(codec wallet.Codec) *Verifier {
	if codec == nil {
		codec = wallet.SolanaCodec{}
	}
	return &Verifier{codec: codec}
}

// Verify checks intent at now. Unreadable payloads fail with
// InvalidTransactionPayload and intents already past their expiry with
// Expired.
func (v *Verifier) Verify(intent *types.PaymentIntent, now time.Time) (*Result, error) {
	if intent == nil {
		return nil, invalid(fmt.Errorf("no intent"))
	}
	if !intent.ExpiresAt.After(now) {
		return nil, types.NewError(types.ErrCodeExpired, types.ExpiredMessage, nil)
	}

	payload := strings.TrimSpace(intent.Payload)
	if strings.HasPrefix(payload, "solana:") {
		res, err := ParsePaymentURI(payload)
		if err != nil {
			return nil, invalid(err)
		}
		if err := matchIntent(res, intent); err != nil {
			return nil, invalid(err)
		}
		return res, nil
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, invalid(fmt.Errorf("payload is neither a payment URI nor base64: %w", err))
	}
	tx, err := v.codec.Decode(raw)
	if err != nil {
		return nil, invalid(err)
	}
	return &Result{Kind: PayloadTransaction, Transaction: &tx}, nil
}

// matchIntent rejects a URI that disagrees with the intent it came with.
func matchIntent(res *Result, intent *types.PaymentIntent) error {
	if len(res.References) > 0 {
		found := false
		for _, ref := range res.References {
			if ref == intent.Reference {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("payment URI does not carry reference %s", intent.Reference)
		}
	}

	if !res.Amount.IsZero() && !intent.TokenAmount.IsZero() && !res.Amount.Equal(intent.TokenAmount) {
		return fmt.Errorf("payment URI amount %s does not match intent amount %s", res.Amount, intent.TokenAmount)
	}
	return nil
}

// ParsePaymentURI parses a Solana Pay transfer request of the form
// solana:<recipient>?amount=<n>&spl-token=<mint>&reference=<key>&label=..
func ParsePaymentURI(raw string) (*Result, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid payment URI: %w", err)
	}
	if u.Scheme != "solana" {
		return nil, fmt.Errorf("unsupported URI scheme %q", u.Scheme)
	}

	recipient := u.Opaque
	if recipient == "" {
		return nil, fmt.Errorf("payment URI has no recipient")
	}
	if _, err := solana.PublicKeyFromBase58(recipient); err != nil {
		return nil, fmt.Errorf("invalid recipient %s: %w", recipient, err)
	}

	q := u.Query()
	res := &Result{
		Kind:       PayloadPaymentURI,
		Recipient:  recipient,
		References: q["reference"],
		Label:      q.Get("label"),
		Message:    q.Get("message"),
		Memo:       q.Get("memo"),
	}

	if amt := q.Get("amount"); amt != "" {
		d, err := utils.ValidateAmount(amt)
		if err != nil {
			return nil, err
		}
		if d.IsZero() {
			return nil, fmt.Errorf("amount must be positive, got %s", amt)
		}
		res.Amount = d
	}

	if mint := q.Get("spl-token"); mint != "" {
		if _, err := solana.PublicKeyFromBase58(mint); err != nil {
			return nil, fmt.Errorf("invalid spl-token %s: %w", mint, err)
		}
		res.SPLToken = mint
	}

	return res, nil
}

func invalid(err error) *types.PaymentError {
	return types.NewError(types.ErrCodeInvalidTransactionPayload, msgUnreadablePayload, err)
}
