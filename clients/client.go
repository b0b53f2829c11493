package clients

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/vitwit/paysession/types"
)

// IntentSource creates time-boxed payment intents.
type IntentSource interface {
	CreateIntent(ctx context.Context, req types.IntentRequest) (*types.PaymentIntent, error)
}

// StatusSource reports the status of an intent reference.
type StatusSource interface {
	Status(ctx context.Context, reference string) (types.PollResult, error)
}

// Submitter hands a wallet-signed transaction to the backend or ledger.
type Submitter interface {
	SubmitSignedTransaction(ctx context.Context, sub types.SignedSubmission) error
}

// BalanceChecker is an optional pre-flight before prompting the wallet.
// It returns an InsufficientBalance error only when the balance is known
// to be short.
type BalanceChecker interface {
	CheckBalance(ctx context.Context, owner string, amount decimal.Decimal, token string) error
}
