package clients

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	binary "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"

	"github.com/vitwit/paysession/logger"
	"github.com/vitwit/paysession/types"
	"github.com/vitwit/paysession/utils"
)

const lamportDecimals = 9

// SPLToken describes a token whose balance can be pre-checked.
type SPLToken struct {
	Mint     solana.PublicKey
	Decimals int32
}

// SolanaLedger reads Solana Pay payment status directly from the chain:
// the intent reference is a public key included in the payment transfer,
// so the newest signature touching it is the payment.
type SolanaLedger struct {
	client     *rpc.Client
	commitment rpc.CommitmentType
	tokens     map[string]SPLToken
	logger     logger.Logger
}

var (
	_ StatusSource   = (*SolanaLedger)(nil)
	_ BalanceChecker = (*SolanaLedger)(nil)
	_ Submitter      = (*SolanaLedger)(nil)
)

type SolanaOption func(*SolanaLedger)

func WithCommitment(c rpc.CommitmentType) SolanaOption {
	return func(l *SolanaLedger) {
		l.commitment = c
	}
}

// WithSPLToken enables balance pre-checks for symbol.
func WithSPLToken(symbol string, token SPLToken) SolanaOption {
	return func(l *SolanaLedger) {
		l.tokens[strings.ToUpper(symbol)] = token
	}
}

func WithSolanaLogger(lg logger.Logger) SolanaOption {
	return func(l *SolanaLedger) {
		l.logger = lg
	}
}

func NewSolanaLedger(rpcURL string, opts ...SolanaOption) *SolanaLedger {
	l := &SolanaLedger{
		client:     rpc.New(rpcURL),
		commitment: rpc.CommitmentConfirmed,
		tokens:     map[string]SPLToken{},
		logger:     logger.NoopLogger{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Status looks up the newest signature referencing the intent.
func (l *SolanaLedger) Status(ctx context.Context, reference string) (types.PollResult, error) {
	ref, err := solana.PublicKeyFromBase58(reference)
	if err != nil {
		return nil, fmt.Errorf("invalid reference %q: %w", reference, err)
	}

	limit := 1
	sigs, err := l.client.GetSignaturesForAddressWithOpts(ctx, ref, &rpc.GetSignaturesForAddressOpts{
		Limit:      &limit,
		Commitment: l.commitment,
	})
	if err != nil {
		return nil, fmt.Errorf("getSignaturesForAddress: %w", err)
	}
	if len(sigs) == 0 || sigs[0] == nil {
		return types.Pending{Raw: "not_found"}, nil
	}

	sig := sigs[0]
	if sig.Err != nil {
		return types.Failed{Reason: fmt.Sprintf("Transaction failed on chain: %v", sig.Err)}, nil
	}

	switch sig.ConfirmationStatus {
	case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
		return types.Confirmed{TransactionID: sig.Signature.String()}, nil
	default:
		return types.Pending{Raw: string(sig.ConfirmationStatus)}, nil
	}
}

// CheckBalance compares the owner's SOL or configured SPL balance with
// amount. Lookup failures are logged and do not block the payment.
func (l *SolanaLedger) CheckBalance(ctx context.Context, owner string, amount decimal.Decimal, token string) error {
	pk, err := solana.PublicKeyFromBase58(owner)
	if err != nil {
		return fmt.Errorf("invalid owner %q: %w", owner, err)
	}

	symbol := strings.ToUpper(token)
	var have, need uint64

	if symbol == "SOL" {
		res, err := l.client.GetBalance(ctx, pk, l.commitment)
		if err != nil {
			l.logger.Warn("balance lookup failed", map[string]any{"owner": owner, "error": err})
			return nil
		}
		have = res.Value
		need = utils.ToBaseUnits(amount, lamportDecimals)
	} else {
		spl, ok := l.tokens[symbol]
		if !ok {
			return nil
		}
		ata, _, err := solana.FindAssociatedTokenAddress(pk, spl.Mint)
		if err != nil {
			return fmt.Errorf("associated token address: %w", err)
		}
		res, err := l.client.GetTokenAccountBalance(ctx, ata, l.commitment)
		if err != nil || res.Value == nil {
			l.logger.Warn("token balance lookup failed", map[string]any{"owner": owner, "token": symbol, "error": err})
			return nil
		}
		bal, err := decimal.NewFromString(res.Value.Amount)
		if err != nil {
			return nil
		}
		have = bal.BigInt().Uint64()
		need = utils.ToBaseUnits(amount, spl.Decimals)
	}

	if have < need {
		return types.NewError(types.ErrCodeInsufficientBalance, msgInsufficientBalance,
			fmt.Errorf("have %d, need %d base units of %s", have, need, symbol))
	}
	return nil
}

// SubmitSignedTransaction broadcasts the signed transaction directly.
// Confirmation is left to the status poller.
func (l *SolanaLedger) SubmitSignedTransaction(ctx context.Context, sub types.SignedSubmission) error {
	txBytes, err := base64.StdEncoding.DecodeString(sub.SignedTransaction)
	if err != nil {
		return types.NewError(types.ErrCodeInvalidTransactionPayload, "The signed transaction could not be read",
			fmt.Errorf("invalid tx base64: %w", err))
	}

	tx, err := solana.TransactionFromDecoder(binary.NewBinDecoder(txBytes))
	if err != nil {
		return types.NewError(types.ErrCodeInvalidTransactionPayload, "The signed transaction could not be read",
			fmt.Errorf("tx decode failed: %w", err))
	}

	sig, err := l.client.SendTransaction(ctx, tx)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "insufficient") {
			return types.NewError(types.ErrCodeInsufficientBalance, msgInsufficientBalance, err)
		}
		return types.NewError(types.ErrCodeBackendFailed, msgSubmitFailed, fmt.Errorf("broadcast failed: %w", err))
	}

	l.logger.Info("transaction broadcast", map[string]any{
		"reference": sub.Reference,
		"signature": sig.String(),
	})
	return nil
}
