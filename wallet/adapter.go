package wallet

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/vitwit/paysession/logger"
	"github.com/vitwit/paysession/metrics"
	"github.com/vitwit/paysession/types"
)

// User-facing messages
const (
	msgInvalidPayload     = "The payment transaction could not be read. Please request a new one"
	msgUnsupportedVersion = "Your wallet does not support this transaction type. Please switch wallets"
	msgCannotSign         = "Your wallet cannot sign this transaction. Please switch wallets or payment method"
	msgUserRejected       = "Transaction was rejected in your wallet"
	msgSigningFailed      = "Your wallet failed to sign the transaction"
)

// Adapter turns a transaction blob into a signed blob using a connected
// wallet.
type Adapter struct {
	codec   Codec
	logger  logger.Logger
	metrics metrics.Recorder
}

type AdapterOption func(*Adapter)

func WithLogger(l logger.Logger) AdapterOption {
	return func(a *Adapter) {
		a.logger = l
	}
}

func WithMetrics(r metrics.Recorder) AdapterOption {
	return func(a *Adapter) {
		a.metrics = r
	}
}

func NewAdapter(codec Codec, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		codec:   codec,
		logger:  logger.NoopLogger{},
		metrics: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewSolanaAdapter is an Adapter for Solana wallets.
func NewSolanaAdapter(opts ...AdapterOption) *Adapter {
	return NewAdapter(SolanaCodec{}, opts...)
}

// Connection is a wallet whose capabilities have been resolved.
type Connection struct {
	adapter *Adapter
	wallet  Wallet
	caps    Capabilities
}

// Connect resolves the wallet's signing capabilities. A wallet with no
// signing method fails with WalletCannotSign.
func (a *Adapter) Connect(w Wallet) (*Connection, error) {
	if w == nil {
		return nil, types.NewError(types.ErrCodeWalletCannotSign, msgCannotSign, fmt.Errorf("no wallet connected"))
	}

	caps := Detect(w)
	if !caps.CanSign() {
		return nil, types.NewError(types.ErrCodeWalletCannotSign, msgCannotSign, fmt.Errorf("wallet exposes no signing method"))
	}

	return &Connection{adapter: a, wallet: w, caps: caps}, nil
}

func (c *Connection) PublicKey() string {
	return c.wallet.PublicKey()
}

func (c *Connection) Capabilities() Capabilities {
	return c.caps
}

// SignPayload decodes a base64 transaction, signs it and returns the
// signed transaction as base64.
func (c *Connection) SignPayload(ctx context.Context, payload string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", types.NewError(types.ErrCodeInvalidTransactionPayload, msgInvalidPayload, fmt.Errorf("invalid base64: %w", err))
	}

	signed, err := c.Sign(ctx, raw)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(signed), nil
}

// Sign detects the transaction shape, checks version support and calls
// the wallet's preferred signing method. This opens a wallet prompt.
func (c *Connection) Sign(ctx context.Context, raw []byte) ([]byte, error) {
	tx, err := c.adapter.codec.Decode(raw)
	if err != nil {
		return nil, types.NewError(types.ErrCodeInvalidTransactionPayload, msgInvalidPayload, err)
	}

	if tx.IsVersioned() && !c.caps.Supports(tx.Version) {
		return nil, types.NewError(types.ErrCodeUnsupportedWalletVersion, msgUnsupportedVersion,
			fmt.Errorf("transaction version %s not supported by wallet", tx.Version))
	}

	sign, method, err := c.strategy(tx)
	if err != nil {
		return nil, err
	}

	c.adapter.logger.Debug("requesting wallet signature", map[string]any{
		"format":  tx.Format,
		"version": tx.Version.String(),
		"method":  method,
	})
	c.adapter.metrics.IncCounter(metrics.WalletPrompt, map[string]string{"outcome": method})

	signed, err := sign(ctx, tx.Raw)
	if err != nil {
		if IsUserRejection(err) {
			return nil, types.NewError(types.ErrCodeUserRejected, msgUserRejected, err)
		}
		return nil, types.NewError(types.ErrCodeWalletCannotSign, msgSigningFailed, err)
	}
	if len(signed) == 0 {
		return nil, types.NewError(types.ErrCodeWalletCannotSign, msgSigningFailed, fmt.Errorf("wallet returned an empty transaction"))
	}

	return signed, nil
}

type signFunc func(ctx context.Context, tx []byte) ([]byte, error)

func (c *Connection) strategy(tx types.WalletTransaction) (signFunc, string, error) {
	if tx.IsVersioned() && c.caps.Versioned != nil {
		return c.caps.Versioned.SignVersionedTransaction, "signVersionedTransaction", nil
	}
	if c.caps.Generic != nil {
		return c.caps.Generic.SignTransaction, "signTransaction", nil
	}
	return nil, "", types.NewError(types.ErrCodeWalletCannotSign, msgCannotSign,
		fmt.Errorf("no signing method for %s transaction", tx.Version))
}
