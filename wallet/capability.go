// Package wallet negotiates transaction signing with a connected wallet.
// A wallet exposes a subset of the capability interfaces below; the set is
// resolved once per connection into a signing strategy.
package wallet

import (
	"context"

	"github.com/vitwit/paysession/types"
)

// Wallet is the minimal connected wallet. PublicKey may be empty when
// the wallet has not shared an account yet.
type Wallet interface {
	PublicKey() string
}

// TransactionSigner signs any transaction the wallet understands.
type TransactionSigner interface {
	SignTransaction(ctx context.Context, tx []byte) ([]byte, error)
}

// VersionedTransactionSigner signs versioned transactions.
type VersionedTransactionSigner interface {
	SignVersionedTransaction(ctx context.Context, tx []byte) ([]byte, error)
}

// VersionDeclarer advertises which transaction versions a wallet accepts.
type VersionDeclarer interface {
	SupportedTransactionVersions() []types.TransactionVersion
}

// Capabilities is the resolved capability set of one connection.
type Capabilities struct {
	Generic   TransactionSigner
	Versioned VersionedTransactionSigner

	// Versions is nil when the wallet declares nothing.
	Versions map[types.TransactionVersion]struct{}
}

func (c Capabilities) CanSign() bool {
	return c.Generic != nil || c.Versioned != nil
}

// Supports reports whether version is accepted. Undeclared wallets are
// assumed to accept everything.
func (c Capabilities) Supports(version types.TransactionVersion) bool {
	if c.Versions == nil {
		return true
	}
	_, ok := c.Versions[version]
	return ok
}

// Detect inspects w once and records which capabilities it exposes.
func Detect(w Wallet) Capabilities {
	var caps Capabilities
	if s, ok := w.(TransactionSigner); ok {
		caps.Generic = s
	}
	if s, ok := w.(VersionedTransactionSigner); ok {
		caps.Versioned = s
	}
	if d, ok := w.(VersionDeclarer); ok {
		if declared := d.SupportedTransactionVersions(); declared != nil {
			caps.Versions = make(map[types.TransactionVersion]struct{}, len(declared))
			for _, v := range declared {
				caps.Versions[v] = struct{}{}
			}
		}
	}
	return caps
}
