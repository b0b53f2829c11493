package wallet

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/vitwit/paysession/types"
)

// Codec detects the shape of a raw transaction blob without interpreting
// its contents.
type Codec interface {
	Name() string
	Decode(raw []byte) (types.WalletTransaction, error)
}

const (
	FormatSolana = "solana"
	FormatEVM    = "evm"
)

// SolanaCodec recognizes legacy and v0 Solana transactions.
type SolanaCodec struct{}

var _ Codec = SolanaCodec{}

func (SolanaCodec) Name() string { return FormatSolana }

// Decode tries the versioned layout first and falls back to legacy. The
// solana-go decoder reads the version prefix of the message, so one pass
// covers both.
func (SolanaCodec) Decode(raw []byte) (types.WalletTransaction, error) {
	if len(raw) == 0 {
		return types.WalletTransaction{}, fmt.Errorf("empty transaction")
	}

	dec := bin.NewBinDecoder(raw)
	tx, err := solana.TransactionFromDecoder(dec)
	if err != nil {
		return types.WalletTransaction{}, fmt.Errorf("failed to decode transaction: %w", err)
	}
	if dec.Remaining() != 0 {
		return types.WalletTransaction{}, fmt.Errorf("trailing %d bytes after transaction", dec.Remaining())
	}

	version := types.LegacyTransaction
	if tx.Message.IsVersioned() {
		switch tx.Message.GetVersion() {
		case solana.MessageVersionV0:
			version = 0
		default:
			return types.WalletTransaction{}, fmt.Errorf("unknown message version %d", tx.Message.GetVersion())
		}
	}

	return types.WalletTransaction{
		Format:  FormatSolana,
		Version: version,
		Raw:     raw,
	}, nil
}

// EVMCodec recognizes legacy RLP and EIP-2718 typed transactions.
// The typed envelope number becomes the version.
type EVMCodec struct{}

var _ Codec = EVMCodec{}

func (EVMCodec) Name() string { return FormatEVM }

func (EVMCodec) Decode(raw []byte) (types.WalletTransaction, error) {
	if len(raw) == 0 {
		return types.WalletTransaction{}, fmt.Errorf("empty transaction")
	}

	var tx ethtypes.Transaction
	if err := tx.UnmarshalBinary(raw); err != nil {
		return types.WalletTransaction{}, fmt.Errorf("failed to decode transaction: %w", err)
	}

	version := types.LegacyTransaction
	if tx.Type() != ethtypes.LegacyTxType {
		version = types.TransactionVersion(tx.Type())
	}

	return types.WalletTransaction{
		Format:  FormatEVM,
		Version: version,
		Raw:     raw,
	}, nil
}
