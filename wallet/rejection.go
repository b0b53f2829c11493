package wallet

import (
	"errors"
	"strings"
)

// ErrUserRejected may be returned or wrapped by wallet integrations when
// the user declines a prompt.
var ErrUserRejected = errors.New("wallet: user rejected the request")

// CodeUserRejected is the EIP-1193 provider code for a declined request,
// also used by the Solana wallet standard.
const CodeUserRejected = 4001

type rejecter interface {
	UserRejected() bool
}

type coder interface {
	Code() int
}

// rejectionPhrases are matched when a wallet gives no structured signal.
var rejectionPhrases = []string{
	"user rejected",
	"user denied",
	"user declined",
	"rejected the request",
}

// IsUserRejection recognizes a user declining the wallet prompt. Structured
// signals win: ErrUserRejected, an error reporting UserRejected() true, or
// an error with Code() 4001. Otherwise the lowercased message is matched
// against a short list of phrases wallets are known to use.
func IsUserRejection(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUserRejected) {
		return true
	}

	var r rejecter
	if errors.As(err, &r) {
		return r.UserRejected()
	}

	var c coder
	if errors.As(err, &c) && c.Code() == CodeUserRejected {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, phrase := range rejectionPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}
