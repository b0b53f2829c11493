package checkout

import (
	"sync"

	"github.com/google/uuid"
)

// KeyFunc generates a fresh idempotency key.
type KeyFunc func() string

// Keys owns the idempotency key of one logical checkout attempt. The key
// is stable while the price selection stays the same and rotates when it
// changes. A new Keys value starts a new attempt.
type Keys struct {
	newKey KeyFunc

	mu      sync.Mutex
	priceID string
	key     string
}

func NewKeys(newKey KeyFunc) *Keys {
	if newKey == nil {
		newKey = uuid.NewString
	}
	return &Keys{newKey: newKey}
}

// For returns the key for priceID, generating one on first use or when the
// price selection changed.
func (k *Keys) For(priceID string) string {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.key == "" || k.priceID != priceID {
		k.priceID = priceID
		k.key = k.newKey()
	}
	return k.key
}

// Current returns the active key, or "" before the first checkout.
func (k *Keys) Current() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.key
}
