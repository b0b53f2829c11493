package watch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitwit/paysession/scheduler/fakeclock"
	"github.com/vitwit/paysession/types"
)

var epoch = time.Unix(1_700_000_000, 0)

type scriptedSource struct {
	mu      sync.Mutex
	results []types.PollResult
	errs    []error
	calls   int
}

func (s *scriptedSource) Status(_ context.Context, _ string) (types.PollResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i < len(s.results) {
		return s.results[i], nil
	}
	return types.Pending{}, nil
}

func TestCountdown_ExpiresOnce(t *testing.T) {
	clock := fakeclock.New(epoch)
	var ticks []int
	expired := 0

	c := StartCountdown(CountdownConfig{
		Clock:     clock,
		Interval:  time.Second,
		ExpiresAt: epoch.Add(2 * time.Second),
		OnTick:    func(r int) { ticks = append(ticks, r) },
		OnExpire:  func() { expired++ },
	})
	assert.Equal(t, 2, c.Remaining())

	clock.Advance(10 * time.Second)

	assert.Equal(t, []int{1, 0}, ticks)
	assert.Equal(t, 1, expired)
	assert.False(t, c.Alive())
	assert.Zero(t, c.Remaining())
}

func TestCountdown_StopIsIdempotent(t *testing.T) {
	clock := fakeclock.New(epoch)
	expired := 0
	c := StartCountdown(CountdownConfig{
		Clock:     clock,
		Interval:  time.Second,
		ExpiresAt: epoch.Add(time.Second),
		OnExpire:  func() { expired++ },
	})

	c.Stop()
	c.Stop()
	clock.Advance(5 * time.Second)

	assert.Zero(t, expired)
	assert.Zero(t, clock.Pending())
}

func TestPoller_ConfirmsAfterPending(t *testing.T) {
	clock := fakeclock.New(epoch)
	src := &scriptedSource{results: []types.PollResult{
		types.Pending{Raw: "pending"},
		types.Pending{Raw: "pending"},
		types.Confirmed{TransactionID: "tx1"},
	}}
	var confirmed string

	p := StartPoller(PollerConfig{
		Clock:       clock,
		Interval:    4 * time.Second,
		Reference:   "r1",
		Source:      src,
		OnConfirmed: func(tx string) { confirmed = tx },
	})

	clock.Advance(8 * time.Second)
	assert.Empty(t, confirmed)
	assert.True(t, p.Alive())

	clock.Advance(4 * time.Second)
	assert.Equal(t, "tx1", confirmed)
	assert.False(t, p.Alive())

	clock.Advance(20 * time.Second)
	assert.Equal(t, 3, src.calls)
}

func TestPoller_SwallowsTransientErrors(t *testing.T) {
	clock := fakeclock.New(epoch)
	src := &scriptedSource{
		errs:    []error{errors.New("connection reset"), errors.New("timeout")},
		results: []types.PollResult{nil, nil, types.Failed{Reason: "rejected by ledger"}},
	}
	var reason string

	p := StartPoller(PollerConfig{
		Clock:     clock,
		Interval:  4 * time.Second,
		Reference: "r1",
		Source:    src,
		OnFailed:  func(r string) { reason = r },
	})

	clock.Advance(8 * time.Second)
	assert.True(t, p.Alive())
	assert.Empty(t, reason)

	clock.Advance(4 * time.Second)
	assert.Equal(t, "rejected by ledger", reason)
	assert.False(t, p.Alive())
}

func TestPair_StopsTogether(t *testing.T) {
	clock := fakeclock.New(epoch)
	src := &scriptedSource{results: []types.PollResult{types.Confirmed{TransactionID: "tx9"}}}
	var gotTx string
	var aliveInCallback bool

	var pair *Pair
	pair = StartPair(PairConfig{
		Clock:             clock,
		Reference:         "r1",
		ExpiresAt:         epoch.Add(time.Minute),
		PollInterval:      4 * time.Second,
		CountdownInterval: time.Second,
		Source:            src,
		OnConfirmed: func(tx string) {
			gotTx = tx
			aliveInCallback = !pair.Dead()
		},
	})
	require.True(t, pair.Alive())

	clock.Advance(4 * time.Second)

	assert.Equal(t, "tx9", gotTx)
	assert.False(t, aliveInCallback)
	assert.True(t, pair.Dead())
	assert.Zero(t, clock.Pending())
}

func TestPair_ExpiryStopsPoller(t *testing.T) {
	clock := fakeclock.New(epoch)
	src := &scriptedSource{}
	expired := false

	pair := StartPair(PairConfig{
		Clock:             clock,
		Reference:         "r1",
		ExpiresAt:         epoch.Add(2 * time.Second),
		PollInterval:      4 * time.Second,
		CountdownInterval: time.Second,
		Source:            src,
		OnExpire:          func() { expired = true },
	})

	clock.Advance(2 * time.Second)
	assert.True(t, expired)
	assert.True(t, pair.Dead())

	clock.Advance(10 * time.Second)
	assert.Zero(t, src.calls)
}
