package session

import (
	"github.com/vitwit/paysession/types"
	"github.com/vitwit/paysession/verification"
)

// Retry leaves the Error state. The active intent is dropped; the next
// Start creates a new one. The checkout idempotency key is kept so a
// retry of the same price is recognized as the same attempt.
func (s *Session) Retry() error {
	var out outbox
	defer func() { out.flush() }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != types.StatusError {
		return invalidState("retry", s.status)
	}

	s.stopPairLocked()
	s.epoch++
	s.op++
	s.busy = false
	s.intent = nil
	s.kind = verification.PayloadUnknown
	s.remaining = 0
	s.txID = ""
	s.err = nil
	s.redirect = ""
	s.transitionLocked(types.StatusSelecting, &out)
	return nil
}

// Close tears the session down. Timers are stopped, in-flight results are
// discarded and a success notification still waiting on the settle delay
// is delivered immediately. Close is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.status == types.StatusDisposed {
		s.mu.Unlock()
		return
	}

	s.stopPairLocked()
	s.epoch++
	s.op++
	s.busy = false
	s.status = types.StatusDisposed

	pending := s.pendingSuccess
	s.pendingSuccess = nil
	if s.settleTimer != nil {
		s.settleTimer.Stop()
		s.settleTimer = nil
	}
	s.mu.Unlock()

	s.logger.Info("session closed", nil)
	if pending != nil {
		s.registry.Success(*pending)
	}
	s.registry.Unregister(s.id)
}

// Alive reports whether a countdown and poller are currently running.
func (s *Session) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pair != nil && s.pair.Alive()
}
