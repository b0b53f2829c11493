// Package session implements the payment session coordinator. A Session
// owns the state machine, the active intent and its timer pair, and
// guarantees at most one in-flight user operation.
//
//	Selecting --start--> Processing
//	Processing --rejected/expired/failed--> Error
//	Processing --signed & submitted--> Confirming
//	Processing --checkout resolved--> Success
//	Processing|Confirming --poll confirmed--> Success
//	Confirming --poll failed/expired--> Error
//	Error --retry--> Selecting
//	any --close--> Disposed
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vitwit/paysession/checkout"
	"github.com/vitwit/paysession/clients"
	"github.com/vitwit/paysession/logger"
	"github.com/vitwit/paysession/metrics"
	"github.com/vitwit/paysession/notify"
	"github.com/vitwit/paysession/scheduler"
	"github.com/vitwit/paysession/types"
	"github.com/vitwit/paysession/verification"
	"github.com/vitwit/paysession/wallet"
	"github.com/vitwit/paysession/watch"
)

const msgSubmitFailed = "Could not submit the transaction. Please try again"

// Deps are the external collaborators of a session. Crypto payments need
// Intents, Status and Submitter; card payments need Checkout. Balance and
// Verifier are optional.
type Deps struct {
	Intents   clients.IntentSource
	Status    watch.StatusSource
	Submitter clients.Submitter
	Balance   clients.BalanceChecker
	Checkout  *checkout.Orchestrator
	Verifier  *verification.Verifier
}

// Options configure a session beyond its dependencies.
type Options struct {
	ID       string
	Config   *types.Config
	Clock    scheduler.Clock
	Registry *notify.Registry
	Keys     *checkout.Keys
	Logger   logger.Logger
	Metrics  metrics.Recorder
}

// StartRequest begins a crypto payment.
type StartRequest struct {
	PriceID     string
	TokenSymbol string

	// Wallet is optional; the QR path needs none.
	Wallet *wallet.Connection
}

type Session struct {
	id       string
	cfg      *types.Config
	deps     Deps
	clock    scheduler.Clock
	registry *notify.Registry
	keys     *checkout.Keys
	logger   logger.Logger
	metrics  metrics.Recorder

	mu        sync.Mutex
	status    types.Status
	request   StartRequest
	wallet    *wallet.Connection
	intent    *types.PaymentIntent
	kind      verification.PayloadKind
	remaining int
	txID      string
	err       *types.PaymentError
	redirect  string
	pair      *watch.Pair

	// epoch changes whenever the active intent is replaced or dropped;
	// callbacks and responses carrying an older epoch are ignored.
	epoch uint64

	// op identifies the in-flight user operation while busy is set.
	op   uint64
	busy bool

	blocked map[string]string

	pendingSuccess *types.SuccessPayload
	settleTimer    scheduler.Timer
}

func New(deps Deps, opts Options) *Session {
	cfg := opts.Config
	if cfg == nil {
		cfg = types.DefaultConfig()
	} else {
		cfg = cfg.WithDefaults()
	}

	s := &Session{
		id:       opts.ID,
		cfg:      cfg,
		deps:     deps,
		clock:    opts.Clock,
		registry: opts.Registry,
		keys:     opts.Keys,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		status:   types.StatusSelecting,
		blocked:  make(map[string]string),
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	if s.clock == nil {
		s.clock = scheduler.Real()
	}
	if s.registry == nil {
		s.registry = notify.NewRegistry()
	}
	if s.keys == nil {
		s.keys = checkout.NewKeys(nil)
	}
	if s.logger == nil {
		s.logger = logger.NoopLogger{}
	}
	if s.metrics == nil {
		s.metrics = metrics.NoopRecorder{}
	}
	s.logger = s.logger.With(map[string]any{"session_id": s.id})

	return s
}

func (s *Session) ID() string {
	return s.id
}

// Snapshot returns a consistent read-only view.
func (s *Session) Snapshot() types.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := types.Snapshot{
		SessionID:     s.id,
		Status:        s.status,
		Remaining:     s.remaining,
		TransactionID: s.txID,
		RedirectURL:   s.redirect,
	}
	if s.intent != nil {
		intent := *s.intent
		snap.Intent = &intent
	}
	if s.err != nil {
		snap.ErrorCode = s.err.Code
		snap.ErrorMessage = s.err.Message
		snap.CanRetry = s.err.Retryable
	}
	return snap
}

// IdempotencyKey returns the current checkout attempt key.
func (s *Session) IdempotencyKey() string {
	return s.keys.Current()
}

// SetWallet attaches a wallet connected after the session started.
func (s *Session) SetWallet(conn *wallet.Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallet = conn
}

// outbox collects notifications while the lock is held; they are
// delivered after it is released.
type outbox []func()

func (o *outbox) add(f func()) {
	*o = append(*o, f)
}

func (o outbox) flush() {
	for _, f := range o {
		f()
	}
}

// beginLocked marks a user operation in flight and returns its token.
func (s *Session) beginLocked() uint64 {
	s.op++
	s.busy = true
	return s.op
}

// endLocked clears busy if op is still the current operation.
func (s *Session) endLocked(op uint64) bool {
	if s.op != op {
		return false
	}
	s.busy = false
	return true
}

func (s *Session) transitionLocked(to types.Status, out *outbox) {
	if s.status == to {
		return
	}
	from := s.status
	s.status = to

	s.logger.Info("session transition", map[string]any{
		"from":     string(from),
		"state":    string(to),
		"terminal": to.IsTerminal(),
	})
	s.metrics.IncCounter(metrics.SessionTransitions, map[string]string{"outcome": string(to)})
	id := s.id
	out.add(func() { s.registry.Status(id, to) })
}

func (s *Session) stopPairLocked() {
	if s.pair != nil {
		s.pair.Stop()
		s.pair = nil
	}
}

func (s *Session) failLocked(perr *types.PaymentError, out *outbox) {
	s.stopPairLocked()
	s.err = perr
	s.txID = ""
	s.transitionLocked(types.StatusError, out)

	s.logger.Warn("payment failed", map[string]any{"code": perr.Code, "error": perr.Error()})
	id := s.id
	out.add(func() { s.registry.Error(id, perr) })
}

func (s *Session) succeedLocked(payload types.SuccessPayload, out *outbox) {
	s.stopPairLocked()
	s.err = nil
	s.txID = payload.TransactionID
	s.transitionLocked(types.StatusSuccess, out)

	payload.SessionID = s.id
	if s.cfg.SettleDelay <= 0 {
		out.add(func() { s.registry.Success(payload) })
		return
	}

	s.pendingSuccess = &payload
	s.settleTimer = s.clock.AfterFunc(s.cfg.SettleDelay, s.flushSuccess)
}

func (s *Session) flushSuccess() {
	s.mu.Lock()
	p := s.pendingSuccess
	s.pendingSuccess = nil
	s.settleTimer = nil
	s.mu.Unlock()

	if p != nil {
		s.registry.Success(*p)
	}
}

func (s *Session) timeoutCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.RequestTimeout)
}

func (s *Session) observe(operation string, start time.Time) {
	s.metrics.ObserveLatency(metrics.BackendCall, s.clock.Now().Sub(start), map[string]string{"outcome": operation})
}

func invalidState(op string, status types.Status) *types.PaymentError {
	return types.NewError(types.ErrCodeInvalidState, fmt.Sprintf("cannot %s while %s", op, status), nil)
}
