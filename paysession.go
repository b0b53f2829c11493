// Package paysession drives client-side payment sessions: crypto payments
// through a time-boxed intent with a countdown and status polling, and
// card or alternate-processor checkouts through an idempotent backend call.
package paysession

import (
	"sync"

	"github.com/google/uuid"

	"github.com/vitwit/paysession/checkout"
	"github.com/vitwit/paysession/clients"
	"github.com/vitwit/paysession/logger"
	"github.com/vitwit/paysession/metrics"
	"github.com/vitwit/paysession/notify"
	"github.com/vitwit/paysession/scheduler"
	"github.com/vitwit/paysession/session"
	"github.com/vitwit/paysession/types"
	"github.com/vitwit/paysession/verification"
)

// Engine creates sessions sharing one configuration, clock, logger,
// metrics recorder and notification registry.
type Engine struct {
	config   *types.Config
	logger   logger.Logger
	metrics  metrics.Recorder
	clock    scheduler.Clock
	registry *notify.Registry

	backend *clients.Backend
	ledger  *clients.SolanaLedger

	checkout *checkout.Orchestrator
	verifier *verification.Verifier

	mu       sync.Mutex
	sessions map[string]*session.Session
}

// New creates an Engine. A nil config uses types.DefaultConfig.
func New(config *types.Config, opts ...Option) (*Engine, error) {
	if config == nil {
		config = types.DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		config:   config.WithDefaults(),
		logger:   logger.NoopLogger{},
		metrics:  metrics.NoopRecorder{},
		clock:    scheduler.Real(),
		registry: notify.NewRegistry(),
		verifier: verification.New(nil),
		sessions: make(map[string]*session.Session),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.backend != nil {
		e.checkout = checkout.NewOrchestrator(e.backend,
			checkout.WithLogger(e.logger),
			checkout.WithMetrics(e.metrics),
			checkout.WithTimeout(e.config.RequestTimeout),
			checkout.WithRetries(e.config.CheckoutMaxRetries),
		)
	}

	return e, nil
}

// Deps returns the collaborators handed to new sessions. The HTTP backend
// serves intents, status, submission and checkout; a Solana ledger, when
// configured, adds the balance pre-flight and stands in for status and
// submission when there is no backend.
func (e *Engine) Deps() session.Deps {
	deps := session.Deps{Verifier: e.verifier}
	if e.backend != nil {
		deps.Intents = e.backend
		deps.Status = e.backend
		deps.Submitter = e.backend
		deps.Checkout = e.checkout
	}
	if e.ledger != nil {
		deps.Balance = e.ledger
		if deps.Submitter == nil {
			deps.Submitter = e.ledger
		}
		if deps.Status == nil {
			deps.Status = e.ledger
		}
	}
	return deps
}

// NewSession creates a session whose events are delivered to sink.
func (e *Engine) NewSession(sink notify.Sink) *session.Session {
	return e.NewSessionWith(e.Deps(), sink)
}

// NewSessionWith creates a session with explicit dependencies.
func (e *Engine) NewSessionWith(deps session.Deps, sink notify.Sink) *session.Session {
	id := uuid.NewString()
	if sink != nil {
		e.registry.Register(id, sink)
	}

	s := session.New(deps, session.Options{
		ID:       id,
		Config:   e.config,
		Clock:    e.clock,
		Registry: e.registry,
		Logger:   e.logger,
		Metrics:  e.metrics,
	})

	e.mu.Lock()
	e.sessions[id] = s
	e.mu.Unlock()

	e.logger.Debug("session created", map[string]any{"session_id": id})
	return s
}

// Session returns a session created by this engine.
func (e *Engine) Session(id string) (*session.Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[id]
	return s, ok
}

// Release closes and forgets one session.
func (e *Engine) Release(id string) {
	e.mu.Lock()
	s, ok := e.sessions[id]
	delete(e.sessions, id)
	e.mu.Unlock()

	if ok {
		s.Close()
	}
}

func (e *Engine) Registry() *notify.Registry {
	return e.registry
}

func (e *Engine) Config() *types.Config {
	return e.config
}

// Close closes every session still held by the engine.
func (e *Engine) Close() {
	e.mu.Lock()
	sessions := e.sessions
	e.sessions = make(map[string]*session.Session)
	e.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

const Version = "1.0.0"
