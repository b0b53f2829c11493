package paysession

import (
	"github.com/vitwit/paysession/clients"
	"github.com/vitwit/paysession/logger"
	"github.com/vitwit/paysession/metrics"
	"github.com/vitwit/paysession/notify"
	"github.com/vitwit/paysession/scheduler"
)

type Option func(*Engine)

func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(e *Engine) {
		e.metrics = r
	}
}

// WithClock replaces the wall clock, mostly for tests.
func WithClock(c scheduler.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithRegistry shares a notification registry between engines.
func WithRegistry(r *notify.Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

func WithBackend(b *clients.Backend) Option {
	return func(e *Engine) {
		e.backend = b
	}
}

func WithSolanaLedger(l *clients.SolanaLedger) Option {
	return func(e *Engine) {
		e.ledger = l
	}
}
