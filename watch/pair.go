package watch

import (
	"sync"
	"time"

	"github.com/vitwit/paysession/logger"
	"github.com/vitwit/paysession/metrics"
	"github.com/vitwit/paysession/scheduler"
)

// PairConfig binds a countdown and a poller to one intent.
type PairConfig struct {
	Clock             scheduler.Clock
	Reference         string
	ExpiresAt         time.Time
	PollInterval      time.Duration
	CountdownInterval time.Duration
	RequestTimeout    time.Duration
	Source            StatusSource

	OnTick      func(remaining int)
	OnExpire    func()
	OnConfirmed func(transactionID string)
	OnFailed    func(reason string)

	Logger  logger.Logger
	Metrics metrics.Recorder
}

// Pair owns the countdown and poller of one intent. Both are started
// together and stopped together; a terminal event from either stops the
// pair before its callback runs.
type Pair struct {
	reference string
	mu        sync.Mutex
	countdown *Countdown
	poller    *Poller
	stopped   bool
}

func StartPair(cfg PairConfig) *Pair {
	p := &Pair{reference: cfg.Reference}

	// held until both timers exist so an early callback cannot stop half a pair
	p.mu.Lock()
	defer p.mu.Unlock()

	p.countdown = StartCountdown(CountdownConfig{
		Clock:     cfg.Clock,
		Interval:  cfg.CountdownInterval,
		ExpiresAt: cfg.ExpiresAt,
		OnTick:    cfg.OnTick,
		OnExpire: func() {
			p.Stop()
			if cfg.OnExpire != nil {
				cfg.OnExpire()
			}
		},
	})

	p.poller = StartPoller(PollerConfig{
		Clock:     cfg.Clock,
		Interval:  cfg.PollInterval,
		Timeout:   cfg.RequestTimeout,
		Reference: cfg.Reference,
		Source:    cfg.Source,
		OnConfirmed: func(txID string) {
			p.Stop()
			if cfg.OnConfirmed != nil {
				cfg.OnConfirmed(txID)
			}
		},
		OnFailed: func(reason string) {
			p.Stop()
			if cfg.OnFailed != nil {
				cfg.OnFailed(reason)
			}
		},
		Logger:  cfg.Logger,
		Metrics: cfg.Metrics,
	})

	return p
}

func (p *Pair) Reference() string {
	return p.reference
}

// Stop cancels both timers. Safe to call repeatedly and from callbacks.
func (p *Pair) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.stopped = true
	p.poller.Stop()
	p.countdown.Stop()
}

// Alive reports whether both timers are running.
func (p *Pair) Alive() bool {
	return p.countdown.Alive() && p.poller.Alive()
}

// Dead reports whether both timers are stopped.
func (p *Pair) Dead() bool {
	return !p.countdown.Alive() && !p.poller.Alive()
}

func (p *Pair) Remaining() int {
	return p.countdown.Remaining()
}
