package watch

import (
	"context"
	"time"

	"github.com/vitwit/paysession/logger"
	"github.com/vitwit/paysession/metrics"
	"github.com/vitwit/paysession/scheduler"
	"github.com/vitwit/paysession/types"
)

// StatusSource reports the current status of an intent reference.
type StatusSource interface {
	Status(ctx context.Context, reference string) (types.PollResult, error)
}

// PollerConfig configures a status poller.
type PollerConfig struct {
	Clock     scheduler.Clock
	Interval  time.Duration
	Timeout   time.Duration
	Reference string
	Source    StatusSource

	OnConfirmed func(transactionID string)
	OnFailed    func(reason string)

	Logger  logger.Logger
	Metrics metrics.Recorder
}

// Poller asks the backend for the status of one reference until a
// terminal answer arrives or it is stopped. Request errors are logged and
// the poller keeps going.
type Poller struct {
	cfg  PollerConfig
	task *scheduler.Task
}

func StartPoller(cfg PollerConfig) *Poller {
	if cfg.Logger == nil {
		cfg.Logger = logger.NoopLogger{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NoopRecorder{}
	}
	p := &Poller{cfg: cfg}
	p.task = scheduler.Every(cfg.Clock, cfg.Interval, p.tick)
	return p
}

func (p *Poller) tick(ctx context.Context) bool {
	reqCtx := ctx
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	start := p.cfg.Clock.Now()
	res, err := p.cfg.Source.Status(reqCtx, p.cfg.Reference)
	p.cfg.Metrics.ObserveLatency(metrics.BackendCall, p.cfg.Clock.Now().Sub(start), map[string]string{"outcome": "status"})

	// stopped while the request was in flight: the answer belongs to a
	// superseded or torn down intent
	if ctx.Err() != nil {
		p.cfg.Logger.Debug("dropping stale poll response", map[string]any{"reference": p.cfg.Reference})
		return false
	}

	if err != nil {
		p.cfg.Metrics.IncCounter(metrics.PollOutcome, map[string]string{"outcome": "transient_error"})
		p.cfg.Logger.Warn("status poll failed", map[string]any{
			"reference": p.cfg.Reference,
			"error":     err,
		})
		return true
	}

	switch r := res.(type) {
	case types.Confirmed:
		p.cfg.Metrics.IncCounter(metrics.PollOutcome, map[string]string{"outcome": "confirmed"})
		if p.cfg.OnConfirmed != nil {
			p.cfg.OnConfirmed(r.TransactionID)
		}
		return false
	case types.Failed:
		p.cfg.Metrics.IncCounter(metrics.PollOutcome, map[string]string{"outcome": "failed"})
		if p.cfg.OnFailed != nil {
			p.cfg.OnFailed(r.Reason)
		}
		return false
	default:
		p.cfg.Metrics.IncCounter(metrics.PollOutcome, map[string]string{"outcome": "pending"})
		return true
	}
}

// Stop is idempotent.
func (p *Poller) Stop() {
	p.task.Stop()
}

func (p *Poller) Alive() bool {
	return !p.task.Stopped()
}
