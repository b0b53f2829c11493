// Package watch contains the two timers bound to an active payment intent:
// the expiry countdown and the status poller.
package watch

import (
	"context"
	"sync"
	"time"

	"github.com/vitwit/paysession/scheduler"
)

// CountdownConfig configures an expiry countdown.
type CountdownConfig struct {
	Clock     scheduler.Clock
	Interval  time.Duration
	ExpiresAt time.Time

	// OnTick receives remaining whole seconds on every tick, including the
	// final zero.
	OnTick func(remaining int)

	// OnExpire fires exactly once when remaining reaches zero.
	OnExpire func()
}

// Countdown decrements the remaining time of one intent.
type Countdown struct {
	cfg  CountdownConfig
	task *scheduler.Task

	mu        sync.Mutex
	remaining int
	expired   bool
}

func StartCountdown(cfg CountdownConfig) *Countdown {
	c := &Countdown{cfg: cfg}
	c.remaining = remainingAt(cfg.ExpiresAt, cfg.Clock.Now())
	c.task = scheduler.Every(cfg.Clock, cfg.Interval, c.tick)
	return c
}

func remainingAt(expiresAt, now time.Time) int {
	d := expiresAt.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(d / time.Second)
}

func (c *Countdown) tick(ctx context.Context) bool {
	remaining := remainingAt(c.cfg.ExpiresAt, c.cfg.Clock.Now())

	c.mu.Lock()
	if c.expired {
		c.mu.Unlock()
		return false
	}
	c.remaining = remaining
	fire := remaining == 0
	if fire {
		c.expired = true
	}
	c.mu.Unlock()

	if ctx.Err() != nil {
		return false
	}
	if c.cfg.OnTick != nil {
		c.cfg.OnTick(remaining)
	}
	if fire {
		if c.cfg.OnExpire != nil {
			c.cfg.OnExpire()
		}
		return false
	}
	return true
}

// Remaining returns the last computed remaining seconds.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Stop is idempotent.
func (c *Countdown) Stop() {
	c.task.Stop()
}

func (c *Countdown) Alive() bool {
	return !c.task.Stopped()
}
