package scheduler

import (
	"context"
	"sync"
	"time"
)

// TickFunc runs once per interval. Returning false stops the task.
type TickFunc func(ctx context.Context) bool

// Task is a repeating job driven by a Clock. The next tick is armed only
// after the previous one returns, so ticks of one task never overlap.
type Task struct {
	clock    Clock
	interval time.Duration
	fn       TickFunc

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	timer   Timer
	stopped bool
	done    chan struct{}
}

// Every starts a task whose first tick fires after one interval.
func Every(clock Clock, interval time.Duration, fn TickFunc) *Task {
	ctx, cancel := context.WithCancel(context.Background())
	t := &Task{
		clock:    clock,
		interval: interval,
		fn:       fn,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	t.mu.Lock()
	t.timer = clock.AfterFunc(interval, t.tick)
	t.mu.Unlock()

	return t
}

func (t *Task) tick() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	again := t.fn(t.ctx)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	if !again {
		t.stopLocked()
		return
	}
	t.timer = t.clock.AfterFunc(t.interval, t.tick)
}

// Stop cancels the task. It is safe to call more than once and from
// inside the task's own TickFunc. The context handed to an in-flight tick
// is cancelled.
func (t *Task) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *Task) stopLocked() {
	if t.stopped {
		return
	}
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
	}
	t.cancel()
	close(t.done)
}

// Stopped reports whether the task has ended.
func (t *Task) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// Done is closed once the task has ended.
func (t *Task) Done() <-chan struct{} {
	return t.done
}
