// Package checkout submits idempotent card and alternate-processor
// checkouts and classifies the backend answer. It never touches session
// state.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/vitwit/paysession/logger"
	"github.com/vitwit/paysession/metrics"
	"github.com/vitwit/paysession/types"
	"github.com/vitwit/paysession/utils"
)

const msgCheckoutFailed = "Checkout failed. Please try again"

// Backend is the checkout endpoint.
type Backend interface {
	Checkout(ctx context.Context, req *types.CheckoutRequest, idempotencyKey string) (*types.CheckoutResponse, error)
}

type temporary interface {
	Temporary() bool
}

type Orchestrator struct {
	backend    Backend
	timeout    time.Duration
	maxRetries int
	newBackOff func() backoff.BackOff
	logger     logger.Logger
	metrics    metrics.Recorder
}

type Option func(*Orchestrator)

func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(o *Orchestrator) {
		o.metrics = r
	}
}

func WithTimeout(t time.Duration) Option {
	return func(o *Orchestrator) {
		o.timeout = t
	}
}

// WithRetries bounds resubmissions after temporary failures.
func WithRetries(n int) Option {
	return func(o *Orchestrator) {
		o.maxRetries = n
	}
}

// WithBackOff overrides the retry schedule.
func WithBackOff(f func() backoff.BackOff) Option {
	return func(o *Orchestrator) {
		o.newBackOff = f
	}
}

func NewOrchestrator(backend Backend, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		backend:    backend,
		timeout:    types.DefaultRequestTimeout,
		maxRetries: types.DefaultCheckoutMaxRetries,
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		logger:     logger.NoopLogger{},
		metrics:    metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Submit sends req with its idempotency key. Temporary failures are
// retried with the same key, which the backend treats as the same attempt.
// A blocked answer returns a Blocked error; redirects return the target
// for the caller to navigate to.
func (o *Orchestrator) Submit(ctx context.Context, req *types.CheckoutRequest) (types.CheckoutOutcome, error) {
	if req.IdempotencyKey == "" {
		return nil, types.NewError(types.ErrCodeInvalidState, msgCheckoutFailed, errors.New("missing idempotency key"))
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, types.NewError(types.ErrCodeBackendFailed, msgCheckoutFailed, err)
	}

	var resp *types.CheckoutResponse
	attempts := 0
	start := time.Now()

	op := func() error {
		attempts++
		callCtx, cancel := context.WithTimeout(ctx, o.timeout)
		defer cancel()

		r, err := o.backend.Checkout(callCtx, req, req.IdempotencyKey)
		if err != nil {
			var t temporary
			if errors.As(err, &t) && t.Temporary() && ctx.Err() == nil {
				o.logger.Warn("checkout submission failed, retrying", map[string]any{
					"attempt": attempts,
					"error":   err,
				})
				return err
			}
			return backoff.Permanent(err)
		}
		resp = r
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(o.newBackOff(), uint64(o.maxRetries)), ctx)
	err := backoff.Retry(op, b)
	o.metrics.ObserveLatency(metrics.BackendCall, time.Since(start), map[string]string{"outcome": "checkout"})
	if err != nil {
		o.metrics.IncCounter(metrics.CheckoutSubmission, map[string]string{"outcome": "error"})
		return nil, types.AsPaymentError(err, types.ErrCodeBackendFailed, msgCheckoutFailed)
	}

	outcome, err := Classify(resp)
	label := "error"
	switch outcome.(type) {
	case types.CheckoutSucceeded:
		label = "success"
	case types.CheckoutRedirect:
		label = "redirect"
	}
	if types.IsBlocked(err) {
		label = "blocked"
	}
	o.metrics.IncCounter(metrics.CheckoutSubmission, map[string]string{"outcome": label})
	return outcome, err
}

// Classify turns the wire response into an outcome.
func Classify(resp *types.CheckoutResponse) (types.CheckoutOutcome, error) {
	if resp == nil {
		return nil, types.NewError(types.ErrCodeBackendFailed, msgCheckoutFailed, errors.New("empty checkout response"))
	}

	switch resp.Status {
	case "success":
		return types.CheckoutSucceeded{TransactionID: resp.TransactionID}, nil
	case "pending":
		return types.CheckoutSucceeded{TransactionID: resp.TransactionID, Pending: true}, nil
	case "redirect", "redirect_required":
		if resp.RedirectURL == "" {
			return nil, types.NewError(types.ErrCodeBackendFailed, msgCheckoutFailed, errors.New("redirect without url"))
		}
		return types.CheckoutRedirect{URL: resp.RedirectURL}, nil
	case "blocked":
		msg := resp.Message
		if msg == "" {
			msg = types.DefaultBlockedMessage
		}
		return types.CheckoutBlocked{Message: msg}, types.NewError(types.ErrCodeBlocked, msg, nil)
	default:
		msg := resp.Message
		if msg == "" {
			msg = msgCheckoutFailed
		}
		return nil, types.NewError(types.ErrCodeBackendFailed, msg, fmt.Errorf("unexpected checkout status %q", resp.Status))
	}
}
