package session

import (
	"context"
	"errors"

	"github.com/vitwit/paysession/metrics"
	"github.com/vitwit/paysession/types"
	"github.com/vitwit/paysession/verification"
	"github.com/vitwit/paysession/watch"
)

const (
	msgIntentFailed = "Could not create a payment. Please refresh and try again"
	msgNoSource     = "Crypto payments are not configured"
	msgNoWallet     = "Connect a wallet to pay"
	msgScanToPay    = "This payment is completed by scanning the QR code"
)

// Start creates an intent for req and begins the countdown and status
// polling. Calling Start while a request is already in flight is a no-op.
func (s *Session) Start(ctx context.Context, req StartRequest) error {
	var out outbox
	defer func() { out.flush() }()

	s.mu.Lock()
	if s.busy && s.status.IsActive() {
		s.mu.Unlock()
		return nil
	}
	if s.status != types.StatusSelecting {
		status := s.status
		s.mu.Unlock()
		return invalidState("start", status)
	}
	if s.deps.Intents == nil || s.deps.Status == nil {
		s.mu.Unlock()
		return types.NewError(types.ErrCodeConfig, msgNoSource, nil)
	}

	s.request = req
	if req.Wallet != nil {
		s.wallet = req.Wallet
	}
	s.err = nil
	s.transitionLocked(types.StatusProcessing, &out)
	op := s.beginLocked()
	s.epoch++
	epoch := s.epoch
	s.mu.Unlock()

	out.flush()
	out = nil

	return s.createIntent(ctx, op, epoch, &out)
}

// Refresh replaces the active intent. The old countdown and poller are
// stopped before the request is made; answers for the old reference are
// dropped.
func (s *Session) Refresh(ctx context.Context) error {
	var out outbox
	defer func() { out.flush() }()

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return nil
	}
	if s.status != types.StatusProcessing {
		status := s.status
		s.mu.Unlock()
		return invalidState("refresh", status)
	}

	s.stopPairLocked()
	s.intent = nil
	s.remaining = 0
	op := s.beginLocked()
	s.epoch++
	epoch := s.epoch
	s.mu.Unlock()

	return s.createIntent(ctx, op, epoch, &out)
}

func (s *Session) createIntent(ctx context.Context, op, epoch uint64, out *outbox) error {
	s.mu.Lock()
	req := types.IntentRequest{
		PriceID:     s.request.PriceID,
		TokenSymbol: s.request.TokenSymbol,
	}
	if s.wallet != nil {
		req.Wallet = s.wallet.PublicKey()
	}
	s.mu.Unlock()

	callCtx, cancel := s.timeoutCtx(ctx)
	start := s.clock.Now()
	intent, err := s.deps.Intents.CreateIntent(callCtx, req)
	cancel()
	s.observe("create_intent", start)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.endLocked(op) || s.epoch != epoch || s.status != types.StatusProcessing {
		s.logger.Debug("dropping stale intent response", map[string]any{"price_id": req.PriceID})
		return nil
	}

	if err != nil {
		perr := types.AsPaymentError(err, types.ErrCodeIntentCreationFailed, msgIntentFailed)
		if perr.Code != types.ErrCodeIntentCreationFailed {
			perr = types.NewError(types.ErrCodeIntentCreationFailed, msgIntentFailed, err)
		}
		s.failLocked(perr, out)
		return perr
	}

	kind := verification.PayloadUnknown
	if s.deps.Verifier != nil {
		res, verr := s.deps.Verifier.Verify(intent, s.clock.Now())
		if verr != nil {
			perr := types.AsPaymentError(verr, types.ErrCodeInvalidTransactionPayload, msgIntentFailed)
			s.failLocked(perr, out)
			return perr
		}
		kind = res.Kind
	} else if !intent.ExpiresAt.After(s.clock.Now()) {
		perr := types.NewError(types.ErrCodeExpired, types.ExpiredMessage, nil)
		s.failLocked(perr, out)
		return perr
	}

	s.activateLocked(intent, kind, out)
	return nil
}

// activateLocked installs intent and starts its timer pair.
func (s *Session) activateLocked(intent *types.PaymentIntent, kind verification.PayloadKind, out *outbox) {
	s.stopPairLocked()
	s.epoch++
	epoch := s.epoch

	s.intent = intent
	s.kind = kind
	s.remaining = intent.Remaining(s.clock.Now())

	s.pair = watch.StartPair(watch.PairConfig{
		Clock:             s.clock,
		Reference:         intent.Reference,
		ExpiresAt:         intent.ExpiresAt,
		PollInterval:      s.cfg.PollInterval,
		CountdownInterval: s.cfg.CountdownInterval,
		RequestTimeout:    s.cfg.RequestTimeout,
		Source:            s.deps.Status,
		OnTick:            func(r int) { s.onTick(epoch, r) },
		OnExpire:          func() { s.onExpire(epoch) },
		OnConfirmed:       func(txID string) { s.onConfirmed(epoch, txID) },
		OnFailed:          func(reason string) { s.onFailed(epoch, reason) },
		Logger:            s.logger,
		Metrics:           s.metrics,
	})

	s.logger.Info("payment intent active", map[string]any{
		"reference":  intent.Reference,
		"intent_id":  intent.IntentID,
		"expires_at": intent.ExpiresAt,
		"payload":    kind.String(),
	})

	id, remaining := s.id, s.remaining
	out.add(func() { s.registry.Tick(id, remaining) })
}

// SignAndSubmit prompts the connected wallet to sign the active intent
// and hands the result to the submitter. A second call while the first
// is in flight, or once the session is confirming, is a no-op.
func (s *Session) SignAndSubmit(ctx context.Context) error {
	var out outbox
	defer func() { out.flush() }()

	s.mu.Lock()
	if s.status == types.StatusConfirming || (s.busy && s.status == types.StatusProcessing) {
		s.mu.Unlock()
		return nil
	}
	if s.status != types.StatusProcessing || s.intent == nil {
		status := s.status
		s.mu.Unlock()
		return invalidState("submit", status)
	}
	if s.kind == verification.PayloadPaymentURI {
		s.mu.Unlock()
		return types.NewError(types.ErrCodeInvalidTransactionPayload, msgScanToPay, nil)
	}
	if s.wallet == nil {
		s.mu.Unlock()
		return types.NewError(types.ErrCodeWalletCannotSign, msgNoWallet, nil)
	}
	if s.deps.Submitter == nil {
		s.mu.Unlock()
		return types.NewError(types.ErrCodeConfig, msgNoSource, nil)
	}

	op := s.beginLocked()
	epoch := s.epoch
	intent := *s.intent
	conn := s.wallet
	token := s.request.TokenSymbol
	s.mu.Unlock()

	if intent.TokenSymbol != "" {
		token = intent.TokenSymbol
	}

	if err := s.checkBalance(ctx, conn.PublicKey(), intent, token); err != nil {
		return s.finishSubmit(op, epoch, err, &out)
	}

	signed, err := conn.SignPayload(ctx, intent.Payload)
	if err != nil {
		return s.finishSubmit(op, epoch, err, &out)
	}

	if !s.current(op, epoch) {
		return s.finishSubmit(op, epoch, nil, &out)
	}

	callCtx, cancel := s.timeoutCtx(ctx)
	start := s.clock.Now()
	err = s.deps.Submitter.SubmitSignedTransaction(callCtx, types.SignedSubmission{
		IntentID:          intent.IntentID,
		Reference:         intent.Reference,
		SignedTransaction: signed,
		Wallet:            conn.PublicKey(),
	})
	cancel()
	s.observe("submit", start)

	if err != nil {
		err = types.AsPaymentError(err, types.ErrCodeBackendFailed, msgSubmitFailed)
	}
	return s.finishSubmit(op, epoch, err, &out)
}

// checkBalance reports only a known shortfall. Lookup failures are logged
// and the wallet prompt proceeds.
func (s *Session) checkBalance(ctx context.Context, owner string, intent types.PaymentIntent, token string) error {
	if s.deps.Balance == nil || owner == "" || intent.TokenAmount.IsZero() {
		return nil
	}

	callCtx, cancel := s.timeoutCtx(ctx)
	defer cancel()

	err := s.deps.Balance.CheckBalance(callCtx, owner, intent.TokenAmount, token)
	if err == nil {
		return nil
	}
	if errors.Is(err, types.ErrInsufficientBalance) {
		return err
	}
	s.logger.Warn("balance check failed", map[string]any{"error": err})
	return nil
}

// current reports whether op is still in flight for the intent of epoch.
func (s *Session) current(op, epoch uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.op == op && s.epoch == epoch && s.status == types.StatusProcessing
}

func (s *Session) finishSubmit(op, epoch uint64, err error, out *outbox) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.endLocked(op) || s.epoch != epoch || s.status != types.StatusProcessing {
		s.logger.Debug("dropping stale submission result", map[string]any{"error": err})
		return nil
	}

	if err != nil {
		perr := types.AsPaymentError(err, types.ErrCodeBackendFailed, msgSubmitFailed)
		s.metrics.IncCounter(metrics.WalletPrompt, map[string]string{"outcome": perr.Code})
		s.failLocked(perr, out)
		return perr
	}

	s.metrics.IncCounter(metrics.WalletPrompt, map[string]string{"outcome": "submitted"})
	s.transitionLocked(types.StatusConfirming, out)
	return nil
}

func (s *Session) onTick(epoch uint64, remaining int) {
	s.mu.Lock()
	if s.epoch != epoch || !s.status.IsActive() {
		s.mu.Unlock()
		return
	}
	s.remaining = remaining
	id := s.id
	s.mu.Unlock()

	s.registry.Tick(id, remaining)
}

func (s *Session) onExpire(epoch uint64) {
	var out outbox
	defer func() { out.flush() }()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch || !s.status.IsActive() {
		return
	}
	s.remaining = 0
	s.failLocked(types.NewError(types.ErrCodeExpired, types.ExpiredMessage, nil), &out)
}

func (s *Session) onConfirmed(epoch uint64, txID string) {
	var out outbox
	defer func() { out.flush() }()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch || !s.status.IsActive() {
		return
	}

	processor := s.request.TokenSymbol
	if s.intent.TokenSymbol != "" {
		processor = s.intent.TokenSymbol
	}
	s.succeedLocked(types.SuccessPayload{
		TransactionID: txID,
		Processor:     processor,
		Metadata: map[string]string{
			"reference": s.intent.Reference,
			"intentId":  s.intent.IntentID,
		},
	}, &out)
}

func (s *Session) onFailed(epoch uint64, reason string) {
	var out outbox
	defer func() { out.flush() }()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch || !s.status.IsActive() {
		return
	}
	s.failLocked(types.NewError(types.ErrCodeBackendFailed, reason, nil), &out)
}
