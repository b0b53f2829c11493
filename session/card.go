package session

import (
	"context"

	"github.com/vitwit/paysession/types"
)

const msgNoCheckout = "Card payments are not configured"

// Checkout submits a card or alternate-processor checkout. The request's
// idempotency key is stamped from the session and stays the same across
// retries of the same price. Inputs that were blocked before are refused
// without contacting the backend.
func (s *Session) Checkout(ctx context.Context, req types.CheckoutRequest) (types.CheckoutOutcome, error) {
	var out outbox
	defer func() { out.flush() }()

	s.mu.Lock()
	if s.busy && s.status == types.StatusProcessing {
		s.mu.Unlock()
		return nil, nil
	}
	if s.status != types.StatusSelecting {
		status := s.status
		s.mu.Unlock()
		return nil, invalidState("checkout", status)
	}
	if s.deps.Checkout == nil {
		s.mu.Unlock()
		return nil, types.NewError(types.ErrCodeConfig, msgNoCheckout, nil)
	}

	fingerprint := req.Fingerprint()
	if msg, ok := s.blocked[fingerprint]; ok {
		s.mu.Unlock()
		s.logger.Info("refusing previously blocked checkout", map[string]any{"price_id": req.PriceID})
		return types.CheckoutBlocked{Message: msg}, types.NewError(types.ErrCodeBlocked, msg, nil)
	}

	req.IdempotencyKey = s.keys.For(req.PriceID)
	s.request = StartRequest{PriceID: req.PriceID}
	s.err = nil
	s.redirect = ""
	s.transitionLocked(types.StatusProcessing, &out)
	op := s.beginLocked()
	s.mu.Unlock()

	out.flush()
	out = nil

	outcome, err := s.deps.Checkout.Submit(ctx, &req)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.endLocked(op) || s.status != types.StatusProcessing {
		s.logger.Debug("dropping stale checkout result", map[string]any{"idempotency_key": req.IdempotencyKey})
		return outcome, err
	}

	if err != nil {
		perr := types.AsPaymentError(err, types.ErrCodeBackendFailed, msgSubmitFailed)
		if perr.Code == types.ErrCodeBlocked {
			s.blocked[fingerprint] = perr.Message
		}
		s.failLocked(perr, &out)
		return outcome, perr
	}

	switch o := outcome.(type) {
	case types.CheckoutSucceeded:
		meta := map[string]string{"idempotencyKey": req.IdempotencyKey}
		for k, v := range req.Metadata {
			meta[k] = v
		}
		s.succeedLocked(types.SuccessPayload{
			TransactionID: o.TransactionID,
			Processor:     req.ProcessorName(),
			Pending:       o.Pending,
			Metadata:      meta,
		}, &out)
	case types.CheckoutRedirect:
		// the session stays processing until the external page returns
		s.redirect = o.URL
		s.logger.Info("checkout redirect", map[string]any{"url": o.URL})
	}

	return outcome, nil
}
