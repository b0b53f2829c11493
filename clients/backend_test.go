package clients

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitwit/paysession/types"
)

func newTestBackend(t *testing.T, h http.HandlerFunc) *Backend {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	b, err := NewBackend(srv.URL, WithHeader("X-Client", "test"))
	require.NoError(t, err)
	return b
}

func TestNewBackend_RejectsRelativeURL(t *testing.T) {
	_, err := NewBackend("/api")
	assert.Error(t, err)
}

func TestBackend_CreateIntent(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/payments/intents", r.URL.Path)
		assert.Equal(t, "test", r.Header.Get("X-Client"))

		var req types.IntentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "price_1", req.PriceID)
		assert.Equal(t, "SOL", req.TokenSymbol)

		_, _ = io.WriteString(w, `{"reference":"r1","intentId":"pi_1","url":"solana:abc","amount":"5","tokenAmount":"0.03","expiresAt":1700000060}`)
	})

	intent, err := b.CreateIntent(context.Background(), types.IntentRequest{PriceID: "price_1", TokenSymbol: "SOL"})
	require.NoError(t, err)
	assert.Equal(t, "r1", intent.Reference)
	assert.Equal(t, "pi_1", intent.IntentID)
	assert.Equal(t, "solana:abc", intent.Payload)
}

func TestBackend_CreateIntentFailure(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"message":"price not found"}`)
	})

	_, err := b.CreateIntent(context.Background(), types.IntentRequest{PriceID: "nope", TokenSymbol: "SOL"})
	require.ErrorIs(t, err, types.ErrIntentCreationFailed)

	var pe *types.PaymentError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "price not found", pe.Message)

	_, err = b.CreateIntent(context.Background(), types.IntentRequest{})
	assert.ErrorIs(t, err, types.ErrIntentCreationFailed)
}

func TestBackend_Status(t *testing.T) {
	responses := map[string]string{
		"r-pending":   `{"status":"pending"}`,
		"r-confirmed": `{"status":"confirmed","transactionId":"tx1"}`,
		"r-failed":    `{"status":"failed"}`,
	}
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		ref := r.URL.Path[len("/payments/intents/") : len(r.URL.Path)-len("/status")]
		body, ok := responses[ref]
		if !ok {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, body)
	})

	res, err := b.Status(context.Background(), "r-pending")
	require.NoError(t, err)
	assert.Equal(t, types.Pending{Raw: "pending"}, res)

	res, err = b.Status(context.Background(), "r-confirmed")
	require.NoError(t, err)
	assert.Equal(t, types.Confirmed{TransactionID: "tx1"}, res)

	res, err = b.Status(context.Background(), "r-failed")
	require.NoError(t, err)
	assert.Equal(t, types.Failed{Reason: types.DefaultFailureReason}, res)

	_, err = b.Status(context.Background(), "r-unknown")
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.True(t, httpErr.Temporary())
}

func TestBackend_CheckoutSendsIdempotencyKey(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/checkout", r.URL.Path)
		assert.Equal(t, "k1", r.Header.Get(IdempotencyHeader))
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"status":"blocked","message":"restricted region"}`)
	})

	resp, err := b.Checkout(context.Background(), &types.CheckoutRequest{
		Kind: types.CheckoutNewCard, PriceID: "price_1", CardToken: "tok",
	}, "k1")
	require.NoError(t, err)
	assert.Equal(t, "blocked", resp.Status)
	assert.Equal(t, "restricted region", resp.Message)
}

func TestBackend_CheckoutServerError(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := b.Checkout(context.Background(), &types.CheckoutRequest{}, "k1")
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.StatusCode)
	assert.True(t, httpErr.Temporary())
}

func TestBackend_SubmitSignedTransaction(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		var sub types.SignedSubmission
		require.NoError(t, json.NewDecoder(r.Body).Decode(&sub))
		switch sub.IntentID {
		case "pi_ok":
			_, _ = io.WriteString(w, `{"success":true}`)
		case "pi_poor":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"success":false,"code":"insufficient_balance","error":"not enough SOL"}`)
		default:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"success":false,"error":"stale blockhash"}`)
		}
	})

	require.NoError(t, b.SubmitSignedTransaction(context.Background(), types.SignedSubmission{IntentID: "pi_ok"}))

	err := b.SubmitSignedTransaction(context.Background(), types.SignedSubmission{IntentID: "pi_poor"})
	assert.ErrorIs(t, err, types.ErrInsufficientBalance)

	err = b.SubmitSignedTransaction(context.Background(), types.SignedSubmission{IntentID: "pi_bad"})
	require.ErrorIs(t, err, types.ErrBackendFailed)
	var pe *types.PaymentError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "stale blockhash", pe.Message)
}

func TestTransportError_Temporary(t *testing.T) {
	assert.True(t, (&TransportError{Err: io.ErrUnexpectedEOF}).Temporary())
	assert.False(t, (&TransportError{Err: context.Canceled}).Temporary())
	assert.False(t, (&HTTPError{StatusCode: http.StatusBadRequest}).Temporary())
}
