package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/paysession/types"
)

type tempErr struct{ temporary bool }

func (e tempErr) Error() string   { return "transport" }
func (e tempErr) Temporary() bool { return e.temporary }

type scriptedBackend struct {
	mu    sync.Mutex
	steps []func() (*types.CheckoutResponse, error)
	keys  []string
}

func (b *scriptedBackend) Checkout(_ context.Context, _ *types.CheckoutRequest, key string) (*types.CheckoutResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.keys = append(b.keys, key)
	if len(b.steps) == 0 {
		return nil, errors.New("unexpected call")
	}
	step := b.steps[0]
	b.steps = b.steps[1:]
	return step()
}

func respond(resp *types.CheckoutResponse) func() (*types.CheckoutResponse, error) {
	return func() (*types.CheckoutResponse, error) { return resp, nil }
}

func fail(err error) func() (*types.CheckoutResponse, error) {
	return func() (*types.CheckoutResponse, error) { return nil, err }
}

func newTestOrchestrator(b Backend, retries int) *Orchestrator {
	return NewOrchestrator(b,
		WithRetries(retries),
		WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
	)
}

func request(key string) *types.CheckoutRequest {
	return &types.CheckoutRequest{
		Kind:           types.CheckoutNewCard,
		PriceID:        "price_basic",
		CardToken:      "tok_visa",
		IdempotencyKey: key,
	}
}

func TestSubmit_Success(t *testing.T) {
	b := &scriptedBackend{steps: []func() (*types.CheckoutResponse, error){
		respond(&types.CheckoutResponse{Status: "success", TransactionID: "ch_1"}),
	}}

	outcome, err := newTestOrchestrator(b, 3).Submit(context.Background(), request("k1"))
	require.NoError(t, err)
	assert.Equal(t, types.CheckoutSucceeded{TransactionID: "ch_1"}, outcome)
	assert.Equal(t, []string{"k1"}, b.keys)
}

func TestSubmit_RetriesTemporaryWithSameKey(t *testing.T) {
	b := &scriptedBackend{steps: []func() (*types.CheckoutResponse, error){
		fail(tempErr{temporary: true}),
		fail(tempErr{temporary: true}),
		respond(&types.CheckoutResponse{Status: "pending"}),
	}}

	outcome, err := newTestOrchestrator(b, 3).Submit(context.Background(), request("k1"))
	require.NoError(t, err)
	assert.Equal(t, types.CheckoutSucceeded{Pending: true}, outcome)
	assert.Equal(t, []string{"k1", "k1", "k1"}, b.keys)
}

func TestSubmit_RetriesExhausted(t *testing.T) {
	b := &scriptedBackend{steps: []func() (*types.CheckoutResponse, error){
		fail(tempErr{temporary: true}),
		fail(tempErr{temporary: true}),
	}}

	_, err := newTestOrchestrator(b, 1).Submit(context.Background(), request("k1"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrBackendFailed))
	assert.Len(t, b.keys, 2)
}

func TestSubmit_PermanentErrorNotRetried(t *testing.T) {
	b := &scriptedBackend{steps: []func() (*types.CheckoutResponse, error){
		fail(tempErr{temporary: false}),
	}}

	_, err := newTestOrchestrator(b, 3).Submit(context.Background(), request("k1"))
	require.Error(t, err)
	assert.Len(t, b.keys, 1)
}

func TestSubmit_Blocked(t *testing.T) {
	b := &scriptedBackend{steps: []func() (*types.CheckoutResponse, error){
		respond(&types.CheckoutResponse{Status: "blocked", Message: "restricted region"}),
	}}

	outcome, err := newTestOrchestrator(b, 3).Submit(context.Background(), request("k1"))
	require.Error(t, err)
	assert.True(t, types.IsBlocked(err))
	assert.Equal(t, types.CheckoutBlocked{Message: "restricted region"}, outcome)

	var perr *types.PaymentError
	require.True(t, errors.As(err, &perr))
	assert.False(t, perr.Retryable)
	assert.Equal(t, "restricted region", perr.Message)
}

func TestSubmit_RequiresKeyAndValidRequest(t *testing.T) {
	b := &scriptedBackend{}
	o := newTestOrchestrator(b, 0)

	_, err := o.Submit(context.Background(), request(""))
	assert.True(t, errors.Is(err, types.ErrInvalidState))

	req := request("k1")
	req.CardToken = ""
	_, err = o.Submit(context.Background(), req)
	assert.Error(t, err)
	assert.Empty(t, b.keys)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		resp    *types.CheckoutResponse
		want    types.CheckoutOutcome
		errCode string
	}{
		{"success", &types.CheckoutResponse{Status: "success", TransactionID: "a"}, types.CheckoutSucceeded{TransactionID: "a"}, ""},
		{"pending", &types.CheckoutResponse{Status: "pending"}, types.CheckoutSucceeded{Pending: true}, ""},
		{"redirect", &types.CheckoutResponse{Status: "redirect", RedirectURL: "https://x.test"}, types.CheckoutRedirect{URL: "https://x.test"}, ""},
		{"redirect required", &types.CheckoutResponse{Status: "redirect_required", RedirectURL: "https://x.test"}, types.CheckoutRedirect{URL: "https://x.test"}, ""},
		{"redirect without url", &types.CheckoutResponse{Status: "redirect"}, nil, types.ErrCodeBackendFailed},
		{"blocked default message", &types.CheckoutResponse{Status: "blocked"}, types.CheckoutBlocked{Message: types.DefaultBlockedMessage}, types.ErrCodeBlocked},
		{"unknown", &types.CheckoutResponse{Status: "declined"}, nil, types.ErrCodeBackendFailed},
		{"nil", nil, nil, types.ErrCodeBackendFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.resp)
			assert.Equal(t, tt.want, got)
			if tt.errCode == "" {
				assert.NoError(t, err)
				return
			}
			var perr *types.PaymentError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.errCode, perr.Code)
		})
	}
}

func TestKeys_StableUntilPriceChanges(t *testing.T) {
	n := 0
	k := NewKeys(func() string {
		n++
		return string(rune('a' + n))
	})

	assert.Empty(t, k.Current())
	first := k.For("p1")
	assert.Equal(t, first, k.For("p1"))
	assert.Equal(t, first, k.Current())

	second := k.For("p2")
	assert.NotEqual(t, first, second)
	assert.Equal(t, second, k.For("p2"))
}

func TestKeys_DefaultGeneratorIsUnique(t *testing.T) {
	a := NewKeys(nil).For("p1")
	b := NewKeys(nil).For("p1")
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
