package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vitwit/paysession/logger"
	"github.com/vitwit/paysession/types"
	"github.com/vitwit/paysession/utils"
)

const (
	msgIntentCreationFailed = "Could not create the payment. Please refresh and try again"
	msgSubmitFailed         = "Could not submit the transaction. Please try again"
	msgInsufficientBalance  = "Insufficient balance to complete this payment"

	// IdempotencyHeader carries the checkout attempt key.
	IdempotencyHeader = "Idempotency-Key"

	maxErrorBody = 4 << 10
)

// Backend is the JSON REST shim over the payments backend. Request
// signing and auth belong to the injected *http.Client.
type Backend struct {
	baseURL *url.URL
	http    *http.Client
	headers map[string]string
	logger  logger.Logger
	timeout time.Duration
}

var (
	_ IntentSource = (*Backend)(nil)
	_ StatusSource = (*Backend)(nil)
	_ Submitter    = (*Backend)(nil)
)

type BackendOption func(*Backend)

// WithHTTPClient injects the host's client, e.g. one that adds auth tokens.
func WithHTTPClient(c *http.Client) BackendOption {
	return func(b *Backend) {
		b.http = c
	}
}

func WithHeader(key, value string) BackendOption {
	return func(b *Backend) {
		b.headers[key] = value
	}
}

func WithBackendLogger(l logger.Logger) BackendOption {
	return func(b *Backend) {
		b.logger = l
	}
}

func WithBackendTimeout(t time.Duration) BackendOption {
	return func(b *Backend) {
		b.timeout = t
	}
}

func NewBackend(baseURL string, opts ...BackendOption) (*Backend, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend url must be absolute: %q", baseURL)
	}

	b := &Backend{
		baseURL: u,
		http:    http.DefaultClient,
		headers: map[string]string{},
		logger:  logger.NoopLogger{},
		timeout: types.DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// CreateIntent calls POST /payments/intents.
func (b *Backend) CreateIntent(ctx context.Context, req types.IntentRequest) (*types.PaymentIntent, error) {
	if err := utils.ValidateStruct(&req); err != nil {
		return nil, types.NewError(types.ErrCodeIntentCreationFailed, msgIntentCreationFailed, err)
	}

	body, status, err := b.do(ctx, http.MethodPost, "/payments/intents", req, nil)
	if err != nil {
		return nil, types.NewError(types.ErrCodeIntentCreationFailed, msgIntentCreationFailed, err)
	}
	if status/100 != 2 {
		return nil, types.NewError(types.ErrCodeIntentCreationFailed, backendMessage(body, msgIntentCreationFailed),
			&HTTPError{StatusCode: status, Body: truncate(body)})
	}

	intent, err := utils.ParsePaymentIntent(body)
	if err != nil {
		return nil, types.NewError(types.ErrCodeIntentCreationFailed, msgIntentCreationFailed, err)
	}
	return intent, nil
}

// Status calls GET /payments/intents/{reference}/status. Errors are
// returned raw; callers treat them as transient.
func (b *Backend) Status(ctx context.Context, reference string) (types.PollResult, error) {
	body, status, err := b.do(ctx, http.MethodGet, "/payments/intents/"+url.PathEscape(reference)+"/status", nil, nil)
	if err != nil {
		return nil, err
	}
	if status/100 != 2 {
		return nil, &HTTPError{StatusCode: status, Body: truncate(body)}
	}

	var resp types.StatusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("invalid status response: %w", err)
	}
	return resp.Decode(), nil
}

type submitResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SubmitSignedTransaction calls POST /payments/intents/{intentId}/submit.
func (b *Backend) SubmitSignedTransaction(ctx context.Context, sub types.SignedSubmission) error {
	body, status, err := b.do(ctx, http.MethodPost, "/payments/intents/"+url.PathEscape(sub.IntentID)+"/submit", sub, nil)
	if err != nil {
		return types.NewError(types.ErrCodeBackendFailed, msgSubmitFailed, err)
	}

	var resp submitResponse
	_ = json.Unmarshal(body, &resp)

	if status/100 == 2 && (resp.Success || resp.Error == "") {
		return nil
	}

	msg := resp.Error
	if msg == "" {
		msg = msgSubmitFailed
	}
	switch strings.ToLower(resp.Code) {
	case "insufficient_balance", "insufficient_funds":
		return types.NewError(types.ErrCodeInsufficientBalance, msgInsufficientBalance, nil)
	case "expired":
		return types.NewError(types.ErrCodeExpired, types.ExpiredMessage, nil)
	}
	return types.NewError(types.ErrCodeBackendFailed, msg, &HTTPError{StatusCode: status, Body: truncate(body)})
}

// Checkout calls POST /checkout with the idempotency key header. Any body
// carrying a status is returned as a response, whatever the HTTP code, so
// blocked refusals sent with 4xx still classify.
func (b *Backend) Checkout(ctx context.Context, req *types.CheckoutRequest, idempotencyKey string) (*types.CheckoutResponse, error) {
	headers := map[string]string{IdempotencyHeader: idempotencyKey}

	body, status, err := b.do(ctx, http.MethodPost, "/checkout", req, headers)
	if err != nil {
		return nil, err
	}

	var resp types.CheckoutResponse
	if jerr := json.Unmarshal(body, &resp); jerr == nil && resp.Status != "" {
		return &resp, nil
	}
	if status/100 != 2 {
		return nil, &HTTPError{StatusCode: status, Body: truncate(body)}
	}
	return nil, fmt.Errorf("checkout response without status")
}

func (b *Backend) do(ctx context.Context, method, path string, in any, headers map[string]string) ([]byte, int, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	endpoint := b.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range b.headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := b.http.Do(req)
	if err != nil {
		return nil, 0, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &TransportError{Err: err}
	}

	b.logger.Debug("backend call", map[string]any{
		"method":   method,
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	})
	return body, resp.StatusCode, nil
}

func backendMessage(body []byte, fallback string) string {
	var e struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.Error != "" {
			return e.Error
		}
	}
	return fallback
}

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody])
	}
	return string(body)
}
