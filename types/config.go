package types

import (
	"fmt"
	"time"
)

// Default engine timings
const (
	DefaultPollInterval       = 4 * time.Second
	DefaultCountdownInterval  = 1 * time.Second
	DefaultSettleDelay        = 1500 * time.Millisecond
	DefaultRequestTimeout     = 30 * time.Second
	DefaultCheckoutMaxRetries = 3
)

// Config contains the engine configuration
type Config struct {
	PollInterval      time.Duration `json:"pollInterval,omitempty"`
	CountdownInterval time.Duration `json:"countdownInterval,omitempty"`

	// SettleDelay postpones the success notification. Zero delivers it immediately.
	SettleDelay time.Duration `json:"settleDelay"`

	// RequestTimeout bounds every backend call.
	RequestTimeout time.Duration `json:"requestTimeout,omitempty"`

	// CheckoutMaxRetries bounds resubmissions of a checkout after transport
	// failures. All retries reuse the attempt's idempotency key.
	CheckoutMaxRetries int `json:"checkoutMaxRetries,omitempty"`

	LogLevel      string `json:"logLevel,omitempty"`
	EnableMetrics bool   `json:"enableMetrics,omitempty"`
}

// DefaultConfig returns the configuration users see out of the box.
func DefaultConfig() *Config {
	return &Config{
		PollInterval:       DefaultPollInterval,
		CountdownInterval:  DefaultCountdownInterval,
		SettleDelay:        DefaultSettleDelay,
		RequestTimeout:     DefaultRequestTimeout,
		CheckoutMaxRetries: DefaultCheckoutMaxRetries,
		LogLevel:           "info",
	}
}

// WithDefaults fills unset fields. SettleDelay is kept as-is since zero is valid.
func (c *Config) WithDefaults() *Config {
	out := *c
	if out.PollInterval <= 0 {
		out.PollInterval = DefaultPollInterval
	}
	if out.CountdownInterval <= 0 {
		out.CountdownInterval = DefaultCountdownInterval
	}
	if out.RequestTimeout <= 0 {
		out.RequestTimeout = DefaultRequestTimeout
	}
	if out.CheckoutMaxRetries < 0 {
		out.CheckoutMaxRetries = 0
	}
	if out.LogLevel == "" {
		out.LogLevel = "info"
	}
	return &out
}

func (c *Config) Validate() error {
	if c.SettleDelay < 0 {
		return &PaymentError{
			Code:    ErrCodeConfig,
			Message: fmt.Sprintf("settleDelay must not be negative, got %s", c.SettleDelay),
		}
	}

	if c.PollInterval < 0 || c.CountdownInterval < 0 {
		return &PaymentError{
			Code:    ErrCodeConfig,
			Message: "poll and countdown intervals must not be negative",
		}
	}

	return nil
}
