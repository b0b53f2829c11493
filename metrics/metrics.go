package metrics

import "time"

// Metric names recorded by the engine
const (
	SessionTransitions = "session_transition"
	PollOutcome        = "poll"
	CheckoutSubmission = "checkout"
	WalletPrompt       = "wallet_prompt"
	BackendCall        = "backend_call"
)

type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}
