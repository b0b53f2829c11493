package types

// PollResult is the decoded outcome of one status request. Exactly one
// of the concrete variants below is returned per poll.
type PollResult interface {
	isPollResult()
}

// Confirmed means the ledger or backend settled the intent.
type Confirmed struct {
	TransactionID string
}

// Failed means the backend reported a terminal failure.
type Failed struct {
	Reason string
}

// Pending covers pending and any unrecognized status.
type Pending struct {
	Raw string
}

func (Confirmed) isPollResult() {}
func (Failed) isPollResult()    {}
func (Pending) isPollResult()   {}

// DefaultFailureReason is used when the backend fails an intent without a message.
const DefaultFailureReason = "Payment failed"

// StatusResponse is the wire shape of the backend status endpoint.
type StatusResponse struct {
	Status        string `json:"status"`
	TransactionID string `json:"transactionId,omitempty"`
	ErrorMessage  string `json:"errorMessage,omitempty"`
}

// Decode converts the wire response into a tagged PollResult.
func (r *StatusResponse) Decode() PollResult {
	switch r.Status {
	case "confirmed":
		return Confirmed{TransactionID: r.TransactionID}
	case "failed":
		reason := r.ErrorMessage
		if reason == "" {
			reason = DefaultFailureReason
		}
		return Failed{Reason: reason}
	default:
		return Pending{Raw: r.Status}
	}
}
