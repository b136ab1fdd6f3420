package domain

// VerificationState is the observer-side view of an order's progress.
// COMPLETED and FAILED are terminal; PENDING is a soft-terminal "give up
// polling" outcome reached when the attempt cap runs out, not an error.
type VerificationState string

const (
	VerificationVerifying  VerificationState = "VERIFYING"
	VerificationProcessing VerificationState = "PROCESSING"
	VerificationCompleted  VerificationState = "COMPLETED"
	VerificationFailed     VerificationState = "FAILED"
	VerificationPending    VerificationState = "PENDING"
)

// IsTerminal returns true for states that end a polling session with a
// definitive answer.
func (s VerificationState) IsTerminal() bool {
	return s == VerificationCompleted || s == VerificationFailed
}

// VerificationResult is the outcome of one bounded polling session.
// Sessions only read order state; they never trigger retries or writes.
type VerificationResult struct {
	State    VerificationState `json:"state"`
	Attempts int               `json:"attempts"`
	Order    *Order            `json:"order,omitempty"`
}
