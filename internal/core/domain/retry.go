package domain

import "github.com/google/uuid"

// RetryResult classifies the outcome of one reconciliation attempt.
type RetryResult string

const (
	RetryCompleted       RetryResult = "COMPLETED"
	RetryFailed          RetryResult = "FAILED"
	RetryStillProcessing RetryResult = "STILL_PROCESSING"
	RetryAlreadyTerminal RetryResult = "ALREADY_TERMINAL"
	RetrySkipped         RetryResult = "SKIPPED"
	RetryProviderError   RetryResult = "PROVIDER_ERROR"
	RetryError           RetryResult = "ERROR"
)

// RetryOutcome reports what one retryOne pass did to a single order.
// Every attempt produces an outcome, including failed provider queries.
type RetryOutcome struct {
	OrderID  uuid.UUID   `json:"order_id"`
	Result   RetryResult `json:"result"`
	Reason   string      `json:"reason,omitempty"`
	Credited bool        `json:"credited"` // a new CREDIT entry was appended
	Reversed bool        `json:"reversed"` // a reversal CORRECTION entry was appended
}
