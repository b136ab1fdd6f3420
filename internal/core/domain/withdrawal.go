package domain

import (
	"time"

	"github.com/google/uuid"
)

// WithdrawalStatus transitions one way only: PENDING may become COMPLETED
// or FAILED, and terminal states never transition back. That one-way gate
// is what makes withdrawal settlement replay-safe.
type WithdrawalStatus string

const (
	WithdrawalStatusPending   WithdrawalStatus = "PENDING"
	WithdrawalStatusCompleted WithdrawalStatus = "COMPLETED"
	WithdrawalStatusFailed    WithdrawalStatus = "FAILED"
)

// Withdrawal is a request to move held funds out of a wallet.
type Withdrawal struct {
	ID                uuid.UUID        `json:"id"`
	WalletID          uuid.UUID        `json:"wallet_id"`
	RequestedAmount   int64            `json:"requested_amount"`
	Status            WithdrawalStatus `json:"status"`
	Provider          string           `json:"provider"`
	ProviderReference *string          `json:"provider_reference,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// IsTerminal returns true once the withdrawal has settled either way.
func (w *Withdrawal) IsTerminal() bool {
	return w.Status == WithdrawalStatusCompleted || w.Status == WithdrawalStatusFailed
}
