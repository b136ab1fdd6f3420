package domain

import (
	"time"

	"github.com/google/uuid"
)

// Wallet holds a store's money projection. All four money fields are
// derived from the wallet's ledger entries; they are cached here and
// revalidated against the log inside every append's critical section.
// Amounts are in the currency's smallest unit.
type Wallet struct {
	ID                uuid.UUID `json:"id"`
	StoreID           uuid.UUID `json:"store_id"`
	Balance           int64     `json:"balance"`
	PendingWithdrawal int64     `json:"pending_withdrawal"`
	TotalEarnings     int64     `json:"total_earnings"`
	TotalWithdrawn    int64     `json:"total_withdrawn"`
	Active            bool      `json:"active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// IsActive returns true if the wallet accepts non-administrative writes.
func (w *Wallet) IsActive() bool {
	return w.Active
}
