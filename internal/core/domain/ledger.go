package domain

import (
	"time"

	"github.com/google/uuid"
)

// LedgerOperation classifies a balance-affecting event.
type LedgerOperation string

const (
	OpCredit             LedgerOperation = "CREDIT"
	OpDebit              LedgerOperation = "DEBIT"
	OpAdminCredit        LedgerOperation = "ADMIN_CREDIT"
	OpAdminDebit         LedgerOperation = "ADMIN_DEBIT"
	OpWithdrawalHold     LedgerOperation = "WITHDRAWAL_HOLD"
	OpWithdrawalComplete LedgerOperation = "WITHDRAWAL_COMPLETE"
	OpCorrection         LedgerOperation = "CORRECTION"
)

// LedgerEntry is one immutable record of a balance-affecting event.
// Entries are append-only: corrections are new entries, never edits.
// Amount is signed; BalanceAfter must equal the previous entry's
// BalanceAfter plus Amount (zero base for the first entry).
type LedgerEntry struct {
	ID             uuid.UUID       `json:"id"`
	WalletID       uuid.UUID       `json:"wallet_id"`
	Operation      LedgerOperation `json:"operation"`
	Amount         int64           `json:"amount"`
	BalanceAfter   int64           `json:"balance_after"`
	Description    string          `json:"description"`
	ActorID        *uuid.UUID      `json:"actor_id,omitempty"`
	RelatedOrderID *uuid.UUID      `json:"related_order_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// IsAdministrative returns true for operations that require an actor and
// a human-readable reason.
func (op LedgerOperation) IsAdministrative() bool {
	return op == OpAdminCredit || op == OpAdminDebit
}

// BuildCreditKey constructs the idempotency cache key guarding the
// at-most-one-credit-per-order invariant.
func BuildCreditKey(orderID uuid.UUID) string {
	return "credit:" + orderID.String()
}
