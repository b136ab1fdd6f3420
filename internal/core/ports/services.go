package ports

import (
	"context"
	"time"

	"reseller-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// --- Ledger ---

// AppendParams describes one balance-affecting event to record.
type AppendParams struct {
	WalletID       uuid.UUID
	Operation      domain.LedgerOperation
	Amount         int64 // signed; applied to the wallet balance
	Description    string
	ActorID        *uuid.UUID
	RelatedOrderID *uuid.UUID

	// AllowOverdraft permits the resulting balance to go negative.
	// Reserved for explicitly flagged administrative corrections and
	// system reversals.
	AllowOverdraft bool

	// UniquePerOrder makes the append idempotent on
	// (RelatedOrderID, Operation): if a matching entry already exists
	// it is returned unchanged and nothing is written.
	UniquePerOrder bool

	// Projection deltas applied alongside the balance, in the same
	// atomic unit. The balance itself moves by Amount.
	EarningsDelta  int64
	PendingDelta   int64
	WithdrawnDelta int64
}

// LedgerStore is the append-only ledger with its cached wallet projection.
type LedgerStore interface {
	// Append records one entry. The returned bool is false when
	// UniquePerOrder deduplicated the write.
	Append(ctx context.Context, p AppendParams) (*domain.LedgerEntry, bool, error)
	// AppendInTx is Append without transaction management, for callers
	// composing a larger atomic unit. It locks the wallet row itself.
	AppendInTx(ctx context.Context, tx pgx.Tx, p AppendParams) (*domain.LedgerEntry, bool, error)
	CurrentBalance(ctx context.Context, walletID uuid.UUID) (int64, error)
	History(ctx context.Context, params LedgerListParams) ([]domain.LedgerEntry, int64, error)
	CreateWallet(ctx context.Context, storeID uuid.UUID) (*domain.Wallet, error)
	GetWallet(ctx context.Context, walletID uuid.UUID) (*domain.Wallet, error)
}

// --- Adjustments & withdrawals ---

// AdjustmentService validates and applies balance adjustments.
type AdjustmentService interface {
	// CreditSale records a sale earning. Idempotent per order: at most
	// one CREDIT entry ever exists for a given order ID.
	CreditSale(ctx context.Context, walletID uuid.UUID, amount int64, orderID uuid.UUID) (*domain.LedgerEntry, bool, error)
	// AdjustByAdmin applies a manual correction. A non-empty reason and a
	// non-zero amount are required.
	AdjustByAdmin(ctx context.Context, p AdminAdjustParams) (*domain.LedgerEntry, error)
	// RequestWithdrawal holds funds and creates the withdrawal record in
	// one atomic unit.
	RequestWithdrawal(ctx context.Context, walletID uuid.UUID, amount int64, provider string) (*domain.Withdrawal, *domain.LedgerEntry, error)
	// CompleteWithdrawal settles a pending withdrawal. On failure the
	// hold is reversed with a correction entry. Replays surface
	// AlreadyTerminal and write nothing.
	CompleteWithdrawal(ctx context.Context, withdrawalID uuid.UUID, success bool, providerRef *string) (*domain.LedgerEntry, error)
}

// AdminAdjustParams holds validated input for an administrative adjustment.
type AdminAdjustParams struct {
	WalletID       uuid.UUID
	Amount         int64 // positive = ADMIN_CREDIT, negative = ADMIN_DEBIT
	Reason         string
	ActorID        uuid.UUID
	AllowOverdraft bool
}

// --- Fulfillment ---

// SaleParams holds validated input for sale acceptance.
type SaleParams struct {
	WalletID         uuid.UUID
	Product          string
	RecipientAddress string
	Amount           int64
	ProfitRate       string // decimal fraction, e.g. "0.05"
}

// FulfillmentTracker owns the order state machine
// pending -> processing -> {completed, failed}.
type FulfillmentTracker interface {
	RecordSale(ctx context.Context, p SaleParams) (*domain.Order, error)
	// MarkAccepted moves pending -> processing once the provider accepts
	// the delivery, and appends the pending-earn credit for the order's
	// profit share.
	MarkAccepted(ctx context.Context, orderID uuid.UUID, providerRef, rawResponse string) (*domain.Order, error)
	// Complete moves processing -> completed and guarantees the sale
	// credit exists. The bool reports whether a new credit was appended.
	Complete(ctx context.Context, orderID uuid.UUID, rawResponse string) (*domain.Order, bool, error)
	// Fail moves processing -> failed and reverses the pending-earn
	// credit if one was recorded. The bool reports whether a reversal
	// was appended.
	Fail(ctx context.Context, orderID uuid.UUID, rawResponse, reason string) (*domain.Order, bool, error)
	ListStuck(ctx context.Context, limit int) ([]domain.Order, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
}

// --- Reconciliation ---

// ReconciliationWorker drives stuck orders back to ground truth by
// re-querying the provider before changing any local state.
type ReconciliationWorker interface {
	ListStuck(ctx context.Context, limit int) ([]domain.Order, error)
	RetryOne(ctx context.Context, orderID uuid.UUID) (*domain.RetryOutcome, error)
	RetryAll(ctx context.Context, limit int) ([]domain.RetryOutcome, error)
}

// --- Verification ---

// VerificationSession is the bounded, read-only polling protocol.
type VerificationSession interface {
	Observe(ctx context.Context, orderID uuid.UUID) (*domain.VerificationResult, error)
}

// --- Investigation ---

// InvestigationReport is the read-only composite view for support staff.
type InvestigationReport struct {
	Wallet        *domain.Wallet       `json:"wallet"`
	RecentOrders  []domain.Order       `json:"recent_orders"`
	Withdrawals   []domain.Withdrawal  `json:"recent_withdrawals"`
	LedgerEntries []domain.LedgerEntry `json:"recent_ledger_entries"`
}

// InvestigationService assembles the per-store snapshot.
type InvestigationService interface {
	Investigate(ctx context.Context, storeID uuid.UUID) (*InvestigationReport, error)
}

// --- Boundary auth ---

// TokenService handles JWT operations at the service boundary.
type TokenService interface {
	Generate(actorID uuid.UUID, role string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	ActorID uuid.UUID
	Role    string
}

// --- Caching ---

// IdempotencyCache is the Redis fast path in front of the authoritative
// in-transaction idempotency checks.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // nil when absent
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
