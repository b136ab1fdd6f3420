package ports

import (
	"context"
	"time"

	"reseller-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx are used inside transaction blocks for
// pessimistic locking: the locked wallet row is the per-wallet exclusive
// section serializing all ledger appends for that wallet.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetByStoreID(ctx context.Context, storeID uuid.UUID) (*domain.Wallet, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error)
	// UpdateProjection writes the cached balance fields within a transaction.
	UpdateProjection(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet) error
}

// LedgerRepository defines persistence for the append-only ledger.
// Entries are never updated or deleted.
type LedgerRepository interface {
	Append(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error
	// LastEntry returns the newest entry for a wallet, or nil for an
	// empty ledger. Called with the wallet row already locked.
	LastEntry(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (*domain.LedgerEntry, error)
	// ExistsForOrder reports whether an entry with the given operation is
	// already recorded against the order. Inside the wallet's critical
	// section this is the authoritative idempotency check.
	ExistsForOrder(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, op domain.LedgerOperation) (bool, error)
	GetByOrder(ctx context.Context, orderID uuid.UUID, op domain.LedgerOperation) (*domain.LedgerEntry, error)
	List(ctx context.Context, params LedgerListParams) ([]domain.LedgerEntry, int64, error)
	ListRecent(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.LedgerEntry, error)
}

// LedgerListParams holds filter + pagination for the audit history.
// Results are ordered by creation time ascending.
type LedgerListParams struct {
	WalletID  uuid.UUID
	Operation *domain.LedgerOperation
	From      *int64 // Unix timestamp
	To        *int64 // Unix timestamp
	Page      int
	PageSize  int
}

// OrderRepository defines persistence operations for sale orders.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Order, error)
	// Update persists mutable order fields (status, provider reference,
	// fulfillment response, retry count) within a transaction.
	Update(ctx context.Context, tx pgx.Tx, order *domain.Order) error
	// ListStuck returns processing orders not updated since the cutoff,
	// most stale first.
	ListStuck(ctx context.Context, cutoff time.Time, limit int) ([]domain.Order, error)
	ListRecentByWallet(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.Order, error)
}

// WithdrawalRepository defines persistence operations for withdrawals.
type WithdrawalRepository interface {
	Create(ctx context.Context, tx pgx.Tx, withdrawal *domain.Withdrawal) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Withdrawal, error)
	// MarkTerminal transitions PENDING to a terminal status. It reports
	// false when the withdrawal was already terminal, which is the
	// replay guard for settlement.
	MarkTerminal(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.WithdrawalStatus, providerRef *string) (bool, error)
	ListRecentByWallet(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.Withdrawal, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
