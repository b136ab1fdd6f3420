package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reseller-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WithdrawalRepo implements ports.WithdrawalRepository.
type WithdrawalRepo struct {
	pool Pool
}

// NewWithdrawalRepo creates a new WithdrawalRepo.
func NewWithdrawalRepo(pool Pool) *WithdrawalRepo {
	return &WithdrawalRepo{pool: pool}
}

const withdrawalColumns = `id, wallet_id, requested_amount, status, provider, provider_reference, created_at, updated_at`

func scanWithdrawal(row pgx.Row) (*domain.Withdrawal, error) {
	w := &domain.Withdrawal{}
	err := row.Scan(
		&w.ID, &w.WalletID, &w.RequestedAmount, &w.Status,
		&w.Provider, &w.ProviderReference, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// Create inserts a new withdrawal within a transaction.
func (r *WithdrawalRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.Withdrawal) error {
	query := `INSERT INTO withdrawals (id, wallet_id, requested_amount, status, provider, provider_reference, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		w.ID, w.WalletID, w.RequestedAmount, w.Status,
		w.Provider, w.ProviderReference, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return wrapTxErr("insert withdrawal", err)
	}
	return nil
}

// GetByID fetches a withdrawal by its UUID (without locking).
func (r *WithdrawalRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE id = $1`

	w, err := scanWithdrawal(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get withdrawal by id: %w", err)
	}
	return w, nil
}

// GetByIDForUpdate fetches a withdrawal by ID with pessimistic locking.
// This MUST be called within a transaction.
func (r *WithdrawalRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE id = $1 FOR UPDATE`

	w, err := scanWithdrawal(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapTxErr("get withdrawal for update", err)
	}
	return w, nil
}

// MarkTerminal transitions PENDING to a terminal status. The status guard
// in the WHERE clause makes the transition one-way: a replay matches zero
// rows and reports false.
func (r *WithdrawalRepo) MarkTerminal(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.WithdrawalStatus, providerRef *string) (bool, error) {
	query := `UPDATE withdrawals
		SET status = $1, provider_reference = COALESCE($2, provider_reference), updated_at = $3
		WHERE id = $4 AND status = $5`

	tag, err := tx.Exec(ctx, query, status, providerRef, time.Now().UTC(), id, domain.WithdrawalStatusPending)
	if err != nil {
		return false, wrapTxErr("mark withdrawal terminal", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListRecentByWallet returns the newest withdrawals for a wallet, newest
// first.
func (r *WithdrawalRepo) ListRecentByWallet(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals
		WHERE wallet_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, walletID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent withdrawals: %w", err)
	}
	defer rows.Close()

	var withdrawals []domain.Withdrawal
	for rows.Next() {
		w := domain.Withdrawal{}
		err := rows.Scan(
			&w.ID, &w.WalletID, &w.RequestedAmount, &w.Status,
			&w.Provider, &w.ProviderReference, &w.CreatedAt, &w.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan withdrawal row: %w", err)
		}
		withdrawals = append(withdrawals, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate withdrawal rows: %w", err)
	}
	return withdrawals, nil
}
