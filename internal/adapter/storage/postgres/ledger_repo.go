package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"reseller-ledger/internal/core/domain"
	"reseller-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LedgerRepo implements ports.LedgerRepository. The ledger_entries table is
// insert-only; no method here issues UPDATE or DELETE.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

const ledgerColumns = `id, wallet_id, operation, amount, balance_after, description, actor_id, related_order_id, created_at`

func scanLedgerEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	e := &domain.LedgerEntry{}
	err := row.Scan(
		&e.ID, &e.WalletID, &e.Operation, &e.Amount, &e.BalanceAfter,
		&e.Description, &e.ActorID, &e.RelatedOrderID, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Append inserts one entry within a transaction.
func (r *LedgerRepo) Append(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	query := `INSERT INTO ledger_entries (id, wallet_id, operation, amount, balance_after, description, actor_id, related_order_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := tx.Exec(ctx, query,
		e.ID, e.WalletID, e.Operation, e.Amount, e.BalanceAfter,
		e.Description, e.ActorID, e.RelatedOrderID, e.CreatedAt,
	)
	if err != nil {
		return wrapTxErr("insert ledger entry", err)
	}
	return nil
}

// LastEntry returns the newest entry for a wallet, or nil for an empty
// ledger. Called with the wallet row already locked.
func (r *LedgerRepo) LastEntry(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (*domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries
		WHERE wallet_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`

	e, err := scanLedgerEntry(tx.QueryRow(ctx, query, walletID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapTxErr("get last ledger entry", err)
	}
	return e, nil
}

// ExistsForOrder reports whether an entry with the given operation is
// already recorded against the order.
func (r *LedgerRepo) ExistsForOrder(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, op domain.LedgerOperation) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM ledger_entries WHERE related_order_id = $1 AND operation = $2)`

	var exists bool
	if err := tx.QueryRow(ctx, query, orderID, op).Scan(&exists); err != nil {
		return false, wrapTxErr("check ledger entry for order", err)
	}
	return exists, nil
}

// GetByOrder fetches the entry recorded against an order with the given
// operation, or nil when none exists.
func (r *LedgerRepo) GetByOrder(ctx context.Context, orderID uuid.UUID, op domain.LedgerOperation) (*domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries
		WHERE related_order_id = $1 AND operation = $2`

	e, err := scanLedgerEntry(r.pool.QueryRow(ctx, query, orderID, op))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ledger entry by order: %w", err)
	}
	return e, nil
}

// List returns a filtered, paginated page of the audit log plus the total
// match count. Results are ordered oldest first.
func (r *LedgerRepo) List(ctx context.Context, params ports.LedgerListParams) ([]domain.LedgerEntry, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, fmt.Sprintf("wallet_id = $%d", argIdx))
	args = append(args, params.WalletID)
	argIdx++

	if params.Operation != nil {
		conditions = append(conditions, fmt.Sprintf("operation = $%d", argIdx))
		args = append(args, *params.Operation)
		argIdx++
	}
	if params.From != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= to_timestamp($%d)", argIdx))
		args = append(args, *params.From)
		argIdx++
	}
	if params.To != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= to_timestamp($%d)", argIdx))
		args = append(args, *params.To)
		argIdx++
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	// Count total
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM ledger_entries %s", where)
	var total int64
	err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count ledger entries: %w", err)
	}

	// Fetch page
	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT `+ledgerColumns+` FROM ledger_entries %s
		ORDER BY created_at ASC, id ASC LIMIT $%d OFFSET $%d`, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		e := domain.LedgerEntry{}
		err := rows.Scan(
			&e.ID, &e.WalletID, &e.Operation, &e.Amount, &e.BalanceAfter,
			&e.Description, &e.ActorID, &e.RelatedOrderID, &e.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan ledger entry row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate ledger entry rows: %w", err)
	}
	return entries, total, nil
}

// ListRecent returns the newest entries for a wallet, newest first.
func (r *LedgerRepo) ListRecent(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries
		WHERE wallet_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, walletID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		e := domain.LedgerEntry{}
		err := rows.Scan(
			&e.ID, &e.WalletID, &e.Operation, &e.Amount, &e.BalanceAfter,
			&e.Description, &e.ActorID, &e.RelatedOrderID, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entry rows: %w", err)
	}
	return entries, nil
}
