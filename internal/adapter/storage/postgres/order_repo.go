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

// OrderRepo implements ports.OrderRepository.
type OrderRepo struct {
	pool Pool
}

// NewOrderRepo creates a new OrderRepo.
func NewOrderRepo(pool Pool) *OrderRepo {
	return &OrderRepo{pool: pool}
}

const orderColumns = `id, wallet_id, product, recipient_address, amount, profit_share, status, provider_reference, fulfillment_response, retry_count, created_at, updated_at`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	o := &domain.Order{}
	err := row.Scan(
		&o.ID, &o.WalletID, &o.Product, &o.RecipientAddress,
		&o.Amount, &o.ProfitShare, &o.Status, &o.ProviderReference,
		&o.FulfillmentResponse, &o.RetryCount, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// Create inserts a new order into the database.
func (r *OrderRepo) Create(ctx context.Context, o *domain.Order) error {
	query := `INSERT INTO orders (id, wallet_id, product, recipient_address, amount, profit_share, status, provider_reference, fulfillment_response, retry_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.pool.Exec(ctx, query,
		o.ID, o.WalletID, o.Product, o.RecipientAddress,
		o.Amount, o.ProfitShare, o.Status, o.ProviderReference,
		o.FulfillmentResponse, o.RetryCount, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetByID fetches an order by its UUID (without locking).
func (r *OrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	o, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order by id: %w", err)
	}
	return o, nil
}

// GetByIDForUpdate fetches an order by ID with pessimistic locking.
// This MUST be called within a transaction.
func (r *OrderRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

	o, err := scanOrder(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapTxErr("get order for update", err)
	}
	return o, nil
}

// Update persists mutable order fields within a transaction. updated_at is
// written from the struct so attempt accounting can leave the staleness
// clock untouched.
func (r *OrderRepo) Update(ctx context.Context, tx pgx.Tx, o *domain.Order) error {
	query := `UPDATE orders
		SET status = $1, provider_reference = $2, fulfillment_response = $3, retry_count = $4, updated_at = $5
		WHERE id = $6`

	tag, err := tx.Exec(ctx, query,
		o.Status, o.ProviderReference, o.FulfillmentResponse,
		o.RetryCount, o.UpdatedAt, o.ID,
	)
	if err != nil {
		return wrapTxErr("update order", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order not found: %s", o.ID)
	}
	return nil
}

// ListStuck returns processing orders not updated since the cutoff, most
// stale first.
func (r *OrderRepo) ListStuck(ctx context.Context, cutoff time.Time, limit int) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders
		WHERE status = $1 AND updated_at < $2
		ORDER BY updated_at ASC LIMIT $3`

	rows, err := r.pool.Query(ctx, query, domain.OrderStatusProcessing, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list stuck orders: %w", err)
	}
	defer rows.Close()

	return collectOrders(rows)
}

// ListRecentByWallet returns the newest orders for a wallet, newest first.
func (r *OrderRepo) ListRecentByWallet(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders
		WHERE wallet_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, walletID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent orders: %w", err)
	}
	defer rows.Close()

	return collectOrders(rows)
}

func collectOrders(rows pgx.Rows) ([]domain.Order, error) {
	var orders []domain.Order
	for rows.Next() {
		o := domain.Order{}
		err := rows.Scan(
			&o.ID, &o.WalletID, &o.Product, &o.RecipientAddress,
			&o.Amount, &o.ProfitShare, &o.Status, &o.ProviderReference,
			&o.FulfillmentResponse, &o.RetryCount, &o.CreatedAt, &o.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	return orders, nil
}
