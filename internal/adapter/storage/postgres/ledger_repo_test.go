package postgres

import (
	"context"
	"testing"
	"time"

	"reseller-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ledgerTestColumns() []string {
	return []string{"id", "wallet_id", "operation", "amount", "balance_after", "description", "actor_id", "related_order_id", "created_at"}
}

func newTestEntry(walletID uuid.UUID) *domain.LedgerEntry {
	return &domain.LedgerEntry{
		ID:           uuid.New(),
		WalletID:     walletID,
		Operation:    domain.OpCredit,
		Amount:       50,
		BalanceAfter: 50,
		Description:  "Sale earning",
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestLedgerRepo_Append(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	e := newTestEntry(uuid.New())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO ledger_entries").
		WithArgs(e.ID, e.WalletID, e.Operation, e.Amount, e.BalanceAfter,
			e.Description, e.ActorID, e.RelatedOrderID, e.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Append(context.Background(), tx, e)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_LastEntry(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	e := newTestEntry(uuid.New())

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM ledger_entries .+ ORDER BY created_at DESC").
		WithArgs(e.WalletID).
		WillReturnRows(pgxmock.NewRows(ledgerTestColumns()).AddRow(
			e.ID, e.WalletID, e.Operation, e.Amount, e.BalanceAfter,
			e.Description, e.ActorID, e.RelatedOrderID, e.CreatedAt,
		))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.LastEntry(context.Background(), tx, e.WalletID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, e.BalanceAfter, result.BalanceAfter)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_LastEntry_EmptyLedger(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	walletID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM ledger_entries .+ ORDER BY created_at DESC").
		WithArgs(walletID).
		WillReturnRows(pgxmock.NewRows(ledgerTestColumns()))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.LastEntry(context.Background(), tx, walletID)
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_ExistsForOrder(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	orderID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(orderID, domain.OpCredit).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	exists, err := repo.ExistsForOrder(context.Background(), tx, orderID, domain.OpCredit)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
