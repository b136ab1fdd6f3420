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

func newTestWithdrawal(walletID uuid.UUID) *domain.Withdrawal {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Withdrawal{
		ID:              uuid.New(),
		WalletID:        walletID,
		RequestedAmount: 400,
		Status:          domain.WithdrawalStatusPending,
		Provider:        "bank-transfer",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestWithdrawalRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWithdrawalRepo(mock)
	w := newTestWithdrawal(uuid.New())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO withdrawals").
		WithArgs(w.ID, w.WalletID, w.RequestedAmount, w.Status,
			w.Provider, w.ProviderReference, w.CreatedAt, w.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, w)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdrawalRepo_MarkTerminal(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWithdrawalRepo(mock)
	withdrawalID := uuid.New()
	ref := "payout-123"

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE withdrawals").
		WithArgs(domain.WithdrawalStatusCompleted, &ref, pgxmock.AnyArg(),
			withdrawalID, domain.WithdrawalStatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	ok, err := repo.MarkTerminal(context.Background(), tx, withdrawalID, domain.WithdrawalStatusCompleted, &ref)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdrawalRepo_MarkTerminal_Replay(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWithdrawalRepo(mock)
	withdrawalID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE withdrawals").
		WithArgs(domain.WithdrawalStatusCompleted, (*string)(nil), pgxmock.AnyArg(),
			withdrawalID, domain.WithdrawalStatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	ok, err := repo.MarkTerminal(context.Background(), tx, withdrawalID, domain.WithdrawalStatusCompleted, nil)
	require.NoError(t, err)
	assert.False(t, ok, "a terminal withdrawal must not transition again")
	assert.NoError(t, mock.ExpectationsWereMet())
}
