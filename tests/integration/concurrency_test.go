package integration

import (
	"context"
	"sync"
	"testing"

	"reseller-ledger/internal/core/domain"
	"reseller-ledger/internal/core/ports"
	"reseller-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentCreditSalesKeepChainConsistent(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	wallet := e.createWallet(t)

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := e.adjust.CreditSale(ctx, wallet.ID, 10, uuid.New())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	balance, err := e.ledger.CurrentBalance(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10*workers), balance)

	entries := e.ledgerRepo.allEntries(wallet.ID)
	require.Len(t, entries, workers)
	prev := int64(0)
	for _, entry := range entries {
		assert.Equal(t, prev+entry.Amount, entry.BalanceAfter)
		prev = entry.BalanceAfter
	}
}

func TestConcurrentRetriesOfSameOrderCreditOnce(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	wallet := e.createWallet(t)

	order, err := e.tracker.RecordSale(ctx, saleParams(wallet.ID, 1000, "0.05"))
	require.NoError(t, err)
	order, err = e.tracker.MarkAccepted(ctx, order.ID, "ref-race-1", "")
	require.NoError(t, err)
	e.makeStale(t, order.ID)
	e.provider.setStatus("ref-race-1", &ports.DeliveryStatus{State: ports.DeliveryDelivered, Raw: `{"status":"DELIVERED"}`})

	const workers = 8
	outcomes := make([]*domain.RetryOutcome, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := e.worker.RetryOne(ctx, order.ID)
			assert.NoError(t, err)
			outcomes[i] = out
		}(i)
	}
	wg.Wait()

	var credits int
	for _, entry := range e.ledgerRepo.allEntries(wallet.ID) {
		if entry.Operation == domain.OpCredit {
			credits++
		}
	}
	assert.Equal(t, 1, credits, "racing retries must credit exactly once")

	for _, out := range outcomes {
		require.NotNil(t, out)
		assert.Contains(t, []domain.RetryResult{domain.RetryCompleted, domain.RetryAlreadyTerminal}, out.Result)
	}

	balance, err := e.ledger.CurrentBalance(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), balance)
}

func TestSaleRacingWithdrawalHoldIsOrdered(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	wallet := e.createWallet(t)

	_, _, err := e.adjust.CreditSale(ctx, wallet.ID, 300, uuid.New())
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _, err := e.adjust.CreditSale(ctx, wallet.ID, 200, uuid.New())
		assert.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		// May lose the race against the credit but must never observe a
		// half-applied balance.
		_, _, err := e.adjust.RequestWithdrawal(ctx, wallet.ID, 300, "bank-transfer")
		assert.NoError(t, err)
	}()
	wg.Wait()

	final, err := e.ledger.GetWallet(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(200), final.Balance) // 300 + 200 - 300
	assert.Equal(t, int64(300), final.PendingWithdrawal)

	entries := e.ledgerRepo.allEntries(wallet.ID)
	prev := int64(0)
	for _, entry := range entries {
		assert.Equal(t, prev+entry.Amount, entry.BalanceAfter)
		prev = entry.BalanceAfter
	}
}

func TestConcurrentWithdrawalSettlementSettlesOnce(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	wallet := e.createWallet(t)

	_, _, err := e.adjust.CreditSale(ctx, wallet.ID, 1000, uuid.New())
	require.NoError(t, err)
	withdrawal, _, err := e.adjust.RequestWithdrawal(ctx, wallet.ID, 400, "bank-transfer")
	require.NoError(t, err)

	const workers = 4
	results := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = e.adjust.CompleteWithdrawal(ctx, withdrawal.ID, true, nil)
		}(i)
	}
	wg.Wait()

	var succeeded, replayed int
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case apperror.Code(err) == "TERM_001":
			replayed++
		default:
			t.Fatalf("unexpected settlement error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, replayed)

	final, err := e.ledger.GetWallet(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), final.PendingWithdrawal)
	assert.Equal(t, int64(400), final.TotalWithdrawn)
	assert.Len(t, e.ledgerRepo.allEntries(wallet.ID), 3)
}
