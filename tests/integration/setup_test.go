package integration

import (
	"context"
	"testing"
	"time"

	"reseller-ledger/config"
	"reseller-ledger/internal/core/domain"
	"reseller-ledger/internal/core/ports"
	"reseller-ledger/internal/service"
	"reseller-ledger/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const testStaleness = 50 * time.Millisecond

// testEngine wires the full service stack over in-memory storage.
type testEngine struct {
	walletRepo     *inMemoryWalletRepo
	ledgerRepo     *inMemoryLedgerRepo
	orderRepo      *inMemoryOrderRepo
	withdrawalRepo *inMemoryWithdrawalRepo
	provider       *fakeProvider
	cache          *inMemoryCache

	ledger       *service.LedgerService
	adjust       *service.AdjustmentServiceImpl
	tracker      *service.FulfillmentServiceImpl
	worker       *service.ReconcileService
	verifier     *service.VerificationService
	investigator *service.InvestigationServiceImpl
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()
	log := logger.New("error", false)

	e := &testEngine{
		walletRepo:     newInMemoryWalletRepo(),
		ledgerRepo:     newInMemoryLedgerRepo(),
		orderRepo:      newInMemoryOrderRepo(),
		withdrawalRepo: newInMemoryWithdrawalRepo(),
		provider:       newFakeProvider(),
		cache:          newInMemoryCache(),
	}
	transactor := newLockingTransactor()

	e.ledger = service.NewLedgerService(e.walletRepo, e.ledgerRepo, transactor, log)
	e.adjust = service.NewAdjustmentService(e.ledger, e.withdrawalRepo, transactor, e.cache, log)
	e.tracker = service.NewFulfillmentService(e.orderRepo, e.ledgerRepo, e.ledger, transactor, testStaleness, log)
	e.worker = service.NewReconcileService(e.orderRepo, e.tracker, e.provider, transactor, config.ReconcileConfig{
		StalenessThreshold: testStaleness,
		BatchLimit:         50,
		Parallelism:        4,
		Interval:           time.Hour,
	}, log)
	e.verifier = service.NewVerificationService(e.orderRepo, config.VerificationConfig{
		MaxAttempts:  3,
		PollInterval: 5 * time.Millisecond,
	}, log)
	e.investigator = service.NewInvestigationService(e.walletRepo, e.orderRepo, e.withdrawalRepo, e.ledgerRepo, log)

	return e
}

func (e *testEngine) createWallet(t *testing.T) *domain.Wallet {
	t.Helper()
	wallet, err := e.ledger.CreateWallet(context.Background(), uuid.New())
	require.NoError(t, err)
	return wallet
}

// acceptedOrder records a sale and walks it to processing with the given
// provider reference.
func (e *testEngine) acceptedOrder(t *testing.T, walletID uuid.UUID, amount int64, rate, providerRef string) *domain.Order {
	t.Helper()
	ctx := context.Background()
	order, err := e.tracker.RecordSale(ctx, saleParams(walletID, amount, rate))
	require.NoError(t, err)
	order, err = e.tracker.MarkAccepted(ctx, order.ID, providerRef, `{"status":"ACCEPTED"}`)
	require.NoError(t, err)
	return order
}

// makeStale pushes the order's staleness clock past the threshold.
func (e *testEngine) makeStale(t *testing.T, orderID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	order, err := e.orderRepo.GetByID(ctx, orderID)
	require.NoError(t, err)
	require.NotNil(t, order)
	order.UpdatedAt = time.Now().UTC().Add(-2 * testStaleness)
	require.NoError(t, e.orderRepo.Update(ctx, nil, order))
}

func saleParams(walletID uuid.UUID, amount int64, rate string) ports.SaleParams {
	return ports.SaleParams{
		WalletID:         walletID,
		Product:          "airtime-100",
		RecipientAddress: "+84900000001",
		Amount:           amount,
		ProfitRate:       rate,
	}
}
