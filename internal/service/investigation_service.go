package service

import (
	"context"

	"reseller-ledger/internal/core/ports"
	"reseller-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// investigationWindow is how many recent records of each kind the report
// carries.
const investigationWindow = 10

// InvestigationServiceImpl assembles the read-only support snapshot for a
// store: wallet projection plus recent orders, withdrawals, and ledger
// entries.
type InvestigationServiceImpl struct {
	walletRepo     ports.WalletRepository
	orderRepo      ports.OrderRepository
	withdrawalRepo ports.WithdrawalRepository
	ledgerRepo     ports.LedgerRepository
	log            zerolog.Logger
}

// NewInvestigationService creates a new InvestigationServiceImpl.
func NewInvestigationService(
	walletRepo ports.WalletRepository,
	orderRepo ports.OrderRepository,
	withdrawalRepo ports.WithdrawalRepository,
	ledgerRepo ports.LedgerRepository,
	log zerolog.Logger,
) *InvestigationServiceImpl {
	return &InvestigationServiceImpl{
		walletRepo:     walletRepo,
		orderRepo:      orderRepo,
		withdrawalRepo: withdrawalRepo,
		ledgerRepo:     ledgerRepo,
		log:            log,
	}
}

func (s *InvestigationServiceImpl) Investigate(ctx context.Context, storeID uuid.UUID) (*ports.InvestigationReport, error) {
	wallet, err := s.walletRepo.GetByStoreID(ctx, storeID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("Wallet")
	}

	orders, err := s.orderRepo.ListRecentByWallet(ctx, wallet.ID, investigationWindow)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	withdrawals, err := s.withdrawalRepo.ListRecentByWallet(ctx, wallet.ID, investigationWindow)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	entries, err := s.ledgerRepo.ListRecent(ctx, wallet.ID, investigationWindow)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	s.log.Debug().Str("store_id", storeID.String()).Msg("investigation report assembled")

	return &ports.InvestigationReport{
		Wallet:        wallet,
		RecentOrders:  orders,
		Withdrawals:   withdrawals,
		LedgerEntries: entries,
	}, nil
}
