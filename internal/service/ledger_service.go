package service

import (
	"context"
	"fmt"
	"time"

	"reseller-ledger/internal/core/domain"
	"reseller-ledger/internal/core/ports"
	"reseller-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const (
	defaultHistoryPageSize = 20
	maxHistoryPageSize     = 100
)

// LedgerService implements ports.LedgerStore. Every append runs inside the
// wallet's critical section: the wallet row is locked FOR UPDATE, the cached
// projection is revalidated against the newest log entry, and only then is
// the entry written and the projection moved.
type LedgerService struct {
	walletRepo ports.WalletRepository
	ledgerRepo ports.LedgerRepository
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(
	walletRepo ports.WalletRepository,
	ledgerRepo ports.LedgerRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *LedgerService {
	return &LedgerService{
		walletRepo: walletRepo,
		ledgerRepo: ledgerRepo,
		transactor: transactor,
		log:        log,
	}
}

// CreateWallet provisions an empty, active wallet for a store.
func (s *LedgerService) CreateWallet(ctx context.Context, storeID uuid.UUID) (*domain.Wallet, error) {
	if storeID == uuid.Nil {
		return nil, apperror.Validation("store_id is required")
	}
	if existing, err := s.walletRepo.GetByStoreID(ctx, storeID); err != nil {
		return nil, apperror.InternalError(err)
	} else if existing != nil {
		return nil, apperror.Validation("store already has a wallet")
	}

	now := time.Now().UTC()
	wallet := &domain.Wallet{
		ID:        uuid.New(),
		StoreID:   storeID,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.walletRepo.Create(ctx, wallet); err != nil {
		return nil, apperror.InternalError(err)
	}

	s.log.Info().
		Str("wallet_id", wallet.ID.String()).
		Str("store_id", storeID.String()).
		Msg("wallet created")

	return wallet, nil
}

func (s *LedgerService) GetWallet(ctx context.Context, walletID uuid.UUID) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("Wallet")
	}
	return wallet, nil
}

// CurrentBalance returns the cached projection balance. The projection is
// trustworthy because every append revalidates it against the log.
func (s *LedgerService) CurrentBalance(ctx context.Context, walletID uuid.UUID) (int64, error) {
	wallet, err := s.GetWallet(ctx, walletID)
	if err != nil {
		return 0, err
	}
	return wallet.Balance, nil
}

// Append records one ledger entry in its own transaction, retrying a bounded
// number of times when the wallet's critical section is contended.
func (s *LedgerService) Append(ctx context.Context, p ports.AppendParams) (*domain.LedgerEntry, bool, error) {
	var (
		entry   *domain.LedgerEntry
		created bool
	)
	err := withConflictRetry(ctx, s.log, func() error {
		tx, err := s.transactor.Begin(ctx)
		if err != nil {
			return apperror.InternalError(err)
		}
		defer tx.Rollback(ctx) //nolint:errcheck

		entry, created, err = s.AppendInTx(ctx, tx, p)
		if err != nil {
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return apperror.ErrConcurrencyConflict(err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		s.log.Info().
			Str("wallet_id", p.WalletID.String()).
			Str("operation", string(p.Operation)).
			Int64("amount", p.Amount).
			Int64("balance_after", entry.BalanceAfter).
			Msg("ledger entry appended")
	}
	return entry, created, nil
}

// AppendInTx is the append critical section. The caller owns the transaction;
// lock ordering is always order/withdrawal row first, wallet row second.
func (s *LedgerService) AppendInTx(ctx context.Context, tx pgx.Tx, p ports.AppendParams) (*domain.LedgerEntry, bool, error) {
	if p.WalletID == uuid.Nil {
		return nil, false, apperror.Validation("wallet_id is required")
	}
	if p.Operation.IsAdministrative() {
		if p.ActorID == nil {
			return nil, false, apperror.Validation("actor_id is required for administrative adjustments")
		}
		if p.Description == "" {
			return nil, false, apperror.Validation("a reason is required for administrative adjustments")
		}
	}
	if p.UniquePerOrder && p.RelatedOrderID == nil {
		return nil, false, apperror.Validation("related order is required for idempotent appends")
	}

	wallet, err := s.walletRepo.GetByIDForUpdate(ctx, tx, p.WalletID)
	if err != nil {
		return nil, false, err
	}
	if wallet == nil {
		return nil, false, apperror.ErrNotFound("Wallet")
	}
	if !wallet.IsActive() && !p.Operation.IsAdministrative() && p.Operation != domain.OpCorrection {
		return nil, false, apperror.ErrWalletDeactivated()
	}

	if p.UniquePerOrder {
		exists, err := s.ledgerRepo.ExistsForOrder(ctx, tx, *p.RelatedOrderID, p.Operation)
		if err != nil {
			return nil, false, apperror.InternalError(err)
		}
		if exists {
			prior, err := s.ledgerRepo.GetByOrder(ctx, *p.RelatedOrderID, p.Operation)
			if err != nil {
				return nil, false, apperror.InternalError(err)
			}
			return prior, false, nil
		}
	}

	last, err := s.ledgerRepo.LastEntry(ctx, tx, p.WalletID)
	if err != nil {
		return nil, false, apperror.InternalError(err)
	}
	if last == nil {
		if wallet.Balance != 0 {
			return nil, false, apperror.ErrLedgerIntegrity(
				fmt.Errorf("wallet %s has balance %d with an empty ledger", wallet.ID, wallet.Balance))
		}
	} else if last.BalanceAfter != wallet.Balance {
		return nil, false, apperror.ErrLedgerIntegrity(
			fmt.Errorf("wallet %s balance %d disagrees with last entry balance %d",
				wallet.ID, wallet.Balance, last.BalanceAfter))
	}

	newBalance := wallet.Balance + p.Amount
	if newBalance < 0 && !p.AllowOverdraft {
		return nil, false, apperror.ErrInsufficientFunds()
	}

	now := time.Now().UTC()
	entry := &domain.LedgerEntry{
		ID:             uuid.New(),
		WalletID:       p.WalletID,
		Operation:      p.Operation,
		Amount:         p.Amount,
		BalanceAfter:   newBalance,
		Description:    p.Description,
		ActorID:        p.ActorID,
		RelatedOrderID: p.RelatedOrderID,
		CreatedAt:      now,
	}
	if err := s.ledgerRepo.Append(ctx, tx, entry); err != nil {
		return nil, false, err
	}

	wallet.Balance = newBalance
	wallet.TotalEarnings += p.EarningsDelta
	wallet.PendingWithdrawal += p.PendingDelta
	wallet.TotalWithdrawn += p.WithdrawnDelta
	wallet.UpdatedAt = now
	if wallet.PendingWithdrawal < 0 {
		return nil, false, apperror.ErrLedgerIntegrity(
			fmt.Errorf("wallet %s pending withdrawal would become negative", wallet.ID))
	}
	if err := s.walletRepo.UpdateProjection(ctx, tx, wallet); err != nil {
		return nil, false, err
	}

	return entry, true, nil
}

// History returns a filtered, paginated slice of the audit log.
func (s *LedgerService) History(ctx context.Context, params ports.LedgerListParams) ([]domain.LedgerEntry, int64, error) {
	if params.WalletID == uuid.Nil {
		return nil, 0, apperror.Validation("wallet_id is required")
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = defaultHistoryPageSize
	}
	if params.PageSize > maxHistoryPageSize {
		params.PageSize = maxHistoryPageSize
	}
	if params.From != nil && params.To != nil && *params.From > *params.To {
		return nil, 0, apperror.Validation("from must not be after to")
	}

	entries, total, err := s.ledgerRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(err)
	}
	return entries, total, nil
}
