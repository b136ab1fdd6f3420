package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"reseller-ledger/internal/core/domain"
	"reseller-ledger/internal/core/ports"
	"reseller-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const creditCacheTTL = 24 * time.Hour

// AdjustmentServiceImpl implements ports.AdjustmentService on top of the
// ledger store. Sale credits carry a Redis fast path in front of the
// authoritative in-transaction dedup check; the cache is an optimization
// only and correctness never depends on it.
type AdjustmentServiceImpl struct {
	ledger         ports.LedgerStore
	withdrawalRepo ports.WithdrawalRepository
	transactor     ports.DBTransactor
	idempCache     ports.IdempotencyCache
	log            zerolog.Logger
}

// NewAdjustmentService creates a new AdjustmentServiceImpl.
func NewAdjustmentService(
	ledger ports.LedgerStore,
	withdrawalRepo ports.WithdrawalRepository,
	transactor ports.DBTransactor,
	idempCache ports.IdempotencyCache,
	log zerolog.Logger,
) *AdjustmentServiceImpl {
	return &AdjustmentServiceImpl{
		ledger:         ledger,
		withdrawalRepo: withdrawalRepo,
		transactor:     transactor,
		idempCache:     idempCache,
		log:            log,
	}
}

// CreditSale records a sale earning, at most once per order.
func (s *AdjustmentServiceImpl) CreditSale(ctx context.Context, walletID uuid.UUID, amount int64, orderID uuid.UUID) (*domain.LedgerEntry, bool, error) {
	if amount <= 0 {
		return nil, false, apperror.Validation("credit amount must be positive")
	}
	if orderID == uuid.Nil {
		return nil, false, apperror.Validation("order_id is required")
	}

	cacheKey := domain.BuildCreditKey(orderID)
	if cached, err := s.idempCache.Get(ctx, cacheKey); err == nil && cached != nil {
		var entry domain.LedgerEntry
		if err := json.Unmarshal(cached, &entry); err == nil {
			s.log.Debug().Str("order_id", orderID.String()).Msg("sale credit served from cache")
			return &entry, false, nil
		}
	}

	entry, created, err := s.ledger.Append(ctx, ports.AppendParams{
		WalletID:       walletID,
		Operation:      domain.OpCredit,
		Amount:         amount,
		Description:    fmt.Sprintf("Sale earning for order %s", orderID),
		RelatedOrderID: &orderID,
		UniquePerOrder: true,
		EarningsDelta:  amount,
	})
	if err != nil {
		return nil, false, err
	}

	if payload, err := json.Marshal(entry); err == nil {
		if err := s.idempCache.Set(ctx, cacheKey, payload, creditCacheTTL); err != nil {
			s.log.Warn().Err(err).Str("order_id", orderID.String()).Msg("failed to cache sale credit")
		}
	}
	return entry, created, nil
}

// AdjustByAdmin applies a manual balance correction with a mandatory reason.
func (s *AdjustmentServiceImpl) AdjustByAdmin(ctx context.Context, p ports.AdminAdjustParams) (*domain.LedgerEntry, error) {
	if strings.TrimSpace(p.Reason) == "" {
		return nil, apperror.Validation("a reason is required for administrative adjustments")
	}
	if p.Amount == 0 {
		return nil, apperror.Validation("adjustment amount must be non-zero")
	}
	if p.ActorID == uuid.Nil {
		return nil, apperror.Validation("actor_id is required for administrative adjustments")
	}

	op := domain.OpAdminCredit
	if p.Amount < 0 {
		op = domain.OpAdminDebit
	}

	entry, _, err := s.ledger.Append(ctx, ports.AppendParams{
		WalletID:       p.WalletID,
		Operation:      op,
		Amount:         p.Amount,
		Description:    p.Reason,
		ActorID:        &p.ActorID,
		AllowOverdraft: p.AllowOverdraft,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("wallet_id", p.WalletID.String()).
		Str("actor_id", p.ActorID.String()).
		Str("operation", string(op)).
		Int64("amount", p.Amount).
		Msg("administrative adjustment applied")

	return entry, nil
}

// RequestWithdrawal moves amount from available balance into the pending
// hold and creates the withdrawal record, atomically.
func (s *AdjustmentServiceImpl) RequestWithdrawal(ctx context.Context, walletID uuid.UUID, amount int64, provider string) (*domain.Withdrawal, *domain.LedgerEntry, error) {
	if amount <= 0 {
		return nil, nil, apperror.Validation("withdrawal amount must be positive")
	}
	if strings.TrimSpace(provider) == "" {
		return nil, nil, apperror.Validation("provider is required")
	}

	var (
		withdrawal *domain.Withdrawal
		entry      *domain.LedgerEntry
	)
	err := withConflictRetry(ctx, s.log, func() error {
		tx, err := s.transactor.Begin(ctx)
		if err != nil {
			return apperror.InternalError(err)
		}
		defer tx.Rollback(ctx) //nolint:errcheck

		now := time.Now().UTC()
		withdrawal = &domain.Withdrawal{
			ID:              uuid.New(),
			WalletID:        walletID,
			RequestedAmount: amount,
			Status:          domain.WithdrawalStatusPending,
			Provider:        provider,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		entry, _, err = s.ledger.AppendInTx(ctx, tx, ports.AppendParams{
			WalletID:     walletID,
			Operation:    domain.OpWithdrawalHold,
			Amount:       -amount,
			Description:  fmt.Sprintf("Withdrawal hold for %s", withdrawal.ID),
			PendingDelta: amount,
		})
		if err != nil {
			return err
		}
		if err := s.withdrawalRepo.Create(ctx, tx, withdrawal); err != nil {
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return apperror.ErrConcurrencyConflict(err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.log.Info().
		Str("withdrawal_id", withdrawal.ID.String()).
		Str("wallet_id", walletID.String()).
		Int64("amount", amount).
		Msg("withdrawal requested, funds held")

	return withdrawal, entry, nil
}

// CompleteWithdrawal settles a pending withdrawal. Success moves the hold
// into TotalWithdrawn with a zero-amount settlement marker; failure returns
// the held funds to the available balance with a correction entry. Either
// way the transition is one-way and replays write nothing.
func (s *AdjustmentServiceImpl) CompleteWithdrawal(ctx context.Context, withdrawalID uuid.UUID, success bool, providerRef *string) (*domain.LedgerEntry, error) {
	var entry *domain.LedgerEntry
	err := withConflictRetry(ctx, s.log, func() error {
		tx, err := s.transactor.Begin(ctx)
		if err != nil {
			return apperror.InternalError(err)
		}
		defer tx.Rollback(ctx) //nolint:errcheck

		withdrawal, err := s.withdrawalRepo.GetByIDForUpdate(ctx, tx, withdrawalID)
		if err != nil {
			return err
		}
		if withdrawal == nil {
			return apperror.ErrNotFound("Withdrawal")
		}
		if withdrawal.IsTerminal() {
			return apperror.ErrAlreadyTerminal("Withdrawal")
		}

		status := domain.WithdrawalStatusCompleted
		if !success {
			status = domain.WithdrawalStatusFailed
		}
		transitioned, err := s.withdrawalRepo.MarkTerminal(ctx, tx, withdrawalID, status, providerRef)
		if err != nil {
			return err
		}
		if !transitioned {
			return apperror.ErrAlreadyTerminal("Withdrawal")
		}

		params := ports.AppendParams{WalletID: withdrawal.WalletID}
		if success {
			params.Operation = domain.OpWithdrawalComplete
			params.Amount = 0
			params.Description = fmt.Sprintf("Withdrawal %s settled via %s", withdrawal.ID, withdrawal.Provider)
			params.PendingDelta = -withdrawal.RequestedAmount
			params.WithdrawnDelta = withdrawal.RequestedAmount
		} else {
			params.Operation = domain.OpCorrection
			params.Amount = withdrawal.RequestedAmount
			params.Description = fmt.Sprintf("Withdrawal %s failed, hold released", withdrawal.ID)
			params.PendingDelta = -withdrawal.RequestedAmount
		}
		entry, _, err = s.ledger.AppendInTx(ctx, tx, params)
		if err != nil {
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return apperror.ErrConcurrencyConflict(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("withdrawal_id", withdrawalID.String()).
		Bool("success", success).
		Msg("withdrawal settled")

	return entry, nil
}
