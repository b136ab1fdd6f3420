package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"reseller-ledger/internal/core/domain"
	"reseller-ledger/internal/core/ports"
	"reseller-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const defaultStuckLimit = 50

// FulfillmentServiceImpl implements ports.FulfillmentTracker. Order
// transitions and their ledger effects commit in one transaction, with the
// order row locked first and the wallet row second.
type FulfillmentServiceImpl struct {
	orderRepo  ports.OrderRepository
	ledgerRepo ports.LedgerRepository
	ledger     ports.LedgerStore
	transactor ports.DBTransactor
	staleness  time.Duration
	log        zerolog.Logger
}

// NewFulfillmentService creates a new FulfillmentServiceImpl.
func NewFulfillmentService(
	orderRepo ports.OrderRepository,
	ledgerRepo ports.LedgerRepository,
	ledger ports.LedgerStore,
	transactor ports.DBTransactor,
	staleness time.Duration,
	log zerolog.Logger,
) *FulfillmentServiceImpl {
	return &FulfillmentServiceImpl{
		orderRepo:  orderRepo,
		ledgerRepo: ledgerRepo,
		ledger:     ledger,
		transactor: transactor,
		staleness:  staleness,
		log:        log,
	}
}

// RecordSale validates and persists a new pending order. The profit share
// is computed once, here, so later retries and reversals all agree on the
// amount.
func (s *FulfillmentServiceImpl) RecordSale(ctx context.Context, p ports.SaleParams) (*domain.Order, error) {
	if p.Amount <= 0 {
		return nil, apperror.Validation("sale amount must be positive")
	}
	if strings.TrimSpace(p.Product) == "" {
		return nil, apperror.Validation("product is required")
	}
	if strings.TrimSpace(p.RecipientAddress) == "" {
		return nil, apperror.Validation("recipient_address is required")
	}

	profitShare, err := computeProfitShare(p.Amount, p.ProfitRate)
	if err != nil {
		return nil, err
	}

	wallet, err := s.ledger.GetWallet(ctx, p.WalletID)
	if err != nil {
		return nil, err
	}
	if !wallet.IsActive() {
		return nil, apperror.ErrWalletDeactivated()
	}

	now := time.Now().UTC()
	order := &domain.Order{
		ID:               uuid.New(),
		WalletID:         p.WalletID,
		Product:          p.Product,
		RecipientAddress: p.RecipientAddress,
		Amount:           p.Amount,
		ProfitShare:      profitShare,
		Status:           domain.OrderStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, apperror.InternalError(err)
	}

	s.log.Info().
		Str("order_id", order.ID.String()).
		Str("wallet_id", p.WalletID.String()).
		Int64("amount", p.Amount).
		Int64("profit_share", profitShare).
		Msg("sale recorded")

	return order, nil
}

// computeProfitShare applies the reseller's rate to the sale amount,
// rounding down to the smallest currency unit.
func computeProfitShare(amount int64, rate string) (int64, error) {
	if strings.TrimSpace(rate) == "" {
		return 0, apperror.Validation("profit_rate is required")
	}
	r, err := decimal.NewFromString(rate)
	if err != nil {
		return 0, apperror.Validation("profit_rate must be a decimal fraction")
	}
	if r.IsNegative() || r.GreaterThan(decimal.NewFromInt(1)) {
		return 0, apperror.Validation("profit_rate must be between 0 and 1")
	}
	return decimal.NewFromInt(amount).Mul(r).Floor().IntPart(), nil
}

// MarkAccepted moves pending -> processing and appends the pending-earn
// credit in the same transaction. Replays on a processing order return it
// unchanged.
func (s *FulfillmentServiceImpl) MarkAccepted(ctx context.Context, orderID uuid.UUID, providerRef, rawResponse string) (*domain.Order, error) {
	if strings.TrimSpace(providerRef) == "" {
		return nil, apperror.Validation("provider_reference is required")
	}

	var order *domain.Order
	err := withConflictRetry(ctx, s.log, func() error {
		tx, err := s.transactor.Begin(ctx)
		if err != nil {
			return apperror.InternalError(err)
		}
		defer tx.Rollback(ctx) //nolint:errcheck

		order, err = s.lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order.Status == domain.OrderStatusProcessing {
			// Replayed acceptance, nothing to write.
			return nil
		}
		if order.IsTerminal() {
			return apperror.ErrAlreadyTerminal("Order")
		}

		now := time.Now().UTC()
		order.Status = domain.OrderStatusProcessing
		order.ProviderReference = &providerRef
		order.FulfillmentResponse = &rawResponse
		order.UpdatedAt = now
		if err := s.orderRepo.Update(ctx, tx, order); err != nil {
			return err
		}

		if _, _, err := s.appendSaleCredit(ctx, tx, order); err != nil {
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
		Str("order_id", orderID.String()).
		Str("provider_reference", providerRef).
		Msg("order accepted by provider")

	return order, nil
}

// Complete moves processing -> completed. It also guarantees the sale
// credit exists, which repairs an interrupted acceptance. The returned bool
// reports whether a new credit was appended.
func (s *FulfillmentServiceImpl) Complete(ctx context.Context, orderID uuid.UUID, rawResponse string) (*domain.Order, bool, error) {
	var (
		order    *domain.Order
		credited bool
	)
	err := withConflictRetry(ctx, s.log, func() error {
		tx, err := s.transactor.Begin(ctx)
		if err != nil {
			return apperror.InternalError(err)
		}
		defer tx.Rollback(ctx) //nolint:errcheck

		order, err = s.lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		switch order.Status {
		case domain.OrderStatusPending:
			return apperror.ErrNotProcessing()
		case domain.OrderStatusFailed:
			return apperror.ErrAlreadyTerminal("Order")
		}

		if order.Status != domain.OrderStatusCompleted {
			order.Status = domain.OrderStatusCompleted
			if rawResponse != "" {
				order.FulfillmentResponse = &rawResponse
			}
			order.UpdatedAt = time.Now().UTC()
			if err := s.orderRepo.Update(ctx, tx, order); err != nil {
				return err
			}
		}

		_, credited, err = s.appendSaleCredit(ctx, tx, order)
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

	s.log.Info().
		Str("order_id", orderID.String()).
		Bool("credited", credited).
		Msg("order completed")

	return order, credited, nil
}

// Fail moves processing -> failed and reverses the pending-earn credit if
// one was recorded. The returned bool reports whether a reversal was
// appended.
func (s *FulfillmentServiceImpl) Fail(ctx context.Context, orderID uuid.UUID, rawResponse, reason string) (*domain.Order, bool, error) {
	var (
		order    *domain.Order
		reversed bool
	)
	err := withConflictRetry(ctx, s.log, func() error {
		tx, err := s.transactor.Begin(ctx)
		if err != nil {
			return apperror.InternalError(err)
		}
		defer tx.Rollback(ctx) //nolint:errcheck

		order, err = s.lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		switch order.Status {
		case domain.OrderStatusPending:
			return apperror.ErrNotProcessing()
		case domain.OrderStatusCompleted:
			return apperror.ErrAlreadyTerminal("Order")
		}

		if order.Status != domain.OrderStatusFailed {
			order.Status = domain.OrderStatusFailed
			if rawResponse != "" {
				order.FulfillmentResponse = &rawResponse
			}
			order.UpdatedAt = time.Now().UTC()
			if err := s.orderRepo.Update(ctx, tx, order); err != nil {
				return err
			}
		}

		reversed, err = s.reverseSaleCredit(ctx, tx, order, reason)
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

	s.log.Info().
		Str("order_id", orderID.String()).
		Str("reason", reason).
		Bool("reversed", reversed).
		Msg("order failed")

	return order, reversed, nil
}

func (s *FulfillmentServiceImpl) ListStuck(ctx context.Context, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = defaultStuckLimit
	}
	cutoff := time.Now().UTC().Add(-s.staleness)
	orders, err := s.orderRepo.ListStuck(ctx, cutoff, limit)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	return orders, nil
}

func (s *FulfillmentServiceImpl) GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if order == nil {
		return nil, apperror.ErrNotFound("Order")
	}
	return order, nil
}

func (s *FulfillmentServiceImpl) lockOrder(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.orderRepo.GetByIDForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperror.ErrNotFound("Order")
	}
	return order, nil
}

// appendSaleCredit records the order's profit share, deduplicated on
// (order, CREDIT) inside the wallet's critical section.
func (s *FulfillmentServiceImpl) appendSaleCredit(ctx context.Context, tx pgx.Tx, order *domain.Order) (*domain.LedgerEntry, bool, error) {
	if order.ProfitShare <= 0 {
		return nil, false, nil
	}
	orderID := order.ID
	return s.ledger.AppendInTx(ctx, tx, ports.AppendParams{
		WalletID:       order.WalletID,
		Operation:      domain.OpCredit,
		Amount:         order.ProfitShare,
		Description:    fmt.Sprintf("Sale earning for order %s", orderID),
		RelatedOrderID: &orderID,
		UniquePerOrder: true,
		EarningsDelta:  order.ProfitShare,
	})
}

// reverseSaleCredit appends a CORRECTION cancelling the pending-earn credit.
// It is a no-op when no credit was ever recorded, and deduplicated on
// (order, CORRECTION) so repeated failure reports reverse at most once.
func (s *FulfillmentServiceImpl) reverseSaleCredit(ctx context.Context, tx pgx.Tx, order *domain.Order, reason string) (bool, error) {
	if order.ProfitShare <= 0 {
		return false, nil
	}
	creditExists, err := s.ledgerRepo.ExistsForOrder(ctx, tx, order.ID, domain.OpCredit)
	if err != nil {
		return false, apperror.InternalError(err)
	}
	if !creditExists {
		return false, nil
	}

	orderID := order.ID
	desc := fmt.Sprintf("Reversal of sale earning for order %s", orderID)
	if reason != "" {
		desc = fmt.Sprintf("%s: %s", desc, reason)
	}
	_, reversed, err := s.ledger.AppendInTx(ctx, tx, ports.AppendParams{
		WalletID:       order.WalletID,
		Operation:      domain.OpCorrection,
		Amount:         -order.ProfitShare,
		Description:    desc,
		RelatedOrderID: &orderID,
		UniquePerOrder: true,
		AllowOverdraft: true,
		EarningsDelta:  -order.ProfitShare,
	})
	if err != nil {
		return false, err
	}
	return reversed, nil
}
