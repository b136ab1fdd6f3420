package service

import (
	"context"
	"sync"
	"time"

	"reseller-ledger/config"
	"reseller-ledger/internal/core/domain"
	"reseller-ledger/internal/core/ports"
	"reseller-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ReconcileService implements ports.ReconciliationWorker. It never guesses:
// the provider is queried outside any transaction, and local state changes
// only after a definitive DELIVERED or FAILED answer. Everything else leaves
// the order in processing for a later pass.
type ReconcileService struct {
	orderRepo  ports.OrderRepository
	tracker    ports.FulfillmentTracker
	provider   ports.FulfillmentProvider
	transactor ports.DBTransactor
	cfg        config.ReconcileConfig
	log        zerolog.Logger
}

// NewReconcileService creates a new ReconcileService.
func NewReconcileService(
	orderRepo ports.OrderRepository,
	tracker ports.FulfillmentTracker,
	provider ports.FulfillmentProvider,
	transactor ports.DBTransactor,
	cfg config.ReconcileConfig,
	log zerolog.Logger,
) *ReconcileService {
	return &ReconcileService{
		orderRepo:  orderRepo,
		tracker:    tracker,
		provider:   provider,
		transactor: transactor,
		cfg:        cfg,
		log:        log,
	}
}

func (s *ReconcileService) ListStuck(ctx context.Context, limit int) ([]domain.Order, error) {
	return s.tracker.ListStuck(ctx, limit)
}

// RetryOne reconciles a single order against the provider's ground truth.
// Safe to call repeatedly and concurrently for the same order: terminal
// transitions and their ledger effects happen at most once.
func (s *ReconcileService) RetryOne(ctx context.Context, orderID uuid.UUID) (*domain.RetryOutcome, error) {
	order, err := s.tracker.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	outcome := &domain.RetryOutcome{OrderID: orderID}

	if order.Status == domain.OrderStatusPending {
		outcome.Result = domain.RetrySkipped
		outcome.Reason = "order has not been accepted by the provider"
		return outcome, nil
	}
	if order.IsTerminal() {
		outcome.Result = domain.RetryAlreadyTerminal
		if order.Status == domain.OrderStatusCompleted {
			// Repairs a crash between the completed transition and its
			// credit: Complete re-ensures the credit and writes nothing
			// when it already exists.
			_, credited, err := s.tracker.Complete(ctx, orderID, "")
			if err != nil {
				return nil, err
			}
			outcome.Credited = credited
		}
		return outcome, nil
	}
	if order.ProviderReference == nil {
		outcome.Result = domain.RetrySkipped
		outcome.Reason = "order has no provider reference"
		return outcome, nil
	}

	status, err := s.provider.QueryDeliveryStatus(ctx, *order.ProviderReference)
	if err != nil {
		s.recordAttempt(ctx, orderID, "")
		outcome.Result = domain.RetryProviderError
		outcome.Reason = err.Error()
		s.log.Warn().Err(err).Str("order_id", orderID.String()).Msg("provider query failed during reconciliation")
		return outcome, nil
	}

	switch status.State {
	case ports.DeliveryDelivered:
		_, credited, err := s.tracker.Complete(ctx, orderID, status.Raw)
		if err != nil {
			if apperror.Code(err) == "TERM_001" {
				outcome.Result = domain.RetryAlreadyTerminal
				return outcome, nil
			}
			return nil, err
		}
		outcome.Result = domain.RetryCompleted
		outcome.Credited = credited

	case ports.DeliveryFailed:
		_, reversed, err := s.tracker.Fail(ctx, orderID, status.Raw, status.Reason)
		if err != nil {
			if apperror.Code(err) == "TERM_001" {
				outcome.Result = domain.RetryAlreadyTerminal
				return outcome, nil
			}
			return nil, err
		}
		outcome.Result = domain.RetryFailed
		outcome.Reason = status.Reason
		outcome.Reversed = reversed

	default:
		s.recordAttempt(ctx, orderID, status.Raw)
		outcome.Result = domain.RetryStillProcessing
	}

	return outcome, nil
}

// RetryAll reconciles up to limit stuck orders through a bounded worker
// pool. One order's failure never stops the batch.
func (s *ReconcileService) RetryAll(ctx context.Context, limit int) ([]domain.RetryOutcome, error) {
	if limit <= 0 || limit > s.cfg.BatchLimit {
		limit = s.cfg.BatchLimit
	}
	stuck, err := s.tracker.ListStuck(ctx, limit)
	if err != nil {
		return nil, err
	}
	if len(stuck) == 0 {
		return []domain.RetryOutcome{}, nil
	}

	parallelism := s.cfg.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}

	outcomes := make([]domain.RetryOutcome, len(stuck))
	sem := make(chan struct{}, parallelism)
	var wg sync.WaitGroup
	for i, order := range stuck {
		wg.Add(1)
		go func(i int, orderID uuid.UUID) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			out, err := s.RetryOne(ctx, orderID)
			if err != nil {
				out = &domain.RetryOutcome{
					OrderID: orderID,
					Result:  domain.RetryError,
					Reason:  err.Error(),
				}
			}
			outcomes[i] = *out
		}(i, order.ID)
	}
	wg.Wait()

	s.log.Info().
		Int("orders", len(stuck)).
		Msg("reconciliation batch finished")

	return outcomes, nil
}

// recordAttempt bumps the retry counter and stores the latest raw provider
// reply without touching the order's status or staleness clock. Failures
// here are logged and swallowed: attempt accounting must never block
// reconciliation.
func (s *ReconcileService) recordAttempt(ctx context.Context, orderID uuid.UUID, raw string) {
	err := withConflictRetry(ctx, s.log, func() error {
		tx, err := s.transactor.Begin(ctx)
		if err != nil {
			return apperror.InternalError(err)
		}
		defer tx.Rollback(ctx) //nolint:errcheck

		order, err := s.orderRepo.GetByIDForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order == nil || order.Status != domain.OrderStatusProcessing {
			return nil
		}
		order.RetryCount++
		if raw != "" {
			order.FulfillmentResponse = &raw
		}
		if err := s.orderRepo.Update(ctx, tx, order); err != nil {
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return apperror.ErrConcurrencyConflict(err)
		}
		return nil
	})
	if err != nil {
		s.log.Warn().Err(err).Str("order_id", orderID.String()).Msg("failed to record reconciliation attempt")
	}
}

// Run drives periodic reconciliation until the context is cancelled.
// Intended to run in its own goroutine from main.
func (s *ReconcileService) Run(ctx context.Context) {
	interval := s.cfg.Interval
	if interval <= 0 {
		interval = 2 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info().Dur("interval", interval).Msg("reconciliation worker started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("reconciliation worker stopped")
			return
		case <-ticker.C:
			outcomes, err := s.RetryAll(ctx, s.cfg.BatchLimit)
			if err != nil {
				s.log.Error().Err(err).Msg("reconciliation batch failed")
				continue
			}
			var completed, failed, pending int
			for _, o := range outcomes {
				switch o.Result {
				case domain.RetryCompleted:
					completed++
				case domain.RetryFailed:
					failed++
				case domain.RetryStillProcessing:
					pending++
				}
			}
			if len(outcomes) > 0 {
				s.log.Info().
					Int("completed", completed).
					Int("failed", failed).
					Int("still_processing", pending).
					Msg("reconciliation batch outcomes")
			}
		}
	}
}
