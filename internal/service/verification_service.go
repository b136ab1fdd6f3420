package service

import (
	"context"
	"time"

	"reseller-ledger/config"
	"reseller-ledger/internal/core/domain"
	"reseller-ledger/internal/core/ports"
	"reseller-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// VerificationService implements ports.VerificationSession: a bounded,
// strictly read-only polling loop over order state. It observes whatever the
// fulfillment and reconciliation paths have recorded and never writes.
type VerificationService struct {
	orderRepo    ports.OrderRepository
	maxAttempts  int
	pollInterval time.Duration
	log          zerolog.Logger
}

// NewVerificationService creates a new VerificationService.
func NewVerificationService(orderRepo ports.OrderRepository, cfg config.VerificationConfig, log zerolog.Logger) *VerificationService {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	return &VerificationService{
		orderRepo:    orderRepo,
		maxAttempts:  maxAttempts,
		pollInterval: interval,
		log:          log,
	}
}

// Observe polls the order until it reaches a terminal state or the attempt
// cap runs out. An exhausted session reports PENDING, which is a normal
// outcome, not an error: the reconciliation worker owns resolving the order
// eventually.
func (s *VerificationService) Observe(ctx context.Context, orderID uuid.UUID) (*domain.VerificationResult, error) {
	var last *domain.Order
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		order, err := s.orderRepo.GetByID(ctx, orderID)
		if err != nil {
			return nil, apperror.InternalError(err)
		}
		if order == nil {
			return nil, apperror.ErrNotFound("Order")
		}
		last = order

		switch order.Status {
		case domain.OrderStatusCompleted:
			return &domain.VerificationResult{State: domain.VerificationCompleted, Attempts: attempt, Order: order}, nil
		case domain.OrderStatusFailed:
			return &domain.VerificationResult{State: domain.VerificationFailed, Attempts: attempt, Order: order}, nil
		}

		if attempt == s.maxAttempts {
			break
		}
		timer := time.NewTimer(s.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	s.log.Debug().
		Str("order_id", orderID.String()).
		Int("attempts", s.maxAttempts).
		Msg("verification session exhausted without a terminal state")

	return &domain.VerificationResult{State: domain.VerificationPending, Attempts: s.maxAttempts, Order: last}, nil
}
