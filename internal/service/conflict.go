package service

import (
	"context"
	"time"

	"reseller-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

// maxConflictRetries bounds internal retries after losing a per-wallet or
// per-order race before the conflict surfaces to the caller.
const maxConflictRetries = 3

// withConflictRetry runs fn, retrying on CONC_001 with a short backoff.
func withConflictRetry(ctx context.Context, log zerolog.Logger, fn func() error) error {
	var err error
	for attempt := 1; attempt <= maxConflictRetries; attempt++ {
		err = fn()
		if apperror.Code(err) != "CONC_001" {
			return err
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("concurrency conflict, retrying")

		backoff := time.Duration(attempt) * 10 * time.Millisecond
		select {
		case <-ctx.Done():
			return err
		case <-time.After(backoff):
		}
	}
	return err
}
