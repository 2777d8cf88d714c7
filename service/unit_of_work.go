package services

import (
	"context"
	"errors"
	"time"

	"github.com/Itish41/ParseGuard/repository"
	"go.uber.org/zap"
)

// runUnitOfWork runs fn in a transaction, retrying the whole transaction when
// it loses an optimistic-concurrency race. After maxAttempts conflicts it
// returns ConcurrentModification. Other errors abort immediately.
func runUnitOfWork(ctx context.Context, store repository.Store, s settings, log *zap.Logger, op string, ids map[string]string, fn func(repository.Repositories) error) error {
	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		err = store.InTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return err
		}

		unitOfWorkConflictsTotal.WithLabelValues(op).Inc()
		log.Debug("unit of work conflict",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Any("ids", ids),
		)

		if attempt < s.maxAttempts {
			select {
			case <-time.After(time.Duration(attempt) * s.retryBackoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	log.Warn("unit of work gave up after conflicts", zap.String("operation", op), zap.Int("attempts", s.maxAttempts), zap.Any("ids", ids))
	return newError(ErrConcurrentModification, ids, err)
}
