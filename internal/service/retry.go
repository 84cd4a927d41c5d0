package service

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"account-ledger/internal/errors"
	"account-ledger/internal/lock"
	"account-ledger/pkg/logger"
)

// Retrier re-runs a whole unit of work when it fails with a conflict. Every
// attempt starts from a fresh read; any other error ends the loop at once.
type Retrier struct {
	maxRetries uint64
	initial    time.Duration
	maxDelay   time.Duration
	logger     *slog.Logger
}

func NewRetrier(maxRetries uint64, logger *slog.Logger) *Retrier {
	return &Retrier{
		maxRetries: maxRetries,
		initial:    20 * time.Millisecond,
		maxDelay:   500 * time.Millisecond,
		logger:     logger,
	}
}

func (r *Retrier) newBackOff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initial
	b.MaxInterval = r.maxDelay
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, r.maxRetries), ctx)
}

func (r *Retrier) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	log := logger.FromContext(ctx, r.logger)
	attempt := 0

	err := backoff.RetryNotify(func() error {
		attempt++
		err := fn(ctx)
		if err == nil || errors.IsConflict(err) {
			return err
		}
		return backoff.Permanent(err)
	}, r.newBackOff(ctx), func(err error, next time.Duration) {
		log.Warn("Retrying after conflict", "op", op, "attempt", attempt, "backoff", next, "error", err)
	})

	if err != nil && isContextError(err) {
		return errors.NewStoreUnavailable(op, err)
	}
	return err
}

func isContextError(err error) bool {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return false
	}
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}

// withAccountLock runs fn under the account's lock, retrying the whole locked
// section on conflict so every attempt rereads state.
func withAccountLock(ctx context.Context, r *Retrier, l lock.Locker, accountID uuid.UUID, op string, fn func(ctx context.Context) error) error {
	return r.Do(ctx, op, func(ctx context.Context) error {
		return l.WithLock(ctx, lock.AccountKey(accountID), fn)
	})
}
