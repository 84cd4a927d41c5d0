package lock

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"

	"account-ledger/internal/errors"
)

type RedisOptions struct {
	// Expiry bounds how long a crashed holder can block an account.
	Expiry     time.Duration
	Tries      int
	RetryDelay time.Duration
}

func DefaultRedisOptions() RedisOptions {
	return RedisOptions{
		Expiry:     10 * time.Second,
		Tries:      64,
		RetryDelay: 50 * time.Millisecond,
	}
}

// RedisLocker implements Locker with the redsync (RedLock) algorithm.
type RedisLocker struct {
	rs     *redsync.Redsync
	opts   RedisOptions
	logger *slog.Logger
}

var _ Locker = (*RedisLocker)(nil)

func NewRedisLocker(client redis.UniversalClient, opts RedisOptions, logger *slog.Logger) *RedisLocker {
	return &RedisLocker{
		rs:     redsync.New(goredis.NewPool(client)),
		opts:   opts,
		logger: logger,
	}
}

func (l *RedisLocker) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	mutex := l.rs.NewMutex(
		key,
		redsync.WithExpiry(l.opts.Expiry),
		redsync.WithTries(l.opts.Tries),
		redsync.WithRetryDelay(l.opts.RetryDelay),
	)

	if err := mutex.LockContext(ctx); err != nil {
		l.logger.Warn("Failed to acquire account lock", "lock_key", key, "error", err)
		if ctx.Err() != nil {
			return errors.NewStoreUnavailable("acquire account lock", ctx.Err())
		}
		if isContention(err) {
			return errors.ErrConflict.WithDetails("account is locked by another operation")
		}
		return errors.NewStoreUnavailable("acquire account lock", err)
	}

	defer func() {
		// Release even when the caller's context is already done.
		if ok, err := mutex.UnlockContext(context.WithoutCancel(ctx)); !ok || err != nil {
			l.logger.Error("Failed to release account lock", "lock_key", key, "unlock_ok", ok, "error", err)
		}
	}()

	return fn(ctx)
}

// isContention reports whether the lock is held elsewhere, as opposed to Redis
// being unreachable.
func isContention(err error) bool {
	if stderrors.Is(err, redsync.ErrFailed) {
		return true
	}
	var taken *redsync.ErrTaken
	return stderrors.As(err, &taken)
}
