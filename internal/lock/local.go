package lock

import (
	"context"

	"github.com/moby/locker"

	"account-ledger/internal/errors"
)

// LocalLocker serializes work per key within one process.
type LocalLocker struct {
	locks *locker.Locker
}

var _ Locker = (*LocalLocker)(nil)

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: locker.New()}
}

func (l *LocalLocker) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return errors.NewStoreUnavailable("acquire account lock", err)
	}

	acquired := make(chan struct{})
	go func() {
		l.locks.Lock(key)
		close(acquired)
	}()

	select {
	case <-acquired:
	case <-ctx.Done():
		// The pending Lock call still completes; release it as soon as it does.
		go func() {
			<-acquired
			l.locks.Unlock(key)
		}()
		return errors.NewStoreUnavailable("acquire account lock", ctx.Err())
	}
	defer l.locks.Unlock(key)

	return fn(ctx)
}
