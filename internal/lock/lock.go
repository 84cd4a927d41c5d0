// Package lock serializes balance mutations per account. LocalLocker covers a
// single process; RedisLocker extends the guarantee across replicas.
package lock

import (
	"context"

	"github.com/google/uuid"
)

type Locker interface {
	// WithLock runs fn while holding the lock for key. The lock is released
	// when fn returns, even if ctx has been cancelled by then.
	WithLock(ctx context.Context, key string, fn func(context.Context) error) error
}

func AccountKey(id uuid.UUID) string {
	return "lock:account:" + id.String()
}
