package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock taken by a DistributedLocker.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker keeps a scene key owned by at most one server process.
type DistributedLocker interface {
	// Lock blocks until key is acquired for ttl or ctx is done.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
	// Hold acquires key like Lock, then keeps renewing the ttl until the
	// returned UnlockFunc is called.
	Hold(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
