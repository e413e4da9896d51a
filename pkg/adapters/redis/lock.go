package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/tableau/internal/logging"
	"github.com/aretw0/tableau/pkg/ports"
	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

var (
	// ErrLockAcquire is returned when the lock cannot be acquired.
	ErrLockAcquire = errors.New("failed to acquire distributed lock")
)

const lockRetryInterval = 100 * time.Millisecond

// Deletes or extends the key only while it still holds our token.
var (
	unlockScript = backend.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)
	refreshScript = backend.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0`)
)

var _ ports.DistributedLocker = (*Locker)(nil)

// Locker implements ports.DistributedLocker using Redis.
type Locker struct {
	client backend.UniversalClient
	prefix string
	logger *slog.Logger
}

// NewLocker creates a new Redis locker. Keys are "<prefix>lock:<key>".
func NewLocker(client backend.UniversalClient, prefix string) *Locker {
	return &Locker{
		client: client,
		prefix: prefix,
		logger: logging.NewNop(),
	}
}

// WithLogger sets the logger used by Hold's refresh loop.
func (l *Locker) WithLogger(logger *slog.Logger) *Locker {
	l.logger = logger
	return l
}

func (l *Locker) key(key string) string {
	return l.prefix + "lock:" + key
}

// Lock acquires a distributed lock for the given key using Redis SET NX PX,
// polling until it succeeds or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	token, err := l.acquire(ctx, key, ttl)
	if err != nil {
		return nil, err
	}
	return l.release(key, token), nil
}

func (l *Locker) acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()

	ticker := time.NewTicker(lockRetryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, l.key(key), token, ttl).Result()
		if err != nil {
			return "", fmt.Errorf("redis error acquiring lock: %w", err)
		}
		if ok {
			return token, nil
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w %q: %w", ErrLockAcquire, key, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *Locker) release(key, token string) ports.UnlockFunc {
	return func(ctx context.Context) error {
		return unlockScript.Run(ctx, l.client, []string{l.key(key)}, token).Err()
	}
}

// Hold acquires the lock and keeps extending it every ttl/3 until the
// returned UnlockFunc is called. A lost lock is logged; the holder is not
// otherwise notified.
func (l *Locker) Hold(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	token, err := l.acquire(ctx, key, ttl)
	if err != nil {
		return nil, err
	}
	unlock := l.release(key, token)
	lockKey := l.key(key)

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(max(ttl/3, time.Millisecond))
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				n, err := refreshScript.Run(context.Background(), l.client, []string{lockKey}, token, ttl.Milliseconds()).Int()
				if err != nil {
					l.logger.Warn("Lock refresh failed", "key", key, "err", err)
				} else if n == 0 {
					l.logger.Error("Lock lost", "key", key)
					return
				}
			}
		}
	}()

	return func(ctx context.Context) error {
		select {
		case <-stop:
		default:
			close(stop)
		}
		<-done
		return unlock(ctx)
	}, nil
}
