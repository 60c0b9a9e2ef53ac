package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotAcquired is returned when the lock could not be taken before ctx ended.
var ErrLockNotAcquired = errors.New("owner lock not acquired")

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker implements usecase.Locker with SET NX PX, so balance writes are
// serialized per owner across processes. The TTL bounds how long a crashed
// holder can block others.
type Locker struct {
	client      *redis.Client
	prefix      string
	ttl         time.Duration
	minInterval time.Duration
	maxInterval time.Duration
}

// NewLocker creates a new Locker.
func NewLocker(client *redis.Client, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Locker{
		client:      client,
		prefix:      "ledgerrecon:lock:owner:",
		ttl:         ttl,
		minInterval: 10 * time.Millisecond,
		maxInterval: 250 * time.Millisecond,
	}
}

// Lock blocks until the owner's lock is held or ctx is done.
func (l *Locker) Lock(ctx context.Context, ownerID string) (func(), error) {
	key := l.prefix + ownerID
	token := uuid.NewString()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = l.minInterval
	b.MaxInterval = l.maxInterval
	b.MaxElapsedTime = 0

	err := backoff.Retry(func() error {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			return ErrLockNotAcquired
		}
		return nil
	}, backoff.WithContext(b, ctx))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w for %s: %w", ErrLockNotAcquired, ownerID, ctxErr)
		}
		return nil, err
	}

	var once sync.Once
	unlock := func() {
		once.Do(func() {
			// Release must not depend on the caller's possibly cancelled context.
			releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err()
		})
	}

	return unlock, nil
}
