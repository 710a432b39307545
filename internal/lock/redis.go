package lock

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/agentstation/catalogsync/pkg/constants"
	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/logging"
)

// Redis is a lock held in Redis. The lock is refreshed while held so a
// pass longer than the TTL keeps it; a crashed holder releases it when the
// TTL expires.
type Redis struct {
	locker *redislock.Client
	key    string
	ttl    time.Duration
}

// NewRedis creates a Redis lock on client.
func NewRedis(client redis.UniversalClient, key string, ttl time.Duration) *Redis {
	if key == "" {
		key = constants.DefaultLockKey
	}
	if ttl <= 0 {
		ttl = constants.DefaultLockTTL
	}
	return &Redis{
		locker: redislock.New(client),
		key:    key,
		ttl:    ttl,
	}
}

// Dial connects to the Redis server at addr and returns a lock on it.
func Dial(ctx context.Context, addr, key string, ttl time.Duration) (*Redis, func() error, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, errors.WrapTransport("connect", "redis://"+addr, err)
	}
	return NewRedis(client, key, ttl), client.Close, nil
}

// TryLock obtains the lock without retrying.
func (r *Redis) TryLock(ctx context.Context) (func(), error) {
	held, err := r.locker.Obtain(ctx, r.key, r.ttl, nil)
	if stderrors.Is(err, redislock.ErrNotObtained) {
		return nil, errors.ErrSessionBusy
	}
	if err != nil {
		return nil, errors.WrapTransport("obtain", r.key, err)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go r.keepAlive(held, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() { r.release(held, stop, done) })
	}, nil
}

func (r *Redis) release(held *redislock.Lock, stop chan struct{}, done <-chan struct{}) {
	close(stop)
	<-done

	// Release does not depend on the pass context.
	releaseCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()
	if err := held.Release(releaseCtx); err != nil && !stderrors.Is(err, redislock.ErrLockNotHeld) {
		logging.Warn().Err(err).Str("key", r.key).Msg("Failed to release session lock")
	}
}

func (r *Redis) keepAlive(held *redislock.Lock, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), r.ttl/2)
			err := held.Refresh(ctx, r.ttl, nil)
			cancel()
			if err != nil {
				logging.Warn().Err(err).Str("key", r.key).Msg("Failed to refresh session lock")
			}
		}
	}
}
