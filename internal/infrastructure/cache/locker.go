package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ErrLockTimeout is returned when a lock could not be taken within its TTL.
var ErrLockTimeout = errors.New("timed out waiting for lock")

// releaseScript deletes the key only while it still holds our token, so an
// expired holder cannot release a lock someone else has since taken.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a single-instance Redis mutex keyed by string.
type RedisLocker struct {
	client       redis.Cmdable
	pollInterval time.Duration
}

func NewRedisLocker(client redis.Cmdable) *RedisLocker {
	return &RedisLocker{client: client, pollInterval: 25 * time.Millisecond}
}

// Acquire polls SET NX until the key is ours. Waiting is bounded by ttl as
// well as ctx: a holder cannot keep the key longer than that anyway.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()

	waitCtx, cancel := context.WithTimeout(ctx, ttl)
	defer cancel()

	for {
		ok, err := l.client.SetNX(waitCtx, key, token, ttl).Result()
		if err != nil && waitCtx.Err() == nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return l.releaser(key, token), nil
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		case <-time.After(l.pollInterval):
		}
	}
}

func (l *RedisLocker) releaser(key, token string) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			log.Error().Err(err).Str("key", key).Msg("failed to release lock")
		}
	}
}
