// Package locker provides a Redis-backed lock for running several engine
// instances against a shared store. Single-instance deployments use the
// in-process keyed mutex instead.
package locker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock key only when it still holds our token,
// so a lock that expired and was re-acquired by someone else survives.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

const (
	defaultTTL       = 10 * time.Second
	defaultRetryWait = 25 * time.Millisecond
)

// RedisLocker acquires per-resource locks with SET NX and a TTL. When the
// key is taken it polls until the context is cancelled.
type RedisLocker struct {
	client    *redis.Client
	prefix    string
	ttl       time.Duration
	retryWait time.Duration
}

// NewRedisLocker creates a locker with sane TTL and retry defaults.
func NewRedisLocker(client *redis.Client, prefix string) *RedisLocker {
	return &RedisLocker{
		client:    client,
		prefix:    prefix,
		ttl:       defaultTTL,
		retryWait: defaultRetryWait,
	}
}

// WithTTL overrides the lock TTL. Non-positive values keep the default.
func (l *RedisLocker) WithTTL(ttl time.Duration) *RedisLocker {
	if ttl > 0 {
		l.ttl = ttl
	}
	return l
}

// Lock blocks until the key is acquired or ctx is done. The returned
// function releases the lock; release after TTL expiry is a no-op.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := l.prefix + ":" + key
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", lockKey, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryWait):
		}
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_, _ = releaseScript.Run(ctx, l.client, []string{lockKey}, token).Result()
	}, nil
}
