package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// releaseScript deletes the key only if it still holds our token, so a
// holder whose ttl lapsed cannot release someone else's lock.
var releaseScript = redis.NewScript(`
    if redis.call('GET', KEYS[1]) == ARGV[1] then
        return redis.call('DEL', KEYS[1])
    end
    return 0
`)

// Redis is a Locker shared by every instance talking to the same Redis.
// Keys are SET NX PX with a random token.
type Redis struct {
	rdb    *redis.Client
	prefix string
	retry  time.Duration
}

// NewRedis returns a Redis locker.  Keys are namespaced under prefix.
func NewRedis(rdb *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "lock"
	}
	return &Redis{rdb: rdb, prefix: prefix, retry: 25 * time.Millisecond}
}

func newToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func (r *Redis) try(ctx context.Context, key string, ttl time.Duration) (Unlock, bool, error) {
	token, err := newToken()
	if err != nil {
		return nil, false, err
	}
	full := r.prefix + ":" + key
	ok, err := r.rdb.SetNX(ctx, full, token, ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			// the caller's ctx may already be cancelled; release regardless
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, r.rdb, []string{full}, token).Err(); err != nil {
				log.Warn().Err(err).Str("key", full).Msg("lock release failed; key will expire")
			}
		})
	}, true, nil
}

// Lock implements Locker by polling SET NX until it succeeds or ctx ends.
func (r *Redis) Lock(ctx context.Context, key string, ttl time.Duration) (Unlock, error) {
	t := time.NewTicker(r.retry)
	defer t.Stop()
	for {
		unlock, ok, err := r.try(ctx, key, ttl)
		if err != nil {
			return nil, err
		}
		if ok {
			return unlock, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

// TryLock implements Locker.
func (r *Redis) TryLock(ctx context.Context, key string, ttl time.Duration) (Unlock, error) {
	unlock, ok, err := r.try(ctx, key, ttl)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAcquired
	}
	return unlock, nil
}
