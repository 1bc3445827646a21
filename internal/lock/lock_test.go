package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLocker(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedis(rdb, "test"), mr
}

func lockers(t *testing.T) map[string]Locker {
	r, _ := newRedisLocker(t)
	return map[string]Locker{"local": NewLocal(), "redis": r}
}

func TestTryLockExcludesSecondHolder(t *testing.T) {
	for name, l := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			unlock, err := l.TryLock(ctx, "room:1", time.Minute)
			require.NoError(t, err)

			_, err = l.TryLock(ctx, "room:1", time.Minute)
			assert.ErrorIs(t, err, ErrNotAcquired)

			// other keys are independent
			other, err := l.TryLock(ctx, "room:2", time.Minute)
			require.NoError(t, err)
			other()

			unlock()
			unlock() // second call is a no-op
			again, err := l.TryLock(ctx, "room:1", time.Minute)
			require.NoError(t, err)
			again()
		})
	}
}

func TestLockSerializesCriticalSection(t *testing.T) {
	for name, l := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			var (
				inside  int32
				maxSeen int32
				wg      sync.WaitGroup
			)
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					unlock, err := l.Lock(context.Background(), "room:7", time.Minute)
					if !assert.NoError(t, err) {
						return
					}
					n := atomic.AddInt32(&inside, 1)
					for {
						m := atomic.LoadInt32(&maxSeen)
						if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
							break
						}
					}
					time.Sleep(2 * time.Millisecond)
					atomic.AddInt32(&inside, -1)
					unlock()
				}()
			}
			wg.Wait()
			assert.Equal(t, int32(1), maxSeen)
		})
	}
}

func TestLockHonoursContext(t *testing.T) {
	for name, l := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			unlock, err := l.Lock(context.Background(), "k", time.Minute)
			require.NoError(t, err)
			defer unlock()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
			defer cancel()
			_, err = l.Lock(ctx, "k", time.Minute)
			assert.ErrorIs(t, err, context.DeadlineExceeded)
		})
	}
}

func TestRedisLockExpiresAfterTTL(t *testing.T) {
	l, mr := newRedisLocker(t)
	ctx := context.Background()
	_, err := l.TryLock(ctx, "sweep", time.Second)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)
	unlock, err := l.TryLock(ctx, "sweep", time.Second)
	require.NoError(t, err)
	unlock()
	assert.False(t, mr.Exists("test:sweep"))
}
