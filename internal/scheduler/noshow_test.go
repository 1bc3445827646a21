package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-front-desk/internal/lock"
	"github.com/iliyamo/hotel-front-desk/internal/service"
)

type countingSweeper struct {
	mu     sync.Mutex
	calls  int
	res    service.SweepResult
	err    error
	panics bool
}

func (c *countingSweeper) SweepNoShows(context.Context) (service.SweepResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.panics {
		panic("nil room")
	}
	return c.res, c.err
}

func (c *countingSweeper) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestParseClock(t *testing.T) {
	c, err := ParseClock("19:00")
	require.NoError(t, err)
	assert.Equal(t, Clock{Hour: 19}, c)
	assert.Equal(t, "19:00", c.String())

	c, err = ParseClock("07:45")
	require.NoError(t, err)
	assert.Equal(t, Clock{Hour: 7, Minute: 45}, c)

	for _, bad := range []string{"", "24:00", "7pm", "19:60"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestNextRun(t *testing.T) {
	at := Clock{Hour: 19}
	loc := time.FixedZone("hotel", 2*3600)

	before := time.Date(2024, 3, 1, 18, 59, 0, 0, loc)
	assert.Equal(t, time.Date(2024, 3, 1, 19, 0, 0, 0, loc), NextRun(before, at))

	exactly := time.Date(2024, 3, 1, 19, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2024, 3, 2, 19, 0, 0, 0, loc), NextRun(exactly, at))

	endOfMonth := time.Date(2024, 2, 29, 20, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2024, 3, 1, 19, 0, 0, 0, loc), NextRun(endOfMonth, at))
}

func TestRunOnceReportsResult(t *testing.T) {
	sw := &countingSweeper{res: service.SweepResult{Candidates: 3, Cancelled: 2, Failed: 1}}
	s := New(sw, Clock{Hour: 19}, nil, zerolog.Nop())

	res, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Cancelled)
	assert.Equal(t, 1, sw.count())
}

func TestRunOnceSurfacesScanFailure(t *testing.T) {
	sw := &countingSweeper{err: errors.New("db down")}
	s := New(sw, Clock{Hour: 19}, lock.NewLocal(), zerolog.Nop())
	_, err := s.RunOnce(context.Background())
	assert.Error(t, err)

	// the lock is released after a failed run
	sw.err = nil
	_, err = s.RunOnce(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 2, sw.count())
}

func TestRunOnceRecoversFromPanic(t *testing.T) {
	sw := &countingSweeper{panics: true}
	s := New(sw, Clock{Hour: 19}, lock.NewLocal(), zerolog.Nop())

	var err error
	require.NotPanics(t, func() { _, err = s.RunOnce(context.Background()) })
	assert.ErrorContains(t, err, "panicked")

	sw.mu.Lock()
	sw.panics = false
	sw.mu.Unlock()
	_, err = s.RunOnce(context.Background())
	assert.NoError(t, err, "lock released after the panic")
	assert.Equal(t, 2, sw.count())
}

func TestRunKeepsGoingAfterPanic(t *testing.T) {
	sw := &countingSweeper{panics: true}
	s := New(sw, Clock{Hour: 19}, nil, zerolog.Nop())
	ticks := make(chan time.Time)
	s.after = func(time.Duration) <-chan time.Time { return ticks }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	ticks <- time.Now()
	ticks <- time.Now()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.GreaterOrEqual(t, sw.count(), 2)
}

func TestRunOnceSkipsWhenLocked(t *testing.T) {
	locker := lock.NewLocal()
	unlock, err := locker.TryLock(context.Background(), sweepLockKey, time.Minute)
	require.NoError(t, err)
	defer unlock()

	sw := &countingSweeper{}
	s := New(sw, Clock{Hour: 19}, locker, zerolog.Nop())
	_, err = s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sw.count())
}

func TestRunSweepsOnEachTickAndStops(t *testing.T) {
	sw := &countingSweeper{}
	s := New(sw, Clock{Hour: 19}, nil, zerolog.Nop())
	ticks := make(chan time.Time)
	s.after = func(time.Duration) <-chan time.Time { return ticks }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	ticks <- time.Now()
	ticks <- time.Now()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.GreaterOrEqual(t, sw.count(), 1)
}
