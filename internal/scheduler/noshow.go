// Package scheduler runs the daily no-show sweep.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/hotel-front-desk/internal/lock"
	"github.com/iliyamo/hotel-front-desk/internal/observability"
	"github.com/iliyamo/hotel-front-desk/internal/service"
)

const sweepLockKey = "sweep:noshow"

// Sweeper is the engine entry point the scheduler drives.
type Sweeper interface {
	SweepNoShows(ctx context.Context) (service.SweepResult, error)
}

// Clock is a wall-clock time of day.
type Clock struct {
	Hour, Minute int
}

func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

// ParseClock parses "HH:MM" in 24h format.
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return Clock{}, fmt.Errorf("invalid time of day %q: want HH:MM", s)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// NextRun returns the first instant strictly after now at which the wall
// clock in now's location reads at.
func NextRun(now time.Time, at Clock) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), at.Hour, at.Minute, 0, 0, now.Location())
	if !next.After(now) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, at.Hour, at.Minute, 0, 0, now.Location())
	}
	return next
}

// NoShowScheduler triggers the sweep once a day.  With a distributed
// locker only one instance sweeps per tick.
type NoShowScheduler struct {
	sweeper Sweeper
	at      Clock
	locker  lock.Locker
	lockTTL time.Duration
	now     func() time.Time
	after   func(time.Duration) <-chan time.Time
	log     zerolog.Logger
}

// New returns a scheduler firing daily at at.  locker may be nil.
func New(sweeper Sweeper, at Clock, locker lock.Locker, log zerolog.Logger) *NoShowScheduler {
	return &NoShowScheduler{
		sweeper: sweeper,
		at:      at,
		locker:  locker,
		lockTTL: 10 * time.Minute,
		now:     time.Now,
		after:   time.After,
		log:     log.With().Str("component", "noshow-sweep").Logger(),
	}
}

// Run waits for each daily tick and sweeps until ctx is cancelled.  A
// failed run is logged and retried on the next tick.
func (s *NoShowScheduler) Run(ctx context.Context) error {
	s.log.Info().Str("at", s.at.String()).Msg("no-show sweep scheduled")
	for {
		next := NextRun(s.now(), s.at)
		select {
		case <-ctx.Done():
			s.log.Info().Msg("no-show sweep stopped")
			return nil
		case <-s.after(time.Until(next)):
		}
		_, _ = s.RunOnce(ctx)
	}
}

// RunOnce performs a single sweep.  It reports skipped=true when another
// instance holds the sweep lock.  A panic inside the sweep is logged and
// returned as an error so the next tick still runs.
func (s *NoShowScheduler) RunOnce(ctx context.Context) (res service.SweepResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("no-show sweep panicked: %v", r)
			s.log.Error().Err(err).Msg("no-show sweep failed")
			observability.ObserveSweep("failed", 0, 0)
		}
	}()
	if s.locker != nil {
		unlock, lerr := s.locker.TryLock(ctx, sweepLockKey, s.lockTTL)
		if errors.Is(lerr, lock.ErrNotAcquired) {
			s.log.Info().Msg("no-show sweep skipped: another instance holds the lock")
			observability.ObserveSweep("skipped", 0, 0)
			return res, nil
		}
		if lerr != nil {
			s.log.Error().Err(lerr).Msg("no-show sweep: lock failed")
			observability.ObserveSweep("failed", 0, 0)
			return res, lerr
		}
		defer unlock()
	}

	start := s.now()
	res, err = s.sweeper.SweepNoShows(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("no-show sweep failed")
		observability.ObserveSweep("failed", 0, 0)
		return res, err
	}
	s.log.Info().
		Int("candidates", res.Candidates).
		Int("cancelled", res.Cancelled).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Dur("took", s.now().Sub(start)).
		Msgf("no-show sweep: cancelled %d reservation(s)", res.Cancelled)
	observability.ObserveSweep("ok", res.Cancelled, res.Failed)
	return res, nil
}
