// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package scheduler runs the recurring per-user digest job.

Architecture:

  - NextDelay: Time from now until the next fire time in a fixed-offset zone.
  - Scheduler: Starts one goroutine per job; first firing at the next fire time,
    then every fixed interval without re-anchoring.
  - Job: Handle returned to the caller, stopped by [Job.Stop] or the root context.

Scheduling the same user twice yields two independent jobs.
*/
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/taibuivan/newswizard/internal/auth"
	"github.com/taibuivan/newswizard/internal/platform/constants"
	"github.com/taibuivan/newswizard/pkg/uuid"
)

// # Timing

// FireTime is a wall-clock time of day.
type FireTime struct {
	Hour   int
	Minute int
	Second int
}

// DefaultFireTime is 09:00:00.
var DefaultFireTime = FireTime{Hour: 9}

// DefaultLocation is the fixed UTC+3 zone the digest is anchored to.
var DefaultLocation = time.FixedZone("UTC+3", 3*60*60)

// anchor returns today's fire instant in loc for the given now.
func anchor(now time.Time, at FireTime, loc *time.Location) time.Time {
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), at.Hour, at.Minute, at.Second, 0, loc)
}

// NextDelay returns how long to wait from now until the next fire time.
// A now exactly at the fire time yields zero.
func NextDelay(now time.Time, at FireTime, loc *time.Location) time.Duration {
	today := anchor(now, at, loc)
	if now.After(today) {
		return today.Add(24 * time.Hour).Sub(now)
	}
	return today.Sub(now)
}

// # Scheduler

// JobFunc is the work performed on every firing. It receives the preferences
// captured when the job was scheduled.
type JobFunc func(ctx context.Context, prefs auth.Preferences) error

// Option configures a [Scheduler].
type Option func(*Scheduler)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithInterval replaces the period between firings.
func WithInterval(interval time.Duration) Option {
	return func(s *Scheduler) { s.interval = interval }
}

// WithFireTime replaces the time of day of the first firing.
func WithFireTime(at FireTime) Option {
	return func(s *Scheduler) { s.at = at }
}

// WithLocation replaces the zone the fire time is read in.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) { s.loc = loc }
}

// WithLogger replaces the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// Scheduler starts daily jobs. It is safe for concurrent use.
type Scheduler struct {
	now      func() time.Time
	interval time.Duration
	at       FireTime
	loc      *time.Location
	logger   *slog.Logger

	wg sync.WaitGroup
}

// New creates a scheduler firing at 09:00 UTC+3 every 24 hours unless overridden.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		now:      time.Now,
		interval: constants.DigestInterval,
		at:       DefaultFireTime,
		loc:      DefaultLocation,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

/*
ScheduleDaily starts a recurring job for a user.

Description: The first firing happens after [NextDelay]; later firings follow
every interval. A firing that returns an error or panics is logged and the
schedule continues. The job ends when ctx is cancelled or the handle is stopped.

Parameters:
  - ctx: context.Context (root context, usually the process lifetime)
  - userID: int64
  - prefs: auth.Preferences (passed to every firing)
  - fn: JobFunc

Returns:
  - *Job: Handle of the running job
*/
func (s *Scheduler) ScheduleDaily(ctx context.Context, userID int64, prefs auth.Preferences, fn JobFunc) *Job {
	now := s.now()
	delay := NextDelay(now, s.at, s.loc)

	job := &Job{
		id:        uuid.New(),
		userID:    userID,
		firstFire: now.Add(delay),
		interval:  s.interval,
		prefs:     prefs,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}

	log := s.logger.With(
		slog.Int64(constants.FieldUserID, userID),
		slog.String(constants.FieldJobID, job.id),
	)
	log.Info("digest_job_scheduled",
		slog.String("now", now.In(s.loc).Format(time.RFC3339)),
		slog.String("fire_at", anchor(now, s.at, s.loc).Format(time.RFC3339)),
		slog.String("delay", formatDelay(delay)),
		slog.Duration("interval", s.interval),
		slog.String("language", prefs.Language.String()),
	)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(job.done)
		s.run(ctx, log, job, delay, fn)
	}()

	return job
}

// Wait blocks until every started job has exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context, log *slog.Logger, job *Job, delay time.Duration, fn JobFunc) {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-job.stop:
		return
	case <-ctx.Done():
		return
	}

	// The period counts from the first fire instant, not from the end of the first run.
	ticker := time.NewTicker(job.interval)
	defer ticker.Stop()

	s.fire(ctx, log, job, fn)

	for {
		select {
		case <-ticker.C:
			s.fire(ctx, log, job, fn)
		case <-job.stop:
			log.Info("digest_job_stopped", slog.Int64("fires", job.Fires()))
			return
		case <-ctx.Done():
			return
		}
	}
}

// fire runs one firing. Errors and panics never end the schedule.
func (s *Scheduler) fire(ctx context.Context, log *slog.Logger, job *Job, fn JobFunc) {
	job.fires.Add(1)

	defer func() {
		if r := recover(); r != nil {
			log.Error("digest_job_panic",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()

	started := s.now()
	if err := fn(ctx, job.prefs); err != nil {
		log.Error("digest_job_failed", slog.Any("error", err))
		return
	}
	log.Info("digest_job_completed", slog.Duration("elapsed", s.now().Sub(started)))
}

func formatDelay(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	sec := (d % time.Minute) / time.Second
	return fmt.Sprintf("%d hours, %d minutes, %d seconds", h, m, sec)
}

// # Job

// Job is the handle of one recurring job.
type Job struct {
	id        string
	userID    int64
	firstFire time.Time
	interval  time.Duration
	prefs     auth.Preferences
	fires     atomic.Int64

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// ID returns the job's UUIDv7.
func (j *Job) ID() string { return j.id }

// UserID returns the user the job runs for.
func (j *Job) UserID() int64 { return j.userID }

// FirstFire returns the instant of the first firing.
func (j *Job) FirstFire() time.Time { return j.firstFire }

// Interval returns the period between firings.
func (j *Job) Interval() time.Duration { return j.interval }

// Fires returns how many times the job has started its work.
func (j *Job) Fires() int64 { return j.fires.Load() }

// Stop ends the job after any firing in progress. It is idempotent.
func (j *Job) Stop() {
	j.stopOnce.Do(func() { close(j.stop) })
}

// Done is closed once the job's goroutine has exited.
func (j *Job) Done() <-chan struct{} { return j.done }
