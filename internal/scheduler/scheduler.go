package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"fx-news-alerts/internal/tracing"
)

// JobFunc performs one run of a job. now is the scheduled fire time.
type JobFunc func(ctx context.Context, now time.Time) error

// Job binds a trigger to work.
type Job struct {
	Name    string
	Trigger Trigger
	Run     JobFunc
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Options tune scheduler behaviour.
type Options struct {
	// Tick is how often due jobs are evaluated.
	Tick         time.Duration
	StartupDelay time.Duration
	Clock        Clock
}

type entry struct {
	job     Job
	next    time.Time
	running bool
}

// Scheduler evaluates job triggers on a ticker and dispatches due jobs. A job
// never overlaps itself; distinct jobs may run concurrently.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger

	mu   sync.Mutex
	jobs []*entry
	wg   sync.WaitGroup
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.Tick < 0 {
		panic("scheduler tick must not be negative")
	}
	if opts.Tick == 0 {
		opts.Tick = time.Minute
	}
	if opts.Clock == nil {
		opts.Clock = systemClock{}
	}
	return &Scheduler{opts: opts, logger: logger.With().Str("component", "scheduler").Logger()}
}

// Register adds a job. Its first fire time is computed from the clock.
func (s *Scheduler) Register(job Job) error {
	if job.Name == "" || job.Trigger == nil || job.Run == nil {
		return errors.New("job requires name, trigger and run func")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.jobs {
		if e.job.Name == job.Name {
			return fmt.Errorf("job %q already registered", job.Name)
		}
	}
	next := job.Trigger.Next(s.opts.Clock.Now())
	s.jobs = append(s.jobs, &entry{job: job, next: next})
	s.logger.Info().Str("job", job.Name).Str("trigger", job.Trigger.String()).Time("next_run", next).Msg("job registered")
	return nil
}

// Upcoming returns each job's next fire time.
func (s *Scheduler) Upcoming() map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]time.Time, len(s.jobs))
	for _, e := range s.jobs {
		out[e.job.Name] = e.next
	}
	return out
}

// Run blocks, evaluating triggers every tick until ctx is cancelled. In-flight
// jobs are awaited before returning.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.opts.StartupDelay > 0 {
		timer := time.NewTimer(s.opts.StartupDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	ticker := time.NewTicker(s.opts.Tick)
	defer ticker.Stop()

	s.RunDue(ctx, s.opts.Clock.Now())
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("waiting for in-flight jobs")
			s.Wait()
			return ctx.Err()
		case <-ticker.C:
			s.RunDue(ctx, s.opts.Clock.Now())
		}
	}
}

// RunDue starts every job whose fire time is at or before now and returns the
// names started. Each job receives its scheduled fire time, not now. A job still running from a previous trigger is skipped for
// this trigger.
func (s *Scheduler) RunDue(ctx context.Context, now time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var started []string
	for _, e := range s.jobs {
		if now.Before(e.next) {
			continue
		}
		scheduled := e.next
		e.next = e.job.Trigger.Next(now)

		if e.running {
			s.logger.Warn().Str("job", e.job.Name).Time("scheduled", scheduled).Msg("previous run still in progress; skipping")
			continue
		}

		e.running = true
		started = append(started, e.job.Name)
		s.wg.Add(1)
		go s.execute(ctx, e, scheduled)
	}
	return started
}

// Wait blocks until all started jobs return.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) execute(ctx context.Context, e *entry, now time.Time) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		e.running = false
		s.mu.Unlock()
	}()

	ctx, span := tracing.Start(ctx, "job."+e.job.Name)
	defer span.End()

	started := time.Now()
	s.logger.Info().Str("job", e.job.Name).Time("at", now).Msg("executing scheduled job")

	err := safeRun(ctx, e.job.Run, now)
	if err != nil {
		tracing.Fail(span, err)
		s.logger.Error().Err(err).Str("job", e.job.Name).Msg("job execution failed")
		return
	}
	s.logger.Info().Str("job", e.job.Name).Dur("elapsed", time.Since(started)).Msg("job finished")
}

func safeRun(ctx context.Context, fn JobFunc, now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return fn(ctx, now)
}
