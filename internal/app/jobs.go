package app

import (
	"context"
	"time"

	"fx-news-alerts/internal/scheduler"
	"fx-news-alerts/internal/service"
	"fx-news-alerts/internal/tracing"
	"fx-news-alerts/internal/version"
)

// Scheduled job names.
const (
	JobBreaking      = "breaking_check"
	JobMorningDigest = "morning_digest"
	JobNightDigest   = "night_digest"
)

func (a *App) newScheduler(rt *runtime) (*scheduler.Scheduler, error) {
	cfg := a.Config.Scheduler
	loc := a.Config.Location()

	sched := scheduler.New(scheduler.Options{
		Tick:         cfg.Tick,
		StartupDelay: cfg.StartupDelay,
	}, a.Logger)

	morningHour, morningMinute, err := scheduler.ParseClock(cfg.MorningAt)
	if err != nil {
		return nil, err
	}
	nightHour, nightMinute, err := scheduler.ParseClock(cfg.NightAt)
	if err != nil {
		return nil, err
	}

	jobs := []scheduler.Job{
		{
			Name:    JobBreaking,
			Trigger: scheduler.Every{Interval: cfg.BreakingInterval, Align: cfg.AlignToInterval},
			Run: func(ctx context.Context, now time.Time) error {
				_, err := rt.pipeline.CheckBreaking(ctx, now)
				return err
			},
		},
		{
			Name:    JobMorningDigest,
			Trigger: scheduler.DailyAt{Hour: morningHour, Minute: morningMinute, Location: loc},
			Run:     a.digestJob(rt, service.DigestMorning),
		},
		{
			Name:    JobNightDigest,
			Trigger: scheduler.DailyAt{Hour: nightHour, Minute: nightMinute, Location: loc},
			Run:     a.digestJob(rt, service.DigestNight),
		},
	}
	if rt.store != nil && a.Config.Database.Retention > 0 {
		jobs = append(jobs, scheduler.Job{
			Name:    "prune_history",
			Trigger: scheduler.DailyAt{Hour: 4, Minute: 0, Location: loc},
			Run: func(ctx context.Context, now time.Time) error {
				_, err := a.prune(ctx, rt.store, now.Add(-a.Config.Database.Retention))
				return err
			},
		})
	}

	for _, job := range jobs {
		if err := sched.Register(job); err != nil {
			return nil, err
		}
	}
	return sched, nil
}

func (a *App) digestJob(rt *runtime, kind service.DigestKind) scheduler.JobFunc {
	lookback := a.lookback(kind)
	return func(ctx context.Context, now time.Time) error {
		_, err := rt.pipeline.Digest(ctx, kind, now, lookback)
		return err
	}
}

func (a *App) initTracing(ctx context.Context) (func(), error) {
	shutdown, err := tracing.Init(ctx, a.Config.Tracing, a.Config.App.Name, version.Version)
	if err != nil {
		return nil, err
	}
	return func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			a.Logger.Warn().Err(err).Msg("flush traces")
		}
	}, nil
}
