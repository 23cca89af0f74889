package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"fx-news-alerts/internal/alerting"
	"fx-news-alerts/internal/config"
	"fx-news-alerts/internal/dedupe"
	"fx-news-alerts/internal/extract"
	"fx-news-alerts/internal/filter"
	"fx-news-alerts/internal/ingest"
	"fx-news-alerts/internal/scoring"
	"fx-news-alerts/internal/service"
	"fx-news-alerts/internal/storage"
	"fx-news-alerts/internal/summarize"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

// runtime is everything one command needs to drive the pipeline.
type runtime struct {
	pipeline *service.Pipeline
	store    *storage.Store
	closers  []func()
}

func (r *runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	store, err := storage.Open(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}

func (a *App) newCollector() (*ingest.FeedCollector, error) {
	cfg := a.Config.Ingest
	feeds := cfg.Feeds
	if cfg.FeedsFile != "" {
		fromFile, err := ingest.LoadFeeds(cfg.FeedsFile)
		if err != nil {
			return nil, err
		}
		feeds = ingest.MergeFeeds(feeds, fromFile)
	}
	if len(feeds) == 0 {
		return nil, errors.New("no feeds configured: set ingest.feeds or ingest.feeds_file")
	}
	return ingest.NewFeedCollector(ingest.FeedOptions{
		Feeds:     feeds,
		Timeout:   cfg.RequestTimeout,
		UserAgent: cfg.UserAgent,
		Retry:     cfg.Retry,
	}, a.Logger), nil
}

func (a *App) newNotifier() (*alerting.MultiNotifier, error) {
	cfg := a.Config.Alerting
	channels := make(map[string]alerting.Notifier, len(cfg.Channels))
	order := make([]string, 0, len(cfg.Channels))

	for _, raw := range cfg.Channels {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		if _, dup := channels[name]; dup {
			continue
		}
		switch name {
		case "discord":
			n, err := alerting.NewDiscordNotifier(alerting.DiscordOptions{
				WebhookBeginner: cfg.Discord.WebhookBeginner,
				WebhookPro:      cfg.Discord.WebhookPro,
				Username:        cfg.Discord.Username,
				Timeout:         cfg.RequestTimeout,
				Retry:           cfg.Retry,
			}, a.Logger)
			if err != nil {
				return nil, err
			}
			channels[name] = n
		case "telegram":
			channels[name] = alerting.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.APIBase, cfg.RequestTimeout, cfg.Retry, a.Logger)
		default:
			return nil, fmt.Errorf("unknown alerting channel %q", raw)
		}
		order = append(order, name)
	}
	return alerting.NewMultiNotifier(channels, order)
}

func (a *App) newSummarizer(ctx context.Context) (summarize.Summarizer, func(), error) {
	cfg := a.Config.Summarizer
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))

	var key string
	switch provider {
	case summarize.ProviderAnthropic, "":
		key = cfg.AnthropicAPIKey
	case summarize.ProviderOpenAI:
		key = cfg.OpenAIAPIKey
	case summarize.ProviderGemini:
		key = cfg.GeminiAPIKey
	}

	s, err := summarize.New(ctx, summarize.Options{
		Provider:         provider,
		Model:            cfg.Models[provider],
		APIKey:           key,
		Timeout:          cfg.RequestTimeout,
		MaxTokensSummary: cfg.MaxTokensSummary,
		MaxTokensAction:  cfg.MaxTokensAction,
		Temperature:      cfg.Temperature,
		Retry:            cfg.Retry,
	}, a.Logger)
	if err != nil {
		return nil, nil, err
	}

	closer := func() {}
	if c, ok := s.(interface{ Close() error }); ok {
		closer = func() {
			if err := c.Close(); err != nil {
				a.Logger.Warn().Err(err).Msg("close summarizer")
			}
		}
	}
	return s, closer, nil
}

func (a *App) newChecker() *dedupe.Checker {
	return dedupe.New(dedupe.Options{
		TTL:        a.Config.Dedupe.TTL,
		Threshold:  a.Config.Dedupe.Similarity,
		MaxEntries: a.Config.Dedupe.MaxEntries,
	})
}

func (a *App) newFilter() *filter.Filter {
	t := a.Config.Thresholds
	return filter.New(filter.Options{
		PairsAllowlist:     a.Config.PairsAllowlist,
		BreakingThreshold:  t.Breaking,
		DigestThreshold:    t.Digest,
		PairScoreThreshold: t.PairScore,
		DigestPairScoreMin: t.DigestPairScoreMin,
		ImpactFloor:        t.ImpactFloor,
	})
}

// warmUp reloads the retention window from delivery history so a restart
// does not resend what was already delivered.
func (a *App) warmUp(ctx context.Context, store *storage.Store, breaking, digest *dedupe.Checker) {
	if store == nil {
		return
	}
	since := time.Now().Add(-a.Config.Dedupe.TTL)
	records, err := store.SeenSince(ctx, since)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("failed to load delivery history; starting with empty duplicate cache")
		return
	}

	var b, d []dedupe.Record
	for _, rec := range records {
		r := dedupe.Record{URLHash: rec.ArticleID, Title: rec.Title, FirstSeen: rec.DeliveredAt}
		switch rec.Kind {
		case storage.KindDigest:
			d = append(d, r)
		default:
			b = append(b, r)
		}
	}
	breaking.Restore(b)
	digest.Restore(d)
	a.Logger.Info().Int("breaking", breaking.Len()).Int("digest", digest.Len()).Msg("duplicate cache restored")
}

func (a *App) newRuntime(ctx context.Context) (*runtime, error) {
	rt := &runtime{}

	collector, err := a.newCollector()
	if err != nil {
		return nil, err
	}
	notifier, err := a.newNotifier()
	if err != nil {
		return nil, err
	}
	summarizer, closeSummarizer, err := a.newSummarizer(ctx)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, closeSummarizer)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		rt.Close()
		return nil, err
	}
	var recorder service.Recorder
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; delivery history disabled")
	} else {
		rt.store = store
		rt.closers = append(rt.closers, closeStore)
		recorder = store
	}

	breakingSeen, digestSeen := a.newChecker(), a.newChecker()
	a.warmUp(ctx, store, breakingSeen, digestSeen)

	s := a.Config.Scheduler
	pipeline, err := service.New(service.Deps{
		Collector:    collector,
		Extractor:    extract.NewExtractor(extract.DefaultRules()),
		Scorer:       scoring.NewScorer(scoring.DefaultWeights()),
		Filter:       a.newFilter(),
		Summarizer:   summarizer,
		Notifier:     notifier,
		Recorder:     recorder,
		BreakingSeen: breakingSeen,
		DigestSeen:   digestSeen,
	}, service.Options{
		BreakingBatch: s.BreakingBatch,
		DigestBatch:   s.DigestBatch,
		DigestLimit:   s.DigestLimit,
		Disclaimer:    a.Config.Alerting.Disclaimer,
		Channels:      notifier.Channels(),
		Location:      a.Config.Location(),
	}, a.Logger)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.pipeline = pipeline
	return rt, nil
}

// CheckBreaking runs a single breaking-news pass.
func (a *App) CheckBreaking(ctx context.Context) error {
	rt, err := a.newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	_, err = rt.pipeline.CheckBreaking(ctx, time.Now())
	return err
}

// Digest sends one morning or night digest.
func (a *App) Digest(ctx context.Context, kind service.DigestKind) error {
	rt, err := a.newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	_, err = rt.pipeline.Digest(ctx, kind, time.Now(), a.lookback(kind))
	return err
}

func (a *App) lookback(kind service.DigestKind) time.Duration {
	if kind == service.DigestNight {
		return a.Config.Scheduler.NightLookback
	}
	return a.Config.Scheduler.MorningLookback
}

// Run executes the long-running scheduler until SIGINT/SIGTERM.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := a.initTracing(ctx)
	if err != nil {
		return err
	}
	defer shutdownTracing()

	rt, err := a.newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	sched, err := a.newScheduler(rt)
	if err != nil {
		return err
	}

	a.Logger.Info().Interface("next_runs", sched.Upcoming()).Msg("starting news service")
	err = sched.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("news service stopped")
	return nil
}
