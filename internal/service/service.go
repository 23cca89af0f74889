package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"fx-news-alerts/internal/alerting"
	"fx-news-alerts/internal/dedupe"
	"fx-news-alerts/internal/domain"
	"fx-news-alerts/internal/extract"
	"fx-news-alerts/internal/filter"
	"fx-news-alerts/internal/ingest"
	"fx-news-alerts/internal/scoring"
	"fx-news-alerts/internal/storage"
	"fx-news-alerts/internal/summarize"
	"fx-news-alerts/internal/tracing"
)

// ErrDeliveryFailed is returned when at least one qualifying delivery was
// not confirmed. The affected articles stay unseen.
var ErrDeliveryFailed = errors.New("delivery failed")

const excerptRunes = 200

// Recorder persists confirmed deliveries.
type Recorder interface {
	RecordDelivery(ctx context.Context, rec storage.DeliveryRecord) (bool, error)
}

// Deps are the collaborators a Pipeline drives.
type Deps struct {
	Collector  ingest.Collector
	Extractor  *extract.Extractor
	Scorer     *scoring.Scorer
	Filter     *filter.Filter
	Summarizer summarize.Summarizer
	Notifier   alerting.Notifier
	// Recorder is optional.
	Recorder Recorder
	// BreakingSeen and DigestSeen gate each delivery class separately.
	BreakingSeen *dedupe.Checker
	DigestSeen   *dedupe.Checker
}

// Options tune batch sizes and delivery text.
type Options struct {
	BreakingBatch int
	DigestBatch   int
	DigestLimit   int
	Disclaimer    string
	Channels      []string
	Location      *time.Location
}

// Pipeline runs the breaking and digest jobs.
type Pipeline struct {
	deps   Deps
	opts   Options
	logger zerolog.Logger
}

// New constructs the pipeline.
func New(deps Deps, opts Options, logger zerolog.Logger) (*Pipeline, error) {
	switch {
	case deps.Collector == nil:
		return nil, errors.New("pipeline requires a collector")
	case deps.Extractor == nil || deps.Scorer == nil || deps.Filter == nil:
		return nil, errors.New("pipeline requires extractor, scorer and filter")
	case deps.Summarizer == nil:
		return nil, errors.New("pipeline requires a summarizer")
	case deps.Notifier == nil:
		return nil, alerting.ErrNoChannels
	case deps.BreakingSeen == nil || deps.DigestSeen == nil:
		return nil, errors.New("pipeline requires duplicate checkers")
	}
	if opts.BreakingBatch <= 0 {
		opts.BreakingBatch = 5
	}
	if opts.DigestBatch <= 0 {
		opts.DigestBatch = 20
	}
	if opts.DigestLimit <= 0 {
		opts.DigestLimit = 10
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Pipeline{
		deps:   deps,
		opts:   opts,
		logger: logger.With().Str("component", "pipeline").Logger(),
	}, nil
}

// Enrich derives entities and scores for an article.
func (p *Pipeline) Enrich(article domain.Article) (domain.Enriched, error) {
	return Enrich(p.deps.Extractor, p.deps.Scorer, article)
}

// Enrich runs extraction and scoring over one article. A panic inside either
// fails only this article.
func Enrich(ex *extract.Extractor, sc *scoring.Scorer, article domain.Article) (enriched domain.Enriched, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("enrich article %s: panic: %v", article.ID, r)
		}
	}()

	text := ingest.CleanText(article.Text())
	if article.Language == "" {
		article.Language = ingest.DetectLanguage(text)
	}

	entities := ex.Extract(text)
	pairs := ex.Pairs(entities.Currencies)
	return domain.Enriched{
		Article:      article,
		Currencies:   entities.Currencies,
		CentralBanks: entities.CentralBanks,
		Category:     entities.Category,
		ImpactScore:  sc.Impact(text, entities.Category, entities.Currencies, entities.CentralBanks),
		PairScores:   sc.PairScores(text, pairs, entities.Currencies, entities.CentralBanks),
	}, nil
}

// Content produces summary and action guide, degrading to the fallback text
// when generation fails.
func (p *Pipeline) Content(ctx context.Context, item domain.Enriched) (summary, guide string) {
	return Content(ctx, p.deps.Summarizer, item, p.logger)
}

// Content asks s for a summary and action guide. A failed summary falls back
// to the template for both; a failed guide keeps the generated summary.
func Content(ctx context.Context, s summarize.Summarizer, item domain.Enriched, logger zerolog.Logger) (summary, guide string) {
	fallbackSummary, fallbackGuide := summarize.Fallback(item)

	summary, err := s.Summarize(ctx, item)
	if err != nil {
		logger.Error().Err(err).Str("article_id", item.Article.ID).Msg("summary generation failed; using fallback")
		return fallbackSummary, fallbackGuide
	}
	guide, err = s.ActionGuide(ctx, summary, item)
	if err != nil {
		logger.Error().Err(err).Str("article_id", item.Article.ID).Msg("action guide generation failed; using fallback")
		guide = fallbackGuide
	}
	return summary, guide
}

// Summary asks s for a summary only, falling back to the template.
func Summary(ctx context.Context, s summarize.Summarizer, item domain.Enriched, logger zerolog.Logger) string {
	summary, err := s.Summarize(ctx, item)
	if err != nil {
		logger.Error().Err(err).Str("article_id", item.Article.ID).Msg("summary generation failed; using fallback")
		fallback, _ := summarize.Fallback(item)
		return fallback
	}
	return summary
}

// CheckBreaking runs one breaking-news pass.
func (p *Pipeline) CheckBreaking(ctx context.Context, now time.Time) (Report, error) {
	ctx, span := tracing.Start(ctx, "pipeline.check_breaking")
	defer span.End()

	report := Report{Job: "breaking_check", At: now}
	articles, err := p.deps.Collector.Collect(ctx, p.opts.BreakingBatch)
	if err != nil {
		tracing.Fail(span, err)
		return report, fmt.Errorf("collect articles: %w", err)
	}
	report.Collected = len(articles)

	// collectors return newest first; older stories go out first
	for i := len(articles) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		item, ok := p.admit(articles[i], p.deps.BreakingSeen, &report)
		if !ok {
			continue
		}
		if p.deps.Filter.ShouldExclude(item) {
			report.Excluded++
			continue
		}
		if !p.deps.Filter.IsBreaking(item) {
			continue
		}
		report.Qualified++

		if err := p.deliverBreaking(ctx, item, now); err != nil {
			report.Failed++
			p.logger.Error().Err(err).Str("article_id", item.Article.ID).Str("url", item.Article.URL).Msg("breaking delivery failed")
			continue
		}
		report.Delivered++
	}

	p.logReport(report)
	if report.Failed > 0 {
		err := fmt.Errorf("%d of %d breaking alerts: %w", report.Failed, report.Qualified, ErrDeliveryFailed)
		tracing.Fail(span, err)
		return report, err
	}
	return report, nil
}

func (p *Pipeline) deliverBreaking(ctx context.Context, item domain.Enriched, now time.Time) error {
	summary, guide := p.Content(ctx, item)
	alert := alerting.Alert{
		Title:       item.Article.Title,
		Summary:     summary,
		ActionGuide: guide,
		Source:      item.Article.Source,
		URL:         item.Article.URL,
		Currencies:  item.Currencies,
		Confidence:  domain.ConfidenceFor(item.ImpactScore),
		Excerpt:     ingest.Truncate(item.Article.Body, excerptRunes, "..."),
		Disclaimer:  p.opts.Disclaimer,
		PublishedAt: item.Article.Timestamp,
	}
	if err := p.deps.Notifier.NotifyAlert(ctx, alert); err != nil {
		return err
	}

	// delivery is confirmed; bookkeeping must not be lost to cancellation
	p.markSeen(context.WithoutCancel(ctx), p.deps.BreakingSeen, storage.KindBreaking, item, now)
	return nil
}

// Digest runs one digest pass over the lookback window ending at now.
func (p *Pipeline) Digest(ctx context.Context, kind DigestKind, now time.Time, lookback time.Duration) (Report, error) {
	ctx, span := tracing.Start(ctx, "pipeline.digest."+string(kind))
	defer span.End()

	window := NewWindow(now, lookback)
	report := Report{Job: string(kind) + "_digest", At: now}

	articles, err := p.deps.Collector.Collect(ctx, p.opts.DigestBatch)
	if err != nil {
		tracing.Fail(span, err)
		return report, fmt.Errorf("collect articles: %w", err)
	}
	report.Collected = len(articles)

	var candidates []domain.Enriched
	batch := p.deps.DigestSeen.Empty()
	for _, article := range articles {
		if !window.Contains(article.Timestamp) {
			report.OutOfWindow++
			continue
		}
		// feeds syndicate the same story; one digest carries it once
		if article.Valid() && batch.IsDuplicate(article.URL, article.Title) {
			report.Duplicates++
			continue
		}
		item, ok := p.admit(article, p.deps.DigestSeen, &report)
		if !ok {
			continue
		}
		if p.deps.Filter.ShouldExclude(item) {
			report.Excluded++
			continue
		}
		candidates = append(candidates, item)
		batch.Add(item.Article.URL, item.Article.Title)
	}

	selected := p.deps.Filter.FilterForDigest(candidates, p.opts.DigestLimit)
	report.Qualified = len(selected)
	if len(selected) == 0 {
		p.logReport(report)
		return report, nil
	}

	digest := alerting.Digest{
		Title:      kind.Title(),
		Period:     window.Label(p.opts.Location),
		Disclaimer: p.opts.Disclaimer,
	}
	for _, item := range selected {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		summary := Summary(ctx, p.deps.Summarizer, item, p.logger)
		digest.Items = append(digest.Items, alerting.DigestItem{
			Title:      item.Article.Title,
			URL:        item.Article.URL,
			Summary:    summary,
			Currencies: item.TopCurrencies(3),
			Confidence: domain.ConfidenceFor(item.ImpactScore),
			Impact:     item.ImpactScore,
		})
	}

	if err := p.deps.Notifier.NotifyDigest(ctx, digest); err != nil {
		report.Failed = len(selected)
		p.logReport(report)
		err = fmt.Errorf("%s digest: %w: %w", kind, ErrDeliveryFailed, err)
		tracing.Fail(span, err)
		return report, err
	}

	bookkeeping := context.WithoutCancel(ctx)
	for _, item := range selected {
		p.markSeen(bookkeeping, p.deps.DigestSeen, storage.KindDigest, item, now)
	}
	report.Delivered = len(selected)
	p.logReport(report)
	return report, nil
}

// admit applies the validity and duplicate gates and enriches the article.
func (p *Pipeline) admit(article domain.Article, seen *dedupe.Checker, report *Report) (domain.Enriched, bool) {
	if !article.Valid() {
		report.Invalid++
		return domain.Enriched{}, false
	}
	if seen.IsDuplicate(article.URL, article.Title) {
		report.Duplicates++
		return domain.Enriched{}, false
	}
	item, err := p.Enrich(article)
	if err != nil {
		report.EnrichFailed++
		p.logger.Error().Err(err).Str("article_id", article.ID).Msg("enrichment failed")
		return domain.Enriched{}, false
	}
	return item, true
}

func (p *Pipeline) markSeen(ctx context.Context, seen *dedupe.Checker, kind storage.DeliveryKind, item domain.Enriched, now time.Time) {
	seen.Add(item.Article.URL, item.Article.Title)
	if p.deps.Recorder == nil {
		return
	}
	_, err := p.deps.Recorder.RecordDelivery(ctx, storage.DeliveryRecord{
		ArticleID:   item.Article.ID,
		Kind:        kind,
		URL:         item.Article.URL,
		Title:       item.Article.Title,
		Source:      item.Article.Source,
		Category:    string(item.Category),
		Currencies:  item.Currencies,
		ImpactScore: item.ImpactScore,
		PublishedAt: item.Article.Timestamp,
		DeliveredAt: now.UTC(),
		Channels:    p.opts.Channels,
	})
	if err != nil {
		p.logger.Error().Err(err).Str("article_id", item.Article.ID).Msg("failed to persist delivery record")
	}
}

func (p *Pipeline) logReport(r Report) {
	p.logger.Info().
		Str("job", r.Job).
		Int("collected", r.Collected).
		Int("invalid", r.Invalid).
		Int("duplicates", r.Duplicates).
		Int("out_of_window", r.OutOfWindow).
		Int("enrich_failed", r.EnrichFailed).
		Int("excluded", r.Excluded).
		Int("qualified", r.Qualified).
		Int("delivered", r.Delivered).
		Int("failed", r.Failed).
		Msg("job run complete")
}
