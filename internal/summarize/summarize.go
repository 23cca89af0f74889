package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"fx-news-alerts/internal/domain"
	"fx-news-alerts/internal/ingest"
	"fx-news-alerts/internal/retry"
	"fx-news-alerts/internal/tracing"
)

// ErrMissingAPIKey is returned when the selected vendor has no credentials.
var ErrMissingAPIKey = errors.New("summarizer api key not configured")

// Provider names.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderTemplate  = "template"
)

// Summarizer produces the reader-facing text for an enriched article.
type Summarizer interface {
	Summarize(ctx context.Context, item domain.Enriched) (string, error)
	ActionGuide(ctx context.Context, summary string, item domain.Enriched) (string, error)
}

// Options select and tune a vendor.
type Options struct {
	Provider string
	Model    string
	APIKey   string
	// Endpoint overrides the vendor URL.
	Endpoint         string
	Timeout          time.Duration
	MaxTokensSummary int
	MaxTokensAction  int
	Temperature      float64
	Retry            retry.Policy
}

// completer is one vendor's text generation call.
type completer interface {
	complete(ctx context.Context, prompt string, maxTokens int) (string, error)
	close() error
}

// LLM drives a vendor with retry, tracing and Japanese normalisation.
type LLM struct {
	provider string
	opts     Options
	vendor   completer
	logger   zerolog.Logger
}

// New builds the summarizer named by opts.Provider.
func New(ctx context.Context, opts Options, logger zerolog.Logger) (Summarizer, error) {
	provider := strings.ToLower(strings.TrimSpace(opts.Provider))
	if provider == "" {
		provider = ProviderAnthropic
	}
	if provider == ProviderTemplate {
		return Template{}, nil
	}
	if opts.MaxTokensSummary <= 0 {
		opts.MaxTokensSummary = 600
	}
	if opts.MaxTokensAction <= 0 {
		opts.MaxTokensAction = 400
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("%s: %w", provider, ErrMissingAPIKey)
	}

	var (
		vendor completer
		err    error
	)
	switch provider {
	case ProviderAnthropic:
		vendor = newAnthropic(opts)
	case ProviderOpenAI:
		vendor = newOpenAI(opts)
	case ProviderGemini:
		vendor, err = newGemini(ctx, opts)
	default:
		return nil, fmt.Errorf("unsupported summarizer provider %q", opts.Provider)
	}
	if err != nil {
		return nil, err
	}

	l := &LLM{
		provider: provider,
		opts:     opts,
		vendor:   vendor,
		logger:   logger.With().Str("component", "summarizer").Str("provider", provider).Logger(),
	}
	l.logger.Info().Str("model", opts.Model).Msg("summarizer ready")
	return l, nil
}

// Summarize implements Summarizer.
func (l *LLM) Summarize(ctx context.Context, item domain.Enriched) (string, error) {
	return l.generate(ctx, "summarize", summaryPrompt(item), l.opts.MaxTokensSummary)
}

// ActionGuide implements Summarizer.
func (l *LLM) ActionGuide(ctx context.Context, summary string, item domain.Enriched) (string, error) {
	return l.generate(ctx, "action_guide", actionPrompt(summary, item), l.opts.MaxTokensAction)
}

// Close releases vendor resources.
func (l *LLM) Close() error {
	return l.vendor.close()
}

func (l *LLM) generate(ctx context.Context, op, prompt string, maxTokens int) (string, error) {
	ctx, span := tracing.Start(ctx, "summarizer."+op)
	defer span.End()

	var text string
	err := retry.Do(ctx, l.opts.Retry, func(ctx context.Context) error {
		out, err := l.vendor.complete(ctx, prompt, maxTokens)
		if err != nil {
			return err
		}
		if strings.TrimSpace(out) == "" {
			return errors.New("empty completion")
		}
		text = out
		return nil
	})
	if err != nil {
		tracing.Fail(span, err)
		l.logger.Warn().Err(err).Str("op", op).Msg("generation failed")
		return "", fmt.Errorf("%s %s: %w", l.provider, op, err)
	}
	return ingest.NormalizeJapanese(text), nil
}

// Fallback returns the text delivered when generation fails.
func Fallback(item domain.Enriched) (summary, guide string) {
	return "要約生成に失敗しました。元記事をご確認ください: " + item.Article.Title,
		"詳細は元記事をご確認ください。"
}

var _ Summarizer = (*LLM)(nil)
