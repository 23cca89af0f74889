package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"fx-news-alerts/internal/alerting"
	"fx-news-alerts/internal/domain"
	"fx-news-alerts/internal/extract"
	"fx-news-alerts/internal/ingest"
	"fx-news-alerts/internal/scoring"
	"fx-news-alerts/internal/service"
)

// Summary fetches one article page, scores it and prints the generated
// summary and action guide. Nothing is delivered.
func (a *App) Summary(ctx context.Context, pageURL string) error {
	fetcher := ingest.NewPageFetcher(a.Config.Ingest.RequestTimeout, a.Config.Ingest.UserAgent, a.Logger)
	article, err := fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return err
	}

	item, err := service.Enrich(extract.NewExtractor(extract.DefaultRules()), scoring.NewScorer(scoring.DefaultWeights()), article)
	if err != nil {
		return err
	}

	summarizer, closeSummarizer, err := a.newSummarizer(ctx)
	if err != nil {
		return err
	}
	defer closeSummarizer()

	summary, guide := service.Content(ctx, summarizer, item, a.Logger)

	writeSummary(os.Stdout, item, summary, guide)
	return nil
}

func writeSummary(w io.Writer, item domain.Enriched, summary, guide string) {
	confidence := domain.ConfidenceFor(item.ImpactScore)
	fmt.Fprintf(w, "タイトル: %s\n", item.Article.Title)
	fmt.Fprintf(w, "URL: %s\n", item.Article.URL)
	fmt.Fprintf(w, "カテゴリ: %s  影響度: %d  確度: %s\n", item.Category, item.ImpactScore, confidence.Label())
	fmt.Fprintf(w, "通貨: %s\n", orDash(strings.Join(item.Currencies, ", ")))
	fmt.Fprintf(w, "中銀: %s\n", orDash(strings.Join(item.CentralBanks, ", ")))
	for _, pair := range item.Pairs() {
		fmt.Fprintf(w, "  %s: %d\n", pair, item.PairScores[pair])
	}
	fmt.Fprintf(w, "\n%s\n\n%s\n", summary, guide)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// TestAlert sends a synthetic alert through every configured channel.
func (a *App) TestAlert(ctx context.Context, digest bool) error {
	notifier, err := a.newNotifier()
	if err != nil {
		return err
	}

	now := time.Now()
	if digest {
		err = notifier.NotifyDigest(ctx, alerting.Digest{
			Title:      service.DigestMorning.Title(),
			Period:     service.NewWindow(now, a.Config.Scheduler.MorningLookback).Label(a.Config.Location()),
			Disclaimer: a.Config.Alerting.Disclaimer,
			Items: []alerting.DigestItem{{
				Title:      "【テスト】日銀、政策金利を据え置き",
				URL:        "https://example.com/test-digest",
				Summary:    "テスト配信です。実際のニュースではありません。",
				Currencies: []string{"JPY", "USD"},
				Confidence: domain.ConfidenceMedium,
				Impact:     65,
			}},
		})
	} else {
		err = notifier.NotifyAlert(ctx, alerting.Alert{
			Title: "【テスト】FRB、予想外の利上げを発表",
			Summary: strings.Join([]string{
				alerting.SectionPoints + "：テスト配信です。実際のニュースではありません。",
				alerting.SectionWhy + "：配信経路の疎通確認のため。",
				alerting.SectionPairs + "：USDJPY",
				alerting.SectionConfidence + "：中",
			}, "\n"),
			ActionGuide: "考え方: 設定が正しければこのメッセージが各チャンネルに届きます。",
			Source:      "fxnews",
			URL:         "https://example.com/test-alert",
			Currencies:  []string{"USD", "JPY"},
			Confidence:  domain.ConfidenceMedium,
			Excerpt:     "This is a test excerpt.",
			Disclaimer:  a.Config.Alerting.Disclaimer,
			PublishedAt: now,
		})
	}
	if err != nil {
		return err
	}
	a.Logger.Info().Strs("channels", notifier.Channels()).Bool("digest", digest).Msg("测试告警已发送")
	return nil
}
