package summarize

import (
	"context"
	"fmt"
	"strings"

	"fx-news-alerts/internal/domain"
	"fx-news-alerts/internal/ingest"
)

var categoryLabels = map[domain.Category]string{
	domain.CategoryPolicyRate:      "政策金利",
	domain.CategoryOfficialComment: "要人発言",
	domain.CategoryInflation:       "インフレ指標",
	domain.CategoryEmployment:      "雇用統計",
	domain.CategoryGDP:             "GDP",
	domain.CategoryPMI:             "PMI",
	domain.CategoryRetail:          "小売売上高",
	domain.CategoryTrade:           "貿易収支",
	domain.CategoryOther:           "その他",
}

// Template renders summaries locally from the extracted signals. It never
// fails and needs no credentials.
type Template struct{}

// Summarize implements Summarizer.
func (Template) Summarize(_ context.Context, item domain.Enriched) (string, error) {
	label, ok := categoryLabels[item.Category]
	if !ok {
		label = categoryLabels[domain.CategoryOther]
	}
	points := item.Article.Title
	if body := ingest.Truncate(item.Article.Body, 120, "..."); body != "" {
		points += " " + body
	}
	lines := []string{
		"要点：" + points,
		fmt.Sprintf("なぜ重要か：%sに関するニュースで、影響度スコアは%d/100です。", label, item.ImpactScore),
		"関連ペア：" + joinOrDash(item.Pairs()),
		"確度：" + domain.ConfidenceFor(item.ImpactScore).Label(),
	}
	return strings.Join(lines, "\n"), nil
}

// ActionGuide implements Summarizer.
func (Template) ActionGuide(_ context.Context, _ string, item domain.Enriched) (string, error) {
	if len(item.PairScores) == 0 {
		return "詳細は元記事をご確認ください。", nil
	}
	return fmt.Sprintf("%s の値動きと直近の高値・安値を確認し、指標発表前後のボラティリティに注意してください。",
		strings.Join(item.Pairs(), ", ")), nil
}

var _ Summarizer = Template{}
