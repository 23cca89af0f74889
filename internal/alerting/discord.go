package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"fx-news-alerts/internal/domain"
	"fx-news-alerts/internal/retry"
)

// Discord limits.
const (
	maxTitleRunes      = 256
	maxFieldValueRunes = 1024
	maxDigestItems     = 10
)

const checklist = "□ 経済指標カレンダーを確認\n□ 直近の高値・安値を確認\n□ スプレッドを確認\n□ ポジションサイズを計算"

var confidenceColors = map[domain.Confidence]int{
	domain.ConfidenceHigh:   0x00FF00,
	domain.ConfidenceMedium: 0xFFFF00,
	domain.ConfidenceLow:    0x808080,
}

// DiscordOptions parameterise the webhook notifier.
type DiscordOptions struct {
	WebhookBeginner string
	WebhookPro      string
	Username        string
	Timeout         time.Duration
	Retry           retry.Policy
}

// DiscordNotifier posts embeds to the beginner and pro webhooks. The pro
// audience additionally gets the original excerpt.
type DiscordNotifier struct {
	opts   DiscordOptions
	client *http.Client
	logger zerolog.Logger
	now    func() time.Time
}

// NewDiscordNotifier 构造 Discord 告警器。
func NewDiscordNotifier(opts DiscordOptions, logger zerolog.Logger) (*DiscordNotifier, error) {
	if opts.WebhookBeginner == "" && opts.WebhookPro == "" {
		return nil, errors.New("discord: at least one webhook is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &DiscordNotifier{
		opts:   opts,
		client: &http.Client{Timeout: timeout},
		logger: logger.With().Str("component", "alert_discord").Logger(),
		now:    time.Now,
	}, nil
}

type embed struct {
	Title       string       `json:"title"`
	URL         string       `json:"url,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color"`
	Timestamp   string       `json:"timestamp"`
	Footer      *embedFooter `json:"footer,omitempty"`
	Fields      []embedField `json:"fields"`
}

type embedFooter struct {
	Text string `json:"text"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type webhookPayload struct {
	Username string  `json:"username,omitempty"`
	Embeds   []embed `json:"embeds"`
}

// NotifyAlert implements Notifier.
func (n *DiscordNotifier) NotifyAlert(ctx context.Context, alert Alert) error {
	base := n.alertEmbed(alert)

	var errs []error
	if n.opts.WebhookBeginner != "" {
		if err := n.post(ctx, n.opts.WebhookBeginner, base); err != nil {
			errs = append(errs, fmt.Errorf("beginner webhook: %w", err))
		}
	}
	if n.opts.WebhookPro != "" {
		pro := base
		if excerpt := strings.TrimSpace(alert.Excerpt); excerpt != "" {
			pro.Fields = insertField(base.Fields, 1, embedField{Name: "📄 原文抜粋", Value: clip(excerpt, maxFieldValueRunes)})
		}
		if err := n.post(ctx, n.opts.WebhookPro, pro); err != nil {
			errs = append(errs, fmt.Errorf("pro webhook: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	n.logger.Info().Str("url", alert.URL).Str("confidence", string(alert.Confidence)).Msg("告警已发送 (Discord)")
	return nil
}

// NotifyDigest implements Notifier.
func (n *DiscordNotifier) NotifyDigest(ctx context.Context, digest Digest) error {
	e := n.digestEmbed(digest)

	var errs []error
	for _, hook := range []string{n.opts.WebhookBeginner, n.opts.WebhookPro} {
		if hook == "" {
			continue
		}
		if err := n.post(ctx, hook, e); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	n.logger.Info().Str("period", digest.Period).Int("items", len(digest.Items)).Msg("摘要已发送 (Discord)")
	return nil
}

func (n *DiscordNotifier) alertEmbed(alert Alert) embed {
	sections := ParseSections(alert.Summary)
	color, ok := confidenceColors[alert.Confidence]
	if !ok {
		color = confidenceColors[domain.ConfidenceMedium]
	}

	e := embed{
		Title:     clip(alert.Title, maxTitleRunes),
		URL:       alert.URL,
		Color:     color,
		Timestamp: n.now().UTC().Format(time.RFC3339),
		Footer:    &embedFooter{Text: "出所: " + alert.Source},
	}
	if v := sections[SectionPoints]; v != "" {
		e.Fields = append(e.Fields, embedField{Name: "📌 要点", Value: clip(v, maxFieldValueRunes)})
	}
	if v := sections[SectionWhy]; v != "" {
		e.Fields = append(e.Fields, embedField{Name: "⚡ なぜ重要か", Value: clip(v, maxFieldValueRunes)})
	}
	pairs := sections[SectionPairs]
	if pairs == "" && len(alert.Currencies) > 0 {
		pairs = strings.Join(alert.Currencies, ", ")
	}
	if pairs != "" {
		e.Fields = append(e.Fields, embedField{Name: "💱 関連ペア", Value: clip(pairs, maxFieldValueRunes), Inline: true})
	}
	e.Fields = append(e.Fields, embedField{Name: "📊 確度", Value: alert.Confidence.Label(), Inline: true})
	if guide := strings.TrimSpace(alert.ActionGuide); guide != "" {
		e.Fields = append(e.Fields, embedField{Name: "🎯 次の一手（考え方）", Value: clip(guide, maxFieldValueRunes)})
	}
	e.Fields = append(e.Fields, embedField{Name: "✅ チェックリスト", Value: checklist})
	if alert.Disclaimer != "" {
		e.Fields = append(e.Fields, embedField{Name: "⚠️ 免責事項", Value: clip(alert.Disclaimer, maxFieldValueRunes)})
	}
	if len(sections) == 0 && strings.TrimSpace(alert.Summary) != "" {
		e.Description = clip(alert.Summary, 4096)
	}
	return e
}

func (n *DiscordNotifier) digestEmbed(digest Digest) embed {
	e := embed{
		Title:       clip(digest.Title, maxTitleRunes),
		Description: fmt.Sprintf("📰 %sの重要ニュースまとめ", digest.Period),
		Color:       confidenceColors[domain.ConfidenceMedium],
		Timestamp:   n.now().UTC().Format(time.RFC3339),
	}
	items := digest.Items
	if len(items) > maxDigestItems {
		items = items[:maxDigestItems]
	}
	for i, item := range items {
		currencies := "N/A"
		if len(item.Currencies) > 0 {
			currencies = strings.Join(item.Currencies, ", ")
		}
		value := fmt.Sprintf("**%s** | %s\n%s", item.Confidence.Label(), currencies, clip(item.Summary, 200))
		e.Fields = append(e.Fields, embedField{
			Name:  fmt.Sprintf("%d. %s", i+1, clip(item.Title, 100)),
			Value: clip(value, maxFieldValueRunes),
		})
	}
	if digest.Disclaimer != "" {
		e.Fields = append(e.Fields, embedField{Name: "⚠️ 免責事項", Value: clip(digest.Disclaimer, maxFieldValueRunes)})
	}
	return e
}

func (n *DiscordNotifier) post(ctx context.Context, webhook string, e embed) error {
	body, err := json.Marshal(webhookPayload{Username: n.opts.Username, Embeds: []embed{e}})
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}

	return retry.Do(ctx, n.opts.Retry, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhook, bytes.NewReader(body))
		if err != nil {
			return retry.Permanent(fmt.Errorf("create discord request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.client.Do(req)
		if err != nil {
			return fmt.Errorf("send discord request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		statusErr := fmt.Errorf("discord 响应码异常 (%d): %s", resp.StatusCode, strings.TrimSpace(string(payload)))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return retry.Permanent(statusErr)
		}
		return statusErr
	})
}

func insertField(fields []embedField, at int, f embedField) []embedField {
	if at > len(fields) {
		at = len(fields)
	}
	out := make([]embedField, 0, len(fields)+1)
	out = append(out, fields[:at]...)
	out = append(out, f)
	return append(out, fields[at:]...)
}

// clip cuts s to max runes.
func clip(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

var _ Notifier = (*DiscordNotifier)(nil)
