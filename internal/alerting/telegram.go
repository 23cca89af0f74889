package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"fx-news-alerts/internal/retry"
)

// TelegramNotifier 通过 Telegram Bot API 推送消息。
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	policy   retry.Policy
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier 构造 Telegram 告警器。
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, policy retry.Policy, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		policy:   policy,
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// NotifyAlert implements Notifier.
func (n *TelegramNotifier) NotifyAlert(ctx context.Context, alert Alert) error {
	if err := n.send(ctx, renderAlert(alert)); err != nil {
		return err
	}
	n.logger.Info().Str("url", alert.URL).Msg("告警已发送 (Telegram)")
	return nil
}

// NotifyDigest implements Notifier.
func (n *TelegramNotifier) NotifyDigest(ctx context.Context, digest Digest) error {
	if err := n.send(ctx, renderDigest(digest)); err != nil {
		return err
	}
	n.logger.Info().Str("period", digest.Period).Int("items", len(digest.Items)).Msg("摘要已发送 (Telegram)")
	return nil
}

// send 调用 sendMessage API 推送文本。
func (n *TelegramNotifier) send(ctx context.Context, text string) error {
	payload := map[string]any{
		"chat_id":                  n.chatID,
		"text":                     text,
		"disable_web_page_preview": true,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	return retry.Do(ctx, n.policy, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return retry.Permanent(fmt.Errorf("create telegram request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.client.Do(req)
		if err != nil {
			return fmt.Errorf("send telegram request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("telegram 响应码异常: %d", resp.StatusCode)
		}

		var result struct {
			OK bool `json:"ok"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err == nil && !result.OK {
			return retry.Permanent(fmt.Errorf("telegram 返回 ok=false"))
		}
		return nil
	})
}

func renderAlert(alert Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[FX速報] %s\n", alert.Title)
	fmt.Fprintf(&b, "確度: %s", alert.Confidence.Label())
	if len(alert.Currencies) > 0 {
		fmt.Fprintf(&b, " | %s", strings.Join(alert.Currencies, ", "))
	}
	b.WriteString("\n\n")
	if s := strings.TrimSpace(alert.Summary); s != "" {
		b.WriteString(s)
		b.WriteString("\n\n")
	}
	if g := strings.TrimSpace(alert.ActionGuide); g != "" {
		b.WriteString("次の一手: ")
		b.WriteString(g)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "出所: %s\n%s\n", alert.Source, alert.URL)
	if alert.Disclaimer != "" {
		b.WriteString(alert.Disclaimer)
	}
	return b.String()
}

func renderDigest(digest Digest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n📰 %sの重要ニュースまとめ\n\n", digest.Title, digest.Period)
	for i, item := range digest.Items {
		fmt.Fprintf(&b, "%d. %s [%s]\n", i+1, clip(item.Title, 100), item.Confidence.Label())
		if s := strings.TrimSpace(item.Summary); s != "" {
			fmt.Fprintf(&b, "   %s\n", clip(s, 200))
		}
		if item.URL != "" {
			fmt.Fprintf(&b, "   %s\n", item.URL)
		}
	}
	if digest.Disclaimer != "" {
		b.WriteString("\n")
		b.WriteString(digest.Disclaimer)
	}
	return b.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
