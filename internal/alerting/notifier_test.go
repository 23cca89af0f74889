package alerting

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"fx-news-alerts/internal/domain"
	"fx-news-alerts/internal/retry"
)

const sampleSummary = "要点：日銀が政策金利を据え置き\n追加の説明行\nなぜ重要か: 円安圧力が続く\n関連ペア：USDJPY, EURJPY\n確度：高"

func sampleAlert() Alert {
	return Alert{
		Title:       "BOJ holds rates",
		Summary:     sampleSummary,
		ActionGuide: "上昇シナリオ: 151円突破で買い",
		Source:      "FX Wire",
		URL:         "https://news.example/boj",
		Currencies:  []string{"JPY", "USD"},
		Confidence:  domain.ConfidenceHigh,
		Excerpt:     "The Bank of Japan kept policy unchanged.",
		Disclaimer:  "本投稿は教育目的であり、投資助言ではありません。",
	}
}

func TestParseSections(t *testing.T) {
	sections := ParseSections("前置き\n" + sampleSummary)
	if sections[SectionPoints] != "日銀が政策金利を据え置き\n追加の説明行" {
		t.Fatalf("要点解析错误: %q", sections[SectionPoints])
	}
	if sections[SectionWhy] != "円安圧力が続く" {
		t.Fatalf("ASCII colon heading not parsed: %q", sections[SectionWhy])
	}
	if sections[SectionPairs] != "USDJPY, EURJPY" || sections[SectionConfidence] != "高" {
		t.Fatalf("unexpected sections %v", sections)
	}
	if len(ParseSections("no headings at all")) != 0 {
		t.Fatal("text without headings has no sections")
	}
}

type capturedHook struct {
	mu       sync.Mutex
	payloads []webhookPayload
}

func (c *capturedHook) handler(t *testing.T, status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p webhookPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("解析请求体失败: %v", err)
		}
		c.mu.Lock()
		c.payloads = append(c.payloads, p)
		c.mu.Unlock()
		w.WriteHeader(status)
	}
}

func fieldNames(e embed) []string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Name
	}
	return names
}

func TestDiscordAlertBeginnerAndPro(t *testing.T) {
	beginner, pro := &capturedHook{}, &capturedHook{}
	bSrv := httptest.NewServer(beginner.handler(t, http.StatusNoContent))
	defer bSrv.Close()
	pSrv := httptest.NewServer(pro.handler(t, http.StatusNoContent))
	defer pSrv.Close()

	n, err := NewDiscordNotifier(DiscordOptions{WebhookBeginner: bSrv.URL, WebhookPro: pSrv.URL}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}
	if err := n.NotifyAlert(context.Background(), sampleAlert()); err != nil {
		t.Fatalf("NotifyAlert 应成功: %v", err)
	}

	if len(beginner.payloads) != 1 || len(pro.payloads) != 1 {
		t.Fatalf("each webhook should get one post: %d %d", len(beginner.payloads), len(pro.payloads))
	}
	be := beginner.payloads[0].Embeds[0]
	want := []string{"📌 要点", "⚡ なぜ重要か", "💱 関連ペア", "📊 確度", "🎯 次の一手（考え方）", "✅ チェックリスト", "⚠️ 免責事項"}
	if got := fieldNames(be); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected beginner fields %v", got)
	}
	if be.Color != 0x00FF00 || be.Footer == nil || be.Footer.Text != "出所: FX Wire" {
		t.Fatalf("unexpected embed meta %+v", be)
	}
	if be.Fields[3].Value != "高" || !be.Fields[3].Inline {
		t.Fatalf("confidence field wrong: %+v", be.Fields[3])
	}

	pe := pro.payloads[0].Embeds[0]
	if len(pe.Fields) != len(be.Fields)+1 || pe.Fields[1].Name != "📄 原文抜粋" {
		t.Fatalf("pro embed should carry the excerpt at index 1: %v", fieldNames(pe))
	}
}

func TestDiscordClipsLongValues(t *testing.T) {
	hook := &capturedHook{}
	srv := httptest.NewServer(hook.handler(t, http.StatusOK))
	defer srv.Close()

	n, _ := NewDiscordNotifier(DiscordOptions{WebhookBeginner: srv.URL}, zerolog.Nop())
	alert := sampleAlert()
	alert.Title = strings.Repeat("円", 300)
	alert.ActionGuide = strings.Repeat("a", 2000)
	if err := n.NotifyAlert(context.Background(), alert); err != nil {
		t.Fatalf("notify: %v", err)
	}
	e := hook.payloads[0].Embeds[0]
	if len([]rune(e.Title)) != 256 {
		t.Fatalf("title should be clipped to 256 runes, got %d", len([]rune(e.Title)))
	}
	for _, f := range e.Fields {
		if len([]rune(f.Value)) > 1024 {
			t.Fatalf("field %s exceeds 1024 runes", f.Name)
		}
	}
}

func TestDiscordRetriesServerErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n, _ := NewDiscordNotifier(DiscordOptions{WebhookBeginner: srv.URL, Retry: retry.Policy{MaxAttempts: 3}}, zerolog.Nop())
	if err := n.NotifyAlert(context.Background(), sampleAlert()); err != nil {
		t.Fatalf("third attempt should succeed: %v", err)
	}
	if atomic.LoadInt32(&hits) != 3 {
		t.Fatalf("expected 3 attempts, got %d", hits)
	}
}

func TestDiscordClientErrorIsPermanent(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, `{"message": "Invalid Webhook Token"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	n, _ := NewDiscordNotifier(DiscordOptions{WebhookBeginner: srv.URL, Retry: retry.Policy{MaxAttempts: 3}}, zerolog.Nop())
	if err := n.NotifyAlert(context.Background(), sampleAlert()); err == nil {
		t.Fatal("401 应报错")
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("4xx must not be retried, hits=%d", hits)
	}
}

func TestDiscordDigest(t *testing.T) {
	hook := &capturedHook{}
	srv := httptest.NewServer(hook.handler(t, http.StatusNoContent))
	defer srv.Close()

	n, _ := NewDiscordNotifier(DiscordOptions{WebhookPro: srv.URL}, zerolog.Nop())
	n.now = func() time.Time { return time.Date(2024, 1, 1, 21, 0, 0, 0, time.UTC) }

	digest := Digest{Title: "📊 朝のダイジェスト", Period: "朝", Disclaimer: "免責"}
	for i := 0; i < 12; i++ {
		digest.Items = append(digest.Items, DigestItem{Title: "item", Summary: "summary", Confidence: domain.ConfidenceMedium})
	}
	digest.Items[0].Currencies = []string{"USD", "JPY"}
	if err := n.NotifyDigest(context.Background(), digest); err != nil {
		t.Fatalf("digest: %v", err)
	}
	e := hook.payloads[0].Embeds[0]
	if e.Description != "📰 朝の重要ニュースまとめ" {
		t.Fatalf("unexpected description %q", e.Description)
	}
	if len(e.Fields) != 11 {
		t.Fatalf("10 items plus disclaimer expected, got %d", len(e.Fields))
	}
	if e.Fields[0].Name != "1. item" || e.Fields[0].Value != "**中** | USD, JPY\nsummary" {
		t.Fatalf("unexpected first field %+v", e.Fields[0])
	}
	if !strings.HasPrefix(e.Fields[1].Value, "**中** | N/A") {
		t.Fatalf("missing currencies should render N/A: %q", e.Fields[1].Value)
	}
	if e.Timestamp != "2024-01-01T21:00:00Z" {
		t.Fatalf("unexpected timestamp %s", e.Timestamp)
	}
}

func TestTelegramNotifierSuccess(t *testing.T) {
	received := make(map[string]any)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "sendMessage") {
			t.Fatalf("路径应包含 sendMessage, 实际 %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("解析请求体失败: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, retry.Policy{}, testLogger())
	if err := notifier.NotifyAlert(context.Background(), sampleAlert()); err != nil {
		t.Fatalf("Telegram Notify 应成功: %v", err)
	}

	if received["chat_id"] != "chat" {
		t.Fatalf("chat_id 不正确: %#v", received)
	}
	text, _ := received["text"].(string)
	if !strings.Contains(text, "BOJ holds rates") || !strings.Contains(text, "確度: 高") {
		t.Fatalf("text 内容不完整: %q", text)
	}
}

func TestTelegramNotifierError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, retry.Policy{}, testLogger())
	if err := notifier.NotifyDigest(context.Background(), Digest{Title: "t", Period: "夜"}); err == nil {
		t.Fatal("ok=false 应报错")
	}
}

type stubNotifier struct {
	alerts int
	err    error
}

func (s *stubNotifier) NotifyAlert(context.Context, Alert) error {
	s.alerts++
	return s.err
}

func (s *stubNotifier) NotifyDigest(context.Context, Digest) error { return s.err }

func TestMultiNotifier(t *testing.T) {
	if _, err := NewMultiNotifier(nil, []string{"discord"}); !errors.Is(err, ErrNoChannels) {
		t.Fatalf("expected ErrNoChannels, got %v", err)
	}

	ok, bad := &stubNotifier{}, &stubNotifier{err: errors.New("down")}
	m, err := NewMultiNotifier(map[string]Notifier{"discord": ok, "telegram": bad}, []string{"discord", "telegram"})
	if err != nil {
		t.Fatalf("new multi: %v", err)
	}
	if got := m.Channels(); len(got) != 2 {
		t.Fatalf("unexpected channels %v", got)
	}
	err = m.NotifyAlert(context.Background(), sampleAlert())
	if err == nil || !strings.Contains(err.Error(), "telegram") {
		t.Fatalf("failing channel must fail the delivery, got %v", err)
	}
	if ok.alerts != 1 || bad.alerts != 1 {
		t.Fatalf("every channel should be attempted: %d %d", ok.alerts, bad.alerts)
	}
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
