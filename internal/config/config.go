package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"fx-news-alerts/internal/logging"
	"fx-news-alerts/internal/retry"
	"fx-news-alerts/internal/scheduler"
	"fx-news-alerts/internal/tracing"
)

// Config materialises application configuration.
type Config struct {
	App            AppConfig        `mapstructure:"app"`
	Logging        logging.Config   `mapstructure:"logging"`
	Tracing        tracing.Config   `mapstructure:"tracing"`
	Database       DatabaseConfig   `mapstructure:"database"`
	Scheduler      SchedulerConfig  `mapstructure:"scheduler"`
	Thresholds     ThresholdsConfig `mapstructure:"thresholds"`
	PairsAllowlist []string         `mapstructure:"pairs_allowlist"`
	Dedupe         DedupeConfig     `mapstructure:"dedupe"`
	Ingest         IngestConfig     `mapstructure:"ingest"`
	Summarizer     SummarizerConfig `mapstructure:"summarizer"`
	Alerting       AlertingConfig   `mapstructure:"alerting"`
	Export         ExportConfig     `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity. An empty DSN runs the
// process without delivery history.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	Retention       time.Duration `mapstructure:"retention"`
}

// SchedulerConfig governs job cadence.
type SchedulerConfig struct {
	Timezone         string        `mapstructure:"timezone"`
	Tick             time.Duration `mapstructure:"tick"`
	BreakingInterval time.Duration `mapstructure:"breaking_interval"`
	AlignToInterval  bool          `mapstructure:"align_to_interval"`
	MorningAt        string        `mapstructure:"morning_at"`
	NightAt          string        `mapstructure:"night_at"`
	MorningLookback  time.Duration `mapstructure:"morning_lookback"`
	NightLookback    time.Duration `mapstructure:"night_lookback"`
	StartupDelay     time.Duration `mapstructure:"startup_delay"`
	BreakingBatch    int           `mapstructure:"breaking_batch"`
	DigestBatch      int           `mapstructure:"digest_batch"`
	DigestLimit      int           `mapstructure:"digest_limit"`
}

// ThresholdsConfig holds classification cut-offs, each on the 0-100 scale.
type ThresholdsConfig struct {
	Breaking           int `mapstructure:"breaking"`
	Digest             int `mapstructure:"digest"`
	PairScore          int `mapstructure:"pair_score"`
	DigestPairScoreMin int `mapstructure:"digest_pair_score_min"`
	ImpactFloor        int `mapstructure:"impact_floor"`
}

// DedupeConfig tunes duplicate suppression.
type DedupeConfig struct {
	TTL        time.Duration `mapstructure:"ttl"`
	Similarity float64       `mapstructure:"similarity"`
	MaxEntries int           `mapstructure:"max_entries"`
}

// IngestConfig describes the feed collaborator.
type IngestConfig struct {
	Feeds          []string      `mapstructure:"feeds"`
	FeedsFile      string        `mapstructure:"feeds_file"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	Retry          retry.Policy  `mapstructure:"retry"`
}

// SummarizerConfig selects and tunes the LLM vendor.
type SummarizerConfig struct {
	Provider         string            `mapstructure:"provider"`
	Models           map[string]string `mapstructure:"models"`
	AnthropicAPIKey  string            `mapstructure:"anthropic_api_key"`
	OpenAIAPIKey     string            `mapstructure:"openai_api_key"`
	GeminiAPIKey     string            `mapstructure:"gemini_api_key"`
	RequestTimeout   time.Duration     `mapstructure:"request_timeout"`
	MaxTokensSummary int               `mapstructure:"max_tokens_summary"`
	MaxTokensAction  int               `mapstructure:"max_tokens_action"`
	Temperature      float64           `mapstructure:"temperature"`
	Retry            retry.Policy      `mapstructure:"retry"`
}

// AlertingConfig defines delivery routing.
type AlertingConfig struct {
	Channels       []string       `mapstructure:"channels"`
	Disclaimer     string         `mapstructure:"disclaimer"`
	RequestTimeout time.Duration  `mapstructure:"request_timeout"`
	Discord        DiscordConfig  `mapstructure:"discord"`
	Telegram       TelegramConfig `mapstructure:"telegram"`
	Retry          retry.Policy   `mapstructure:"retry"`
}

// DiscordConfig 描述 Discord webhook 参数。
type DiscordConfig struct {
	WebhookBeginner string `mapstructure:"webhook_beginner"`
	WebhookPro      string `mapstructure:"webhook_pro"`
	Username        string `mapstructure:"username"`
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int    `mapstructure:"max_data_points"`
	OutputDir     string `mapstructure:"output_dir"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FXNEWS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "fxnews")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.pretty", false)

	v.SetDefault("scheduler.timezone", "Asia/Tokyo")
	v.SetDefault("scheduler.tick", "1m")
	v.SetDefault("scheduler.breaking_interval", "5m")
	v.SetDefault("scheduler.align_to_interval", true)
	v.SetDefault("scheduler.morning_at", "06:00")
	v.SetDefault("scheduler.night_at", "22:00")
	v.SetDefault("scheduler.morning_lookback", "12h")
	v.SetDefault("scheduler.night_lookback", "16h")
	v.SetDefault("scheduler.startup_delay", "0s")
	v.SetDefault("scheduler.breaking_batch", 5)
	v.SetDefault("scheduler.digest_batch", 20)
	v.SetDefault("scheduler.digest_limit", 10)

	v.SetDefault("thresholds.breaking", 60)
	v.SetDefault("thresholds.digest", 40)
	v.SetDefault("thresholds.pair_score", 50)
	v.SetDefault("thresholds.digest_pair_score_min", 0)
	v.SetDefault("thresholds.impact_floor", 20)

	v.SetDefault("pairs_allowlist", []string{"USDJPY", "EURUSD", "GBPUSD", "AUDUSD", "EURJPY", "GBPJPY"})

	v.SetDefault("dedupe.ttl", "24h")
	v.SetDefault("dedupe.similarity", 85.0)
	v.SetDefault("dedupe.max_entries", 1000)

	v.SetDefault("ingest.feeds", []string{})
	v.SetDefault("ingest.feeds_file", "")
	v.SetDefault("ingest.request_timeout", "30s")
	v.SetDefault("ingest.user_agent", "fxnews/1.0")
	setRetryDefaults(v, "ingest.retry")

	v.SetDefault("summarizer.provider", "anthropic")
	v.SetDefault("summarizer.models", map[string]string{
		"anthropic": "claude-3-5-sonnet-latest",
		"openai":    "gpt-4o-mini",
		"gemini":    "gemini-1.5-flash",
	})
	v.SetDefault("summarizer.request_timeout", "60s")
	v.SetDefault("summarizer.max_tokens_summary", 600)
	v.SetDefault("summarizer.max_tokens_action", 400)
	v.SetDefault("summarizer.temperature", 0.3)
	setRetryDefaults(v, "summarizer.retry")
	// vendor keys keep their conventional names
	_ = v.BindEnv("summarizer.anthropic_api_key", "FXNEWS_SUMMARIZER_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("summarizer.openai_api_key", "FXNEWS_SUMMARIZER_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("summarizer.gemini_api_key", "FXNEWS_SUMMARIZER_GEMINI_API_KEY", "GEMINI_API_KEY")

	v.SetDefault("alerting.channels", []string{})
	v.SetDefault("alerting.disclaimer", "本投稿は教育目的であり、投資助言ではありません。")
	v.SetDefault("alerting.request_timeout", "10s")
	v.SetDefault("alerting.discord.username", "FX News")
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")
	setRetryDefaults(v, "alerting.retry")
	_ = v.BindEnv("alerting.discord.webhook_beginner", "FXNEWS_ALERTING_DISCORD_WEBHOOK_BEGINNER", "DISCORD_WEBHOOK_BEGINNER")
	_ = v.BindEnv("alerting.discord.webhook_pro", "FXNEWS_ALERTING_DISCORD_WEBHOOK_PRO", "DISCORD_WEBHOOK_PRO")

	v.SetDefault("export.max_data_points", 100000)
	v.SetDefault("export.output_dir", "exports")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.retention", "720h")
}

func setRetryDefaults(v *viper.Viper, prefix string) {
	v.SetDefault(prefix+".max_attempts", 3)
	v.SetDefault(prefix+".initial_delay", "2s")
	v.SetDefault(prefix+".multiplier", 2.0)
	v.SetDefault(prefix+".max_delay", "30s")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	for name, value := range map[string]int{
		"thresholds.breaking":              c.Thresholds.Breaking,
		"thresholds.digest":                c.Thresholds.Digest,
		"thresholds.pair_score":            c.Thresholds.PairScore,
		"thresholds.digest_pair_score_min": c.Thresholds.DigestPairScoreMin,
		"thresholds.impact_floor":          c.Thresholds.ImpactFloor,
	} {
		if value < 0 || value > 100 {
			return fmt.Errorf("%s must be within 0-100, got %d", name, value)
		}
	}
	if c.Dedupe.Similarity <= 0 || c.Dedupe.Similarity > 100 {
		return fmt.Errorf("dedupe.similarity must be within (0, 100]")
	}
	if c.Dedupe.TTL <= 0 {
		return fmt.Errorf("dedupe.ttl must be greater than zero")
	}

	s := c.Scheduler
	if s.Tick <= 0 {
		return fmt.Errorf("scheduler.tick must be greater than zero")
	}
	if s.BreakingInterval <= 0 {
		return fmt.Errorf("scheduler.breaking_interval must be greater than zero")
	}
	if s.MorningLookback <= 0 || s.NightLookback <= 0 {
		return fmt.Errorf("scheduler lookbacks must be greater than zero")
	}
	if s.BreakingBatch <= 0 || s.DigestBatch <= 0 || s.DigestLimit <= 0 {
		return fmt.Errorf("scheduler batch sizes and digest_limit must be greater than zero")
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return fmt.Errorf("scheduler.timezone %q: %w", s.Timezone, err)
	}
	if _, _, err := scheduler.ParseClock(s.MorningAt); err != nil {
		return fmt.Errorf("scheduler.morning_at: %w", err)
	}
	if _, _, err := scheduler.ParseClock(s.NightAt); err != nil {
		return fmt.Errorf("scheduler.night_at: %w", err)
	}

	for _, pair := range c.PairsAllowlist {
		if !isPairCode(pair) {
			return fmt.Errorf("pairs_allowlist entry %q is not a 6-letter pair code", pair)
		}
	}

	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}

	for _, ch := range c.Alerting.Channels {
		switch strings.ToLower(strings.TrimSpace(ch)) {
		case "discord":
			if c.Alerting.Discord.WebhookBeginner == "" && c.Alerting.Discord.WebhookPro == "" {
				return fmt.Errorf("alerting.discord 至少需要配置一个 webhook")
			}
		case "telegram":
			if c.Alerting.Telegram.BotToken == "" {
				return fmt.Errorf("alerting.telegram.bot_token 必须配置")
			}
			if c.Alerting.Telegram.ChatID == "" {
				return fmt.Errorf("alerting.telegram.chat_id 必须配置")
			}
		case "":
		default:
			return fmt.Errorf("unknown alerting channel %q", ch)
		}
	}
	return nil
}

// Location resolves the scheduler timezone. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}

func isPairCode(s string) bool {
	if len(s) != 6 {
		return false
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return true
}
