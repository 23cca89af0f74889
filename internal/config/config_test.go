package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if cfg.Thresholds.Breaking != 60 || cfg.Thresholds.Digest != 40 || cfg.Thresholds.PairScore != 50 {
		t.Fatalf("unexpected thresholds %+v", cfg.Thresholds)
	}
	if cfg.Thresholds.ImpactFloor != 20 {
		t.Fatalf("impact floor want 20, got %d", cfg.Thresholds.ImpactFloor)
	}
	if cfg.Dedupe.TTL != 24*time.Hour || cfg.Dedupe.Similarity != 85 {
		t.Fatalf("unexpected dedupe defaults %+v", cfg.Dedupe)
	}
	if cfg.Scheduler.BreakingInterval != 5*time.Minute || cfg.Scheduler.MorningAt != "06:00" || cfg.Scheduler.NightAt != "22:00" {
		t.Fatalf("unexpected scheduler defaults %+v", cfg.Scheduler)
	}
	if cfg.Scheduler.MorningLookback != 12*time.Hour || cfg.Scheduler.NightLookback != 16*time.Hour {
		t.Fatalf("unexpected lookbacks %+v", cfg.Scheduler)
	}
	if cfg.Location().String() != "Asia/Tokyo" {
		t.Fatalf("unexpected location %s", cfg.Location())
	}
	if cfg.Summarizer.Retry.MaxAttempts != 3 || cfg.Summarizer.Retry.Max != 30*time.Second {
		t.Fatalf("unexpected retry defaults %+v", cfg.Summarizer.Retry)
	}
	if cfg.Summarizer.Models["openai"] != "gpt-4o-mini" {
		t.Fatalf("unexpected models %v", cfg.Summarizer.Models)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := strings.Join([]string{
		"thresholds:",
		"  breaking: 70",
		"pairs_allowlist: [usdjpy, EURUSD]",
		"alerting:",
		"  channels: [discord]",
		"  discord:",
		"    webhook_beginner: https://discord.example/hook",
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("FXNEWS_SCHEDULER_MORNING_AT", "07:30")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Thresholds.Breaking != 70 {
		t.Fatalf("file value not applied: %d", cfg.Thresholds.Breaking)
	}
	if cfg.Scheduler.MorningAt != "07:30" {
		t.Fatalf("env override not applied: %s", cfg.Scheduler.MorningAt)
	}
	if len(cfg.PairsAllowlist) != 2 {
		t.Fatalf("unexpected allowlist %v", cfg.PairsAllowlist)
	}
}

func TestValidateRejects(t *testing.T) {
	base := func() Config {
		return Config{
			Thresholds: ThresholdsConfig{Breaking: 60, Digest: 40, PairScore: 50, ImpactFloor: 20},
			Dedupe:     DedupeConfig{TTL: time.Hour, Similarity: 85},
			Scheduler: SchedulerConfig{
				Timezone: "Asia/Tokyo", Tick: time.Minute, BreakingInterval: 5 * time.Minute,
				MorningAt: "06:00", NightAt: "22:00", MorningLookback: 12 * time.Hour, NightLookback: 16 * time.Hour,
				BreakingBatch: 5, DigestBatch: 20, DigestLimit: 10,
			},
			PairsAllowlist: []string{"USDJPY"},
			Export:         ExportConfig{MaxDataPoints: 10},
		}
	}
	if cfg := base(); cfg.Validate() != nil {
		t.Fatalf("base config should validate: %v", cfg.Validate())
	}

	cases := map[string]func(*Config){
		"threshold above 100": func(c *Config) { c.Thresholds.Breaking = 101 },
		"negative floor":      func(c *Config) { c.Thresholds.ImpactFloor = -1 },
		"bad clock":           func(c *Config) { c.Scheduler.NightAt = "25:00" },
		"bad timezone":        func(c *Config) { c.Scheduler.Timezone = "Mars/Olympus" },
		"zero interval":       func(c *Config) { c.Scheduler.BreakingInterval = 0 },
		"zero lookback":       func(c *Config) { c.Scheduler.MorningLookback = 0 },
		"short pair code":     func(c *Config) { c.PairsAllowlist = []string{"USDJP"} },
		"discord no webhook":  func(c *Config) { c.Alerting.Channels = []string{"discord"} },
		"telegram no chat": func(c *Config) {
			c.Alerting.Channels = []string{"telegram"}
			c.Alerting.Telegram.BotToken = "token"
		},
		"unknown channel": func(c *Config) { c.Alerting.Channels = []string{"pager"} },
	}
	for name, mutate := range cases {
		cfg := base()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}
