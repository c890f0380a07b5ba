package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig is the bot identity and how updates are received.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	AdminID int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds is the getUpdates timeout; 0 means 10s.
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig is only read in webhook run mode.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig tunes core/logger. Empty values keep the logger defaults.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample" envconfig:"LOG_DEBUG_SAMPLE"`
	Dir         string `yaml:"dir" envconfig:"LOG_DIR"`
	BotFile     string `yaml:"bot_file" envconfig:"LOG_BOT_FILE"`
	// Profile is "prod" (default), "dev" or "debug"; the latter two default to kv output.
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

// SessionConfig controls how long abandoned conversations are kept in memory.
type SessionConfig struct {
	// TTL is the idle time after which a session is evicted; 0 -> DefaultSessionTTL.
	TTL time.Duration `yaml:"ttl" envconfig:"SESSION_TTL"`
	// SweepInterval is the janitor period; 0 -> DefaultSweepInterval.
	SweepInterval time.Duration `yaml:"sweep_interval" envconfig:"SESSION_SWEEP_INTERVAL"`
}

// Values of telegram.run_mode after Normalize.
const (
	RunModeWebhook  = "webhook"
	RunModeLongpoll = "longpoll"
)

// Update kinds accepted by rate_limit.exclude_updates.
const (
	UpdateCallback    = "callback"
	UpdateMessage     = "message"
	UpdateInlineQuery = "inline_query"
)

const (
	// DefaultSessionTTL bounds how long an untouched draft survives.
	DefaultSessionTTL = 30 * time.Minute
	// DefaultSweepInterval is how often expired sessions are collected.
	DefaultSweepInterval = time.Minute
)

// RateLimitConfig sets the per-user minimum gap between updates. ExcludeUpdates
// lists update kinds that bypass it: "callback", "message" or "inline_query".
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Config is the part of the configuration the core packages read.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Session   SessionConfig   `yaml:"session"`
}

// Load decodes and normalizes the config at path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Decode fills dst from the YAML file at path, then lets environment variables override it.
// App configs that embed Config use it to get the same rules.
func Decode(path string, dst interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", dst); err != nil {
		return fmt.Errorf("failed to process env: %w", err)
	}
	return nil
}

// Normalize validates cfg in place and fills defaults: run mode longpoll
// ("polling" is accepted as an alias), lowercase rate limit exclusions and the session timings.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	if cfg.Telegram.Token == "" {
		return errors.New("telegram token is required")
	}
	for _, step := range []func(*Config) error{normalizeRunMode, normalizeRateLimit, normalizeSession} {
		if err := step(cfg); err != nil {
			return err
		}
	}
	return nil
}

func normalizeRunMode(cfg *Config) error {
	mode := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	switch mode {
	case "", "polling":
		mode = RunModeLongpoll
	}

	switch mode {
	case RunModeWebhook:
		const suffix = " when telegram.run_mode is 'webhook'"
		switch {
		case strings.TrimSpace(cfg.Webhook.URL) == "":
			return errors.New("webhook.url is required" + suffix)
		case strings.TrimSpace(cfg.Webhook.Listen) == "":
			return errors.New("webhook.listen is required" + suffix)
		case cfg.Webhook.Port <= 0:
			return errors.New("webhook.port must be > 0" + suffix)
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return errors.New("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = mode
	return nil
}

func normalizeRateLimit(cfg *Config) error {
	for i, raw := range cfg.RateLimit.ExcludeUpdates {
		switch kind := strings.ToLower(strings.TrimSpace(raw)); kind {
		case "":
		case UpdateCallback, UpdateMessage, UpdateInlineQuery:
			cfg.RateLimit.ExcludeUpdates[i] = kind
		default:
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message, inline_query", raw)
		}
	}
	return nil
}

func normalizeSession(cfg *Config) error {
	s := &cfg.Session
	switch {
	case s.TTL < 0:
		return errors.New("session.ttl must be >= 0")
	case s.SweepInterval < 0:
		return errors.New("session.sweep_interval must be >= 0")
	}
	if s.TTL == 0 {
		s.TTL = DefaultSessionTTL
	}
	if s.SweepInterval == 0 {
		s.SweepInterval = DefaultSweepInterval
	}
	return nil
}
