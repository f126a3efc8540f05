package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	TelegramToken    string `yaml:"telegram_token"`
	WebhookPublicURL string `yaml:"webhook_public_url"`
	OpenAIKey        string `yaml:"openai_api_key"`
	Port             string `yaml:"port"`
	DBPath           string `yaml:"db_path"`
	LogLevel         string `yaml:"log_level"`

	Dashboard struct {
		URL   string `yaml:"url"`
		Token string `yaml:"token"`
	} `yaml:"dashboard"`

	Charts struct {
		CacheTTL         time.Duration `yaml:"cache_ttl"`
		DefaultBenchmark string        `yaml:"default_benchmark"`
	} `yaml:"charts"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Digest struct {
		Cron        string   `yaml:"cron"`
		ChatID      int64    `yaml:"chat_id"`
		Instruments []string `yaml:"instruments"`
	} `yaml:"digest"`
}

func defaults() *Config {
	cfg := &Config{Port: "9095", DBPath: "/app/data/chat.db", LogLevel: "info"}
	cfg.Charts.CacheTTL = 60 * time.Second
	return cfg
}

// Load reads an optional .env file and an optional YAML file (CONFIG_PATH), then applies
// environment overrides. Environment always wins.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg := defaults()
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := func(k string, dst *string) {
		if v := os.Getenv(k); v != "" {
			*dst = v
		}
	}
	str("TELEGRAM_BOT_TOKEN", &c.TelegramToken)
	str("WEBHOOK_PUBLIC_URL", &c.WebhookPublicURL)
	str("OPENAI_API_KEY", &c.OpenAIKey)
	str("PORT", &c.Port)
	str("DB_PATH", &c.DBPath)
	str("LOG_LEVEL", &c.LogLevel)
	str("DASHBOARD_API_URL", &c.Dashboard.URL)
	str("DASHBOARD_API_TOKEN", &c.Dashboard.Token)
	str("DEFAULT_BENCHMARK", &c.Charts.DefaultBenchmark)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	str("DIGEST_CRON", &c.Digest.Cron)

	if v := os.Getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REDIS_DB: %w", err)
		}
		c.Redis.DB = n
	}
	if v := os.Getenv("CHART_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CHART_CACHE_TTL: %w", err)
		}
		c.Charts.CacheTTL = d
	}
	if v := os.Getenv("DIGEST_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("DIGEST_CHAT_ID: %w", err)
		}
		c.Digest.ChatID = id
	}
	if v := os.Getenv("DIGEST_INSTRUMENTS"); v != "" {
		c.Digest.Instruments = splitList(v)
	}
	return nil
}

// Validate reports every missing required setting at once.
func (c *Config) Validate() error {
	var missing []string
	if c.TelegramToken == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if c.WebhookPublicURL == "" {
		missing = append(missing, "WEBHOOK_PUBLIC_URL")
	}
	if c.Dashboard.URL == "" {
		missing = append(missing, "DASHBOARD_API_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing env %s", strings.Join(missing, ", "))
	}
	if c.Charts.CacheTTL < 0 {
		return errors.New("chart cache ttl must not be negative")
	}
	if c.Digest.Cron != "" && c.Digest.ChatID == 0 {
		return errors.New("DIGEST_CRON is set but DIGEST_CHAT_ID is not")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, f := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
		out = append(out, strings.TrimSpace(f))
	}
	return out
}
