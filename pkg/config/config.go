package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// Config holds the application configuration
type Config struct {
	Email EmailConfig `yaml:"email" json:"email" jsonschema:"required,description=Email delivery configuration"`

	Telegram TelegramConfig `yaml:"telegram" json:"telegram" jsonschema:"description=Optional telegram delivery, disabled when token is empty"`

	Schedule struct {
		Cron       string `yaml:"cron" json:"cron" jsonschema:"default=0 7 * * *,description=Cron spec for daemon mode"`
		RunOnStart bool   `yaml:"run_on_start" json:"run_on_start" jsonschema:"default=true,description=Run a full pass immediately when the daemon starts"`
	} `yaml:"schedule" json:"schedule" jsonschema:"description=Scheduler configuration"`

	Fetch struct {
		Timeout       time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=20s,description=Per-request HTTP timeout"`
		SourceTimeout time.Duration `yaml:"source_timeout" json:"source_timeout" jsonschema:"default=2m,description=Total time budget per source including detail pages"`
		MaxConcurrent int           `yaml:"max_concurrent" json:"max_concurrent" jsonschema:"default=4,description=Maximum sources fetched concurrently"`
		UserAgent     string        `yaml:"user_agent" json:"user_agent" jsonschema:"default=Tenderscope/1.0,description=User agent for HTTP requests"`
	} `yaml:"fetch" json:"fetch" jsonschema:"description=HTTP fetching configuration"`

	Keywords struct {
		Tier1 []string `yaml:"tier1" json:"tier1" jsonschema:"required,description=Required keywords, a posting must match at least one"`
		Tier2 []string `yaml:"tier2" json:"tier2" jsonschema:"description=Bonus keywords, highlighted in the digest but never required"`
	} `yaml:"keywords" json:"keywords" jsonschema:"required,description=Two-tier keyword taxonomy"`

	History struct {
		Path string `yaml:"path" json:"path" jsonschema:"default=seen_postings.json,description=JSON history file path"`
		DSN  string `yaml:"dsn" json:"dsn" jsonschema:"description=SQLite connection string, takes over from the JSON file when set"`
	} `yaml:"history" json:"history" jsonschema:"description=Seen-postings persistence"`

	Sources []SourceConfig `yaml:"sources" json:"sources" jsonschema:"description=Source list, replaces the built-in defaults when set"`

	Server struct {
		Listen  string        `yaml:"listen" json:"listen" jsonschema:"description=Status server listen address, server disabled when empty"`
		Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=HTTP server timeout"`
	} `yaml:"server" json:"server" jsonschema:"description=Optional status server"`
}

// EmailConfig holds email delivery settings
type EmailConfig struct {
	To      string `yaml:"to" json:"to" jsonschema:"required,description=Digest recipient address"`
	From    string `yaml:"from" json:"from" jsonschema:"default=tenderscope@localhost,description=Sender address"`
	Subject string `yaml:"subject" json:"subject" jsonschema:"default=Daily Tender & Consultancy Report,description=Digest mail subject"`
	SMTP    struct {
		Host     string `yaml:"host" json:"host" jsonschema:"default=localhost,description=SMTP server host"`
		Port     int    `yaml:"port" json:"port" jsonschema:"default=587,description=SMTP server port"`
		Username string `yaml:"username" json:"username" jsonschema:"description=SMTP username (can use environment variable)"`
		Password string `yaml:"password" json:"password" jsonschema:"description=SMTP password (can use environment variable)"`
		TLS      bool   `yaml:"tls" json:"tls" jsonschema:"default=false,description=Require TLS, otherwise opportunistic STARTTLS"`
	} `yaml:"smtp" json:"smtp" jsonschema:"description=SMTP transport configuration"`
}

// TelegramConfig holds optional telegram delivery settings
type TelegramConfig struct {
	Token  string `yaml:"token" json:"token" jsonschema:"description=Bot token (can use environment variable)"`
	ChatID int64  `yaml:"chat_id" json:"chat_id" jsonschema:"description=Destination chat id"`
}

// SourceConfig describes one source site
type SourceConfig struct {
	Name        string `yaml:"name" json:"name" jsonschema:"required,description=Display name, drives digest section headers and dedup attribution"`
	Type        string `yaml:"type" json:"type" jsonschema:"required,enum=undp-consultancies,enum=undp-procurement,enum=worldbank,enum=reliefweb-rss,description=Adapter type"`
	URL         string `yaml:"url" json:"url" jsonschema:"required,description=Listing page or feed URL"`
	Enabled     *bool  `yaml:"enabled" json:"enabled,omitempty" jsonschema:"default=true,description=Disable a source without removing it from the list"`
	DetailPages bool   `yaml:"detail_pages" json:"detail_pages" jsonschema:"default=false,description=Fetch detail pages so keyword matching sees the full body text"`
}

// IsEnabled reports whether the source participates in runs, default true
func (s SourceConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// set defaults for email
	if cfg.Email.From == "" {
		cfg.Email.From = "tenderscope@localhost"
	}
	if cfg.Email.Subject == "" {
		cfg.Email.Subject = "Daily Tender & Consultancy Report"
	}
	if cfg.Email.SMTP.Host == "" {
		cfg.Email.SMTP.Host = "localhost"
	}
	if cfg.Email.SMTP.Port == 0 {
		cfg.Email.SMTP.Port = 587
	}

	// set defaults for schedule
	if cfg.Schedule.Cron == "" {
		cfg.Schedule.Cron = "0 7 * * *"
	}

	// set defaults for fetch
	if cfg.Fetch.Timeout == 0 {
		cfg.Fetch.Timeout = 20 * time.Second
	}
	if cfg.Fetch.SourceTimeout == 0 {
		cfg.Fetch.SourceTimeout = 2 * time.Minute
	}
	if cfg.Fetch.MaxConcurrent == 0 {
		cfg.Fetch.MaxConcurrent = 4
	}
	if cfg.Fetch.UserAgent == "" {
		cfg.Fetch.UserAgent = "Tenderscope/1.0"
	}

	// set defaults for history
	if cfg.History.Path == "" && cfg.History.DSN == "" {
		cfg.History.Path = "seen_postings.json"
	}

	// set defaults for server
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = 30 * time.Second
	}

	// validate configuration
	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	if cfg.Email.To == "" {
		return fmt.Errorf("email.to is required")
	}
	if len(cfg.Keywords.Tier1) == 0 {
		return fmt.Errorf("keywords.tier1 must contain at least one keyword")
	}
	if cfg.Fetch.Timeout < time.Second {
		return fmt.Errorf("fetch.timeout must be at least 1s")
	}
	if cfg.Fetch.MaxConcurrent < 1 {
		return fmt.Errorf("fetch.max_concurrent must be positive")
	}
	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID == 0 {
		return fmt.Errorf("telegram.chat_id is required when telegram.token is set")
	}

	enabled := 0
	for i, s := range cfg.Sources {
		if s.Name == "" {
			return fmt.Errorf("sources[%d].name is required", i)
		}
		if s.Type == "" {
			return fmt.Errorf("sources[%d].type is required", i)
		}
		if s.URL == "" {
			return fmt.Errorf("sources[%d].url is required", i)
		}
		if s.IsEnabled() {
			enabled++
		}
	}
	if len(cfg.Sources) > 0 && enabled == 0 {
		return fmt.Errorf("at least one source must be enabled")
	}

	return nil
}
