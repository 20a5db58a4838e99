package config

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Source     SourceConfig     `yaml:"source"`
	Feed       FeedConfig       `yaml:"feed"`
	Sessions   SessionsConfig   `yaml:"sessions"`
	Database   DatabaseConfig   `yaml:"database"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	LogLevel   string           `yaml:"log_level"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	RequestIPHeader string        `yaml:"request_ip_header"`
	RateLimitPerSec float64       `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int           `yaml:"rate_limit_burst"`
	CacheTTLSeconds int           `yaml:"cache_ttl_seconds"`
	CacheTTL        time.Duration `yaml:"-"` // Ignored by YAML parser
}

// SourceConfig describes the upstream resource manager API.
type SourceConfig struct {
	BaseURL        string            `yaml:"base_url"`
	Headers        map[string]string `yaml:"headers"`
	Payload        map[string]any    `yaml:"payload"`
	PageSize       int               `yaml:"page_size"`
	HTTPProxy      string            `yaml:"http_proxy"`
	Timezone       string            `yaml:"timezone"`
	TimeoutSeconds int               `yaml:"timeout_seconds"`
	Timeout        time.Duration     `yaml:"-"`
}

// FeedConfig holds the configuration of the live change feed.
type FeedConfig struct {
	PollEnabled         bool          `yaml:"poll_enabled"`
	PollIntervalSeconds int           `yaml:"poll_interval_seconds"`
	PollInterval        time.Duration `yaml:"-"`
	WebhookToken        string        `yaml:"webhook_token"`
}

// SessionsConfig controls data source sessions opened through the API.
type SessionsConfig struct {
	IdleTimeoutSeconds int           `yaml:"idle_timeout_seconds"`
	IdleTimeout        time.Duration `yaml:"-"`
	UpdateBuffer       int           `yaml:"update_buffer"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"`
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}
	cfg.Server.CacheTTL = time.Duration(cfg.Server.CacheTTLSeconds) * time.Second

	if cfg.Source.PageSize <= 0 {
		cfg.Source.PageSize = 200
	}
	if cfg.Source.TimeoutSeconds <= 0 {
		cfg.Source.TimeoutSeconds = 30
	}
	cfg.Source.Timeout = time.Duration(cfg.Source.TimeoutSeconds) * time.Second
	if cfg.Source.Timezone == "" {
		cfg.Source.Timezone = "UTC"
	}

	if cfg.Feed.PollIntervalSeconds <= 0 {
		cfg.Feed.PollIntervalSeconds = 60
	}
	cfg.Feed.PollInterval = time.Duration(cfg.Feed.PollIntervalSeconds) * time.Second

	if cfg.Sessions.IdleTimeoutSeconds <= 0 {
		cfg.Sessions.IdleTimeoutSeconds = 600
	}
	cfg.Sessions.IdleTimeout = time.Duration(cfg.Sessions.IdleTimeoutSeconds) * time.Second
	if cfg.Sessions.UpdateBuffer <= 0 {
		cfg.Sessions.UpdateBuffer = 256
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		logrus.Warn("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}
