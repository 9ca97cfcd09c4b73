package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Environment string
	Host        string `toml:"host"`
	Port        int    `toml:"port"`

	// logging
	LogLevel    string `toml:"log_level"`
	LogsPath    string `toml:"logs_path"`
	LogToStdout bool   `toml:"log_to_stdout"`

	SentryEnabled bool `toml:"sentry_enabled"`

	// postgres
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresDBName string `toml:"postgres_db_name"`

	// redis
	RedisHost string `toml:"redis_host"`
	RedisPort string `toml:"redis_port"`

	// public site base url, used for QR code targets
	SiteBaseURL string `toml:"site_base_url"`

	// prometheus metrics server
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`

	// rate limits (requests per minute)
	LoginRateLimitAllowedPerMin   int `toml:"login_rate_limit_allowed_per_min"`
	ContactRateLimitAllowedPerMin int `toml:"contact_rate_limit_allowed_per_min"`
	// per-account sign-in cap, stricter than the per-IP login throttle
	LoginAccountAttemptsPerMin int `toml:"login_account_attempts_per_min"`

	// AllowAllWhenEmptyAllowList permits any authenticated principal to use the
	// admin area when no admin emails are configured. Off by default: an empty
	// allow-list locks the admin area down instead of opening it up.
	AllowAllWhenEmptyAllowList bool `toml:"allow_all_when_empty_allow_list"`
}

func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Environment)
	return env == "prod" || env == "production"
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	switch strings.ToLower(env) {
	case "dev", "development":
		return t.Development, nil
	case "prod", "production":
		return t.Production, nil
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
}

func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}

	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("config section for env %s is empty", env)
	}

	cfg.Environment = env
	return cfg, nil
}

// Secrets holds the env-provided values which never go into the TOML file.
type Secrets struct {
	AdminEmails   string `env:"KN_ADMIN_EMAILS"`
	RedisPassword string `env:"KN_REDIS_PASS"`
	SentryDSN     string `env:"SENTRY_DSN"`
	IPInfoAPIKey  string `env:"IP_INFO_API_KEY"`
}

func LoadSecrets(ctx context.Context) (*Secrets, error) {
	var s Secrets
	if err := envconfig.Process(ctx, &s); err != nil {
		return nil, fmt.Errorf("process env secrets: %w", err)
	}
	return &s, nil
}
