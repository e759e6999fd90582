package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "sparkier.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "SPARKIER_PORT")
	setString(&cfg.Server.CORSOrigin, "SPARKIER_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "SPARKIER_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "SPARKIER_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "SPARKIER_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "SPARKIER_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "SPARKIER_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.SMTP.Host, "SPARKIER_SMTP_HOST")
	setInt(&cfg.SMTP.Port, "SPARKIER_SMTP_PORT")
	setString(&cfg.SMTP.From, "SPARKIER_SMTP_FROM")
	setString(&cfg.SMTP.Password, "SPARKIER_SMTP_PASSWORD")
	setString(&cfg.Slack.WebhookURL, "SPARKIER_SLACK_WEBHOOK_URL")
	setBool(&cfg.Auth.Enabled, "SPARKIER_AUTH_ENABLED")
	setString(&cfg.Auth.JWTSecret, "SPARKIER_JWT_SECRET")
	setDuration(&cfg.Auth.AccessTokenExpiry, "SPARKIER_ACCESS_TOKEN_EXPIRY")
	setDuration(&cfg.Auth.RefreshTokenExpiry, "SPARKIER_REFRESH_TOKEN_EXPIRY")
	setInt(&cfg.Auth.BcryptCost, "SPARKIER_BCRYPT_COST")
	setString(&cfg.Logging.Level, "SPARKIER_LOG_LEVEL")
	setString(&cfg.Logging.Service, "SPARKIER_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "SPARKIER_LOG_ASYNC")
	setInt(&cfg.Breaker.MaxFailures, "SPARKIER_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "SPARKIER_BREAKER_TIMEOUT")
	setFloat64(&cfg.Rate.RequestsPerSecond, "SPARKIER_RATE_RPS")
	setInt(&cfg.Rate.Burst, "SPARKIER_RATE_BURST")
	setDuration(&cfg.Rate.CleanupInterval, "SPARKIER_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "SPARKIER_RATE_MAX_IDLE_TIME")
	setInt64(&cfg.Cache.L1MaxSizeMB, "SPARKIER_CACHE_L1_SIZE_MB")
	setDuration(&cfg.Cache.CatalogTTL, "SPARKIER_CACHE_CATALOG_TTL")
	setDuration(&cfg.Intake.IntentTTL, "SPARKIER_INTAKE_INTENT_TTL")
	setString(&cfg.Intake.DemoConsultantID, "SPARKIER_DEMO_CONSULTANT_ID")
	setString(&cfg.Idempotency.Bucket, "SPARKIER_IDEMPOTENCY_BUCKET")
	setDuration(&cfg.Idempotency.TTL, "SPARKIER_IDEMPOTENCY_TTL")
	setBool(&cfg.Telemetry.Enabled, "SPARKIER_TELEMETRY_ENABLED")
	setString(&cfg.Telemetry.OTLPEndpoint, "SPARKIER_OTLP_ENDPOINT")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Auth.Enabled && cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required when auth is enabled")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	if cfg.Intake.IntentTTL <= 0 {
		return errors.New("intake.intent_ttl must be positive")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
