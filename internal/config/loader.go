package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "accessdesk.yaml"

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
	setString(&cfg.Server.Port, "ACCESSDESK_PORT")
	setString(&cfg.Server.CORSOrigin, "ACCESSDESK_CORS_ORIGIN")
	setString(&cfg.Logging.Level, "ACCESSDESK_LOG_LEVEL")
	setString(&cfg.Logging.Service, "ACCESSDESK_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "ACCESSDESK_LOG_ASYNC")

	// Remote access API
	setString(&cfg.Remote.BaseURL, "ACCESSDESK_REMOTE_URL")
	setDuration(&cfg.Remote.Timeout, "ACCESSDESK_REMOTE_TIMEOUT")
	setInt(&cfg.Remote.MaxConcurrent, "ACCESSDESK_REMOTE_MAX_CONCURRENT")

	// Embedded backend
	setBool(&cfg.Backend.Embedded, "ACCESSDESK_BACKEND_EMBEDDED")
	setFloat64(&cfg.Backend.FailureRate, "ACCESSDESK_BACKEND_FAILURE_RATE")
	setDuration(&cfg.Backend.Latency, "ACCESSDESK_BACKEND_LATENCY")
	setDuration(&cfg.Backend.LoadLatency, "ACCESSDESK_BACKEND_LOAD_LATENCY")
	setInt(&cfg.Backend.RosterSize, "ACCESSDESK_BACKEND_ROSTER_SIZE")
	setUint64(&cfg.Backend.Seed, "ACCESSDESK_BACKEND_SEED")

	// Console
	setInt(&cfg.Console.PageSize, "ACCESSDESK_PAGE_SIZE")
	setString(&cfg.Console.CurrentUserLogin, "ACCESSDESK_USER_LOGIN")
	setDuration(&cfg.Console.ReloadDelay, "ACCESSDESK_RELOAD_DELAY")
	setDuration(&cfg.Tracker.ToggleTimeout, "ACCESSDESK_TOGGLE_TIMEOUT")

	// Audit
	setString(&cfg.Audit.Backend, "ACCESSDESK_AUDIT_BACKEND")
	setString(&cfg.Audit.Key, "ACCESSDESK_AUDIT_KEY")
	setString(&cfg.Audit.FilePath, "ACCESSDESK_AUDIT_FILE")

	// Cache
	setInt64(&cfg.Cache.L1MaxSizeMB, "ACCESSDESK_CACHE_L1_SIZE_MB")
	setString(&cfg.Cache.L2Bucket, "ACCESSDESK_CACHE_L2_BUCKET")
	setDuration(&cfg.Cache.L2TTL, "ACCESSDESK_CACHE_L2_TTL")

	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "ACCESSDESK_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "ACCESSDESK_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "ACCESSDESK_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "ACCESSDESK_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "ACCESSDESK_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.NATS.Subject, "ACCESSDESK_NATS_SUBJECT")
	setInt(&cfg.Breaker.MaxFailures, "ACCESSDESK_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "ACCESSDESK_BREAKER_TIMEOUT")
	setFloat64(&cfg.Rate.RequestsPerSecond, "ACCESSDESK_RATE_RPS")
	setInt(&cfg.Rate.Burst, "ACCESSDESK_RATE_BURST")
	setDuration(&cfg.Rate.CleanupInterval, "ACCESSDESK_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "ACCESSDESK_RATE_MAX_IDLE_TIME")

	// Telemetry
	setBool(&cfg.Telemetry.Enabled, "ACCESSDESK_OTEL_ENABLED")
	setString(&cfg.Telemetry.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.Telemetry.Insecure, "ACCESSDESK_OTEL_INSECURE")
	setFloat64(&cfg.Telemetry.SampleRatio, "ACCESSDESK_OTEL_SAMPLE_RATIO")

	// Notifications
	setString(&cfg.Notify.SlackWebhookURL, "ACCESSDESK_SLACK_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Levels, "ACCESSDESK_NOTIFY_LEVELS")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Remote.BaseURL == "" && !cfg.Backend.Embedded {
		return errors.New("remote.base_url is required when backend.embedded is false")
	}
	if cfg.Remote.MaxConcurrent < 1 {
		return errors.New("remote.max_concurrent must be >= 1")
	}
	if cfg.Backend.FailureRate < 0 || cfg.Backend.FailureRate > 1 {
		return errors.New("backend.failure_rate must be between 0 and 1")
	}
	if cfg.Console.PageSize < 1 {
		return errors.New("console.page_size must be >= 1")
	}
	if cfg.Console.CurrentUserLogin == "" {
		return errors.New("console.current_user_login is required")
	}
	if cfg.Audit.Key == "" {
		return errors.New("audit.key is required")
	}
	switch cfg.Audit.Backend {
	case "memory", "ristretto":
	case "file":
		if cfg.Audit.FilePath == "" {
			return errors.New("audit.file_path is required for the file backend")
		}
	case "natskv", "tiered":
		if cfg.NATS.URL == "" {
			return fmt.Errorf("nats.url is required for the %s audit backend", cfg.Audit.Backend)
		}
	case "postgres":
		if cfg.Postgres.DSN == "" {
			return errors.New("postgres.dsn is required for the postgres audit backend")
		}
		if cfg.Postgres.MaxConns < 1 {
			return errors.New("postgres.max_conns must be >= 1")
		}
	default:
		return fmt.Errorf("audit.backend %q is not supported", cfg.Audit.Backend)
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
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

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
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

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		*dst = out
	}
}
