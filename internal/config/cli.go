package config

import (
	"flag"
	"fmt"
	"io"
)

// CLIFlags holds command-line overrides. Nil fields were not set.
type CLIFlags struct {
	ConfigPath   *string
	Port         *string
	LogLevel     *string
	RemoteURL    *string
	AuditBackend *string
	DSN          *string
	NatsURL      *string
}

// ParseFlags parses serve flags. Only flags present on the command line are
// returned as non-nil so they can be layered over YAML and ENV.
func ParseFlags(args []string) (CLIFlags, error) {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	configPath := fs.String("config", DefaultConfigFile, "path to YAML config")
	fs.StringVar(configPath, "c", DefaultConfigFile, "path to YAML config (shorthand)")
	port := fs.String("port", "", "HTTP listen port")
	fs.StringVar(port, "p", "", "HTTP listen port (shorthand)")
	logLevel := fs.String("log-level", "", "log level: debug, info, warn, error")
	remoteURL := fs.String("remote-url", "", "base URL of the employee access API")
	auditBackend := fs.String("audit-backend", "", "audit slot backend")
	dsn := fs.String("dsn", "", "PostgreSQL DSN")
	natsURL := fs.String("nats-url", "", "NATS server URL")

	if err := fs.Parse(args); err != nil {
		return CLIFlags{}, fmt.Errorf("parse flags: %w", err)
	}

	var out CLIFlags
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "config", "c":
			out.ConfigPath = configPath
		case "port", "p":
			out.Port = port
		case "log-level":
			out.LogLevel = logLevel
		case "remote-url":
			out.RemoteURL = remoteURL
		case "audit-backend":
			out.AuditBackend = auditBackend
		case "dsn":
			out.DSN = dsn
		case "nats-url":
			out.NatsURL = natsURL
		}
	})
	return out, nil
}

// LoadWithCLI loads config with the hierarchy defaults < YAML < ENV < CLI
// and returns the YAML path that was used.
func LoadWithCLI(flags CLIFlags) (*Config, string, error) {
	path := DefaultConfigFile
	if flags.ConfigPath != nil {
		path = *flags.ConfigPath
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, path); err != nil {
		return nil, path, fmt.Errorf("config yaml: %w", err)
	}
	loadEnv(&cfg)
	applyCLI(&cfg, flags)

	if err := validate(&cfg); err != nil {
		return nil, path, fmt.Errorf("config validate: %w", err)
	}
	return &cfg, path, nil
}

func applyCLI(cfg *Config, flags CLIFlags) {
	if flags.Port != nil {
		cfg.Server.Port = *flags.Port
	}
	if flags.LogLevel != nil {
		cfg.Logging.Level = *flags.LogLevel
	}
	if flags.RemoteURL != nil {
		cfg.Remote.BaseURL = *flags.RemoteURL
		cfg.Backend.Embedded = false
	}
	if flags.AuditBackend != nil {
		cfg.Audit.Backend = *flags.AuditBackend
	}
	if flags.DSN != nil {
		cfg.Postgres.DSN = *flags.DSN
	}
	if flags.NatsURL != nil {
		cfg.NATS.URL = *flags.NatsURL
	}
}
