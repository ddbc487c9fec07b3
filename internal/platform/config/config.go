package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	appName        = "pomo"
	configFileName = "config.yaml"

	StoreSQLite = "sqlite"
	StoreBolt   = "bolt"
	StoreVault  = "vault"
)

type Config struct {
	DataDir             string        `yaml:"-" env:"POMO_DATA_DIR"`
	DBPath              string        `yaml:"db_path" env:"POMO_DB_PATH"`
	Store               string        `yaml:"store" env:"POMO_STORE"`
	DefaultFocusMinutes int           `yaml:"default_focus_minutes" env:"POMO_FOCUS_MINUTES"`
	DefaultRestMinutes  int           `yaml:"default_rest_minutes" env:"POMO_REST_MINUTES"`
	PollInterval        time.Duration `yaml:"poll_interval" env:"POMO_POLL_INTERVAL"`
	GRPCAddr            string        `yaml:"grpc_addr" env:"POMO_GRPC_ADDR"`
	MetricsAddr         string        `yaml:"metrics_addr" env:"POMO_METRICS_ADDR"`
	Server              string        `yaml:"server" env:"POMO_SERVER"`
	LogLevel            string        `yaml:"log_level" env:"POMO_LOG_LEVEL"`
	LogFormat           string        `yaml:"log_format" env:"POMO_LOG_FORMAT"`
	OTelEndpoint        string        `yaml:"otel_endpoint" env:"POMO_OTEL_ENDPOINT"`
}

// Overrides holds command-line values; empty fields leave the loaded value alone.
type Overrides struct {
	DataDir  string
	Store    string
	Server   string
	LogLevel string
}

func Default(dataDir string) Config {
	return Config{
		DataDir:             dataDir,
		Store:               StoreSQLite,
		DefaultFocusMinutes: 25,
		DefaultRestMinutes:  5,
		PollInterval:        time.Second,
		GRPCAddr:            "127.0.0.1:7420",
		MetricsAddr:         "127.0.0.1:7421",
		LogLevel:            "info",
		LogFormat:           "console",
	}
}

// Load layers defaults, <data-dir>/config.yaml, POMO_* variables and overrides.
func Load(overrides Overrides) (Config, error) {
	dataDir, err := resolveDataDir(overrides.DataDir)
	if err != nil {
		return Config{}, err
	}
	cfg := Default(dataDir)

	raw, err := os.ReadFile(filepath.Join(dataDir, configFileName))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("read config file: %w", err)
	default:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config yaml: %w", err)
		}
	}

	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if overrides.DataDir != "" {
		cfg.DataDir = overrides.DataDir
	}
	if overrides.Store != "" {
		cfg.Store = overrides.Store
	}
	if overrides.Server != "" {
		cfg.Server = overrides.Server
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, appName+".db")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("data dir is required")
	}
	switch c.Store {
	case StoreSQLite, StoreBolt, StoreVault:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store)
	}
	if c.DefaultFocusMinutes <= 0 || c.DefaultRestMinutes <= 0 {
		return fmt.Errorf("default durations must be positive: focus=%d rest=%d", c.DefaultFocusMinutes, c.DefaultRestMinutes)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	return nil
}

// HooksDir is where hook manifests and binaries live.
func (c Config) HooksDir() string {
	return filepath.Join(c.DataDir, "hooks")
}

func resolveDataDir(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if fromEnv := os.Getenv("POMO_DATA_DIR"); fromEnv != "" {
		return fromEnv, nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(configDir, appName), nil
}
