package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const (
	StoreJSON   = "json"
	StoreBadger = "badger"
	StoreMemory = "memory"
)

// Config is the root configuration of devreg binary.
// Loaded from YAML, then overridden by DEVREG_* environment variables.
type Config struct {
	DataDir string        `yaml:"data_dir"`
	Store   StoreConfig   `yaml:"store"`
	Probe   ProbeConfig   `yaml:"probe"`
	HTTP    HTTPConfig    `yaml:"http"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

type StoreConfig struct {
	Backend string `yaml:"backend"`
	// Badger database dir. Defaults to <data_dir>/cogmote/badger.
	BadgerDir string `yaml:"badger_dir"`
}

type ProbeConfig struct {
	Port        int           `yaml:"port"`
	Timeout     time.Duration `yaml:"timeout"`
	Concurrency int           `yaml:"concurrency"`
}

type HTTPConfig struct {
	Addr   string `yaml:"addr"`
	APIKey string `yaml:"api_key"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads config from path. Empty path means defaults only.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func Default() *Config {
	dataDir, err := os.UserConfigDir()
	if err != nil {
		dataDir = "."
	}

	return &Config{
		DataDir: dataDir,
		Store: StoreConfig{
			Backend: StoreJSON,
		},
		Probe: ProbeConfig{
			Port:    9012,
			Timeout: time.Second,
		},
		HTTP: HTTPConfig{
			Addr: "127.0.0.1:9013",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    "127.0.0.1:9014",
		},
		Logging: LoggingConfig{
			Level: zerolog.LevelInfoValue,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DEVREG_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("DEVREG_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("DEVREG_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("DEVREG_API_KEY"); v != "" {
		cfg.HTTP.APIKey = v
	}
	if v := os.Getenv("DEVREG_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func (c *Config) Validate() error {
	var errs []string

	if c.DataDir == "" {
		errs = append(errs, "data_dir is required")
	}

	switch c.Store.Backend {
	case StoreJSON, StoreBadger, StoreMemory:
	default:
		errs = append(errs, fmt.Sprintf("store.backend must be one of json, badger, memory, got %q", c.Store.Backend))
	}

	if c.Probe.Port < 1 || c.Probe.Port > 65535 {
		errs = append(errs, "probe.port must be between 1 and 65535")
	}
	if c.Probe.Timeout <= 0 {
		errs = append(errs, "probe.timeout must be positive")
	}
	if c.Probe.Concurrency < 0 {
		errs = append(errs, "probe.concurrency must not be negative")
	}

	if c.HTTP.Addr == "" {
		errs = append(errs, "http.addr is required")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errs = append(errs, "metrics.addr is required when metrics are enabled")
	}

	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Sprintf("logging.level: %s", err.Error()))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func (c *Config) BadgerDir() string {
	if c.Store.BadgerDir != "" {
		return c.Store.BadgerDir
	}
	return filepath.Join(c.DataDir, "cogmote", "badger")
}

func (c *Config) LogLevel() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.Logging.Level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
