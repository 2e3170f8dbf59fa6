package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/horockey/devreg"
	"github.com/horockey/devreg/internal/config"
	"github.com/horockey/devreg/internal/repository/device_records/badger_device_records"
	"github.com/horockey/devreg/internal/repository/device_records/inmemory_device_records"
	"github.com/horockey/devreg/internal/repository/device_records/json_device_records"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "devreg",
	Short: "Cogmote device registry",
	Long: `devreg keeps the list of known cogmote devices and their liveness.

Examples:
  devreg serve --config ./devreg.yaml
  devreg add 192.168.1.20
  devreg discover 192.168.1.20 192.168.1.21 192.168.1.22
  devreg list`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to yaml config (default: built-in defaults)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	reg    *devreg.Registry
	close  func()
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if flag := cmd.Flags().Lookup("log-level"); flag != nil && flag.Changed {
		cfg.Logging.Level = logLevel
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("validating log level: %w", err)
		}
	}

	logger := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).
		Level(cfg.LogLevel()).
		With().
		Timestamp().
		Str("scope", "devreg").
		Logger()

	store, closeStore, err := newStore(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	reg, err := devreg.NewRegistry(
		devreg.WithDataDir(cfg.DataDir),
		devreg.WithProbePort(cfg.Probe.Port),
		devreg.WithProbeTimeout(cfg.Probe.Timeout),
		devreg.WithConcurrency(cfg.Probe.Concurrency),
		devreg.WithHTTPAddr(cfg.HTTP.Addr),
		devreg.WithAPIKey(cfg.HTTP.APIKey),
		devreg.WithLogger(logger),
		devreg.WithStore(store),
	)
	if err != nil {
		closeStore()
		return nil, fmt.Errorf("creating registry: %w", err)
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		reg:    reg,
		close:  closeStore,
	}, nil
}

func newStore(cfg *config.Config, logger zerolog.Logger) (devreg.Store, func(), error) {
	switch cfg.Store.Backend {
	case config.StoreBadger:
		storeLogger := logger.With().Str("subscope", "badger_store").Logger()

		if err := os.MkdirAll(cfg.BadgerDir(), 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating badger dir: %w", err)
		}

		db, err := badger_device_records.Open(cfg.BadgerDir(), storeLogger)
		if err != nil {
			return nil, nil, fmt.Errorf("opening badger db: %w", err)
		}

		return badger_device_records.New(db, storeLogger), func() {
			if err := db.Close(); err != nil {
				storeLogger.
					Error().
					Err(fmt.Errorf("closing badger db: %w", err)).
					Send()
			}
		}, nil

	case config.StoreMemory:
		return inmemory_device_records.New(), func() {}, nil

	default:
		return json_device_records.New(
			cfg.DataDir,
			logger.With().Str("subscope", "json_store").Logger(),
		), func() {}, nil
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}
