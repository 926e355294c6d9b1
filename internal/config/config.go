// Package config provides configuration management for the trading
// application. Unknown keys are rejected at load time so typos fail
// fast instead of silently defaulting.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	apperrors "algo-trader/internal/errors"
	"algo-trader/internal/risk"
	"algo-trader/internal/sizing"
	"algo-trader/internal/strategy"
)

// Mode selects how the engine is driven.
const (
	ModeBacktest = "backtest"
	ModePaper    = "paper"
	ModeLive     = "live"
)

// Config holds all application configuration.
type Config struct {
	Mode       string          `mapstructure:"mode"`
	Symbol     string          `mapstructure:"symbol"`
	EquityBase float64         `mapstructure:"equity_base"`
	MaxTicks   int             `mapstructure:"max_ticks"`
	Strategy   strategy.Config `mapstructure:"strategy"`
	Sizing     sizing.Config   `mapstructure:"sizing"`
	Risk       risk.Config     `mapstructure:"risk"`
	Market     MarketConfig    `mapstructure:"market"`
	Ledger     LedgerConfig    `mapstructure:"ledger"`
	Output     OutputConfig    `mapstructure:"output"`
	Worker     WorkerConfig    `mapstructure:"worker"`
	Logging    LoggingConfig   `mapstructure:"logging"`
}

// MarketConfig holds market-data stream configuration.
type MarketConfig struct {
	WSURL              string  `mapstructure:"ws_url"`
	BackoffInitialSecs float64 `mapstructure:"backoff_initial_secs"`
	BackoffMaxSecs     float64 `mapstructure:"backoff_max_secs"`
	BackoffFactor      float64 `mapstructure:"backoff_factor"`
	JitterSecs         float64 `mapstructure:"jitter_secs"`
}

// LedgerConfig holds the durable order ledger configuration.
type LedgerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// OutputConfig holds run artifact configuration.
type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

// WorkerConfig holds job-queue worker transport configuration.
type WorkerConfig struct {
	RedisAddr       string `mapstructure:"redis_addr"`
	Queue           string `mapstructure:"queue"`
	ProgressChannel string `mapstructure:"progress_channel"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Console  bool   `mapstructure:"console"`
	File     bool   `mapstructure:"file"`
	FilePath string `mapstructure:"file_path"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/algo-trader"
	}
	return filepath.Join(home, ".config", "algo-trader")
}

// Default returns a config with workable defaults for a dry paper run.
func Default() *Config {
	return &Config{
		Mode:       ModePaper,
		Symbol:     "BTCUSDT",
		EquityBase: 10000,
		Market: MarketConfig{
			BackoffInitialSecs: 1,
			BackoffMaxSecs:     30,
			BackoffFactor:      2,
			JitterSecs:         0.2,
		},
		Ledger: LedgerConfig{
			Enabled: true,
			Path:    filepath.Join(DefaultConfigDir(), "state", "ledger.sqlite3"),
		},
		Worker: WorkerConfig{
			RedisAddr:       "localhost:6379",
			Queue:           "trader:jobs",
			ProgressChannel: "trader:progress",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
	}
}

// Load loads and validates configuration from a TOML file. Unknown
// keys are a hard error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := Default()
	if err := v.UnmarshalExact(cfg); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrConfigInvalid, "unmarshaling %s: %v", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks configuration ranges. It runs at load time so bad
// configuration aborts the run before any market data flows.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Mode) {
	case ModeBacktest, ModePaper, ModeLive:
	default:
		return apperrors.NewValidationError("mode", c.Mode, "must be backtest, paper or live")
	}
	if c.Symbol == "" {
		return apperrors.NewValidationError("symbol", c.Symbol, "must not be empty")
	}
	if c.EquityBase < 0 {
		return apperrors.NewValidationError("equity_base", c.EquityBase, "must not be negative")
	}
	if c.Risk.MaxPositionPct < 0 {
		return apperrors.NewValidationError("risk.max_position_pct", c.Risk.MaxPositionPct, "must not be negative")
	}
	if c.Risk.MaxDailyLossPct < 0 {
		return apperrors.NewValidationError("risk.max_daily_loss_pct", c.Risk.MaxDailyLossPct, "must not be negative")
	}
	if c.Market.BackoffInitialSecs <= 0 {
		return apperrors.NewValidationError("market.backoff_initial_secs", c.Market.BackoffInitialSecs, "must be positive")
	}
	if c.Market.BackoffMaxSecs < c.Market.BackoffInitialSecs {
		return apperrors.NewValidationError("market.backoff_max_secs", c.Market.BackoffMaxSecs, "must be >= backoff_initial_secs")
	}
	if c.Market.BackoffFactor < 1 {
		return apperrors.NewValidationError("market.backoff_factor", c.Market.BackoffFactor, "must be >= 1")
	}
	if c.Market.JitterSecs < 0 {
		return apperrors.NewValidationError("market.jitter_secs", c.Market.JitterSecs, "must not be negative")
	}
	if c.Ledger.Enabled && c.Ledger.Path == "" {
		return apperrors.NewValidationError("ledger.path", c.Ledger.Path, "required when ledger is enabled")
	}
	if c.MaxTicks < 0 {
		return apperrors.NewValidationError("max_ticks", c.MaxTicks, "must not be negative")
	}
	return nil
}
