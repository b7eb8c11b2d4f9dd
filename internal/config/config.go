// Package config reads process settings from the environment and builds the
// logger both binaries share.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pefman/w40k-challenge/internal/catalog"
)

type Config struct {
	Port          int    `env:"PORT" envDefault:"8080"`
	CatalogDir    string `env:"CATALOG_DIR"`
	SimsPerGambit int    `env:"SIMS_PER_GAMBIT" envDefault:"500"`
	// SimWorkers 0 means GOMAXPROCS.
	SimWorkers int    `env:"SIM_WORKERS"`
	SimSeed    int64  `env:"SIM_SEED"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	LogDev     bool   `env:"LOG_DEV"`
}

// Parse loads Config from environment variables.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.SimsPerGambit <= 0 {
		return Config{}, fmt.Errorf("parse env: SIMS_PER_GAMBIT must be positive, got %d", cfg.SimsPerGambit)
	}
	return cfg, nil
}

// Logger builds a console logger in development mode, JSON otherwise.
func (c Config) Logger() (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	if c.LogDev {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	return zc.Build()
}

// Catalog loads CatalogDir when set, the embedded catalogue otherwise.
func (c Config) Catalog(log *zap.Logger) (*catalog.Catalog, error) {
	if c.CatalogDir == "" {
		return catalog.Default()
	}
	var opts []catalog.Option
	if log != nil {
		opts = append(opts, catalog.WithLogger(log))
	}
	return catalog.LoadDir(c.CatalogDir, opts...)
}
