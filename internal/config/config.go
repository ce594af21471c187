package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/couchcryptid/fire-risk-etl/internal/domain"
)

// Vegetation raster interpretations accepted by VEGETATION_KIND.
const (
	VegetationKindRisk = "risk"
	VegetationKindFuel = "fuel"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	DEMPath        string `env:"DEM_PATH" envDefault:"data_processed/raster/dem_clipped.asc"`
	VegetationPath string `env:"VEGETATION_PATH"`
	VegetationKind string `env:"VEGETATION_KIND" envDefault:"risk"`
	OutputDir      string `env:"OUTPUT_DIR" envDefault:"data_processed/raster"`
	OutputCompress bool   `env:"OUTPUT_COMPRESS" envDefault:"false"`

	WeightSlope      float64 `env:"RISK_WEIGHT_SLOPE" envDefault:"0.45"`
	WeightAspect     float64 `env:"RISK_WEIGHT_ASPECT" envDefault:"0.25"`
	WeightVegetation float64 `env:"RISK_WEIGHT_VEGETATION" envDefault:"0.30"`

	Workers int `env:"WORKERS" envDefault:"0"`

	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"json"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Run reporting. Each sink is disabled when its location is empty.
	LedgerPath        string        `env:"LEDGER_PATH"`
	KafkaBrokers      []string      `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaSummaryTopic string        `env:"KAFKA_SUMMARY_TOPIC" envDefault:"fire-risk-summaries"`
	PublishTimeout    time.Duration `env:"PUBLISH_TIMEOUT" envDefault:"5s"`
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.KafkaBrokers = cleanBrokers(cfg.KafkaBrokers)
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DEMPath == "" {
		return errors.New("DEM_PATH is required")
	}
	if c.OutputDir == "" {
		return errors.New("OUTPUT_DIR is required")
	}
	switch c.VegetationKind {
	case VegetationKindRisk, VegetationKindFuel:
	default:
		return fmt.Errorf("VEGETATION_KIND must be %q or %q, got %q", VegetationKindRisk, VegetationKindFuel, c.VegetationKind)
	}
	if c.Workers < 0 {
		return errors.New("WORKERS must not be negative")
	}
	if err := c.Weights().Validate(); err != nil {
		return fmt.Errorf("RISK_WEIGHT_SLOPE, RISK_WEIGHT_ASPECT, RISK_WEIGHT_VEGETATION: %w", err)
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("SHUTDOWN_TIMEOUT must be positive")
	}
	if c.PublishTimeout <= 0 {
		return errors.New("PUBLISH_TIMEOUT must be positive")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaSummaryTopic == "" {
		return errors.New("KAFKA_SUMMARY_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

// Weights returns the overlay weights.
func (c *Config) Weights() domain.Weights {
	return domain.Weights{
		Slope:      c.WeightSlope,
		Aspect:     c.WeightAspect,
		Vegetation: c.WeightVegetation,
	}
}

// PublishEnabled reports whether run summaries go to Kafka.
func (c *Config) PublishEnabled() bool { return len(c.KafkaBrokers) > 0 }

// LedgerEnabled reports whether runs are recorded in SQLite.
func (c *Config) LedgerEnabled() bool { return c.LedgerPath != "" }

func cleanBrokers(in []string) []string {
	var out []string
	for _, b := range in {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
