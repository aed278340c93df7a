// Package config loads daemon configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Source selects where PPG samples come from.
const (
	SourceSynthetic = "synthetic"
	SourceNATS      = "nats"
)

// Config holds all daemon settings.
type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	// Sampling
	Source         string        `env:"SOURCE" envDefault:"synthetic"`
	SampleInterval time.Duration `env:"SAMPLE_INTERVAL" envDefault:"33ms"`
	MaxSession     time.Duration `env:"MAX_SESSION" envDefault:"60s"`
	DefaultAge     int           `env:"DEFAULT_AGE" envDefault:"35"`

	// MQTT
	MQTTBroker string        `env:"MQTT_BROKER" envDefault:"tcp://localhost:1883"`
	Heartbeat  time.Duration `env:"HEARTBEAT" envDefault:"15m"`

	// NATS (used when SOURCE=nats)
	NATSURL     string `env:"NATS_URL" envDefault:"nats://127.0.0.1:4222"`
	NATSSubject string `env:"NATS_SUBJECT" envDefault:"ppg.wave"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads .env from the working directory (if present) and parses the
// environment into a Config. A missing .env file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that env tags cannot express.
func (c *Config) Validate() error {
	if c.Source != SourceSynthetic && c.Source != SourceNATS {
		return fmt.Errorf("invalid SOURCE %q (want %q or %q)", c.Source, SourceSynthetic, SourceNATS)
	}
	if c.SampleInterval <= 0 {
		return fmt.Errorf("SAMPLE_INTERVAL must be positive, got %v", c.SampleInterval)
	}
	if c.MaxSession <= 0 {
		return fmt.Errorf("MAX_SESSION must be positive, got %v", c.MaxSession)
	}
	if c.DefaultAge < 1 || c.DefaultAge > 120 {
		return fmt.Errorf("DEFAULT_AGE out of range: %d", c.DefaultAge)
	}
	if c.Heartbeat < 0 {
		return fmt.Errorf("HEARTBEAT must not be negative, got %v", c.Heartbeat)
	}
	return nil
}
