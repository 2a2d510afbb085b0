package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Config keeps runtime settings for the tracker.
type Config struct {
	DatabaseURL   string        `env:"DATABASE_URL" envDefault:"task_tracker.db"`
	HTTPAddr      string        `env:"HTTP_ADDR" envDefault:":8080"`
	TelegramToken string        `env:"TELEGRAM_TOKEN"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"15m"`
	SweepTimeout  time.Duration `env:"SWEEP_TIMEOUT" envDefault:"2m"`
	// SweepAt adds a daily HH:MM pass on top of the interval.
	SweepAt   string `env:"SWEEP_AT"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
	Timezone  string `env:"TIMEZONE" envDefault:"Local"`
}

// Load reads .env files when present, then environment variables with sane defaults.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env", ".env.local"}
	}
	if err := loadEnvFiles(envFiles); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, errors.Wrap(err, "parse env")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks values env parsing cannot.
func (c Config) Validate() error {
	if c.SweepInterval <= 0 {
		return errors.Errorf("SWEEP_INTERVAL must be positive, got %s", c.SweepInterval)
	}
	if c.SweepTimeout <= 0 {
		return errors.Errorf("SWEEP_TIMEOUT must be positive, got %s", c.SweepTimeout)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return errors.Errorf("LOG_FORMAT must be 'text' or 'json', got %q", c.LogFormat)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, errors.Wrapf(err, "load timezone %q", c.Timezone)
	}
	return loc, nil
}

func loadEnvFiles(files []string) error {
	existing := make([]string, 0, len(files))
	for _, file := range files {
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	// godotenv never overrides variables already set in the process.
	if err := godotenv.Load(existing...); err != nil {
		return errors.Wrap(err, "load env files")
	}
	return nil
}
