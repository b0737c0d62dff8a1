// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (storage, scheduler, transports) via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/taibuivan/newswizard/internal/platform/validate"
)

// # Session Backends

const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// # Configuration Schema

// Config holds all runtime configuration for the News Wizard bot.
type Config struct {

	// Process settings
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Debug       bool   `env:"DEBUG"       envDefault:"false"`
	HealthPort  string `env:"HEALTH_PORT" envDefault:"8080"`

	// Bot API transport
	BotToken string `env:"TELEGRAM_BOT_TOKEN,required"`

	// MTProto application credentials used for the linked user accounts
	APIID   int    `env:"TELEGRAM_API_ID,required"`
	APIHash string `env:"TELEGRAM_API_HASH,required"`

	// Language model (code extraction, summaries, speech)
	OpenAIKey       string `env:"OPENAI_API_KEY,required"`
	OpenAIChatModel string `env:"OPENAI_CHAT_MODEL" envDefault:"gpt-4o-2024-08-06"`

	// Durable session storage
	SessionBackend string `env:"SESSION_BACKEND" envDefault:"file"`
	SessionDir     string `env:"SESSION_DIR"     envDefault:"users_sessions"`
	SessionSecret  string `env:"SESSION_SECRET"`
	RedisURL       string `env:"REDIS_URL"`
	DatabaseURL    string `env:"DATABASE_URL"`
	MigrationPath  string `env:"MIGRATION_PATH"  envDefault:"./data/migrations"`

	// Content resources
	LocaleDir    string `env:"LOCALE_DIR"`
	ResourcesDir string `env:"RESOURCES_DIR" envDefault:"common_res"`
	TmpDir       string `env:"TMP_DIR"       envDefault:"tmp"`

	// Daily digest schedule
	FireHour       int           `env:"DIGEST_FIRE_HOUR"        envDefault:"9"`
	FireMinute     int           `env:"DIGEST_FIRE_MINUTE"      envDefault:"0"`
	UTCOffsetHours int           `env:"DIGEST_UTC_OFFSET_HOURS" envDefault:"3"`
	Lookback       time.Duration `env:"DIGEST_LOOKBACK"         envDefault:"9h"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct and validates it.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Validate checks cross-field rules that struct tags cannot express.
func (c *Config) Validate() error {
	v := &validate.Validator{}

	v.Positive("TELEGRAM_API_ID", c.APIID).
		OneOf("SESSION_BACKEND", c.SessionBackend, BackendFile, BackendRedis, BackendPostgres).
		Range("DIGEST_FIRE_HOUR", c.FireHour, 0, 23).
		Range("DIGEST_FIRE_MINUTE", c.FireMinute, 0, 59).
		Range("DIGEST_UTC_OFFSET_HOURS", c.UTCOffsetHours, -12, 14).
		MinDuration("DIGEST_LOOKBACK", c.Lookback, time.Minute).
		Custom("SESSION_SECRET", c.SessionSecret != "" && len(c.SessionSecret) < 16, "Must be at least 16 characters")

	switch c.SessionBackend {
	case BackendFile:
		v.Required("SESSION_DIR", c.SessionDir)
	case BackendRedis:
		v.URL("REDIS_URL", c.RedisURL, "redis", "rediss")
	case BackendPostgres:
		v.URL("DATABASE_URL", c.DatabaseURL, "postgres", "postgresql")
	}

	return v.Err()
}

// Location returns the fixed-offset zone in which the digest fire time is evaluated.
func (c *Config) Location() *time.Location {
	return time.FixedZone(fmt.Sprintf("UTC%+d", c.UTCOffsetHours), c.UTCOffsetHours*3600)
}
