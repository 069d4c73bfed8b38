package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/mcoot/bubble/internal/model"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
	StorageTypeSQLite = "sqlite"
)

// Config is the server configuration read from BUBBLE_* environment variables
type Config struct {
	Host     string `env:"BUBBLE_HOST"`
	Port     int    `env:"BUBBLE_PORT" envDefault:"8080"`
	LogLevel string `env:"BUBBLE_LOG_LEVEL" envDefault:"info"`

	StorageType  string        `env:"BUBBLE_STORAGE_TYPE" envDefault:"memory"`
	RedisURL     string        `env:"BUBBLE_REDIS_URL" envDefault:"redis://localhost:6379"`
	RedisGameTTL time.Duration `env:"BUBBLE_REDIS_GAME_TTL" envDefault:"168h"`
	SQLitePath   string        `env:"BUBBLE_SQLITE_PATH" envDefault:"bubble.db"`

	// StoreTimeout bounds every individual store call
	StoreTimeout time.Duration `env:"BUBBLE_STORE_TIMEOUT" envDefault:"5s"`
	// MaxRetries bounds optimistic-write attempts per operation
	MaxRetries uint `env:"BUBBLE_MAX_RETRIES" envDefault:"5"`

	// GameParamsPath optionally points at a JSON file overriding the default game rules
	GameParamsPath string `env:"BUBBLE_GAME_PARAMS_PATH"`
}

// Load parses the configuration from the process environment
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration is usable
func (c Config) Validate() error {
	switch c.StorageType {
	case StorageTypeMemory, StorageTypeRedis, StorageTypeSQLite:
	default:
		return fmt.Errorf("invalid storage type %q: must be memory, redis or sqlite", c.StorageType)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("store timeout must be positive")
	}
	if c.MaxRetries == 0 {
		return fmt.Errorf("max retries must be at least 1")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel returns the configured log level
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// LoadGameParams returns the default game rules, overridden by the JSON file
// at path when one is given. Keys absent from the file keep their defaults.
func LoadGameParams(path string) (model.GameParams, error) {
	params := model.DefaultGameParams()
	if path == "" {
		return params, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return model.GameParams{}, fmt.Errorf("failed to read game params: %w", err)
	}
	if err := json.Unmarshal(data, &params); err != nil {
		return model.GameParams{}, fmt.Errorf("failed to unmarshal game params: %w", err)
	}
	if err := params.Validate(); err != nil {
		return model.GameParams{}, fmt.Errorf("invalid game params: %w", err)
	}
	return params, nil
}
