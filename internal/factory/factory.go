package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mcoot/bubble/internal/config"
	"github.com/mcoot/bubble/internal/dependencies/clock"
	"github.com/mcoot/bubble/internal/dependencies/random"
	"github.com/mcoot/bubble/internal/model"
	"github.com/mcoot/bubble/internal/services/accounts"
	"github.com/mcoot/bubble/internal/services/lobby"
	"github.com/mcoot/bubble/internal/services/session"
	"github.com/mcoot/bubble/internal/services/turn"
	"github.com/mcoot/bubble/internal/storage"
	"github.com/mcoot/bubble/internal/storage/memory"
	redisstorage "github.com/mcoot/bubble/internal/storage/redis"
	"github.com/mcoot/bubble/internal/storage/sqlite"
)

// App contains all wired application components
type App struct {
	// Storage is the bounded store every service talks to
	Storage     storage.Storage
	StorageType string

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Accounts        *accounts.Service
	LobbyController *lobby.Controller
	Launcher        *session.Launcher
	Engine          *turn.Engine

	closer io.Closer
}

// Close releases the storage backend
func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis" or "sqlite")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// SQLitePath is the database file (required if StorageType is "sqlite")
	SQLitePath string
	// StoreTimeout bounds each store call; zero uses storage.DefaultCallTimeout
	StoreTimeout time.Duration
	// Retry bounds optimistic-write retries; zero uses storage.DefaultRetryConfig()
	Retry storage.RetryConfig
	// GameParams overrides the default game rules (optional)
	GameParams *model.GameParams
	// BcryptCost overrides the password hashing cost (optional)
	BcryptCost int
}

// ConfigFrom maps the server configuration onto factory settings
func ConfigFrom(cfg config.Config, params model.GameParams, logger *slog.Logger) Config {
	redisCfg := redisstorage.DefaultConfig()
	redisCfg.URL = cfg.RedisURL
	redisCfg.GameTTL = cfg.RedisGameTTL

	retry := storage.DefaultRetryConfig()
	retry.MaxAttempts = cfg.MaxRetries

	return Config{
		Logger:       logger,
		StorageType:  cfg.StorageType,
		RedisConfig:  &redisCfg,
		SQLitePath:   cfg.SQLitePath,
		StoreTimeout: cfg.StoreTimeout,
		Retry:        retry,
		GameParams:   &params,
	}
}

// New creates a new application with all dependencies wired
func New(ctx context.Context, cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var (
		store  storage.Storage
		closer io.Closer
	)
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = config.StorageTypeMemory
	}

	switch storageType {
	case config.StorageTypeMemory:
		store = memory.New()
	case config.StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store, closer = redisStore, redisStore
	case config.StorageTypeSQLite:
		sqliteStore, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		store, closer = sqliteStore, sqliteStore
	default:
		return nil, fmt.Errorf("invalid StorageType %q: must be 'memory', 'redis' or 'sqlite'", storageType)
	}

	params := model.DefaultGameParams()
	if cfg.GameParams != nil {
		params = *cfg.GameParams
	}

	app := newWithDependencies(store, clock.New(), random.New(), params, cfg, logger)
	app.StorageType = storageType
	app.closer = closer

	logger.Info("application wired",
		slog.String("storage", storageType),
		slog.Duration("store_timeout", cfg.StoreTimeout),
		slog.Uint64("max_attempts", uint64(retryConfig(cfg).MaxAttempts)),
	)
	return app, nil
}

func retryConfig(cfg Config) storage.RetryConfig {
	if cfg.Retry.MaxAttempts == 0 {
		return storage.DefaultRetryConfig()
	}
	return cfg.Retry
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, params model.GameParams, cfg Config, logger *slog.Logger) *App {
	timeout := cfg.StoreTimeout
	if timeout <= 0 {
		timeout = storage.DefaultCallTimeout
	}
	bounded := storage.NewBounded(store, timeout)

	app := &App{
		Storage: bounded,
		Clock:   clk,
		Random:  rnd,
	}
	retry := retryConfig(cfg)

	accountsCfg := accounts.DefaultConfig()
	accountsCfg.Retry = retry
	if cfg.BcryptCost > 0 {
		accountsCfg.BcryptCost = cfg.BcryptCost
	}

	lobbyCfg := lobby.DefaultConfig()
	lobbyCfg.Retry = retry
	lobbyCfg.Params = params

	// Create services
	app.Accounts = accounts.New(bounded, clk, logger, accountsCfg)
	app.LobbyController = lobby.NewController(bounded, clk, rnd, logger, lobbyCfg)
	app.Launcher = session.NewLauncher(bounded, clk, logger, params, retry)
	app.Engine = turn.NewEngine(bounded, clk, logger, params, retry)

	return app
}
