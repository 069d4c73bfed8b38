package factory

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/bubble/internal/config"
	"github.com/mcoot/bubble/internal/model"
	redisstorage "github.com/mcoot/bubble/internal/storage/redis"
)

func TestNewDefaultsToMemory(t *testing.T) {
	app, err := New(t.Context(), Config{})
	require.NoError(t, err)
	defer func() { _ = app.Close() }()

	assert.Equal(t, config.StorageTypeMemory, app.StorageType)

	p, err := app.Accounts.Register(t.Context(), "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, model.PlayerID("alice"), p.ID)
}

func TestNewSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bubble.db")

	app, err := New(t.Context(), Config{StorageType: config.StorageTypeSQLite, SQLitePath: path})
	require.NoError(t, err)

	_, err = app.Accounts.Register(t.Context(), "alice", "pw")
	require.NoError(t, err)
	require.NoError(t, app.Close())

	// Data survives a restart
	app, err = New(t.Context(), Config{StorageType: config.StorageTypeSQLite, SQLitePath: path})
	require.NoError(t, err)
	defer func() { _ = app.Close() }()

	_, err = app.Accounts.Verify(t.Context(), "alice", "pw")
	assert.NoError(t, err)
}

func TestNewRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	redisCfg := redisstorage.DefaultConfig()
	redisCfg.URL = "redis://" + mr.Addr()

	app, err := New(t.Context(), Config{StorageType: config.StorageTypeRedis, RedisConfig: &redisCfg})
	require.NoError(t, err)
	defer func() { _ = app.Close() }()

	_, err = app.Accounts.Authenticate(t.Context(), "alice", "pw")
	require.NoError(t, err)
	game, err := app.LobbyController.CreateGame(t.Context(), "alice")
	require.NoError(t, err)
	assert.True(t, mr.Exists("bubble:game:"+string(game.ID)))
}

func TestNewRejectsBadStorage(t *testing.T) {
	_, err := New(t.Context(), Config{StorageType: "postgres"})
	assert.Error(t, err)

	_, err = New(t.Context(), Config{StorageType: config.StorageTypeRedis})
	assert.Error(t, err)
}

func TestConfigFrom(t *testing.T) {
	cfg := config.Config{
		StorageType:  config.StorageTypeRedis,
		RedisURL:     "redis://cache:6379",
		RedisGameTTL: time.Hour,
		StoreTimeout: 2 * time.Second,
		MaxRetries:   3,
	}
	params := model.DefaultGameParams()
	params.InitialMoney = 42

	fc := ConfigFrom(cfg, params, nil)
	assert.Equal(t, "redis://cache:6379", fc.RedisConfig.URL)
	assert.Equal(t, time.Hour, fc.RedisConfig.GameTTL)
	assert.Equal(t, uint(3), fc.Retry.MaxAttempts)
	assert.Equal(t, 2*time.Second, fc.StoreTimeout)
	assert.Equal(t, int64(42), fc.GameParams.InitialMoney)
}
