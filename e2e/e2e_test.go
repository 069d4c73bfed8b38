package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/bubble/internal/api"
	"github.com/mcoot/bubble/internal/cli"
	"github.com/mcoot/bubble/internal/config"
	"github.com/mcoot/bubble/internal/factory"
	"github.com/mcoot/bubble/internal/testutil"
)

// testServer is a real HTTP server wired the way cmd/server wires it
type testServer struct {
	url      string
	shutdown func()
}

func startTestServer(t *testing.T, cfg config.Config) *testServer {
	t.Helper()

	params, err := config.LoadGameParams(cfg.GameParamsPath)
	require.NoError(t, err)

	logger := testutil.NopLogger()
	app, err := factory.New(t.Context(), factory.ConfigFrom(cfg, params, logger))
	require.NoError(t, err)

	router := api.NewRouter(api.RouterConfig{
		Logger:          logger,
		Accounts:        app.Accounts,
		LobbyController: app.LobbyController,
		Launcher:        app.Launcher,
		Engine:          app.Engine,
		StorageType:     app.StorageType,
	})
	server := api.NewServer(router, api.DefaultServerConfig(), logger)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		if err := server.Serve(listener); err != nil {
			t.Logf("server error: %v", err)
		}
	}()

	ts := &testServer{
		url: "http://" + listener.Addr().String(),
		shutdown: func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(ctx)
			_ = app.Close()
		},
	}
	waitForServer(t, ts.url+"/api/v1/health")
	return ts
}

func waitForServer(t *testing.T, url string) {
	t.Helper()

	client := &http.Client{Timeout: 100 * time.Millisecond}
	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("server at %s did not become ready", url)
}

func baseConfig(t *testing.T) config.Config {
	t.Helper()

	paramsPath := filepath.Join(t.TempDir(), "params.json")
	require.NoError(t, os.WriteFile(paramsPath, []byte(`{"turns_per_year": 1, "years_per_game": 1}`), 0o600))

	return config.Config{
		StorageType:    config.StorageTypeMemory,
		StoreTimeout:   2 * time.Second,
		MaxRetries:     5,
		GameParamsPath: paramsPath,
	}
}

// runCLI executes the bubble CLI in-process against the server
func runCLI[T any](t *testing.T, ts *testServer, user string, args ...string) T {
	t.Helper()

	var out bytes.Buffer
	cmd := cli.NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--server", ts.url, "-o", "json", "-u", user, "-p", "pw-" + user}, args...))
	require.NoError(t, cmd.Execute(), out.String())

	var v T
	require.NoError(t, json.Unmarshal(out.Bytes(), &v), out.String())
	return v
}

func playFullGame(t *testing.T, ts *testServer) {
	t.Helper()

	health := runCLI[cli.HealthResult](t, ts, "anyone", "health")
	assert.Equal(t, "ok", health.Status)

	id := runCLI[cli.GameResult](t, ts, "alice", "game", "create").Game.ID
	runCLI[cli.GameResult](t, ts, "bob", "game", "join", id)
	started := runCLI[cli.GameResult](t, ts, "alice", "game", "start", id)
	require.Equal(t, "PLAYING", started.Game.Status)

	runCLI[cli.PlayResult](t, ts, "alice", "play", "build", id, "1,1", "residential", "2")
	runCLI[cli.PlayResult](t, ts, "alice", "play", "pass", id)
	runCLI[cli.PlayResult](t, ts, "bob", "play", "ask-loan", id, "500")
	runCLI[cli.PlayResult](t, ts, "bob", "play", "pay-loan", id, "200")
	final := runCLI[cli.PlayResult](t, ts, "bob", "play", "pass", id)
	assert.Equal(t, "FINISHED", final.Game.Status)
	assert.Equal(t, int64(300), final.Player.Debt)

	status := runCLI[cli.StatusResult](t, ts, "alice", "game", "status", id)
	require.Len(t, status.Players, 2)
	assert.Equal(t, int64(8000), status.Players[0].Money)
	assert.Equal(t, int64(2), status.Players[0].AccumulatedPoints)
}

func TestFullGameMemory(t *testing.T) {
	ts := startTestServer(t, baseConfig(t))
	defer ts.shutdown()

	playFullGame(t, ts)
}

func TestFullGameSQLite(t *testing.T) {
	cfg := baseConfig(t)
	cfg.StorageType = config.StorageTypeSQLite
	cfg.SQLitePath = filepath.Join(t.TempDir(), "bubble.db")

	ts := startTestServer(t, cfg)
	playFullGame(t, ts)
	ts.shutdown()

	// Accounts survive a restart
	ts = startTestServer(t, cfg)
	defer ts.shutdown()
	list := runCLI[cli.GameList](t, ts, "alice", "game", "list")
	assert.Empty(t, list.Games)
	created := runCLI[cli.GameResult](t, ts, "alice", "game", "create")
	assert.Equal(t, "alice", created.Game.Owner)
}

func TestFullGameRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := baseConfig(t)
	cfg.StorageType = config.StorageTypeRedis
	cfg.RedisURL = "redis://" + mr.Addr()
	cfg.RedisGameTTL = time.Hour

	ts := startTestServer(t, cfg)
	defer ts.shutdown()

	playFullGame(t, ts)
	assert.True(t, mr.Exists("bubble:player:alice"))
}
