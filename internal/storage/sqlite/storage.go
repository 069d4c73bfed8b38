// Package sqlite provides a SQLite-backed storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/mcoot/bubble/internal/model"
	"github.com/mcoot/bubble/internal/storage"
	"github.com/mcoot/bubble/internal/storage/sqlite/migrations"
)

// Storage persists players and games in SQLite. Each record is a JSON
// document next to the columns used for lookups and version checks.
type Storage struct {
	sqlDB *sql.DB
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Open opens a SQLite store and applies embedded migrations
func Open(ctx context.Context, path string) (*Storage, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single connection serializes writers
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Storage{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle
func (s *Storage) Close() error {
	return s.sqlDB.Close()
}

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Player operations

func (s *Storage) CreatePlayer(ctx context.Context, player *model.Player) error {
	data, err := encode(player)
	if err != nil {
		return err
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO players (player_id, version, data) VALUES (?, 1, ?)`,
		string(player.ID), data,
	)
	if isUniqueViolation(err) {
		return model.ErrPlayerExists
	}
	if err != nil {
		return err
	}
	player.Version = 1
	return nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	var (
		version int64
		data    string
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT version, data FROM players WHERE player_id = ?`, string(id),
	).Scan(&version, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrPlayerNotFound
	}
	if err != nil {
		return nil, err
	}

	var player model.Player
	if err := json.Unmarshal([]byte(data), &player); err != nil {
		return nil, corrupt(err)
	}
	player.Version = version
	return &player, nil
}

func (s *Storage) UpdatePlayer(ctx context.Context, player *model.Player) error {
	if err := updatePlayer(ctx, s.sqlDB, player); err != nil {
		return err
	}
	player.Version++
	return nil
}

// Game operations

func (s *Storage) CreateGame(ctx context.Context, game *model.Game) error {
	if err := insertGame(ctx, s.sqlDB, game); err != nil {
		return err
	}
	game.Version = 1
	return nil
}

func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	var (
		version int64
		data    string
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT version, data FROM games WHERE game_id = ?`, string(id),
	).Scan(&version, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrGameNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeGame(version, data)
}

func (s *Storage) UpdateGame(ctx context.Context, game *model.Game) error {
	if err := updateGame(ctx, s.sqlDB, game); err != nil {
		return err
	}
	game.Version++
	return nil
}

func (s *Storage) DeleteGame(ctx context.Context, game *model.Game) error {
	res, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM games WHERE game_id = ? AND version = ?`,
		string(game.ID), game.Version,
	)
	if err != nil {
		return err
	}
	return checkAffected(ctx, s.sqlDB, res, "games", "game_id", string(game.ID), model.ErrGameNotFound)
}

func (s *Storage) ScanGames(ctx context.Context, filter storage.GameFilter, cursor string, limit int) (*storage.ScanPage, error) {
	if limit <= 0 {
		limit = storage.DefaultScanPageSize
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT game_id, version, data FROM games WHERE game_id > ? ORDER BY game_id LIMIT ?`,
		cursor, limit,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	page := &storage.ScanPage{Games: []*model.Game{}}
	var (
		examined int
		lastID   string
	)
	for rows.Next() {
		var (
			version int64
			data    string
		)
		if err := rows.Scan(&lastID, &version, &data); err != nil {
			return nil, err
		}
		examined++

		game, err := decodeGame(version, data)
		if err != nil {
			return nil, err
		}
		if filter.Match(game) {
			page.Games = append(page.Games, game)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if examined == limit {
		page.NextCursor = lastID
	}
	return page, nil
}

func (s *Storage) UpdateGameAndPlayer(ctx context.Context, game *model.Game, player *model.Player) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := updateGame(ctx, tx, game); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := updatePlayer(ctx, tx, player); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	game.Version++
	player.Version++
	return nil
}

func (s *Storage) CreateGameAndPlayer(ctx context.Context, game *model.Game, player *model.Player) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := insertGame(ctx, tx, game); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := updatePlayer(ctx, tx, player); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	game.Version = 1
	player.Version++
	return nil
}

// Helpers

func insertGame(ctx context.Context, db execer, game *model.Game) error {
	next := *game
	next.Version = 1
	data, err := encode(&next)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO games (game_id, status, players, version, data) VALUES (?, ?, ?, 1, ?)`,
		string(game.ID), string(game.Status), game.Players, data,
	)
	if isUniqueViolation(err) {
		return model.ErrGameExists
	}
	return err
}

func updatePlayer(ctx context.Context, db execer, player *model.Player) error {
	next := *player
	next.Version++
	data, err := encode(&next)
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx,
		`UPDATE players SET version = version + 1, data = ? WHERE player_id = ? AND version = ?`,
		data, string(player.ID), player.Version,
	)
	if err != nil {
		return err
	}
	return checkAffected(ctx, db, res, "players", "player_id", string(player.ID), model.ErrPlayerNotFound)
}

func updateGame(ctx context.Context, db execer, game *model.Game) error {
	next := *game
	next.Version++
	data, err := encode(&next)
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx,
		`UPDATE games SET status = ?, players = ?, version = version + 1, data = ?
		 WHERE game_id = ? AND version = ?`,
		string(game.Status), game.Players, data, string(game.ID), game.Version,
	)
	if err != nil {
		return err
	}
	return checkAffected(ctx, db, res, "games", "game_id", string(game.ID), model.ErrGameNotFound)
}

// checkAffected turns a conditional write that matched no row into the right
// error: not found when the row is gone, a version conflict otherwise
func checkAffected(ctx context.Context, db execer, res sql.Result, table, idColumn, id string, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var found int
	err = db.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE "+idColumn+" = ?", id).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	if err != nil {
		return err
	}
	return model.ErrVersionConflict
}

func encode(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeGame(version int64, data string) (*model.Game, error) {
	var game model.Game
	if err := json.Unmarshal([]byte(data), &game); err != nil {
		return nil, corrupt(err)
	}
	game.Version = version
	return &game, nil
}

func corrupt(err error) error {
	return fmt.Errorf("%w: %w", model.ErrCorruptRecord, err)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
