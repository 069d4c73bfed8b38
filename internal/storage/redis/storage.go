package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/bubble/internal/model"
	"github.com/mcoot/bubble/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface.
// Records are JSON documents; conditional writes use WATCH/MULTI on the
// record keys and compare the stored version before writing.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) CreatePlayer(ctx context.Context, player *model.Player) error {
	data, err := encodePlayer(player, 1)
	if err != nil {
		return err
	}

	ok, err := s.client.SetNX(ctx, playerKey(player.ID), data, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrPlayerExists
	}
	player.Version = 1
	return nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	data, err := s.client.Get(ctx, playerKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	var player model.Player
	if err := json.Unmarshal(data, &player); err != nil {
		return nil, corrupt(err)
	}
	return &player, nil
}

func (s *Storage) UpdatePlayer(ctx context.Context, player *model.Player) error {
	key := playerKey(player.ID)
	data, err := encodePlayer(player, player.Version+1)
	if err != nil {
		return err
	}

	err = s.watch(ctx, func(tx *redis.Tx) error {
		if err := checkVersion(ctx, tx, key, player.Version, model.ErrPlayerNotFound); err != nil {
			return err
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return err
	}
	player.Version++
	return nil
}

// Game operations

func (s *Storage) CreateGame(ctx context.Context, game *model.Game) error {
	data, err := encodeGame(game, 1)
	if err != nil {
		return err
	}

	ok, err := s.client.SetNX(ctx, gameKey(game.ID), data, s.cfg.GameTTL).Result()
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrGameExists
	}
	game.Version = 1
	return nil
}

func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	data, err := s.client.Get(ctx, gameKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrGameNotFound
		}
		return nil, err
	}
	return decodeGame(data)
}

func (s *Storage) UpdateGame(ctx context.Context, game *model.Game) error {
	key := gameKey(game.ID)
	data, err := encodeGame(game, game.Version+1)
	if err != nil {
		return err
	}

	err = s.watch(ctx, func(tx *redis.Tx) error {
		if err := checkVersion(ctx, tx, key, game.Version, model.ErrGameNotFound); err != nil {
			return err
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.cfg.GameTTL)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return err
	}
	game.Version++
	return nil
}

func (s *Storage) DeleteGame(ctx context.Context, game *model.Game) error {
	key := gameKey(game.ID)
	return s.watch(ctx, func(tx *redis.Tx) error {
		if err := checkVersion(ctx, tx, key, game.Version, model.ErrGameNotFound); err != nil {
			return err
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		return err
	}, key)
}

func (s *Storage) ScanGames(ctx context.Context, filter storage.GameFilter, cursor string, limit int) (*storage.ScanPage, error) {
	if limit <= 0 {
		limit = storage.DefaultScanPageSize
	}

	var from uint64
	if cursor != "" {
		var err error
		from, err = strconv.ParseUint(cursor, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid scan cursor %q: %w", cursor, err)
		}
	}

	keys, next, err := s.client.Scan(ctx, from, gameKeyPattern(), int64(limit)).Result()
	if err != nil {
		return nil, err
	}

	page := &storage.ScanPage{Games: []*model.Game{}}
	if next != 0 {
		page.NextCursor = strconv.FormatUint(next, 10)
	}
	if len(keys) == 0 {
		return page, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for _, val := range values {
		raw, ok := val.(string)
		if !ok {
			continue // Expired between SCAN and MGET
		}
		game, err := decodeGame([]byte(raw))
		if err != nil {
			return nil, err
		}
		if filter.Match(game) {
			page.Games = append(page.Games, game)
		}
	}
	return page, nil
}

func (s *Storage) UpdateGameAndPlayer(ctx context.Context, game *model.Game, player *model.Player) error {
	gKey := gameKey(game.ID)
	pKey := playerKey(player.ID)

	gameData, err := encodeGame(game, game.Version+1)
	if err != nil {
		return err
	}
	playerData, err := encodePlayer(player, player.Version+1)
	if err != nil {
		return err
	}

	err = s.watch(ctx, func(tx *redis.Tx) error {
		if err := checkVersion(ctx, tx, gKey, game.Version, model.ErrGameNotFound); err != nil {
			return err
		}
		if err := checkVersion(ctx, tx, pKey, player.Version, model.ErrPlayerNotFound); err != nil {
			return err
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, gKey, gameData, s.cfg.GameTTL)
			pipe.Set(ctx, pKey, playerData, 0)
			return nil
		})
		return err
	}, gKey, pKey)
	if err != nil {
		return err
	}
	game.Version++
	player.Version++
	return nil
}

func (s *Storage) CreateGameAndPlayer(ctx context.Context, game *model.Game, player *model.Player) error {
	gKey := gameKey(game.ID)
	pKey := playerKey(player.ID)

	gameData, err := encodeGame(game, 1)
	if err != nil {
		return err
	}
	playerData, err := encodePlayer(player, player.Version+1)
	if err != nil {
		return err
	}

	err = s.watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, gKey).Result()
		if err != nil {
			return err
		}
		if exists > 0 {
			return model.ErrGameExists
		}
		if err := checkVersion(ctx, tx, pKey, player.Version, model.ErrPlayerNotFound); err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, gKey, gameData, s.cfg.GameTTL)
			pipe.Set(ctx, pKey, playerData, 0)
			return nil
		})
		return err
	}, gKey, pKey)
	if err != nil {
		return err
	}
	game.Version = 1
	player.Version++
	return nil
}

// watch runs fn under WATCH on keys; a concurrent write to any of them aborts
// the transaction and surfaces as a version conflict
func (s *Storage) watch(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	err := s.client.Watch(ctx, fn, keys...)
	if errors.Is(err, redis.TxFailedErr) {
		return model.ErrVersionConflict
	}
	return err
}

// checkVersion compares the stored version of a document against the expected one
func checkVersion(ctx context.Context, tx *redis.Tx, key string, expected int64, notFound error) error {
	data, err := tx.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return notFound
		}
		return err
	}

	var doc struct {
		Version int64 `json:"version"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return corrupt(err)
	}
	if doc.Version != expected {
		return model.ErrVersionConflict
	}
	return nil
}

func encodePlayer(player *model.Player, version int64) ([]byte, error) {
	doc := *player
	doc.Version = version
	return json.Marshal(&doc)
}

func encodeGame(game *model.Game, version int64) ([]byte, error) {
	doc := *game
	doc.Version = version
	return json.Marshal(&doc)
}

func decodeGame(data []byte) (*model.Game, error) {
	var game model.Game
	if err := json.Unmarshal(data, &game); err != nil {
		return nil, corrupt(err)
	}
	return &game, nil
}

func corrupt(err error) error {
	return fmt.Errorf("%w: %w", model.ErrCorruptRecord, err)
}
