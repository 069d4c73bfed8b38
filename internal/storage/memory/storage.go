package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/mcoot/bubble/internal/model"
	"github.com/mcoot/bubble/internal/storage"
)

// Storage is an in-memory implementation of the storage interface.
// Records are copied on the way in and out so callers never share state.
type Storage struct {
	mu sync.RWMutex

	players map[model.PlayerID]*model.Player
	games   map[model.GameID]*model.Game
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		players: make(map[model.PlayerID]*model.Player),
		games:   make(map[model.GameID]*model.Game),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) CreatePlayer(ctx context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[player.ID]; ok {
		return model.ErrPlayerExists
	}
	player.Version = 1
	s.players[player.ID] = player.Clone()
	return nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	player, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return player.Clone(), nil
}

func (s *Storage) UpdatePlayer(ctx context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkPlayer(player); err != nil {
		return err
	}
	s.putPlayer(player)
	return nil
}

// Game operations

func (s *Storage) CreateGame(ctx context.Context, game *model.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[game.ID]; ok {
		return model.ErrGameExists
	}
	game.Version = 1
	s.games[game.ID] = game.Clone()
	return nil
}

func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	game, ok := s.games[id]
	if !ok {
		return nil, model.ErrGameNotFound
	}
	return game.Clone(), nil
}

func (s *Storage) UpdateGame(ctx context.Context, game *model.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkGame(game); err != nil {
		return err
	}
	s.putGame(game)
	return nil
}

func (s *Storage) DeleteGame(ctx context.Context, game *model.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkGame(game); err != nil {
		return err
	}
	delete(s.games, game.ID)
	return nil
}

func (s *Storage) ScanGames(ctx context.Context, filter storage.GameFilter, cursor string, limit int) (*storage.ScanPage, error) {
	if limit <= 0 {
		limit = storage.DefaultScanPageSize
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]model.GameID, 0, len(s.games))
	for id := range s.games {
		if cursor == "" || string(id) > cursor {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	page := &storage.ScanPage{Games: []*model.Game{}}
	if len(ids) > limit {
		ids = ids[:limit]
		page.NextCursor = string(ids[len(ids)-1])
	}
	for _, id := range ids {
		if game := s.games[id]; filter.Match(game) {
			page.Games = append(page.Games, game.Clone())
		}
	}
	return page, nil
}

func (s *Storage) UpdateGameAndPlayer(ctx context.Context, game *model.Game, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkGame(game); err != nil {
		return err
	}
	if err := s.checkPlayer(player); err != nil {
		return err
	}
	s.putGame(game)
	s.putPlayer(player)
	return nil
}

func (s *Storage) CreateGameAndPlayer(ctx context.Context, game *model.Game, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[game.ID]; ok {
		return model.ErrGameExists
	}
	if err := s.checkPlayer(player); err != nil {
		return err
	}
	game.Version = 1
	s.games[game.ID] = game.Clone()
	s.putPlayer(player)
	return nil
}

// Helpers, called with the write lock held

func (s *Storage) checkPlayer(player *model.Player) error {
	stored, ok := s.players[player.ID]
	if !ok {
		return model.ErrPlayerNotFound
	}
	if stored.Version != player.Version {
		return model.ErrVersionConflict
	}
	return nil
}

func (s *Storage) putPlayer(player *model.Player) {
	player.Version++
	s.players[player.ID] = player.Clone()
}

func (s *Storage) checkGame(game *model.Game) error {
	stored, ok := s.games[game.ID]
	if !ok {
		return model.ErrGameNotFound
	}
	if stored.Version != game.Version {
		return model.ErrVersionConflict
	}
	return nil
}

func (s *Storage) putGame(game *model.Game) {
	game.Version++
	s.games[game.ID] = game.Clone()
}
