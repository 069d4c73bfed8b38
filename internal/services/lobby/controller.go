package lobby

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mcoot/bubble/internal/dependencies/clock"
	"github.com/mcoot/bubble/internal/dependencies/random"
	"github.com/mcoot/bubble/internal/model"
	"github.com/mcoot/bubble/internal/storage"
)

// Config holds configuration for the lobby controller
type Config struct {
	Retry        storage.RetryConfig
	ScanPageSize int
	// Params drive the turn bookkeeping when a player leaves a game in play
	Params model.GameParams
}

// DefaultConfig returns default lobby configuration
func DefaultConfig() Config {
	return Config{
		Retry:        storage.DefaultRetryConfig(),
		ScanPageSize: storage.DefaultScanPageSize,
		Params:       model.DefaultGameParams(),
	}
}

// Controller manages game membership while games wait for players
type Controller struct {
	storage storage.Storage
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger
	cfg     Config
}

// NewController creates a new lobby Controller
func NewController(
	storage storage.Storage,
	clock clock.Clock,
	random random.Random,
	logger *slog.Logger,
	cfg Config,
) *Controller {
	return &Controller{
		storage: storage,
		clock:   clock,
		random:  random,
		logger:  logger,
		cfg:     cfg,
	}
}

// Status is a game together with the public state of its members
type Status struct {
	Game    *model.Game
	Players []*model.Player
}

// CreateGame opens a new game owned by the user. The game and the owner's
// claim on it are written together.
func (c *Controller) CreateGame(ctx context.Context, user model.PlayerID) (*model.Game, error) {
	id := model.GameID(c.random.NewID())

	var game *model.Game
	err := storage.RetryOnConflict(ctx, c.cfg.Retry, func() error {
		player, err := c.freePlayer(ctx, user)
		if err != nil {
			return err
		}

		now := c.clock.Now()
		g := &model.Game{
			ID:          id,
			Status:      model.GameStatusWaiting,
			PlayerNames: []model.PlayerID{},
			Map:         model.Map{},
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		g.AddPlayer(user)
		player.ActiveGame = id

		if err := c.storage.CreateGameAndPlayer(ctx, g, player); err != nil {
			return err
		}
		game = g
		return nil
	})
	if err != nil {
		c.logger.Debug("game not created",
			slog.String("game_id", string(id)),
			slog.String("owner", string(user)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	c.logger.Info("game created",
		slog.String("game_id", string(game.ID)),
		slog.String("owner", string(user)),
	)
	return game, nil
}

// DeleteGame removes a game; only its owner may do so, in any status
func (c *Controller) DeleteGame(ctx context.Context, user model.PlayerID, id model.GameID) error {
	var members []model.PlayerID
	err := storage.RetryOnConflict(ctx, c.cfg.Retry, func() error {
		game, err := c.storage.GetGame(ctx, id)
		if err != nil {
			return err
		}
		if !game.IsOwner(user) {
			return model.ErrNotOwner
		}
		members = game.PlayerNames
		return c.storage.DeleteGame(ctx, game)
	})
	if err != nil {
		return err
	}

	c.logger.Info("game deleted",
		slog.String("game_id", string(id)),
		slog.String("owner", string(user)),
	)
	c.release(ctx, id, members)
	return nil
}

// JoinGame adds the user to a waiting game. The game and the player's claim
// on it are written together.
func (c *Controller) JoinGame(ctx context.Context, user model.PlayerID, id model.GameID) (*model.Game, error) {
	var game *model.Game
	err := storage.RetryOnConflict(ctx, c.cfg.Retry, func() error {
		g, err := c.storage.GetGame(ctx, id)
		if err != nil {
			return err
		}
		if g.HasPlayer(user) {
			return model.ErrAlreadyInGame
		}
		if g.Status != model.GameStatusWaiting {
			return model.ErrNotWaiting
		}
		if g.IsFull() {
			return model.ErrGameFull
		}
		player, err := c.freePlayer(ctx, user)
		if err != nil {
			return err
		}

		g.AddPlayer(user)
		g.UpdatedAt = c.clock.Now()
		player.ActiveGame = id
		if err := c.storage.UpdateGameAndPlayer(ctx, g, player); err != nil {
			return err
		}
		game = g
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("player joined game",
		slog.String("game_id", string(id)),
		slog.String("player_id", string(user)),
		slog.Int("players", game.Players),
	)
	return game, nil
}

// LeaveGame removes the user from a game. The game is deleted once empty,
// in which case the returned game is nil.
func (c *Controller) LeaveGame(ctx context.Context, user model.PlayerID, id model.GameID) (*model.Game, error) {
	var game *model.Game
	err := storage.RetryOnConflict(ctx, c.cfg.Retry, func() error {
		g, err := c.storage.GetGame(ctx, id)
		if err != nil {
			return err
		}
		if !g.RemovePlayer(user, c.cfg.Params) {
			return model.ErrNotMember
		}

		if g.Players == 0 {
			game = nil
			return c.storage.DeleteGame(ctx, g)
		}

		g.UpdatedAt = c.clock.Now()
		player, err := c.storage.GetPlayer(ctx, user)
		switch {
		case errors.Is(err, model.ErrPlayerNotFound):
			err = c.storage.UpdateGame(ctx, g)
		case err != nil:
			return err
		case player.ActiveGame == id:
			player.ActiveGame = ""
			err = c.storage.UpdateGameAndPlayer(ctx, g, player)
		default:
			err = c.storage.UpdateGame(ctx, g)
		}
		if err != nil {
			return err
		}
		game = g
		return nil
	})
	if err != nil {
		return nil, err
	}

	if game == nil {
		c.logger.Info("last player left, game deleted",
			slog.String("game_id", string(id)),
			slog.String("player_id", string(user)),
		)
		c.release(ctx, id, []model.PlayerID{user})
		return nil, nil
	}
	c.logger.Info("player left game",
		slog.String("game_id", string(id)),
		slog.String("player_id", string(user)),
		slog.String("owner", string(game.Owner())),
	)
	if !game.IsActive() {
		c.release(ctx, id, game.PlayerNames)
	}
	return game, nil
}

// ListAvailable returns every waiting game that still has room
func (c *Controller) ListAvailable(ctx context.Context) ([]*model.Game, error) {
	return storage.ScanAllGames(ctx, c.storage, storage.AvailableGamesFilter(), c.cfg.ScanPageSize)
}

// GetStatus returns a game and its members; only members may look
func (c *Controller) GetStatus(ctx context.Context, user model.PlayerID, id model.GameID) (*Status, error) {
	game, err := c.storage.GetGame(ctx, id)
	if err != nil {
		return nil, err
	}
	if !game.HasPlayer(user) {
		return nil, model.ErrNotMember
	}

	status := &Status{Game: game, Players: make([]*model.Player, 0, len(game.PlayerNames))}
	for _, name := range game.PlayerNames {
		player, err := c.storage.GetPlayer(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("load member %s: %w", name, err)
		}
		status.Players = append(status.Players, player)
	}
	return status, nil
}

// freePlayer loads the user's record, failing if they are still bound to an
// unfinished game
func (c *Controller) freePlayer(ctx context.Context, user model.PlayerID) (*model.Player, error) {
	player, err := c.storage.GetPlayer(ctx, user)
	if err != nil {
		return nil, err
	}
	if err := storage.CheckFree(ctx, c.storage, player); err != nil {
		return nil, err
	}
	return player, nil
}

// release drops the claims members hold on a game that no longer binds them.
// A claim left behind is stale and ignored by CheckFree, so failures are only
// logged.
func (c *Controller) release(ctx context.Context, id model.GameID, members []model.PlayerID) {
	if err := storage.ReleaseActiveGame(ctx, c.storage, c.cfg.Retry, id, members); err != nil {
		c.logger.Warn("failed to release game claims",
			slog.String("game_id", string(id)),
			slog.String("error", err.Error()),
		)
	}
}

// Interface for dependency injection
type ControllerInterface interface {
	CreateGame(ctx context.Context, user model.PlayerID) (*model.Game, error)
	DeleteGame(ctx context.Context, user model.PlayerID, id model.GameID) error
	JoinGame(ctx context.Context, user model.PlayerID, id model.GameID) (*model.Game, error)
	LeaveGame(ctx context.Context, user model.PlayerID, id model.GameID) (*model.Game, error)
	ListAvailable(ctx context.Context) ([]*model.Game, error)
	GetStatus(ctx context.Context, user model.PlayerID, id model.GameID) (*Status, error)
}

var _ ControllerInterface = (*Controller)(nil)
