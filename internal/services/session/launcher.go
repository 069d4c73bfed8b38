package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mcoot/bubble/internal/dependencies/clock"
	"github.com/mcoot/bubble/internal/model"
	"github.com/mcoot/bubble/internal/storage"
)

// Launcher moves a game from its lobby into play
type Launcher struct {
	storage storage.Storage
	clock   clock.Clock
	logger  *slog.Logger
	params  model.GameParams
	retry   storage.RetryConfig
}

// NewLauncher creates a new session Launcher
func NewLauncher(
	storage storage.Storage,
	clock clock.Clock,
	logger *slog.Logger,
	params model.GameParams,
	retry storage.RetryConfig,
) *Launcher {
	return &Launcher{
		storage: storage,
		clock:   clock,
		logger:  logger,
		params:  params,
		retry:   retry,
	}
}

// StartGame allocates the map and starting resources of a waiting game.
// Only the owner may start it. The game is written first and each member's
// economy afterwards; a member write that fails is reported but the game
// stays started.
func (l *Launcher) StartGame(ctx context.Context, user model.PlayerID, id model.GameID) (*model.Game, error) {
	var game *model.Game
	err := storage.RetryOnConflict(ctx, l.retry, func() error {
		g, err := l.storage.GetGame(ctx, id)
		if err != nil {
			return err
		}
		if !g.IsOwner(user) {
			return model.ErrNotOwner
		}
		if g.Status != model.GameStatusWaiting {
			return model.ErrAlreadyStarted
		}

		size, err := l.params.MapSizeFor(g.Players)
		if err != nil {
			return err
		}

		g.Status = model.GameStatusPlaying
		g.Year = l.params.StartYear
		g.Turn = 1
		g.CurrentPlayer = 0
		g.ActionDone = false
		g.MapSize = size
		g.Map = model.NewMap(size)
		g.UpdatedAt = l.clock.Now()

		if err := l.storage.UpdateGame(ctx, g); err != nil {
			return err
		}
		game = g
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i, name := range game.PlayerNames {
		if err := l.resetPlayer(ctx, name); err != nil {
			l.logger.Error("game started with members left uninitialised",
				slog.String("game_id", string(id)),
				slog.String("player_id", string(name)),
				slog.Int("initialised", i),
				slog.String("error", err.Error()),
			)
			return nil, fmt.Errorf("initialise player %s: %w", name, err)
		}
	}

	l.logger.Info("game started",
		slog.String("game_id", string(id)),
		slog.Int("players", game.Players),
		slog.Int("map_size", game.MapSize),
	)
	return game, nil
}

func (l *Launcher) resetPlayer(ctx context.Context, id model.PlayerID) error {
	return storage.RetryOnConflict(ctx, l.retry, func() error {
		player, err := l.storage.GetPlayer(ctx, id)
		if err != nil {
			return err
		}
		player.ResetEconomy(l.params.InitialMoney)
		return l.storage.UpdatePlayer(ctx, player)
	})
}

// Interface for dependency injection
type LauncherInterface interface {
	StartGame(ctx context.Context, user model.PlayerID, id model.GameID) (*model.Game, error)
}

var _ LauncherInterface = (*Launcher)(nil)
