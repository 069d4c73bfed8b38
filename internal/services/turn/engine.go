package turn

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/mcoot/bubble/internal/dependencies/clock"
	"github.com/mcoot/bubble/internal/model"
	"github.com/mcoot/bubble/internal/storage"
)

// Engine applies player actions to games in play
type Engine struct {
	storage storage.Storage
	clock   clock.Clock
	logger  *slog.Logger
	params  model.GameParams
	retry   storage.RetryConfig
}

// NewEngine creates a new turn Engine
func NewEngine(
	storage storage.Storage,
	clock clock.Clock,
	logger *slog.Logger,
	params model.GameParams,
	retry storage.RetryConfig,
) *Engine {
	return &Engine{
		storage: storage,
		clock:   clock,
		logger:  logger,
		params:  params,
		retry:   retry,
	}
}

// Result is the state of the game and the acting player after an action
type Result struct {
	Action model.Action
	Game   *model.Game
	Player *model.Player
}

// Play validates and applies one action for the user. The game and the
// player are written together; a failed action leaves both untouched.
func (e *Engine) Play(ctx context.Context, user model.PlayerID, id model.GameID, action model.Action) (*Result, error) {
	return e.play(ctx, user, id, func() (model.Action, error) { return action, nil })
}

// PlayRequest is Play for an action still in request form. The action fields
// are only read once the game, the membership and the turn order check out.
func (e *Engine) PlayRequest(ctx context.Context, user model.PlayerID, id model.GameID, values url.Values) (*Result, error) {
	return e.play(ctx, user, id, func() (model.Action, error) { return ParseAction(values) })
}

func (e *Engine) play(ctx context.Context, user model.PlayerID, id model.GameID, next func() (model.Action, error)) (*Result, error) {
	var result *Result
	var action model.Action
	err := storage.RetryOnConflict(ctx, e.retry, func() error {
		game, err := e.storage.GetGame(ctx, id)
		if err != nil {
			return err
		}
		if game.Status != model.GameStatusPlaying {
			return model.ErrNotPlaying
		}
		if !game.HasPlayer(user) {
			return model.ErrNotMember
		}
		player, err := e.storage.GetPlayer(ctx, user)
		if err != nil {
			return err
		}
		if game.CurrentPlayerID() != user {
			return model.ErrNotPlayerTurn
		}

		if action == nil {
			if action, err = next(); err != nil {
				return err
			}
		}
		if err := apply(game, player, action, e.params); err != nil {
			return err
		}

		if !game.IsActive() && player.ActiveGame == game.ID {
			player.ActiveGame = ""
		}
		game.UpdatedAt = e.clock.Now()
		if err := e.storage.UpdateGameAndPlayer(ctx, game, player); err != nil {
			return err
		}
		result = &Result{Action: action, Game: game, Player: player}
		return nil
	})
	if err != nil {
		e.logger.Debug("action rejected",
			slog.String("game_id", string(id)),
			slog.String("player_id", string(user)),
			slog.String("action", kindOf(action)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	e.logger.Info("action played",
		slog.String("game_id", string(id)),
		slog.String("player_id", string(user)),
		slog.String("action", kindOf(action)),
		slog.Int("turn", result.Game.Turn),
		slog.Int("year", result.Game.Year),
	)
	if result.Game.Status == model.GameStatusFinished {
		e.logger.Info("game finished",
			slog.String("game_id", string(id)),
			slog.Int("year", result.Game.Year),
		)
		if err := storage.ReleaseActiveGame(ctx, e.storage, e.retry, id, result.Game.PlayerNames); err != nil {
			e.logger.Warn("failed to release finished game",
				slog.String("game_id", string(id)),
				slog.String("error", err.Error()),
			)
		}
	}
	return result, nil
}

func kindOf(action model.Action) string {
	if action == nil {
		return ""
	}
	return string(action.Kind())
}

// Interface for dependency injection
type EngineInterface interface {
	Play(ctx context.Context, user model.PlayerID, id model.GameID, action model.Action) (*Result, error)
	PlayRequest(ctx context.Context, user model.PlayerID, id model.GameID, values url.Values) (*Result, error)
}

var _ EngineInterface = (*Engine)(nil)
