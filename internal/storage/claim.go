package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/mcoot/bubble/internal/model"
)

// CheckFree fails with model.ErrAlreadyInGame while the game named by the
// player's ActiveGame still binds them. A claim on a deleted or finished game,
// or on one the player has left, is stale and does not count.
func CheckFree(ctx context.Context, s Storage, player *model.Player) error {
	if player.ActiveGame == "" {
		return nil
	}
	game, err := s.GetGame(ctx, player.ActiveGame)
	switch {
	case errors.Is(err, model.ErrGameNotFound):
		return nil
	case err != nil:
		return err
	case game.Binds(player.ID):
		return model.ErrAlreadyInGame
	}
	return nil
}

// ReleaseActiveGame clears the ActiveGame claim each player holds on the game.
// Claims on other games are left alone. Every player is attempted; the
// failures are joined.
func ReleaseActiveGame(ctx context.Context, s Storage, cfg RetryConfig, id model.GameID, players []model.PlayerID) error {
	var errs []error
	for _, playerID := range players {
		err := RetryOnConflict(ctx, cfg, func() error {
			player, err := s.GetPlayer(ctx, playerID)
			if errors.Is(err, model.ErrPlayerNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			if player.ActiveGame != id {
				return nil
			}
			player.ActiveGame = ""
			return s.UpdatePlayer(ctx, player)
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("release %s: %w", playerID, err))
		}
	}
	return errors.Join(errs...)
}
