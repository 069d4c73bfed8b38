package storage

import (
	"context"

	"github.com/mcoot/bubble/internal/model"
)

// Storage defines the interface for data persistence.
//
// Records carry a Version. Create sets it to 1; every Update/Delete is
// conditional and fails with model.ErrVersionConflict unless the stored record
// still has the Version the caller read. A successful update stores and returns
// the bumped Version on the argument. Get returns a copy the caller may mutate.
type Storage interface {
	// Player operations
	CreatePlayer(ctx context.Context, player *model.Player) error
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)
	UpdatePlayer(ctx context.Context, player *model.Player) error

	// Game operations
	CreateGame(ctx context.Context, game *model.Game) error
	GetGame(ctx context.Context, id model.GameID) (*model.Game, error)
	UpdateGame(ctx context.Context, game *model.Game) error
	DeleteGame(ctx context.Context, game *model.Game) error

	// ScanGames examines up to limit stored games starting after cursor and
	// returns those matching the filter. An empty NextCursor ends the scan.
	ScanGames(ctx context.Context, filter GameFilter, cursor string, limit int) (*ScanPage, error)

	// UpdateGameAndPlayer writes both records in one atomic step, conditional
	// on both versions
	UpdateGameAndPlayer(ctx context.Context, game *model.Game, player *model.Player) error

	// CreateGameAndPlayer creates the game and updates the player in one
	// atomic step, conditional on the player's version
	CreateGameAndPlayer(ctx context.Context, game *model.Game, player *model.Player) error
}

// ScanPage is one page of a game scan
type ScanPage struct {
	Games      []*model.Game
	NextCursor string
}
