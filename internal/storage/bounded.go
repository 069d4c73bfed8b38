package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mcoot/bubble/internal/model"
)

// DefaultCallTimeout bounds a single store call
const DefaultCallTimeout = 5 * time.Second

// Bounded decorates a Storage so that no call can block indefinitely.
// Each call gets its own deadline; deadline expiry and backend failures are
// reported as model.ErrStoreUnavailable while domain errors pass through.
type Bounded struct {
	inner   Storage
	timeout time.Duration
}

// Ensure Bounded implements the interface
var _ Storage = (*Bounded)(nil)

// NewBounded wraps a storage with a per-call timeout
func NewBounded(inner Storage, timeout time.Duration) *Bounded {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Bounded{inner: inner, timeout: timeout}
}

// Unwrap returns the decorated storage
func (b *Bounded) Unwrap() Storage {
	return b.inner
}

func (b *Bounded) call(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return classify(fn(ctx))
}

// domainErrors are the store errors callers act upon
var domainErrors = []error{
	model.ErrGameNotFound,
	model.ErrPlayerNotFound,
	model.ErrGameExists,
	model.ErrPlayerExists,
	model.ErrVersionConflict,
	model.ErrCorruptRecord,
	model.ErrStoreUnavailable,
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, domainErr := range domainErrors {
		if errors.Is(err, domainErr) {
			return err
		}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %w", model.ErrStoreUnavailable, err)
}

func (b *Bounded) CreatePlayer(ctx context.Context, player *model.Player) error {
	return b.call(ctx, func(ctx context.Context) error {
		return b.inner.CreatePlayer(ctx, player)
	})
}

func (b *Bounded) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	var player *model.Player
	err := b.call(ctx, func(ctx context.Context) error {
		var err error
		player, err = b.inner.GetPlayer(ctx, id)
		return err
	})
	return player, err
}

func (b *Bounded) UpdatePlayer(ctx context.Context, player *model.Player) error {
	return b.call(ctx, func(ctx context.Context) error {
		return b.inner.UpdatePlayer(ctx, player)
	})
}

func (b *Bounded) CreateGame(ctx context.Context, game *model.Game) error {
	return b.call(ctx, func(ctx context.Context) error {
		return b.inner.CreateGame(ctx, game)
	})
}

func (b *Bounded) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	var game *model.Game
	err := b.call(ctx, func(ctx context.Context) error {
		var err error
		game, err = b.inner.GetGame(ctx, id)
		return err
	})
	return game, err
}

func (b *Bounded) UpdateGame(ctx context.Context, game *model.Game) error {
	return b.call(ctx, func(ctx context.Context) error {
		return b.inner.UpdateGame(ctx, game)
	})
}

func (b *Bounded) DeleteGame(ctx context.Context, game *model.Game) error {
	return b.call(ctx, func(ctx context.Context) error {
		return b.inner.DeleteGame(ctx, game)
	})
}

func (b *Bounded) ScanGames(ctx context.Context, filter GameFilter, cursor string, limit int) (*ScanPage, error) {
	var page *ScanPage
	err := b.call(ctx, func(ctx context.Context) error {
		var err error
		page, err = b.inner.ScanGames(ctx, filter, cursor, limit)
		return err
	})
	return page, err
}

func (b *Bounded) UpdateGameAndPlayer(ctx context.Context, game *model.Game, player *model.Player) error {
	return b.call(ctx, func(ctx context.Context) error {
		return b.inner.UpdateGameAndPlayer(ctx, game, player)
	})
}

func (b *Bounded) CreateGameAndPlayer(ctx context.Context, game *model.Game, player *model.Player) error {
	return b.call(ctx, func(ctx context.Context) error {
		return b.inner.CreateGameAndPlayer(ctx, game, player)
	})
}
