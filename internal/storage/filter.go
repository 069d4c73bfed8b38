package storage

import (
	"context"
	"slices"

	"github.com/mcoot/bubble/internal/model"
)

// DefaultScanPageSize is the number of records examined per scan page
const DefaultScanPageSize = 100

// GameFilter is a scan predicate. Zero-valued fields match everything.
type GameFilter struct {
	Statuses        []model.GameStatus // status is one of these
	ExcludeStatuses []model.GameStatus // status is none of these
	Member          model.PlayerID     // player_names contains this player
	PlayersBelow    int                // players < PlayersBelow
}

// Match returns true if the game satisfies every condition of the filter
func (f GameFilter) Match(g *model.Game) bool {
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, g.Status) {
		return false
	}
	if slices.Contains(f.ExcludeStatuses, g.Status) {
		return false
	}
	if f.Member != "" && !g.HasPlayer(f.Member) {
		return false
	}
	if f.PlayersBelow > 0 && g.Players >= f.PlayersBelow {
		return false
	}
	return true
}

// AvailableGamesFilter matches lobbies that can still be joined
func AvailableGamesFilter() GameFilter {
	return GameFilter{
		Statuses:     []model.GameStatus{model.GameStatusWaiting},
		PlayersBelow: model.MaxPlayers,
	}
}

// ScanAllGames follows the scan cursor until exhausted and merges every page.
// A backend may return the same game on more than one page; each is kept once.
func ScanAllGames(ctx context.Context, s Storage, filter GameFilter, pageSize int) ([]*model.Game, error) {
	if pageSize <= 0 {
		pageSize = DefaultScanPageSize
	}

	games := []*model.Game{}
	seen := map[model.GameID]bool{}
	cursor := ""
	for {
		page, err := s.ScanGames(ctx, filter, cursor, pageSize)
		if err != nil {
			return nil, err
		}
		for _, g := range page.Games {
			if !seen[g.ID] {
				seen[g.ID] = true
				games = append(games, g)
			}
		}
		if page.NextCursor == "" {
			return games, nil
		}
		cursor = page.NextCursor
	}
}
