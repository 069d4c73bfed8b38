package model

import (
	"slices"
	"time"
)

// GameID uniquely identifies a game
type GameID string

// GameStatus represents the current phase of a game
type GameStatus string

const (
	GameStatusWaiting  GameStatus = "WAITING"  // Lobby, players may join and leave
	GameStatusPlaying  GameStatus = "PLAYING"  // Map allocated, turns in progress
	GameStatusFinished GameStatus = "FINISHED" // Terminal
)

// MaxPlayers is the largest number of players a game accepts
const MaxPlayers = 4

// Game is one session across its full lifecycle
type Game struct {
	ID     GameID     `json:"game_id"`
	Status GameStatus `json:"status"`

	Players int `json:"players"`
	// PlayerNames is ordered: the first entry is the owner and the order
	// drives turn rotation
	PlayerNames []PlayerID `json:"player_names"`

	Turn          int  `json:"turn"`
	Year          int  `json:"year"`
	CurrentPlayer int  `json:"current_player"` // Index into PlayerNames of the player whose turn it is
	ActionDone    bool `json:"action_done"`    // Current player already made a map action this turn

	MapSize int `json:"map_size"`
	Map     Map `json:"map"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Version is the optimistic concurrency token maintained by storage
	Version int64 `json:"version"`
}

// Owner returns the owning player, or "" for an empty game
func (g *Game) Owner() PlayerID {
	if len(g.PlayerNames) == 0 {
		return ""
	}
	return g.PlayerNames[0]
}

// IsOwner returns true if the player owns the game
func (g *Game) IsOwner(playerID PlayerID) bool {
	return g.Owner() == playerID
}

// HasPlayer returns true if the player is a member of the game
func (g *Game) HasPlayer(playerID PlayerID) bool {
	return slices.Contains(g.PlayerNames, playerID)
}

// IsFull returns true once no more players can join
func (g *Game) IsFull() bool {
	return g.Players >= MaxPlayers
}

// IsActive returns true while the game still binds its members
func (g *Game) IsActive() bool {
	return g.Status != GameStatusFinished
}

// CurrentPlayerID returns the player whose turn it is
func (g *Game) CurrentPlayerID() PlayerID {
	if g.CurrentPlayer < 0 || g.CurrentPlayer >= len(g.PlayerNames) {
		return ""
	}
	return g.PlayerNames[g.CurrentPlayer]
}

// AddPlayer appends a member and keeps the player count in sync
func (g *Game) AddPlayer(playerID PlayerID) {
	g.PlayerNames = append(g.PlayerNames, playerID)
	g.Players = len(g.PlayerNames)
}

// RemovePlayer drops a member, keeping the player count and the turn pointer
// consistent. If the leaver held the turn as the last player in rotation, the
// rotation completes as if they had passed. Returns false if the player was
// not a member.
func (g *Game) RemovePlayer(playerID PlayerID, params GameParams) bool {
	idx := slices.Index(g.PlayerNames, playerID)
	if idx == -1 {
		return false
	}

	g.PlayerNames = slices.Delete(g.PlayerNames, idx, idx+1)
	g.Players = len(g.PlayerNames)

	switch {
	case idx < g.CurrentPlayer:
		g.CurrentPlayer--
	case idx == g.CurrentPlayer:
		// The next player inherits the turn
		g.ActionDone = false
	}
	if g.CurrentPlayer < len(g.PlayerNames) {
		return true
	}
	if g.Status == GameStatusPlaying && len(g.PlayerNames) > 0 {
		g.completeRotation(params)
	} else {
		g.CurrentPlayer = 0
	}
	return true
}

// AdvancePlayer hands the turn to the next player in rotation
func (g *Game) AdvancePlayer(params GameParams) {
	g.ActionDone = false
	g.CurrentPlayer++
	if g.CurrentPlayer < len(g.PlayerNames) {
		return
	}
	g.completeRotation(params)
}

// completeRotation starts the next turn. Every TurnsPerYear turns advance the
// year, and the game finishes once YearsPerGame years have gone by.
func (g *Game) completeRotation(params GameParams) {
	g.CurrentPlayer = 0
	g.Turn++
	if params.TurnsPerYear > 0 && (g.Turn-1)%params.TurnsPerYear == 0 {
		g.Year++
	}
	if params.YearsPerGame > 0 && g.Year >= params.StartYear+params.YearsPerGame {
		g.Status = GameStatusFinished
	}
}

// Binds returns true if the game still holds the player as an unfinished member
func (g *Game) Binds(playerID PlayerID) bool {
	return g.IsActive() && g.HasPlayer(playerID)
}

// Clone returns a deep copy of the game
func (g *Game) Clone() *Game {
	c := *g
	c.PlayerNames = slices.Clone(g.PlayerNames)
	c.Map = g.Map.Clone()
	return &c
}
