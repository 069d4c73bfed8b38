package model

import "time"

// PlayerID uniquely identifies a player across the system
type PlayerID string

// Player is a registered account together with its economic state.
// The economic fields are reset every time a game the player belongs to starts.
type Player struct {
	ID             PlayerID  `json:"player_id"`
	PasswordHash   string    `json:"password_hash"` // bcrypt hash, never returned to clients
	LastConnection time.Time `json:"last_connection"`

	Money             int64 `json:"money"`
	Debt              int64 `json:"debt"`
	AccumulatedPoints int64 `json:"accumulated_points"`

	// ActiveGame claims the one unfinished game the player belongs to. It is
	// written together with the game on create and join.
	ActiveGame GameID `json:"active_game,omitempty"`

	CreatedAt time.Time `json:"created_at"`

	// Version is the optimistic concurrency token maintained by storage
	Version int64 `json:"version"`
}

// ResetEconomy puts the player at the start of a new game epoch
func (p *Player) ResetEconomy(initialMoney int64) {
	p.Money = initialMoney
	p.Debt = 0
	p.AccumulatedPoints = 0
}

// Clone returns a deep copy of the player
func (p *Player) Clone() *Player {
	c := *p
	return &c
}
