package response

import (
	"time"

	"github.com/mcoot/bubble/internal/model"
)

// Player represents a player in API responses
type Player struct {
	ID                string    `json:"player_id"`
	LastConnection    time.Time `json:"last_connection"`
	Money             int64     `json:"money"`
	Debt              int64     `json:"debt"`
	AccumulatedPoints int64     `json:"accumulated_points"`
}

// PlayerFromModel converts a model.Player to a response Player.
// The password hash is never exposed.
func PlayerFromModel(p *model.Player) Player {
	return Player{
		ID:                string(p.ID),
		LastConnection:    p.LastConnection,
		Money:             p.Money,
		Debt:              p.Debt,
		AccumulatedPoints: p.AccumulatedPoints,
	}
}

// Game represents a game in API responses
type Game struct {
	ID            string    `json:"game_id"`
	Status        string    `json:"status"`
	Owner         string    `json:"owner"`
	Players       int       `json:"players"`
	PlayerNames   []string  `json:"player_names"`
	Turn          int       `json:"turn"`
	Year          int       `json:"year"`
	CurrentPlayer string    `json:"current_player,omitempty"`
	ActionDone    bool      `json:"action_done"`
	MapSize       int       `json:"map_size"`
	Map           model.Map `json:"map"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// GameFromModel converts a model.Game to a response Game
func GameFromModel(g *model.Game) Game {
	names := make([]string, len(g.PlayerNames))
	for i, n := range g.PlayerNames {
		names[i] = string(n)
	}
	m := g.Map
	if m == nil {
		m = model.Map{}
	}

	resp := Game{
		ID:          string(g.ID),
		Status:      string(g.Status),
		Owner:       string(g.Owner()),
		Players:     g.Players,
		PlayerNames: names,
		Turn:        g.Turn,
		Year:        g.Year,
		ActionDone:  g.ActionDone,
		MapSize:     g.MapSize,
		Map:         m,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
	if g.Status == model.GameStatusPlaying {
		resp.CurrentPlayer = string(g.CurrentPlayerID())
	}
	return resp
}

// Message is the minimal response body
type Message struct {
	Message string `json:"message"`
}

// GameResponse carries a single game
type GameResponse struct {
	Message string `json:"message"`
	Game    Game   `json:"game"`
}

// NewGameResponse builds a GameResponse
func NewGameResponse(message string, g *model.Game) GameResponse {
	return GameResponse{Message: message, Game: GameFromModel(g)}
}

// GameListResponse is the response for listing available games
type GameListResponse struct {
	Message string `json:"message"`
	Games   []Game `json:"games"`
}

// NewGameListResponse builds a GameListResponse
func NewGameListResponse(games []*model.Game) GameListResponse {
	resp := GameListResponse{Message: "Ok", Games: make([]Game, 0, len(games))}
	for _, g := range games {
		resp.Games = append(resp.Games, GameFromModel(g))
	}
	return resp
}

// StatusResponse is a game together with its members
type StatusResponse struct {
	Message string   `json:"message"`
	Game    Game     `json:"game"`
	Players []Player `json:"players"`
}

// NewStatusResponse builds a StatusResponse
func NewStatusResponse(g *model.Game, players []*model.Player) StatusResponse {
	resp := StatusResponse{Message: "Ok", Game: GameFromModel(g), Players: make([]Player, 0, len(players))}
	for _, p := range players {
		resp.Players = append(resp.Players, PlayerFromModel(p))
	}
	return resp
}

// PlayResponse is the result of a turn action
type PlayResponse struct {
	Message string `json:"message"`
	Game    Game   `json:"game"`
	Player  Player `json:"player"`
}

// NewPlayResponse builds a PlayResponse
func NewPlayResponse(message string, g *model.Game, p *model.Player) PlayResponse {
	return PlayResponse{Message: message, Game: GameFromModel(g), Player: PlayerFromModel(p)}
}

// HealthResponse is the response for the health endpoint
type HealthResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
	Storage string `json:"storage"`
}
