package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		o.printJSON(MessageResult{Message: msg})
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case GameResult:
		fmt.Fprintln(o.w, v.Message)
		if v.Game != nil {
			o.printGame(*v.Game)
		}
	case GameList:
		o.printGameList(v)
	case StatusResult:
		o.printGame(v.Game)
		fmt.Fprintf(o.w, "Players (%d):\n", len(v.Players))
		for _, p := range v.Players {
			o.printPlayer(p)
		}
	case PlayResult:
		fmt.Fprintln(o.w, v.Message)
		o.printGame(v.Game)
		o.printPlayer(v.Player)
	case HealthResult:
		fmt.Fprintf(o.w, "Status: %s (storage: %s)\n", v.Status, v.Storage)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// MessageResult is the minimal response body
type MessageResult struct {
	Message string `json:"message"`
}

// Game response type (matches API)
type Game struct {
	ID            string   `json:"game_id"`
	Status        string   `json:"status"`
	Owner         string   `json:"owner"`
	Players       int      `json:"players"`
	PlayerNames   []string `json:"player_names"`
	Turn          int      `json:"turn"`
	Year          int      `json:"year"`
	CurrentPlayer string   `json:"current_player,omitempty"`
	ActionDone    bool     `json:"action_done"`
	MapSize       int      `json:"map_size"`
	Map           [][]Cell `json:"map"`
}

// Cell response type
type Cell struct {
	Type  *string `json:"type"`
	Level *int    `json:"level"`
	Owner *string `json:"owner"`
}

// Player response type
type Player struct {
	ID                string `json:"player_id"`
	Money             int64  `json:"money"`
	Debt              int64  `json:"debt"`
	AccumulatedPoints int64  `json:"accumulated_points"`
}

// GameResult is returned by create, join, leave and start
type GameResult struct {
	Message string `json:"message"`
	Game    *Game  `json:"game,omitempty"`
}

// GameList response type
type GameList struct {
	Message string `json:"message"`
	Games   []Game `json:"games"`
}

// StatusResult response type
type StatusResult struct {
	Message string   `json:"message"`
	Game    Game     `json:"game"`
	Players []Player `json:"players"`
}

// PlayResult response type
type PlayResult struct {
	Message string `json:"message"`
	Game    Game   `json:"game"`
	Player  Player `json:"player"`
}

// HealthResult response type
type HealthResult struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}

func (o *Output) printGameList(l GameList) {
	if len(l.Games) == 0 {
		fmt.Fprintln(o.w, "No games waiting for players")
		return
	}
	for _, g := range l.Games {
		fmt.Fprintf(o.w, "%s  owner=%s  players=%d/4\n", g.ID, g.Owner, g.Players)
	}
}

func (o *Output) printGame(g Game) {
	fmt.Fprintf(o.w, "Game: %s\n", g.ID)
	fmt.Fprintf(o.w, "Status: %s\n", g.Status)
	fmt.Fprintf(o.w, "Players: %s\n", strings.Join(g.PlayerNames, ", "))

	if g.Status == "WAITING" {
		return
	}
	fmt.Fprintf(o.w, "Year: %d  Turn: %d\n", g.Year, g.Turn)
	if g.CurrentPlayer != "" {
		fmt.Fprintf(o.w, "Current player: %s\n", g.CurrentPlayer)
	}
	o.printMap(g)
}

func (o *Output) printPlayer(p Player) {
	fmt.Fprintf(o.w, "  - %s: money=%d debt=%d points=%d\n", p.ID, p.Money, p.Debt, p.AccumulatedPoints)
}

// printMap draws each cell as the building initial and level, e.g. "R2"
func (o *Output) printMap(g Game) {
	size := len(g.Map)
	if size == 0 {
		return
	}

	// Print column headers
	fmt.Fprint(o.w, "    ")
	for x := 0; x < size; x++ {
		fmt.Fprintf(o.w, "%3d", x)
	}
	fmt.Fprintln(o.w)

	for y, row := range g.Map {
		fmt.Fprintf(o.w, "%3d ", y)
		for _, cell := range row {
			fmt.Fprintf(o.w, "%3s", cellGlyph(cell))
		}
		fmt.Fprintln(o.w)
	}
}

func cellGlyph(c Cell) string {
	if c.Type == nil || *c.Type == "" {
		return "."
	}
	level := 0
	if c.Level != nil {
		level = *c.Level
	}
	return fmt.Sprintf("%c%d", (*c.Type)[0], level)
}
