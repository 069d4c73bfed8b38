package handler

import (
	"fmt"
	"net/http"

	"github.com/mcoot/bubble/internal/api/middleware"
	"github.com/mcoot/bubble/internal/api/request"
	"github.com/mcoot/bubble/internal/api/response"
	"github.com/mcoot/bubble/internal/services/turn"
)

// PlayHandler handles turn actions
type PlayHandler struct {
	engine turn.EngineInterface
}

// NewPlayHandler creates a new play handler
func NewPlayHandler(engine turn.EngineInterface) *PlayHandler {
	return &PlayHandler{engine: engine}
}

// Play handles POST /api/v1/games/{game_id}/play
func (h *PlayHandler) Play(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	values := r.URL.Query()
	if _, err := request.Required(values, turn.FieldAction); err != nil {
		WriteError(w, err)
		return
	}

	// The action fields are read by the engine once membership is confirmed
	result, err := h.engine.PlayRequest(r.Context(), player.ID, gameID(r), values)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.NewPlayResponse(fmt.Sprintf("%s done", result.Action.Kind()), result.Game, result.Player))
}
