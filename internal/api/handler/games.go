package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/bubble/internal/api/middleware"
	"github.com/mcoot/bubble/internal/api/response"
	"github.com/mcoot/bubble/internal/model"
	"github.com/mcoot/bubble/internal/services/lobby"
	"github.com/mcoot/bubble/internal/services/session"
)

// GameHandler handles lobby and session endpoints
type GameHandler struct {
	lobby    lobby.ControllerInterface
	launcher session.LauncherInterface
}

// NewGameHandler creates a new game handler
func NewGameHandler(lobby lobby.ControllerInterface, launcher session.LauncherInterface) *GameHandler {
	return &GameHandler{lobby: lobby, launcher: launcher}
}

// gameID reads the game_id path variable
func gameID(r *http.Request) model.GameID {
	return model.GameID(mux.Vars(r)["game_id"])
}

// List handles GET /api/v1/games
func (h *GameHandler) List(w http.ResponseWriter, r *http.Request) {
	games, err := h.lobby.ListAvailable(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.NewGameListResponse(games))
}

// Create handles POST /api/v1/games
func (h *GameHandler) Create(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	game, err := h.lobby.CreateGame(r.Context(), player.ID)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, response.NewGameResponse("Game created", game))
}

// Delete handles DELETE /api/v1/games/{game_id}
func (h *GameHandler) Delete(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	if err := h.lobby.DeleteGame(r.Context(), player.ID, gameID(r)); err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.Message{Message: "Game deleted"})
}

// Status handles GET /api/v1/games/{game_id}
func (h *GameHandler) Status(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	status, err := h.lobby.GetStatus(r.Context(), player.ID, gameID(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.NewStatusResponse(status.Game, status.Players))
}

// Join handles POST /api/v1/games/{game_id}/join
func (h *GameHandler) Join(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	game, err := h.lobby.JoinGame(r.Context(), player.ID, gameID(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.NewGameResponse("Joined game", game))
}

// Leave handles POST /api/v1/games/{game_id}/leave
func (h *GameHandler) Leave(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	game, err := h.lobby.LeaveGame(r.Context(), player.ID, gameID(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	if game == nil {
		// Last player out
		response.JSON(w, http.StatusOK, response.Message{Message: "Left game, game deleted"})
		return
	}
	response.JSON(w, http.StatusOK, response.NewGameResponse("Left game", game))
}

// Start handles POST /api/v1/games/{game_id}/start
func (h *GameHandler) Start(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	game, err := h.launcher.StartGame(r.Context(), player.ID, gameID(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.NewGameResponse("Game started", game))
}
