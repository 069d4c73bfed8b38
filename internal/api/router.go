package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/bubble/internal/api/apierr"
	"github.com/mcoot/bubble/internal/api/handler"
	"github.com/mcoot/bubble/internal/api/middleware"
	"github.com/mcoot/bubble/internal/api/response"
	sharedmw "github.com/mcoot/bubble/internal/middleware"
	"github.com/mcoot/bubble/internal/services/lobby"
	"github.com/mcoot/bubble/internal/services/session"
	"github.com/mcoot/bubble/internal/services/turn"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger          *slog.Logger
	Accounts        middleware.Authenticator
	LobbyController lobby.ControllerInterface
	Launcher        session.LauncherInterface
	Engine          turn.EngineInterface
	StorageType     string
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	// Create handlers
	gameHandler := handler.NewGameHandler(cfg.LobbyController, cfg.Launcher)
	playHandler := handler.NewPlayHandler(cfg.Engine)
	healthHandler := handler.NewHealthHandler(cfg.StorageType)

	// Create middleware
	authMiddleware := middleware.Auth(cfg.Accounts)
	loggingMiddleware := sharedmw.Logging(cfg.Logger)
	recoveryMiddleware := sharedmw.Recovery(cfg.Logger, func(w http.ResponseWriter, _ *http.Request, _ any) {
		apierr.WriteError(w, apierr.NewInternalError())
	})

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(sharedmw.RequestID)
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Public routes
	api.HandleFunc("/health", healthHandler.Health).Methods(http.MethodGet)
	api.HandleFunc("/games", gameHandler.List).Methods(http.MethodGet)

	// Everything else authenticates with user/password query parameters
	protected := api.NewRoute().Subrouter()
	protected.Use(authMiddleware)
	protected.HandleFunc("/games", gameHandler.Create).Methods(http.MethodPost)
	protected.HandleFunc("/games/{game_id}", gameHandler.Status).Methods(http.MethodGet)
	protected.HandleFunc("/games/{game_id}", gameHandler.Delete).Methods(http.MethodDelete)
	protected.HandleFunc("/games/{game_id}/join", gameHandler.Join).Methods(http.MethodPost)
	protected.HandleFunc("/games/{game_id}/leave", gameHandler.Leave).Methods(http.MethodPost)
	protected.HandleFunc("/games/{game_id}/start", gameHandler.Start).Methods(http.MethodPost)
	protected.HandleFunc("/games/{game_id}/play", playHandler.Play).Methods(http.MethodPost)

	return r
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusNotFound, apierr.APIError{Code: "NOT_FOUND", Message: "Route not found"})
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusMethodNotAllowed, apierr.APIError{Code: "METHOD_NOT_ALLOWED", Message: "Method not allowed"})
}
