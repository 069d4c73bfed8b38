package middleware

import (
	"context"
	"net/http"

	"github.com/mcoot/bubble/internal/api/apierr"
	"github.com/mcoot/bubble/internal/api/request"
	"github.com/mcoot/bubble/internal/model"
)

type contextKey string

const playerContextKey contextKey = "player"

// Authenticator resolves credentials to a player, registering unknown users
type Authenticator interface {
	Authenticate(ctx context.Context, id model.PlayerID, password string) (*model.Player, error)
}

// Auth creates authentication middleware.
// Credentials are read from the user and password query parameters.
func Auth(accounts Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, password, err := request.Credentials(r.URL.Query())
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			player, err := accounts.Authenticate(r.Context(), user, password)
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), playerContextKey, player)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPlayer returns the authenticated player from the request context
func GetPlayer(ctx context.Context) *model.Player {
	player, _ := ctx.Value(playerContextKey).(*model.Player)
	return player
}

// WithPlayer returns a context carrying an authenticated player
func WithPlayer(ctx context.Context, player *model.Player) context.Context {
	return context.WithValue(ctx, playerContextKey, player)
}

// MustGetPlayer returns the authenticated player or panics
func MustGetPlayer(ctx context.Context) *model.Player {
	player := GetPlayer(ctx)
	if player == nil {
		panic("no player in context - auth middleware not applied?")
	}
	return player
}
