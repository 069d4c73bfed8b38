package apierr

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mcoot/bubble/internal/model"
)

// APIError is the body of every error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeMissingField        = "MISSING_FIELD"
	CodeUnknownAction       = "UNKNOWN_ACTION"
	CodeInvalidAmount       = "INVALID_AMOUNT"
	CodeInvalidCoordinates  = "INVALID_COORDINATES"
	CodeInvalidLevel        = "INVALID_LEVEL"
	CodeInvalidBuildingType = "INVALID_BUILDING_TYPE"
	CodeOutOfBounds         = "OUT_OF_BOUNDS"
	CodePasswordTooLong     = "PASSWORD_TOO_LONG"
	CodeUserNotExist        = "USER_NOT_EXIST"
	CodeIncorrectPassword   = "INCORRECT_PASSWORD"
	CodeNotOwner            = "NOT_OWNER"
	CodeNotCellOwner        = "NOT_CELL_OWNER"
	CodeNotMember           = "NOT_MEMBER"
	CodeGameNotFound        = "GAME_NOT_FOUND"
	CodePlayerNotFound      = "PLAYER_NOT_FOUND"
	CodeAlreadyInGame       = "ALREADY_IN_GAME"
	CodeNotWaiting          = "NOT_WAITING"
	CodeGameFull            = "GAME_FULL"
	CodeAlreadyStarted      = "ALREADY_STARTED"
	CodeNotPlaying          = "NOT_PLAYING"
	CodeNotYourTurn         = "NOT_YOUR_TURN"
	CodeActionAlreadyDone   = "ACTION_ALREADY_DONE"
	CodeCellOccupied        = "CELL_OCCUPIED"
	CodeInsufficientFunds   = "INSUFFICIENT_FUNDS"
	CodeConflict            = "CONFLICT"
	CodeStoreUnavailable    = "STORE_UNAVAILABLE"
	CodeDatabaseError       = "DATABASE_ERROR"
	CodeInternalError       = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(he.apiError)
}

// Status returns the HTTP status an error is reported with
func Status(err error) int {
	return toHTTPError(err).status
}

// mapping is checked in order; more specific errors come first
var mapping = []struct {
	err      error
	status   int
	apiError APIError
}{
	// Validation
	{model.ErrUnknownAction, http.StatusBadRequest, APIError{CodeUnknownAction, "Unknown action"}},
	{model.ErrInvalidAmount, http.StatusBadRequest, APIError{CodeInvalidAmount, "Amount must be a positive integer"}},
	{model.ErrInvalidCoordinates, http.StatusBadRequest, APIError{CodeInvalidCoordinates, "Coordinates must be formatted as x,y"}},
	{model.ErrInvalidLevel, http.StatusBadRequest, APIError{CodeInvalidLevel, "Level is not valid for this building"}},
	{model.ErrInvalidBuildingType, http.StatusBadRequest, APIError{CodeInvalidBuildingType, "Unknown building type"}},
	{model.ErrOutOfBounds, http.StatusBadRequest, APIError{CodeOutOfBounds, "Coordinates are outside the map"}},
	{model.ErrPasswordTooLong, http.StatusBadRequest, APIError{CodePasswordTooLong, "Password can't be longer than 72 bytes"}},

	// Auth
	{model.ErrUserNotExist, http.StatusUnauthorized, APIError{CodeUserNotExist, "User does not exist"}},
	{model.ErrIncorrectPassword, http.StatusUnauthorized, APIError{CodeIncorrectPassword, "Password is incorrect."}},
	{model.ErrNotCellOwner, http.StatusForbidden, APIError{CodeNotCellOwner, "User does not own this cell"}},
	{model.ErrNotOwner, http.StatusForbidden, APIError{CodeNotOwner, "User is not the owner of the game"}},
	{model.ErrNotMember, http.StatusForbidden, APIError{CodeNotMember, "User is not in game"}},

	// Not found
	{model.ErrGameNotFound, http.StatusNotFound, APIError{CodeGameNotFound, "game_id does not exist"}},
	{model.ErrPlayerNotFound, http.StatusNotFound, APIError{CodePlayerNotFound, "player_id does not exist"}},

	// State
	{model.ErrAlreadyInGame, http.StatusBadRequest, APIError{CodeAlreadyInGame, "User is already in a game"}},
	{model.ErrNotWaiting, http.StatusBadRequest, APIError{CodeNotWaiting, "Game is not waiting for players"}},
	{model.ErrGameFull, http.StatusBadRequest, APIError{CodeGameFull, "Game is full"}},
	{model.ErrAlreadyStarted, http.StatusBadRequest, APIError{CodeAlreadyStarted, "Game has already started"}},
	{model.ErrNotPlaying, http.StatusBadRequest, APIError{CodeNotPlaying, "Game is not being played"}},
	{model.ErrNotPlayerTurn, http.StatusBadRequest, APIError{CodeNotYourTurn, "Not your turn"}},
	{model.ErrActionAlreadyDone, http.StatusBadRequest, APIError{CodeActionAlreadyDone, "A map action was already made this turn"}},
	{model.ErrCellOccupied, http.StatusBadRequest, APIError{CodeCellOccupied, "Cell is already occupied"}},
	{model.ErrInsufficientFunds, http.StatusBadRequest, APIError{CodeInsufficientFunds, "Not enough money"}},

	// Concurrency and infrastructure
	{model.ErrConflict, http.StatusConflict, APIError{CodeConflict, "Too many concurrent updates, try again"}},
	{model.ErrVersionConflict, http.StatusConflict, APIError{CodeConflict, "Too many concurrent updates, try again"}},
	{model.ErrPlayerExists, http.StatusConflict, APIError{CodeConflict, "Player already exists"}},
	{model.ErrGameExists, http.StatusConflict, APIError{CodeConflict, "Game already exists"}},
	{model.ErrStoreUnavailable, http.StatusServiceUnavailable, APIError{CodeStoreUnavailable, "Store unavailable, try again later"}},
	{model.ErrCorruptRecord, http.StatusInternalServerError, APIError{CodeDatabaseError, "Error in database"}},
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	// Check for specific error types
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	var missing *model.MissingFieldError
	if errors.As(err, &missing) {
		return &httpError{http.StatusBadRequest, APIError{CodeMissingField, capitalize(missing.Error())}}
	}

	for _, m := range mapping {
		if errors.Is(err, m.err) {
			return &httpError{m.status, m.apiError}
		}
	}
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, strings.TrimSpace(message)}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
