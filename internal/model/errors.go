package model

import (
	"errors"
	"fmt"
)

// Common errors used across the application
var (
	// Validation errors
	ErrUnknownAction       = errors.New("unknown action")
	ErrInvalidAmount       = errors.New("amount must be a positive integer")
	ErrInvalidCoordinates  = errors.New("coordinates must be formatted as x,y")
	ErrInvalidLevel        = errors.New("invalid building level")
	ErrInvalidBuildingType = errors.New("invalid building type")
	ErrOutOfBounds         = errors.New("coordinates are outside the map")
	ErrPasswordTooLong     = errors.New("password is too long")

	// Auth errors
	ErrUserNotExist      = errors.New("user does not exist")
	ErrIncorrectPassword = errors.New("password is incorrect")
	ErrNotOwner          = errors.New("user is not owner")
	ErrNotCellOwner      = fmt.Errorf("%w of cell", ErrNotOwner)
	ErrNotMember         = errors.New("user is not in game")

	// Not found errors
	ErrGameNotFound   = errors.New("game_id does not exist")
	ErrPlayerNotFound = errors.New("player_id does not exist")

	// State errors
	ErrAlreadyInGame     = errors.New("user is already in a game")
	ErrNotWaiting        = errors.New("game is not waiting for players")
	ErrGameFull          = errors.New("game is full")
	ErrAlreadyStarted    = errors.New("game has already started")
	ErrNotPlaying        = errors.New("game is not being played")
	ErrNotPlayerTurn     = errors.New("not this player's turn")
	ErrActionAlreadyDone = errors.New("player has already acted on the map this turn")
	ErrCellOccupied      = errors.New("cell is already occupied")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrPlayerExists      = errors.New("player already exists")
	ErrGameExists        = errors.New("game already exists")

	// Concurrency errors
	ErrVersionConflict = errors.New("record was modified concurrently")
	ErrConflict        = errors.New("too many concurrent updates, try again")

	// Infrastructure errors
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrCorruptRecord    = errors.New("error in database")
)

// MissingFieldError reports a required request field that is absent or empty
type MissingFieldError struct {
	Field string
	Empty bool // present but blank
}

func (e *MissingFieldError) Error() string {
	if e.Empty {
		return e.Field + " can't be empty"
	}
	return e.Field + " is missing in request"
}

// MissingField creates a MissingFieldError for an absent field
func MissingField(field string) error {
	return &MissingFieldError{Field: field}
}

// EmptyField creates a MissingFieldError for a blank field
func EmptyField(field string) error {
	return &MissingFieldError{Field: field, Empty: true}
}
