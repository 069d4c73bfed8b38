package redis

import (
	"fmt"

	"github.com/mcoot/bubble/internal/model"
)

// Key prefix for all game-related data
const keyPrefix = "bubble"

// playerKey returns the Redis key for a Player
func playerKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:player:%s", keyPrefix, id)
}

// gameKey returns the Redis key for a Game
func gameKey(id model.GameID) string {
	return fmt.Sprintf("%s:game:%s", keyPrefix, id)
}

// gameKeyPattern matches every game key for SCAN
func gameKeyPattern() string {
	return fmt.Sprintf("%s:game:*", keyPrefix)
}
