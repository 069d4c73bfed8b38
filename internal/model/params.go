package model

import (
	"errors"
	"fmt"
)

// GameParams holds the global rules every game is played with
type GameParams struct {
	StartYear    int   `json:"start_year"`
	InitialMoney int64 `json:"initial_money"`

	// MapSizes is indexed by player count minus one
	MapSizes []int `json:"map_size"`

	// TurnsPerYear is how many full rotations make up one game year
	TurnsPerYear int `json:"turns_per_year"`
	// YearsPerGame ends the game after that many years; 0 never ends it
	YearsPerGame int `json:"years_per_game"`

	MaxLevel int `json:"max_level"`
	// BuildCosts is the price of one level of each building type
	BuildCosts map[BuildingType]int64 `json:"build_costs"`
}

// DefaultGameParams returns the default game rules
func DefaultGameParams() GameParams {
	return GameParams{
		StartYear:    1950,
		InitialMoney: 10000,
		MapSizes:     []int{6, 8, 10, 12},
		TurnsPerYear: 4,
		YearsPerGame: 25,
		MaxLevel:     3,
		BuildCosts: map[BuildingType]int64{
			BuildingResidential: 1000,
			BuildingCommercial:  1500,
			BuildingIndustrial:  2500,
			BuildingPark:        500,
		},
	}
}

// MapSizeFor returns the map side length for a game with the given player count
func (p GameParams) MapSizeFor(players int) (int, error) {
	if players < 1 || players > len(p.MapSizes) {
		return 0, fmt.Errorf("no map size configured for %d players", players)
	}
	return p.MapSizes[players-1], nil
}

// LevelCost returns the price of the given number of levels of a building type
func (p GameParams) LevelCost(bt BuildingType, levels int) int64 {
	return p.BuildCosts[bt] * int64(levels)
}

// Validate checks the parameters are usable
func (p GameParams) Validate() error {
	if len(p.MapSizes) < MaxPlayers {
		return fmt.Errorf("map_size needs %d entries, got %d", MaxPlayers, len(p.MapSizes))
	}
	for i, size := range p.MapSizes {
		if size <= 0 {
			return fmt.Errorf("map_size[%d] must be positive", i)
		}
	}
	if p.InitialMoney < 0 {
		return errors.New("initial_money must not be negative")
	}
	if p.TurnsPerYear <= 0 {
		return errors.New("turns_per_year must be positive")
	}
	if p.YearsPerGame < 0 {
		return errors.New("years_per_game must not be negative")
	}
	if p.MaxLevel <= 0 {
		return errors.New("max_level must be positive")
	}
	for _, bt := range ValidBuildingTypes() {
		if p.BuildCosts[bt] < 0 {
			return fmt.Errorf("build cost for %s must not be negative", bt)
		}
		if _, ok := p.BuildCosts[bt]; !ok {
			return fmt.Errorf("missing build cost for %s", bt)
		}
	}
	return nil
}
