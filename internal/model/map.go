package model

import (
	"fmt"
	"strconv"
	"strings"
)

// BuildingType is the kind of building standing on a cell
type BuildingType string

const (
	BuildingResidential BuildingType = "RESIDENTIAL"
	BuildingCommercial  BuildingType = "COMMERCIAL"
	BuildingIndustrial  BuildingType = "INDUSTRIAL"
	BuildingPark        BuildingType = "PARK"
)

// ValidBuildingTypes returns all building kinds
func ValidBuildingTypes() []BuildingType {
	return []BuildingType{BuildingResidential, BuildingCommercial, BuildingIndustrial, BuildingPark}
}

// ParseBuildingType parses a building kind, case-insensitively
func ParseBuildingType(s string) (BuildingType, error) {
	bt := BuildingType(strings.ToUpper(strings.TrimSpace(s)))
	for _, valid := range ValidBuildingTypes() {
		if bt == valid {
			return bt, nil
		}
	}
	return "", ErrInvalidBuildingType
}

// Coordinates identifies a cell on the map
type Coordinates struct {
	X int `json:"x"` // 0-indexed column
	Y int `json:"y"` // 0-indexed row
}

// ParseCoordinates parses the "x,y" wire format
func ParseCoordinates(s string) (Coordinates, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return Coordinates{}, ErrInvalidCoordinates
	}
	x, err := strconv.Atoi(strings.TrimSpace(xs))
	if err != nil {
		return Coordinates{}, ErrInvalidCoordinates
	}
	y, err := strconv.Atoi(strings.TrimSpace(ys))
	if err != nil {
		return Coordinates{}, ErrInvalidCoordinates
	}
	return Coordinates{X: x, Y: y}, nil
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%d,%d", c.X, c.Y)
}

// Cell is one map tile. All fields are nil while the tile is empty.
type Cell struct {
	Type  *BuildingType `json:"type"`
	Level *int          `json:"level"`
	Owner *PlayerID     `json:"owner"`
}

// IsEmpty returns true if nothing is built on the cell
func (c Cell) IsEmpty() bool {
	return c.Type == nil
}

// IsOwnedBy returns true if the cell belongs to the given player
func (c Cell) IsOwnedBy(playerID PlayerID) bool {
	return c.Owner != nil && *c.Owner == playerID
}

// CurrentLevel returns the building level, 0 when empty
func (c Cell) CurrentLevel() int {
	if c.Level == nil {
		return 0
	}
	return *c.Level
}

// Map is a square grid of cells, row-major: Map[y][x]
type Map [][]Cell

// NewMap allocates a size x size grid of empty cells
func NewMap(size int) Map {
	m := make(Map, size)
	for i := range m {
		m[i] = make([]Cell, size)
	}
	return m
}

// Size returns the side length of the map
func (m Map) Size() int {
	return len(m)
}

// InBounds returns true if the coordinates are within the map
func (m Map) InBounds(c Coordinates) bool {
	return c.X >= 0 && c.X < len(m) && c.Y >= 0 && c.Y < len(m)
}

// Get returns the cell at the given coordinates, or an empty cell when out of bounds
func (m Map) Get(c Coordinates) Cell {
	if !m.InBounds(c) {
		return Cell{}
	}
	return m[c.Y][c.X]
}

// Build places a building on the cell
func (m Map) Build(c Coordinates, bt BuildingType, level int, owner PlayerID) {
	if m.InBounds(c) {
		m[c.Y][c.X] = Cell{Type: &bt, Level: &level, Owner: &owner}
	}
}

// SetLevel changes the level of the building on the cell
func (m Map) SetLevel(c Coordinates, level int) {
	if m.InBounds(c) {
		m[c.Y][c.X].Level = &level
	}
}

// Clear empties the cell
func (m Map) Clear(c Coordinates) {
	if m.InBounds(c) {
		m[c.Y][c.X] = Cell{}
	}
}

// IsEmpty returns true if every cell is empty
func (m Map) IsEmpty() bool {
	for _, row := range m {
		for _, cell := range row {
			if !cell.IsEmpty() {
				return false
			}
		}
	}
	return true
}

// OwnedCount returns the number of cells owned by the player
func (m Map) OwnedCount(playerID PlayerID) int {
	count := 0
	for _, row := range m {
		for _, cell := range row {
			if cell.IsOwnedBy(playerID) {
				count++
			}
		}
	}
	return count
}

// Clone returns a deep copy of the map
func (m Map) Clone() Map {
	if m == nil {
		return nil
	}
	c := make(Map, len(m))
	for y, row := range m {
		c[y] = make([]Cell, len(row))
		for x, cell := range row {
			c[y][x] = cell.clone()
		}
	}
	return c
}

func (c Cell) clone() Cell {
	var out Cell
	if c.Type != nil {
		t := *c.Type
		out.Type = &t
	}
	if c.Level != nil {
		l := *c.Level
		out.Level = &l
	}
	if c.Owner != nil {
		o := *c.Owner
		out.Owner = &o
	}
	return out
}
