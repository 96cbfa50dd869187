package domain

import (
	"fmt"
	"time"
)

// ItemID identifies an item type in the world's item table.
// Zero is the empty sentinel (no item / no trigger input).
type ItemID int

// EmptyItem is the sentinel used by the world for "no item".
const EmptyItem ItemID = 0

// LandID identifies a player's land (the land NFT token id)
type LandID int64

// Coord is a cell on a land grid
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// InBounds reports whether the coordinate lies on a size x size grid
func (c Coord) InBounds(size int) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < size && c.Y < size
}

// PlacedItem is one item placed on a land. Several placed items may share a
// cell; they are stacked by elevation (Z).
type PlacedItem struct {
	LandID        LandID    `json:"land_id"`
	X             int       `json:"x"`
	Y             int       `json:"y"`
	Z             int       `json:"z"`
	ItemID        ItemID    `json:"item_id"`
	PlacementTime time.Time `json:"placement_time"`
}

// Coord returns the cell the item is placed on
func (p PlacedItem) Coord() Coord {
	return Coord{X: p.X, Y: p.Y}
}

// Above reports whether p is stacked above other: higher elevation wins,
// ties go to the most recent placement.
func (p PlacedItem) Above(other PlacedItem) bool {
	if p.Z != other.Z {
		return p.Z > other.Z
	}
	return p.PlacementTime.After(other.PlacementTime)
}
