package land

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/osse101/cosmos-agent/internal/catalog"
	"github.com/osse101/cosmos-agent/internal/domain"
)

const (
	emptyCell    = "."
	maxCellWidth = 12
)

// Grid holds the visible occupant of every cell of a land: the topmost item,
// ties broken by the latest placement.
type Grid struct {
	LandID domain.LandID
	Size   int
	cells  map[domain.Coord]domain.PlacedItem
}

// NewGrid reduces placed items to one visible occupant per cell. Items placed
// outside the grid are ignored.
func NewGrid(landID domain.LandID, items []domain.PlacedItem) *Grid {
	g := &Grid{
		LandID: landID,
		Size:   domain.GridSize,
		cells:  make(map[domain.Coord]domain.PlacedItem, len(items)),
	}
	for _, item := range items {
		c := item.Coord()
		if !c.InBounds(g.Size) {
			continue
		}
		if current, ok := g.cells[c]; !ok || item.Above(current) {
			g.cells[c] = item
		}
	}
	return g
}

// Occupant returns the visible item at c
func (g *Grid) Occupant(c domain.Coord) (domain.PlacedItem, bool) {
	item, ok := g.cells[c]
	return item, ok
}

// Occupants returns every visible item ordered by row then column
func (g *Grid) Occupants() []domain.PlacedItem {
	out := make([]domain.PlacedItem, 0, len(g.cells))
	for _, item := range g.cells {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}

// Rows returns the Size x Size item id matrix indexed [y][x]; empty cells
// hold domain.EmptyItem
func (g *Grid) Rows() [][]domain.ItemID {
	rows := make([][]domain.ItemID, g.Size)
	for y := range rows {
		rows[y] = make([]domain.ItemID, g.Size)
		for x := range rows[y] {
			if item, ok := g.cells[domain.Coord{X: x, Y: y}]; ok {
				rows[y][x] = item.ItemID
			}
		}
	}
	return rows
}

// Render draws the grid as an aligned text table with item names
func (g *Grid) Render(names catalog.ItemNames) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Land %d\n", g.LandID)

	w := tabwriter.NewWriter(&b, 0, 0, 1, ' ', 0)
	header := make([]string, 0, g.Size+1)
	header = append(header, "y\\x")
	for x := 0; x < g.Size; x++ {
		header = append(header, fmt.Sprint(x))
	}
	fmt.Fprintln(w, strings.Join(header, "\t"))

	for y, row := range g.Rows() {
		cells := make([]string, 0, g.Size+1)
		cells = append(cells, fmt.Sprint(y))
		for _, id := range row {
			cells = append(cells, cellLabel(id, names))
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	_ = w.Flush()
	return b.String()
}

func cellLabel(id domain.ItemID, names catalog.ItemNames) string {
	if id == domain.EmptyItem {
		return emptyCell
	}
	label := []rune(strings.ReplaceAll(names.DisplayName(id), " ", ""))
	if len(label) > maxCellWidth {
		label = label[:maxCellWidth]
	}
	return string(label)
}
