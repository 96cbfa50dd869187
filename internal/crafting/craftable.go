package crafting

import (
	"fmt"
	"strings"

	"github.com/osse101/cosmos-agent/internal/catalog"
	"github.com/osse101/cosmos-agent/internal/domain"
)

// CraftableEntry reports how many units of an item the inventory can craft
// directly, without crafting any intermediate.
type CraftableEntry struct {
	ItemID       domain.ItemID `json:"item_id"`
	Name         string        `json:"name"`
	MaxQuantity  int           `json:"max_quantity"`
	Requirements string        `json:"requirements"`
}

// Craftable evaluates every recipe against inv. It is pure and sorted by
// item ID. Names may be the zero value.
func Craftable(inv domain.Inventory, cat *catalog.Catalog, names catalog.ItemNames) []CraftableEntry {
	recipes := cat.Recipes()
	entries := make([]CraftableEntry, 0, len(recipes))
	for _, r := range recipes {
		entries = append(entries, CraftableEntry{
			ItemID:       r.Output,
			Name:         names.DisplayName(r.Output),
			MaxQuantity:  MaxCraftable(r, inv),
			Requirements: DescribeRequirements(r, names),
		})
	}
	return entries
}

// CraftableNow keeps only entries with MaxQuantity > 0
func CraftableNow(inv domain.Inventory, cat *catalog.Catalog, names catalog.ItemNames) []CraftableEntry {
	all := Craftable(inv, cat, names)
	out := make([]CraftableEntry, 0, len(all))
	for _, e := range all {
		if e.MaxQuantity > 0 {
			out = append(out, e)
		}
	}
	return out
}

// MaxCraftable returns min over inputs of floor(available / required). An
// input with nothing available, or a recipe without inputs, yields 0.
func MaxCraftable(r domain.Recipe, inv domain.Inventory) int {
	if len(r.Inputs) == 0 {
		return 0
	}

	required := make(map[domain.ItemID]int, len(r.Inputs))
	for _, in := range r.Inputs {
		if in.Quantity <= 0 {
			return 0
		}
		required[in.ItemID] += in.Quantity
	}

	best := -1
	for item, need := range required {
		have := inv.Quantity(item)
		if have == 0 {
			return 0
		}
		n := have / need
		if best < 0 || n < best {
			best = n
		}
	}
	return best
}

// DescribeRequirements renders recipe inputs like "2x Wood + 1x Stone"
func DescribeRequirements(r domain.Recipe, names catalog.ItemNames) string {
	if len(r.Inputs) == 0 {
		return RequirementNone
	}
	parts := make([]string, len(r.Inputs))
	for i, in := range r.Inputs {
		parts[i] = fmt.Sprintf(RequirementFmt, in.Quantity, names.DisplayName(in.ItemID))
	}
	return strings.Join(parts, RequirementSeparator)
}
