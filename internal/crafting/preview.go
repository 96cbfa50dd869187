package crafting

import (
	"sort"

	"github.com/osse101/cosmos-agent/internal/catalog"
	"github.com/osse101/cosmos-agent/internal/domain"
)

// Preview is a resolved plan with the inventory it is expected to leave
type Preview struct {
	Plan     domain.Plan
	Before   domain.Inventory
	Expected domain.Inventory
}

// InventoryChange is the quantity of one item before and after a plan
type InventoryChange struct {
	ItemID domain.ItemID `json:"item_id"`
	Before int           `json:"before"`
	After  int           `json:"after"`
}

// Preview resolves quantity units of target and applies the plan to a copy of
// inv. inv is not mutated.
func (r *Resolver) Preview(target domain.ItemID, quantity int, inv domain.Inventory, cat *catalog.Catalog) (Preview, error) {
	plan, err := r.Resolve(target, quantity, inv, cat)
	if err != nil {
		return Preview{Plan: plan}, err
	}
	expected, err := ExpectedInventory(plan, inv, cat)
	if err != nil {
		return Preview{Plan: plan}, err
	}
	return Preview{Plan: plan, Before: inv.Clone(), Expected: expected}, nil
}

// Changes lists every item whose quantity the plan changes, ordered by item ID
func (p Preview) Changes() []InventoryChange {
	seen := make(map[domain.ItemID]bool, len(p.Before)+len(p.Expected))
	var changes []InventoryChange
	collect := func(inv domain.Inventory) {
		for id := range inv {
			if seen[id] {
				continue
			}
			seen[id] = true
			before, after := p.Before.Quantity(id), p.Expected.Quantity(id)
			if before != after {
				changes = append(changes, InventoryChange{ItemID: id, Before: before, After: after})
			}
		}
	}
	collect(p.Before)
	collect(p.Expected)

	sort.Slice(changes, func(i, j int) bool { return changes[i].ItemID < changes[j].ItemID })
	return changes
}
