package crafting

import (
	"fmt"

	"github.com/osse101/cosmos-agent/internal/catalog"
	"github.com/osse101/cosmos-agent/internal/domain"
)

// ExpectedInventory applies plan to a copy of inv: every operation consumes
// its recipe inputs and adds one unit of its output. It fails if an operation
// has no recipe or runs short of an input, which means the plan is not
// executable against inv.
func ExpectedInventory(plan domain.Plan, inv domain.Inventory, cat *catalog.Catalog) (domain.Inventory, error) {
	out := inv.Clone()
	for i, op := range plan.Operations {
		recipe, ok := cat.Recipe(op.ItemID)
		if !ok {
			return nil, fmt.Errorf("%w: step %d: %s for item %d", domain.ErrInvalidInput, i, domain.ErrMsgRecipeNotFound, op.ItemID)
		}
		for _, in := range recipe.Inputs {
			if !out.Take(in.ItemID, in.Quantity) {
				return nil, fmt.Errorf("%w: step %d: crafting item %d needs %d of item %d, have %d",
					domain.ErrInvalidInput, i, op.ItemID, in.Quantity, in.ItemID, out.Quantity(in.ItemID))
			}
		}
		out.Add(op.ItemID, 1)
	}
	return out, nil
}
