package crafting

import (
	"github.com/osse101/cosmos-agent/internal/catalog"
	"github.com/osse101/cosmos-agent/internal/domain"
)

// RecipeUse names a recipe that consumes an item
type RecipeUse struct {
	ItemID domain.ItemID `json:"item_id"`
	Name   string        `json:"name"`
}

// RecipeInfo describes one item: how it is crafted, how many units the
// inventory allows now, and which recipes consume it.
type RecipeInfo struct {
	ItemID       domain.ItemID `json:"item_id"`
	Name         string        `json:"name"`
	Owned        int           `json:"owned"`
	Craftable    bool          `json:"craftable"`
	Requirements string        `json:"requirements,omitempty"`
	MaxQuantity  int           `json:"max_quantity"`
	UsedIn       []RecipeUse   `json:"used_in"`
}

// DescribeItem builds the RecipeInfo of item. Items without a recipe are
// still described so that raw materials show where they are used.
func DescribeItem(item domain.ItemID, inv domain.Inventory, cat *catalog.Catalog, names catalog.ItemNames) RecipeInfo {
	info := RecipeInfo{
		ItemID: item,
		Name:   names.DisplayName(item),
		Owned:  inv.Quantity(item),
	}
	if r, ok := cat.Recipe(item); ok {
		info.Craftable = true
		info.Requirements = DescribeRequirements(r, names)
		info.MaxQuantity = MaxCraftable(r, inv)
	}

	uses := cat.UsedIn(item)
	info.UsedIn = make([]RecipeUse, len(uses))
	for i, id := range uses {
		info.UsedIn[i] = RecipeUse{ItemID: id, Name: names.DisplayName(id)}
	}
	return info
}
