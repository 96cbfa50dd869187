package crafting

import (
	"github.com/osse101/cosmos-agent/internal/catalog"
	"github.com/osse101/cosmos-agent/internal/domain"
)

const (
	itemWood   domain.ItemID = 1
	itemStone  domain.ItemID = 2
	itemPlank  domain.ItemID = 3
	itemTable  domain.ItemID = 4
	itemChair  domain.ItemID = 5
	itemDining domain.ItemID = 6
	itemGem    domain.ItemID = 7
	itemLoopA  domain.ItemID = 8
	itemLoopB  domain.ItemID = 9
)

func in(item domain.ItemID, qty int) domain.RecipeInput {
	return domain.RecipeInput{ItemID: item, Quantity: qty}
}

// furnitureCatalog:
//
//	Plank  <- 2 Wood
//	Table  <- 2 Plank + 1 Stone
//	Chair  <- 1 Plank
//	Dining <- 1 Table + 2 Chair
//	LoopA  <- 1 LoopB, LoopB <- 1 LoopA
func furnitureCatalog() *catalog.Catalog {
	return catalog.New([]domain.Recipe{
		{Output: itemPlank, Inputs: []domain.RecipeInput{in(itemWood, 2)}},
		{Output: itemTable, Inputs: []domain.RecipeInput{in(itemPlank, 2), in(itemStone, 1)}},
		{Output: itemChair, Inputs: []domain.RecipeInput{in(itemPlank, 1)}},
		{Output: itemDining, Inputs: []domain.RecipeInput{in(itemTable, 1), in(itemChair, 2)}},
		{Output: itemLoopA, Inputs: []domain.RecipeInput{in(itemLoopB, 1)}},
		{Output: itemLoopB, Inputs: []domain.RecipeInput{in(itemLoopA, 1)}},
	})
}

func testNames() catalog.ItemNames {
	return catalog.NewItemNames(map[domain.ItemID]string{
		itemWood:  "wood",
		itemStone: "stone",
		itemPlank: "plank",
		itemTable: "table",
		itemChair: "chair",
	})
}

func opItems(plan domain.Plan) []domain.ItemID {
	out := make([]domain.ItemID, len(plan.Operations))
	for i, op := range plan.Operations {
		out[i] = op.ItemID
	}
	return out
}
