package domain

// RecipeInput is a single material requirement for a recipe
type RecipeInput struct {
	ItemID   ItemID `json:"item_id" yaml:"item_id"`
	Quantity int    `json:"quantity" yaml:"quantity"`
}

// Recipe produces exactly one unit of Output per craft call, consuming Inputs
// in the listed order.
type Recipe struct {
	Output ItemID        `json:"output" yaml:"output"`
	Inputs []RecipeInput `json:"inputs" yaml:"inputs"`
}

// Requires returns the quantity of item the recipe consumes, 0 if none
func (r Recipe) Requires(item ItemID) int {
	total := 0
	for _, in := range r.Inputs {
		if in.ItemID == item {
			total += in.Quantity
		}
	}
	return total
}
