package catalog

import (
	"sort"

	"github.com/osse101/cosmos-agent/internal/domain"
)

// Catalog is an immutable recipe lookup for one planning session. It answers
// "how is X made" (by output) and "what uses X" (by input).
type Catalog struct {
	byOutput   map[domain.ItemID]domain.Recipe
	usedIn     map[domain.ItemID][]domain.ItemID
	outputs    []domain.ItemID
	duplicates []domain.ItemID
}

// New builds a catalog. When two recipes share an output the first one wins
// and the output is recorded in Duplicates.
func New(recipes []domain.Recipe) *Catalog {
	c := &Catalog{
		byOutput: make(map[domain.ItemID]domain.Recipe, len(recipes)),
		usedIn:   make(map[domain.ItemID][]domain.ItemID),
	}

	for _, r := range recipes {
		if _, exists := c.byOutput[r.Output]; exists {
			c.duplicates = append(c.duplicates, r.Output)
			continue
		}
		inputs := make([]domain.RecipeInput, len(r.Inputs))
		copy(inputs, r.Inputs)
		c.byOutput[r.Output] = domain.Recipe{Output: r.Output, Inputs: inputs}
		c.outputs = append(c.outputs, r.Output)

		for _, in := range inputs {
			c.usedIn[in.ItemID] = appendUnique(c.usedIn[in.ItemID], r.Output)
		}
	}

	sort.Slice(c.outputs, func(i, j int) bool { return c.outputs[i] < c.outputs[j] })
	return c
}

// Recipe returns the recipe producing item, if the item is craftable
func (c *Catalog) Recipe(item domain.ItemID) (domain.Recipe, bool) {
	r, ok := c.byOutput[item]
	return r, ok
}

// Craftable reports whether a recipe exists for item
func (c *Catalog) Craftable(item domain.ItemID) bool {
	_, ok := c.byOutput[item]
	return ok
}

// UsedIn returns the outputs of every recipe consuming item
func (c *Catalog) UsedIn(item domain.ItemID) []domain.ItemID {
	out := make([]domain.ItemID, len(c.usedIn[item]))
	copy(out, c.usedIn[item])
	return out
}

// Recipes returns every recipe ordered by output ID
func (c *Catalog) Recipes() []domain.Recipe {
	out := make([]domain.Recipe, 0, len(c.outputs))
	for _, id := range c.outputs {
		out = append(out, c.byOutput[id])
	}
	return out
}

// Len returns the number of distinct recipes
func (c *Catalog) Len() int {
	return len(c.outputs)
}

// Duplicates returns outputs that had more than one recipe (later ones ignored)
func (c *Catalog) Duplicates() []domain.ItemID {
	out := make([]domain.ItemID, len(c.duplicates))
	copy(out, c.duplicates)
	return out
}

func appendUnique(ids []domain.ItemID, id domain.ItemID) []domain.ItemID {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
