package domain

// CraftOperation crafts exactly one unit of ItemID, matching the contract's
// one-unit-per-call semantics.
type CraftOperation struct {
	ItemID ItemID `json:"item_id"`
}

// Plan is a dependency-ordered sequence of craft operations: every operation
// producing an input of a later operation appears before it.
type Plan struct {
	Target     ItemID           `json:"target"`
	Quantity   int              `json:"quantity"`
	Operations []CraftOperation `json:"operations"`
}

// Len returns the number of craft operations
func (p Plan) Len() int {
	return len(p.Operations)
}

// IsEmpty reports whether the plan requires no on-chain action
func (p Plan) IsEmpty() bool {
	return len(p.Operations) == 0
}

// Counts returns the number of crafts per item
func (p Plan) Counts() map[ItemID]int {
	counts := make(map[ItemID]int)
	for _, op := range p.Operations {
		counts[op.ItemID]++
	}
	return counts
}
