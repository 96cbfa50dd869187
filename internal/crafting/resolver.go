package crafting

import (
	"fmt"

	"github.com/osse101/cosmos-agent/internal/catalog"
	"github.com/osse101/cosmos-agent/internal/domain"
)

// Resolver turns "craft N of X" into a dependency-ordered plan of one-unit
// craft operations.
//
// The walk is depth-first against a simulated copy of the inventory. Owned
// units are consumed greedily in call order; there is no reservation or
// backtracking, so a sibling that asks first wins. A crafted unit is consumed
// by whoever asked for it and never stockpiled.
type Resolver struct {
	maxSteps int
}

// Option configures a Resolver
type Option func(*Resolver)

// WithMaxSteps caps the plan length. Zero or negative disables the cap.
func WithMaxSteps(n int) Option {
	return func(r *Resolver) {
		r.maxSteps = n
	}
}

// NewResolver creates a resolver with DefaultMaxPlanSteps unless overridden
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{maxSteps: DefaultMaxPlanSteps}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve plans quantity units of target. The caller's inventory is never
// mutated. Any unreachable input aborts the whole plan with a
// *domain.PlanningGapError; no partial plan is returned.
func (r *Resolver) Resolve(target domain.ItemID, quantity int, inv domain.Inventory, cat *catalog.Catalog) (domain.Plan, error) {
	plan := domain.Plan{Target: target, Quantity: quantity}
	if quantity < 0 {
		return plan, fmt.Errorf("%w: quantity must not be negative (got %d)", domain.ErrInvalidInput, quantity)
	}
	if quantity == 0 {
		return plan, nil
	}
	if cat == nil {
		return plan, fmt.Errorf("%w: recipe catalog is required", domain.ErrInvalidInput)
	}

	w := &walk{
		target:   target,
		cat:      cat,
		sim:      inv.Clone(),
		onPath:   make(map[domain.ItemID]bool),
		maxSteps: r.maxSteps,
	}
	for i := 0; i < quantity; i++ {
		if err := w.satisfy(target); err != nil {
			return domain.Plan{Target: target, Quantity: quantity}, err
		}
	}

	plan.Operations = w.ops
	return plan, nil
}

// Resolve plans with a default resolver
func Resolve(target domain.ItemID, quantity int, inv domain.Inventory, cat *catalog.Catalog) (domain.Plan, error) {
	return NewResolver().Resolve(target, quantity, inv, cat)
}

type walk struct {
	target   domain.ItemID
	cat      *catalog.Catalog
	sim      domain.Inventory
	ops      []domain.CraftOperation
	path     []domain.ItemID
	onPath   map[domain.ItemID]bool
	maxSteps int
}

// satisfy obtains one unit of item for its caller
func (w *walk) satisfy(item domain.ItemID) error {
	if w.sim.Take(item, 1) {
		return nil
	}

	recipe, ok := w.cat.Recipe(item)
	if !ok {
		return w.gap(item, domain.GapNoRecipe)
	}
	if w.onPath[item] {
		return w.gap(item, domain.GapCycle)
	}

	w.onPath[item] = true
	w.path = append(w.path, item)
	defer func() {
		w.path = w.path[:len(w.path)-1]
		delete(w.onPath, item)
	}()

	for _, in := range recipe.Inputs {
		if in.Quantity <= 0 {
			return w.gap(in.ItemID, domain.GapInvalidInput)
		}
		for n := 0; n < in.Quantity; n++ {
			if err := w.satisfy(in.ItemID); err != nil {
				return err
			}
		}
	}

	if w.maxSteps > 0 && len(w.ops) >= w.maxSteps {
		return w.gap(item, domain.GapPlanTooLong)
	}
	w.ops = append(w.ops, domain.CraftOperation{ItemID: item})
	return nil
}

func (w *walk) gap(missing domain.ItemID, reason domain.GapReason) error {
	path := make([]domain.ItemID, 0, len(w.path)+1)
	path = append(path, w.path...)
	if len(path) == 0 || path[len(path)-1] != missing {
		path = append(path, missing)
	}
	return &domain.PlanningGapError{
		Target:  w.target,
		Missing: missing,
		Path:    path,
		Reason:  reason,
	}
}
