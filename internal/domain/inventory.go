package domain

import "sort"

// InventoryRow is one inventory row as returned by the world state reader
type InventoryRow struct {
	ItemID   ItemID `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// Inventory maps an item to the owned quantity. Quantities are never negative;
// missing items have quantity 0.
type Inventory map[ItemID]int

// NewInventory builds an inventory from reader rows, summing duplicates and
// dropping non-positive quantities.
func NewInventory(rows []InventoryRow) Inventory {
	inv := make(Inventory, len(rows))
	for _, row := range rows {
		if row.Quantity <= 0 {
			continue
		}
		inv[row.ItemID] += row.Quantity
	}
	return inv
}

// Quantity returns the owned quantity of item
func (inv Inventory) Quantity(item ItemID) int {
	return inv[item]
}

// Clone returns an independent copy
func (inv Inventory) Clone() Inventory {
	out := make(Inventory, len(inv))
	for id, qty := range inv {
		out[id] = qty
	}
	return out
}

// Take removes n units of item if available and reports whether it did
func (inv Inventory) Take(item ItemID, n int) bool {
	if inv[item] < n {
		return false
	}
	inv[item] -= n
	if inv[item] == 0 {
		delete(inv, item)
	}
	return true
}

// Add adds n units of item
func (inv Inventory) Add(item ItemID, n int) {
	if n <= 0 {
		return
	}
	inv[item] += n
}

// Rows returns the inventory as rows sorted by item ID
func (inv Inventory) Rows() []InventoryRow {
	rows := make([]InventoryRow, 0, len(inv))
	for id, qty := range inv {
		rows = append(rows, InventoryRow{ItemID: id, Quantity: qty})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].ItemID < rows[j].ItemID
	})
	return rows
}
