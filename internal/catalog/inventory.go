package catalog

import "github.com/osse101/cosmos-agent/internal/domain"

// InventoryLine is one owned item with its display name
type InventoryLine struct {
	ItemID   domain.ItemID `json:"item_id"`
	Name     string        `json:"name"`
	Quantity int           `json:"quantity"`
}

// Lines names every row of inv, ordered by item ID
func (n ItemNames) Lines(inv domain.Inventory) []InventoryLine {
	rows := inv.Rows()
	lines := make([]InventoryLine, len(rows))
	for i, row := range rows {
		lines[i] = InventoryLine{ItemID: row.ItemID, Name: n.DisplayName(row.ItemID), Quantity: row.Quantity}
	}
	return lines
}
