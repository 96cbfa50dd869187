package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/osse101/cosmos-agent/internal/catalog"
	"github.com/osse101/cosmos-agent/internal/chain"
	"github.com/osse101/cosmos-agent/internal/crafting"
	"github.com/osse101/cosmos-agent/internal/domain"
	"github.com/osse101/cosmos-agent/internal/unlock"
)

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writePlan(w io.Writer, plan domain.Plan, names catalog.ItemNames) {
	target := names.DisplayName(plan.Target)
	if plan.IsEmpty() {
		fmt.Fprintf(w, "%dx %s already owned, nothing to craft\n", plan.Quantity, target)
		return
	}
	fmt.Fprintf(w, "Plan for %dx %s (%d crafts)\n", plan.Quantity, target, plan.Len())
	for i, op := range plan.Operations {
		fmt.Fprintf(w, "  %2d. %s\n", i+1, names.DisplayName(op.ItemID))
	}
}

// previewJSON is the -json shape of a plan preview
type previewJSON struct {
	Plan              domain.Plan                `json:"plan"`
	ExpectedInventory []catalog.InventoryLine    `json:"expected_inventory"`
	Changes           []crafting.InventoryChange `json:"changes"`
}

func writePreview(w io.Writer, p crafting.Preview, names catalog.ItemNames, asJSON bool) error {
	if asJSON {
		return writeJSON(w, previewJSON{
			Plan:              p.Plan,
			ExpectedInventory: names.Lines(p.Expected),
			Changes:           p.Changes(),
		})
	}
	writePlan(w, p.Plan, names)
	changes := p.Changes()
	if len(changes) == 0 {
		return nil
	}
	fmt.Fprintln(w, "Expected inventory")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, c := range changes {
		fmt.Fprintf(tw, "  %s\t%d -> %d\n", names.DisplayName(c.ItemID), c.Before, c.After)
	}
	return tw.Flush()
}

func writeInventory(w io.Writer, landID domain.LandID, lines []catalog.InventoryLine) {
	if len(lines) == 0 {
		fmt.Fprintf(w, "Land %d inventory is empty\n", landID)
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tITEM\tQUANTITY")
	for _, l := range lines {
		fmt.Fprintf(tw, "%d\t%s\t%d\n", l.ItemID, l.Name, l.Quantity)
	}
	_ = tw.Flush()
}

func writeRecipe(w io.Writer, info crafting.RecipeInfo) {
	fmt.Fprintf(w, "%s (#%d), owned %d\n", info.Name, info.ItemID, info.Owned)
	if info.Craftable {
		fmt.Fprintf(w, "  requires: %s\n", info.Requirements)
		fmt.Fprintf(w, "  craftable now: %d\n", info.MaxQuantity)
	} else {
		fmt.Fprintln(w, "  no recipe")
	}
	if len(info.UsedIn) == 0 {
		fmt.Fprintln(w, "  used in: nothing")
		return
	}
	parts := make([]string, len(info.UsedIn))
	for i, u := range info.UsedIn {
		parts[i] = u.Name
	}
	fmt.Fprintf(w, "  used in: %s\n", strings.Join(parts, ", "))
}

func writeReceipt(w io.Writer, receipt *chain.Receipt) {
	switch {
	case receipt == nil:
		return
	case !receipt.Confirmed:
		fmt.Fprintf(w, "submitted %s\n", receipt.TxHash.Hex())
	case receipt.Succeeded():
		fmt.Fprintf(w, "confirmed %s in block %d (gas %d)\n", receipt.TxHash.Hex(), receipt.BlockNumber, receipt.GasUsed)
	default:
		fmt.Fprintf(w, "reverted %s in block %d\n", receipt.TxHash.Hex(), receipt.BlockNumber)
	}
}

func writeCraftable(w io.Writer, entries []crafting.CraftableEntry) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tITEM\tMAX\tREQUIRES")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", e.ItemID, e.Name, e.MaxQuantity, e.Requirements)
	}
	_ = tw.Flush()
}

func writeReport(w io.Writer, r unlock.CycleReport) {
	fmt.Fprintf(w, "Land %d at %s\n", r.LandID, r.ChainTime.UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "  unlocked: %s\n", coordList(r.Unlocked))
	if len(r.Skipped) > 0 {
		fmt.Fprintf(w, "  skipped:  %s\n", coordList(r.Skipped))
	}
	for _, f := range r.Failed {
		fmt.Fprintf(w, "  failed:   %s item %d: %s\n", f.Coord, f.ItemID, f.Error)
	}
	if r.Interrupted {
		fmt.Fprintf(w, "  interrupted, not attempted: %s\n", coordList(r.Pending))
	}
	if r.HasNextUnlock() {
		fmt.Fprintf(w, "  next unlock %s (wait %s)\n", r.NextUnlock.UTC().Format(time.RFC3339), r.Wait)
	} else {
		fmt.Fprintln(w, "  nothing pending")
	}
}

func coordList(coords []domain.Coord) string {
	if len(coords) == 0 {
		return "none"
	}
	parts := make([]string, len(coords))
	for i, c := range coords {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

func writeSelectors(w io.Writer, table chain.SelectorTable) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SELECTOR\tCONTRACT\tERROR")
	for _, sel := range sortedSelectors(table) {
		ref := table[sel]
		fmt.Fprintf(tw, "0x%s\t%s\t%s\n", sel, ref.Contract, ref.Signature)
	}
	_ = tw.Flush()
}
