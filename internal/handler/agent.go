package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/osse101/cosmos-agent/internal/catalog"
	"github.com/osse101/cosmos-agent/internal/chain"
	"github.com/osse101/cosmos-agent/internal/crafting"
	"github.com/osse101/cosmos-agent/internal/domain"
	"github.com/osse101/cosmos-agent/internal/journal"
	"github.com/osse101/cosmos-agent/internal/land"
	"github.com/osse101/cosmos-agent/internal/logger"
	"github.com/osse101/cosmos-agent/internal/unlock"
)

// Agent is the slice of the session the HTTP surface drives
type Agent interface {
	LandID() domain.LandID
	Names() catalog.ItemNames
	Preview(ctx context.Context, target domain.ItemID, quantity int) (crafting.Preview, error)
	Craftable(ctx context.Context) ([]crafting.CraftableEntry, error)
	CraftableNow(ctx context.Context) ([]crafting.CraftableEntry, error)
	Recipe(ctx context.Context, item domain.ItemID) (crafting.RecipeInfo, error)
	Inventory(ctx context.Context) (domain.Inventory, error)
	Land(ctx context.Context) (*land.Grid, error)
	Craft(ctx context.Context, target domain.ItemID, quantity int) (domain.Plan, *chain.Receipt, error)
	Place(ctx context.Context, coord domain.Coord, item domain.ItemID) (*chain.Receipt, error)
	UnlockOnce(ctx context.Context) (unlock.CycleReport, error)
	RefreshDefinitions(ctx context.Context)
}

// PlanStep is one craft call with its display name
type PlanStep struct {
	ItemID domain.ItemID `json:"item_id"`
	Name   string        `json:"name"`
}

// PlanResponse is a resolved plan as returned to clients. Previews also carry
// the inventory expected once the plan is confirmed.
type PlanResponse struct {
	LandID            domain.LandID              `json:"land_id"`
	Target            domain.ItemID              `json:"target"`
	TargetName        string                     `json:"target_name"`
	Quantity          int                        `json:"quantity"`
	Steps             []PlanStep                 `json:"steps"`
	ExpectedInventory []catalog.InventoryLine    `json:"expected_inventory,omitempty"`
	Changes           []crafting.InventoryChange `json:"changes,omitempty"`
}

// CraftRequest asks the agent to resolve and submit a plan
type CraftRequest struct {
	Item     string `json:"item" validate:"required,itemref,max=64"`
	Quantity int    `json:"quantity" validate:"omitempty,min=1,max=1000"`
}

// CraftResponse is the plan that was submitted and its receipt. Receipt is
// nil when the target was already owned.
type CraftResponse struct {
	Message string         `json:"message"`
	Plan    PlanResponse   `json:"plan"`
	Receipt *chain.Receipt `json:"receipt,omitempty"`
}

// PlaceRequest asks the agent to place one owned item on a cell
type PlaceRequest struct {
	Item string `json:"item" validate:"required,itemref,max=64"`
	X    int    `json:"x" validate:"min=0,max=9"`
	Y    int    `json:"y" validate:"min=0,max=9"`
}

// PlaceResponse carries the placement receipt
type PlaceResponse struct {
	Message string         `json:"message"`
	Receipt *chain.Receipt `json:"receipt,omitempty"`
}

// InventoryResponse lists the land's inventory with display names
type InventoryResponse struct {
	LandID domain.LandID           `json:"land_id"`
	Items  []catalog.InventoryLine `json:"items"`
}

// LandResponse is the visible occupant of each cell plus a text rendering
type LandResponse struct {
	LandID domain.LandID       `json:"land_id"`
	Size   int                 `json:"size"`
	Cells  []domain.PlacedItem `json:"cells"`
	Text   string              `json:"text"`
}

// UnlockResponse wraps a single scheduler cycle
type UnlockResponse struct {
	Message string             `json:"message"`
	Report  unlock.CycleReport `json:"report"`
}

// AgentHandler serves the agent control API
type AgentHandler struct {
	agent   Agent
	journal journal.Service
}

// NewAgentHandler creates the handler. A nil journal disables the journal
// endpoint.
func NewAgentHandler(agent Agent, j journal.Service) *AgentHandler {
	return &AgentHandler{agent: agent, journal: j}
}

// HandlePlan resolves a plan without submitting it.
// GET /api/v1/plan?item=<name|id>&quantity=<n>
func (h *AgentHandler) HandlePlan() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, ok := GetQueryParam(r, w, ParamItem)
		if !ok {
			return
		}
		target, ok := h.lookupItem(w, r, ref)
		if !ok {
			return
		}
		quantity, ok := GetIntQueryParam(r, w, ParamQuantity, DefaultQuantity, MaxQuantity, ErrMsgInvalidQuantity)
		if !ok {
			return
		}

		preview, err := h.agent.Preview(r.Context(), target, quantity)
		if err != nil {
			respondServiceError(w, r, "Resolve plan", err)
			return
		}
		resp := h.planResponse(preview.Plan)
		if preview.Expected != nil {
			resp.ExpectedInventory = h.agent.Names().Lines(preview.Expected)
			resp.Changes = preview.Changes()
		}
		respondJSON(w, http.StatusOK, resp)
	}
}

// HandleCraftable lists every recipe with the number of units the current
// inventory could produce. With ready=true only recipes craftable at least
// once are listed.
// GET /api/v1/craftable?ready=<bool>
func (h *AgentHandler) HandleCraftable() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ready, err := strconv.ParseBool(GetOptionalQueryParam(r, ParamReady, "false"))
		if err != nil {
			respondError(w, http.StatusBadRequest, ErrMsgInvalidReady)
			return
		}

		list := h.agent.Craftable
		if ready {
			list = h.agent.CraftableNow
		}
		entries, err := list(r.Context())
		if err != nil {
			respondServiceError(w, r, "List craftable", err)
			return
		}
		respondJSON(w, http.StatusOK, DataResponse{Data: entries})
	}
}

// HandleRecipe describes how an item is crafted and what consumes it.
// GET /api/v1/recipe?item=<name|id>
func (h *AgentHandler) HandleRecipe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, ok := GetQueryParam(r, w, ParamItem)
		if !ok {
			return
		}
		item, ok := h.lookupItem(w, r, ref)
		if !ok {
			return
		}
		info, err := h.agent.Recipe(r.Context(), item)
		if err != nil {
			respondServiceError(w, r, "Describe recipe", err)
			return
		}
		respondJSON(w, http.StatusOK, info)
	}
}

// HandleInventory returns the session land's inventory.
// GET /api/v1/inventory
func (h *AgentHandler) HandleInventory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inv, err := h.agent.Inventory(r.Context())
		if err != nil {
			respondServiceError(w, r, "Read inventory", err)
			return
		}
		respondJSON(w, http.StatusOK, InventoryResponse{
			LandID: h.agent.LandID(),
			Items:  h.agent.Names().Lines(inv),
		})
	}
}

// HandleLand returns the visible grid of the session land.
// GET /api/v1/land
func (h *AgentHandler) HandleLand() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		grid, err := h.agent.Land(r.Context())
		if err != nil {
			respondServiceError(w, r, "Read land", err)
			return
		}
		respondJSON(w, http.StatusOK, LandResponse{
			LandID: grid.LandID,
			Size:   grid.Size,
			Cells:  grid.Occupants(),
			Text:   grid.Render(h.agent.Names()),
		})
	}
}

// HandleCraft resolves and submits a plan as one batched transaction.
// POST /api/v1/craft
func (h *AgentHandler) HandleCraft() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CraftRequest
		if err := DecodeAndValidateRequest(r, w, &req, "Craft"); err != nil {
			return
		}
		target, ok := h.lookupItem(w, r, req.Item)
		if !ok {
			return
		}
		if req.Quantity == 0 {
			req.Quantity = DefaultQuantity
		}

		log := logger.FromContext(r.Context())
		log.Info("Craft requested", logger.AttrKeyLandID, h.agent.LandID(), "item", target, "quantity", req.Quantity)

		plan, receipt, err := h.agent.Craft(r.Context(), target, req.Quantity)
		if err != nil {
			respondServiceError(w, r, "Craft", err)
			return
		}

		msg := MsgPlanSubmitted
		if plan.IsEmpty() {
			msg = MsgNothingToCraft
		}
		respondJSON(w, http.StatusOK, CraftResponse{
			Message: msg,
			Plan:    h.planResponse(plan),
			Receipt: receipt,
		})
	}
}

// HandlePlace places one owned item on a cell of the session land.
// POST /api/v1/place
func (h *AgentHandler) HandlePlace() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PlaceRequest
		if err := DecodeAndValidateRequest(r, w, &req, "Place"); err != nil {
			return
		}
		item, ok := h.lookupItem(w, r, req.Item)
		if !ok {
			return
		}
		coord := domain.Coord{X: req.X, Y: req.Y}

		logger.FromContext(r.Context()).Info("Place requested", logger.AttrKeyLandID, h.agent.LandID(), "item", item, "at", coord.String())

		receipt, err := h.agent.Place(r.Context(), coord, item)
		if err != nil {
			respondServiceError(w, r, "Place", err)
			return
		}
		respondJSON(w, http.StatusOK, PlaceResponse{Message: MsgItemPlaced, Receipt: receipt})
	}
}

// HandleRefresh drops cached recipe and transformation definitions.
// POST /api/v1/refresh
func (h *AgentHandler) HandleRefresh() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.agent.RefreshDefinitions(r.Context())
		respondJSON(w, http.StatusOK, SuccessResponse{Message: MsgDefinitionsRefreshed})
	}
}

// HandleUnlock runs one scan-and-unlock cycle.
// POST /api/v1/unlock
func (h *AgentHandler) HandleUnlock() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := h.agent.UnlockOnce(r.Context())
		if err != nil {
			respondServiceError(w, r, "Unlock", err)
			return
		}
		respondJSON(w, http.StatusOK, UnlockResponse{Message: MsgUnlockComplete, Report: report})
	}
}

// HandleJournal returns the newest submission journal entries.
// GET /api/v1/journal?limit=<n>
func (h *AgentHandler) HandleJournal() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.journal == nil {
			respondError(w, http.StatusNotFound, ErrMsgJournalDisabled)
			return
		}
		limit, ok := GetIntQueryParam(r, w, ParamLimit, journal.DefaultRecentLimit, journal.MaxRecentLimit, ErrMsgInvalidLimit)
		if !ok {
			return
		}
		entries, err := h.journal.Recent(r.Context(), limit)
		if err != nil {
			respondServiceError(w, r, "Read journal", err)
			return
		}
		respondJSON(w, http.StatusOK, DataResponse{Data: entries})
	}
}

func (h *AgentHandler) lookupItem(w http.ResponseWriter, r *http.Request, ref string) (domain.ItemID, bool) {
	id, ok := h.agent.Names().Lookup(ref)
	if !ok {
		logger.FromContext(r.Context()).Warn("Unknown item requested", "item", ref)
		respondError(w, http.StatusBadRequest, fmt.Sprintf(ErrMsgUnknownItem, ref))
		return 0, false
	}
	return id, true
}

func (h *AgentHandler) planResponse(plan domain.Plan) PlanResponse {
	names := h.agent.Names()
	steps := make([]PlanStep, len(plan.Operations))
	for i, op := range plan.Operations {
		steps[i] = PlanStep{ItemID: op.ItemID, Name: names.Name(op.ItemID)}
	}
	return PlanResponse{
		LandID:     h.agent.LandID(),
		Target:     plan.Target,
		TargetName: names.Name(plan.Target),
		Quantity:   plan.Quantity,
		Steps:      steps,
	}
}
