package indexer

import (
	"context"
	"time"

	"github.com/osse101/cosmos-agent/internal/domain"
)

// Reader is the read side of the world: land contents, inventories, recipes,
// transformation definitions and chain time, already parsed into records.
type Reader interface {
	GetRecipes(ctx context.Context) ([]domain.Recipe, error)
	GetInventory(ctx context.Context, landID domain.LandID) (domain.Inventory, error)
	GetLandItems(ctx context.Context, landID domain.LandID) ([]domain.PlacedItem, error)
	GetTransformations(ctx context.Context, filter domain.TransformationFilter) ([]domain.TransformationDef, error)
	CurrentChainTime(ctx context.Context) (time.Time, error)
}

// TimeSource reports the current chain time
type TimeSource func(ctx context.Context) (time.Time, error)
