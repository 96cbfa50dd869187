package indexer

import "time"

// MUD table names
const (
	TableLandItem        = "LandItem"
	TableInventory       = "Inventory"
	TableRecipes         = "CraftingRecipe"
	TableTransformations = "Transformations"
)

// Column names as returned by the indexer (lower-cased)
const (
	ColLandID        = "landid"
	ColX             = "x"
	ColY             = "y"
	ColZ             = "z"
	ColItemID        = "itemid"
	ColPlacementTime = "placementtime"
	ColItem          = "item"
	ColQuantity      = "quantity"
	ColInputs        = "inputs"
	ColQuantities    = "quantities"
	ColBase          = "base"
	ColInput         = "input"
	ColNext          = "next"
	ColYield         = "yield"
	ColYieldQuantity = "yieldquantity"
	ColUnlockTime    = "unlocktime"
	ColTimeout       = "timeout"
	ColXP            = "xp"
)

// HTTP
const (
	QueryPath          = "/q"
	DefaultHTTPTimeout = 10 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 500 * time.Millisecond
	ContentTypeJSON    = "application/json"
)

// Cache
const (
	// CacheSchemaVersion is bumped when cached record shapes change so old
	// entries are dropped
	CacheSchemaVersion = "1"
	DefaultCacheSize   = 64
	DefaultCacheTTL    = 5 * time.Minute
)

// Log messages
const (
	LogMsgRetrying    = "Retrying indexer query"
	LogMsgQueryFailed = "Indexer query failed"
	LogMsgServerError = "Indexer server error, will retry"
	LogMsgRowSkipped  = "Skipping malformed indexer row"
	LogMsgCacheHit    = "Indexer cache hit"
)
