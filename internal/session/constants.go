package session

import "time"

// DefaultLandScanLimit caps FindLands when called with a non-positive limit
const DefaultLandScanLimit = 1000

// DefaultConfirmationTimeout bounds receipt waits when none is configured
const DefaultConfirmationTimeout = 120 * time.Second

// Operation names reported in transport errors
const (
	OpLandOwner = "land owner lookup"
)

// Log messages
const (
	LogMsgPlanResolved     = "Plan resolved"
	LogMsgPlanEmpty        = "Target already owned, nothing to craft"
	LogMsgDuplicateRecipes = "Duplicate recipe outputs, first recipe kept"
	LogMsgOwnershipChecked = "Land ownership verified"
	LogMsgLandFound        = "Owned land found"
	LogMsgLandScanStopped  = "Land scan stopped"
	LogMsgJournalFailed    = "Submission not journaled"
	LogMsgUnlockLoopStart  = "Starting unlock loop"

	LogMsgDefinitionsRefreshed = "Cached definitions dropped"
	LogMsgLandCreated          = "Land created"
)

// Error messages
const (
	ErrMsgMissingDependency = "session dependency missing"
	ErrMsgCallReverted      = "transaction did not succeed"
)
