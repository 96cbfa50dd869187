package handler

// Generic HTTP error messages for client responses.
// Both handlers and tests should reference these constants to maintain consistency.
const (
	ErrMsgInvalidRequest        = "Invalid request body"
	ErrMsgInvalidRequestSummary = "Invalid request"
	ErrMsgMissingQueryParam     = "Missing %s query parameter"
	ErrMsgUnknownItem           = "Unknown item '%s'"
	ErrMsgInvalidQuantity       = "Quantity must be a positive integer"
	ErrMsgInvalidLimit          = "Invalid limit parameter"
	ErrMsgJournalDisabled       = "Submission journal is not enabled"
	ErrMsgInvalidReady          = "Ready must be true or false"
)

// Success messages for API responses
const (
	MsgNothingToCraft = "Target already owned, nothing submitted"
	MsgPlanSubmitted  = "Plan submitted"
	MsgUnlockComplete = "Unlock cycle complete"

	MsgItemPlaced           = "Item placed"
	MsgDefinitionsRefreshed = "Cached definitions dropped"
)

// Query parameter names
const (
	ParamItem     = "item"
	ParamQuantity = "quantity"
	ParamLimit    = "limit"
	ParamReady    = "ready"
)

// DefaultQuantity is used when no quantity is given
const DefaultQuantity = 1

// MaxQuantity bounds a single plan request
const MaxQuantity = 1000
