package journal

// Entry kinds
const (
	KindPlan   = "plan"
	KindSingle = "single"
)

// Entry statuses
const (
	StatusSubmitted = "submitted"
	StatusConfirmed = "confirmed"
	StatusFailed    = "failed"
)

// DefaultRecentLimit caps Recent when called with a non-positive limit
const DefaultRecentLimit = 50

// MaxRecentLimit is the largest page Recent returns
const MaxRecentLimit = 500

// Log messages
const (
	LogMsgRecordFailed = "Failed to record submission in journal"
	LogMsgRecorded     = "Submission recorded"
)

// Error messages
const (
	ErrMsgRecordFailed = "failed to record submission"
	ErrMsgListFailed   = "failed to list submissions"
)
