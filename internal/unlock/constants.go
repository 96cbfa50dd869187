package unlock

// Log messages
const (
	LogMsgScanFailed       = "Unlock scan failed, waiting default interval"
	LogMsgScanned          = "Land scanned"
	LogMsgUnlocked         = "Item unlocked"
	LogMsgUnlockFailed     = "Unlock failed"
	LogMsgUnlockSkipped    = "Cell no longer ready, skipping"
	LogMsgRetrying         = "Retrying failed unlocks"
	LogMsgCycleComplete    = "Unlock cycle complete"
	LogMsgCycleInterrupted = "Unlock cycle cancelled before completion"
	LogMsgAllFailed        = "Every unlock failed, backing off"
	LogMsgWaiting          = "Waiting for next unlock"
	LogMsgSchedulerStart   = "Unlock scheduler started"
	LogMsgSchedulerStop    = "Unlock scheduler stopped"
)
