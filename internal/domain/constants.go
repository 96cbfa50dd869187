package domain

import "time"

// Land grid dimensions
const (
	GridSize = 10
)

// Unlock scheduling defaults, in chain time units (seconds)
const (
	DefaultUnlockSafetyMargin = 1 * time.Second
	DefaultUnlockPollInterval = 30 * time.Second
)
