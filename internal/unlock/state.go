package unlock

import (
	"context"
	"time"

	"github.com/osse101/cosmos-agent/internal/domain"
)

// State is a phase of the unlock loop
type State int

const (
	StateIdle State = iota
	StateScanning
	StateActing
	StateWaiting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateActing:
		return "acting"
	case StateWaiting:
		return "waiting"
	default:
		return "unknown"
	}
}

// Clock suspends the loop between scans
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// RealClock sleeps on a timer and wakes early on cancellation
type RealClock struct{}

// Sleep blocks for d or until ctx is done
func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Actor performs one unlock on chain
type Actor interface {
	Unlock(ctx context.Context, landID domain.LandID, coord domain.Coord) error
}

// ActorFunc adapts a function to Actor
type ActorFunc func(ctx context.Context, landID domain.LandID, coord domain.Coord) error

// Unlock calls f
func (f ActorFunc) Unlock(ctx context.Context, landID domain.LandID, coord domain.Coord) error {
	return f(ctx, landID, coord)
}

// Failure is a coordinate that still failed after the retry pass
type Failure struct {
	Coord  domain.Coord  `json:"coord"`
	ItemID domain.ItemID `json:"item_id"`
	Err    error         `json:"-"`
	Error  string        `json:"error"`
}

// CycleReport summarises one scan and the unlocks it triggered
type CycleReport struct {
	LandID     domain.LandID  `json:"land_id"`
	ChainTime  time.Time      `json:"chain_time"`
	Unlocked   []domain.Coord `json:"unlocked"`
	Failed     []Failure      `json:"failed"`
	Skipped    []domain.Coord `json:"skipped"`
	NextUnlock time.Time      `json:"next_unlock"`
	Wait       time.Duration  `json:"wait"`
	ScanErr    error          `json:"-"`
	// Pending holds ready cells never attempted because the cycle was
	// cancelled; Interrupted is set in that case.
	Pending     []domain.Coord `json:"pending,omitempty"`
	Interrupted bool           `json:"interrupted"`
}

// HasNextUnlock reports whether a future deadline is known
func (r CycleReport) HasNextUnlock() bool {
	return !r.NextUnlock.IsZero()
}

// Acted reports whether any unlock was attempted
func (r CycleReport) Acted() bool {
	return len(r.Unlocked)+len(r.Failed) > 0
}

// AllFailed reports an acting cycle in which nothing succeeded
func (r CycleReport) AllFailed() bool {
	return len(r.Failed) > 0 && len(r.Unlocked) == 0
}
