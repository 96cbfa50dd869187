package domain

import "time"

// TransformationDef describes how a placed item changes. Base is the placed
// item, Input the trigger item (EmptyItem for purely time-gated unlocks) and
// UnlockTime the delay after placement before the transformation may run.
type TransformationDef struct {
	Base          ItemID        `json:"base"`
	Input         ItemID        `json:"input"`
	Next          ItemID        `json:"next"`
	Yield         ItemID        `json:"yield"`
	YieldQuantity int           `json:"yield_quantity"`
	UnlockTime    time.Duration `json:"unlock_time"`
	Timeout       time.Duration `json:"timeout"`
	XP            int           `json:"xp"`
}

// TransformationFilter narrows a transformation query. Nil fields match all.
type TransformationFilter struct {
	Base  *ItemID
	Input *ItemID
}

// Matches reports whether def passes the filter
func (f TransformationFilter) Matches(def TransformationDef) bool {
	if f.Base != nil && def.Base != *f.Base {
		return false
	}
	if f.Input != nil && def.Input != *f.Input {
		return false
	}
	return true
}

// TimeUnlockFilter selects transformations triggered by time alone
func TimeUnlockFilter() TransformationFilter {
	empty := EmptyItem
	return TransformationFilter{Input: &empty}
}

// UnlockCandidate is a visible placed item with a time-gated transformation
type UnlockCandidate struct {
	Coord    Coord     `json:"coord"`
	ItemID   ItemID    `json:"item_id"`
	UnlockAt time.Time `json:"unlock_at"`
}

// ReadyAt reports whether the candidate is eligible at chain time now
func (c UnlockCandidate) ReadyAt(now time.Time) bool {
	return !c.UnlockAt.After(now)
}
