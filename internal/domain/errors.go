package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error message string constants - single source of truth for error messages
// Use these in assert.Contains() checks when testing error messages
const (
	ErrMsgPlanningGap         = "planning gap"
	ErrMsgSubmissionRejected  = "submission rejected"
	ErrMsgSubmissionUnknown   = "unknown contract error"
	ErrMsgSubmissionFailed    = "submission failed"
	ErrMsgTransport           = "transport failure"
	ErrMsgOwnershipViolation  = "ownership violation"
	ErrMsgInvalidInput        = "invalid input"
	ErrMsgConfirmationTimeout = "confirmation timeout"
	ErrMsgRecipeNotFound      = "recipe not found"
)

// Common domain errors. Structured errors below unwrap to these so callers can
// branch with errors.Is and still read the details with errors.As.
var (
	ErrPlanningGap         = errors.New(ErrMsgPlanningGap)
	ErrSubmissionRejected  = errors.New(ErrMsgSubmissionRejected)
	ErrSubmissionUnknown   = errors.New(ErrMsgSubmissionUnknown)
	ErrSubmissionFailed    = errors.New(ErrMsgSubmissionFailed)
	ErrTransport           = errors.New(ErrMsgTransport)
	ErrOwnershipViolation  = errors.New(ErrMsgOwnershipViolation)
	ErrInvalidInput        = errors.New(ErrMsgInvalidInput)
	ErrConfirmationTimeout = errors.New(ErrMsgConfirmationTimeout)
	ErrRecipeNotFound      = errors.New(ErrMsgRecipeNotFound)
)

// NoStep marks a submission error that could not be tied to a plan step
const NoStep = -1

// GapReason explains why an item could not be obtained
type GapReason string

const (
	GapNoRecipe     GapReason = "no recipe and not in inventory"
	GapCycle        GapReason = "recipe cycle"
	GapPlanTooLong  GapReason = "plan too long"
	GapInvalidInput GapReason = "invalid recipe input"
)

// PlanningGapError reports that the target cannot be reached from the catalog
// and inventory. Path runs from the target down to Missing.
type PlanningGapError struct {
	Target  ItemID
	Missing ItemID
	Path    []ItemID
	Reason  GapReason
}

func (e *PlanningGapError) Error() string {
	parts := make([]string, len(e.Path))
	for i, id := range e.Path {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return fmt.Sprintf("%s: cannot obtain item %d for target %d (path %s): %s",
		ErrMsgPlanningGap, e.Missing, e.Target, strings.Join(parts, " > "), e.Reason)
}

func (e *PlanningGapError) Unwrap() error { return ErrPlanningGap }

// SubmissionRejectedError is a decoded contract-defined revert
type SubmissionRejectedError struct {
	Contract  string
	ErrorName string
	Selector  string
	Call      string
	Step      int
	ItemID    ItemID
}

func (e *SubmissionRejectedError) Error() string {
	msg := fmt.Sprintf("%s: %s error in contract '%s' when calling '%s'",
		ErrMsgSubmissionRejected, e.ErrorName, e.Contract, e.Call)
	if e.Step != NoStep {
		msg += fmt.Sprintf(" (step %d, item %d)", e.Step, e.ItemID)
	}
	return msg
}

func (e *SubmissionRejectedError) Unwrap() error { return ErrSubmissionRejected }

// SubmissionUnknownError is a rejection whose payload matched no known selector
type SubmissionUnknownError struct {
	Payload string
	Call    string
	Step    int
	ItemID  ItemID
	TxHash  string
}

func (e *SubmissionUnknownError) Error() string {
	msg := fmt.Sprintf("%s when calling '%s': %s", ErrMsgSubmissionUnknown, e.Call, e.Payload)
	if e.Step != NoStep {
		msg += fmt.Sprintf(" (step %d, item %d)", e.Step, e.ItemID)
	}
	if e.TxHash != "" {
		msg += " tx=" + e.TxHash
	}
	return msg
}

func (e *SubmissionUnknownError) Unwrap() error { return ErrSubmissionUnknown }

// SubmissionFailedError wraps any other failure while building, signing or
// sending a transaction
type SubmissionFailedError struct {
	Call string
	Err  error
}

func (e *SubmissionFailedError) Error() string {
	return fmt.Sprintf("%s when calling '%s': %v", ErrMsgSubmissionFailed, e.Call, e.Err)
}

func (e *SubmissionFailedError) Unwrap() []error { return []error{ErrSubmissionFailed, e.Err} }

// TransportError reports a network or timeout failure talking to the chain or
// the indexer
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s during %s: %v", ErrMsgTransport, e.Op, e.Err)
}

func (e *TransportError) Unwrap() []error { return []error{ErrTransport, e.Err} }

// OwnershipError reports an attempt to act on land the signer does not own
type OwnershipError struct {
	LandID LandID
	Owner  string
	Caller string
}

func (e *OwnershipError) Error() string {
	return fmt.Sprintf("%s: land %d is owned by %s, not %s", ErrMsgOwnershipViolation, e.LandID, e.Owner, e.Caller)
}

func (e *OwnershipError) Unwrap() error { return ErrOwnershipViolation }
