package crafting

// ==================== Planning Limits ====================

// DefaultMaxPlanSteps caps the number of craft operations in one plan. A plan
// is submitted as a single multi-call, so very long plans would exceed the
// block gas limit anyway.
const DefaultMaxPlanSteps = 256

// ==================== Presentation ====================

// Requirement description formatting for craftable listings
const (
	RequirementFmt       = "%dx %s"
	RequirementSeparator = " + "
	RequirementNone      = "nothing"
)

// ==================== Log Messages ====================

const (
	LogMsgPlanResolved = "Craft plan resolved"
	LogMsgPlanGap      = "Craft plan has a gap"
)
