package metrics

// ============================================================================
// Metric Names
// ============================================================================

// HTTP metric names
const (
	MetricNameHTTPRequestsTotal    = "http_requests_total"
	MetricNameHTTPRequestDuration  = "http_request_duration_seconds"
	MetricNameHTTPRequestsInFlight = "http_requests_in_flight"
)

// Agent metric names
const (
	MetricNamePlansResolved      = "craft_plans_resolved_total"
	MetricNamePlanSteps          = "craft_plan_steps"
	MetricNameSubmissions        = "submissions_total"
	MetricNameSubmissionDuration = "submission_duration_seconds"
	MetricNameDecodedErrors      = "contract_errors_total"
	MetricNameUnlockCycles       = "unlock_cycles_total"
	MetricNameUnlocks            = "unlocks_total"
	MetricNameNextUnlockSeconds  = "unlock_next_seconds"
	MetricNameIndexerQueries     = "indexer_queries_total"
	MetricNameIndexerCache       = "indexer_cache_lookups_total"
)

// ============================================================================
// Metric Help Text
// ============================================================================

// HTTP metric help text
const (
	HelpTextHTTPRequestsTotal    = "Total number of HTTP requests"
	HelpTextHTTPRequestDuration  = "HTTP request latency in seconds"
	HelpTextHTTPRequestsInFlight = "Current number of HTTP requests being served"
)

// Agent metric help text
const (
	HelpTextPlansResolved      = "Total number of craft plans resolved by outcome"
	HelpTextPlanSteps          = "Number of craft operations per resolved plan"
	HelpTextSubmissions        = "Total number of on-chain submissions by kind and outcome"
	HelpTextSubmissionDuration = "Submission latency in seconds, including confirmation when requested"
	HelpTextDecodedErrors      = "Total number of decoded contract errors"
	HelpTextUnlockCycles       = "Total number of unlock scheduler cycles by outcome"
	HelpTextUnlocks            = "Total number of unlock attempts by outcome"
	HelpTextNextUnlockSeconds  = "Seconds until the next known unlock deadline per land"
	HelpTextIndexerQueries     = "Total number of indexer queries by table and status"
	HelpTextIndexerCache       = "Total number of indexer cache lookups by table and result"
)

// ============================================================================
// Metric Label Names
// ============================================================================

// Common label names used across metrics
const (
	LabelMethod   = "method"
	LabelPath     = "path"
	LabelStatus   = "status"
	LabelKind     = "kind"
	LabelOutcome  = "outcome"
	LabelContract = "contract"
	LabelError    = "error"
	LabelLand     = "land"
	LabelTable    = "table"
	LabelResult   = "result"
)

// ============================================================================
// Label Values
// ============================================================================

// Outcome label values
const (
	OutcomeSuccess   = "success"
	OutcomeGap       = "planning_gap"
	OutcomeRejected  = "rejected"
	OutcomeUnknown   = "unknown"
	OutcomeFailed    = "failed"
	OutcomeTransport = "transport"
	OutcomeOwnership = "ownership"
	OutcomeInvalid   = "invalid"
	OutcomeSkipped   = "skipped"
	OutcomeIdle      = "idle"
	OutcomeError     = "error"
)

// Submission kinds
const (
	KindPlan   = "plan"
	KindSingle = "single"
)

// Cache results
const (
	CacheHit  = "hit"
	CacheMiss = "miss"
)

// ============================================================================
// Histogram Buckets
// ============================================================================

// HTTPLatencyBuckets defines the histogram buckets for HTTP request duration
// in seconds, from 1ms to 10s.
var HTTPLatencyBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// SubmissionLatencyBuckets spans a fast estimate-only failure up to a full
// confirmation wait.
var SubmissionLatencyBuckets = []float64{.1, .25, .5, 1, 2, 5, 10, 30, 60, 120}

// PlanStepBuckets covers single crafts up to the default plan cap
var PlanStepBuckets = []float64{1, 2, 4, 8, 16, 32, 64, 128, 256}
