package metrics

import (
	"errors"

	"github.com/osse101/cosmos-agent/internal/domain"
)

// Outcome maps an agent error to its outcome label
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, domain.ErrPlanningGap):
		return OutcomeGap
	case errors.Is(err, domain.ErrSubmissionRejected):
		return OutcomeRejected
	case errors.Is(err, domain.ErrSubmissionUnknown):
		return OutcomeUnknown
	case errors.Is(err, domain.ErrTransport):
		return OutcomeTransport
	case errors.Is(err, domain.ErrOwnershipViolation):
		return OutcomeOwnership
	case errors.Is(err, domain.ErrInvalidInput):
		return OutcomeInvalid
	default:
		return OutcomeFailed
	}
}

// RecordPlan counts a resolve attempt and, on success, its length
func RecordPlan(steps int, err error) {
	PlansResolved.WithLabelValues(Outcome(err)).Inc()
	if err == nil {
		PlanSteps.Observe(float64(steps))
	}
}

// RecordSubmission counts a submission, its latency and any decoded error
func RecordSubmission(kind string, seconds float64, err error) {
	Submissions.WithLabelValues(kind, Outcome(err)).Inc()
	SubmissionDuration.WithLabelValues(kind).Observe(seconds)

	var rejected *domain.SubmissionRejectedError
	if errors.As(err, &rejected) {
		DecodedErrors.WithLabelValues(rejected.Contract, rejected.ErrorName).Inc()
	}
}
