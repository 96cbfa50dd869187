package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP Metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameHTTPRequestsTotal,
			Help: HelpTextHTTPRequestsTotal,
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricNameHTTPRequestDuration,
			Help:    HelpTextHTTPRequestDuration,
			Buckets: HTTPLatencyBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNameHTTPRequestsInFlight,
			Help: HelpTextHTTPRequestsInFlight,
		},
	)
)

// Planning Metrics
var (
	PlansResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNamePlansResolved,
			Help: HelpTextPlansResolved,
		},
		[]string{LabelOutcome},
	)

	PlanSteps = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    MetricNamePlanSteps,
			Help:    HelpTextPlanSteps,
			Buckets: PlanStepBuckets,
		},
	)
)

// Submission Metrics
var (
	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameSubmissions,
			Help: HelpTextSubmissions,
		},
		[]string{LabelKind, LabelOutcome},
	)

	SubmissionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricNameSubmissionDuration,
			Help:    HelpTextSubmissionDuration,
			Buckets: SubmissionLatencyBuckets,
		},
		[]string{LabelKind},
	)

	DecodedErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameDecodedErrors,
			Help: HelpTextDecodedErrors,
		},
		[]string{LabelContract, LabelError},
	)
)

// Unlock Metrics
var (
	UnlockCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameUnlockCycles,
			Help: HelpTextUnlockCycles,
		},
		[]string{LabelOutcome},
	)

	Unlocks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameUnlocks,
			Help: HelpTextUnlocks,
		},
		[]string{LabelOutcome},
	)

	NextUnlockSeconds = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: MetricNameNextUnlockSeconds,
			Help: HelpTextNextUnlockSeconds,
		},
		[]string{LabelLand},
	)
)

// Indexer Metrics
var (
	IndexerQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameIndexerQueries,
			Help: HelpTextIndexerQueries,
		},
		[]string{LabelTable, LabelStatus},
	)

	IndexerCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameIndexerCache,
			Help: HelpTextIndexerCache,
		},
		[]string{LabelTable, LabelResult},
	)
)
