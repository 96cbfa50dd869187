package unlock

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/osse101/cosmos-agent/internal/domain"
	"github.com/osse101/cosmos-agent/internal/indexer"
	"github.com/osse101/cosmos-agent/internal/land"
	"github.com/osse101/cosmos-agent/internal/logger"
	"github.com/osse101/cosmos-agent/internal/metrics"
)

// Config tunes the scheduler. Zero values take the defaults.
type Config struct {
	DefaultInterval time.Duration
	SafetyMargin    time.Duration
	Clock           Clock
	OnCycle         func(CycleReport)
}

// Scheduler unlocks time-gated items on one land. It is a state machine:
// Idle -> Scanning -> (Acting | Waiting) -> Scanning. Step advances it by one
// transition so tests can drive it deterministically.
type Scheduler struct {
	landID   domain.LandID
	reader   indexer.Reader
	actor    Actor
	clock    Clock
	interval time.Duration
	margin   time.Duration
	onCycle  func(CycleReport)

	state  State
	ready  []domain.UnlockCandidate
	report CycleReport
}

// New creates a scheduler for landID
func New(landID domain.LandID, reader indexer.Reader, actor Actor, cfg Config) *Scheduler {
	s := &Scheduler{
		landID:   landID,
		reader:   reader,
		actor:    actor,
		clock:    cfg.Clock,
		interval: cfg.DefaultInterval,
		margin:   cfg.SafetyMargin,
		onCycle:  cfg.OnCycle,
		state:    StateIdle,
	}
	if s.clock == nil {
		s.clock = RealClock{}
	}
	if s.interval <= 0 {
		s.interval = domain.DefaultUnlockPollInterval
	}
	if s.margin <= 0 {
		s.margin = domain.DefaultUnlockSafetyMargin
	}
	return s
}

// State returns the current state
func (s *Scheduler) State() State {
	return s.state
}

// LastReport returns the report of the latest completed cycle
func (s *Scheduler) LastReport() CycleReport {
	return s.report
}

// Step performs one transition. Cancellation is checked first, so no
// submission is started after ctx is done.
func (s *Scheduler) Step(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch s.state {
	case StateIdle:
		s.state = StateScanning

	case StateScanning:
		report, ready := s.scan(ctx)
		s.report = report
		s.ready = ready
		switch {
		case report.ScanErr != nil:
			s.finish(ctx)
			s.state = StateWaiting
		case len(ready) > 0:
			s.state = StateActing
		default:
			s.finish(ctx)
			s.state = StateWaiting
		}

	case StateActing:
		s.act(ctx, &s.report, s.ready)
		s.ready = nil
		if s.report.Interrupted {
			s.finish(ctx)
			s.state = StateWaiting
			return ctx.Err()
		}
		if s.report.AllFailed() {
			s.report.Wait = s.interval
			logger.FromContext(ctx).Warn(LogMsgAllFailed, logger.AttrKeyLandID, s.landID, "failed", len(s.report.Failed))
			s.finish(ctx)
			s.state = StateWaiting
			return nil
		}
		s.finish(ctx)
		if !s.report.Acted() {
			s.state = StateWaiting
			return nil
		}
		s.state = StateScanning

	case StateWaiting:
		logger.FromContext(ctx).Debug(LogMsgWaiting, logger.AttrKeyLandID, s.landID, "wait", s.report.Wait)
		if err := s.clock.Sleep(ctx, s.report.Wait); err != nil {
			return err
		}
		s.state = StateScanning
	}
	return nil
}

// Run loops until ctx is cancelled
func (s *Scheduler) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)
	log.Info(LogMsgSchedulerStart, logger.AttrKeyLandID, s.landID)
	defer log.Info(LogMsgSchedulerStop, logger.AttrKeyLandID, s.landID)

	if s.state == StateIdle {
		s.state = StateScanning
	}
	for {
		if err := s.Step(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
	}
}

// UnlockOnce scans the land and unlocks whatever is ready, without waiting.
// A scan failure is returned; unlock failures are in the report. When ctx is
// cancelled mid-cycle the partial report is returned with ctx.Err().
func (s *Scheduler) UnlockOnce(ctx context.Context) (CycleReport, error) {
	if err := ctx.Err(); err != nil {
		return CycleReport{}, err
	}
	report, ready := s.scan(ctx)
	if report.ScanErr != nil {
		return report, report.ScanErr
	}
	if len(ready) > 0 {
		s.act(ctx, &report, ready)
		if report.AllFailed() {
			report.Wait = s.interval
		}
	}
	s.report = report
	s.finish(ctx)
	if report.Interrupted {
		return report, ctx.Err()
	}
	return report, nil
}

// scan reads the land and partitions its visible unlock candidates
func (s *Scheduler) scan(ctx context.Context) (CycleReport, []domain.UnlockCandidate) {
	report := CycleReport{LandID: s.landID, Wait: s.interval}

	candidates, now, err := s.candidates(ctx)
	if err != nil {
		report.ScanErr = err
		logger.FromContext(ctx).Warn(LogMsgScanFailed, logger.AttrKeyLandID, s.landID, "error", err)
		return report, nil
	}
	report.ChainTime = now

	var ready []domain.UnlockCandidate
	for _, c := range candidates {
		if c.ReadyAt(now) {
			ready = append(ready, c)
			continue
		}
		if report.NextUnlock.IsZero() || c.UnlockAt.Before(report.NextUnlock) {
			report.NextUnlock = c.UnlockAt
		}
	}
	report.Wait = WaitDuration(now, report.NextUnlock, s.margin, s.interval)

	logger.FromContext(ctx).Debug(LogMsgScanned, logger.AttrKeyLandID, s.landID,
		"candidates", len(candidates), "ready", len(ready), "next_unlock", report.NextUnlock)
	return report, ready
}

func (s *Scheduler) candidates(ctx context.Context) ([]domain.UnlockCandidate, time.Time, error) {
	items, err := s.reader.GetLandItems(ctx, s.landID)
	if err != nil {
		return nil, time.Time{}, err
	}
	defs, err := s.reader.GetTransformations(ctx, domain.TimeUnlockFilter())
	if err != nil {
		return nil, time.Time{}, err
	}
	now, err := s.reader.CurrentChainTime(ctx)
	if err != nil {
		return nil, time.Time{}, err
	}
	return Candidates(s.landID, items, defs), now, nil
}

// act unlocks every ready candidate, then retries the failures exactly once.
// Each attempt re-verifies the cell first.
func (s *Scheduler) act(ctx context.Context, report *CycleReport, ready []domain.UnlockCandidate) {
	log := logger.FromContext(ctx)

	var failed []Failure
	for i, c := range ready {
		if ctx.Err() != nil {
			s.interrupt(ctx, report, failed, ready[i:])
			return
		}
		if f, ok := s.attempt(ctx, report, c); !ok {
			failed = append(failed, f)
		}
	}

	if len(failed) > 0 {
		log.Info(LogMsgRetrying, logger.AttrKeyLandID, s.landID, "count", len(failed))
	}
	for i, prev := range failed {
		if ctx.Err() != nil {
			s.interrupt(ctx, report, failed[i:], nil)
			return
		}
		c := domain.UnlockCandidate{Coord: prev.Coord, ItemID: prev.ItemID}
		if f, ok := s.attempt(ctx, report, c); !ok {
			s.fail(ctx, report, f)
		}
	}
}

// interrupt closes a cancelled acting pass: collected failures stay in the
// report and unattempted cells are listed as pending
func (s *Scheduler) interrupt(ctx context.Context, report *CycleReport, failed []Failure, unattempted []domain.UnlockCandidate) {
	for _, f := range failed {
		s.fail(ctx, report, f)
	}
	for _, c := range unattempted {
		report.Pending = append(report.Pending, c.Coord)
	}
	report.Interrupted = true
	logger.FromContext(ctx).Warn(LogMsgCycleInterrupted, logger.AttrKeyLandID, s.landID,
		"failed", len(failed), "pending", len(report.Pending))
}

func (s *Scheduler) fail(ctx context.Context, report *CycleReport, f Failure) {
	report.Failed = append(report.Failed, f)
	metrics.Unlocks.WithLabelValues(metrics.Outcome(f.Err)).Inc()
	logger.FromContext(ctx).Warn(LogMsgUnlockFailed, logger.AttrKeyLandID, s.landID, "coord", f.Coord.String(), "error", f.Err)
}

// attempt re-verifies c and unlocks it. ok is false only on failure; a cell
// that is no longer ready is recorded as skipped.
func (s *Scheduler) attempt(ctx context.Context, report *CycleReport, c domain.UnlockCandidate) (Failure, bool) {
	log := logger.FromContext(ctx)

	current, ready, err := s.reverify(ctx, c.Coord)
	if err != nil {
		return Failure{Coord: c.Coord, ItemID: c.ItemID, Err: err, Error: err.Error()}, false
	}
	if !ready {
		report.Skipped = append(report.Skipped, c.Coord)
		metrics.Unlocks.WithLabelValues(metrics.OutcomeSkipped).Inc()
		log.Info(LogMsgUnlockSkipped, logger.AttrKeyLandID, s.landID, "coord", c.Coord.String())
		return Failure{}, true
	}

	if err := s.actor.Unlock(ctx, s.landID, c.Coord); err != nil {
		return Failure{Coord: c.Coord, ItemID: current.ItemID, Err: err, Error: err.Error()}, false
	}

	report.Unlocked = append(report.Unlocked, c.Coord)
	metrics.Unlocks.WithLabelValues(metrics.OutcomeSuccess).Inc()
	log.Info(LogMsgUnlocked, logger.AttrKeyLandID, s.landID, "coord", c.Coord.String(), "item", current.ItemID)
	return Failure{}, true
}

// reverify re-fetches the land and reports whether the visible occupant at
// coord is still past its unlock deadline
func (s *Scheduler) reverify(ctx context.Context, coord domain.Coord) (domain.UnlockCandidate, bool, error) {
	candidates, now, err := s.candidates(ctx)
	if err != nil {
		return domain.UnlockCandidate{}, false, err
	}
	for _, c := range candidates {
		if c.Coord == coord {
			return c, c.ReadyAt(now), nil
		}
	}
	return domain.UnlockCandidate{}, false, nil
}

// finish publishes the current report
func (s *Scheduler) finish(ctx context.Context) {
	r := s.report
	outcome := metrics.OutcomeIdle
	switch {
	case r.ScanErr != nil:
		outcome = metrics.Outcome(r.ScanErr)
	case r.AllFailed():
		outcome = metrics.OutcomeFailed
	case r.Acted():
		outcome = metrics.OutcomeSuccess
	}
	metrics.UnlockCycles.WithLabelValues(outcome).Inc()

	landLabel := strconv.FormatInt(int64(s.landID), 10)
	if r.HasNextUnlock() && !r.ChainTime.IsZero() {
		metrics.NextUnlockSeconds.WithLabelValues(landLabel).Set(r.NextUnlock.Sub(r.ChainTime).Seconds())
	}

	logger.FromContext(ctx).Info(LogMsgCycleComplete, logger.AttrKeyLandID, s.landID,
		"unlocked", len(r.Unlocked), "failed", len(r.Failed), "skipped", len(r.Skipped),
		"pending", len(r.Pending), "interrupted", r.Interrupted, "wait", r.Wait)

	if s.onCycle != nil {
		s.onCycle(r)
	}
}

// Candidates lists the visible occupants that have a time-unlock
// transformation, with their deadline. defs should already be limited to
// time-gated transformations; the first definition per base item wins.
func Candidates(landID domain.LandID, items []domain.PlacedItem, defs []domain.TransformationDef) []domain.UnlockCandidate {
	byBase := make(map[domain.ItemID]domain.TransformationDef, len(defs))
	for _, d := range defs {
		if _, ok := byBase[d.Base]; !ok {
			byBase[d.Base] = d
		}
	}

	grid := land.NewGrid(landID, items)
	var out []domain.UnlockCandidate
	for _, occupant := range grid.Occupants() {
		def, ok := byBase[occupant.ItemID]
		if !ok {
			continue
		}
		out = append(out, domain.UnlockCandidate{
			Coord:    occupant.Coord(),
			ItemID:   occupant.ItemID,
			UnlockAt: occupant.PlacementTime.Add(def.UnlockTime),
		})
	}
	return out
}

// WaitDuration is how long to sleep before the next scan: until next plus
// margin, never negative, or fallback when no deadline is known.
func WaitDuration(now, next time.Time, margin, fallback time.Duration) time.Duration {
	if next.IsZero() {
		return fallback
	}
	d := next.Add(margin).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Job runs the scheduler on a worker pool until the pool stops
type Job struct {
	Scheduler *Scheduler
}

// Process implements worker.Job
func (j Job) Process(ctx context.Context) error {
	if err := j.Scheduler.Run(ctx); err != nil {
		return fmt.Errorf("unlock loop for land %d: %w", j.Scheduler.landID, err)
	}
	return nil
}
