package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/osse101/cosmos-agent/internal/catalog"
	"github.com/osse101/cosmos-agent/internal/chain"
	"github.com/osse101/cosmos-agent/internal/concurrency"
	"github.com/osse101/cosmos-agent/internal/crafting"
	"github.com/osse101/cosmos-agent/internal/domain"
	"github.com/osse101/cosmos-agent/internal/executor"
	"github.com/osse101/cosmos-agent/internal/indexer"
	"github.com/osse101/cosmos-agent/internal/journal"
	"github.com/osse101/cosmos-agent/internal/land"
	"github.com/osse101/cosmos-agent/internal/logger"
	"github.com/osse101/cosmos-agent/internal/metrics"
	"github.com/osse101/cosmos-agent/internal/unlock"
)

// Deps are the collaborators a session composes
type Deps struct {
	Chain      chain.Client
	Reader     indexer.Reader
	Executor   *executor.Executor
	Credential *chain.Credential
	// Locks serializes mutating operations per signer. Sessions sharing a
	// signer must share the manager.
	Locks   *concurrency.LockManager
	Journal journal.Recorder
}

// Config holds per-session settings
type Config struct {
	LandID              domain.LandID
	MaxPlanSteps        int
	WaitForConfirmation bool
	ConfirmationTimeout time.Duration
	GasMultiplier       float64
	UnlockInterval      time.Duration
	UnlockSafetyMargin  time.Duration
	UnlockClock         unlock.Clock
	Names               catalog.ItemNames
}

// Session is one player acting on one land: it reads world state, plans
// crafts, submits them and runs the unlock loop with a single credential.
type Session struct {
	chain    chain.Client
	reader   indexer.Reader
	executor *executor.Executor
	cred     *chain.Credential
	locks    *concurrency.LockManager
	journal  journal.Recorder
	resolver *crafting.Resolver
	cfg      Config
}

// New creates a session
func New(deps Deps, cfg Config) (*Session, error) {
	switch {
	case deps.Chain == nil:
		return nil, fmt.Errorf("%s: chain client", ErrMsgMissingDependency)
	case deps.Reader == nil:
		return nil, fmt.Errorf("%s: world state reader", ErrMsgMissingDependency)
	case deps.Executor == nil:
		return nil, fmt.Errorf("%s: executor", ErrMsgMissingDependency)
	case deps.Credential == nil:
		return nil, fmt.Errorf("%s: credential", ErrMsgMissingDependency)
	}
	if deps.Locks == nil {
		deps.Locks = concurrency.NewLockManager()
	}
	if deps.Journal == nil {
		deps.Journal = journal.Nop{}
	}
	if cfg.ConfirmationTimeout <= 0 {
		cfg.ConfirmationTimeout = DefaultConfirmationTimeout
	}

	var opts []crafting.Option
	if cfg.MaxPlanSteps != 0 {
		opts = append(opts, crafting.WithMaxSteps(cfg.MaxPlanSteps))
	}

	return &Session{
		chain:    deps.Chain,
		reader:   deps.Reader,
		executor: deps.Executor,
		cred:     deps.Credential,
		locks:    deps.Locks,
		journal:  deps.Journal,
		resolver: crafting.NewResolver(opts...),
		cfg:      cfg,
	}, nil
}

// ForLand returns a session for another land sharing every collaborator
func (s *Session) ForLand(landID domain.LandID) *Session {
	c := *s
	c.cfg.LandID = landID
	return &c
}

// LandID returns the land the session acts on
func (s *Session) LandID() domain.LandID {
	return s.cfg.LandID
}

// Signer returns the credential's address
func (s *Session) Signer() common.Address {
	return s.cred.Address
}

// Names returns the item names used for presentation
func (s *Session) Names() catalog.ItemNames {
	return s.cfg.Names
}

// Catalog reads the recipe catalog
func (s *Session) Catalog(ctx context.Context) (*catalog.Catalog, error) {
	recipes, err := s.reader.GetRecipes(ctx)
	if err != nil {
		return nil, err
	}
	cat := catalog.New(recipes)
	if dups := cat.Duplicates(); len(dups) > 0 {
		logger.FromContext(ctx).Warn(LogMsgDuplicateRecipes, "outputs", dups)
	}
	return cat, nil
}

// Inventory reads the land's inventory
func (s *Session) Inventory(ctx context.Context) (domain.Inventory, error) {
	return s.reader.GetInventory(ctx, s.cfg.LandID)
}

// Resolve plans quantity units of target from a fresh catalog and inventory.
// Nothing is submitted.
func (s *Session) Resolve(ctx context.Context, target domain.ItemID, quantity int) (domain.Plan, error) {
	p, err := s.Preview(ctx, target, quantity)
	return p.Plan, err
}

// Preview resolves like Resolve and also reports the inventory the plan is
// expected to leave behind
func (s *Session) Preview(ctx context.Context, target domain.ItemID, quantity int) (p crafting.Preview, err error) {
	defer func() {
		metrics.RecordPlan(p.Plan.Len(), err)
	}()

	cat, inv, err := s.snapshot(ctx)
	if err != nil {
		return crafting.Preview{}, err
	}

	p, err = s.resolver.Preview(target, quantity, inv, cat)
	if err != nil {
		return crafting.Preview{}, err
	}

	logger.FromContext(ctx).Info(LogMsgPlanResolved, logger.AttrKeyLandID, s.cfg.LandID,
		"target", target, "quantity", quantity, "steps", p.Plan.Len())
	return p, nil
}

// Craftable lists every recipe with how many units the inventory allows now
func (s *Session) Craftable(ctx context.Context) ([]crafting.CraftableEntry, error) {
	cat, inv, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return crafting.Craftable(inv, cat, s.cfg.Names), nil
}

// CraftableNow lists only the recipes the inventory can craft at least once
func (s *Session) CraftableNow(ctx context.Context) ([]crafting.CraftableEntry, error) {
	cat, inv, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return crafting.CraftableNow(inv, cat, s.cfg.Names), nil
}

// Recipe describes how item is crafted and which recipes consume it
func (s *Session) Recipe(ctx context.Context, item domain.ItemID) (crafting.RecipeInfo, error) {
	cat, inv, err := s.snapshot(ctx)
	if err != nil {
		return crafting.RecipeInfo{}, err
	}
	return crafting.DescribeItem(item, inv, cat, s.cfg.Names), nil
}

// RefreshDefinitions drops cached recipe and transformation definitions so
// the next read fetches them again. Readers without a cache ignore it.
func (s *Session) RefreshDefinitions(ctx context.Context) {
	if r, ok := s.reader.(definitionCache); ok {
		r.InvalidateDefinitions()
		logger.FromContext(ctx).Info(LogMsgDefinitionsRefreshed)
	}
}

type definitionCache interface {
	InvalidateDefinitions()
}

func (s *Session) snapshot(ctx context.Context) (*catalog.Catalog, domain.Inventory, error) {
	cat, err := s.Catalog(ctx)
	if err != nil {
		return nil, nil, err
	}
	inv, err := s.Inventory(ctx)
	if err != nil {
		return nil, nil, err
	}
	return cat, inv, nil
}

// Land reads the land's visible grid
func (s *Session) Land(ctx context.Context) (*land.Grid, error) {
	items, err := s.reader.GetLandItems(ctx, s.cfg.LandID)
	if err != nil {
		return nil, err
	}
	return land.NewGrid(s.cfg.LandID, items), nil
}

// SubmitPlan submits plan as one atomic batch on the session's land
func (s *Session) SubmitPlan(ctx context.Context, plan domain.Plan) (*chain.Receipt, error) {
	if err := s.CheckOwnership(ctx); err != nil {
		return nil, err
	}
	var receipt *chain.Receipt
	err := s.withSignerLock(ctx, func() error {
		var err error
		receipt, err = s.submit(ctx, plan)
		return err
	})
	return receipt, err
}

// Craft resolves and submits in one step while holding the signer lock, so no
// other submission from this signer can spend the inventory in between. An
// empty plan submits nothing and returns a nil receipt.
func (s *Session) Craft(ctx context.Context, target domain.ItemID, quantity int) (domain.Plan, *chain.Receipt, error) {
	if err := s.CheckOwnership(ctx); err != nil {
		return domain.Plan{}, nil, err
	}

	var (
		plan    domain.Plan
		receipt *chain.Receipt
	)
	err := s.withSignerLock(ctx, func() error {
		var err error
		plan, err = s.Resolve(ctx, target, quantity)
		if err != nil {
			return err
		}
		if plan.IsEmpty() {
			logger.FromContext(ctx).Info(LogMsgPlanEmpty, logger.AttrKeyLandID, s.cfg.LandID, "target", target)
			return nil
		}
		receipt, err = s.submit(ctx, plan)
		return err
	})
	return plan, receipt, err
}

func (s *Session) submit(ctx context.Context, plan domain.Plan) (*chain.Receipt, error) {
	receipt, err := s.executor.Submit(ctx, s.cred, s.cfg.LandID, plan, s.executorOptions())
	s.record(ctx, journal.KindPlan, s.planLabels(plan), receipt, err)
	return receipt, err
}

// Unlock submits one time-unlock for coord on landID. It satisfies
// unlock.Actor; ownership is checked once when the loop starts.
func (s *Session) Unlock(ctx context.Context, landID domain.LandID, coord domain.Coord) error {
	call, err := s.executor.Encoders().Unlock(landID, coord)
	if err != nil {
		return &domain.SubmissionFailedError{Call: chain.MethodUnlock, Err: err}
	}
	return s.withSignerLock(ctx, func() error {
		_, err := s.submitOne(ctx, call)
		return err
	})
}

// Place puts one owned unit of item on the cell at coord
func (s *Session) Place(ctx context.Context, coord domain.Coord, item domain.ItemID) (*chain.Receipt, error) {
	if !coord.InBounds(domain.GridSize) {
		return nil, fmt.Errorf("%w: cell %s is outside the %dx%d grid", domain.ErrInvalidInput, coord, domain.GridSize, domain.GridSize)
	}
	if err := s.CheckOwnership(ctx); err != nil {
		return nil, err
	}
	call, err := s.executor.Encoders().Place(s.cfg.LandID, coord, item)
	if err != nil {
		return nil, &domain.SubmissionFailedError{Call: chain.MethodPlaceItem, Err: err}
	}

	var receipt *chain.Receipt
	err = s.withSignerLock(ctx, func() error {
		inv, err := s.Inventory(ctx)
		if err != nil {
			return err
		}
		if inv.Quantity(item) == 0 {
			return fmt.Errorf("%w: item %d is not in the inventory of land %d", domain.ErrInvalidInput, item, s.cfg.LandID)
		}
		receipt, err = s.submitOne(ctx, call)
		return err
	})
	return receipt, err
}

// CreateLand creates a new land of size.X by size.Y cells owned by the signer.
// The session's own land is not involved.
func (s *Session) CreateLand(ctx context.Context, size domain.Coord) (*chain.Receipt, error) {
	if size.X <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("%w: land size must be positive (got %dx%d)", domain.ErrInvalidInput, size.X, size.Y)
	}
	call, err := s.executor.Encoders().CreateLand(size)
	if err != nil {
		return nil, &domain.SubmissionFailedError{Call: chain.MethodCreateLand, Err: err}
	}

	var receipt *chain.Receipt
	err = s.withSignerLock(ctx, func() error {
		var err error
		receipt, err = s.submitOne(ctx, call)
		return err
	})
	if err == nil {
		logger.FromContext(ctx).Info(LogMsgLandCreated, "size", size.String(), logger.AttrKeySigner, s.cred.Address.Hex())
	}
	return receipt, err
}

// submitOne sends a single call, journals it and fails on a confirmed revert.
// The caller holds the signer lock.
func (s *Session) submitOne(ctx context.Context, call chain.CallDescriptor) (*chain.Receipt, error) {
	receipt, err := s.executor.SubmitOne(ctx, s.cred, call, s.executorOptions())
	s.record(ctx, journal.KindSingle, []string{call.Label}, receipt, err)
	if err != nil {
		return receipt, err
	}
	if receipt != nil && receipt.Confirmed && !receipt.Succeeded() {
		return receipt, &domain.SubmissionFailedError{Call: call.Label, Err: errors.New(ErrMsgCallReverted)}
	}
	return receipt, nil
}

// Scheduler builds an unlock scheduler for the session's land
func (s *Session) Scheduler() *unlock.Scheduler {
	return unlock.New(s.cfg.LandID, s.reader, s, unlock.Config{
		DefaultInterval: s.cfg.UnlockInterval,
		SafetyMargin:    s.cfg.UnlockSafetyMargin,
		Clock:           s.cfg.UnlockClock,
	})
}

// UnlockOnce unlocks everything ready on the land now
func (s *Session) UnlockOnce(ctx context.Context) (unlock.CycleReport, error) {
	if err := s.CheckOwnership(ctx); err != nil {
		return unlock.CycleReport{LandID: s.cfg.LandID}, err
	}
	return s.Scheduler().UnlockOnce(ctx)
}

// RunUnlockLoop runs the unlock scheduler until ctx is cancelled
func (s *Session) RunUnlockLoop(ctx context.Context) error {
	if err := s.CheckOwnership(ctx); err != nil {
		return err
	}
	ctx = logger.WithNewRequestID(ctx)
	logger.FromContext(ctx).Info(LogMsgUnlockLoopStart, logger.AttrKeyLandID, s.cfg.LandID,
		logger.AttrKeySigner, s.cred.Address.Hex())
	return s.Scheduler().Run(ctx)
}

// CheckOwnership fails with an OwnershipError unless the signer owns the
// session's land
func (s *Session) CheckOwnership(ctx context.Context) error {
	owner, err := s.chain.LandOwner(ctx, s.cfg.LandID)
	if err != nil {
		if chain.IsTransportError(err) {
			return &domain.TransportError{Op: OpLandOwner, Err: err}
		}
		return &domain.OwnershipError{LandID: s.cfg.LandID, Owner: "none", Caller: s.cred.Address.Hex()}
	}
	if owner != s.cred.Address {
		return &domain.OwnershipError{LandID: s.cfg.LandID, Owner: owner.Hex(), Caller: s.cred.Address.Hex()}
	}
	logger.FromContext(ctx).Debug(LogMsgOwnershipChecked, logger.AttrKeyLandID, s.cfg.LandID)
	return nil
}

// FindLands scans land ids from 1 upward and returns those owned by the
// signer. The scan stops at the first id the land contract rejects, after
// limit ids, or once want owned lands are found when want is positive.
func (s *Session) FindLands(ctx context.Context, limit, want int) ([]domain.LandID, error) {
	if limit <= 0 {
		limit = DefaultLandScanLimit
	}
	log := logger.FromContext(ctx)

	owned := []domain.LandID{}
	for id := domain.LandID(1); id <= domain.LandID(limit); id++ {
		owner, err := s.chain.LandOwner(ctx, id)
		if err != nil {
			if chain.IsTransportError(err) {
				return owned, &domain.TransportError{Op: OpLandOwner, Err: err}
			}
			log.Debug(LogMsgLandScanStopped, logger.AttrKeyLandID, id, "error", err)
			break
		}
		if owner == s.cred.Address {
			log.Info(LogMsgLandFound, logger.AttrKeyLandID, id)
			owned = append(owned, id)
			if want > 0 && len(owned) >= want {
				break
			}
		}
	}
	return owned, nil
}

func (s *Session) withSignerLock(ctx context.Context, fn func() error) error {
	return s.locks.WithLock(ctx, s.cred.Address.Hex(), fn)
}

func (s *Session) executorOptions() executor.Options {
	return executor.Options{
		WaitForConfirmation: s.cfg.WaitForConfirmation,
		ConfirmationTimeout: s.cfg.ConfirmationTimeout,
		Tx:                  chain.TxOptions{GasMultiplier: s.cfg.GasMultiplier},
	}
}

func (s *Session) planLabels(plan domain.Plan) []string {
	labels := make([]string, 0, plan.Len())
	for _, op := range plan.Operations {
		call, err := s.executor.Encoders().Craft(s.cfg.LandID, op.ItemID)
		if err != nil {
			labels = append(labels, fmt.Sprintf("craft item %d", op.ItemID))
			continue
		}
		labels = append(labels, call.Label)
	}
	return labels
}

// record journals a submission. Journal failures never fail the submission.
func (s *Session) record(ctx context.Context, kind string, steps []string, receipt *chain.Receipt, err error) {
	confirmed := receipt != nil && receipt.Confirmed
	status, errKind := journal.Classify(err, confirmed)
	entry := journal.Entry{
		Kind:      kind,
		LandID:    s.cfg.LandID,
		Signer:    s.cred.Address.Hex(),
		Steps:     steps,
		Status:    status,
		ErrorKind: errKind,
	}
	if receipt != nil {
		entry.TxHash = receipt.TxHash.Hex()
	}
	if err != nil {
		entry.ErrorDetail = err.Error()
	}
	if jerr := s.journal.Record(ctx, entry); jerr != nil {
		logger.FromContext(ctx).Warn(LogMsgJournalFailed, "error", jerr)
	}
}
