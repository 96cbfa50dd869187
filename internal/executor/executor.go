package executor

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/osse101/cosmos-agent/internal/chain"
	"github.com/osse101/cosmos-agent/internal/domain"
	"github.com/osse101/cosmos-agent/internal/logger"
	"github.com/osse101/cosmos-agent/internal/metrics"
)

// Options controls a single submission
type Options struct {
	WaitForConfirmation bool
	ConfirmationTimeout time.Duration
	Tx                  chain.TxOptions
}

// Executor packages calls into one World submission and decodes failures.
// It never retries.
type Executor struct {
	client    chain.Client
	world     *chain.World
	encoders  *chain.Encoders
	selectors chain.SelectorTable
}

// New creates an executor. The selector table is read from the client once.
func New(client chain.Client, world *chain.World, encoders *chain.Encoders) *Executor {
	return &Executor{
		client:    client,
		world:     world,
		encoders:  encoders,
		selectors: client.ErrorSelectorTable(),
	}
}

// Encoders exposes the call encoders the executor routes through
func (e *Executor) Encoders() *chain.Encoders {
	return e.encoders
}

// step ties a call descriptor back to the plan
type step struct {
	call chain.CallDescriptor
	item domain.ItemID
}

// Submit encodes every operation of plan as a crafting call on landID and
// sends them as one atomic batchCall signed by cred. The batch is simulated
// first; a rejected simulation is attributed to the first failing step and
// nothing is sent.
func (e *Executor) Submit(ctx context.Context, cred *chain.Credential, landID domain.LandID, plan domain.Plan, opts Options) (receipt *chain.Receipt, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordSubmission(metrics.KindPlan, time.Since(start).Seconds(), err)
	}()

	if plan.IsEmpty() {
		return nil, fmt.Errorf("%w: plan has no operations", domain.ErrInvalidInput)
	}

	steps := make([]step, len(plan.Operations))
	calls := make([]chain.CallDescriptor, len(plan.Operations))
	for i, op := range plan.Operations {
		call, err := e.encoders.Craft(landID, op.ItemID)
		if err != nil {
			return nil, &domain.SubmissionFailedError{Call: fmt.Sprintf("step %d", i), Err: err}
		}
		steps[i] = step{call: call, item: op.ItemID}
		calls[i] = call
	}

	msg, err := e.world.BatchCall(cred.Address, calls)
	if err != nil {
		return nil, &domain.SubmissionFailedError{Call: CallBatch, Err: err}
	}

	logger.FromContext(ctx).Info(LogMsgSubmitting,
		"land_id", landID, "target", plan.Target, "quantity", plan.Quantity, "steps", len(calls), "signer", cred.Address.Hex())

	return e.send(ctx, cred, msg, steps, opts)
}

// SubmitOne sends a single routed call through World.call
func (e *Executor) SubmitOne(ctx context.Context, cred *chain.Credential, call chain.CallDescriptor, opts Options) (receipt *chain.Receipt, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordSubmission(metrics.KindSingle, time.Since(start).Seconds(), err)
	}()

	msg, err := e.world.SingleCall(cred.Address, call)
	if err != nil {
		return nil, &domain.SubmissionFailedError{Call: call.Label, Err: err}
	}

	logger.FromContext(ctx).Info(LogMsgSubmittingSingle, "call", call.Label, "system", call.SystemID.String(), "signer", cred.Address.Hex())

	return e.send(ctx, cred, msg, []step{{call: call}}, opts)
}

func (e *Executor) send(ctx context.Context, cred *chain.Credential, msg chain.Call, steps []step, opts Options) (*chain.Receipt, error) {
	log := logger.FromContext(ctx)
	label := callLabel(steps)

	gas, err := e.client.EstimateGas(ctx, msg)
	if err != nil {
		log.Warn(LogMsgPreflightFailed, "call", label, "error", err)
		idx := domain.NoStep
		_, reverted := chain.ExtractRevert(err)
		switch {
		case len(steps) == 1 && steps[0].item != domain.EmptyItem:
			idx = 0
		case len(steps) > 1 && reverted:
			idx = e.locateFailingStep(ctx, cred.Address, steps)
		}
		return nil, e.decode(err, OpEstimateGas, steps, idx, "")
	}

	txOpts := opts.Tx
	if txOpts.GasLimit == 0 {
		multiplier := txOpts.GasMultiplier
		if multiplier <= 0 {
			multiplier = chain.DefaultGasMultiplier
		}
		txOpts.GasLimit = uint64(math.Ceil(float64(gas) * multiplier))
	}

	tx, err := e.client.BuildTransaction(ctx, msg, txOpts)
	if err != nil {
		return nil, e.decode(err, OpBuildTx, steps, domain.NoStep, "")
	}

	hash, err := e.client.SignAndSend(ctx, tx, cred)
	if err != nil {
		return nil, e.decode(err, OpSend, steps, domain.NoStep, "")
	}
	log.Info(LogMsgSubmitted, "call", label, "tx", hash.Hex())

	if !opts.WaitForConfirmation {
		return &chain.Receipt{TxHash: hash}, nil
	}
	return e.confirm(ctx, hash, steps, opts)
}

func (e *Executor) confirm(ctx context.Context, hash common.Hash, steps []step, opts Options) (*chain.Receipt, error) {
	timeout := opts.ConfirmationTimeout
	if timeout <= 0 {
		timeout = chain.DefaultConfirmationTimeout
	}

	receipt, err := e.client.WaitForReceipt(ctx, hash, timeout)
	if err != nil {
		return nil, e.decode(err, OpWaitReceipt, steps, domain.NoStep, hash.Hex())
	}
	if !receipt.Succeeded() {
		return receipt, &domain.SubmissionUnknownError{
			Payload: RevertedPayload,
			Call:    callLabel(steps),
			Step:    domain.NoStep,
			TxHash:  hash.Hex(),
		}
	}

	logger.FromContext(ctx).Info(LogMsgConfirmed, "tx", hash.Hex(), "block", receipt.BlockNumber, "gas_used", receipt.GasUsed)
	return receipt, nil
}

// locateFailingStep re-simulates growing prefixes of the batch. The first
// prefix that is rejected ends at the failing step. Simulation is read-only,
// so nothing is committed while searching.
func (e *Executor) locateFailingStep(ctx context.Context, from common.Address, steps []step) int {
	calls := make([]chain.CallDescriptor, 0, len(steps))
	for i, s := range steps {
		calls = append(calls, s.call)
		msg, err := e.world.BatchCall(from, calls)
		if err != nil {
			return domain.NoStep
		}
		if _, err := e.client.EstimateGas(ctx, msg); err != nil {
			if _, ok := chain.ExtractRevert(err); !ok {
				return domain.NoStep
			}
			logger.FromContext(ctx).Debug(LogMsgStepLocated, "step", i, "call", s.call.Label)
			return i
		}
	}
	return domain.NoStep
}

// decode classifies a chain error into the domain taxonomy
func (e *Executor) decode(err error, op string, steps []step, idx int, txHash string) error {
	call := callLabel(steps)
	var item domain.ItemID
	if idx >= 0 && idx < len(steps) {
		call = steps[idx].call.Label
		item = steps[idx].item
	}

	if rev, ok := chain.ExtractRevert(err); ok {
		if ref, found := e.selectors.Lookup(rev.Selector); found {
			return &domain.SubmissionRejectedError{
				Contract:  ref.Contract,
				ErrorName: ref.Name,
				Selector:  rev.Selector,
				Call:      call,
				Step:      idx,
				ItemID:    item,
			}
		}
		return &domain.SubmissionUnknownError{
			Payload: rev.Payload,
			Call:    call,
			Step:    idx,
			ItemID:  item,
			TxHash:  txHash,
		}
	}

	if chain.IsTransportError(err) {
		return &domain.TransportError{Op: op, Err: err}
	}
	return &domain.SubmissionFailedError{Call: call, Err: err}
}

func callLabel(steps []step) string {
	if len(steps) == 1 {
		return steps[0].call.Label
	}
	return fmt.Sprintf("%s(%d calls)", CallBatch, len(steps))
}
