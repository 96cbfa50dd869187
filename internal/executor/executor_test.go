package executor

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/cosmos-agent/internal/chain"
	"github.com/osse101/cosmos-agent/internal/domain"
)

const errorsABI = `[{"type":"error","name":"NotEnoughIngredients","inputs":[{"name":"itemId","type":"uint256"}]}]`

var notEnoughSelector = fmt.Sprintf("%x", crypto.Keccak256([]byte("NotEnoughIngredients(uint256)"))[:4])

type revertError struct{ data string }

func (e revertError) Error() string          { return "execution reverted" }
func (e revertError) ErrorData() interface{} { return e.data }

// fakeChain simulates a World that crafts items. A batch containing a craft of
// a poisoned item reverts as a whole; nothing is applied unless sent.
type fakeChain struct {
	mu          sync.Mutex
	world       *chain.World
	selectors   chain.SelectorTable
	poisoned    map[domain.ItemID]string // item -> revert data
	crafted     map[domain.ItemID]int
	estimates   int
	sent        int
	estimateErr error
	sendErr     error
	receiptErr  error
	status      uint64
}

func newFakeChain(t *testing.T, world *chain.World) *fakeChain {
	parsed, err := abi.JSON(strings.NewReader(errorsABI))
	require.NoError(t, err)
	return &fakeChain{
		world:     world,
		selectors: chain.BuildSelectorTable(context.Background(), map[string]abi.ABI{"CraftingSystem": parsed}),
		poisoned:  make(map[domain.ItemID]string),
		crafted:   make(map[domain.ItemID]int),
		status:    types.ReceiptStatusSuccessful,
	}
}

func (f *fakeChain) items(data []byte) []domain.ItemID {
	calls, err := f.world.UnpackBatch(data)
	if err != nil {
		// single World.call: systemId(32) + offset(32) + len(32) + callData
		calls = []chain.CallDescriptor{{CallData: data[4+96:]}}
	}
	out := make([]domain.ItemID, len(calls))
	for i, c := range calls {
		if len(c.CallData) >= 68 {
			out[i] = domain.ItemID(new(big.Int).SetBytes(c.CallData[36:68]).Int64())
		}
	}
	return out
}

func (f *fakeChain) EstimateGas(_ context.Context, call chain.Call) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.estimates++
	if f.estimateErr != nil {
		return 0, f.estimateErr
	}
	for _, item := range f.items(call.Data) {
		if data, ok := f.poisoned[item]; ok {
			return 0, revertError{data: data}
		}
	}
	return 50_000, nil
}

func (f *fakeChain) BuildTransaction(_ context.Context, call chain.Call, opts chain.TxOptions) (*types.Transaction, error) {
	to := call.To
	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   big.NewInt(1),
		Gas:       opts.GasLimit,
		To:        &to,
		Value:     big.NewInt(0),
		Data:      call.Data,
		GasTipCap: big.NewInt(1),
		GasFeeCap: big.NewInt(2),
	}), nil
}

func (f *fakeChain) SignAndSend(_ context.Context, tx *types.Transaction, _ *chain.Credential) (common.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return common.Hash{}, f.sendErr
	}
	f.sent++
	for _, item := range f.items(tx.Data()) {
		f.crafted[item]++
	}
	return common.BigToHash(big.NewInt(int64(f.sent))), nil
}

func (f *fakeChain) WaitForReceipt(_ context.Context, hash common.Hash, _ time.Duration) (*chain.Receipt, error) {
	if f.receiptErr != nil {
		return nil, f.receiptErr
	}
	return &chain.Receipt{TxHash: hash, Status: f.status, BlockNumber: 10, GasUsed: 40_000, Confirmed: true}, nil
}

func (f *fakeChain) ErrorSelectorTable() chain.SelectorTable { return f.selectors }

func (f *fakeChain) LatestBlockTime(context.Context) (time.Time, error) { return time.Unix(0, 0), nil }

func (f *fakeChain) LandOwner(context.Context, domain.LandID) (common.Address, error) {
	return common.Address{}, nil
}

func setup(t *testing.T) (*Executor, *fakeChain, *chain.Credential) {
	world, err := chain.NewWorld(common.HexToAddress("0x1000"))
	require.NoError(t, err)
	encoders, err := chain.NewEncoders("", nil)
	require.NoError(t, err)
	fake := newFakeChain(t, world)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return New(fake, world, encoders), fake, chain.NewCredentialFromKey(key)
}

func fivePlan() domain.Plan {
	return domain.Plan{Target: 15, Quantity: 1, Operations: []domain.CraftOperation{
		{ItemID: 11}, {ItemID: 12}, {ItemID: 13}, {ItemID: 14}, {ItemID: 15},
	}}
}

func TestSubmit_Success(t *testing.T) {
	exec, fake, cred := setup(t)

	receipt, err := exec.Submit(context.Background(), cred, 1, fivePlan(), Options{WaitForConfirmation: true})
	require.NoError(t, err)
	assert.True(t, receipt.Succeeded())
	assert.Equal(t, 1, fake.sent, "one network submission per plan")
	for _, item := range []domain.ItemID{11, 12, 13, 14, 15} {
		assert.Equal(t, 1, fake.crafted[item])
	}
}

func TestSubmit_WithoutConfirmationReturnsHash(t *testing.T) {
	exec, _, cred := setup(t)

	receipt, err := exec.Submit(context.Background(), cred, 1, fivePlan(), Options{})
	require.NoError(t, err)
	assert.NotEqual(t, common.Hash{}, receipt.TxHash)
	assert.False(t, receipt.Confirmed)
}

func TestSubmit_StepThreeRejectedIsAtomic(t *testing.T) {
	exec, fake, cred := setup(t)
	fake.poisoned[13] = "0x" + notEnoughSelector + strings.Repeat("0", 64)

	_, err := exec.Submit(context.Background(), cred, 1, fivePlan(), Options{WaitForConfirmation: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSubmissionRejected)

	var rejected *domain.SubmissionRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, 2, rejected.Step)
	assert.Equal(t, domain.ItemID(13), rejected.ItemID)
	assert.Equal(t, "CraftingSystem", rejected.Contract)
	assert.Equal(t, "NotEnoughIngredients", rejected.ErrorName)
	assert.Contains(t, rejected.Call, "item=13")

	assert.Zero(t, fake.sent)
	assert.Empty(t, fake.crafted, "no partial commit")
}

func TestSubmit_UnknownSelector(t *testing.T) {
	exec, fake, cred := setup(t)
	fake.poisoned[14] = "0xdeadbeef"

	_, err := exec.Submit(context.Background(), cred, 1, fivePlan(), Options{})

	var unknown *domain.SubmissionUnknownError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "0xdeadbeef", unknown.Payload)
	assert.Equal(t, 3, unknown.Step)
	assert.Equal(t, domain.ItemID(14), unknown.ItemID)
	assert.Zero(t, fake.sent)
}

func TestSubmit_TransportFailure(t *testing.T) {
	exec, fake, cred := setup(t)
	fake.estimateErr = fmt.Errorf("post: %w", context.DeadlineExceeded)

	_, err := exec.Submit(context.Background(), cred, 1, fivePlan(), Options{})
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.Equal(t, 1, fake.estimates, "no step search on transport failure")
}

func TestSubmit_OtherFailure(t *testing.T) {
	exec, fake, cred := setup(t)
	fake.sendErr = errors.New("nonce too low")

	_, err := exec.Submit(context.Background(), cred, 1, fivePlan(), Options{})
	assert.ErrorIs(t, err, domain.ErrSubmissionFailed)
	assert.Contains(t, err.Error(), "nonce too low")
}

func TestSubmit_ConfirmationTimeout(t *testing.T) {
	exec, fake, cred := setup(t)
	fake.receiptErr = fmt.Errorf("%w: tx 0x01", domain.ErrConfirmationTimeout)

	_, err := exec.Submit(context.Background(), cred, 1, fivePlan(), Options{WaitForConfirmation: true, ConfirmationTimeout: time.Second})
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.ErrorIs(t, err, domain.ErrConfirmationTimeout)
}

func TestSubmit_RevertedReceipt(t *testing.T) {
	exec, fake, cred := setup(t)
	fake.status = types.ReceiptStatusFailed

	_, err := exec.Submit(context.Background(), cred, 1, fivePlan(), Options{WaitForConfirmation: true})

	var unknown *domain.SubmissionUnknownError
	require.ErrorAs(t, err, &unknown)
	assert.NotEmpty(t, unknown.TxHash)
	assert.Equal(t, domain.NoStep, unknown.Step)
}

func TestSubmit_EmptyPlan(t *testing.T) {
	exec, fake, cred := setup(t)

	_, err := exec.Submit(context.Background(), cred, 1, domain.Plan{}, Options{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Zero(t, fake.estimates)
}

func TestSubmitOne_Unlock(t *testing.T) {
	exec, fake, cred := setup(t)
	call, err := exec.Encoders().Unlock(1, domain.Coord{X: 2, Y: 3})
	require.NoError(t, err)

	receipt, err := exec.SubmitOne(context.Background(), cred, call, Options{WaitForConfirmation: true})
	require.NoError(t, err)
	assert.True(t, receipt.Succeeded())
	assert.Equal(t, 1, fake.sent)
}

func TestSubmitOne_RejectedHasNoStep(t *testing.T) {
	exec, fake, cred := setup(t)
	fake.estimateErr = revertError{data: "0x" + notEnoughSelector}
	call, err := exec.Encoders().Unlock(1, domain.Coord{X: 2, Y: 3})
	require.NoError(t, err)

	_, err = exec.SubmitOne(context.Background(), cred, call, Options{})

	var rejected *domain.SubmissionRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, domain.NoStep, rejected.Step)
	assert.Contains(t, rejected.Call, "timeUnlockItem")
	assert.Zero(t, fake.sent)
}
