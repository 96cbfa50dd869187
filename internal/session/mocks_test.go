package session

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/mock"

	"github.com/osse101/cosmos-agent/internal/chain"
	"github.com/osse101/cosmos-agent/internal/domain"
	"github.com/osse101/cosmos-agent/internal/journal"
)

// MockChain is a testify mock of chain.Client
type MockChain struct {
	mock.Mock
}

func (m *MockChain) EstimateGas(ctx context.Context, call chain.Call) (uint64, error) {
	args := m.Called(ctx, call)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockChain) BuildTransaction(ctx context.Context, call chain.Call, opts chain.TxOptions) (*types.Transaction, error) {
	args := m.Called(ctx, call, opts)
	if fn, ok := args.Get(0).(func(context.Context, chain.Call, chain.TxOptions) *types.Transaction); ok {
		return fn(ctx, call, opts), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Transaction), args.Error(1)
}

func (m *MockChain) SignAndSend(ctx context.Context, tx *types.Transaction, cred *chain.Credential) (common.Hash, error) {
	args := m.Called(ctx, tx, cred)
	return args.Get(0).(common.Hash), args.Error(1)
}

func (m *MockChain) WaitForReceipt(ctx context.Context, hash common.Hash, timeout time.Duration) (*chain.Receipt, error) {
	args := m.Called(ctx, hash, timeout)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chain.Receipt), args.Error(1)
}

func (m *MockChain) ErrorSelectorTable() chain.SelectorTable {
	return chain.SelectorTable{}
}

func (m *MockChain) LatestBlockTime(ctx context.Context) (time.Time, error) {
	args := m.Called(ctx)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *MockChain) LandOwner(ctx context.Context, landID domain.LandID) (common.Address, error) {
	args := m.Called(ctx, landID)
	return args.Get(0).(common.Address), args.Error(1)
}

// expectSend wires the happy path of one submission. onConfirm runs when the
// receipt is fetched.
func (m *MockChain) expectSend(hash common.Hash, onConfirm ...func()) {
	m.On("EstimateGas", mock.Anything, mock.Anything).Return(uint64(100_000), nil).Once()
	m.On("BuildTransaction", mock.Anything, mock.Anything, mock.Anything).
		Return(func(_ context.Context, call chain.Call, opts chain.TxOptions) *types.Transaction {
			to := call.To
			return types.NewTx(&types.DynamicFeeTx{
				ChainID: big.NewInt(1), Gas: opts.GasLimit, To: &to, Data: call.Data,
				GasTipCap: big.NewInt(1), GasFeeCap: big.NewInt(2),
			})
		}, nil).Once()
	m.On("SignAndSend", mock.Anything, mock.Anything, mock.Anything).Return(hash, nil).Once()
	m.On("WaitForReceipt", mock.Anything, hash, mock.Anything).
		Run(func(mock.Arguments) {
			for _, fn := range onConfirm {
				fn()
			}
		}).
		Return(&chain.Receipt{TxHash: hash, Status: types.ReceiptStatusSuccessful, Confirmed: true}, nil).Once()
}

// fakeReader serves a fixed world state
type fakeReader struct {
	mu      sync.Mutex
	recipes []domain.Recipe
	inv     domain.Inventory
	items   []domain.PlacedItem
	defs    []domain.TransformationDef
	now     time.Time
	err     error
}

func (r *fakeReader) GetRecipes(context.Context) ([]domain.Recipe, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recipes, r.err
}

func (r *fakeReader) GetInventory(context.Context, domain.LandID) (domain.Inventory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return r.inv.Clone(), nil
}

func (r *fakeReader) GetLandItems(context.Context, domain.LandID) ([]domain.PlacedItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.PlacedItem(nil), r.items...), r.err
}

func (r *fakeReader) GetTransformations(_ context.Context, f domain.TransformationFilter) ([]domain.TransformationDef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.TransformationDef
	for _, d := range r.defs {
		if f.Matches(d) {
			out = append(out, d)
		}
	}
	return out, r.err
}

func (r *fakeReader) CurrentChainTime(context.Context) (time.Time, error) {
	return r.now, nil
}

// removeAt drops placed items at c, as a confirmed unlock would
func (r *fakeReader) removeAt(c domain.Coord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.items[:0]
	for _, it := range r.items {
		if it.Coord() != c {
			kept = append(kept, it)
		}
	}
	r.items = kept
}

// recorder captures journal entries
type recorder struct {
	mu      sync.Mutex
	entries []journal.Entry
}

func (r *recorder) Record(_ context.Context, e journal.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

func (r *recorder) all() []journal.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]journal.Entry(nil), r.entries...)
}
