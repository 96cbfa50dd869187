package session

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/osse101/cosmos-agent/internal/chain"
	"github.com/osse101/cosmos-agent/internal/domain"
	"github.com/osse101/cosmos-agent/internal/executor"
	"github.com/osse101/cosmos-agent/internal/journal"
)

const (
	testKey  = "289c2857d4598e37fb9647507e47a309d6133539bf21a8b9cb6df88fd5232032"
	testLand = domain.LandID(7)

	wood     domain.ItemID = 1
	stone    domain.ItemID = 2
	plank    domain.ItemID = 3
	table    domain.ItemID = 4
	seedling domain.ItemID = 20
	sapling  domain.ItemID = 21
)

var (
	stranger = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	chainNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

type fixture struct {
	session *Session
	chain   *MockChain
	reader  *fakeReader
	journal *recorder
	cred    *chain.Credential
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cred, err := chain.NewCredential(testKey)
	require.NoError(t, err)
	world, err := chain.NewWorld(common.HexToAddress("0x1000"))
	require.NoError(t, err)
	encoders, err := chain.NewEncoders("", nil)
	require.NoError(t, err)

	mc := new(MockChain)
	reader := &fakeReader{
		recipes: []domain.Recipe{
			{Output: plank, Inputs: []domain.RecipeInput{{ItemID: wood, Quantity: 2}}},
			{Output: table, Inputs: []domain.RecipeInput{{ItemID: plank, Quantity: 2}, {ItemID: stone, Quantity: 1}}},
		},
		inv: domain.Inventory{wood: 4, stone: 1},
		defs: []domain.TransformationDef{
			{Base: seedling, Next: sapling, UnlockTime: time.Minute},
		},
		now: chainNow,
	}
	rec := &recorder{}

	s, err := New(Deps{
		Chain:      mc,
		Reader:     reader,
		Executor:   executor.New(mc, world, encoders),
		Credential: cred,
		Journal:    rec,
	}, Config{
		LandID:              testLand,
		WaitForConfirmation: true,
		ConfirmationTimeout: time.Second,
		GasMultiplier:       1.2,
		UnlockInterval:      30 * time.Second,
		UnlockSafetyMargin:  time.Second,
	})
	require.NoError(t, err)

	return &fixture{session: s, chain: mc, reader: reader, journal: rec, cred: cred}
}

func (f *fixture) ownLand() {
	f.chain.On("LandOwner", mock.Anything, testLand).Return(f.cred.Address, nil)
}

func TestNew_MissingDependencies(t *testing.T) {
	cred, err := chain.NewCredential(testKey)
	require.NoError(t, err)

	_, err = New(Deps{Credential: cred}, Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrMsgMissingDependency)
}

func TestResolve(t *testing.T) {
	f := newFixture(t)

	plan, err := f.session.Resolve(context.Background(), table, 1)

	require.NoError(t, err)
	assert.Equal(t, []domain.CraftOperation{{ItemID: plank}, {ItemID: plank}, {ItemID: table}}, plan.Operations)
	f.chain.AssertNotCalled(t, "LandOwner", mock.Anything, mock.Anything)
}

func TestResolve_ReaderError(t *testing.T) {
	f := newFixture(t)
	f.reader.err = &domain.TransportError{Op: "query", Err: errors.New("refused")}

	_, err := f.session.Resolve(context.Background(), table, 1)

	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestCraftable(t *testing.T) {
	f := newFixture(t)

	entries, err := f.session.Craftable(context.Background())

	require.NoError(t, err)
	require.Len(t, entries, 2)
	byItem := map[domain.ItemID]int{}
	for _, e := range entries {
		byItem[e.ItemID] = e.MaxQuantity
	}
	assert.Equal(t, 2, byItem[plank])
	assert.Equal(t, 0, byItem[table])
}

func TestCatalog_LogsDuplicateOutputs(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	f := newFixture(t)
	f.reader.recipes = append(f.reader.recipes,
		domain.Recipe{Output: plank, Inputs: []domain.RecipeInput{{ItemID: stone, Quantity: 9}}})

	cat, err := f.session.Catalog(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []domain.ItemID{plank}, cat.Duplicates())
	recipe, ok := cat.Recipe(plank)
	require.True(t, ok)
	assert.Equal(t, wood, recipe.Inputs[0].ItemID, "the first recipe is kept")

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, LogMsgDuplicateRecipes)
	assert.Contains(t, out, "outputs=[3]")
}

func TestCatalog_NoWarningWithoutDuplicates(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	f := newFixture(t)

	_, err := f.session.Catalog(context.Background())

	require.NoError(t, err)
	assert.NotContains(t, buf.String(), LogMsgDuplicateRecipes)
}

func TestCraft_SubmitsPlanAndJournals(t *testing.T) {
	f := newFixture(t)
	f.ownLand()
	hash := common.HexToHash("0xbeef")
	f.chain.expectSend(hash)

	plan, receipt, err := f.session.Craft(context.Background(), table, 1)

	require.NoError(t, err)
	assert.Equal(t, 3, plan.Len())
	require.NotNil(t, receipt)
	assert.True(t, receipt.Succeeded())
	f.chain.AssertExpectations(t)

	entries := f.journal.all()
	require.Len(t, entries, 1)
	assert.Equal(t, journal.KindPlan, entries[0].Kind)
	assert.Equal(t, journal.StatusConfirmed, entries[0].Status)
	assert.Equal(t, hash.Hex(), entries[0].TxHash)
	assert.Equal(t, []string{
		"craftRecipe(land=7, item=3)",
		"craftRecipe(land=7, item=3)",
		"craftRecipe(land=7, item=4)",
	}, entries[0].Steps)
}

func TestCraft_AlreadyOwnedSubmitsNothing(t *testing.T) {
	f := newFixture(t)
	f.ownLand()
	f.reader.inv[table] = 1

	plan, receipt, err := f.session.Craft(context.Background(), table, 1)

	require.NoError(t, err)
	assert.True(t, plan.IsEmpty())
	assert.Nil(t, receipt)
	f.chain.AssertNotCalled(t, "EstimateGas", mock.Anything, mock.Anything)
	assert.Empty(t, f.journal.all())
}

func TestCraft_PlanningGapSubmitsNothing(t *testing.T) {
	f := newFixture(t)
	f.ownLand()

	_, receipt, err := f.session.Craft(context.Background(), table, 2)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPlanningGap)
	var gap *domain.PlanningGapError
	require.ErrorAs(t, err, &gap)
	assert.Equal(t, table, gap.Target)
	assert.Nil(t, receipt)
	f.chain.AssertNotCalled(t, "EstimateGas", mock.Anything, mock.Anything)
}

func TestSubmitPlan_OwnershipViolation(t *testing.T) {
	f := newFixture(t)
	f.chain.On("LandOwner", mock.Anything, testLand).Return(stranger, nil)

	_, err := f.session.SubmitPlan(context.Background(), domain.Plan{
		Target: plank, Quantity: 1, Operations: []domain.CraftOperation{{ItemID: plank}},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrOwnershipViolation)
	var own *domain.OwnershipError
	require.ErrorAs(t, err, &own)
	assert.Equal(t, testLand, own.LandID)
	assert.Equal(t, stranger.Hex(), own.Owner)
	f.chain.AssertNotCalled(t, "EstimateGas", mock.Anything, mock.Anything)
}

func TestSubmitPlan_RejectedIsJournaled(t *testing.T) {
	f := newFixture(t)
	f.ownLand()
	f.chain.On("EstimateGas", mock.Anything, mock.Anything).Return(uint64(0), errors.New("boom"))

	_, err := f.session.SubmitPlan(context.Background(), domain.Plan{
		Target: plank, Quantity: 1, Operations: []domain.CraftOperation{{ItemID: plank}},
	})

	require.Error(t, err)
	entries := f.journal.all()
	require.Len(t, entries, 1)
	assert.Equal(t, journal.StatusFailed, entries[0].Status)
	assert.NotEmpty(t, entries[0].ErrorKind)
	assert.NotEmpty(t, entries[0].ErrorDetail)
}

func TestCheckOwnership_Errors(t *testing.T) {
	t.Run("unknown land", func(t *testing.T) {
		f := newFixture(t)
		f.chain.On("LandOwner", mock.Anything, testLand).Return(common.Address{}, errors.New("execution reverted: ERC721NonexistentToken"))

		err := f.session.CheckOwnership(context.Background())

		assert.ErrorIs(t, err, domain.ErrOwnershipViolation)
	})

	t.Run("transport", func(t *testing.T) {
		f := newFixture(t)
		f.chain.On("LandOwner", mock.Anything, testLand).Return(common.Address{}, &net.OpError{Op: "dial", Err: errors.New("refused")})

		err := f.session.CheckOwnership(context.Background())

		assert.ErrorIs(t, err, domain.ErrTransport)
	})
}

func TestFindLands(t *testing.T) {
	f := newFixture(t)
	f.chain.On("LandOwner", mock.Anything, domain.LandID(1)).Return(f.cred.Address, nil)
	f.chain.On("LandOwner", mock.Anything, domain.LandID(2)).Return(stranger, nil)
	f.chain.On("LandOwner", mock.Anything, domain.LandID(3)).Return(f.cred.Address, nil)
	f.chain.On("LandOwner", mock.Anything, domain.LandID(4)).Return(common.Address{}, errors.New("execution reverted"))

	lands, err := f.session.FindLands(context.Background(), 0, 0)

	require.NoError(t, err)
	assert.Equal(t, []domain.LandID{1, 3}, lands)
	f.chain.AssertNotCalled(t, "LandOwner", mock.Anything, domain.LandID(5))
}

func TestFindLands_Limit(t *testing.T) {
	f := newFixture(t)
	f.chain.On("LandOwner", mock.Anything, mock.Anything).Return(f.cred.Address, nil)

	lands, err := f.session.FindLands(context.Background(), 2, 0)

	require.NoError(t, err)
	assert.Equal(t, []domain.LandID{1, 2}, lands)
}

func TestFindLands_TransportError(t *testing.T) {
	f := newFixture(t)
	f.chain.On("LandOwner", mock.Anything, domain.LandID(1)).Return(f.cred.Address, nil)
	f.chain.On("LandOwner", mock.Anything, domain.LandID(2)).Return(common.Address{}, context.DeadlineExceeded)

	lands, err := f.session.FindLands(context.Background(), 0, 0)

	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.Equal(t, []domain.LandID{1}, lands)
}

func TestFindLands_StopsAfterWantedCount(t *testing.T) {
	f := newFixture(t)
	f.chain.On("LandOwner", mock.Anything, domain.LandID(1)).Return(stranger, nil)
	f.chain.On("LandOwner", mock.Anything, domain.LandID(2)).Return(f.cred.Address, nil)
	f.chain.On("LandOwner", mock.Anything, domain.LandID(3)).Return(stranger, nil)
	f.chain.On("LandOwner", mock.Anything, domain.LandID(4)).Return(f.cred.Address, nil)

	lands, err := f.session.FindLands(context.Background(), 0, 2)

	require.NoError(t, err)
	assert.Equal(t, []domain.LandID{2, 4}, lands)
	f.chain.AssertNotCalled(t, "LandOwner", mock.Anything, domain.LandID(5))
}

func TestPreview_ExpectedInventory(t *testing.T) {
	f := newFixture(t)

	p, err := f.session.Preview(context.Background(), table, 1)

	require.NoError(t, err)
	assert.Equal(t, 3, p.Plan.Len())
	assert.Equal(t, domain.Inventory{wood: 4, stone: 1}, p.Before)
	assert.Equal(t, domain.Inventory{table: 1}, p.Expected)
	f.chain.AssertNotCalled(t, "LandOwner", mock.Anything, mock.Anything)
}

func TestCraftableNow(t *testing.T) {
	f := newFixture(t)

	entries, err := f.session.CraftableNow(context.Background())

	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, plank, entries[0].ItemID)
	assert.Equal(t, 2, entries[0].MaxQuantity)
}

func TestRecipe(t *testing.T) {
	f := newFixture(t)

	info, err := f.session.Recipe(context.Background(), plank)

	require.NoError(t, err)
	assert.True(t, info.Craftable)
	assert.Equal(t, 2, info.MaxQuantity)
	require.Len(t, info.UsedIn, 1)
	assert.Equal(t, table, info.UsedIn[0].ItemID)
}

type cachingReader struct {
	*fakeReader
	invalidated int
}

func (r *cachingReader) InvalidateDefinitions() { r.invalidated++ }

func TestRefreshDefinitions(t *testing.T) {
	f := newFixture(t)
	cache := &cachingReader{fakeReader: f.reader}
	f.session.reader = cache

	f.session.RefreshDefinitions(context.Background())

	assert.Equal(t, 1, cache.invalidated)
}

func TestRefreshDefinitions_UncachedReader(t *testing.T) {
	f := newFixture(t)

	assert.NotPanics(t, func() { f.session.RefreshDefinitions(context.Background()) })
}

func TestPlace(t *testing.T) {
	f := newFixture(t)
	f.ownLand()
	f.reader.inv[seedling] = 1
	hash := common.HexToHash("0x0a")
	f.chain.expectSend(hash)

	receipt, err := f.session.Place(context.Background(), domain.Coord{X: 2, Y: 3}, seedling)

	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.Equal(t, hash, receipt.TxHash)
	entries := f.journal.all()
	require.Len(t, entries, 1)
	assert.Equal(t, journal.KindSingle, entries[0].Kind)
	assert.Equal(t, []string{"placeItem(land=7, at=(2,3), item=20)"}, entries[0].Steps)
}

func TestPlace_Rejected(t *testing.T) {
	tests := []struct {
		name  string
		coord domain.Coord
		item  domain.ItemID
		owner common.Address
		want  error
	}{
		{"off grid", domain.Coord{X: domain.GridSize, Y: 0}, wood, common.Address{}, domain.ErrInvalidInput},
		{"not owned item", domain.Coord{X: 1, Y: 1}, seedling, common.Address{}, domain.ErrInvalidInput},
		{"not the owner", domain.Coord{X: 1, Y: 1}, wood, stranger, domain.ErrOwnershipViolation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			owner := tt.owner
			if owner == (common.Address{}) {
				owner = f.cred.Address
			}
			f.chain.On("LandOwner", mock.Anything, testLand).Return(owner, nil)

			receipt, err := f.session.Place(context.Background(), tt.coord, tt.item)

			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, receipt)
			f.chain.AssertNotCalled(t, "EstimateGas", mock.Anything, mock.Anything)
			assert.Empty(t, f.journal.all())
		})
	}
}

func TestCreateLand(t *testing.T) {
	f := newFixture(t)
	hash := common.HexToHash("0x0b")
	f.chain.expectSend(hash)

	receipt, err := f.session.CreateLand(context.Background(), domain.Coord{X: 10, Y: 10})

	require.NoError(t, err)
	require.NotNil(t, receipt)
	f.chain.AssertNotCalled(t, "LandOwner", mock.Anything, mock.Anything)
	entries := f.journal.all()
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"createLand(10x10)"}, entries[0].Steps)
}

func TestCreateLand_InvalidSize(t *testing.T) {
	f := newFixture(t)

	_, err := f.session.CreateLand(context.Background(), domain.Coord{X: 0, Y: 10})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	f.chain.AssertNotCalled(t, "EstimateGas", mock.Anything, mock.Anything)
}

func TestLand(t *testing.T) {
	f := newFixture(t)
	f.reader.items = []domain.PlacedItem{
		{LandID: testLand, X: 2, Y: 3, Z: 0, ItemID: wood, PlacementTime: chainNow},
	}

	grid, err := f.session.Land(context.Background())

	require.NoError(t, err)
	occupant, ok := grid.Occupant(domain.Coord{X: 2, Y: 3})
	require.True(t, ok)
	assert.Equal(t, wood, occupant.ItemID)
}

func TestUnlockOnce(t *testing.T) {
	f := newFixture(t)
	f.ownLand()
	f.reader.items = []domain.PlacedItem{
		{LandID: testLand, X: 1, Y: 1, ItemID: seedling, PlacementTime: chainNow.Add(-2 * time.Minute)},
		{LandID: testLand, X: 5, Y: 5, ItemID: seedling, PlacementTime: chainNow.Add(-50 * time.Second)},
	}
	hash := common.HexToHash("0x01")
	f.chain.expectSend(hash, func() { f.reader.removeAt(domain.Coord{X: 1, Y: 1}) })

	report, err := f.session.UnlockOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []domain.Coord{{X: 1, Y: 1}}, report.Unlocked)
	assert.Empty(t, report.Failed)
	assert.Equal(t, chainNow.Add(10*time.Second), report.NextUnlock)
	assert.Equal(t, 11*time.Second, report.Wait)

	entries := f.journal.all()
	require.Len(t, entries, 1)
	assert.Equal(t, journal.KindSingle, entries[0].Kind)
	assert.Equal(t, []string{"timeUnlockItem(land=7, at=(1,1))"}, entries[0].Steps)
}

func TestUnlockOnce_NotOwner(t *testing.T) {
	f := newFixture(t)
	f.chain.On("LandOwner", mock.Anything, testLand).Return(stranger, nil)

	_, err := f.session.UnlockOnce(context.Background())

	assert.ErrorIs(t, err, domain.ErrOwnershipViolation)
}

func TestRunUnlockLoop_StopsOnCancel(t *testing.T) {
	f := newFixture(t)
	f.ownLand()
	ctx, cancel := context.WithCancel(context.Background())
	f.session.cfg.UnlockClock = cancelClock{cancel: cancel}

	done := make(chan error, 1)
	go func() { done <- f.session.RunUnlockLoop(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("unlock loop did not stop")
	}
}

func TestForLand(t *testing.T) {
	f := newFixture(t)

	other := f.session.ForLand(9)

	assert.Equal(t, domain.LandID(9), other.LandID())
	assert.Equal(t, testLand, f.session.LandID())
	assert.Equal(t, f.session.Signer(), other.Signer())
	assert.Same(t, f.session.locks, other.locks)
}

type cancelClock struct {
	cancel context.CancelFunc
}

func (c cancelClock) Sleep(ctx context.Context, _ time.Duration) error {
	c.cancel()
	return ctx.Err()
}
