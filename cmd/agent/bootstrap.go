package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/osse101/cosmos-agent/internal/catalog"
	"github.com/osse101/cosmos-agent/internal/chain"
	"github.com/osse101/cosmos-agent/internal/concurrency"
	"github.com/osse101/cosmos-agent/internal/config"
	"github.com/osse101/cosmos-agent/internal/database"
	"github.com/osse101/cosmos-agent/internal/database/postgres"
	"github.com/osse101/cosmos-agent/internal/domain"
	"github.com/osse101/cosmos-agent/internal/executor"
	"github.com/osse101/cosmos-agent/internal/handler"
	"github.com/osse101/cosmos-agent/internal/indexer"
	"github.com/osse101/cosmos-agent/internal/journal"
	"github.com/osse101/cosmos-agent/internal/logger"
	"github.com/osse101/cosmos-agent/internal/session"
)

// app holds everything a command needs. Close releases the RPC connection
// and the journal pool.
type app struct {
	cfg      *config.Config
	eth      *chain.EthClient
	reader   *indexer.Client
	session  *session.Session
	journal  journal.Service
	dbPool   *pgxpool.Pool
	selector chain.SelectorTable
}

func loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.InitLogger(cfg.LoggerConfig(handler.GetVersion()))

	warnings, err := config.ValidateEnvWithWarnings()
	if err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx)
	for _, w := range warnings {
		log.Warn(w)
	}
	return cfg, nil
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx)

	selectors := loadSelectors(ctx, cfg.ABIDir)

	eth, err := chain.DialEthClient(ctx, chain.EthConfig{
		RPCURL:         cfg.RPCURL,
		ChainID:        cfg.ChainID,
		LandNFTAddress: common.HexToAddress(cfg.LandNFTAddress),
		Selectors:      selectors,
	})
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, eth: eth, selector: selectors}
	if err := a.build(ctx); err != nil {
		a.Close()
		return nil, err
	}
	log.Info(LogMsgAgentReady,
		logger.AttrKeyLandID, a.session.LandID(),
		logger.AttrKeySigner, a.session.Signer().Hex(),
		"chain_id", eth.ChainID().String(),
		"journal", a.journal != nil)
	return a, nil
}

// loadSelectors builds the revert decoding table. Without ABIs every revert
// is reported as unknown.
func loadSelectors(ctx context.Context, dir string) chain.SelectorTable {
	abis, err := chain.LoadABIs(ctx, dir)
	if err != nil {
		logger.FromContext(ctx).Warn(LogMsgABIsUnavailable, "dir", dir, "error", err)
		return chain.SelectorTable{}
	}
	return chain.BuildSelectorTable(ctx, abis)
}

// loadNames reads the items CSV. Without it items are shown by numeric id.
func loadNames(ctx context.Context, path string) catalog.ItemNames {
	names, err := catalog.LoadItemNames(path)
	if err != nil {
		logger.FromContext(ctx).Warn(LogMsgNamesUnavailable, "path", path, "error", err)
		return catalog.NewItemNames(nil)
	}
	return names
}

func (a *app) build(ctx context.Context) error {
	cfg := a.cfg

	a.reader = indexer.NewClient(indexer.Config{
		URL:          cfg.IndexerURL,
		WorldAddress: cfg.WorldAddress,
		Namespace:    cfg.Namespace,
		MaxRetries:   cfg.IndexerMaxRetries,
		CacheSize:    cfg.CacheSize,
		CacheTTL:     cfg.CacheTTL,
		TimeSource:   a.eth.LatestBlockTime,
	})

	names := loadNames(ctx, cfg.ItemsCSV)

	world, err := chain.NewWorld(common.HexToAddress(cfg.WorldAddress))
	if err != nil {
		return err
	}
	encoders, err := chain.NewEncoders(cfg.Namespace, chain.DefaultSystemNames())
	if err != nil {
		return err
	}
	cred, err := chain.NewCredential(cfg.PrivateKey)
	if err != nil {
		return err
	}

	var recorder journal.Recorder = journal.Nop{}
	if cfg.JournalEnabled() {
		svc, err := a.openJournal(ctx)
		if err != nil {
			return err
		}
		a.journal = svc
		recorder = svc
	}

	a.session, err = session.New(session.Deps{
		Chain:      a.eth,
		Reader:     a.reader,
		Executor:   executor.New(a.eth, world, encoders),
		Credential: cred,
		Locks:      concurrency.NewLockManager(),
		Journal:    recorder,
	}, session.Config{
		LandID:              domain.LandID(cfg.LandID),
		MaxPlanSteps:        cfg.CraftMaxPlanSteps,
		WaitForConfirmation: cfg.WaitForConfirmation,
		ConfirmationTimeout: cfg.ConfirmationTimeout,
		GasMultiplier:       cfg.GasMultiplier,
		UnlockInterval:      cfg.UnlockDefaultInterval,
		UnlockSafetyMargin:  cfg.UnlockSafetyMargin,
		Names:               names,
	})
	return err
}

func (a *app) openJournal(ctx context.Context) (journal.Service, error) {
	pool, err := database.NewPool(ctx, a.cfg.JournalDatabaseURL, database.PoolConfig{})
	if err != nil {
		return nil, err
	}
	a.dbPool = pool
	if err := database.Migrate(ctx, pool); err != nil {
		return nil, err
	}
	return journal.NewService(postgres.NewJournalRepository(pool)), nil
}

// healthChecks probes every external dependency the agent talks to
func (a *app) healthChecks() map[string]handler.HealthChecker {
	checks := map[string]handler.HealthChecker{
		"chain": handler.HealthCheckFunc(func(ctx context.Context) error {
			_, err := a.eth.LatestBlockTime(ctx)
			return err
		}),
		"indexer": handler.HealthCheckFunc(func(ctx context.Context) error {
			_, err := a.reader.GetInventory(ctx, a.session.LandID())
			return err
		}),
	}
	if a.dbPool != nil {
		checks["journal"] = handler.HealthCheckFunc(a.dbPool.Ping)
	}
	return checks
}

func (a *app) Close() {
	if a.dbPool != nil {
		a.dbPool.Close()
	}
	if a.eth != nil {
		a.eth.Close()
	}
}

// requireLand rejects commands that act on land when none is configured
func (a *app) requireLand() error {
	if a.session.LandID() == 0 {
		return fmt.Errorf("%w: %s is not set", errUsage, config.EnvLandID)
	}
	return nil
}

var errUsage = errors.New("usage")

// sessionFor returns the session for landID, or the configured land when
// landID is zero
func (a *app) sessionFor(landID int64) (*session.Session, error) {
	if landID > 0 {
		return a.session.ForLand(domain.LandID(landID)), nil
	}
	if err := a.requireLand(); err != nil {
		return nil, err
	}
	return a.session, nil
}
