package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/osse101/cosmos-agent/internal/catalog"
	"github.com/osse101/cosmos-agent/internal/chain"
	"github.com/osse101/cosmos-agent/internal/config"
	"github.com/osse101/cosmos-agent/internal/crafting"
	"github.com/osse101/cosmos-agent/internal/database"
	"github.com/osse101/cosmos-agent/internal/domain"
	"github.com/osse101/cosmos-agent/internal/logger"
	"github.com/osse101/cosmos-agent/internal/server"
	"github.com/osse101/cosmos-agent/internal/validation"
	"github.com/osse101/cosmos-agent/internal/worker"
)

const shutdownTimeout = 10 * time.Second

var stdout io.Writer = os.Stdout

// parseFlags parses args into fs and maps flag errors to errUsage
func parseFlags(fs *flag.FlagSet, args []string) error {
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	return nil
}

// withApp builds the app for one command and releases it afterwards
func withApp(ctx context.Context, fn func(*app) error) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func lookupItem(names catalog.ItemNames, ref string) (domain.ItemID, error) {
	if ref == "" {
		return 0, fmt.Errorf("%w: -item is required", errUsage)
	}
	id, ok := names.Lookup(ref)
	if !ok {
		return 0, fmt.Errorf("%w: unknown item %q", domain.ErrInvalidInput, ref)
	}
	return id, nil
}

type planCommand struct{}

func (c *planCommand) Name() string { return "plan" }
func (c *planCommand) Description() string {
	return "Resolve the craft plan for an item without submitting it"
}

func (c *planCommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	item := fs.String("item", "", "item name or numeric id")
	quantity := fs.Int("quantity", 1, "number of units wanted")
	recipes := fs.String("recipes", "", "plan offline against a recipe fixture (.json, .yaml)")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	if *recipes != "" {
		return planOffline(ctx, *recipes, *item, *quantity, *asJSON)
	}

	return withApp(ctx, func(a *app) error {
		if err := a.requireLand(); err != nil {
			return err
		}
		target, err := lookupItem(a.session.Names(), *item)
		if err != nil {
			return err
		}
		preview, err := a.session.Preview(ctx, target, *quantity)
		if err != nil {
			return err
		}
		return writePreview(stdout, preview, a.session.Names(), *asJSON)
	})
}

// planOffline resolves against a recipe fixture and its starting inventory.
// No RPC endpoint, indexer or key is needed.
func planOffline(ctx context.Context, path, ref string, quantity int, asJSON bool) error {
	fixture, err := catalog.LoadFile(path, validation.NewSchemaValidator())
	if err != nil {
		return err
	}
	cat := fixture.Catalog()

	log := logger.FromContext(ctx)
	log.Info(LogMsgRecipesLoaded, "path", path, "recipes", cat.Len(), "inventory_rows", len(fixture.Inventory))
	if dups := cat.Duplicates(); len(dups) > 0 {
		log.Warn(LogMsgDuplicateRecipes, "outputs", dups)
	}

	names := loadNames(ctx, itemsCSVPath())
	target, err := lookupItem(names, ref)
	if err != nil {
		return err
	}
	preview, err := crafting.NewResolver().Preview(target, quantity, fixture.Snapshot(), cat)
	if err != nil {
		return err
	}
	return writePreview(stdout, preview, names, asJSON)
}

func itemsCSVPath() string {
	if path := os.Getenv(config.EnvItemsCSV); path != "" {
		return path
	}
	return config.DefaultItemsCSV
}

type craftCommand struct{}

func (c *craftCommand) Name() string { return "craft" }
func (c *craftCommand) Description() string {
	return "Resolve and submit a craft plan as one batched transaction"
}

func (c *craftCommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	item := fs.String("item", "", "item name or numeric id")
	quantity := fs.Int("quantity", 1, "number of units wanted")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	return withApp(ctx, func(a *app) error {
		if err := a.requireLand(); err != nil {
			return err
		}
		target, err := lookupItem(a.session.Names(), *item)
		if err != nil {
			return err
		}
		plan, receipt, err := a.session.Craft(logger.WithNewRequestID(ctx), target, *quantity)
		if err != nil {
			return err
		}
		writePlan(stdout, plan, a.session.Names())
		writeReceipt(stdout, receipt)
		return nil
	})
}

type craftableCommand struct{}

func (c *craftableCommand) Name() string { return "craftable" }
func (c *craftableCommand) Description() string {
	return "List recipes and how many units the inventory can craft now"
}

func (c *craftableCommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	readyOnly := fs.Bool("ready", false, "only show recipes craftable at least once")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	return withApp(ctx, func(a *app) error {
		if err := a.requireLand(); err != nil {
			return err
		}
		list := a.session.Craftable
		if *readyOnly {
			list = a.session.CraftableNow
		}
		entries, err := list(ctx)
		if err != nil {
			return err
		}
		if *asJSON {
			return writeJSON(stdout, entries)
		}
		writeCraftable(stdout, entries)
		return nil
	})
}

type recipeCommand struct{}

func (c *recipeCommand) Name() string { return "recipe" }
func (c *recipeCommand) Description() string {
	return "Show how an item is crafted and which recipes use it"
}

func (c *recipeCommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	item := fs.String("item", "", "item name or numeric id")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	return withApp(ctx, func(a *app) error {
		if err := a.requireLand(); err != nil {
			return err
		}
		id, err := lookupItem(a.session.Names(), *item)
		if err != nil {
			return err
		}
		info, err := a.session.Recipe(ctx, id)
		if err != nil {
			return err
		}
		if *asJSON {
			return writeJSON(stdout, info)
		}
		writeRecipe(stdout, info)
		return nil
	})
}

type inventoryCommand struct{}

func (c *inventoryCommand) Name() string        { return "inventory" }
func (c *inventoryCommand) Description() string { return "List the items held by a land" }

func (c *inventoryCommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	landID := fs.Int64("land", 0, "land id, defaults to LAND_ID")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	return withApp(ctx, func(a *app) error {
		sess, err := a.sessionFor(*landID)
		if err != nil {
			return err
		}
		inv, err := sess.Inventory(ctx)
		if err != nil {
			return err
		}
		lines := sess.Names().Lines(inv)
		if *asJSON {
			return writeJSON(stdout, lines)
		}
		writeInventory(stdout, sess.LandID(), lines)
		return nil
	})
}

type placeCommand struct{}

func (c *placeCommand) Name() string        { return "place" }
func (c *placeCommand) Description() string { return "Place one owned item on a cell of the land" }

func (c *placeCommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	item := fs.String("item", "", "item name or numeric id")
	x := fs.Int("x", -1, "cell column")
	y := fs.Int("y", -1, "cell row")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	coord := domain.Coord{X: *x, Y: *y}
	if !coord.InBounds(domain.GridSize) {
		return fmt.Errorf("%w: -x and -y must be within 0..%d", errUsage, domain.GridSize-1)
	}

	return withApp(ctx, func(a *app) error {
		if err := a.requireLand(); err != nil {
			return err
		}
		id, err := lookupItem(a.session.Names(), *item)
		if err != nil {
			return err
		}
		receipt, err := a.session.Place(logger.WithNewRequestID(ctx), coord, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "placed %s at %s\n", a.session.Names().DisplayName(id), coord)
		writeReceipt(stdout, receipt)
		return nil
	})
}

type createLandCommand struct{}

func (c *createLandCommand) Name() string        { return "create-land" }
func (c *createLandCommand) Description() string { return "Create a new land owned by the signer" }

func (c *createLandCommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	width := fs.Int("width", domain.GridSize, "land width in cells")
	height := fs.Int("height", domain.GridSize, "land height in cells")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *width <= 0 || *height <= 0 {
		return fmt.Errorf("%w: -width and -height must be positive", errUsage)
	}

	return withApp(ctx, func(a *app) error {
		receipt, err := a.session.CreateLand(logger.WithNewRequestID(ctx), domain.Coord{X: *width, Y: *height})
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "created %dx%d land for %s\n", *width, *height, a.session.Signer().Hex())
		writeReceipt(stdout, receipt)
		return nil
	})
}

type landCommand struct{}

func (c *landCommand) Name() string        { return "land" }
func (c *landCommand) Description() string { return "Print the visible grid of the configured land" }

func (c *landCommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	landID := fs.Int64("land", 0, "land id, defaults to LAND_ID")
	asJSON := fs.Bool("json", false, "print the placed items as JSON")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	return withApp(ctx, func(a *app) error {
		sess, err := a.sessionFor(*landID)
		if err != nil {
			return err
		}
		grid, err := sess.Land(ctx)
		if err != nil {
			return err
		}
		if *asJSON {
			return writeJSON(stdout, grid.Occupants())
		}
		fmt.Fprint(stdout, grid.Render(sess.Names()))
		return nil
	})
}

type landsCommand struct{}

func (c *landsCommand) Name() string        { return "lands" }
func (c *landsCommand) Description() string { return "Find the lands owned by the signer" }

func (c *landsCommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	limit := fs.Int("limit", 0, "highest land id to check")
	count := fs.Int("count", 0, "stop after this many owned lands, 0 for all")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	return withApp(ctx, func(a *app) error {
		lands, err := a.session.FindLands(ctx, *limit, *count)
		for _, id := range lands {
			fmt.Fprintln(stdout, id)
		}
		if len(lands) == 0 && err == nil {
			fmt.Fprintf(stdout, "no lands owned by %s\n", a.session.Signer().Hex())
		}
		return err
	})
}

type unlockOnceCommand struct{}

func (c *unlockOnceCommand) Name() string { return "unlock-once" }
func (c *unlockOnceCommand) Description() string {
	return "Unlock every time-gated item that is ready now"
}

func (c *unlockOnceCommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "print JSON")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	return withApp(ctx, func(a *app) error {
		if err := a.requireLand(); err != nil {
			return err
		}
		report, err := a.session.UnlockOnce(logger.WithNewRequestID(ctx))
		if err != nil && !report.Interrupted {
			return err
		}
		if *asJSON {
			if jerr := writeJSON(stdout, report); jerr != nil {
				return jerr
			}
			return err
		}
		writeReport(stdout, report)
		return err
	})
}

type farmCommand struct{}

func (c *farmCommand) Name() string { return "farm" }
func (c *farmCommand) Description() string {
	return "Run the unlock loop on one or more lands until interrupted"
}

func (c *farmCommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	landList := fs.String("lands", "", "comma separated land ids, \"all\" for every owned land")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	return withApp(ctx, func(a *app) error {
		lands, err := resolveLands(ctx, a, *landList)
		if err != nil {
			return err
		}
		return farm(ctx, a, lands)
	})
}

// resolveLands turns the -lands flag into ids. Empty means LAND_ID.
func resolveLands(ctx context.Context, a *app, list string) ([]domain.LandID, error) {
	switch strings.TrimSpace(list) {
	case "":
		if err := a.requireLand(); err != nil {
			return nil, err
		}
		return []domain.LandID{a.session.LandID()}, nil
	case "all":
		lands, err := a.session.FindLands(ctx, 0, 0)
		if err != nil {
			return nil, err
		}
		if len(lands) == 0 {
			return nil, fmt.Errorf("no lands owned by %s", a.session.Signer().Hex())
		}
		return lands, nil
	default:
		return parseLandList(list)
	}
}

func parseLandList(list string) ([]domain.LandID, error) {
	seen := make(map[domain.LandID]bool)
	var lands []domain.LandID
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%w: invalid land id %q", errUsage, part)
		}
		id := domain.LandID(n)
		if !seen[id] {
			seen[id] = true
			lands = append(lands, id)
		}
	}
	if len(lands) == 0 {
		return nil, fmt.Errorf("%w: no land ids given", errUsage)
	}
	return lands, nil
}

// farm runs one unlock loop per land on a worker pool. Loops share the
// session's signer lock so their transactions never race on the nonce.
func farm(ctx context.Context, a *app, lands []domain.LandID) error {
	log := logger.FromContext(ctx)

	pool := worker.NewPool(len(lands), len(lands))
	pool.OnError(func(err error) {
		log.Error("Unlock loop stopped", "error", err)
	})
	pool.Start(ctx)

	for _, id := range lands {
		if err := pool.Enqueue(worker.JobFunc(a.session.ForLand(id).RunUnlockLoop)); err != nil {
			pool.Stop()
			return err
		}
	}
	log.Info(LogMsgFarmStarted, "lands", lands)

	<-ctx.Done()
	pool.Stop()
	pool.Wait()
	return nil
}

type serveCommand struct{}

func (c *serveCommand) Name() string        { return "serve" }
func (c *serveCommand) Description() string { return "Serve the HTTP control API and metrics" }

func (c *serveCommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	port := fs.Int("port", 0, "listen port, defaults to HTTP_PORT")
	farmLands := fs.String("farm", "", "also run unlock loops on these lands (same syntax as farm -lands)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	return withApp(ctx, func(a *app) error {
		opts := server.Options{
			Port:           a.cfg.HTTPPort,
			APIKey:         a.cfg.APIKey,
			TrustedProxies: a.cfg.TrustedProxies,
		}
		if *port > 0 {
			opts.Port = *port
		}
		var lands []domain.LandID
		if *farmLands != "" {
			var err error
			if lands, err = resolveLands(ctx, a, *farmLands); err != nil {
				return err
			}
		}
		srv := server.NewServer(opts, a.session, a.journal, a.healthChecks())

		errCh := make(chan error, 2)
		go func() { errCh <- srv.Start() }()
		if len(lands) > 0 {
			go func() { errCh <- farm(ctx, a, lands) }()
		}

		var runErr error
		select {
		case <-ctx.Done():
		case runErr = <-errCh:
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			return errors.Join(runErr, err)
		}
		return runErr
	})
}

type migrateCommand struct{}

func (c *migrateCommand) Name() string        { return "migrate" }
func (c *migrateCommand) Description() string { return "Apply the submission journal migrations" }

func (c *migrateCommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if !cfg.JournalEnabled() {
		return fmt.Errorf("%w: %s is not set", errUsage, config.EnvJournalDatabaseURL)
	}
	pool, err := database.NewPool(ctx, cfg.JournalDatabaseURL, database.PoolConfig{})
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		return err
	}
	fmt.Fprintln(stdout, "journal schema up to date")
	return nil
}

type errorsCommand struct{}

func (c *errorsCommand) Name() string { return "errors" }
func (c *errorsCommand) Description() string {
	return "List the contract error selectors decoded from ABI_DIR"
}

func (c *errorsCommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	dir := fs.String("dir", "", "ABI directory, defaults to ABI_DIR")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	abiDir := *dir
	if abiDir == "" {
		abiDir = os.Getenv(config.EnvABIDir)
	}
	if abiDir == "" {
		abiDir = config.DefaultABIDir
	}
	abis, err := chain.LoadABIs(ctx, abiDir)
	if err != nil {
		return err
	}
	writeSelectors(stdout, chain.BuildSelectorTable(ctx, abis))
	return nil
}

func sortedSelectors(table chain.SelectorTable) []string {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
