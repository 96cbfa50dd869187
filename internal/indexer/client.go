package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/osse101/cosmos-agent/internal/domain"
	"github.com/osse101/cosmos-agent/internal/logger"
	"github.com/osse101/cosmos-agent/internal/metrics"
)

// Config configures the indexer client
type Config struct {
	URL          string
	WorldAddress string
	Namespace    string
	HTTPClient   *http.Client
	MaxRetries   int
	RetryDelay   time.Duration
	CacheSize    int
	CacheTTL     time.Duration
	TimeSource   TimeSource // nil falls back to the local clock
}

// Client reads world state from a MUD SQL indexer
type Client struct {
	baseURL    string
	world      string
	namespace  string
	http       *http.Client
	maxRetries int
	retryDelay time.Duration
	cache      *definitionCache
	now        TimeSource
}

// NewClient creates an indexer client
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	} else if retries == 0 {
		retries = DefaultMaxRetries
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	now := cfg.TimeSource
	if now == nil {
		now = func(context.Context) (time.Time, error) { return time.Now().UTC(), nil }
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		world:      cfg.WorldAddress,
		namespace:  cfg.Namespace,
		http:       httpClient,
		maxRetries: retries,
		retryDelay: delay,
		cache:      newDefinitionCache(cfg.CacheSize, cfg.CacheTTL),
		now:        now,
	}
}

// InvalidateDefinitions drops cached recipes and transformations
func (c *Client) InvalidateDefinitions() {
	c.cache.clear()
}

// GetRecipes returns every crafting recipe. Input and quantity arrays are
// zipped; zero item ids are padding and dropped.
func (c *Client) GetRecipes(ctx context.Context) ([]domain.Recipe, error) {
	if entry, ok := c.cache.get(TableRecipes); ok {
		metrics.IndexerCache.WithLabelValues(TableRecipes, metrics.CacheHit).Inc()
		return entry.Recipes, nil
	}
	metrics.IndexerCache.WithLabelValues(TableRecipes, metrics.CacheMiss).Inc()

	query := fmt.Sprintf(`SELECT "itemId", "inputs", "quantities" FROM %s`, c.table(TableRecipes))
	rows, err := c.query(ctx, TableRecipes, query)
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	recipes := make([]domain.Recipe, 0, len(rows))
	for _, row := range rows {
		r, err := parseRecipe(row)
		if err != nil {
			log.Warn(LogMsgRowSkipped, "table", TableRecipes, "error", err)
			continue
		}
		recipes = append(recipes, r)
	}

	c.cache.setRecipes(TableRecipes, recipes)
	return recipes, nil
}

// GetInventory returns the land's inventory
func (c *Client) GetInventory(ctx context.Context, landID domain.LandID) (domain.Inventory, error) {
	query := fmt.Sprintf(`SELECT "item", "quantity" FROM %s WHERE "landId" = %d`, c.table(TableInventory), landID)
	rows, err := c.query(ctx, TableInventory, query)
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	inv := make([]domain.InventoryRow, 0, len(rows))
	for _, row := range rows {
		item, err := row.Int(ColItem)
		if err != nil {
			log.Warn(LogMsgRowSkipped, "table", TableInventory, "error", err)
			continue
		}
		qty, err := row.Int(ColQuantity)
		if err != nil {
			log.Warn(LogMsgRowSkipped, "table", TableInventory, "error", err)
			continue
		}
		inv = append(inv, domain.InventoryRow{ItemID: domain.ItemID(item), Quantity: int(qty)})
	}
	return domain.NewInventory(inv), nil
}

// GetLandItems returns every item placed on the land, stacked items included
func (c *Client) GetLandItems(ctx context.Context, landID domain.LandID) ([]domain.PlacedItem, error) {
	query := fmt.Sprintf(`SELECT "x", "y", "z", "itemId", "placementTime" FROM %s WHERE "landId" = %d`, c.table(TableLandItem), landID)
	rows, err := c.query(ctx, TableLandItem, query)
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	items := make([]domain.PlacedItem, 0, len(rows))
	for _, row := range rows {
		p, err := parsePlacedItem(landID, row)
		if err != nil {
			log.Warn(LogMsgRowSkipped, "table", TableLandItem, "error", err)
			continue
		}
		items = append(items, p)
	}
	return items, nil
}

// GetTransformations returns transformation definitions passing filter. The
// whole table is cached and filtered locally.
func (c *Client) GetTransformations(ctx context.Context, filter domain.TransformationFilter) ([]domain.TransformationDef, error) {
	defs, err := c.allTransformations(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.TransformationDef, 0, len(defs))
	for _, d := range defs {
		if filter.Matches(d) {
			out = append(out, d)
		}
	}
	return out, nil
}

// CurrentChainTime asks the configured time source
func (c *Client) CurrentChainTime(ctx context.Context) (time.Time, error) {
	t, err := c.now(ctx)
	if err != nil {
		return time.Time{}, &domain.TransportError{Op: "chain time", Err: err}
	}
	return t, nil
}

func (c *Client) allTransformations(ctx context.Context) ([]domain.TransformationDef, error) {
	if entry, ok := c.cache.get(TableTransformations); ok {
		metrics.IndexerCache.WithLabelValues(TableTransformations, metrics.CacheHit).Inc()
		return entry.Transformations, nil
	}
	metrics.IndexerCache.WithLabelValues(TableTransformations, metrics.CacheMiss).Inc()

	query := fmt.Sprintf(`SELECT "base", "input", "next", "yield", "yieldQuantity", "unlockTime", "timeout", "xp" FROM %s`,
		c.table(TableTransformations))
	rows, err := c.query(ctx, TableTransformations, query)
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	defs := make([]domain.TransformationDef, 0, len(rows))
	for _, row := range rows {
		d, err := parseTransformation(row)
		if err != nil {
			log.Warn(LogMsgRowSkipped, "table", TableTransformations, "error", err)
			continue
		}
		defs = append(defs, d)
	}

	c.cache.setTransformations(TableTransformations, defs)
	return defs, nil
}

// table qualifies a table name with the MUD namespace
func (c *Client) table(name string) string {
	if c.namespace == "" {
		return strconv.Quote(name)
	}
	return strconv.Quote(c.namespace + "__" + name)
}

// query posts one SQL query and returns its rows
func (c *Client) query(ctx context.Context, table, sql string) ([]Row, error) {
	body, err := json.Marshal([]queryRequest{{Address: c.world, Query: sql}})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	resp, err := c.doRequest(ctx, body)
	if err != nil {
		metrics.IndexerQueries.WithLabelValues(table, metrics.OutcomeTransport).Inc()
		logger.FromContext(ctx).Warn(LogMsgQueryFailed, "table", table, "error", err)
		return nil, &domain.TransportError{Op: "indexer " + table, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.IndexerQueries.WithLabelValues(table, metrics.OutcomeTransport).Inc()
		return nil, &domain.TransportError{Op: "indexer " + table, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		metrics.IndexerQueries.WithLabelValues(table, strconv.Itoa(resp.StatusCode)).Inc()
		return nil, fmt.Errorf("indexer returned status %d for %s: %s", resp.StatusCode, table, strings.TrimSpace(string(raw)))
	}

	rows, _, err := decodeRows(raw)
	if err != nil {
		metrics.IndexerQueries.WithLabelValues(table, metrics.OutcomeError).Inc()
		return nil, err
	}
	metrics.IndexerQueries.WithLabelValues(table, metrics.OutcomeSuccess).Inc()
	return rows, nil
}

// doRequest performs the POST with retry and exponential backoff on network
// and 5xx failures
func (c *Client) doRequest(ctx context.Context, body []byte) (*http.Response, error) {
	log := logger.FromContext(ctx)
	url := c.baseURL + QueryPath

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay * time.Duration(1<<uint(attempt-1))
			log.Debug(LogMsgRetrying, "attempt", attempt, "delay", delay)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", ContentTypeJSON)

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		if resp.StatusCode < http.StatusInternalServerError {
			return resp, nil
		}

		resp.Body.Close()
		lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
		log.Warn(LogMsgServerError, "status", resp.StatusCode, "attempt", attempt)
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func parseRecipe(row Row) (domain.Recipe, error) {
	output, err := row.Int(ColItemID)
	if err != nil {
		return domain.Recipe{}, err
	}
	inputs, err := row.Ints(ColInputs)
	if err != nil {
		return domain.Recipe{}, err
	}
	quantities, err := row.Ints(ColQuantities)
	if err != nil {
		return domain.Recipe{}, err
	}
	if len(inputs) != len(quantities) {
		return domain.Recipe{}, fmt.Errorf("recipe %d has %d inputs but %d quantities", output, len(inputs), len(quantities))
	}

	r := domain.Recipe{Output: domain.ItemID(output)}
	for i, in := range inputs {
		if in == int64(domain.EmptyItem) {
			continue
		}
		r.Inputs = append(r.Inputs, domain.RecipeInput{ItemID: domain.ItemID(in), Quantity: int(quantities[i])})
	}
	return r, nil
}

func parsePlacedItem(landID domain.LandID, row Row) (domain.PlacedItem, error) {
	var vals [5]int64
	for i, col := range []string{ColX, ColY, ColZ, ColItemID, ColPlacementTime} {
		n, err := row.Int(col)
		if err != nil {
			return domain.PlacedItem{}, err
		}
		vals[i] = n
	}
	return domain.PlacedItem{
		LandID:        landID,
		X:             int(vals[0]),
		Y:             int(vals[1]),
		Z:             int(vals[2]),
		ItemID:        domain.ItemID(vals[3]),
		PlacementTime: time.Unix(vals[4], 0).UTC(),
	}, nil
}

func parseTransformation(row Row) (domain.TransformationDef, error) {
	base, err := row.Int(ColBase)
	if err != nil {
		return domain.TransformationDef{}, err
	}
	input, err := row.Int(ColInput)
	if err != nil {
		return domain.TransformationDef{}, err
	}
	unlock, err := row.Int(ColUnlockTime)
	if err != nil {
		return domain.TransformationDef{}, err
	}

	optional := func(col string) int64 {
		n, _ := row.Int(col)
		return n
	}
	return domain.TransformationDef{
		Base:          domain.ItemID(base),
		Input:         domain.ItemID(input),
		Next:          domain.ItemID(optional(ColNext)),
		Yield:         domain.ItemID(optional(ColYield)),
		YieldQuantity: int(optional(ColYieldQuantity)),
		UnlockTime:    time.Duration(unlock) * time.Second,
		Timeout:       time.Duration(optional(ColTimeout)) * time.Second,
		XP:            int(optional(ColXP)),
	}, nil
}

var _ Reader = (*Client)(nil)
