package indexer

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/osse101/cosmos-agent/internal/domain"
)

// cachedEntry wraps definition records with version metadata
type cachedEntry struct {
	Version         string
	Recipes         []domain.Recipe
	Transformations []domain.TransformationDef
	CachedAt        time.Time
}

// definitionCache keeps recipe and transformation tables, which change only on
// world upgrades, so every planning session does not refetch them.
type definitionCache struct {
	lru *expirable.LRU[string, *cachedEntry]
}

func newDefinitionCache(size int, ttl time.Duration) *definitionCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &definitionCache{
		lru: expirable.NewLRU[string, *cachedEntry](size, nil, ttl),
	}
}

// get returns the entry under key when present and of the current version
func (c *definitionCache) get(key string) (*cachedEntry, bool) {
	entry, found := c.lru.Get(key)
	if !found {
		return nil, false
	}
	if entry.Version != CacheSchemaVersion {
		c.lru.Remove(key)
		return nil, false
	}
	return entry, true
}

func (c *definitionCache) setRecipes(key string, recipes []domain.Recipe) {
	c.lru.Add(key, &cachedEntry{Version: CacheSchemaVersion, Recipes: recipes, CachedAt: time.Now()})
}

func (c *definitionCache) setTransformations(key string, defs []domain.TransformationDef) {
	c.lru.Add(key, &cachedEntry{Version: CacheSchemaVersion, Transformations: defs, CachedAt: time.Now()})
}

// clear drops every entry
func (c *definitionCache) clear() {
	c.lru.Purge()
}
