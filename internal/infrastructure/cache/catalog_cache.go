package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/catalogsync/backend/internal/domain/integration"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache names
const (
	SearchCacheName   = "search"
	DetailsCacheName  = "details"
	StockCacheName    = "stock"
	CategoryCacheName = "categories"

	categoryTreeKey = "tree"
)

// TTLConfig holds the lifetime of each catalog cache
type TTLConfig struct {
	Search        time.Duration
	Details       time.Duration
	Stock         time.Duration
	Categories    time.Duration
	SweepInterval time.Duration
}

// DefaultTTLConfig returns the default cache lifetimes
func DefaultTTLConfig() TTLConfig {
	return TTLConfig{
		Search:        5 * time.Minute,
		Details:       15 * time.Minute,
		Stock:         2 * time.Minute,
		Categories:    60 * time.Minute,
		SweepInterval: time.Minute,
	}
}

// CatalogCache bundles the four independent supplier read caches
type CatalogCache struct {
	Search     Store[*integration.SearchPage]
	Details    Store[*integration.ProductDetail]
	Stock      Store[[]integration.VariantStock]
	Categories Store[[]integration.Category]

	logger    *zap.Logger
	interval  time.Duration
	stopChan  chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	closeOnce sync.Once
}

// NewInMemoryCatalogCache creates a process-local catalog cache
func NewInMemoryCatalogCache(cfg TTLConfig, logger *zap.Logger, opts ...TTLCacheOption) *CatalogCache {
	return newCatalogCache(cfg, logger,
		NewTTLCache[*integration.SearchPage](SearchCacheName, cfg.Search, opts...),
		NewTTLCache[*integration.ProductDetail](DetailsCacheName, cfg.Details, opts...),
		NewTTLCache[[]integration.VariantStock](StockCacheName, cfg.Stock, opts...),
		NewTTLCache[[]integration.Category](CategoryCacheName, cfg.Categories, opts...),
	)
}

// NewRedisCatalogCache creates a catalog cache shared through Redis
func NewRedisCatalogCache(client *redis.Client, keyPrefix string, cfg TTLConfig, logger *zap.Logger) *CatalogCache {
	return newCatalogCache(cfg, logger,
		NewRedisTTLCache[*integration.SearchPage](client, keyPrefix, SearchCacheName, cfg.Search, logger),
		NewRedisTTLCache[*integration.ProductDetail](client, keyPrefix, DetailsCacheName, cfg.Details, logger),
		NewRedisTTLCache[[]integration.VariantStock](client, keyPrefix, StockCacheName, cfg.Stock, logger),
		NewRedisTTLCache[[]integration.Category](client, keyPrefix, CategoryCacheName, cfg.Categories, logger),
	)
}

func newCatalogCache(
	cfg TTLConfig,
	logger *zap.Logger,
	search Store[*integration.SearchPage],
	details Store[*integration.ProductDetail],
	stock Store[[]integration.VariantStock],
	categories Store[[]integration.Category],
) *CatalogCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := cfg.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	return &CatalogCache{
		Search:     search,
		Details:    details,
		Stock:      stock,
		Categories: categories,
		logger:     logger.Named("catalog_cache"),
		interval:   interval,
		stopChan:   make(chan struct{}),
	}
}

// StockKey builds the stock cache key for a product, variant and destination country
func StockKey(externalProductID, externalVariantID, countryCode string) string {
	return externalProductID + "|" + externalVariantID + "|" + strings.ToUpper(countryCode)
}

// CategoryTreeKey is the single key of the category cache
func CategoryTreeKey() string {
	return categoryTreeKey
}

// InvalidateProduct drops details and stock entries of one supplier product
func (c *CatalogCache) InvalidateProduct(ctx context.Context, externalProductID string) {
	if externalProductID == "" {
		return
	}
	c.Details.Delete(ctx, externalProductID)
	c.Stock.DeletePrefix(ctx, externalProductID+"|")
}

// InvalidateAll clears every cache
func (c *CatalogCache) InvalidateAll(ctx context.Context) {
	c.Search.Clear(ctx)
	c.Details.Clear(ctx)
	c.Stock.Clear(ctx)
	c.Categories.Clear(ctx)
	c.logger.Info("Catalog caches invalidated")
}

// Stats returns a snapshot of each cache
func (c *CatalogCache) Stats() []Stats {
	return []Stats{
		c.Search.Stats(),
		c.Details.Stats(),
		c.Stock.Stats(),
		c.Categories.Stats(),
	}
}

// Sweep runs an expiry pass over every store that needs one
func (c *CatalogCache) Sweep() int {
	removed := 0
	for _, s := range []any{c.Search, c.Details, c.Stock, c.Categories} {
		if sw, ok := s.(Sweeper); ok {
			removed += sw.Sweep()
		}
	}
	return removed
}

// Start launches the periodic sweep loop. Safe to call multiple times.
func (c *CatalogCache) Start() {
	c.startOnce.Do(func() {
		c.wg.Add(1)
		go c.sweepLoop()
	})
}

// Close stops the sweep loop. Safe to call multiple times.
func (c *CatalogCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
		c.wg.Wait()
	})
	return nil
}

func (c *CatalogCache) sweepLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			if n := c.Sweep(); n > 0 {
				c.logger.Debug("Swept expired cache entries", zap.Int("removed", n))
			}
		}
	}
}
