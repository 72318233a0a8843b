package catalogsync

import (
	"context"
	"strings"
	"time"

	"github.com/catalogsync/backend/internal/domain/integration"
	"github.com/catalogsync/backend/internal/infrastructure/cache"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CatalogSource is the read side of the supplier gateway
type CatalogSource interface {
	integration.CatalogGateway
	integration.StockGateway
}

// CatalogReader serves supplier catalog reads through the TTL caches
type CatalogReader struct {
	source CatalogSource
	cache  *cache.CatalogCache
	logger *zap.Logger
}

// NewCatalogReader creates a CatalogReader
func NewCatalogReader(source CatalogSource, c *cache.CatalogCache, logger *zap.Logger) *CatalogReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogReader{source: source, cache: c, logger: logger}
}

// Categories returns the supplier category tree
func (r *CatalogReader) Categories(ctx context.Context) ([]integration.Category, error) {
	return cache.GetOrLoad(ctx, r.cache.Categories, cache.CategoryTreeKey(), r.source.ListCategories)
}

// CategoryPath returns the chain of categories from the root down to categoryID.
// An unknown id yields an empty path.
func (r *CatalogReader) CategoryPath(ctx context.Context, categoryID string) ([]integration.Category, error) {
	tree, err := r.Categories(ctx)
	if err != nil {
		return nil, err
	}
	var walk func(nodes []integration.Category, path []integration.Category) []integration.Category
	walk = func(nodes []integration.Category, path []integration.Category) []integration.Category {
		for _, n := range nodes {
			next := append(append([]integration.Category{}, path...), integration.Category{ID: n.ID, Name: n.Name, Level: n.Level})
			if n.ID == categoryID {
				return next
			}
			if found := walk(n.Children, next); found != nil {
				return found
			}
		}
		return nil
	}
	return walk(tree, nil), nil
}

// Search runs a supplier product search
func (r *CatalogReader) Search(ctx context.Context, q integration.SearchQuery) (*integration.SearchPage, error) {
	q = q.Normalize()
	return cache.GetOrLoad(ctx, r.cache.Search, q.CacheKey(), func(ctx context.Context) (*integration.SearchPage, error) {
		return r.source.SearchProducts(ctx, q)
	})
}

// Product returns full product details including reviews and video
func (r *CatalogReader) Product(ctx context.Context, externalProductID string) (*integration.ProductDetail, error) {
	return cache.GetOrLoad(ctx, r.cache.Details, externalProductID, func(ctx context.Context) (*integration.ProductDetail, error) {
		return r.source.GetProduct(ctx, externalProductID, integration.ProductFeatures{Reviews: true, Video: true})
	})
}

// VariantStock returns stock rows of one variant, limited to countryCode when given
func (r *CatalogReader) VariantStock(ctx context.Context, externalProductID, externalVariantID, countryCode string) ([]integration.VariantStock, error) {
	key := cache.StockKey(externalProductID, externalVariantID, countryCode)
	return cache.GetOrLoad(ctx, r.cache.Stock, key, func(ctx context.Context) ([]integration.VariantStock, error) {
		rows, err := r.source.GetVariantStock(ctx, externalVariantID)
		if err != nil {
			return nil, err
		}
		return filterCountry(rows, countryCode), nil
	})
}

// ProductStock returns stock rows of every variant of a product
func (r *CatalogReader) ProductStock(ctx context.Context, externalProductID, countryCode string) ([]integration.VariantStock, error) {
	key := cache.StockKey(externalProductID, "", countryCode)
	return cache.GetOrLoad(ctx, r.cache.Stock, key, func(ctx context.Context) ([]integration.VariantStock, error) {
		rows, err := r.source.GetProductStock(ctx, externalProductID)
		if err != nil {
			return nil, err
		}
		return filterCountry(rows, countryCode), nil
	})
}

func filterCountry(rows []integration.VariantStock, countryCode string) []integration.VariantStock {
	if countryCode == "" {
		return rows
	}
	return lo.Filter(rows, func(r integration.VariantStock, _ int) bool {
		return strings.EqualFold(r.CountryCode, countryCode)
	})
}

// ConnectionReport is the outcome of TestConnection
type ConnectionReport struct {
	OK             bool          `json:"ok"`
	Categories     int           `json:"categories"`
	CategoriesErr  string        `json:"categoriesError,omitempty"`
	SampleProducts int           `json:"sampleProducts"`
	ProductsErr    string        `json:"productsError,omitempty"`
	Latency        time.Duration `json:"latency"`
}

// TestConnection fetches categories and a first product page concurrently.
// Each branch records its own failure so one does not abort the other.
func (r *CatalogReader) TestConnection(ctx context.Context) *ConnectionReport {
	start := time.Now()
	report := &ConnectionReport{}

	var g errgroup.Group
	g.Go(func() error {
		cats, err := r.source.ListCategories(ctx)
		if err != nil {
			report.CategoriesErr = err.Error()
			return nil
		}
		report.Categories = len(cats)
		return nil
	})
	g.Go(func() error {
		page, err := r.source.SearchProducts(ctx, integration.SearchQuery{PageNum: 1, PageSize: 10})
		if err != nil {
			report.ProductsErr = err.Error()
			return nil
		}
		report.SampleProducts = len(page.Items)
		return nil
	})
	_ = g.Wait()

	report.OK = report.CategoriesErr == "" && report.ProductsErr == ""
	report.Latency = time.Since(start)
	if !report.OK {
		r.logger.Warn("supplier connection test failed",
			zap.String("categories_error", report.CategoriesErr),
			zap.String("products_error", report.ProductsErr),
		)
	}
	return report
}
