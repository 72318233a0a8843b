package catalogsync

import (
	"context"
	"fmt"

	"github.com/catalogsync/backend/internal/domain/catalog"
	"github.com/catalogsync/backend/internal/domain/integration"
	"github.com/catalogsync/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// ResyncResult reports a per-variant stock refresh
type ResyncResult struct {
	ProductID uuid.UUID `json:"productId"`
	Variants  int       `json:"variants"`
	Updated   int       `json:"updated"`
	Failed    int       `json:"failed"`
	Errors    []string  `json:"errors,omitempty"`
}

// StockResyncer refreshes local stock from the supplier one variant at a time
type StockResyncer struct {
	stock    integration.StockGateway
	products catalog.ProductReader
	variants catalog.VariantRepository
	cache    CacheInvalidator
	settings Settings
	logger   *zap.Logger
	metrics  *telemetry.SyncMetrics
}

// SetMetrics attaches a metrics collector
func (s *StockResyncer) SetMetrics(m *telemetry.SyncMetrics) {
	s.metrics = m
}

// NewStockResyncer creates a StockResyncer
func NewStockResyncer(
	stock integration.StockGateway,
	products catalog.ProductReader,
	variants catalog.VariantRepository,
	cache CacheInvalidator,
	settings Settings,
	logger *zap.Logger,
) *StockResyncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = noopInvalidator{}
	}
	return &StockResyncer{
		stock:    stock,
		products: products,
		variants: variants,
		cache:    cache,
		settings: settings,
		logger:   logger,
	}
}

// ResyncProduct refreshes every variant of a product. Calls are serialized
// with the tier batch delay; one failing variant does not stop the rest.
func (s *StockResyncer) ResyncProduct(ctx context.Context, productID uuid.UUID) (*ResyncResult, error) {
	p, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	variants, err := s.variants.FindByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	result := &ResyncResult{ProductID: productID}
	for _, v := range variants {
		if v.ExternalVariantID == "" {
			continue
		}
		if result.Variants > 0 {
			if err := pause(ctx, s.settings.BatchDelay); err != nil {
				return result, err
			}
		}
		result.Variants++

		rows, err := s.stock.GetVariantStock(ctx, v.ExternalVariantID)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", v.ExternalVariantID, err))
			continue
		}
		total := lo.SumBy(rows, func(r integration.VariantStock) int64 { return r.Quantity })
		if err := s.variants.SetStock(ctx, v.ExternalVariantID, total); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", v.ExternalVariantID, err))
			continue
		}
		result.Updated++
	}

	s.cache.InvalidateProduct(ctx, p.ExternalProductID)
	recordItems(ctx, s.metrics, telemetry.SyncOperationStockResync, map[string]int{
		telemetry.SyncOutcomeUpdated: result.Updated,
		telemetry.SyncOutcomeFailed:  result.Failed,
	})
	s.logger.Info("stock resynced",
		zap.String("product_id", productID.String()),
		zap.Int("updated", result.Updated),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}
