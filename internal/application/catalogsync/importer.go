package catalogsync

import (
	"context"
	"errors"
	"fmt"

	"github.com/catalogsync/backend/internal/domain/catalog"
	"github.com/catalogsync/backend/internal/domain/integration"
	"github.com/catalogsync/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// ImportStatus is the outcome of importing one supplier product
type ImportStatus string

const (
	ImportCreated     ImportStatus = "created"
	ImportUpdated     ImportStatus = "updated"
	ImportSkipped     ImportStatus = "skipped"
	ImportUnavailable ImportStatus = "unavailable"
)

// ImportResult reports a single product import
type ImportResult struct {
	ExternalProductID string       `json:"externalProductId"`
	Status            ImportStatus `json:"status"`
	ProductID         *uuid.UUID   `json:"productId,omitempty"`
	Changes           []string     `json:"changes,omitempty"`
	Reason            string       `json:"reason,omitempty"`
}

// StageResult reports a staging run
type StageResult struct {
	Pages    int      `json:"pages"`
	Staged   int      `json:"staged"`
	Unmapped int      `json:"unmapped"`
	Errors   []string `json:"errors,omitempty"`
}

// Importer is the polling path: it stages supplier search results and
// imports individual products on demand
type Importer struct {
	source   CatalogSource
	resolver *IdentityResolver
	entries  integration.CatalogEntryRepository
	mappings catalog.CategoryMappingRepository
	unmapped catalog.UnmappedCategoryRepository
	cache    CacheInvalidator
	settings Settings
	logger   *zap.Logger
	metrics  *telemetry.SyncMetrics
}

// ImporterDeps groups the Importer collaborators
type ImporterDeps struct {
	Source   CatalogSource
	Resolver *IdentityResolver
	Entries  integration.CatalogEntryRepository
	Mappings catalog.CategoryMappingRepository
	Unmapped catalog.UnmappedCategoryRepository
	Cache    CacheInvalidator
}

// NewImporter creates an Importer
func NewImporter(deps ImporterDeps, settings Settings, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Cache == nil {
		deps.Cache = noopInvalidator{}
	}
	return &Importer{
		source:   deps.Source,
		resolver: deps.Resolver,
		entries:  deps.Entries,
		mappings: deps.Mappings,
		unmapped: deps.Unmapped,
		cache:    deps.Cache,
		settings: settings,
		logger:   logger,
	}
}

// SetMetrics attaches a metrics collector
func (im *Importer) SetMetrics(m *telemetry.SyncMetrics) {
	im.metrics = m
}

// StageProducts pages through a supplier search and stages every hit.
// Pages are fetched one at a time with the tier batch delay between them.
func (im *Importer) StageProducts(ctx context.Context, q integration.SearchQuery, maxPages int) (*StageResult, error) {
	if maxPages <= 0 {
		maxPages = 1
	}
	q = q.Normalize()
	result := &StageResult{}
	unmapped := map[string]bool{}

	for page := q.PageNum; page < q.PageNum+maxPages; page++ {
		if page > q.PageNum {
			if err := pause(ctx, im.settings.BatchDelay); err != nil {
				return result, err
			}
		}
		pq := q
		pq.PageNum = page
		res, err := im.source.SearchProducts(ctx, pq)
		if err != nil {
			if result.Pages == 0 {
				return nil, err
			}
			result.Errors = append(result.Errors, fmt.Sprintf("page %d: %v", page, err))
			break
		}
		result.Pages++

		for _, item := range res.Items {
			entry, err := integration.NewCatalogEntryFromSummary(im.settings.SupplierID, item)
			if err != nil {
				result.Errors = append(result.Errors, err.Error())
				continue
			}
			if err := im.entries.Upsert(ctx, entry); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", item.ExternalID, err))
				continue
			}
			result.Staged++
			if im.recordIfUnmapped(ctx, item.CategoryID) {
				unmapped[item.CategoryID] = true
			}
		}
		if len(res.Items) < pq.PageSize {
			break
		}
	}
	result.Unmapped = len(unmapped)
	return result, nil
}

func (im *Importer) recordIfUnmapped(ctx context.Context, externalCategory string) bool {
	if externalCategory == "" {
		return false
	}
	_, err := im.mappings.FindByExternalCategory(ctx, im.settings.SupplierID, externalCategory)
	if err == nil || !errors.Is(err, catalog.ErrMappingNotFound) {
		return false
	}
	if err := im.unmapped.Record(ctx, im.settings.SupplierID, externalCategory); err != nil {
		im.logger.Warn("failed to record unmapped category", zap.String("external_category", externalCategory), zap.Error(err))
	}
	return true
}

// ImportProduct fetches one supplier product with its stock and applies it
// locally. A delisted product or a stock fetch that keeps failing yields an
// unavailable result rather than an error.
func (im *Importer) ImportProduct(ctx context.Context, externalProductID string) (res *ImportResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "importer", "import_product",
		telemetry.WithAttribute(telemetry.SpanAttrExternalProductID, externalProductID))
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
		outcome := telemetry.SyncOutcomeFailed
		if res != nil {
			outcome = importOutcome(res.Status)
		}
		recordItems(ctx, im.metrics, telemetry.SyncOperationImport, map[string]int{outcome: 1})
	}()
	return im.importProduct(ctx, externalProductID)
}

func importOutcome(s ImportStatus) string {
	switch s {
	case ImportCreated:
		return telemetry.SyncOutcomeCreated
	case ImportUpdated:
		return telemetry.SyncOutcomeUpdated
	default:
		return telemetry.SyncOutcomeSkipped
	}
}

func (im *Importer) importProduct(ctx context.Context, externalProductID string) (*ImportResult, error) {
	result := &ImportResult{ExternalProductID: externalProductID}

	detail, err := im.source.GetProduct(ctx, externalProductID, integration.ProductFeatures{Reviews: true})
	if err != nil {
		if errors.Is(err, integration.ErrProductDelisted) {
			result.Status, result.Reason = ImportUnavailable, "product removed by supplier"
			return result, nil
		}
		return nil, err
	}

	entry, err := integration.NewCatalogEntryFromDetail(im.settings.SupplierID, detail)
	if err != nil {
		return nil, err
	}
	if err := im.entries.Upsert(ctx, entry); err != nil {
		return nil, err
	}

	rows, err := im.source.GetProductStock(ctx, externalProductID)
	if err != nil {
		im.logger.Warn("stock unavailable, product not imported", zap.String("external_id", externalProductID), zap.Error(err))
		result.Status, result.Reason = ImportUnavailable, "product removed or unavailable: "+err.Error()
		return result, nil
	}
	stock := lo.MapValues(
		lo.GroupBy(rows, func(r integration.VariantStock) string { return r.ExternalVariantID }),
		func(rs []integration.VariantStock, _ string) int64 {
			return lo.SumBy(rs, func(r integration.VariantStock) int64 { return r.Quantity })
		},
	)

	var categoryID *uuid.UUID
	if mp, err := im.mappings.FindByExternalCategory(ctx, im.settings.SupplierID, detail.CategoryID); err == nil {
		categoryID = &mp.InternalCategoryID
	}

	data := ProductData{
		SupplierID:        im.settings.SupplierID,
		ExternalProductID: detail.ExternalID,
		SKU:               detail.SKU,
		Name:              NormalizeText(detail.Name),
		Description:       NormalizeText(detail.Description),
		CategoryID:        categoryID,
		CostPrice:         detail.Price,
		Weight:            detail.Weight,
		Images:            detail.Images,
	}
	for _, v := range detail.Variants {
		vd := VariantData{
			ExternalVariantID: v.ExternalID,
			Name:              NormalizeText(v.Name),
			SKU:               v.SKU,
			Image:             v.Image,
			CostPrice:         v.Price,
			Weight:            v.Weight,
			Properties:        v.Properties,
		}
		if qty, ok := stock[v.ExternalID]; ok {
			vd.Stock = lo.ToPtr(qty)
		}
		data.Variants = append(data.Variants, vd)
	}

	decision := im.resolver.ResolveDuplicate(ctx, data.SupplierID, data.ExternalProductID, data.SKU,
		&Candidate{Name: data.Name, Price: im.settings.SellPrice(data.CostPrice)})
	res, err := im.resolver.ApplyUpsert(ctx, data, decision)
	if err != nil {
		return nil, err
	}

	switch res.Action {
	case ActionSkip:
		result.Status, result.Reason = ImportSkipped, decision.Reason
		result.ProductID = res.AbsorbedBy
		return result, nil
	case ActionUpdate:
		result.Status = ImportUpdated
		for _, vd := range data.Variants {
			_, changes, err := im.resolver.UpsertVariant(ctx, res.Product.ID, vd)
			if err != nil {
				return nil, err
			}
			res.Changes = append(res.Changes, changes...)
		}
	default:
		result.Status = ImportCreated
	}
	result.ProductID = &res.Product.ID
	result.Changes = res.Changes

	if err := im.entries.UpdateStatus(ctx, entry.ID, integration.CatalogEntryImported); err != nil {
		im.logger.Warn("failed to flip staged entry", zap.String("external_id", externalProductID), zap.Error(err))
	}
	im.cache.InvalidateProduct(ctx, externalProductID)
	return result, nil
}
