package catalogsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/catalogsync/backend/internal/domain/catalog"
	"github.com/catalogsync/backend/internal/domain/integration"
	"github.com/catalogsync/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaterializeResult counts what one mapping pass did
type MaterializeResult struct {
	MappingID        uuid.UUID `json:"mappingId"`
	ExternalCategory string    `json:"externalCategory"`
	Created          int       `json:"created"`
	Updated          int       `json:"updated"`
	Skipped          int       `json:"skipped"`
	Errors           []string  `json:"errors,omitempty"`
}

// SyncSummary aggregates a sync-all run
type SyncSummary struct {
	Mappings int            `json:"mappings"`
	Created  int            `json:"created"`
	Updated  int            `json:"updated"`
	Skipped  int            `json:"skipped"`
	Errors   []MappingError `json:"errors,omitempty"`
}

// MappingError is a failure scoped to one mapping
type MappingError struct {
	MappingID        uuid.UUID `json:"mappingId"`
	ExternalCategory string    `json:"externalCategory"`
	Error            string    `json:"error"`
}

// SyncProgress is published after each mapping of a sync-all run
type SyncProgress struct {
	Index            int                `json:"index"`
	Total            int                `json:"total"`
	ExternalCategory string             `json:"externalCategory"`
	Result           *MaterializeResult `json:"result,omitempty"`
	Error            string             `json:"error,omitempty"`
}

// Materializer turns staged supplier entries into local draft products once
// their category is mapped
type Materializer struct {
	resolver *IdentityResolver
	products catalog.ProductRepository
	entries  integration.CatalogEntryRepository
	mappings catalog.CategoryMappingRepository
	unmapped catalog.UnmappedCategoryRepository
	cache    CacheInvalidator
	settings Settings
	logger   *zap.Logger
	metrics  *telemetry.SyncMetrics
	now      func() time.Time
}

// MaterializerDeps groups the Materializer collaborators
type MaterializerDeps struct {
	Resolver *IdentityResolver
	Products catalog.ProductRepository
	Entries  integration.CatalogEntryRepository
	Mappings catalog.CategoryMappingRepository
	Unmapped catalog.UnmappedCategoryRepository
	Cache    CacheInvalidator
}

// NewMaterializer creates a Materializer
func NewMaterializer(deps MaterializerDeps, settings Settings, logger *zap.Logger) *Materializer {
	if logger == nil {
		logger = zap.NewNop()
	}
	cache := deps.Cache
	if cache == nil {
		cache = noopInvalidator{}
	}
	return &Materializer{
		resolver: deps.Resolver,
		products: deps.Products,
		entries:  deps.Entries,
		mappings: deps.Mappings,
		unmapped: deps.Unmapped,
		cache:    cache,
		settings: settings,
		logger:   logger,
		now:      time.Now,
	}
}

// SetMetrics attaches a metrics collector
func (m *Materializer) SetMetrics(sm *telemetry.SyncMetrics) {
	m.metrics = sm
}

// ---------------------------------------------------------------------------
// Mappings
// ---------------------------------------------------------------------------

// SaveMapping creates or repoints a category mapping, clears the unmapped
// counter for it and materializes the staged entries it unlocks
func (m *Materializer) SaveMapping(
	ctx context.Context,
	supplierID, externalCategory string,
	internalCategoryID uuid.UUID,
) (*catalog.CategoryMapping, *MaterializeResult, error) {
	mapping, err := catalog.NewCategoryMapping(supplierID, externalCategory, internalCategoryID)
	if err != nil {
		return nil, nil, err
	}
	existing, err := m.mappings.FindByExternalCategory(ctx, mapping.SupplierID, mapping.ExternalCategory)
	switch {
	case err == nil:
		existing.InternalCategoryID = internalCategoryID
		existing.UpdatedAt = m.now()
		mapping = existing
	case !errors.Is(err, catalog.ErrMappingNotFound):
		return nil, nil, err
	}

	if err := m.mappings.Save(ctx, mapping); err != nil {
		return nil, nil, err
	}
	if err := m.unmapped.Remove(ctx, mapping.SupplierID, mapping.ExternalCategory); err != nil {
		m.logger.Warn("failed to clear unmapped category",
			zap.String("external_category", mapping.ExternalCategory), zap.Error(err))
	}

	result, err := m.MaterializeMapping(ctx, mapping)
	if err != nil {
		return mapping, nil, err
	}
	return mapping, result, nil
}

// ListMappings returns every established mapping
func (m *Materializer) ListMappings(ctx context.Context) ([]catalog.CategoryMapping, error) {
	return m.mappings.FindAll(ctx)
}

// ListUnmapped returns supplier categories that still need a mapping
func (m *Materializer) ListUnmapped(ctx context.Context, supplierID string) ([]catalog.UnmappedCategory, error) {
	return m.unmapped.FindAll(ctx, supplierID)
}

// ---------------------------------------------------------------------------
// Materialization
// ---------------------------------------------------------------------------

// MaterializeMapping imports every available staged entry of the mapping's
// external category. Entry failures are collected, not fatal.
func (m *Materializer) MaterializeMapping(ctx context.Context, mapping *catalog.CategoryMapping) (*MaterializeResult, error) {
	entries, err := m.entries.FindByCategory(ctx, mapping.SupplierID, mapping.ExternalCategory, integration.CatalogEntryAvailable)
	if err != nil {
		return nil, fmt.Errorf("load staged entries for %s: %w", mapping.ExternalCategory, err)
	}

	result := &MaterializeResult{MappingID: mapping.ID, ExternalCategory: mapping.ExternalCategory}
	categoryID := mapping.InternalCategoryID
	for i := range entries {
		action, _, err := m.materialize(ctx, &entries[i], &categoryID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", entries[i].ExternalProductID, err))
			continue
		}
		switch action {
		case ActionCreate:
			result.Created++
		case ActionUpdate:
			result.Updated++
		default:
			result.Skipped++
		}
	}

	recordItems(ctx, m.metrics, telemetry.SyncOperationMaterialize, map[string]int{
		telemetry.SyncOutcomeCreated: result.Created,
		telemetry.SyncOutcomeUpdated: result.Updated,
		telemetry.SyncOutcomeSkipped: result.Skipped,
		telemetry.SyncOutcomeFailed:  len(result.Errors),
	})

	mapping.MarkSynced(m.now())
	if err := m.mappings.Save(ctx, mapping); err != nil {
		m.logger.Warn("failed to record mapping sync time", zap.String("mapping_id", mapping.ID.String()), zap.Error(err))
	}

	m.logger.Info("category mapping materialized",
		zap.String("external_category", mapping.ExternalCategory),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

// SyncAllMappings materializes every mapping in turn. A failing mapping is
// recorded and the run continues. Progress is published on progress, which
// is closed on return; pass nil to skip progress reporting.
func (m *Materializer) SyncAllMappings(ctx context.Context, progress chan<- SyncProgress) (*SyncSummary, error) {
	if progress != nil {
		defer close(progress)
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "materializer", "sync_all")
	defer span.End()

	mappings, err := m.mappings.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	summary := &SyncSummary{}
	for i := range mappings {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		mp := &mappings[i]
		res, err := m.MaterializeMapping(ctx, mp)
		summary.Mappings++

		ev := SyncProgress{Index: i + 1, Total: len(mappings), ExternalCategory: mp.ExternalCategory, Result: res}
		if err != nil {
			summary.Errors = append(summary.Errors, MappingError{MappingID: mp.ID, ExternalCategory: mp.ExternalCategory, Error: err.Error()})
			ev.Error = err.Error()
		} else {
			summary.Created += res.Created
			summary.Updated += res.Updated
			summary.Skipped += res.Skipped
			for _, e := range res.Errors {
				summary.Errors = append(summary.Errors, MappingError{MappingID: mp.ID, ExternalCategory: mp.ExternalCategory, Error: e})
			}
		}

		if progress != nil {
			select {
			case progress <- ev:
			case <-ctx.Done():
				return summary, ctx.Err()
			}
		}
	}
	return summary, nil
}

// MaterializeEntry imports one staged entry, using the entry's category
// mapping when one exists
func (m *Materializer) MaterializeEntry(ctx context.Context, entry *integration.CatalogEntry) (*catalog.Product, error) {
	var categoryID *uuid.UUID
	if entry.CategoryID != "" {
		mp, err := m.mappings.FindByExternalCategory(ctx, entry.SupplierID, entry.CategoryID)
		switch {
		case err == nil:
			categoryID = &mp.InternalCategoryID
		case !errors.Is(err, catalog.ErrMappingNotFound):
			return nil, err
		}
	}
	_, p, err := m.materialize(ctx, entry, categoryID)
	return p, err
}

func (m *Materializer) materialize(
	ctx context.Context,
	entry *integration.CatalogEntry,
	categoryID *uuid.UUID,
) (Action, *catalog.Product, error) {
	name := NormalizeText(entry.Name)

	existing, err := m.findExisting(ctx, entry.SupplierID, entry.ExternalProductID, name)
	if err != nil {
		return "", nil, err
	}

	action := ActionSkip
	product := existing
	if existing != nil {
		if categoryID != nil && existing.AssignCategory(*categoryID) {
			if err := m.products.Update(ctx, existing); err != nil {
				return "", nil, err
			}
			action = ActionUpdate
		}
	} else {
		res, err := m.resolver.ApplyUpsert(ctx, m.entryData(entry, name, categoryID), Decision{Action: ActionCreate})
		if err != nil {
			return "", nil, err
		}
		action, product = res.Action, res.Product
	}

	if err := m.entries.UpdateStatus(ctx, entry.ID, integration.CatalogEntryImported); err != nil {
		return "", nil, fmt.Errorf("flip staged entry: %w", err)
	}
	entry.MarkImported()
	m.cache.InvalidateProduct(ctx, entry.ExternalProductID)
	return action, product, nil
}

func (m *Materializer) findExisting(ctx context.Context, supplierID, externalID, name string) (*catalog.Product, error) {
	if externalID != "" {
		p, err := m.products.FindByExternalID(ctx, supplierID, externalID)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, catalog.ErrProductNotFound) {
			return nil, err
		}
	}
	p, err := m.products.FindByNameAndSource(ctx, supplierID, name, catalog.ProductSourceSupplier)
	if err == nil {
		return p, nil
	}
	if errors.Is(err, catalog.ErrProductNotFound) {
		return nil, nil
	}
	return nil, err
}

func (m *Materializer) entryData(entry *integration.CatalogEntry, name string, categoryID *uuid.UUID) ProductData {
	data := ProductData{
		SupplierID:        entry.SupplierID,
		ExternalProductID: entry.ExternalProductID,
		SKU:               entry.SKU,
		Name:              name,
		Description:       NormalizeText(entry.Description),
		CategoryID:        categoryID,
		CostPrice:         entry.Price,
		Weight:            entry.Weight,
		Images:            entry.Images,
	}
	for _, v := range entry.Variants() {
		data.Variants = append(data.Variants, VariantData{
			ExternalVariantID: v.ExternalID,
			Name:              NormalizeText(v.Name),
			SKU:               v.SKU,
			Image:             v.Image,
			CostPrice:         v.Price,
			Weight:            v.Weight,
			Properties:        v.Properties,
		})
	}
	return data
}
