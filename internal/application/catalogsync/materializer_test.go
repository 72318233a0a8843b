package catalogsync

import (
	"context"
	"testing"

	"github.com/catalogsync/backend/internal/domain/catalog"
	"github.com/catalogsync/backend/internal/domain/integration"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) stage(t *testing.T, pid, name, category, price string) *integration.CatalogEntry {
	t.Helper()
	e, err := integration.NewCatalogEntryFromDetail(f.settings.SupplierID, &integration.ProductDetail{
		ExternalID: pid,
		Name:       name,
		CategoryID: category,
		Price:      decimal.RequireFromString(price),
		Variants: []integration.VariantDetail{
			{ExternalID: pid + "-V1", Name: "Default", Price: decimal.RequireFromString(price)},
		},
	})
	require.NoError(t, err)
	require.NoError(t, f.entries.Upsert(context.Background(), e))
	return e
}

func TestSaveMapping_MaterializesStagedEntries(t *testing.T) {
	f := newFixture()
	defer f.close()
	ctx := context.Background()
	f.stage(t, "P1", "Red Mug <b>Sale</b>", "C1", "3.00")
	f.stage(t, "P9", "Other category", "C2", "1.00")
	require.NoError(t, f.unmapped.Record(ctx, f.settings.SupplierID, "C1"))
	internal := uuid.New()

	mapping, res, err := f.materializer.SaveMapping(ctx, f.settings.SupplierID, "C1", internal)
	require.NoError(t, err)

	assert.Equal(t, internal, mapping.InternalCategoryID)
	assert.NotNil(t, mapping.LastSyncedAt)
	assert.Equal(t, 1, res.Created)
	assert.Empty(t, res.Errors)

	p, err := f.products.FindByExternalID(ctx, f.settings.SupplierID, "P1")
	require.NoError(t, err)
	assert.Equal(t, "Red Mug Sale", p.Name)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("3.90")))
	assert.Equal(t, catalog.ProductStatusDraft, p.Status)
	assert.Equal(t, internal, *p.CategoryID)
	assert.Equal(t, 1, f.products.count())

	v, ok := f.variants.get("P1-V1")
	require.True(t, ok)
	assert.Equal(t, p.ID, v.ProductID)

	assert.Equal(t, integration.CatalogEntryImported, f.entries.status("P1"))
	assert.Equal(t, integration.CatalogEntryAvailable, f.entries.status("P9"))

	unmapped, err := f.materializer.ListUnmapped(ctx, f.settings.SupplierID)
	require.NoError(t, err)
	assert.Empty(t, unmapped)
}

func TestSaveMapping_RepointsExisting(t *testing.T) {
	f := newFixture()
	defer f.close()
	ctx := context.Background()

	first, _, err := f.materializer.SaveMapping(ctx, f.settings.SupplierID, "C1", uuid.New())
	require.NoError(t, err)
	target := uuid.New()
	second, _, err := f.materializer.SaveMapping(ctx, f.settings.SupplierID, "C1", target)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	all, err := f.materializer.ListMappings(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, target, all[0].InternalCategoryID)
}

func TestSaveMapping_Invalid(t *testing.T) {
	f := newFixture()
	defer f.close()

	_, _, err := f.materializer.SaveMapping(context.Background(), f.settings.SupplierID, " ", uuid.New())
	assert.ErrorIs(t, err, catalog.ErrMappingInvalid)
}

func TestMaterializeMapping_ExistingProductGetsCategory(t *testing.T) {
	f := newFixture()
	defer f.close()
	ctx := context.Background()
	byID := f.seedProduct("P1", "Red Mug", "3.90")
	byName := f.seedProduct("", "Blue Mug", "3.90")
	f.stage(t, "P1", "Red Mug", "C1", "3.00")
	f.stage(t, "P2", "Blue <i>Mug</i>", "C1", "3.00")
	mp, err := catalog.NewCategoryMapping(f.settings.SupplierID, "C1", uuid.New())
	require.NoError(t, err)

	res, err := f.materializer.MaterializeMapping(ctx, mp)
	require.NoError(t, err)

	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 2, res.Updated)
	assert.Equal(t, 2, f.products.count())
	for _, id := range []uuid.UUID{byID.ID, byName.ID} {
		p, _ := f.products.FindByID(ctx, id)
		assert.Equal(t, mp.InternalCategoryID, *p.CategoryID)
	}
	assert.Equal(t, integration.CatalogEntryImported, f.entries.status("P2"))

	// already in the category: nothing to write, but still skipped rather than recreated
	f.stage(t, "P3", "Red Mug", "C1", "3.00")
	res, err = f.materializer.MaterializeMapping(ctx, mp)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 2, f.products.count())
}

func TestSyncAllMappings_Converges(t *testing.T) {
	f := newFixture()
	defer f.close()
	ctx := context.Background()
	f.stage(t, "P1", "Red Mug", "C1", "3.00")
	f.stage(t, "P2", "Green Cup", "C1", "2.00")
	f.stage(t, "P3", "Yellow Bowl", "C2", "5.00")
	for _, c := range []string{"C1", "C2"} {
		mp, err := catalog.NewCategoryMapping(f.settings.SupplierID, c, uuid.New())
		require.NoError(t, err)
		require.NoError(t, f.mappings.Save(ctx, mp))
	}

	progress := make(chan SyncProgress, 4)
	summary, err := f.materializer.SyncAllMappings(ctx, progress)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Mappings)
	assert.Equal(t, 3, summary.Created)
	assert.Empty(t, summary.Errors)

	var events []SyncProgress
	for ev := range progress {
		events = append(events, ev)
	}
	require.Len(t, events, 2)
	assert.Equal(t, 2, events[1].Index)
	assert.Equal(t, 2, events[1].Total)

	again, err := f.materializer.SyncAllMappings(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, again.Created)
	assert.Zero(t, again.Updated)
	assert.Equal(t, 3, f.products.count())
}

func TestSyncAllMappings_StopsOnCancel(t *testing.T) {
	f := newFixture()
	defer f.close()
	mp, err := catalog.NewCategoryMapping(f.settings.SupplierID, "C1", uuid.New())
	require.NoError(t, err)
	require.NoError(t, f.mappings.Save(context.Background(), mp))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	progress := make(chan SyncProgress, 1)
	_, err = f.materializer.SyncAllMappings(ctx, progress)

	assert.ErrorIs(t, err, context.Canceled)
	_, open := <-progress
	assert.False(t, open)
}
