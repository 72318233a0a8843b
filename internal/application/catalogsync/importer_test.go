package catalogsync

import (
	"context"
	"errors"
	"testing"

	"github.com/catalogsync/backend/internal/domain/catalog"
	"github.com/catalogsync/backend/internal/domain/integration"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func (f *fixture) newImporter(source CatalogSource, inv CacheInvalidator) *Importer {
	return NewImporter(ImporterDeps{
		Source:   source,
		Resolver: f.resolver,
		Entries:  f.entries,
		Mappings: f.mappings,
		Unmapped: f.unmapped,
		Cache:    inv,
	}, f.settings, zap.NewNop())
}

func mugDetail() *integration.ProductDetail {
	return &integration.ProductDetail{
		ExternalID:  "P1",
		Name:        "Red Mug",
		Description: "<p>Ceramic</p>",
		CategoryID:  "C1",
		Price:       decimal.RequireFromString("3.00"),
		Variants: []integration.VariantDetail{
			{ExternalID: "V1", Name: "Small", Price: decimal.RequireFromString("3.00")},
			{ExternalID: "V2", Name: "Large", Price: decimal.RequireFromString("4.00")},
		},
	}
}

func TestImportProduct_Creates(t *testing.T) {
	f := newFixture()
	defer f.close()
	src := new(MockSupplier)
	src.On("GetProduct", mock.Anything, "P1", integration.ProductFeatures{Reviews: true}).Return(mugDetail(), nil)
	src.On("GetProductStock", mock.Anything, "P1").Return([]integration.VariantStock{
		{ExternalVariantID: "V1", Quantity: 2},
		{ExternalVariantID: "V1", Quantity: 3},
	}, nil)
	inv := &invalidations{}

	res, err := f.newImporter(src, inv).ImportProduct(context.Background(), "P1")
	require.NoError(t, err)

	assert.Equal(t, ImportCreated, res.Status)
	require.NotNil(t, res.ProductID)
	p, _ := f.products.FindByID(context.Background(), *res.ProductID)
	assert.Equal(t, "Ceramic", p.Description)

	v1, _ := f.variants.get("V1")
	assert.Equal(t, int64(5), v1.Stock)
	v2, _ := f.variants.get("V2")
	assert.Equal(t, catalog.VariantStatusOutOfStock, v2.Status)
	assert.True(t, v2.Price.Equal(decimal.RequireFromString("5.20")))

	assert.Equal(t, integration.CatalogEntryImported, f.entries.status("P1"))
	assert.Equal(t, []string{"P1"}, inv.all())
	src.AssertExpectations(t)
}

func TestImportProduct_UpdatesVariantStock(t *testing.T) {
	f := newFixture()
	defer f.close()
	src := new(MockSupplier)
	src.On("GetProduct", mock.Anything, "P1", mock.Anything).Return(mugDetail(), nil)
	src.On("GetProductStock", mock.Anything, "P1").Return([]integration.VariantStock{{ExternalVariantID: "V1", Quantity: 1}}, nil).Once()
	src.On("GetProductStock", mock.Anything, "P1").Return([]integration.VariantStock{{ExternalVariantID: "V1", Quantity: 8}}, nil).Once()
	im := f.newImporter(src, nil)

	_, err := im.ImportProduct(context.Background(), "P1")
	require.NoError(t, err)
	res, err := im.ImportProduct(context.Background(), "P1")
	require.NoError(t, err)

	assert.Equal(t, ImportUpdated, res.Status)
	assert.Contains(t, res.Changes, "variant V1 stock: 1 -> 8")
	assert.Equal(t, 1, f.products.count())
}

func TestImportProduct_Unavailable(t *testing.T) {
	tests := []struct {
		name  string
		setup func(src *MockSupplier)
	}{
		{"delisted", func(src *MockSupplier) {
			src.On("GetProduct", mock.Anything, "P1", mock.Anything).Return(nil, integration.ErrProductDelisted)
		}},
		{"stock keeps failing", func(src *MockSupplier) {
			src.On("GetProduct", mock.Anything, "P1", mock.Anything).Return(mugDetail(), nil)
			src.On("GetProductStock", mock.Anything, "P1").Return(nil, integration.ErrSupplierUnavailable)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			defer f.close()
			src := new(MockSupplier)
			tt.setup(src)

			res, err := f.newImporter(src, nil).ImportProduct(context.Background(), "P1")
			require.NoError(t, err)

			assert.Equal(t, ImportUnavailable, res.Status)
			assert.NotEmpty(t, res.Reason)
			assert.Zero(t, f.products.count())
		})
	}
}

func TestImportProduct_TransportErrorPropagates(t *testing.T) {
	f := newFixture()
	defer f.close()
	src := new(MockSupplier)
	src.On("GetProduct", mock.Anything, "P1", mock.Anything).Return(nil, integration.ErrSupplierAuthFailed)

	_, err := f.newImporter(src, nil).ImportProduct(context.Background(), "P1")
	assert.ErrorIs(t, err, integration.ErrSupplierAuthFailed)
}

func TestStageProducts(t *testing.T) {
	f := newFixture()
	defer f.close()
	ctx := context.Background()
	mp, err := catalog.NewCategoryMapping(f.settings.SupplierID, "C1", uuid.New())
	require.NoError(t, err)
	require.NoError(t, f.mappings.Save(ctx, mp))

	src := new(MockSupplier)
	page := func(n int) integration.SearchQuery {
		return integration.SearchQuery{Keyword: "mug", PageNum: n, PageSize: 2}
	}
	src.On("SearchProducts", mock.Anything, page(1)).Return(&integration.SearchPage{Items: []integration.ProductSummary{
		{ExternalID: "P1", Name: "Red Mug", CategoryID: "C1", Price: decimal.NewFromInt(3)},
		{ExternalID: "P2", Name: "Blue Mug", CategoryID: "C7", Price: decimal.NewFromInt(3)},
	}}, nil)
	src.On("SearchProducts", mock.Anything, page(2)).Return(&integration.SearchPage{Items: []integration.ProductSummary{
		{ExternalID: "P3", Name: "Tea Mug", CategoryID: "C7", Price: decimal.NewFromInt(4)},
	}}, nil)

	res, err := f.newImporter(src, nil).StageProducts(ctx, page(1), 5)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, 3, res.Staged)
	assert.Equal(t, 1, res.Unmapped)
	unmapped, _ := f.unmapped.FindAll(ctx, f.settings.SupplierID)
	require.Len(t, unmapped, 1)
	assert.Equal(t, "C7", unmapped[0].ExternalCategory)
	assert.Equal(t, int64(2), unmapped[0].SeenCount)
	assert.Equal(t, integration.CatalogEntryAvailable, f.entries.status("P3"))
	src.AssertNumberOfCalls(t, "SearchProducts", 2)
}

func TestStageProducts_KeepsImportedStatus(t *testing.T) {
	f := newFixture()
	defer f.close()
	ctx := context.Background()
	entry := f.stage(t, "P1", "Red Mug", "C1", "3.00")
	require.NoError(t, f.entries.UpdateStatus(ctx, entry.ID, integration.CatalogEntryImported))

	src := new(MockSupplier)
	src.On("SearchProducts", mock.Anything, mock.Anything).Return(&integration.SearchPage{Items: []integration.ProductSummary{
		{ExternalID: "P1", Name: "Red Mug v2", CategoryID: "C1"},
	}}, nil)

	_, err := f.newImporter(src, nil).StageProducts(ctx, integration.SearchQuery{}, 1)
	require.NoError(t, err)
	assert.Equal(t, integration.CatalogEntryImported, f.entries.status("P1"))
}

func TestStageProducts_FirstPageFailure(t *testing.T) {
	f := newFixture()
	defer f.close()
	src := new(MockSupplier)
	src.On("SearchProducts", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

	_, err := f.newImporter(src, nil).StageProducts(context.Background(), integration.SearchQuery{}, 3)
	assert.EqualError(t, err, "boom")
}

// ---------------------------------------------------------------------------
// StockResyncer
// ---------------------------------------------------------------------------

func TestResyncProduct(t *testing.T) {
	f := newFixture()
	defer f.close()
	ctx := context.Background()
	p := f.seedProduct("P1", "Red Mug", "3.90")
	for _, vid := range []string{"V1", "V2"} {
		require.NoError(t, f.variants.Upsert(ctx, catalog.NewVariant(p.ID, vid, vid)))
	}
	src := new(MockSupplier)
	src.On("GetVariantStock", mock.Anything, "V1").Return([]integration.VariantStock{{Quantity: 4}, {Quantity: 6}}, nil)
	src.On("GetVariantStock", mock.Anything, "V2").Return(nil, errors.New("stock for V2 unavailable after 3 attempts"))
	inv := &invalidations{}

	res, err := NewStockResyncer(src, f.products, f.variants, inv, f.settings, nil).ResyncProduct(ctx, p.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Variants)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 1, res.Failed)
	v1, _ := f.variants.get("V1")
	assert.Equal(t, int64(10), v1.Stock)
	assert.Equal(t, []string{"P1"}, inv.all())
}

func TestResyncProduct_UnknownProduct(t *testing.T) {
	f := newFixture()
	defer f.close()

	_, err := NewStockResyncer(new(MockSupplier), f.products, f.variants, nil, f.settings, nil).
		ResyncProduct(context.Background(), uuid.New())
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
}
