package catalogsync

import (
	"context"
	"errors"
	"testing"

	"github.com/catalogsync/backend/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type failingProducts struct {
	*memProducts
}

func (failingProducts) FindByExternalID(context.Context, string, string) (*catalog.Product, error) {
	return nil, errors.New("connection reset")
}

func TestResolveDuplicate_ByExternalID(t *testing.T) {
	f := newFixture()
	defer f.close()
	p := f.seedProduct("P1", "Red Mug", "3.90")

	d := f.resolver.ResolveDuplicate(context.Background(), f.settings.SupplierID, "P1", "", nil)

	assert.Equal(t, ActionUpdate, d.Action)
	assert.True(t, d.IsDuplicate)
	assert.Equal(t, p.ID, d.Matched.ID)
}

func TestResolveDuplicate_BySKU(t *testing.T) {
	f := newFixture()
	defer f.close()
	p := f.seedProduct("P1", "Red Mug", "3.90")
	p.SKU = "MUG-RED"
	f.products.put(p)

	d := f.resolver.ResolveDuplicate(context.Background(), f.settings.SupplierID, "P9", "MUG-RED", nil)

	assert.Equal(t, ActionUpdate, d.Action)
	assert.Contains(t, d.Reason, "MUG-RED")
}

func TestResolveDuplicate_FuzzyThreshold(t *testing.T) {
	tests := []struct {
		name     string
		stored   string
		incoming string
		price    string
		want     Action
	}{
		{"one edit in ten is a duplicate", "abcdefghij", "abcdefghiX", "3.90", ActionSkip},
		{"exactly at threshold is new", "abcdefghij", "abcdefghXY", "3.90", ActionCreate},
		{"same name outside price window", "abcdefghij", "abcdefghij", "3.92", ActionCreate},
		{"same name within price window", "abcdefghij", "abcdefghij", "3.91", ActionSkip},
		{"markup ignored", "Red Mug", "<b>RED</b> mug", "3.90", ActionSkip},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			defer f.close()
			stored := f.seedProduct("P1", tt.stored, "3.90")

			d := f.resolver.ResolveDuplicate(context.Background(), f.settings.SupplierID, "P2", "",
				&Candidate{Name: tt.incoming, Price: decimal.RequireFromString(tt.price)})

			assert.Equal(t, tt.want, d.Action)
			if tt.want == ActionSkip {
				assert.Equal(t, stored.ID, d.Matched.ID)
				assert.Greater(t, d.Similarity, f.settings.SimilarityThreshold)
			}
		})
	}
}

func TestResolveDuplicate_FailsOpen(t *testing.T) {
	f := newFixture()
	defer f.close()
	r := NewIdentityResolver(failingProducts{f.products}, f.variants, f.settings, zap.NewNop())

	d := r.ResolveDuplicate(context.Background(), f.settings.SupplierID, "P1", "", nil)

	assert.Equal(t, ActionCreate, d.Action)
	assert.Contains(t, d.Reason, "connection reset")
}

func TestResolveDuplicate_ImportedStaysUpdate(t *testing.T) {
	f := newFixture()
	defer f.close()
	ctx := context.Background()

	data := ProductData{SupplierID: f.settings.SupplierID, ExternalProductID: "P1", Name: "Red Mug", CostPrice: decimal.RequireFromString("3")}
	res, err := f.resolver.ApplyUpsert(ctx, data, f.resolver.ResolveDuplicate(ctx, data.SupplierID, "P1", "", nil))
	require.NoError(t, err)
	require.Equal(t, ActionCreate, res.Action)

	for _, name := range []string{"Red Mug", "Completely Different", ""} {
		d := f.resolver.ResolveDuplicate(ctx, data.SupplierID, "P1", "", &Candidate{Name: name, Price: decimal.NewFromInt(99)})
		assert.Equal(t, ActionUpdate, d.Action, name)
	}
}

func TestApplyUpsert_CreateDraft(t *testing.T) {
	f := newFixture()
	defer f.close()
	ctx := context.Background()

	res, err := f.resolver.ApplyUpsert(ctx, ProductData{
		SupplierID:        f.settings.SupplierID,
		ExternalProductID: "P1",
		Name:              "Red Mug",
		CostPrice:         decimal.RequireFromString("3.00"),
		Variants: []VariantData{
			{ExternalVariantID: "V1", Name: "Small", CostPrice: decimal.RequireFromString("3.00"), Stock: lo.ToPtr[int64](4)},
			{ExternalVariantID: "V2", Name: "Large"},
			{Name: "no id"},
		},
	}, Decision{Action: ActionCreate})
	require.NoError(t, err)

	assert.True(t, res.Created)
	assert.Equal(t, 2, res.Variants)
	assert.Equal(t, catalog.ProductStatusDraft, res.Product.Status)
	assert.Equal(t, catalog.ProductSourceSupplier, res.Product.Source)
	assert.True(t, res.Product.Price.Equal(decimal.RequireFromString("3.90")))
	assert.True(t, res.Product.CostPrice.Equal(decimal.RequireFromString("3.00")))

	v1, ok := f.variants.get("V1")
	require.True(t, ok)
	assert.Equal(t, int64(4), v1.Stock)
	assert.Equal(t, catalog.VariantStatusAvailable, v1.Status)
	v2, _ := f.variants.get("V2")
	assert.Equal(t, catalog.VariantStatusOutOfStock, v2.Status)
}

func TestApplyUpsert_CreateConflictConverges(t *testing.T) {
	f := newFixture()
	defer f.close()
	winner := f.seedProduct("P1", "Red Mug", "3.90")

	res, err := f.resolver.ApplyUpsert(context.Background(), ProductData{
		SupplierID:        f.settings.SupplierID,
		ExternalProductID: "P1",
		Name:              "Red Mug XL",
	}, Decision{Action: ActionCreate})
	require.NoError(t, err)

	assert.Equal(t, ActionUpdate, res.Action)
	assert.Equal(t, winner.ID, res.Product.ID)
	assert.Equal(t, 1, f.products.count())
}

func TestApplyUpsert_UpdateWritesOnlyChanges(t *testing.T) {
	f := newFixture()
	defer f.close()
	ctx := context.Background()
	p := f.seedProduct("P1", "Red Mug", "3.90")
	p.CostPrice = decimal.RequireFromString("3.00")
	f.products.put(p)

	data := ProductData{
		SupplierID:        f.settings.SupplierID,
		ExternalProductID: "P1",
		Name:              "Red Mug",
		CostPrice:         decimal.RequireFromString("4.00"),
	}
	res, err := f.resolver.ApplyUpsert(ctx, data, Decision{Action: ActionUpdate, Matched: p})
	require.NoError(t, err)
	assert.Equal(t, []string{"cost_price: 3.00 -> 4.00", "price: 3.90 -> 5.20"}, res.Changes)
	assert.Equal(t, 1, f.products.updates)

	again, err := f.products.FindByExternalID(ctx, f.settings.SupplierID, "P1")
	require.NoError(t, err)
	res, err = f.resolver.ApplyUpsert(ctx, data, Decision{Action: ActionUpdate, Matched: again})
	require.NoError(t, err)
	assert.Empty(t, res.Changes)
	assert.Equal(t, 1, f.products.updates, "no-op update must not write")
}

func TestApplyUpsert_UpdateAssignsCategory(t *testing.T) {
	f := newFixture()
	defer f.close()
	p := f.seedProduct("P1", "Red Mug", "3.90")
	cat := uuid.New()

	res, err := f.resolver.ApplyUpsert(context.Background(), ProductData{
		SupplierID: f.settings.SupplierID, ExternalProductID: "P1", CategoryID: &cat,
	}, Decision{Action: ActionUpdate, Matched: p})
	require.NoError(t, err)

	assert.Equal(t, []string{"category: " + cat.String()}, res.Changes)
	stored, _ := f.products.FindByID(context.Background(), p.ID)
	assert.Equal(t, cat, *stored.CategoryID)
}

func TestApplyUpsert_Skip(t *testing.T) {
	f := newFixture()
	defer f.close()
	p := f.seedProduct("P1", "Red Mug", "3.90")

	res, err := f.resolver.ApplyUpsert(context.Background(), ProductData{Name: "Red Mug"}, Decision{Action: ActionSkip, Matched: p})
	require.NoError(t, err)

	assert.Equal(t, p.ID, *res.AbsorbedBy)
	assert.Equal(t, 1, f.products.count())
	assert.Zero(t, f.products.updates)
}

func TestUpsertVariant_KeepsStockWithoutQuantity(t *testing.T) {
	f := newFixture()
	defer f.close()
	ctx := context.Background()
	p := f.seedProduct("P1", "Red Mug", "3.90")

	_, _, err := f.resolver.UpsertVariant(ctx, p.ID, VariantData{ExternalVariantID: "V1", Name: "Small", Stock: lo.ToPtr[int64](9)})
	require.NoError(t, err)

	v, changes, err := f.resolver.UpsertVariant(ctx, p.ID, VariantData{ExternalVariantID: "V1", Name: "Small Blue"})
	require.NoError(t, err)
	assert.Equal(t, int64(9), v.Stock)
	assert.Equal(t, []string{"variant V1 name: Small -> Small Blue"}, changes)

	v, changes, err = f.resolver.UpsertVariant(ctx, p.ID, VariantData{ExternalVariantID: "V1", Name: "Small Blue", Stock: lo.ToPtr[int64](-3)})
	require.NoError(t, err)
	assert.Equal(t, int64(0), v.Stock)
	assert.Equal(t, catalog.VariantStatusOutOfStock, v.Status)
	assert.Equal(t, []string{"variant V1 stock: 9 -> 0"}, changes)
}
