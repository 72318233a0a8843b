package catalog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSupplierProduct(t *testing.T) {
	t.Run("applies supplier defaults", func(t *testing.T) {
		p, err := NewSupplierProduct("sup", "P1", "  Red Mug  ", decimal.RequireFromString("3.90"))
		require.NoError(t, err)

		assert.Equal(t, "Red Mug", p.Name)
		assert.Equal(t, ProductStatusDraft, p.Status)
		assert.Equal(t, ProductSourceSupplier, p.Source)
		assert.Equal(t, DefaultOriginCountry, p.OriginCountry)
		assert.True(t, p.HasExternalID())
		assert.NotEqual(t, uuid.Nil, p.ID)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewSupplierProduct("sup", "P1", "   ", decimal.Zero)
		assert.ErrorIs(t, err, ErrProductInvalidName)
	})

	t.Run("rejects negative price", func(t *testing.T) {
		_, err := NewSupplierProduct("sup", "P1", "Mug", decimal.NewFromInt(-1))
		assert.ErrorIs(t, err, ErrProductInvalidPrice)
	})
}

func TestProduct_AssignCategory(t *testing.T) {
	p, err := NewSupplierProduct("sup", "P1", "Mug", decimal.Zero)
	require.NoError(t, err)
	cat := uuid.New()

	assert.True(t, p.AssignCategory(cat))
	assert.False(t, p.AssignCategory(cat), "same category is not a change")
	assert.True(t, p.AssignCategory(uuid.New()))
}

func TestVariant_SetStock(t *testing.T) {
	v := NewVariant(uuid.New(), "V1", "Blue")
	assert.Equal(t, VariantStatusOutOfStock, v.Status)

	v.SetStock(12)
	assert.Equal(t, int64(12), v.Stock)
	assert.Equal(t, VariantStatusAvailable, v.Status)

	v.SetStock(-3)
	assert.Equal(t, int64(0), v.Stock, "negative stock clamps to zero")
	assert.Equal(t, VariantStatusOutOfStock, v.Status)
}

func TestNewCategoryMapping(t *testing.T) {
	internal := uuid.New()

	m, err := NewCategoryMapping("sup", " Kitchen ", internal)
	require.NoError(t, err)
	assert.Equal(t, "Kitchen", m.ExternalCategory)
	assert.Nil(t, m.LastSyncedAt)

	_, err = NewCategoryMapping("sup", "", internal)
	assert.ErrorIs(t, err, ErrMappingInvalid)
	_, err = NewCategoryMapping("sup", "Kitchen", uuid.Nil)
	assert.ErrorIs(t, err, ErrMappingInvalid)
}
