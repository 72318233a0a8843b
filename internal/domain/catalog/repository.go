package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductReader provides read access to local products.
// Finders return ErrProductNotFound when nothing matches.
type ProductReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	FindByExternalID(ctx context.Context, supplierID, externalProductID string) (*Product, error)
	FindBySKU(ctx context.Context, supplierID, sku string) (*Product, error)
	FindByNameAndSource(ctx context.Context, supplierID, name string, source ProductSource) (*Product, error)
	// FindByPriceRange returns products of supplierID priced within [min, max]
	FindByPriceRange(ctx context.Context, supplierID string, min, max decimal.Decimal) ([]Product, error)
}

// ProductWriter provides write access to local products
type ProductWriter interface {
	// Create inserts product. Returns ErrProductAlreadyExists when another row
	// already owns the (supplier, external product id) key.
	Create(ctx context.Context, product *Product) error
	// Update writes every scalar field of an existing product
	Update(ctx context.Context, product *Product) error
}

// ProductRepository combines product reads and writes
type ProductRepository interface {
	ProductReader
	ProductWriter
}

// VariantRepository persists variants
type VariantRepository interface {
	FindByExternalID(ctx context.Context, externalVariantID string) (*Variant, error)
	FindByProduct(ctx context.Context, productID uuid.UUID) ([]Variant, error)
	// Upsert inserts or overwrites the variant keyed by its external variant id
	Upsert(ctx context.Context, variant *Variant) error
	// SetStock writes an absolute stock level and derived status.
	// Returns ErrVariantNotFound when no variant has externalVariantID.
	SetStock(ctx context.Context, externalVariantID string, stock int64) error
}

// CategoryMappingRepository persists category mappings
type CategoryMappingRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*CategoryMapping, error)
	FindByExternalCategory(ctx context.Context, supplierID, externalCategory string) (*CategoryMapping, error)
	FindAll(ctx context.Context) ([]CategoryMapping, error)
	// Save upserts by (supplier, external category)
	Save(ctx context.Context, mapping *CategoryMapping) error
}

// UnmappedCategoryRepository tracks supplier categories awaiting a mapping
type UnmappedCategoryRepository interface {
	// Record increments the seen counter for the category
	Record(ctx context.Context, supplierID, externalCategory string) error
	Remove(ctx context.Context, supplierID, externalCategory string) error
	FindAll(ctx context.Context, supplierID string) ([]UnmappedCategory, error)
}

// ChangeNoticeRepository stores user-facing change notices
type ChangeNoticeRepository interface {
	Create(ctx context.Context, notice *ChangeNotice) error
	FindRecent(ctx context.Context, limit int) ([]ChangeNotice, error)
}
