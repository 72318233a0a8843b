package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/catalogsync/backend/internal/domain/catalog"
	"github.com/catalogsync/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProductRepository implements catalog.ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormProductRepository) WithTx(tx *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: tx}
}

func (r *GormProductRepository) first(ctx context.Context, query string, args ...any) (*catalog.Product, error) {
	var model models.ProductModel
	if err := r.db.WithContext(ctx).Where(query, args...).Order("created_at").First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByID finds a product by its ID
func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	return r.first(ctx, "id = ?", id)
}

// FindByExternalID finds a product by its supplier product id
func (r *GormProductRepository) FindByExternalID(ctx context.Context, supplierID, externalProductID string) (*catalog.Product, error) {
	if externalProductID == "" {
		return nil, catalog.ErrProductNotFound
	}
	return r.first(ctx, "supplier_id = ? AND external_product_id = ?", supplierID, externalProductID)
}

// FindBySKU finds a product by SKU within a supplier
func (r *GormProductRepository) FindBySKU(ctx context.Context, supplierID, sku string) (*catalog.Product, error) {
	if sku == "" {
		return nil, catalog.ErrProductNotFound
	}
	return r.first(ctx, "supplier_id = ? AND sku = ?", supplierID, sku)
}

// FindByNameAndSource finds a product by exact name and origin
func (r *GormProductRepository) FindByNameAndSource(ctx context.Context, supplierID, name string, source catalog.ProductSource) (*catalog.Product, error) {
	return r.first(ctx, "supplier_id = ? AND name = ? AND source = ?", supplierID, name, source)
}

// FindByPriceRange returns the supplier's products priced within [min, max]
func (r *GormProductRepository) FindByPriceRange(ctx context.Context, supplierID string, min, max decimal.Decimal) ([]catalog.Product, error) {
	var rows []models.ProductModel
	if err := r.db.WithContext(ctx).
		Where("supplier_id = ? AND price >= ? AND price <= ?", supplierID, min, max).
		Order("created_at").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]catalog.Product, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, nil
}

// Create inserts a product. A row already holding the (supplier, external id)
// key makes the insert a no-op and yields ErrProductAlreadyExists.
func (r *GormProductRepository) Create(ctx context.Context, product *catalog.Product) error {
	model := models.ProductModelFromDomain(product)
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "supplier_id"}, {Name: "external_product_id"}},
			DoNothing: true,
		}).
		Create(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return catalog.ErrProductAlreadyExists
	}
	return nil
}

// Update writes every scalar field of an existing product
func (r *GormProductRepository) Update(ctx context.Context, product *catalog.Product) error {
	model := models.ProductModelFromDomain(product)
	result := r.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Where("id = ?", product.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return catalog.ErrProductNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Variants
// ---------------------------------------------------------------------------

// GormVariantRepository implements catalog.VariantRepository using GORM
type GormVariantRepository struct {
	db *gorm.DB
}

// NewGormVariantRepository creates a new GormVariantRepository
func NewGormVariantRepository(db *gorm.DB) *GormVariantRepository {
	return &GormVariantRepository{db: db}
}

// FindByExternalID finds a variant by its supplier variant id
func (r *GormVariantRepository) FindByExternalID(ctx context.Context, externalVariantID string) (*catalog.Variant, error) {
	var model models.VariantModel
	if err := r.db.WithContext(ctx).Where("external_variant_id = ?", externalVariantID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrVariantNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByProduct returns every variant of a product
func (r *GormVariantRepository) FindByProduct(ctx context.Context, productID uuid.UUID) ([]catalog.Variant, error) {
	var rows []models.VariantModel
	if err := r.db.WithContext(ctx).Where("product_id = ?", productID).Order("created_at").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]catalog.Variant, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, nil
}

// Upsert inserts or overwrites a variant keyed by external variant id.
// The stored row id is written back into variant.
func (r *GormVariantRepository) Upsert(ctx context.Context, variant *catalog.Variant) error {
	model := &models.VariantModel{}
	model.FromDomain(variant)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "external_variant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"product_id",
			"sku",
			"name",
			"price",
			"image",
			"weight",
			"properties",
			"stock",
			"status",
			"updated_at",
		}),
	}).Create(model).Error
	if err != nil {
		return err
	}

	var stored models.VariantModel
	if err := r.db.WithContext(ctx).
		Select("id", "created_at").
		Where("external_variant_id = ?", variant.ExternalVariantID).
		First(&stored).Error; err != nil {
		return err
	}
	variant.ID = stored.ID
	variant.CreatedAt = stored.CreatedAt
	variant.Status = model.Status
	return nil
}

// SetStock writes an absolute stock level and the derived status
func (r *GormVariantRepository) SetStock(ctx context.Context, externalVariantID string, stock int64) error {
	if stock < 0 {
		stock = 0
	}
	result := r.db.WithContext(ctx).
		Model(&models.VariantModel{}).
		Where("external_variant_id = ?", externalVariantID).
		Updates(map[string]any{
			"stock":      stock,
			"status":     catalog.StatusForStock(stock),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return catalog.ErrVariantNotFound
	}
	return nil
}

var (
	_ catalog.ProductRepository = (*GormProductRepository)(nil)
	_ catalog.VariantRepository = (*GormVariantRepository)(nil)
)
