package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/catalogsync/backend/internal/domain/catalog"
	"github.com/catalogsync/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCategoryMappingRepository implements catalog.CategoryMappingRepository using GORM
type GormCategoryMappingRepository struct {
	db *gorm.DB
}

// NewGormCategoryMappingRepository creates a new GormCategoryMappingRepository
func NewGormCategoryMappingRepository(db *gorm.DB) *GormCategoryMappingRepository {
	return &GormCategoryMappingRepository{db: db}
}

func (r *GormCategoryMappingRepository) first(ctx context.Context, query string, args ...any) (*catalog.CategoryMapping, error) {
	var model models.CategoryMappingModel
	if err := r.db.WithContext(ctx).Where(query, args...).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrMappingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByID finds a mapping by its ID
func (r *GormCategoryMappingRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.CategoryMapping, error) {
	return r.first(ctx, "id = ?", id)
}

// FindByExternalCategory finds the mapping of a supplier category
func (r *GormCategoryMappingRepository) FindByExternalCategory(ctx context.Context, supplierID, externalCategory string) (*catalog.CategoryMapping, error) {
	return r.first(ctx, "supplier_id = ? AND external_category = ?", supplierID, externalCategory)
}

// FindAll returns every mapping ordered by creation
func (r *GormCategoryMappingRepository) FindAll(ctx context.Context) ([]catalog.CategoryMapping, error) {
	var rows []models.CategoryMappingModel
	if err := r.db.WithContext(ctx).Order("created_at").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]catalog.CategoryMapping, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, nil
}

// Save upserts a mapping by (supplier, external category); the stored id is written back
func (r *GormCategoryMappingRepository) Save(ctx context.Context, mapping *catalog.CategoryMapping) error {
	model := &models.CategoryMappingModel{}
	model.FromDomain(mapping)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "supplier_id"}, {Name: "external_category"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"internal_category_id",
			"last_synced_at",
			"updated_at",
		}),
	}).Create(model).Error
	if err != nil {
		return err
	}

	stored, err := r.FindByExternalCategory(ctx, mapping.SupplierID, mapping.ExternalCategory)
	if err != nil {
		return err
	}
	mapping.ID = stored.ID
	mapping.CreatedAt = stored.CreatedAt
	return nil
}

// ---------------------------------------------------------------------------
// Unmapped categories
// ---------------------------------------------------------------------------

// GormUnmappedCategoryRepository implements catalog.UnmappedCategoryRepository using GORM
type GormUnmappedCategoryRepository struct {
	db *gorm.DB
}

// NewGormUnmappedCategoryRepository creates a new GormUnmappedCategoryRepository
func NewGormUnmappedCategoryRepository(db *gorm.DB) *GormUnmappedCategoryRepository {
	return &GormUnmappedCategoryRepository{db: db}
}

// Record increments the seen counter of a supplier category, creating it on first sight
func (r *GormUnmappedCategoryRepository) Record(ctx context.Context, supplierID, externalCategory string) error {
	now := time.Now()
	model := &models.UnmappedCategoryModel{
		SupplierID:       supplierID,
		ExternalCategory: externalCategory,
		SeenCount:        1,
		LastSeenAt:       now,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "supplier_id"}, {Name: "external_category"}},
		DoUpdates: clause.Assignments(map[string]any{
			"seen_count":   gorm.Expr("unmapped_categories.seen_count + 1"),
			"last_seen_at": now,
		}),
	}).Create(model).Error
}

// Remove drops a category once it has been mapped
func (r *GormUnmappedCategoryRepository) Remove(ctx context.Context, supplierID, externalCategory string) error {
	return r.db.WithContext(ctx).
		Where("supplier_id = ? AND external_category = ?", supplierID, externalCategory).
		Delete(&models.UnmappedCategoryModel{}).Error
}

// FindAll lists unmapped categories of a supplier, most frequently seen first
func (r *GormUnmappedCategoryRepository) FindAll(ctx context.Context, supplierID string) ([]catalog.UnmappedCategory, error) {
	var rows []models.UnmappedCategoryModel
	if err := r.db.WithContext(ctx).
		Where("supplier_id = ?", supplierID).
		Order("seen_count DESC").
		Order("external_category").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]catalog.UnmappedCategory, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Change notices
// ---------------------------------------------------------------------------

// GormChangeNoticeRepository implements catalog.ChangeNoticeRepository using GORM
type GormChangeNoticeRepository struct {
	db *gorm.DB
}

// NewGormChangeNoticeRepository creates a new GormChangeNoticeRepository
func NewGormChangeNoticeRepository(db *gorm.DB) *GormChangeNoticeRepository {
	return &GormChangeNoticeRepository{db: db}
}

// Create stores a change notice
func (r *GormChangeNoticeRepository) Create(ctx context.Context, notice *catalog.ChangeNotice) error {
	model := &models.ChangeNoticeModel{}
	model.FromDomain(notice)
	return r.db.WithContext(ctx).Create(model).Error
}

// FindRecent returns the newest notices first
func (r *GormChangeNoticeRepository) FindRecent(ctx context.Context, limit int) ([]catalog.ChangeNotice, error) {
	var rows []models.ChangeNoticeModel
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(clampLimit(limit)).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]catalog.ChangeNotice, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, nil
}

var (
	_ catalog.CategoryMappingRepository  = (*GormCategoryMappingRepository)(nil)
	_ catalog.UnmappedCategoryRepository = (*GormUnmappedCategoryRepository)(nil)
	_ catalog.ChangeNoticeRepository     = (*GormChangeNoticeRepository)(nil)
)
