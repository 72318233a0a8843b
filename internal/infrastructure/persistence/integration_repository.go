package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/catalogsync/backend/internal/domain/integration"
	"github.com/catalogsync/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// GormCatalogEntryRepository implements integration.CatalogEntryRepository using GORM
type GormCatalogEntryRepository struct {
	db *gorm.DB
}

// NewGormCatalogEntryRepository creates a new GormCatalogEntryRepository
func NewGormCatalogEntryRepository(db *gorm.DB) *GormCatalogEntryRepository {
	return &GormCatalogEntryRepository{db: db}
}

// FindByExternalID finds a staged entry by supplier product id
func (r *GormCatalogEntryRepository) FindByExternalID(ctx context.Context, supplierID, externalProductID string) (*integration.CatalogEntry, error) {
	var model models.CatalogEntryModel
	if err := r.db.WithContext(ctx).
		Where("supplier_id = ? AND external_product_id = ?", supplierID, externalProductID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrCatalogEntryNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCategory returns staged entries of a supplier category in the given status
func (r *GormCatalogEntryRepository) FindByCategory(ctx context.Context, supplierID, categoryID string, status integration.CatalogEntryStatus) ([]integration.CatalogEntry, error) {
	var rows []models.CatalogEntryModel
	if err := r.db.WithContext(ctx).
		Where("supplier_id = ? AND category_id = ? AND status = ?", supplierID, categoryID, status).
		Order("created_at").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]integration.CatalogEntry, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, nil
}

// Upsert inserts or refreshes a staged entry. An existing row keeps its id and
// status; both are written back into entry.
func (r *GormCatalogEntryRepository) Upsert(ctx context.Context, entry *integration.CatalogEntry) error {
	model := &models.CatalogEntryModel{}
	model.FromDomain(entry)
	if model.Status == "" {
		model.Status = integration.CatalogEntryAvailable
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "supplier_id"}, {Name: "external_product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"sku",
			"name",
			"description",
			"category_id",
			"category_name",
			"price",
			"weight",
			"images",
			"variants",
			"reviews",
			"tags",
			"updated_at",
		}),
	}).Create(model).Error
	if err != nil {
		return err
	}

	var stored models.CatalogEntryModel
	if err := r.db.WithContext(ctx).
		Select("id", "status", "created_at").
		Where("supplier_id = ? AND external_product_id = ?", entry.SupplierID, entry.ExternalProductID).
		First(&stored).Error; err != nil {
		return err
	}
	entry.ID = stored.ID
	entry.Status = stored.Status
	entry.CreatedAt = stored.CreatedAt
	return nil
}

// UpdateStatus moves a staged entry to a new status
func (r *GormCatalogEntryRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status integration.CatalogEntryStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.CatalogEntryModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return integration.ErrCatalogEntryNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Notification log
// ---------------------------------------------------------------------------

// GormNotificationLogRepository implements integration.NotificationLogRepository using GORM
type GormNotificationLogRepository struct {
	db *gorm.DB
}

// NewGormNotificationLogRepository creates a new GormNotificationLogRepository
func NewGormNotificationLogRepository(db *gorm.DB) *GormNotificationLogRepository {
	return &GormNotificationLogRepository{db: db}
}

// FindByMessageID finds a log entry by supplier message id
func (r *GormNotificationLogRepository) FindByMessageID(ctx context.Context, messageID string) (*integration.NotificationLog, error) {
	var model models.NotificationLogModel
	if err := r.db.WithContext(ctx).Where("message_id = ?", messageID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrNotificationLogNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create inserts a RECEIVED entry; false means the message id was already logged
func (r *GormNotificationLogRepository) Create(ctx context.Context, log *integration.NotificationLog) (bool, error) {
	model := &models.NotificationLogModel{}
	model.FromDomain(log)
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "message_id"}},
			DoNothing: true,
		}).
		Create(model)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Save writes the processing outcome of an existing entry
func (r *GormNotificationLogRepository) Save(ctx context.Context, log *integration.NotificationLog) error {
	result := r.db.WithContext(ctx).
		Model(&models.NotificationLogModel{}).
		Where("message_id = ?", log.MessageID).
		Updates(map[string]any{
			"status":        log.Status,
			"result":        log.Result,
			"error_message": log.ErrorMessage,
			"latency_ms":    log.LatencyMs,
			"processed_at":  log.ProcessedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return integration.ErrNotificationLogNotFound
	}
	return nil
}

// FindRecent lists the newest entries; an empty status matches all
func (r *GormNotificationLogRepository) FindRecent(ctx context.Context, status integration.NotificationLogStatus, limit int) ([]integration.NotificationLog, error) {
	query := r.db.WithContext(ctx).Model(&models.NotificationLogModel{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var rows []models.NotificationLogModel
	if err := query.Order("received_at DESC").Limit(clampLimit(limit)).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]integration.NotificationLog, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Sourcing requests
// ---------------------------------------------------------------------------

// GormSourcingRequestRepository implements integration.SourcingRequestRepository using GORM
type GormSourcingRequestRepository struct {
	db *gorm.DB
}

// NewGormSourcingRequestRepository creates a new GormSourcingRequestRepository
func NewGormSourcingRequestRepository(db *gorm.DB) *GormSourcingRequestRepository {
	return &GormSourcingRequestRepository{db: db}
}

func (r *GormSourcingRequestRepository) first(ctx context.Context, query string, args ...any) (*integration.SourcingRequest, error) {
	var model models.SourcingRequestModel
	if err := r.db.WithContext(ctx).Where(query, args...).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrSourcingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByID finds a sourcing request by its ID
func (r *GormSourcingRequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.SourcingRequest, error) {
	return r.first(ctx, "id = ?", id)
}

// FindBySourcingID finds a sourcing request by the supplier's sourcing id
func (r *GormSourcingRequestRepository) FindBySourcingID(ctx context.Context, supplierID, sourcingID string) (*integration.SourcingRequest, error) {
	if sourcingID == "" {
		return nil, integration.ErrSourcingNotFound
	}
	return r.first(ctx, "supplier_id = ? AND sourcing_id = ?", supplierID, sourcingID)
}

// FindByStatuses lists requests in any of the given statuses, oldest first
func (r *GormSourcingRequestRepository) FindByStatuses(ctx context.Context, statuses ...integration.SourcingStatus) ([]integration.SourcingRequest, error) {
	if len(statuses) == 0 {
		return []integration.SourcingRequest{}, nil
	}
	var rows []models.SourcingRequestModel
	if err := r.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Order("created_at").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]integration.SourcingRequest, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, nil
}

// Save inserts or updates a sourcing request by ID
func (r *GormSourcingRequestRepository) Save(ctx context.Context, req *integration.SourcingRequest) error {
	model := &models.SourcingRequestModel{}
	model.FromDomain(req)
	return r.db.WithContext(ctx).Save(model).Error
}

// ---------------------------------------------------------------------------
// Order mappings
// ---------------------------------------------------------------------------

// GormOrderMappingRepository implements integration.OrderMappingRepository using GORM
type GormOrderMappingRepository struct {
	db *gorm.DB
}

// NewGormOrderMappingRepository creates a new GormOrderMappingRepository
func NewGormOrderMappingRepository(db *gorm.DB) *GormOrderMappingRepository {
	return &GormOrderMappingRepository{db: db}
}

// FindBySupplierOrderID finds a mapping by supplier order id
func (r *GormOrderMappingRepository) FindBySupplierOrderID(ctx context.Context, supplierID, supplierOrderID string) (*integration.OrderMapping, error) {
	var model models.OrderMappingModel
	if err := r.db.WithContext(ctx).
		Where("supplier_id = ? AND supplier_order_id = ?", supplierID, supplierOrderID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrOrderMappingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByLocalOrderNumber finds the top-level mapping of a local order. Split
// children share the order number and are skipped.
func (r *GormOrderMappingRepository) FindByLocalOrderNumber(ctx context.Context, supplierID, orderNumber string) (*integration.OrderMapping, error) {
	var model models.OrderMappingModel
	if err := r.db.WithContext(ctx).
		Where("supplier_id = ? AND local_order_number = ? AND parent_supplier_order_id = ?", supplierID, orderNumber, "").
		Order("created_at").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrOrderMappingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save upserts a mapping by (supplier, supplier order id)
func (r *GormOrderMappingRepository) Save(ctx context.Context, mapping *integration.OrderMapping) error {
	model := &models.OrderMappingModel{}
	model.FromDomain(mapping)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "supplier_id"}, {Name: "supplier_order_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"local_order_number",
			"parent_supplier_order_id",
			"status",
			"supplier_status",
			"tracking_number",
			"logistic_name",
			"updated_at",
		}),
	}).Create(model).Error
}

// ---------------------------------------------------------------------------
// Access tokens
// ---------------------------------------------------------------------------

// GormTokenRepository implements integration.TokenRepository using GORM
type GormTokenRepository struct {
	db *gorm.DB
}

// NewGormTokenRepository creates a new GormTokenRepository
func NewGormTokenRepository(db *gorm.DB) *GormTokenRepository {
	return &GormTokenRepository{db: db}
}

// Load returns the persisted session of a supplier
func (r *GormTokenRepository) Load(ctx context.Context, supplierID string) (*integration.AccessToken, error) {
	var model models.AccessTokenModel
	if err := r.db.WithContext(ctx).Where("supplier_id = ?", supplierID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrTokenNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save replaces the persisted session of a supplier
func (r *GormTokenRepository) Save(ctx context.Context, token *integration.AccessToken) error {
	model := &models.AccessTokenModel{}
	model.FromDomain(token)
	if model.UpdatedAt.IsZero() {
		model.UpdatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "supplier_id"}},
		UpdateAll: true,
	}).Create(model).Error
}

var (
	_ integration.CatalogEntryRepository    = (*GormCatalogEntryRepository)(nil)
	_ integration.NotificationLogRepository = (*GormNotificationLogRepository)(nil)
	_ integration.SourcingRequestRepository = (*GormSourcingRequestRepository)(nil)
	_ integration.OrderMappingRepository    = (*GormOrderMappingRepository)(nil)
	_ integration.TokenRepository           = (*GormTokenRepository)(nil)
)
