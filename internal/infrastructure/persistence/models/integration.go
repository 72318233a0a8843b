package models

import (
	"time"

	"github.com/catalogsync/backend/internal/domain/integration"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CatalogEntryModel is the persistence model for a staged supplier product
type CatalogEntryModel struct {
	BaseModel
	SupplierID        string                         `gorm:"type:varchar(64);not null;uniqueIndex:idx_catalog_entry_supplier_external,priority:1;index:idx_catalog_entry_category,priority:1"`
	ExternalProductID string                         `gorm:"type:varchar(100);not null;uniqueIndex:idx_catalog_entry_supplier_external,priority:2"`
	SKU               string                         `gorm:"type:varchar(100)"`
	Name              string                         `gorm:"type:varchar(500)"`
	Description       string                         `gorm:"type:text"`
	CategoryID        string                         `gorm:"type:varchar(100);index:idx_catalog_entry_category,priority:2"`
	CategoryName      string                         `gorm:"type:varchar(255)"`
	Price             decimal.Decimal                `gorm:"type:decimal(18,4);not null;default:0"`
	Weight            decimal.Decimal                `gorm:"type:decimal(18,4);not null;default:0"`
	ImagesJSON        string                         `gorm:"type:text;column:images"`
	VariantsJSON      string                         `gorm:"type:text;column:variants"`
	ReviewsJSON       string                         `gorm:"type:text;column:reviews"`
	TagsJSON          string                         `gorm:"type:text;column:tags"`
	Status            integration.CatalogEntryStatus `gorm:"type:varchar(20);not null;default:'available';index:idx_catalog_entry_category,priority:3"`
}

// TableName returns the table name for GORM
func (CatalogEntryModel) TableName() string {
	return "supplier_catalog_entries"
}

// ToDomain converts the persistence model to a domain CatalogEntry
func (m *CatalogEntryModel) ToDomain() *integration.CatalogEntry {
	return &integration.CatalogEntry{
		ID:                m.ID,
		SupplierID:        m.SupplierID,
		ExternalProductID: m.ExternalProductID,
		SKU:               m.SKU,
		Name:              m.Name,
		Description:       m.Description,
		CategoryID:        m.CategoryID,
		CategoryName:      m.CategoryName,
		Price:             m.Price,
		Weight:            m.Weight,
		Images:            decodeStrings(m.ImagesJSON),
		VariantsJSON:      m.VariantsJSON,
		ReviewsJSON:       m.ReviewsJSON,
		TagsJSON:          m.TagsJSON,
		Status:            m.Status,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain CatalogEntry
func (m *CatalogEntryModel) FromDomain(e *integration.CatalogEntry) {
	m.BaseModel = newBaseModel(e.ID, e.CreatedAt, e.UpdatedAt)
	m.SupplierID = e.SupplierID
	m.ExternalProductID = e.ExternalProductID
	m.SKU = e.SKU
	m.Name = e.Name
	m.Description = e.Description
	m.CategoryID = e.CategoryID
	m.CategoryName = e.CategoryName
	m.Price = e.Price
	m.Weight = e.Weight
	m.ImagesJSON = encodeJSON(e.Images, "[]")
	m.VariantsJSON = e.VariantsJSON
	m.ReviewsJSON = e.ReviewsJSON
	m.TagsJSON = e.TagsJSON
	m.Status = e.Status
}

// NotificationLogModel is the append-only audit row of a received notification
type NotificationLogModel struct {
	ID           uuid.UUID                         `gorm:"type:uuid;primary_key"`
	MessageID    string                            `gorm:"type:varchar(128);not null;uniqueIndex"`
	Type         integration.NotificationType      `gorm:"type:varchar(32);not null;index"`
	Payload      string                            `gorm:"type:text"`
	Status       integration.NotificationLogStatus `gorm:"type:varchar(16);not null;index"`
	Result       string                            `gorm:"type:text"`
	ErrorMessage string                            `gorm:"type:text"`
	LatencyMs    int64                             `gorm:"not null;default:0"`
	ReceivedAt   time.Time                         `gorm:"not null;index"`
	ProcessedAt  *time.Time
}

// TableName returns the table name for GORM
func (NotificationLogModel) TableName() string {
	return "notification_logs"
}

// ToDomain converts the persistence model to a domain NotificationLog
func (m *NotificationLogModel) ToDomain() *integration.NotificationLog {
	return &integration.NotificationLog{
		ID:           m.ID,
		MessageID:    m.MessageID,
		Type:         m.Type,
		Payload:      m.Payload,
		Status:       m.Status,
		Result:       m.Result,
		ErrorMessage: m.ErrorMessage,
		LatencyMs:    m.LatencyMs,
		ReceivedAt:   m.ReceivedAt,
		ProcessedAt:  m.ProcessedAt,
	}
}

// FromDomain populates the persistence model from a domain NotificationLog
func (m *NotificationLogModel) FromDomain(l *integration.NotificationLog) {
	m.ID = l.ID
	m.MessageID = l.MessageID
	m.Type = l.Type
	m.Payload = l.Payload
	m.Status = l.Status
	m.Result = l.Result
	m.ErrorMessage = l.ErrorMessage
	m.LatencyMs = l.LatencyMs
	m.ReceivedAt = l.ReceivedAt
	m.ProcessedAt = l.ProcessedAt
}

// SourcingRequestModel is the persistence model for a supplier sourcing request
type SourcingRequestModel struct {
	BaseModel
	SupplierID        string                     `gorm:"type:varchar(64);not null;index:idx_sourcing_supplier_sourcing,priority:1"`
	SourcingID        string                     `gorm:"type:varchar(100);index:idx_sourcing_supplier_sourcing,priority:2"`
	ProductURL        string                     `gorm:"type:varchar(2000)"`
	ProductName       string                     `gorm:"type:varchar(500)"`
	Note              string                     `gorm:"type:text"`
	Status            integration.SourcingStatus `gorm:"type:varchar(20);not null;index"`
	ExternalProductID string                     `gorm:"type:varchar(100)"`
	FailureReason     string                     `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (SourcingRequestModel) TableName() string {
	return "sourcing_requests"
}

// ToDomain converts the persistence model to a domain SourcingRequest
func (m *SourcingRequestModel) ToDomain() *integration.SourcingRequest {
	return &integration.SourcingRequest{
		ID:                m.ID,
		SupplierID:        m.SupplierID,
		SourcingID:        m.SourcingID,
		ProductURL:        m.ProductURL,
		ProductName:       m.ProductName,
		Note:              m.Note,
		Status:            m.Status,
		ExternalProductID: m.ExternalProductID,
		FailureReason:     m.FailureReason,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain SourcingRequest
func (m *SourcingRequestModel) FromDomain(r *integration.SourcingRequest) {
	m.BaseModel = newBaseModel(r.ID, r.CreatedAt, r.UpdatedAt)
	m.SupplierID = r.SupplierID
	m.SourcingID = r.SourcingID
	m.ProductURL = r.ProductURL
	m.ProductName = r.ProductName
	m.Note = r.Note
	m.Status = r.Status
	m.ExternalProductID = r.ExternalProductID
	m.FailureReason = r.FailureReason
}

// OrderMappingModel links a local order number to a supplier order
type OrderMappingModel struct {
	BaseModel
	SupplierID            string                  `gorm:"type:varchar(64);not null;uniqueIndex:idx_order_mapping_supplier_order,priority:1;index:idx_order_mapping_local,priority:1"`
	LocalOrderNumber      string                  `gorm:"type:varchar(100);index:idx_order_mapping_local,priority:2"`
	SupplierOrderID       string                  `gorm:"type:varchar(100);not null;uniqueIndex:idx_order_mapping_supplier_order,priority:2"`
	ParentSupplierOrderID string                  `gorm:"type:varchar(100);index"`
	Status                integration.OrderStatus `gorm:"type:varchar(20);not null"`
	SupplierStatus        string                  `gorm:"type:varchar(32)"`
	TrackingNumber        string                  `gorm:"type:varchar(100)"`
	LogisticName          string                  `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (OrderMappingModel) TableName() string {
	return "supplier_order_mappings"
}

// ToDomain converts the persistence model to a domain OrderMapping
func (m *OrderMappingModel) ToDomain() *integration.OrderMapping {
	return &integration.OrderMapping{
		ID:                    m.ID,
		SupplierID:            m.SupplierID,
		LocalOrderNumber:      m.LocalOrderNumber,
		SupplierOrderID:       m.SupplierOrderID,
		ParentSupplierOrderID: m.ParentSupplierOrderID,
		Status:                m.Status,
		SupplierStatus:        m.SupplierStatus,
		TrackingNumber:        m.TrackingNumber,
		LogisticName:          m.LogisticName,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain OrderMapping
func (m *OrderMappingModel) FromDomain(o *integration.OrderMapping) {
	m.BaseModel = newBaseModel(o.ID, o.CreatedAt, o.UpdatedAt)
	m.SupplierID = o.SupplierID
	m.LocalOrderNumber = o.LocalOrderNumber
	m.SupplierOrderID = o.SupplierOrderID
	m.ParentSupplierOrderID = o.ParentSupplierOrderID
	m.Status = o.Status
	m.SupplierStatus = o.SupplierStatus
	m.TrackingNumber = o.TrackingNumber
	m.LogisticName = o.LogisticName
}

// AccessTokenModel stores the supplier session, one row per supplier
type AccessTokenModel struct {
	SupplierID       string    `gorm:"type:varchar(64);primaryKey"`
	Token            string    `gorm:"type:text;not null"`
	RefreshToken     string    `gorm:"type:text"`
	ExpiresAt        time.Time `gorm:"not null"`
	RefreshExpiresAt time.Time
	UpdatedAt        time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AccessTokenModel) TableName() string {
	return "supplier_access_tokens"
}

// ToDomain converts the persistence model to a domain AccessToken
func (m *AccessTokenModel) ToDomain() *integration.AccessToken {
	return &integration.AccessToken{
		SupplierID:       m.SupplierID,
		Token:            m.Token,
		RefreshToken:     m.RefreshToken,
		ExpiresAt:        m.ExpiresAt,
		RefreshExpiresAt: m.RefreshExpiresAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain AccessToken
func (m *AccessTokenModel) FromDomain(t *integration.AccessToken) {
	m.SupplierID = t.SupplierID
	m.Token = t.Token
	m.RefreshToken = t.RefreshToken
	m.ExpiresAt = t.ExpiresAt
	m.RefreshExpiresAt = t.RefreshExpiresAt
	m.UpdatedAt = t.UpdatedAt
}

// All returns every model managed by this package, in dependency order
func All() []any {
	return []any{
		&ProductModel{},
		&VariantModel{},
		&CategoryMappingModel{},
		&UnmappedCategoryModel{},
		&ChangeNoticeModel{},
		&CatalogEntryModel{},
		&NotificationLogModel{},
		&SourcingRequestModel{},
		&OrderMappingModel{},
		&AccessTokenModel{},
	}
}
