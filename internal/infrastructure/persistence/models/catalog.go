package models

import (
	"time"

	"github.com/catalogsync/backend/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model for the Product domain entity.
// ExternalProductID is NULL for manually created products so the
// (supplier_id, external_product_id) unique index only binds supplier rows.
type ProductModel struct {
	BaseModel
	SupplierID        string                `gorm:"type:varchar(64);not null;index:idx_product_supplier_name,priority:1;uniqueIndex:idx_product_supplier_external,priority:1"`
	ExternalProductID *string               `gorm:"type:varchar(100);uniqueIndex:idx_product_supplier_external,priority:2"`
	SKU               string                `gorm:"type:varchar(100);index"`
	Name              string                `gorm:"type:varchar(500);not null;index:idx_product_supplier_name,priority:2"`
	Description       string                `gorm:"type:text"`
	CategoryID        *uuid.UUID            `gorm:"type:uuid;index"`
	CostPrice         decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	Price             decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0;index"`
	Weight            decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	ImagesJSON        string                `gorm:"type:text;column:images"`
	OriginCountry     string                `gorm:"type:varchar(8)"`
	Status            catalog.ProductStatus `gorm:"type:varchar(20);not null;default:'draft'"`
	Source            catalog.ProductSource `gorm:"type:varchar(20);not null;default:'MANUAL'"`
	SourcingID        string                `gorm:"type:varchar(100)"`
	SourcingStatus    string                `gorm:"type:varchar(20)"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product entity
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		ID:                m.ID,
		SupplierID:        m.SupplierID,
		ExternalProductID: derefString(m.ExternalProductID),
		SKU:               m.SKU,
		Name:              m.Name,
		Description:       m.Description,
		CategoryID:        m.CategoryID,
		CostPrice:         m.CostPrice,
		Price:             m.Price,
		Weight:            m.Weight,
		Images:            decodeStrings(m.ImagesJSON),
		OriginCountry:     m.OriginCountry,
		Status:            m.Status,
		Source:            m.Source,
		SourcingID:        m.SourcingID,
		SourcingStatus:    m.SourcingStatus,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain Product entity
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.BaseModel = newBaseModel(p.ID, p.CreatedAt, p.UpdatedAt)
	m.SupplierID = p.SupplierID
	m.ExternalProductID = nullableString(p.ExternalProductID)
	m.SKU = p.SKU
	m.Name = p.Name
	m.Description = p.Description
	m.CategoryID = p.CategoryID
	m.CostPrice = p.CostPrice
	m.Price = p.Price
	m.Weight = p.Weight
	m.ImagesJSON = encodeJSON(p.Images, "[]")
	m.OriginCountry = p.OriginCountry
	m.Status = p.Status
	m.Source = p.Source
	m.SourcingID = p.SourcingID
	m.SourcingStatus = p.SourcingStatus
}

// ProductModelFromDomain creates a new persistence model from a domain Product entity
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}

// VariantModel is the persistence model for the Variant domain entity
type VariantModel struct {
	BaseModel
	ProductID         uuid.UUID             `gorm:"type:uuid;not null;index"`
	ExternalVariantID string                `gorm:"type:varchar(100);not null;uniqueIndex"`
	SKU               string                `gorm:"type:varchar(100)"`
	Name              string                `gorm:"type:varchar(500)"`
	Price             decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	Image             string                `gorm:"type:varchar(1000)"`
	Weight            decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	PropertiesJSON    string                `gorm:"type:text;column:properties"`
	Stock             int64                 `gorm:"not null;default:0"`
	Status            catalog.VariantStatus `gorm:"type:varchar(20);not null;default:'out_of_stock'"`
}

// TableName returns the table name for GORM
func (VariantModel) TableName() string {
	return "product_variants"
}

// ToDomain converts the persistence model to a domain Variant entity
func (m *VariantModel) ToDomain() *catalog.Variant {
	return &catalog.Variant{
		ID:                m.ID,
		ProductID:         m.ProductID,
		ExternalVariantID: m.ExternalVariantID,
		SKU:               m.SKU,
		Name:              m.Name,
		Price:             m.Price,
		Image:             m.Image,
		Weight:            m.Weight,
		Properties:        decodeStringMap(m.PropertiesJSON),
		Stock:             m.Stock,
		Status:            m.Status,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain Variant entity.
// Status is always derived from stock.
func (m *VariantModel) FromDomain(v *catalog.Variant) {
	m.BaseModel = newBaseModel(v.ID, v.CreatedAt, v.UpdatedAt)
	m.ProductID = v.ProductID
	m.ExternalVariantID = v.ExternalVariantID
	m.SKU = v.SKU
	m.Name = v.Name
	m.Price = v.Price
	m.Image = v.Image
	m.Weight = v.Weight
	m.PropertiesJSON = encodeJSON(v.Properties, "{}")
	m.Stock = v.Stock
	m.Status = catalog.StatusForStock(v.Stock)
}

// CategoryMappingModel is the persistence model for the CategoryMapping domain entity
type CategoryMappingModel struct {
	BaseModel
	SupplierID         string     `gorm:"type:varchar(64);not null;uniqueIndex:idx_category_mapping_supplier_external,priority:1"`
	ExternalCategory   string     `gorm:"type:varchar(255);not null;uniqueIndex:idx_category_mapping_supplier_external,priority:2"`
	InternalCategoryID uuid.UUID  `gorm:"type:uuid;not null;index"`
	LastSyncedAt       *time.Time `gorm:"index"`
}

// TableName returns the table name for GORM
func (CategoryMappingModel) TableName() string {
	return "category_mappings"
}

// ToDomain converts the persistence model to a domain CategoryMapping entity
func (m *CategoryMappingModel) ToDomain() *catalog.CategoryMapping {
	return &catalog.CategoryMapping{
		ID:                 m.ID,
		SupplierID:         m.SupplierID,
		ExternalCategory:   m.ExternalCategory,
		InternalCategoryID: m.InternalCategoryID,
		LastSyncedAt:       m.LastSyncedAt,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain CategoryMapping entity
func (m *CategoryMappingModel) FromDomain(c *catalog.CategoryMapping) {
	m.BaseModel = newBaseModel(c.ID, c.CreatedAt, c.UpdatedAt)
	m.SupplierID = c.SupplierID
	m.ExternalCategory = c.ExternalCategory
	m.InternalCategoryID = c.InternalCategoryID
	m.LastSyncedAt = c.LastSyncedAt
}

// UnmappedCategoryModel counts staged rows waiting for a category mapping
type UnmappedCategoryModel struct {
	SupplierID       string    `gorm:"type:varchar(64);primaryKey"`
	ExternalCategory string    `gorm:"type:varchar(255);primaryKey"`
	SeenCount        int64     `gorm:"not null;default:0"`
	LastSeenAt       time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (UnmappedCategoryModel) TableName() string {
	return "unmapped_categories"
}

// ToDomain converts the persistence model to a domain UnmappedCategory
func (m *UnmappedCategoryModel) ToDomain() catalog.UnmappedCategory {
	return catalog.UnmappedCategory{
		SupplierID:       m.SupplierID,
		ExternalCategory: m.ExternalCategory,
		SeenCount:        m.SeenCount,
		LastSeenAt:       m.LastSeenAt,
	}
}

// ChangeNoticeModel is the persistence model for the ChangeNotice domain entity
type ChangeNoticeModel struct {
	ID          uuid.UUID                `gorm:"type:uuid;primary_key"`
	ProductID   uuid.UUID                `gorm:"type:uuid;not null;index"`
	Kind        catalog.ChangeNoticeKind `gorm:"type:varchar(32);not null"`
	Title       string                   `gorm:"type:varchar(500);not null"`
	ChangesJSON string                   `gorm:"type:text;column:changes"`
	CreatedAt   time.Time                `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (ChangeNoticeModel) TableName() string {
	return "change_notices"
}

// ToDomain converts the persistence model to a domain ChangeNotice entity
func (m *ChangeNoticeModel) ToDomain() *catalog.ChangeNotice {
	return &catalog.ChangeNotice{
		ID:        m.ID,
		ProductID: m.ProductID,
		Kind:      m.Kind,
		Title:     m.Title,
		Changes:   decodeStrings(m.ChangesJSON),
		CreatedAt: m.CreatedAt,
	}
}

// FromDomain populates the persistence model from a domain ChangeNotice entity
func (m *ChangeNoticeModel) FromDomain(n *catalog.ChangeNotice) {
	m.ID = n.ID
	m.ProductID = n.ProductID
	m.Kind = n.Kind
	m.Title = n.Title
	m.ChangesJSON = encodeJSON(n.Changes, "[]")
	m.CreatedAt = n.CreatedAt
}
