package catalog

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductStatus represents the lifecycle status of a local product
type ProductStatus string

const (
	ProductStatusDraft    ProductStatus = "draft"
	ProductStatusPending  ProductStatus = "pending"
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
)

// IsValid reports whether the status is known
func (s ProductStatus) IsValid() bool {
	switch s {
	case ProductStatusDraft, ProductStatusPending, ProductStatusActive, ProductStatusInactive:
		return true
	}
	return false
}

// ProductSource records where a product came from
type ProductSource string

const (
	ProductSourceManual   ProductSource = "MANUAL"
	ProductSourceSupplier ProductSource = "SUPPLIER"
)

// DefaultOriginCountry is applied to supplier products that do not state one
const DefaultOriginCountry = "CN"

// Catalog errors
var (
	ErrProductNotFound      = errors.New("catalog: product not found")
	ErrProductAlreadyExists = errors.New("catalog: product with this supplier id already exists")
	ErrProductInvalidName   = errors.New("catalog: product name cannot be empty")
	ErrProductInvalidPrice  = errors.New("catalog: product price cannot be negative")
	ErrVariantNotFound      = errors.New("catalog: variant not found")
	ErrMappingNotFound      = errors.New("catalog: category mapping not found")
	ErrMappingInvalid       = errors.New("catalog: category mapping requires supplier, external category and internal category")
)

// ---------------------------------------------------------------------------
// Product Entity
// ---------------------------------------------------------------------------

// Product is a locally sellable item.
// ExternalProductID is empty for manually created products.
type Product struct {
	ID                uuid.UUID
	SupplierID        string
	ExternalProductID string
	SKU               string
	Name              string
	Description       string
	CategoryID        *uuid.UUID
	CostPrice         decimal.Decimal
	Price             decimal.Decimal
	Weight            decimal.Decimal
	Images            []string
	OriginCountry     string
	Status            ProductStatus
	Source            ProductSource
	// SourcingID links the product to a supplier sourcing request, if any
	SourcingID     string
	SourcingStatus string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewSupplierProduct creates a draft product linked to a supplier product id
func NewSupplierProduct(supplierID, externalProductID, name string, price decimal.Decimal) (*Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrProductInvalidName
	}
	if price.IsNegative() {
		return nil, ErrProductInvalidPrice
	}
	now := time.Now()
	return &Product{
		ID:                uuid.New(),
		SupplierID:        supplierID,
		ExternalProductID: externalProductID,
		Name:              name,
		Price:             price,
		CostPrice:         decimal.Zero,
		Weight:            decimal.Zero,
		Images:            []string{},
		OriginCountry:     DefaultOriginCountry,
		Status:            ProductStatusDraft,
		Source:            ProductSourceSupplier,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// HasExternalID reports whether the product is linked to a supplier product
func (p *Product) HasExternalID() bool {
	return p.ExternalProductID != ""
}

// AssignCategory sets the internal category.
// Returns false when the product already belongs to categoryID.
func (p *Product) AssignCategory(categoryID uuid.UUID) bool {
	if p.CategoryID != nil && *p.CategoryID == categoryID {
		return false
	}
	p.CategoryID = &categoryID
	p.UpdatedAt = time.Now()
	return true
}

// AttachSourcing links a sourcing request to the product
func (p *Product) AttachSourcing(sourcingID, status string) {
	p.SourcingID = sourcingID
	p.SourcingStatus = status
	p.UpdatedAt = time.Now()
}

// ---------------------------------------------------------------------------
// Variant Entity
// ---------------------------------------------------------------------------

// VariantStatus is derived from stock and never set directly
type VariantStatus string

const (
	VariantStatusAvailable  VariantStatus = "available"
	VariantStatusOutOfStock VariantStatus = "out_of_stock"
)

// Variant is a sellable variant of a product
type Variant struct {
	ID                uuid.UUID
	ProductID         uuid.UUID
	ExternalVariantID string
	SKU               string
	Name              string
	Price             decimal.Decimal
	Image             string
	Weight            decimal.Decimal
	// Properties holds supplier attributes such as color or size
	Properties map[string]string
	Stock      int64
	Status     VariantStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewVariant creates a variant for productID with zero stock
func NewVariant(productID uuid.UUID, externalVariantID, name string) *Variant {
	now := time.Now()
	v := &Variant{
		ID:                uuid.New(),
		ProductID:         productID,
		ExternalVariantID: externalVariantID,
		Name:              strings.TrimSpace(name),
		Price:             decimal.Zero,
		Weight:            decimal.Zero,
		Properties:        map[string]string{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	v.SetStock(0)
	return v
}

// SetStock writes an absolute stock level. Negative values clamp to zero.
func (v *Variant) SetStock(stock int64) {
	v.Stock = max(stock, 0)
	v.Status = StatusForStock(v.Stock)
	v.UpdatedAt = time.Now()
}

// StatusForStock derives the variant status from a stock level
func StatusForStock(stock int64) VariantStatus {
	if stock > 0 {
		return VariantStatusAvailable
	}
	return VariantStatusOutOfStock
}
