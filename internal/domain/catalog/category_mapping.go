package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// CategoryMapping maps a supplier category onto an internal category.
// (SupplierID, ExternalCategory) is unique.
type CategoryMapping struct {
	ID                 uuid.UUID
	SupplierID         string
	ExternalCategory   string
	InternalCategoryID uuid.UUID
	LastSyncedAt       *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewCategoryMapping creates a category mapping
func NewCategoryMapping(supplierID, externalCategory string, internalCategoryID uuid.UUID) (*CategoryMapping, error) {
	supplierID = strings.TrimSpace(supplierID)
	externalCategory = strings.TrimSpace(externalCategory)
	if supplierID == "" || externalCategory == "" || internalCategoryID == uuid.Nil {
		return nil, ErrMappingInvalid
	}
	now := time.Now()
	return &CategoryMapping{
		ID:                 uuid.New(),
		SupplierID:         supplierID,
		ExternalCategory:   externalCategory,
		InternalCategoryID: internalCategoryID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// MarkSynced records a successful materialization pass
func (m *CategoryMapping) MarkSynced(at time.Time) {
	m.LastSyncedAt = &at
	m.UpdatedAt = at
}

// UnmappedCategory counts staged supplier rows whose category has no mapping yet
type UnmappedCategory struct {
	SupplierID       string
	ExternalCategory string
	SeenCount        int64
	LastSeenAt       time.Time
}

// ---------------------------------------------------------------------------
// ChangeNotice
// ---------------------------------------------------------------------------

// ChangeNoticeKind classifies a user-facing change notice
type ChangeNoticeKind string

const (
	ChangeNoticeProductCreated ChangeNoticeKind = "product_created"
	ChangeNoticeProductUpdated ChangeNoticeKind = "product_updated"
	ChangeNoticeVariantUpdated ChangeNoticeKind = "variant_updated"
)

// ChangeNotice is a user-facing record of a supplier-driven product change
type ChangeNotice struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	Kind      ChangeNoticeKind
	Title     string
	Changes   []string
	CreatedAt time.Time
}

// NewChangeNotice creates a change notice for a product
func NewChangeNotice(productID uuid.UUID, kind ChangeNoticeKind, title string, changes []string) *ChangeNotice {
	if changes == nil {
		changes = []string{}
	}
	return &ChangeNotice{
		ID:        uuid.New(),
		ProductID: productID,
		Kind:      kind,
		Title:     title,
		Changes:   changes,
		CreatedAt: time.Now(),
	}
}
