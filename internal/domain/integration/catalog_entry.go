package integration

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CatalogEntryStatus tracks a staged product through selection and import
type CatalogEntryStatus string

const (
	CatalogEntryAvailable CatalogEntryStatus = "available"
	CatalogEntrySelected  CatalogEntryStatus = "selected"
	CatalogEntryImported  CatalogEntryStatus = "imported"
)

var (
	ErrCatalogEntryNotFound       = errors.New("integration: staged catalog entry not found")
	ErrCatalogEntryInvalidStatus  = errors.New("integration: invalid staged entry status transition")
	ErrCatalogEntryMissingProduct = errors.New("integration: staged entry requires a supplier product id")
)

// CatalogEntry is a supplier product staged locally before import.
// The *JSON fields hold raw supplier blobs; malformed JSON reads as absent.
type CatalogEntry struct {
	ID                uuid.UUID
	SupplierID        string
	ExternalProductID string
	SKU               string
	Name              string
	Description       string
	CategoryID        string
	CategoryName      string
	Price             decimal.Decimal
	Weight            decimal.Decimal
	Images            []string
	VariantsJSON      string
	ReviewsJSON       string
	TagsJSON          string
	Status            CatalogEntryStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewCatalogEntryFromDetail stages a supplier product detail
func NewCatalogEntryFromDetail(supplierID string, d *ProductDetail) (*CatalogEntry, error) {
	if d == nil || d.ExternalID == "" {
		return nil, ErrCatalogEntryMissingProduct
	}
	now := time.Now()
	e := &CatalogEntry{
		ID:                uuid.New(),
		SupplierID:        supplierID,
		ExternalProductID: d.ExternalID,
		SKU:               d.SKU,
		Name:              d.Name,
		Description:       d.Description,
		CategoryID:        d.CategoryID,
		CategoryName:      d.CategoryName,
		Price:             d.Price,
		Weight:            d.Weight,
		Images:            d.Images,
		Status:            CatalogEntryAvailable,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	e.VariantsJSON = marshalOrEmpty(d.Variants)
	e.ReviewsJSON = marshalOrEmpty(d.Reviews)
	e.TagsJSON = marshalOrEmpty(d.Tags)
	return e, nil
}

// NewCatalogEntryFromSummary stages a search hit that has no detail yet
func NewCatalogEntryFromSummary(supplierID string, s ProductSummary) (*CatalogEntry, error) {
	return NewCatalogEntryFromDetail(supplierID, &ProductDetail{
		ExternalID:   s.ExternalID,
		Name:         s.Name,
		SKU:          s.SKU,
		CategoryID:   s.CategoryID,
		CategoryName: s.CategoryName,
		Price:        s.Price,
		Images:       nonEmpty(s.Image),
	})
}

// Variants parses the staged variants blob
func (e *CatalogEntry) Variants() []VariantDetail {
	var out []VariantDetail
	if !lenientUnmarshal(e.VariantsJSON, &out) {
		return nil
	}
	for i := range out {
		if out[i].ExternalProductID == "" {
			out[i].ExternalProductID = e.ExternalProductID
		}
	}
	return out
}

// Reviews parses the staged reviews blob
func (e *CatalogEntry) Reviews() []Review {
	var out []Review
	lenientUnmarshal(e.ReviewsJSON, &out)
	return out
}

// Tags parses the staged tags blob
func (e *CatalogEntry) Tags() []string {
	var out []string
	lenientUnmarshal(e.TagsJSON, &out)
	return out
}

// Select moves an available entry to selected
func (e *CatalogEntry) Select() error {
	if e.Status != CatalogEntryAvailable {
		return ErrCatalogEntryInvalidStatus
	}
	e.Status = CatalogEntrySelected
	e.UpdatedAt = time.Now()
	return nil
}

// MarkImported flags the entry as materialized into a local product
func (e *CatalogEntry) MarkImported() {
	e.Status = CatalogEntryImported
	e.UpdatedAt = time.Now()
}

// IsImported reports whether the entry was already materialized
func (e *CatalogEntry) IsImported() bool {
	return e.Status == CatalogEntryImported
}

func lenientUnmarshal(raw string, v any) bool {
	if raw == "" {
		return false
	}
	return json.Unmarshal([]byte(raw), v) == nil
}

func marshalOrEmpty(v any) string {
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return ""
	}
	return string(b)
}

func nonEmpty(s string) []string {
	if s == "" {
		return []string{}
	}
	return []string{s}
}
