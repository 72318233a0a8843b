package integration

import (
	"context"

	"github.com/google/uuid"
)

// CatalogEntryRepository persists staged supplier products
type CatalogEntryRepository interface {
	FindByExternalID(ctx context.Context, supplierID, externalProductID string) (*CatalogEntry, error)
	// FindByCategory returns entries of a supplier category in the given status
	FindByCategory(ctx context.Context, supplierID, categoryID string, status CatalogEntryStatus) ([]CatalogEntry, error)
	// Upsert inserts or refreshes an entry keyed by (supplier, external product id).
	// The stored status is kept when the entry already exists.
	Upsert(ctx context.Context, entry *CatalogEntry) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status CatalogEntryStatus) error
}

// NotificationLogRepository persists the notification audit log
type NotificationLogRepository interface {
	FindByMessageID(ctx context.Context, messageID string) (*NotificationLog, error)
	// Create inserts a RECEIVED entry. Returns false when the message id is already logged.
	Create(ctx context.Context, log *NotificationLog) (bool, error)
	// Save writes the terminal state of an existing entry
	Save(ctx context.Context, log *NotificationLog) error
	FindRecent(ctx context.Context, status NotificationLogStatus, limit int) ([]NotificationLog, error)
}

// SourcingRequestRepository persists sourcing requests
type SourcingRequestRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*SourcingRequest, error)
	FindBySourcingID(ctx context.Context, supplierID, sourcingID string) (*SourcingRequest, error)
	FindByStatuses(ctx context.Context, statuses ...SourcingStatus) ([]SourcingRequest, error)
	Save(ctx context.Context, req *SourcingRequest) error
}

// OrderMappingRepository persists order mappings
type OrderMappingRepository interface {
	FindBySupplierOrderID(ctx context.Context, supplierID, supplierOrderID string) (*OrderMapping, error)
	FindByLocalOrderNumber(ctx context.Context, supplierID, orderNumber string) (*OrderMapping, error)
	// Save upserts keyed by (supplier, supplier order id)
	Save(ctx context.Context, mapping *OrderMapping) error
}

// TokenRepository persists supplier access tokens
type TokenRepository interface {
	Load(ctx context.Context, supplierID string) (*AccessToken, error)
	Save(ctx context.Context, token *AccessToken) error
}
