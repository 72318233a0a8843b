package dto

import (
	"time"

	"github.com/catalogsync/backend/internal/domain/catalog"
	"github.com/catalogsync/backend/internal/domain/integration"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Requests
// ---------------------------------------------------------------------------

// ListQuery bounds list endpoints
type ListQuery struct {
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Status string `form:"status"`
}

// LimitOr returns the requested limit or def when none was given
func (q ListQuery) LimitOr(def int) int {
	if q.Limit == 0 {
		return def
	}
	return q.Limit
}

// SaveMappingRequest creates or repoints a category mapping
type SaveMappingRequest struct {
	SupplierID         string `json:"supplierId"`
	ExternalCategory   string `json:"externalCategory" binding:"required,max=255"`
	InternalCategoryID string `json:"internalCategoryId" binding:"required,uuid"`
}

// SearchRequest is a supplier catalog search in query-string form
type SearchRequest struct {
	Keyword     string `form:"keyword" binding:"omitempty,max=200"`
	CategoryID  string `form:"categoryId"`
	CountryCode string `form:"countryCode" binding:"omitempty,len=2"`
	MinPrice    string `form:"minPrice" binding:"omitempty,numeric"`
	MaxPrice    string `form:"maxPrice" binding:"omitempty,numeric"`
	PageNum     int    `form:"pageNum" binding:"omitempty,min=1"`
	PageSize    int    `form:"pageSize" binding:"omitempty,min=1,max=200"`
}

// ToQuery converts the request into a supplier search
func (r SearchRequest) ToQuery() integration.SearchQuery {
	return integration.SearchQuery{
		Keyword:     r.Keyword,
		CategoryID:  r.CategoryID,
		CountryCode: r.CountryCode,
		MinPrice:    parseDecimal(r.MinPrice),
		MaxPrice:    parseDecimal(r.MaxPrice),
		PageNum:     r.PageNum,
		PageSize:    r.PageSize,
	}.Normalize()
}

// StageRequest pages a supplier search into staged entries
type StageRequest struct {
	Keyword     string `json:"keyword" binding:"omitempty,max=200"`
	CategoryID  string `json:"categoryId"`
	CountryCode string `json:"countryCode" binding:"omitempty,len=2"`
	PageSize    int    `json:"pageSize" binding:"omitempty,min=1,max=200"`
	MaxPages    int    `json:"maxPages" binding:"omitempty,min=1,max=100"`
}

// ToQuery converts the request into a supplier search starting at page one
func (r StageRequest) ToQuery() integration.SearchQuery {
	return integration.SearchQuery{
		Keyword:     r.Keyword,
		CategoryID:  r.CategoryID,
		CountryCode: r.CountryCode,
		PageNum:     1,
		PageSize:    r.PageSize,
	}.Normalize()
}

// WebhookRegistrationRequest enables or cancels supplier push notifications
type WebhookRegistrationRequest struct {
	Action      string `json:"action" binding:"required,oneof=ENABLE CANCEL"`
	CallbackURL string `json:"callbackUrl" binding:"required,url"`
}

// SourcingRequest asks the supplier to find a product
type SourcingRequest struct {
	ProductURL  string `json:"productUrl" binding:"omitempty,url"`
	ProductName string `json:"productName" binding:"omitempty,max=255"`
	Note        string `json:"note" binding:"omitempty,max=1000"`
}

// ToSubmission converts the request for the sourcing gateway
func (r SourcingRequest) ToSubmission() integration.SourcingSubmission {
	return integration.SourcingSubmission{ProductURL: r.ProductURL, ProductName: r.ProductName, Note: r.Note}
}

// OrderLineRequest is one ordered variant
type OrderLineRequest struct {
	VariantID string `json:"vid" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

// PlaceOrderRequest places an order with the supplier
type PlaceOrderRequest struct {
	OrderNumber     string             `json:"orderNumber" binding:"required,max=64"`
	CountryCode     string             `json:"countryCode" binding:"required,len=2"`
	Province        string             `json:"province"`
	City            string             `json:"city" binding:"required"`
	Address         string             `json:"address" binding:"required"`
	Zip             string             `json:"zip"`
	CustomerName    string             `json:"customerName" binding:"required"`
	Phone           string             `json:"phone"`
	LogisticName    string             `json:"logisticName" binding:"required"`
	FromCountryCode string             `json:"fromCountryCode" binding:"omitempty,len=2"`
	Lines           []OrderLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ToDomain converts the request for the order gateway
func (r PlaceOrderRequest) ToDomain() integration.OrderRequest {
	return integration.OrderRequest{
		OrderNumber:     r.OrderNumber,
		CountryCode:     r.CountryCode,
		Province:        r.Province,
		City:            r.City,
		Address:         r.Address,
		Zip:             r.Zip,
		CustomerName:    r.CustomerName,
		Phone:           r.Phone,
		LogisticName:    r.LogisticName,
		FromCountryCode: r.FromCountryCode,
		Lines:           toOrderLines(r.Lines),
	}
}

// FreightQuoteRequest asks for shipping quotes
type FreightQuoteRequest struct {
	StartCountryCode string             `json:"startCountryCode" binding:"required,len=2"`
	EndCountryCode   string             `json:"endCountryCode" binding:"required,len=2"`
	Lines            []OrderLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ToDomain converts the request for the order gateway
func (r FreightQuoteRequest) ToDomain() integration.FreightRequest {
	return integration.FreightRequest{
		StartCountryCode: r.StartCountryCode,
		EndCountryCode:   r.EndCountryCode,
		Lines:            toOrderLines(r.Lines),
	}
}

func toOrderLines(lines []OrderLineRequest) []integration.OrderLine {
	return lo.Map(lines, func(l OrderLineRequest, _ int) integration.OrderLine {
		return integration.OrderLine{ExternalVariantID: l.VariantID, Quantity: l.Quantity}
	})
}

func parseDecimal(s string) *decimal.Decimal {
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}

// ---------------------------------------------------------------------------
// Responses
// ---------------------------------------------------------------------------

// MappingResponse is a category mapping
type MappingResponse struct {
	ID                 uuid.UUID  `json:"id"`
	SupplierID         string     `json:"supplierId"`
	ExternalCategory   string     `json:"externalCategory"`
	InternalCategoryID uuid.UUID  `json:"internalCategoryId"`
	LastSyncedAt       *time.Time `json:"lastSyncedAt,omitempty"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// ToMappingResponse converts a domain mapping
func ToMappingResponse(m catalog.CategoryMapping) MappingResponse {
	return MappingResponse{
		ID:                 m.ID,
		SupplierID:         m.SupplierID,
		ExternalCategory:   m.ExternalCategory,
		InternalCategoryID: m.InternalCategoryID,
		LastSyncedAt:       m.LastSyncedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

// UnmappedResponse is a supplier category still waiting for a mapping
type UnmappedResponse struct {
	SupplierID       string    `json:"supplierId"`
	ExternalCategory string    `json:"externalCategory"`
	SeenCount        int64     `json:"seenCount"`
	LastSeenAt       time.Time `json:"lastSeenAt"`
}

// ToUnmappedResponse converts a domain unmapped category
func ToUnmappedResponse(u catalog.UnmappedCategory) UnmappedResponse {
	return UnmappedResponse{
		SupplierID:       u.SupplierID,
		ExternalCategory: u.ExternalCategory,
		SeenCount:        u.SeenCount,
		LastSeenAt:       u.LastSeenAt,
	}
}

// NotificationLogResponse is one processed supplier notification
type NotificationLogResponse struct {
	MessageID   string     `json:"messageId"`
	Type        string     `json:"type"`
	Status      string     `json:"status"`
	Result      string     `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
	LatencyMs   int64      `json:"latencyMs"`
	ReceivedAt  time.Time  `json:"receivedAt"`
	ProcessedAt *time.Time `json:"processedAt,omitempty"`
}

// ToNotificationLogResponse converts a log entry, leaving out the raw payload
func ToNotificationLogResponse(l integration.NotificationLog) NotificationLogResponse {
	return NotificationLogResponse{
		MessageID:   l.MessageID,
		Type:        string(l.Type),
		Status:      string(l.Status),
		Result:      l.Result,
		Error:       l.ErrorMessage,
		LatencyMs:   l.LatencyMs,
		ReceivedAt:  l.ReceivedAt,
		ProcessedAt: l.ProcessedAt,
	}
}

// ChangeNoticeResponse is a user-facing product change
type ChangeNoticeResponse struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"productId"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Changes   []string  `json:"changes"`
	CreatedAt time.Time `json:"createdAt"`
}

// ToChangeNoticeResponse converts a change notice
func ToChangeNoticeResponse(n catalog.ChangeNotice) ChangeNoticeResponse {
	return ChangeNoticeResponse{
		ID:        n.ID,
		ProductID: n.ProductID,
		Kind:      string(n.Kind),
		Title:     n.Title,
		Changes:   n.Changes,
		CreatedAt: n.CreatedAt,
	}
}

// SourcingResponse is a tracked sourcing request
type SourcingResponse struct {
	ID                uuid.UUID `json:"id"`
	SourcingID        string    `json:"sourcingId"`
	ProductURL        string    `json:"productUrl,omitempty"`
	ProductName       string    `json:"productName,omitempty"`
	Status            string    `json:"status"`
	ExternalProductID string    `json:"externalProductId,omitempty"`
	FailureReason     string    `json:"failureReason,omitempty"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// ToSourcingResponse converts a sourcing request
func ToSourcingResponse(r *integration.SourcingRequest) SourcingResponse {
	return SourcingResponse{
		ID:                r.ID,
		SourcingID:        r.SourcingID,
		ProductURL:        r.ProductURL,
		ProductName:       r.ProductName,
		Status:            string(r.Status),
		ExternalProductID: r.ExternalProductID,
		FailureReason:     r.FailureReason,
		UpdatedAt:         r.UpdatedAt,
	}
}

// OrderResponse is the local view of a supplier order
type OrderResponse struct {
	ID                    uuid.UUID `json:"id"`
	OrderNumber           string    `json:"orderNumber"`
	SupplierOrderID       string    `json:"supplierOrderId"`
	ParentSupplierOrderID string    `json:"parentSupplierOrderId,omitempty"`
	Status                string    `json:"status"`
	SupplierStatus        string    `json:"supplierStatus,omitempty"`
	TrackingNumber        string    `json:"trackingNumber,omitempty"`
	LogisticName          string    `json:"logisticName,omitempty"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

// ToOrderResponse converts an order mapping
func ToOrderResponse(m *integration.OrderMapping) OrderResponse {
	return OrderResponse{
		ID:                    m.ID,
		OrderNumber:           m.LocalOrderNumber,
		SupplierOrderID:       m.SupplierOrderID,
		ParentSupplierOrderID: m.ParentSupplierOrderID,
		Status:                string(m.Status),
		SupplierStatus:        m.SupplierStatus,
		TrackingNumber:        m.TrackingNumber,
		LogisticName:          m.LogisticName,
		UpdatedAt:             m.UpdatedAt,
	}
}
