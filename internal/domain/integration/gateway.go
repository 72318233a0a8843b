package integration

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Gateway errors
// ---------------------------------------------------------------------------

var (
	ErrSupplierNotConfigured   = errors.New("integration: supplier not configured")
	ErrSupplierRequestFailed   = errors.New("integration: supplier request failed")
	ErrSupplierInvalidResponse = errors.New("integration: invalid supplier response")
	ErrSupplierAuthFailed      = errors.New("integration: supplier authentication failed")
	ErrSupplierRateLimited     = errors.New("integration: supplier rate limited")
	ErrSupplierUnavailable     = errors.New("integration: supplier temporarily unavailable")

	// ErrProductDelisted means the supplier removed the product; retrying cannot help
	ErrProductDelisted = errors.New("integration: product removed from supplier catalog")

	ErrWebhookURLNotHTTPS = errors.New("integration: webhook callback URL must use https")
	ErrWebhookURLInvalid  = errors.New("integration: webhook callback URL is invalid")
)

// ---------------------------------------------------------------------------
// Catalog DTOs
// ---------------------------------------------------------------------------

// Category is a node in the supplier category tree
type Category struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Level    int        `json:"level"`
	Children []Category `json:"children,omitempty"`
}

// SearchQuery filters a supplier product search
type SearchQuery struct {
	Keyword     string           `json:"keyword,omitempty"`
	CategoryID  string           `json:"categoryId,omitempty"`
	CountryCode string           `json:"countryCode,omitempty"`
	MinPrice    *decimal.Decimal `json:"minPrice,omitempty"`
	MaxPrice    *decimal.Decimal `json:"maxPrice,omitempty"`
	PageNum     int              `json:"pageNum"`
	PageSize    int              `json:"pageSize"`
}

// Normalize applies paging defaults
func (q SearchQuery) Normalize() SearchQuery {
	if q.PageNum < 1 {
		q.PageNum = 1
	}
	if q.PageSize < 1 || q.PageSize > 200 {
		q.PageSize = 20
	}
	return q
}

// CacheKey serializes the query into a stable cache key
func (q SearchQuery) CacheKey() string {
	b, _ := json.Marshal(q.Normalize())
	return string(b)
}

// SearchPage is one page of supplier search results
type SearchPage struct {
	PageNum  int              `json:"pageNum"`
	PageSize int              `json:"pageSize"`
	Total    int              `json:"total"`
	Items    []ProductSummary `json:"items"`
}

// ProductSummary is a search hit
type ProductSummary struct {
	ExternalID   string          `json:"externalId"`
	Name         string          `json:"name"`
	SKU          string          `json:"sku"`
	Image        string          `json:"image"`
	CategoryID   string          `json:"categoryId"`
	CategoryName string          `json:"categoryName"`
	Price        decimal.Decimal `json:"price"`
}

// ProductFeatures opts in to optional detail sections
type ProductFeatures struct {
	Reviews bool
	Video   bool
}

// ProductDetail is the full supplier view of a product
type ProductDetail struct {
	ExternalID   string          `json:"externalId"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	SKU          string          `json:"sku"`
	CategoryID   string          `json:"categoryId"`
	CategoryName string          `json:"categoryName"`
	Price        decimal.Decimal `json:"price"`
	Weight       decimal.Decimal `json:"weight"`
	Images       []string        `json:"images"`
	Tags         []string        `json:"tags,omitempty"`
	VideoURL     string          `json:"videoUrl,omitempty"`
	Variants     []VariantDetail `json:"variants"`
	Reviews      []Review        `json:"reviews,omitempty"`
}

// VariantDetail is the supplier view of a variant
type VariantDetail struct {
	ExternalID        string            `json:"externalId"`
	ExternalProductID string            `json:"externalProductId"`
	Name              string            `json:"name"`
	SKU               string            `json:"sku"`
	Image             string            `json:"image"`
	Price             decimal.Decimal   `json:"price"`
	Weight            decimal.Decimal   `json:"weight"`
	Properties        map[string]string `json:"properties,omitempty"`
}

// Review is a buyer review attached to a product detail
type Review struct {
	Author  string    `json:"author"`
	Score   int       `json:"score"`
	Comment string    `json:"comment"`
	Date    time.Time `json:"date"`
}

// VariantStock is the stock of one variant in one warehouse area
type VariantStock struct {
	ExternalVariantID string `json:"externalVariantId"`
	AreaID            string `json:"areaId"`
	AreaName          string `json:"areaName"`
	CountryCode       string `json:"countryCode"`
	Quantity          int64  `json:"quantity"`
}

// ---------------------------------------------------------------------------
// Order, logistics and sourcing DTOs
// ---------------------------------------------------------------------------

// OrderLine is one ordered variant
type OrderLine struct {
	ExternalVariantID string `json:"vid"`
	Quantity          int    `json:"quantity"`
}

// OrderRequest places an order with the supplier
type OrderRequest struct {
	OrderNumber     string      `json:"orderNumber"`
	CountryCode     string      `json:"shippingCountryCode"`
	Province        string      `json:"shippingProvince"`
	City            string      `json:"shippingCity"`
	Address         string      `json:"shippingAddress"`
	Zip             string      `json:"shippingZip"`
	CustomerName    string      `json:"shippingCustomerName"`
	Phone           string      `json:"shippingPhone"`
	LogisticName    string      `json:"logisticName"`
	FromCountryCode string      `json:"fromCountryCode"`
	Lines           []OrderLine `json:"products"`
}

// SupplierOrder is the supplier's view of an order
type SupplierOrder struct {
	SupplierOrderID string          `json:"orderId"`
	OrderNumber     string          `json:"orderNumber"`
	Status          string          `json:"orderStatus"`
	TrackingNumber  string          `json:"trackNumber"`
	LogisticName    string          `json:"logisticName"`
	Amount          decimal.Decimal `json:"orderAmount"`
}

// FreightRequest asks for shipping quotes
type FreightRequest struct {
	StartCountryCode string      `json:"startCountryCode"`
	EndCountryCode   string      `json:"endCountryCode"`
	Lines            []OrderLine `json:"products"`
}

// FreightQuote is one shipping option
type FreightQuote struct {
	LogisticName string          `json:"logisticName"`
	Price        decimal.Decimal `json:"logisticPrice"`
	AgingDays    string          `json:"logisticAging"`
}

// TrackingEvent is one step of a shipment
type TrackingEvent struct {
	Time        string `json:"time"`
	Description string `json:"description"`
}

// TrackingInfo is the tracking history of a shipment
type TrackingInfo struct {
	TrackingNumber string          `json:"trackingNumber"`
	LogisticName   string          `json:"logisticName"`
	Status         string          `json:"status"`
	Events         []TrackingEvent `json:"events"`
}

// WebhookAction enables or cancels supplier push notifications
type WebhookAction string

const (
	WebhookActionEnable WebhookAction = "ENABLE"
	WebhookActionCancel WebhookAction = "CANCEL"
)

// IsValid reports whether the action is known
func (a WebhookAction) IsValid() bool {
	return a == WebhookActionEnable || a == WebhookActionCancel
}

// SourcingSubmission asks the supplier to source a product
type SourcingSubmission struct {
	ProductURL  string `json:"productUrl"`
	ProductName string `json:"productName"`
	Note        string `json:"remark"`
}

// SourcingResult is the supplier's view of a sourcing request
type SourcingResult struct {
	SourcingID        string `json:"sourcingId"`
	Status            string `json:"status"`
	ExternalProductID string `json:"productId"`
	FailureReason     string `json:"reason"`
}

// ---------------------------------------------------------------------------
// SupplierGateway port
// ---------------------------------------------------------------------------

// CatalogGateway reads the supplier catalog
type CatalogGateway interface {
	ListCategories(ctx context.Context) ([]Category, error)
	SearchProducts(ctx context.Context, query SearchQuery) (*SearchPage, error)
	GetProduct(ctx context.Context, externalID string, features ProductFeatures) (*ProductDetail, error)
}

// StockGateway reads supplier stock levels.
// Implementations retry transient failures and report ErrProductDelisted without retrying.
type StockGateway interface {
	GetVariantStock(ctx context.Context, externalVariantID string) ([]VariantStock, error)
	GetProductStock(ctx context.Context, externalProductID string) ([]VariantStock, error)
}

// OrderGateway places and tracks supplier orders
type OrderGateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*SupplierOrder, error)
	GetOrder(ctx context.Context, supplierOrderID string) (*SupplierOrder, error)
	CalculateFreight(ctx context.Context, req FreightRequest) ([]FreightQuote, error)
	GetTracking(ctx context.Context, trackingNumber string) (*TrackingInfo, error)
}

// WebhookGateway manages supplier push notification registration
type WebhookGateway interface {
	// RegisterWebhook rejects non-https callback URLs without contacting the supplier
	RegisterWebhook(ctx context.Context, action WebhookAction, callbackURL string) error
}

// SourcingGateway submits and polls sourcing requests
type SourcingGateway interface {
	CreateSourcing(ctx context.Context, req SourcingSubmission) (*SourcingResult, error)
	QuerySourcing(ctx context.Context, sourcingIDs []string) ([]SourcingResult, error)
}

// SupplierGateway is the single contact point with the supplier API
type SupplierGateway interface {
	CatalogGateway
	StockGateway
	OrderGateway
	WebhookGateway
	SourcingGateway

	// SupplierID identifies the supplier this gateway talks to
	SupplierID() string
	// Tier returns the account tier governing pacing
	Tier() Tier
}
