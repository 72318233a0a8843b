package supplier

import (
	"context"

	"github.com/catalogsync/backend/internal/domain/integration"
)

// Disabled stands in for the supplier when no credentials are configured.
// Every call fails with ErrSupplierNotConfigured so the service still boots
// and accepts webhooks.
type Disabled struct {
	supplierID string
}

var _ integration.SupplierGateway = (*Disabled)(nil)

// NewDisabled creates a gateway that refuses every call
func NewDisabled(supplierID string) *Disabled {
	if supplierID == "" {
		supplierID = "default"
	}
	return &Disabled{supplierID: supplierID}
}

func (d *Disabled) SupplierID() string     { return d.supplierID }
func (d *Disabled) Tier() integration.Tier { return integration.TierFree }

func (d *Disabled) ListCategories(context.Context) ([]integration.Category, error) {
	return nil, integration.ErrSupplierNotConfigured
}

func (d *Disabled) SearchProducts(context.Context, integration.SearchQuery) (*integration.SearchPage, error) {
	return nil, integration.ErrSupplierNotConfigured
}

func (d *Disabled) GetProduct(context.Context, string, integration.ProductFeatures) (*integration.ProductDetail, error) {
	return nil, integration.ErrSupplierNotConfigured
}

func (d *Disabled) GetVariantStock(context.Context, string) ([]integration.VariantStock, error) {
	return nil, integration.ErrSupplierNotConfigured
}

func (d *Disabled) GetProductStock(context.Context, string) ([]integration.VariantStock, error) {
	return nil, integration.ErrSupplierNotConfigured
}

func (d *Disabled) CreateOrder(context.Context, integration.OrderRequest) (*integration.SupplierOrder, error) {
	return nil, integration.ErrSupplierNotConfigured
}

func (d *Disabled) GetOrder(context.Context, string) (*integration.SupplierOrder, error) {
	return nil, integration.ErrSupplierNotConfigured
}

func (d *Disabled) CalculateFreight(context.Context, integration.FreightRequest) ([]integration.FreightQuote, error) {
	return nil, integration.ErrSupplierNotConfigured
}

func (d *Disabled) GetTracking(context.Context, string) (*integration.TrackingInfo, error) {
	return nil, integration.ErrSupplierNotConfigured
}

func (d *Disabled) RegisterWebhook(context.Context, integration.WebhookAction, string) error {
	return integration.ErrSupplierNotConfigured
}

func (d *Disabled) CreateSourcing(context.Context, integration.SourcingSubmission) (*integration.SourcingResult, error) {
	return nil, integration.ErrSupplierNotConfigured
}

func (d *Disabled) QuerySourcing(context.Context, []string) ([]integration.SourcingResult, error) {
	return nil, integration.ErrSupplierNotConfigured
}
