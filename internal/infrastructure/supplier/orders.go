package supplier

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/catalogsync/backend/internal/domain/integration"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

const (
	pathCreateOrder    = "/shopping/order/createOrderV2"
	pathOrderDetail    = "/shopping/order/getOrderDetail"
	pathFreight        = "/logistic/freightCalculate"
	pathTracking       = "/logistic/trackInfo"
	pathWebhookSet     = "/webhook/set"
	pathSourcingCreate = "/product/sourcing/create"
	pathSourcingQuery  = "/product/sourcing/query"
)

var validate = validator.New()

// ---------------------------------------------------------------------------
// Orders and logistics
// ---------------------------------------------------------------------------

type orderLineRequest struct {
	VID      string `json:"vid"`
	Quantity int    `json:"quantity"`
}

type orderRequest struct {
	OrderNumber         string             `json:"orderNumber" validate:"required"`
	ShippingCountryCode string             `json:"shippingCountryCode" validate:"required,len=2"`
	ShippingProvince    string             `json:"shippingProvince"`
	ShippingCity        string             `json:"shippingCity"`
	ShippingAddress     string             `json:"shippingAddress" validate:"required"`
	ShippingZip         string             `json:"shippingZip"`
	ShippingCustomer    string             `json:"shippingCustomerName" validate:"required"`
	ShippingPhone       string             `json:"shippingPhone"`
	LogisticName        string             `json:"logisticName"`
	FromCountryCode     string             `json:"fromCountryCode"`
	Products            []orderLineRequest `json:"products" validate:"required,min=1,dive"`
}

// CreateOrder places an order with the supplier
func (c *Client) CreateOrder(ctx context.Context, req integration.OrderRequest) (*integration.SupplierOrder, error) {
	body := orderRequest{
		OrderNumber:         req.OrderNumber,
		ShippingCountryCode: strings.ToUpper(req.CountryCode),
		ShippingProvince:    req.Province,
		ShippingCity:        req.City,
		ShippingAddress:     req.Address,
		ShippingZip:         req.Zip,
		ShippingCustomer:    req.CustomerName,
		ShippingPhone:       req.Phone,
		LogisticName:        req.LogisticName,
		FromCountryCode:     strings.ToUpper(req.FromCountryCode),
		Products: lo.Map(req.Lines, func(l integration.OrderLine, _ int) orderLineRequest {
			return orderLineRequest{VID: l.ExternalVariantID, Quantity: l.Quantity}
		}),
	}
	if err := validate.Struct(body); err != nil {
		return nil, fmt.Errorf("%w: invalid order: %v", integration.ErrSupplierRequestFailed, err)
	}

	var data orderData
	if err := c.call(ctx, http.MethodPost, pathCreateOrder, nil, body, &data); err != nil {
		return nil, err
	}
	order := data.toDomain()
	if order.OrderNumber == "" {
		order.OrderNumber = req.OrderNumber
	}
	return order, nil
}

// GetOrder fetches an order by supplier order id
func (c *Client) GetOrder(ctx context.Context, supplierOrderID string) (*integration.SupplierOrder, error) {
	query := url.Values{}
	query.Set("orderId", supplierOrderID)
	var data orderData
	if err := c.call(ctx, http.MethodGet, pathOrderDetail, query, nil, &data); err != nil {
		return nil, err
	}
	order := data.toDomain()
	if order.SupplierOrderID == "" {
		order.SupplierOrderID = supplierOrderID
	}
	return order, nil
}

// CalculateFreight quotes shipping options for a set of lines
func (c *Client) CalculateFreight(ctx context.Context, req integration.FreightRequest) ([]integration.FreightQuote, error) {
	body := map[string]any{
		"startCountryCode": strings.ToUpper(req.StartCountryCode),
		"endCountryCode":   strings.ToUpper(req.EndCountryCode),
		"products": lo.Map(req.Lines, func(l integration.OrderLine, _ int) orderLineRequest {
			return orderLineRequest{VID: l.ExternalVariantID, Quantity: l.Quantity}
		}),
	}
	var data []freightItem
	if err := c.call(ctx, http.MethodPost, pathFreight, nil, body, &data); err != nil {
		return nil, err
	}
	return lo.Map(data, func(f freightItem, _ int) integration.FreightQuote {
		return integration.FreightQuote{
			LogisticName: f.LogisticName,
			Price:        f.LogisticPrice.Value,
			AgingDays:    f.LogisticAging,
		}
	}), nil
}

// GetTracking returns the shipment history for a tracking number
func (c *Client) GetTracking(ctx context.Context, trackingNumber string) (*integration.TrackingInfo, error) {
	query := url.Values{}
	query.Set("trackNumber", trackingNumber)
	var data []trackingItem
	if err := c.call(ctx, http.MethodGet, pathTracking, query, nil, &data); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return &integration.TrackingInfo{TrackingNumber: trackingNumber}, nil
	}
	first := data[0]
	info := &integration.TrackingInfo{
		TrackingNumber: firstNonEmpty(first.TrackingNumber, trackingNumber),
		LogisticName:   first.LogisticName,
		Status:         first.TrackingStatus,
	}
	for _, e := range first.Events {
		info.Events = append(info.Events, integration.TrackingEvent{Time: e.Time, Description: e.Description})
	}
	return info, nil
}

// ---------------------------------------------------------------------------
// Webhooks
// ---------------------------------------------------------------------------

// RegisterWebhook enables or cancels push notifications to callbackURL.
// Non-HTTPS URLs are rejected before any upstream call.
func (c *Client) RegisterWebhook(ctx context.Context, action integration.WebhookAction, callbackURL string) error {
	if err := ValidateCallbackURL(callbackURL); err != nil {
		return err
	}
	if !action.IsValid() {
		return fmt.Errorf("%w: unknown webhook action %q", integration.ErrSupplierRequestFailed, action)
	}
	topic := webhookTopic{Type: string(action), CallbackURLs: []string{callbackURL}}
	body := webhookSettings{Product: topic, Stock: topic, Order: topic, Logistics: topic}
	return c.call(ctx, http.MethodPost, pathWebhookSet, nil, body, nil)
}

// ValidateCallbackURL checks that a webhook callback is an absolute HTTPS URL
func ValidateCallbackURL(callbackURL string) error {
	if err := validate.Var(callbackURL, "required,url"); err != nil {
		return fmt.Errorf("%w: %q", integration.ErrWebhookURLInvalid, callbackURL)
	}
	u, err := url.Parse(callbackURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%w: %q", integration.ErrWebhookURLInvalid, callbackURL)
	}
	if !strings.EqualFold(u.Scheme, "https") {
		return fmt.Errorf("%w: %q", integration.ErrWebhookURLNotHTTPS, callbackURL)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Sourcing
// ---------------------------------------------------------------------------

// CreateSourcing asks the supplier to find a product
func (c *Client) CreateSourcing(ctx context.Context, sub integration.SourcingSubmission) (*integration.SourcingResult, error) {
	if strings.TrimSpace(sub.ProductURL) == "" && strings.TrimSpace(sub.ProductName) == "" {
		return nil, fmt.Errorf("%w: product url or name is required", integration.ErrSupplierRequestFailed)
	}
	body := map[string]string{
		"productUrl":  sub.ProductURL,
		"productName": sub.ProductName,
		"remark":      sub.Note,
	}
	var data sourcingCreateData
	if err := c.call(ctx, http.MethodPost, pathSourcingCreate, nil, body, &data); err != nil {
		return nil, err
	}
	if data.CjSourcingID == "" {
		return nil, fmt.Errorf("%w: missing sourcing id", integration.ErrSupplierInvalidResponse)
	}
	return &integration.SourcingResult{SourcingID: data.CjSourcingID, Status: data.Status}, nil
}

// QuerySourcing returns the current state of several sourcing requests
func (c *Client) QuerySourcing(ctx context.Context, sourcingIDs []string) ([]integration.SourcingResult, error) {
	ids := lo.Uniq(lo.Compact(sourcingIDs))
	if len(ids) == 0 {
		return nil, nil
	}
	var data []sourcingQueryItem
	if err := c.call(ctx, http.MethodPost, pathSourcingQuery, nil, map[string]any{"sourceIds": ids}, &data); err != nil {
		return nil, err
	}
	return lo.Map(data, func(it sourcingQueryItem, _ int) integration.SourcingResult {
		return integration.SourcingResult{
			SourcingID:        it.SourceID,
			Status:            it.SourceStatus,
			ExternalProductID: it.CjProductID,
			FailureReason:     it.FailReason,
		}
	}), nil
}
