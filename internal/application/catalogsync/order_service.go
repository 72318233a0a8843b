package catalogsync

import (
	"context"

	"github.com/catalogsync/backend/internal/domain/integration"
	"go.uber.org/zap"
)

// OrderService places orders with the supplier and tracks their mapping
type OrderService struct {
	gateway  integration.OrderGateway
	mappings integration.OrderMappingRepository
	settings Settings
	logger   *zap.Logger
}

// NewOrderService creates an OrderService
func NewOrderService(gateway integration.OrderGateway, mappings integration.OrderMappingRepository, settings Settings, logger *zap.Logger) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{gateway: gateway, mappings: mappings, settings: settings, logger: logger}
}

// PlaceOrder creates the supplier order and stores the local mapping
func (s *OrderService) PlaceOrder(ctx context.Context, req integration.OrderRequest) (*integration.OrderMapping, error) {
	order, err := s.gateway.CreateOrder(ctx, req)
	if err != nil {
		return nil, err
	}
	m, err := integration.NewOrderMapping(s.settings.SupplierID, req.OrderNumber, order.SupplierOrderID)
	if err != nil {
		return nil, err
	}
	m.ApplySupplierStatus(order.Status, order.TrackingNumber, order.LogisticName)
	if err := s.mappings.Save(ctx, m); err != nil {
		return nil, err
	}
	s.logger.Info("supplier order placed",
		zap.String("order_number", req.OrderNumber),
		zap.String("supplier_order_id", order.SupplierOrderID),
	)
	return m, nil
}

// RefreshOrder pulls the latest supplier status for a local order
func (s *OrderService) RefreshOrder(ctx context.Context, orderNumber string) (*integration.OrderMapping, error) {
	m, err := s.mappings.FindByLocalOrderNumber(ctx, s.settings.SupplierID, orderNumber)
	if err != nil {
		return nil, err
	}
	order, err := s.gateway.GetOrder(ctx, m.SupplierOrderID)
	if err != nil {
		return nil, err
	}
	m.ApplySupplierStatus(order.Status, order.TrackingNumber, order.LogisticName)
	if err := s.mappings.Save(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Freight quotes shipping options
func (s *OrderService) Freight(ctx context.Context, req integration.FreightRequest) ([]integration.FreightQuote, error) {
	return s.gateway.CalculateFreight(ctx, req)
}

// Tracking returns shipment history
func (s *OrderService) Tracking(ctx context.Context, trackingNumber string) (*integration.TrackingInfo, error) {
	return s.gateway.GetTracking(ctx, trackingNumber)
}
