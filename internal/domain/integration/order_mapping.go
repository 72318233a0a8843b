package integration

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the local order vocabulary
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusSplit      OrderStatus = "split"
)

var supplierOrderStatuses = map[string]OrderStatus{
	"CREATED":   OrderStatusPending,
	"IN_CART":   OrderStatusPending,
	"UNPAID":    OrderStatusPending,
	"UNSHIPPED": OrderStatusProcessing,
	"SHIPPED":   OrderStatusShipped,
	"DELIVERED": OrderStatusDelivered,
	"COMPLETED": OrderStatusCompleted,
	"CANCELLED": OrderStatusCancelled,
}

// MapSupplierOrderStatus translates a supplier status; unknown values map to pending
func MapSupplierOrderStatus(raw string) OrderStatus {
	if s, ok := supplierOrderStatuses[strings.ToUpper(strings.TrimSpace(raw))]; ok {
		return s
	}
	return OrderStatusPending
}

var (
	ErrOrderMappingNotFound = errors.New("integration: order mapping not found")
	ErrOrderMappingInvalid  = errors.New("integration: order mapping requires a supplier order id")
)

// OrderMapping links a local order number to a supplier order.
// Split children carry ParentSupplierOrderID.
type OrderMapping struct {
	ID                    uuid.UUID
	SupplierID            string
	LocalOrderNumber      string
	SupplierOrderID       string
	ParentSupplierOrderID string
	Status                OrderStatus
	SupplierStatus        string
	TrackingNumber        string
	LogisticName          string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// NewOrderMapping creates a pending order mapping
func NewOrderMapping(supplierID, localOrderNumber, supplierOrderID string) (*OrderMapping, error) {
	if strings.TrimSpace(supplierOrderID) == "" {
		return nil, ErrOrderMappingInvalid
	}
	now := time.Now()
	return &OrderMapping{
		ID:               uuid.New(),
		SupplierID:       supplierID,
		LocalOrderNumber: localOrderNumber,
		SupplierOrderID:  supplierOrderID,
		Status:           OrderStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// ApplySupplierStatus records the supplier's latest view of the order.
// Empty tracking fields leave the stored values untouched.
func (m *OrderMapping) ApplySupplierStatus(raw, trackingNumber, logisticName string) {
	m.SupplierStatus = raw
	m.Status = MapSupplierOrderStatus(raw)
	if trackingNumber != "" {
		m.TrackingNumber = trackingNumber
	}
	if logisticName != "" {
		m.LogisticName = logisticName
	}
	m.UpdatedAt = time.Now()
}

// MarkSplit flags a parent order that the supplier split into children
func (m *OrderMapping) MarkSplit() {
	m.Status = OrderStatusSplit
	m.UpdatedAt = time.Now()
}
