package integration

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// NotificationType discriminates the inbound notification union
type NotificationType string

const (
	NotificationProduct        NotificationType = "PRODUCT"
	NotificationVariant        NotificationType = "VARIANT"
	NotificationStock          NotificationType = "STOCK"
	NotificationOrder          NotificationType = "ORDER"
	NotificationOrderSplit     NotificationType = "ORDERSPLIT"
	NotificationSourcingCreate NotificationType = "SOURCINGCREATE"
)

// IsValid reports whether the type has a handler
func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationProduct, NotificationVariant, NotificationStock,
		NotificationOrder, NotificationOrderSplit, NotificationSourcingCreate:
		return true
	}
	return false
}

var (
	ErrNotificationUnsupported = errors.New("integration: unsupported notification type")
	ErrNotificationPayload     = errors.New("integration: malformed notification payload")
)

// Notification is the inbound envelope. An empty MessageID marks a connectivity ping.
type Notification struct {
	MessageID string           `json:"messageId"`
	Type      NotificationType `json:"type"`
	Params    json.RawMessage  `json:"params"`
}

// ParseNotification decodes a webhook body.
// Empty or undecodable bodies yield a ping (empty MessageID) rather than an error.
func ParseNotification(body []byte) *Notification {
	n := &Notification{}
	if len(bytes.TrimSpace(body)) == 0 {
		return n
	}
	if err := json.Unmarshal(body, n); err != nil {
		return &Notification{}
	}
	n.MessageID = strings.TrimSpace(n.MessageID)
	n.Type = NotificationType(strings.ToUpper(strings.TrimSpace(string(n.Type))))
	return n
}

// IsPing reports whether the notification is a connectivity ping
func (n *Notification) IsPing() bool {
	return n.MessageID == ""
}

func (n *Notification) decode(v any) error {
	if len(n.Params) == 0 {
		return fmt.Errorf("%w: %s has no params", ErrNotificationPayload, n.Type)
	}
	if err := json.Unmarshal(n.Params, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNotificationPayload, n.Type, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Payloads
// ---------------------------------------------------------------------------

// ProductPayload is the PRODUCT notification body
type ProductPayload struct {
	ExternalID   string
	Name         string
	SKU          string
	Description  string
	CategoryID   string
	CategoryName string
	SellPrice    Number
	Weight       Number
	Images       []string
	Variants     []VariantPayload
}

// UnmarshalJSON coalesces supplier field synonyms
func (p *ProductPayload) UnmarshalJSON(b []byte) error {
	var raw struct {
		PID                string           `json:"pid"`
		ProductID          string           `json:"productId"`
		ProductNameEn      string           `json:"productNameEn"`
		ProductName        string           `json:"productName"`
		ProductSku         string           `json:"productSku"`
		ProductDescription string           `json:"productDescription"`
		Description        string           `json:"description"`
		CategoryID         string           `json:"categoryId"`
		CategoryName       string           `json:"categoryName"`
		ProductSellPrice   Number           `json:"productSellPrice"`
		SellPrice          Number           `json:"sellPrice"`
		ProductWeight      Number           `json:"productWeight"`
		ProductImage       string           `json:"productImage"`
		ProductImageSet    []string         `json:"productImageSet"`
		Variants           []VariantPayload `json:"variants"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*p = ProductPayload{
		ExternalID:   coalesce(raw.PID, raw.ProductID),
		Name:         coalesce(raw.ProductNameEn, raw.ProductName),
		SKU:          raw.ProductSku,
		Description:  coalesce(raw.ProductDescription, raw.Description),
		CategoryID:   raw.CategoryID,
		CategoryName: raw.CategoryName,
		SellPrice:    firstNumber(raw.ProductSellPrice, raw.SellPrice),
		Weight:       raw.ProductWeight,
		Images:       mergeImages(raw.ProductImage, raw.ProductImageSet),
		Variants:     raw.Variants,
	}
	return nil
}

// DecodeProduct decodes a PRODUCT payload
func (n *Notification) DecodeProduct() (*ProductPayload, error) {
	var p ProductPayload
	if err := n.decode(&p); err != nil {
		return nil, err
	}
	if p.ExternalID == "" {
		return nil, fmt.Errorf("%w: PRODUCT without pid", ErrNotificationPayload)
	}
	return &p, nil
}

// VariantPayload is the VARIANT notification body and the variant element of PRODUCT
type VariantPayload struct {
	ExternalID        string
	ExternalProductID string
	Name              string
	SKU               string
	Image             string
	SellPrice         Number
	Weight            Number
	Stock             Number
	Properties        map[string]string
	// ProductName and ProductSellPrice are optional parent hints
	ProductName      string
	ProductSellPrice Number
}

// UnmarshalJSON coalesces supplier field synonyms
func (v *VariantPayload) UnmarshalJSON(b []byte) error {
	var raw struct {
		VID              string            `json:"vid"`
		VariantID        string            `json:"variantId"`
		PID              string            `json:"pid"`
		VariantNameEn    string            `json:"variantNameEn"`
		VariantName      string            `json:"variantName"`
		VariantSku       string            `json:"variantSku"`
		VariantImage     string            `json:"variantImage"`
		VariantSellPrice Number            `json:"variantSellPrice"`
		SellPrice        Number            `json:"sellPrice"`
		VariantWeight    Number            `json:"variantWeight"`
		VariantStock     Number            `json:"variantStock"`
		Stock            Number            `json:"stock"`
		VariantKey       string            `json:"variantKey"`
		Properties       map[string]string `json:"properties"`
		ProductNameEn    string            `json:"productNameEn"`
		ProductName      string            `json:"productName"`
		ProductSellPrice Number            `json:"productSellPrice"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	props := raw.Properties
	if props == nil {
		props = map[string]string{}
	}
	if raw.VariantKey != "" {
		props["key"] = raw.VariantKey
	}
	*v = VariantPayload{
		ExternalID:        coalesce(raw.VID, raw.VariantID),
		ExternalProductID: raw.PID,
		Name:              coalesce(raw.VariantNameEn, raw.VariantName),
		SKU:               raw.VariantSku,
		Image:             raw.VariantImage,
		SellPrice:         firstNumber(raw.VariantSellPrice, raw.SellPrice),
		Weight:            raw.VariantWeight,
		Stock:             firstNumber(raw.VariantStock, raw.Stock),
		Properties:        props,
		ProductName:       coalesce(raw.ProductNameEn, raw.ProductName),
		ProductSellPrice:  raw.ProductSellPrice,
	}
	return nil
}

// DecodeVariant decodes a VARIANT payload
func (n *Notification) DecodeVariant() (*VariantPayload, error) {
	var v VariantPayload
	if err := n.decode(&v); err != nil {
		return nil, err
	}
	if v.ExternalID == "" {
		return nil, fmt.Errorf("%w: VARIANT without vid", ErrNotificationPayload)
	}
	return &v, nil
}

// StockRow is one warehouse row of a STOCK notification
type StockRow struct {
	// GroupKey is the payload key the row was listed under, usually the product id
	GroupKey          string
	ExternalVariantID string
	AreaID            string
	AreaName          string
	CountryCode       string
	Quantity          int64
}

// UnmarshalJSON coalesces supplier field synonyms
func (r *StockRow) UnmarshalJSON(b []byte) error {
	var raw struct {
		VID               string `json:"vid"`
		AreaID            Number `json:"areaId"`
		AreaEn            string `json:"areaEn"`
		CountryCode       string `json:"countryCode"`
		StorageNum        Number `json:"storageNum"`
		TotalInventoryNum Number `json:"totalInventoryNum"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	areaID := ""
	if raw.AreaID.Valid {
		areaID = raw.AreaID.Value.String()
	}
	*r = StockRow{
		ExternalVariantID: raw.VID,
		AreaID:            areaID,
		AreaName:          raw.AreaEn,
		CountryCode:       raw.CountryCode,
		Quantity:          firstNumber(raw.StorageNum, raw.TotalInventoryNum).Int64(),
	}
	return nil
}

// DecodeStock decodes a STOCK payload: warehouse rows grouped under a product
// id. A row without its own vid belongs to a single-variant product and takes
// the group key as its variant id.
func (n *Notification) DecodeStock() ([]StockRow, error) {
	var groups map[string][]StockRow
	if err := n.decode(&groups); err != nil {
		return nil, err
	}
	rows := make([]StockRow, 0, len(groups))
	for key, list := range groups {
		for _, row := range list {
			row.GroupKey = key
			row.ExternalVariantID = coalesce(row.ExternalVariantID, key)
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// OrderPayload is the ORDER notification body
type OrderPayload struct {
	OrderNumber     string
	SupplierOrderID string
	Status          string
	TrackingNumber  string
	LogisticName    string
}

// UnmarshalJSON coalesces supplier field synonyms
func (o *OrderPayload) UnmarshalJSON(b []byte) error {
	var raw struct {
		OrderNumber  string `json:"orderNumber"`
		CjOrderID    string `json:"cjOrderId"`
		OrderID      string `json:"orderId"`
		OrderStatus  string `json:"orderStatus"`
		TrackNumber  string `json:"trackNumber"`
		LogisticName string `json:"logisticName"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*o = OrderPayload{
		OrderNumber:     raw.OrderNumber,
		SupplierOrderID: coalesce(raw.CjOrderID, raw.OrderID),
		Status:          raw.OrderStatus,
		TrackingNumber:  raw.TrackNumber,
		LogisticName:    raw.LogisticName,
	}
	return nil
}

// DecodeOrder decodes an ORDER payload
func (n *Notification) DecodeOrder() (*OrderPayload, error) {
	var o OrderPayload
	if err := n.decode(&o); err != nil {
		return nil, err
	}
	if o.SupplierOrderID == "" && o.OrderNumber == "" {
		return nil, fmt.Errorf("%w: ORDER without order id", ErrNotificationPayload)
	}
	return &o, nil
}

// OrderSplitPayload is the ORDERSPLIT notification body
type OrderSplitPayload struct {
	OriginalOrderID string
	OrderNumber     string
	Children        []OrderPayload
}

// UnmarshalJSON coalesces supplier field synonyms
func (o *OrderSplitPayload) UnmarshalJSON(b []byte) error {
	var raw struct {
		OriginalOrderID string         `json:"originalOrderId"`
		OrderID         string         `json:"orderId"`
		OrderNumber     string         `json:"orderNumber"`
		SplitOrderList  []OrderPayload `json:"splitOrderList"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*o = OrderSplitPayload{
		OriginalOrderID: coalesce(raw.OriginalOrderID, raw.OrderID),
		OrderNumber:     raw.OrderNumber,
		Children:        raw.SplitOrderList,
	}
	return nil
}

// DecodeOrderSplit decodes an ORDERSPLIT payload
func (n *Notification) DecodeOrderSplit() (*OrderSplitPayload, error) {
	var o OrderSplitPayload
	if err := n.decode(&o); err != nil {
		return nil, err
	}
	if o.OriginalOrderID == "" {
		return nil, fmt.Errorf("%w: ORDERSPLIT without original order id", ErrNotificationPayload)
	}
	return &o, nil
}

// SourcingPayload is the SOURCINGCREATE notification body
type SourcingPayload struct {
	SourcingID        string
	ExternalProductID string
	ExternalVariantID string
	Status            string
}

// UnmarshalJSON coalesces supplier field synonyms
func (s *SourcingPayload) UnmarshalJSON(b []byte) error {
	var raw struct {
		CjSourcingID string `json:"cjSourcingId"`
		SourcingID   string `json:"sourcingId"`
		CjProductID  string `json:"cjProductId"`
		PID          string `json:"pid"`
		CjVariantID  string `json:"cjVariantId"`
		VID          string `json:"vid"`
		Status       string `json:"status"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = SourcingPayload{
		SourcingID:        coalesce(raw.CjSourcingID, raw.SourcingID),
		ExternalProductID: coalesce(raw.CjProductID, raw.PID),
		ExternalVariantID: coalesce(raw.CjVariantID, raw.VID),
		Status:            raw.Status,
	}
	return nil
}

// DecodeSourcing decodes a SOURCINGCREATE payload
func (n *Notification) DecodeSourcing() (*SourcingPayload, error) {
	var s SourcingPayload
	if err := n.decode(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

func coalesce(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func firstNumber(values ...Number) Number {
	for _, n := range values {
		if n.Valid {
			return n
		}
	}
	return Number{}
}

func mergeImages(primary string, set []string) []string {
	out := make([]string, 0, len(set)+1)
	seen := map[string]bool{}
	for _, img := range append([]string{primary}, set...) {
		img = strings.TrimSpace(img)
		if img == "" || seen[img] {
			continue
		}
		seen[img] = true
		out = append(out, img)
	}
	return out
}
