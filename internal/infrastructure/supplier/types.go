package supplier

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/catalogsync/backend/internal/domain/integration"
	"github.com/shopspring/decimal"
)

// Supplier API response codes
const (
	codeSuccess      = 200
	codeInvalidToken = 1600001
	codeTokenExpired = 1600003
	codeTooMany      = 1600200
)

// envelope wraps every supplier response
type envelope struct {
	Code      int             `json:"code"`
	Result    bool            `json:"result"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	RequestID string          `json:"requestId"`
}

// tokenData is the login/refresh payload
type tokenData struct {
	AccessToken            string `json:"accessToken"`
	AccessTokenExpiryDate  string `json:"accessTokenExpiryDate"`
	RefreshToken           string `json:"refreshToken"`
	RefreshTokenExpiryDate string `json:"refreshTokenExpiryDate"`
}

func (d tokenData) toDomain(supplierID string, now time.Time) *integration.AccessToken {
	return &integration.AccessToken{
		SupplierID:       supplierID,
		Token:            d.AccessToken,
		RefreshToken:     d.RefreshToken,
		ExpiresAt:        parseSupplierTime(d.AccessTokenExpiryDate, now.Add(24*time.Hour)),
		RefreshExpiresAt: parseSupplierTime(d.RefreshTokenExpiryDate, now.Add(30*24*time.Hour)),
		UpdatedAt:        now,
	}
}

func parseSupplierTime(s string, fallback time.Time) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05-0700", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return fallback
}

// flexStrings accepts a JSON array, a string holding a JSON array, or a single URL
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*f = list
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		*f = nil
		return nil
	}
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") && json.Unmarshal([]byte(s), &list) == nil {
		*f = list
		return nil
	}
	if s == "" {
		*f = nil
		return nil
	}
	*f = []string{s}
	return nil
}

// ---------------------------------------------------------------------------
// Catalog wire types
// ---------------------------------------------------------------------------

type categoryLeaf struct {
	CategoryID   string `json:"categoryId"`
	CategoryName string `json:"categoryName"`
}

type categorySecond struct {
	CategorySecondID   string         `json:"categorySecondId"`
	CategorySecondName string         `json:"categorySecondName"`
	CategorySecondList []categoryLeaf `json:"categorySecondList"`
}

type categoryFirst struct {
	CategoryFirstID   string           `json:"categoryFirstId"`
	CategoryFirstName string           `json:"categoryFirstName"`
	CategoryFirstList []categorySecond `json:"categoryFirstList"`
}

func convertCategories(in []categoryFirst) []integration.Category {
	out := make([]integration.Category, 0, len(in))
	for _, first := range in {
		c1 := integration.Category{ID: first.CategoryFirstID, Name: first.CategoryFirstName, Level: 1}
		for _, second := range first.CategoryFirstList {
			c2 := integration.Category{ID: second.CategorySecondID, Name: second.CategorySecondName, Level: 2}
			for _, leaf := range second.CategorySecondList {
				c2.Children = append(c2.Children, integration.Category{ID: leaf.CategoryID, Name: leaf.CategoryName, Level: 3})
			}
			c1.Children = append(c1.Children, c2)
		}
		out = append(out, c1)
	}
	return out
}

type productListItem struct {
	PID           string             `json:"pid"`
	ProductNameEn string             `json:"productNameEn"`
	ProductName   string             `json:"productName"`
	ProductSku    string             `json:"productSku"`
	ProductImage  string             `json:"productImage"`
	CategoryID    string             `json:"categoryId"`
	CategoryName  string             `json:"categoryName"`
	SellPrice     integration.Number `json:"sellPrice"`
}

type productListData struct {
	PageNum  int               `json:"pageNum"`
	PageSize int               `json:"pageSize"`
	Total    int               `json:"total"`
	List     []productListItem `json:"list"`
}

func (d productListData) toDomain() *integration.SearchPage {
	page := &integration.SearchPage{
		PageNum:  d.PageNum,
		PageSize: d.PageSize,
		Total:    d.Total,
		Items:    make([]integration.ProductSummary, 0, len(d.List)),
	}
	for _, it := range d.List {
		page.Items = append(page.Items, integration.ProductSummary{
			ExternalID:   it.PID,
			Name:         firstNonEmpty(it.ProductNameEn, it.ProductName),
			SKU:          it.ProductSku,
			Image:        it.ProductImage,
			CategoryID:   it.CategoryID,
			CategoryName: it.CategoryName,
			Price:        it.SellPrice.Or(decimal.Zero),
		})
	}
	return page
}

type variantItem struct {
	VID              string             `json:"vid"`
	PID              string             `json:"pid"`
	VariantNameEn    string             `json:"variantNameEn"`
	VariantName      string             `json:"variantName"`
	VariantSku       string             `json:"variantSku"`
	VariantImage     string             `json:"variantImage"`
	VariantKey       string             `json:"variantKey"`
	VariantSellPrice integration.Number `json:"variantSellPrice"`
	VariantWeight    integration.Number `json:"variantWeight"`
}

type reviewItem struct {
	CommentUser string `json:"commentUser"`
	Score       int    `json:"score"`
	Comment     string `json:"comment"`
	CommentDate string `json:"commentDate"`
}

type productDetailData struct {
	PID             string             `json:"pid"`
	ProductNameEn   string             `json:"productNameEn"`
	ProductName     string             `json:"productName"`
	Description     string             `json:"description"`
	ProductSku      string             `json:"productSku"`
	CategoryID      string             `json:"categoryId"`
	CategoryName    string             `json:"categoryName"`
	SellPrice       integration.Number `json:"sellPrice"`
	ProductWeight   integration.Number `json:"productWeight"`
	ProductImage    flexStrings        `json:"productImage"`
	ProductImageSet flexStrings        `json:"productImageSet"`
	Tags            flexStrings        `json:"tags"`
	VideoURL        string             `json:"videoUrl"`
	Variants        []variantItem      `json:"variants"`
	Reviews         []reviewItem       `json:"reviews"`
}

func (d productDetailData) toDomain() *integration.ProductDetail {
	detail := &integration.ProductDetail{
		ExternalID:   d.PID,
		Name:         firstNonEmpty(d.ProductNameEn, d.ProductName),
		Description:  d.Description,
		SKU:          d.ProductSku,
		CategoryID:   d.CategoryID,
		CategoryName: d.CategoryName,
		Price:        d.SellPrice.Or(decimal.Zero),
		Weight:       d.ProductWeight.Or(decimal.Zero),
		Images:       dedupe(append(append([]string{}, d.ProductImage...), d.ProductImageSet...)),
		Tags:         d.Tags,
		VideoURL:     d.VideoURL,
		Variants:     make([]integration.VariantDetail, 0, len(d.Variants)),
	}
	for _, v := range d.Variants {
		props := map[string]string{}
		if v.VariantKey != "" {
			props["key"] = v.VariantKey
		}
		detail.Variants = append(detail.Variants, integration.VariantDetail{
			ExternalID:        v.VID,
			ExternalProductID: firstNonEmpty(v.PID, d.PID),
			Name:              firstNonEmpty(v.VariantNameEn, v.VariantName),
			SKU:               v.VariantSku,
			Image:             v.VariantImage,
			Price:             v.VariantSellPrice.Or(decimal.Zero),
			Weight:            v.VariantWeight.Or(decimal.Zero),
			Properties:        props,
		})
	}
	for _, r := range d.Reviews {
		detail.Reviews = append(detail.Reviews, integration.Review{
			Author:  r.CommentUser,
			Score:   r.Score,
			Comment: r.Comment,
			Date:    parseSupplierTime(r.CommentDate, time.Time{}),
		})
	}
	return detail
}

type stockItem struct {
	VID               string             `json:"vid"`
	AreaID            integration.Number `json:"areaId"`
	AreaEn            string             `json:"areaEn"`
	CountryCode       string             `json:"countryCode"`
	StorageNum        integration.Number `json:"storageNum"`
	TotalInventoryNum integration.Number `json:"totalInventoryNum"`
}

func convertStock(in []stockItem, fallbackVID string) []integration.VariantStock {
	out := make([]integration.VariantStock, 0, len(in))
	for _, s := range in {
		qty := s.StorageNum
		if !qty.Valid {
			qty = s.TotalInventoryNum
		}
		areaID := ""
		if s.AreaID.Valid {
			areaID = s.AreaID.Value.String()
		}
		out = append(out, integration.VariantStock{
			ExternalVariantID: firstNonEmpty(s.VID, fallbackVID),
			AreaID:            areaID,
			AreaName:          s.AreaEn,
			CountryCode:       s.CountryCode,
			Quantity:          qty.Int64(),
		})
	}
	return out
}

// ---------------------------------------------------------------------------
// Order, logistics, webhook and sourcing wire types
// ---------------------------------------------------------------------------

type orderData struct {
	OrderID      string             `json:"orderId"`
	OrderNum     string             `json:"orderNum"`
	OrderNumber  string             `json:"orderNumber"`
	OrderStatus  string             `json:"orderStatus"`
	TrackNumber  string             `json:"trackNumber"`
	LogisticName string             `json:"logisticName"`
	OrderAmount  integration.Number `json:"orderAmount"`
}

func (d orderData) toDomain() *integration.SupplierOrder {
	return &integration.SupplierOrder{
		SupplierOrderID: d.OrderID,
		OrderNumber:     firstNonEmpty(d.OrderNumber, d.OrderNum),
		Status:          d.OrderStatus,
		TrackingNumber:  d.TrackNumber,
		LogisticName:    d.LogisticName,
		Amount:          d.OrderAmount.Or(decimal.Zero),
	}
}

type freightItem struct {
	LogisticName  string             `json:"logisticName"`
	LogisticPrice integration.Number `json:"logisticPrice"`
	LogisticAging string             `json:"logisticAging"`
}

type trackingItem struct {
	TrackingNumber string `json:"trackingNumber"`
	LogisticName   string `json:"logisticName"`
	TrackingStatus string `json:"trackingStatus"`
	Events         []struct {
		Time        string `json:"time"`
		Description string `json:"description"`
	} `json:"trackingEvents"`
}

type webhookTopic struct {
	Type         string   `json:"type"`
	CallbackURLs []string `json:"callbackUrls"`
}

type webhookSettings struct {
	Product   webhookTopic `json:"product"`
	Stock     webhookTopic `json:"stock"`
	Order     webhookTopic `json:"order"`
	Logistics webhookTopic `json:"logistics"`
}

type sourcingCreateData struct {
	CjSourcingID string `json:"cjSourcingId"`
	Status       string `json:"status"`
}

type sourcingQueryItem struct {
	SourceID     string `json:"sourceId"`
	SourceStatus string `json:"sourceStatus"`
	CjProductID  string `json:"cjProductId"`
	FailReason   string `json:"failReason"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
