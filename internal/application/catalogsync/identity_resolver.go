package catalogsync

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/catalogsync/backend/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Action is the outcome of identity resolution
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionSkip   Action = "SKIP"
)

// Candidate carries the fields used for fuzzy matching
type Candidate struct {
	Name  string
	Price decimal.Decimal
}

// Decision is the resolver verdict for one incoming record
type Decision struct {
	IsDuplicate bool
	Matched     *catalog.Product
	Action      Action
	Reason      string
	Similarity  float64
}

// ProductData is an incoming supplier product in local terms.
// CostPrice is the supplier price; the sell price is derived from Settings.
type ProductData struct {
	SupplierID        string
	ExternalProductID string
	SKU               string
	Name              string
	Description       string
	CategoryID        *uuid.UUID
	CostPrice         decimal.Decimal
	Weight            decimal.Decimal
	Images            []string
	OriginCountry     string
	Variants          []VariantData
}

// VariantData is an incoming supplier variant. A nil Stock leaves stored stock alone.
type VariantData struct {
	ExternalVariantID string
	Name              string
	SKU               string
	Image             string
	CostPrice         decimal.Decimal
	Weight            decimal.Decimal
	Properties        map[string]string
	Stock             *int64
}

// UpsertResult reports what ApplyUpsert did
type UpsertResult struct {
	Action  Action
	Product *catalog.Product
	// Changes lists changed fields as "field: old -> new"
	Changes []string
	Created bool
	// AbsorbedBy is the product that absorbed a skipped record
	AbsorbedBy *uuid.UUID
	Variants   int
}

// IdentityResolver decides whether a supplier record is already known locally
type IdentityResolver struct {
	products catalog.ProductRepository
	variants catalog.VariantRepository
	settings Settings
	logger   *zap.Logger
}

// NewIdentityResolver creates an IdentityResolver
func NewIdentityResolver(
	products catalog.ProductRepository,
	variants catalog.VariantRepository,
	settings Settings,
	logger *zap.Logger,
) *IdentityResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityResolver{
		products: products,
		variants: variants,
		settings: settings,
		logger:   logger,
	}
}

// ResolveDuplicate classifies an incoming record as UPDATE, SKIP or CREATE.
// It never mutates state and never fails: lookup errors resolve to CREATE.
func (r *IdentityResolver) ResolveDuplicate(
	ctx context.Context,
	supplierID, externalID, sku string,
	candidate *Candidate,
) Decision {
	d, err := r.resolve(ctx, supplierID, externalID, sku, candidate)
	if err != nil {
		d = Decision{Action: ActionCreate, Reason: fmt.Sprintf("lookup failed, creating: %v", err)}
		r.logger.Warn("identity resolution failed open",
			zap.String("supplier_id", supplierID),
			zap.String("external_id", externalID),
			zap.Error(err),
		)
	}
	r.logger.Debug("identity resolved",
		zap.String("external_id", externalID),
		zap.String("action", string(d.Action)),
		zap.String("reason", d.Reason),
	)
	return d
}

func (r *IdentityResolver) resolve(
	ctx context.Context,
	supplierID, externalID, sku string,
	candidate *Candidate,
) (Decision, error) {
	if externalID = strings.TrimSpace(externalID); externalID != "" {
		p, err := r.products.FindByExternalID(ctx, supplierID, externalID)
		if err == nil {
			return Decision{IsDuplicate: true, Matched: p, Action: ActionUpdate, Similarity: 1,
				Reason: "external product id " + externalID + " already imported"}, nil
		}
		if !errors.Is(err, catalog.ErrProductNotFound) {
			return Decision{}, err
		}
	}

	if sku = strings.TrimSpace(sku); sku != "" {
		p, err := r.products.FindBySKU(ctx, supplierID, sku)
		if err == nil {
			return Decision{IsDuplicate: true, Matched: p, Action: ActionUpdate, Similarity: 1,
				Reason: "SKU " + sku + " already exists for supplier"}, nil
		}
		if !errors.Is(err, catalog.ErrProductNotFound) {
			return Decision{}, err
		}
	}

	if candidate != nil && strings.TrimSpace(candidate.Name) != "" {
		tol := r.settings.PriceTolerance
		near, err := r.products.FindByPriceRange(ctx, supplierID, candidate.Price.Sub(tol), candidate.Price.Add(tol))
		if err != nil {
			return Decision{}, err
		}
		var best *catalog.Product
		bestScore := 0.0
		for i := range near {
			if score := Similarity(candidate.Name, near[i].Name); score > bestScore {
				best, bestScore = &near[i], score
			}
		}
		if best != nil && bestScore > r.settings.SimilarityThreshold {
			return Decision{IsDuplicate: true, Matched: best, Action: ActionSkip, Similarity: bestScore,
				Reason: fmt.Sprintf("similar to %q (%.2f) at the same price", best.Name, bestScore)}, nil
		}
	}

	return Decision{Action: ActionCreate, Reason: "no matching product"}, nil
}

// ApplyUpsert carries out a decision. UPDATE writes only changed scalar
// fields, CREATE inserts a draft product with its variants, SKIP writes nothing.
func (r *IdentityResolver) ApplyUpsert(ctx context.Context, data ProductData, decision Decision) (*UpsertResult, error) {
	switch decision.Action {
	case ActionSkip:
		if decision.Matched == nil {
			return &UpsertResult{Action: ActionSkip}, nil
		}
		id := decision.Matched.ID
		return &UpsertResult{Action: ActionSkip, Product: decision.Matched, AbsorbedBy: &id}, nil
	case ActionUpdate:
		if decision.Matched == nil {
			return nil, fmt.Errorf("update decision without a matched product for %s", data.ExternalProductID)
		}
		return r.update(ctx, decision.Matched, data)
	default:
		return r.create(ctx, data)
	}
}

func (r *IdentityResolver) create(ctx context.Context, data ProductData) (*UpsertResult, error) {
	p, err := catalog.NewSupplierProduct(data.SupplierID, data.ExternalProductID, data.Name, r.settings.SellPrice(data.CostPrice))
	if err != nil {
		return nil, err
	}
	p.SKU = data.SKU
	p.Description = data.Description
	p.CategoryID = data.CategoryID
	p.CostPrice = data.CostPrice
	p.Weight = data.Weight
	if len(data.Images) > 0 {
		p.Images = data.Images
	}
	if data.OriginCountry != "" {
		p.OriginCountry = data.OriginCountry
	}

	if err := r.products.Create(ctx, p); err != nil {
		if !errors.Is(err, catalog.ErrProductAlreadyExists) || data.ExternalProductID == "" {
			return nil, err
		}
		// Lost a race with a concurrent writer: converge onto the winner.
		winner, findErr := r.products.FindByExternalID(ctx, data.SupplierID, data.ExternalProductID)
		if findErr != nil {
			return nil, fmt.Errorf("re-read after create conflict: %w", findErr)
		}
		return r.update(ctx, winner, data)
	}

	n, err := r.upsertVariants(ctx, p, data.Variants)
	if err != nil {
		return nil, err
	}
	return &UpsertResult{Action: ActionCreate, Product: p, Created: true, Variants: n}, nil
}

func (r *IdentityResolver) update(ctx context.Context, p *catalog.Product, data ProductData) (*UpsertResult, error) {
	var changes []string
	setString := func(field string, dst *string, v string) {
		if v != "" && *dst != v {
			changes = append(changes, fmt.Sprintf("%s: %s -> %s", field, *dst, v))
			*dst = v
		}
	}
	setDecimal := func(field string, dst *decimal.Decimal, v decimal.Decimal) {
		if v.IsPositive() && !dst.Equal(v) {
			changes = append(changes, fmt.Sprintf("%s: %s -> %s", field, dst.StringFixed(2), v.StringFixed(2)))
			*dst = v
		}
	}

	setString("name", &p.Name, data.Name)
	setString("description", &p.Description, data.Description)
	setString("sku", &p.SKU, data.SKU)
	if !p.HasExternalID() {
		setString("external_product_id", &p.ExternalProductID, data.ExternalProductID)
	}
	setDecimal("cost_price", &p.CostPrice, data.CostPrice)
	if data.CostPrice.IsPositive() {
		setDecimal("price", &p.Price, r.settings.SellPrice(data.CostPrice))
	}
	setDecimal("weight", &p.Weight, data.Weight)
	if data.CategoryID != nil && p.AssignCategory(*data.CategoryID) {
		changes = append(changes, "category: "+data.CategoryID.String())
	}

	if len(changes) > 0 {
		if err := r.products.Update(ctx, p); err != nil {
			return nil, err
		}
	}
	return &UpsertResult{Action: ActionUpdate, Product: p, Changes: changes}, nil
}

func (r *IdentityResolver) upsertVariants(ctx context.Context, p *catalog.Product, variants []VariantData) (int, error) {
	n := 0
	for _, vd := range variants {
		if vd.ExternalVariantID == "" {
			continue
		}
		if _, _, err := r.UpsertVariant(ctx, p.ID, vd); err != nil {
			return n, fmt.Errorf("variant %s: %w", vd.ExternalVariantID, err)
		}
		n++
	}
	return n, nil
}

// UpsertVariant writes one variant keyed by its external id under productID.
// Stored stock is kept when vd carries none. Returns the changed fields.
func (r *IdentityResolver) UpsertVariant(ctx context.Context, productID uuid.UUID, vd VariantData) (*catalog.Variant, []string, error) {
	existing, err := r.variants.FindByExternalID(ctx, vd.ExternalVariantID)
	if err != nil && !errors.Is(err, catalog.ErrVariantNotFound) {
		return nil, nil, err
	}

	var changes []string
	v := existing
	if v == nil {
		v = catalog.NewVariant(productID, vd.ExternalVariantID, vd.Name)
		changes = append(changes, "variant "+vd.ExternalVariantID+" added")
	}
	if v.ProductID != productID {
		changes = append(changes, "variant "+vd.ExternalVariantID+" moved to product "+productID.String())
		v.ProductID = productID
	}
	if name := strings.TrimSpace(vd.Name); name != "" && v.Name != name {
		if existing != nil {
			changes = append(changes, fmt.Sprintf("variant %s name: %s -> %s", vd.ExternalVariantID, v.Name, name))
		}
		v.Name = name
	}
	if vd.SKU != "" {
		v.SKU = vd.SKU
	}
	if vd.Image != "" {
		v.Image = vd.Image
	}
	if vd.CostPrice.IsPositive() {
		if price := r.settings.SellPrice(vd.CostPrice); !v.Price.Equal(price) {
			if existing != nil {
				changes = append(changes, fmt.Sprintf("variant %s price: %s -> %s", vd.ExternalVariantID, v.Price.StringFixed(2), price.StringFixed(2)))
			}
			v.Price = price
		}
	}
	if vd.Weight.IsPositive() {
		v.Weight = vd.Weight
	}
	if v.Properties == nil {
		v.Properties = map[string]string{}
	}
	for k, val := range vd.Properties {
		v.Properties[k] = val
	}
	if vd.Stock != nil {
		if existing != nil && existing.Stock != max(*vd.Stock, 0) {
			changes = append(changes, fmt.Sprintf("variant %s stock: %d -> %d", vd.ExternalVariantID, existing.Stock, max(*vd.Stock, 0)))
		}
		v.SetStock(*vd.Stock)
	}

	if err := r.variants.Upsert(ctx, v); err != nil {
		return nil, nil, err
	}
	return v, changes, nil
}
