package catalogsync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/catalogsync/backend/internal/domain/catalog"
	"github.com/catalogsync/backend/internal/domain/integration"
	"github.com/catalogsync/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrParentProductMissing is returned when a variant's parent cannot be located or built
var ErrParentProductMissing = errors.New("catalogsync: parent product not found")

// ---------------------------------------------------------------------------
// PRODUCT
// ---------------------------------------------------------------------------

func (d *Dispatcher) handleProduct(ctx context.Context, n *integration.Notification) (string, error) {
	p, err := n.DecodeProduct()
	if err != nil {
		return "", err
	}

	data := ProductData{
		SupplierID:        d.settings.SupplierID,
		ExternalProductID: p.ExternalID,
		SKU:               p.SKU,
		Name:              NormalizeText(p.Name),
		Description:       NormalizeText(p.Description),
		CategoryID:        d.mappedCategory(ctx, p.CategoryID),
		CostPrice:         p.SellPrice.Or(decimal.Zero),
		Weight:            p.Weight.Or(decimal.Zero),
		Images:            p.Images,
	}
	for _, v := range p.Variants {
		data.Variants = append(data.Variants, variantData(v))
	}

	decision := d.deps.Resolver.ResolveDuplicate(ctx, data.SupplierID, data.ExternalProductID, data.SKU,
		&Candidate{Name: data.Name, Price: d.settings.SellPrice(data.CostPrice)})
	res, err := d.deps.Resolver.ApplyUpsert(ctx, data, decision)
	if err != nil {
		return "", fmt.Errorf("upsert product %s: %w", p.ExternalID, err)
	}

	var summary string
	switch res.Action {
	case ActionCreate:
		d.emitNotice(ctx, catalog.NewChangeNotice(res.Product.ID, catalog.ChangeNoticeProductCreated,
			"New supplier product: "+res.Product.Name, nil))
		d.enrichStock(ctx, p.ExternalID)
		d.markStagedImported(ctx, p.ExternalID)
		summary = fmt.Sprintf("CREATE product %s with %d variants", res.Product.ID, res.Variants)
	case ActionUpdate:
		if len(res.Changes) > 0 {
			d.emitNotice(ctx, catalog.NewChangeNotice(res.Product.ID, catalog.ChangeNoticeProductUpdated,
				"Supplier updated "+res.Product.Name, res.Changes))
			summary = fmt.Sprintf("UPDATE product %s: %s", res.Product.ID, strings.Join(res.Changes, "; "))
		} else {
			summary = fmt.Sprintf("UPDATE product %s: no changes", res.Product.ID)
		}
	default:
		summary = fmt.Sprintf("SKIP: absorbed by product %s (%s)", lo.FromPtr(res.AbsorbedBy), decision.Reason)
	}

	d.deps.Cache.InvalidateProduct(ctx, p.ExternalID)
	return summary, nil
}

func variantData(v integration.VariantPayload) VariantData {
	vd := VariantData{
		ExternalVariantID: v.ExternalID,
		Name:              NormalizeText(v.Name),
		SKU:               v.SKU,
		Image:             v.Image,
		CostPrice:         v.SellPrice.Or(decimal.Zero),
		Weight:            v.Weight.Or(decimal.Zero),
		Properties:        v.Properties,
	}
	if v.Stock.Valid {
		vd.Stock = lo.ToPtr(v.Stock.Int64())
	}
	return vd
}

// mappedCategory returns the internal category for a supplier category, if mapped
func (d *Dispatcher) mappedCategory(ctx context.Context, externalCategory string) *uuid.UUID {
	if externalCategory == "" || d.deps.Mappings == nil {
		return nil
	}
	mp, err := d.deps.Mappings.FindByExternalCategory(ctx, d.settings.SupplierID, externalCategory)
	if err != nil {
		if !isNotFound(err) {
			logger.Enrich(ctx, d.logger).Warn("category mapping lookup failed", zap.Error(err))
		}
		return nil
	}
	return &mp.InternalCategoryID
}

// enrichStock pulls current stock for a new product; best-effort
func (d *Dispatcher) enrichStock(ctx context.Context, externalProductID string) {
	if d.deps.Stock == nil {
		return
	}
	rows, err := d.deps.Stock.GetProductStock(ctx, externalProductID)
	if err != nil {
		logger.Enrich(ctx, d.logger).Warn("stock enrichment failed",
			zap.String("external_id", externalProductID), zap.Error(err))
		return
	}
	totals := lo.MapValues(
		lo.GroupBy(rows, func(r integration.VariantStock) string { return r.ExternalVariantID }),
		func(rs []integration.VariantStock, _ string) int64 {
			return lo.SumBy(rs, func(r integration.VariantStock) int64 { return r.Quantity })
		},
	)
	for vid, total := range totals {
		if err := d.deps.Variants.SetStock(ctx, vid, total); err != nil && !isNotFound(err) {
			logger.Enrich(ctx, d.logger).Warn("stock enrichment write failed", zap.String("vid", vid), zap.Error(err))
		}
	}
}

// markStagedImported flips a staged entry once its product exists locally
func (d *Dispatcher) markStagedImported(ctx context.Context, externalProductID string) {
	if d.deps.Entries == nil {
		return
	}
	entry, err := d.deps.Entries.FindByExternalID(ctx, d.settings.SupplierID, externalProductID)
	if err != nil || entry.IsImported() {
		return
	}
	if err := d.deps.Entries.UpdateStatus(ctx, entry.ID, integration.CatalogEntryImported); err != nil {
		logger.Enrich(ctx, d.logger).Warn("failed to flip staged entry", zap.Error(err))
	}
}

// ---------------------------------------------------------------------------
// VARIANT
// ---------------------------------------------------------------------------

func (d *Dispatcher) handleVariant(ctx context.Context, n *integration.Notification) (string, error) {
	v, err := n.DecodeVariant()
	if err != nil {
		return "", err
	}

	parent, via, err := d.resolveParent(ctx, v)
	if err != nil {
		return "", err
	}

	variant, changes, err := d.deps.Resolver.UpsertVariant(ctx, parent.ID, variantData(*v))
	if err != nil {
		return "", fmt.Errorf("upsert variant %s: %w", v.ExternalID, err)
	}
	if len(changes) > 0 {
		d.emitNotice(ctx, catalog.NewChangeNotice(parent.ID, catalog.ChangeNoticeVariantUpdated,
			"Supplier updated a variant of "+parent.Name, changes))
	}
	d.deps.Cache.InvalidateProduct(ctx, parent.ExternalProductID)
	return fmt.Sprintf("variant %s upserted on product %s (parent via %s, stock %d)",
		variant.ExternalVariantID, parent.ID, via, variant.Stock), nil
}

// resolveParent finds or builds the owning product of a variant: existing
// variant link, parent external id, staged entry, then a minimal draft built
// from the variant's own parent hints
func (d *Dispatcher) resolveParent(ctx context.Context, v *integration.VariantPayload) (*catalog.Product, string, error) {
	supplierID := d.settings.SupplierID

	existing, err := d.deps.Variants.FindByExternalID(ctx, v.ExternalID)
	if err == nil {
		p, err := d.deps.Products.FindByID(ctx, existing.ProductID)
		if err == nil {
			return p, "variant link", nil
		}
		if !isNotFound(err) {
			return nil, "", err
		}
	} else if !isNotFound(err) {
		return nil, "", err
	}

	pid := v.ExternalProductID
	if pid == "" {
		return nil, "", fmt.Errorf("%w: variant %s has no parent product id; import its product manually", ErrParentProductMissing, v.ExternalID)
	}

	p, err := d.deps.Products.FindByExternalID(ctx, supplierID, pid)
	if err == nil {
		return p, "parent external id", nil
	}
	if !isNotFound(err) {
		return nil, "", err
	}

	entry, err := d.deps.Entries.FindByExternalID(ctx, supplierID, pid)
	if err == nil {
		p, err := d.deps.Materializer.MaterializeEntry(ctx, entry)
		if err != nil {
			return nil, "", fmt.Errorf("materialize staged product %s: %w", pid, err)
		}
		return p, "staged entry", nil
	}
	if !isNotFound(err) {
		return nil, "", err
	}

	price := v.ProductSellPrice
	if !price.Valid {
		price = v.SellPrice
	}
	if name := NormalizeText(v.ProductName); name != "" && price.Valid {
		res, err := d.deps.Resolver.ApplyUpsert(ctx, ProductData{
			SupplierID:        supplierID,
			ExternalProductID: pid,
			Name:              name,
			CostPrice:         price.Value,
		}, Decision{Action: ActionCreate})
		if err != nil {
			return nil, "", fmt.Errorf("synthesize parent %s: %w", pid, err)
		}
		return res.Product, "synthesized draft", nil
	}

	return nil, "", fmt.Errorf("%w: product %s is not imported locally; import product %s manually, then resend variant %s",
		ErrParentProductMissing, pid, pid, v.ExternalID)
}

// ---------------------------------------------------------------------------
// STOCK
// ---------------------------------------------------------------------------

func (d *Dispatcher) handleStock(ctx context.Context, n *integration.Notification) (string, error) {
	rows, err := n.DecodeStock()
	if err != nil {
		return "", err
	}

	totals := lo.MapValues(
		lo.GroupBy(rows, func(r integration.StockRow) string { return r.ExternalVariantID }),
		func(rs []integration.StockRow, _ string) int64 {
			return lo.SumBy(rs, func(r integration.StockRow) int64 { return r.Quantity })
		},
	)
	vids := lo.Keys(totals)
	sort.Strings(vids)

	updated, notFound := 0, 0
	var failures []string
	for _, vid := range vids {
		err := d.deps.Variants.SetStock(ctx, vid, totals[vid])
		switch {
		case err == nil:
			updated++
		case isNotFound(err):
			notFound++
		default:
			failures = append(failures, fmt.Sprintf("%s: %v", vid, err))
		}
	}

	for _, key := range lo.Uniq(lo.Map(rows, func(r integration.StockRow, _ int) string { return r.GroupKey })) {
		d.deps.Cache.InvalidateProduct(ctx, key)
	}

	summary := fmt.Sprintf("stock updated for %d variants, %d not found", updated, notFound)
	if len(failures) > 0 {
		return "", fmt.Errorf("%s, %d failed: %s", summary, len(failures), strings.Join(failures, "; "))
	}
	return summary, nil
}

// ---------------------------------------------------------------------------
// ORDER / ORDERSPLIT
// ---------------------------------------------------------------------------

func (d *Dispatcher) handleOrder(ctx context.Context, n *integration.Notification) (string, error) {
	o, err := n.DecodeOrder()
	if err != nil {
		return "", err
	}

	m, err := d.findOrderMapping(ctx, o.SupplierOrderID, o.OrderNumber)
	if err != nil {
		return "", err
	}
	if m == nil {
		if o.SupplierOrderID == "" {
			return fmt.Sprintf("order %s not tracked locally", o.OrderNumber), nil
		}
		if m, err = integration.NewOrderMapping(d.settings.SupplierID, o.OrderNumber, o.SupplierOrderID); err != nil {
			return "", err
		}
	}
	if m.SupplierOrderID == "" {
		m.SupplierOrderID = o.SupplierOrderID
	}

	previous := m.Status
	m.ApplySupplierStatus(o.Status, o.TrackingNumber, o.LogisticName)
	if err := d.deps.Orders.Save(ctx, m); err != nil {
		return "", err
	}
	return fmt.Sprintf("order %s: %s -> %s", m.LocalOrderNumber, previous, m.Status), nil
}

func (d *Dispatcher) handleOrderSplit(ctx context.Context, n *integration.Notification) (string, error) {
	o, err := n.DecodeOrderSplit()
	if err != nil {
		return "", err
	}

	parent, err := d.findOrderMapping(ctx, o.OriginalOrderID, o.OrderNumber)
	if err != nil {
		return "", err
	}
	localNumber := o.OrderNumber
	if parent != nil {
		localNumber = parent.LocalOrderNumber
		parent.MarkSplit()
		if err := d.deps.Orders.Save(ctx, parent); err != nil {
			return "", err
		}
	}
	if localNumber == "" {
		return "", fmt.Errorf("%w: split of unknown order %s", integration.ErrOrderMappingNotFound, o.OriginalOrderID)
	}

	children := 0
	for _, c := range o.Children {
		if c.SupplierOrderID == "" {
			continue
		}
		child, err := d.deps.Orders.FindBySupplierOrderID(ctx, d.settings.SupplierID, c.SupplierOrderID)
		if err != nil {
			if !isNotFound(err) {
				return "", err
			}
			if child, err = integration.NewOrderMapping(d.settings.SupplierID, localNumber, c.SupplierOrderID); err != nil {
				return "", err
			}
		}
		child.ParentSupplierOrderID = o.OriginalOrderID
		child.ApplySupplierStatus(c.Status, c.TrackingNumber, c.LogisticName)
		if err := d.deps.Orders.Save(ctx, child); err != nil {
			return "", err
		}
		children++
	}
	return fmt.Sprintf("order %s split into %d supplier orders", localNumber, children), nil
}

// findOrderMapping looks up by supplier order id, then local order number.
// Returns nil without error when neither is known.
func (d *Dispatcher) findOrderMapping(ctx context.Context, supplierOrderID, orderNumber string) (*integration.OrderMapping, error) {
	if supplierOrderID != "" {
		m, err := d.deps.Orders.FindBySupplierOrderID(ctx, d.settings.SupplierID, supplierOrderID)
		if err == nil {
			return m, nil
		}
		if !isNotFound(err) {
			return nil, err
		}
	}
	if orderNumber != "" {
		m, err := d.deps.Orders.FindByLocalOrderNumber(ctx, d.settings.SupplierID, orderNumber)
		if err == nil {
			return m, nil
		}
		if !isNotFound(err) {
			return nil, err
		}
	}
	return nil, nil
}

// ---------------------------------------------------------------------------
// SOURCINGCREATE
// ---------------------------------------------------------------------------

func (d *Dispatcher) handleSourcing(ctx context.Context, n *integration.Notification) (string, error) {
	s, err := n.DecodeSourcing()
	if err != nil {
		return "", err
	}

	if s.SourcingID != "" && d.deps.Sourcing != nil {
		req, err := d.deps.Sourcing.FindBySourcingID(ctx, d.settings.SupplierID, s.SourcingID)
		if err == nil {
			if err := req.Apply(integration.SourcingResult{
				SourcingID:        s.SourcingID,
				Status:            s.Status,
				ExternalProductID: s.ExternalProductID,
			}); err == nil {
				if err := d.deps.Sourcing.Save(ctx, req); err != nil {
					logger.Enrich(ctx, d.logger).Warn("failed to update sourcing request", zap.Error(err))
				}
			}
		}
	}

	if s.ExternalProductID == "" {
		return fmt.Sprintf("sourcing %s recorded, no product attached", s.SourcingID), nil
	}
	p, err := d.deps.Products.FindByExternalID(ctx, d.settings.SupplierID, s.ExternalProductID)
	if err != nil {
		if isNotFound(err) {
			return fmt.Sprintf("sourcing %s: product %s not found locally", s.SourcingID, s.ExternalProductID), nil
		}
		return "", err
	}
	p.AttachSourcing(s.SourcingID, s.Status)
	if err := d.deps.Products.Update(ctx, p); err != nil {
		return "", err
	}
	return fmt.Sprintf("sourcing %s attached to product %s", s.SourcingID, p.ID), nil
}
