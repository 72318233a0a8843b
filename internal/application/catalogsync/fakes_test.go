package catalogsync

import (
	"context"
	"sync"
	"time"

	"github.com/catalogsync/backend/internal/domain/catalog"
	"github.com/catalogsync/backend/internal/domain/integration"
	"github.com/catalogsync/backend/internal/infrastructure/cache"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// In-memory repositories
// ---------------------------------------------------------------------------

type memProducts struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]catalog.Product
	updates int
}

func newMemProducts() *memProducts { return &memProducts{rows: map[uuid.UUID]catalog.Product{}} }

func (m *memProducts) find(pred func(p catalog.Product) bool) (*catalog.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.rows {
		if pred(p) {
			cp := p
			return &cp, nil
		}
	}
	return nil, catalog.ErrProductNotFound
}

func (m *memProducts) FindByID(_ context.Context, id uuid.UUID) (*catalog.Product, error) {
	return m.find(func(p catalog.Product) bool { return p.ID == id })
}

func (m *memProducts) FindByExternalID(_ context.Context, supplierID, externalID string) (*catalog.Product, error) {
	return m.find(func(p catalog.Product) bool {
		return p.SupplierID == supplierID && p.ExternalProductID == externalID
	})
}

func (m *memProducts) FindBySKU(_ context.Context, supplierID, sku string) (*catalog.Product, error) {
	return m.find(func(p catalog.Product) bool { return p.SupplierID == supplierID && p.SKU == sku })
}

func (m *memProducts) FindByNameAndSource(_ context.Context, supplierID, name string, source catalog.ProductSource) (*catalog.Product, error) {
	return m.find(func(p catalog.Product) bool {
		return p.SupplierID == supplierID && p.Name == name && p.Source == source
	})
}

func (m *memProducts) FindByPriceRange(_ context.Context, supplierID string, lo, hi decimal.Decimal) ([]catalog.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []catalog.Product
	for _, p := range m.rows {
		if p.SupplierID == supplierID && p.Price.GreaterThanOrEqual(lo) && p.Price.LessThanOrEqual(hi) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memProducts) Create(_ context.Context, p *catalog.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.rows {
		if p.ExternalProductID != "" && existing.SupplierID == p.SupplierID && existing.ExternalProductID == p.ExternalProductID {
			return catalog.ErrProductAlreadyExists
		}
	}
	m.rows[p.ID] = *p
	return nil
}

func (m *memProducts) Update(_ context.Context, p *catalog.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[p.ID]; !ok {
		return catalog.ErrProductNotFound
	}
	m.rows[p.ID] = *p
	m.updates++
	return nil
}

func (m *memProducts) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func (m *memProducts) put(p *catalog.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[p.ID] = *p
}

type memVariants struct {
	mu   sync.Mutex
	rows map[string]catalog.Variant
}

func newMemVariants() *memVariants { return &memVariants{rows: map[string]catalog.Variant{}} }

func (m *memVariants) FindByExternalID(_ context.Context, vid string) (*catalog.Variant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.rows[vid]
	if !ok {
		return nil, catalog.ErrVariantNotFound
	}
	v.Properties = copyProps(v.Properties)
	return &v, nil
}

func (m *memVariants) FindByProduct(_ context.Context, productID uuid.UUID) ([]catalog.Variant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []catalog.Variant
	for _, v := range m.rows {
		if v.ProductID == productID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *memVariants) Upsert(_ context.Context, v *catalog.Variant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *v
	cp.Properties = copyProps(v.Properties)
	m.rows[v.ExternalVariantID] = cp
	return nil
}

func (m *memVariants) SetStock(_ context.Context, vid string, stock int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.rows[vid]
	if !ok {
		return catalog.ErrVariantNotFound
	}
	v.SetStock(stock)
	m.rows[vid] = v
	return nil
}

func (m *memVariants) get(vid string) (catalog.Variant, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.rows[vid]
	return v, ok
}

func (m *memVariants) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func copyProps(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

type memEntries struct {
	mu   sync.Mutex
	rows map[string]*integration.CatalogEntry
}

func newMemEntries() *memEntries { return &memEntries{rows: map[string]*integration.CatalogEntry{}} }

func (m *memEntries) FindByExternalID(_ context.Context, supplierID, pid string) (*integration.CatalogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[supplierID+"/"+pid]
	if !ok {
		return nil, integration.ErrCatalogEntryNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memEntries) FindByCategory(_ context.Context, supplierID, categoryID string, status integration.CatalogEntryStatus) ([]integration.CatalogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []integration.CatalogEntry
	for _, e := range m.rows {
		if e.SupplierID == supplierID && e.CategoryID == categoryID && e.Status == status {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *memEntries) Upsert(_ context.Context, e *integration.CatalogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := e.SupplierID + "/" + e.ExternalProductID
	if existing, ok := m.rows[key]; ok {
		e.ID, e.Status = existing.ID, existing.Status
	}
	cp := *e
	m.rows[key] = &cp
	return nil
}

func (m *memEntries) UpdateStatus(_ context.Context, id uuid.UUID, status integration.CatalogEntryStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.rows {
		if e.ID == id {
			e.Status = status
			return nil
		}
	}
	return integration.ErrCatalogEntryNotFound
}

func (m *memEntries) status(pid string) integration.CatalogEntryStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.rows {
		if e.ExternalProductID == pid {
			return e.Status
		}
	}
	return ""
}

type memMappings struct {
	mu   sync.Mutex
	rows map[string]catalog.CategoryMapping
}

func newMemMappings() *memMappings { return &memMappings{rows: map[string]catalog.CategoryMapping{}} }

func (m *memMappings) FindByID(_ context.Context, id uuid.UUID) (*catalog.CategoryMapping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mp := range m.rows {
		if mp.ID == id {
			cp := mp
			return &cp, nil
		}
	}
	return nil, catalog.ErrMappingNotFound
}

func (m *memMappings) FindByExternalCategory(_ context.Context, supplierID, ext string) (*catalog.CategoryMapping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mp, ok := m.rows[supplierID+"/"+ext]
	if !ok {
		return nil, catalog.ErrMappingNotFound
	}
	return &mp, nil
}

func (m *memMappings) FindAll(_ context.Context) ([]catalog.CategoryMapping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]catalog.CategoryMapping, 0, len(m.rows))
	for _, mp := range m.rows {
		out = append(out, mp)
	}
	return out, nil
}

func (m *memMappings) Save(_ context.Context, mp *catalog.CategoryMapping) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[mp.SupplierID+"/"+mp.ExternalCategory] = *mp
	return nil
}

type memUnmapped struct {
	mu   sync.Mutex
	rows map[string]*catalog.UnmappedCategory
}

func newMemUnmapped() *memUnmapped { return &memUnmapped{rows: map[string]*catalog.UnmappedCategory{}} }

func (m *memUnmapped) Record(_ context.Context, supplierID, ext string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := supplierID + "/" + ext
	u, ok := m.rows[key]
	if !ok {
		u = &catalog.UnmappedCategory{SupplierID: supplierID, ExternalCategory: ext}
		m.rows[key] = u
	}
	u.SeenCount++
	u.LastSeenAt = time.Now()
	return nil
}

func (m *memUnmapped) Remove(_ context.Context, supplierID, ext string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, supplierID+"/"+ext)
	return nil
}

func (m *memUnmapped) FindAll(_ context.Context, supplierID string) ([]catalog.UnmappedCategory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []catalog.UnmappedCategory
	for _, u := range m.rows {
		if u.SupplierID == supplierID {
			out = append(out, *u)
		}
	}
	return out, nil
}

type memNotices struct {
	mu   sync.Mutex
	rows []catalog.ChangeNotice
}

func (m *memNotices) Create(_ context.Context, n *catalog.ChangeNotice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, *n)
	return nil
}

func (m *memNotices) FindRecent(_ context.Context, limit int) ([]catalog.ChangeNotice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]catalog.ChangeNotice(nil), m.rows...), nil
}

type memLogs struct {
	mu   sync.Mutex
	rows map[string]integration.NotificationLog
}

func newMemLogs() *memLogs { return &memLogs{rows: map[string]integration.NotificationLog{}} }

func (m *memLogs) FindByMessageID(_ context.Context, id string) (*integration.NotificationLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.rows[id]
	if !ok {
		return nil, integration.ErrNotificationLogNotFound
	}
	return &l, nil
}

func (m *memLogs) Create(_ context.Context, l *integration.NotificationLog) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[l.MessageID]; ok {
		return false, nil
	}
	m.rows[l.MessageID] = *l
	return true, nil
}

func (m *memLogs) Save(_ context.Context, l *integration.NotificationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[l.MessageID] = *l
	return nil
}

func (m *memLogs) FindRecent(_ context.Context, status integration.NotificationLogStatus, limit int) ([]integration.NotificationLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []integration.NotificationLog
	for _, l := range m.rows {
		if status == "" || l.Status == status {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memLogs) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type memOrders struct {
	mu   sync.Mutex
	rows map[string]integration.OrderMapping
}

func newMemOrders() *memOrders { return &memOrders{rows: map[string]integration.OrderMapping{}} }

func (m *memOrders) FindBySupplierOrderID(_ context.Context, supplierID, id string) (*integration.OrderMapping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.rows[supplierID+"/"+id]
	if !ok {
		return nil, integration.ErrOrderMappingNotFound
	}
	return &o, nil
}

func (m *memOrders) FindByLocalOrderNumber(_ context.Context, supplierID, number string) (*integration.OrderMapping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.rows {
		if o.SupplierID == supplierID && o.LocalOrderNumber == number && o.ParentSupplierOrderID == "" {
			cp := o
			return &cp, nil
		}
	}
	return nil, integration.ErrOrderMappingNotFound
}

func (m *memOrders) Save(_ context.Context, o *integration.OrderMapping) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[o.SupplierID+"/"+o.SupplierOrderID] = *o
	return nil
}

type memSourcing struct {
	mu   sync.Mutex
	rows map[uuid.UUID]integration.SourcingRequest
}

func newMemSourcing() *memSourcing { return &memSourcing{rows: map[uuid.UUID]integration.SourcingRequest{}} }

func (m *memSourcing) FindByID(_ context.Context, id uuid.UUID) (*integration.SourcingRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, integration.ErrSourcingNotFound
	}
	return &r, nil
}

func (m *memSourcing) FindBySourcingID(_ context.Context, supplierID, sid string) (*integration.SourcingRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.SupplierID == supplierID && r.SourcingID == sid {
			cp := r
			return &cp, nil
		}
	}
	return nil, integration.ErrSourcingNotFound
}

func (m *memSourcing) FindByStatuses(_ context.Context, statuses ...integration.SourcingStatus) ([]integration.SourcingRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []integration.SourcingRequest
	for _, r := range m.rows {
		for _, s := range statuses {
			if r.Status == s {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func (m *memSourcing) Save(_ context.Context, r *integration.SourcingRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[r.ID] = *r
	return nil
}

// ---------------------------------------------------------------------------
// Gateway mock
// ---------------------------------------------------------------------------

type MockSupplier struct {
	mock.Mock
}

func (m *MockSupplier) ListCategories(ctx context.Context) ([]integration.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.Category), args.Error(1)
}

func (m *MockSupplier) SearchProducts(ctx context.Context, q integration.SearchQuery) (*integration.SearchPage, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.SearchPage), args.Error(1)
}

func (m *MockSupplier) GetProduct(ctx context.Context, pid string, f integration.ProductFeatures) (*integration.ProductDetail, error) {
	args := m.Called(ctx, pid, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.ProductDetail), args.Error(1)
}

func (m *MockSupplier) GetVariantStock(ctx context.Context, vid string) ([]integration.VariantStock, error) {
	args := m.Called(ctx, vid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.VariantStock), args.Error(1)
}

func (m *MockSupplier) GetProductStock(ctx context.Context, pid string) ([]integration.VariantStock, error) {
	args := m.Called(ctx, pid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.VariantStock), args.Error(1)
}

func (m *MockSupplier) CreateSourcing(ctx context.Context, sub integration.SourcingSubmission) (*integration.SourcingResult, error) {
	args := m.Called(ctx, sub)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.SourcingResult), args.Error(1)
}

func (m *MockSupplier) QuerySourcing(ctx context.Context, ids []string) ([]integration.SourcingResult, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.SourcingResult), args.Error(1)
}

func (m *MockSupplier) CreateOrder(ctx context.Context, req integration.OrderRequest) (*integration.SupplierOrder, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.SupplierOrder), args.Error(1)
}

func (m *MockSupplier) GetOrder(ctx context.Context, id string) (*integration.SupplierOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.SupplierOrder), args.Error(1)
}

func (m *MockSupplier) CalculateFreight(ctx context.Context, req integration.FreightRequest) ([]integration.FreightQuote, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.FreightQuote), args.Error(1)
}

func (m *MockSupplier) GetTracking(ctx context.Context, number string) (*integration.TrackingInfo, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.TrackingInfo), args.Error(1)
}

var (
	_ CatalogSource                      = (*MockSupplier)(nil)
	_ integration.OrderGateway           = (*MockSupplier)(nil)
	_ integration.SourcingGateway        = (*MockSupplier)(nil)
	_ catalog.ProductRepository          = (*memProducts)(nil)
	_ catalog.VariantRepository          = (*memVariants)(nil)
	_ integration.CatalogEntryRepository = (*memEntries)(nil)
)

// invalidations records cache invalidations
type invalidations struct {
	mu  sync.Mutex
	ids []string
}

func (r *invalidations) InvalidateProduct(_ context.Context, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
}

func (r *invalidations) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

type fixture struct {
	settings     Settings
	products     *memProducts
	variants     *memVariants
	entries      *memEntries
	mappings     *memMappings
	unmapped     *memUnmapped
	notices      *memNotices
	logs         *memLogs
	orders       *memOrders
	sourcing     *memSourcing
	claims       *cache.InMemoryClaimStore
	resolver     *IdentityResolver
	materializer *Materializer
	dispatcher   *Dispatcher
}

func newFixture() *fixture {
	s := DefaultSettings()
	s.BatchDelay = 0
	f := &fixture{
		settings: s,
		products: newMemProducts(),
		variants: newMemVariants(),
		entries:  newMemEntries(),
		mappings: newMemMappings(),
		unmapped: newMemUnmapped(),
		notices:  &memNotices{},
		logs:     newMemLogs(),
		orders:   newMemOrders(),
		sourcing: newMemSourcing(),
		claims:   cache.NewInMemoryClaimStore(),
	}
	f.resolver = NewIdentityResolver(f.products, f.variants, s, zap.NewNop())
	f.materializer = NewMaterializer(MaterializerDeps{
		Resolver: f.resolver,
		Products: f.products,
		Entries:  f.entries,
		Mappings: f.mappings,
		Unmapped: f.unmapped,
	}, s, zap.NewNop())
	f.dispatcher = f.newDispatcher(nil)
	return f
}

// newDispatcher builds a dispatcher over the fixture state; edit may swap collaborators
func (f *fixture) newDispatcher(edit func(*DispatcherDeps)) *Dispatcher {
	deps := DispatcherDeps{
		Resolver:     f.resolver,
		Materializer: f.materializer,
		Products:     f.products,
		Variants:     f.variants,
		Entries:      f.entries,
		Mappings:     f.mappings,
		Notices:      f.notices,
		Logs:         f.logs,
		Orders:       f.orders,
		Sourcing:     f.sourcing,
		Claims:       f.claims,
	}
	if edit != nil {
		edit(&deps)
	}
	return NewDispatcher(deps, f.settings, zap.NewNop())
}

func (f *fixture) close() { _ = f.claims.Close() }

func (f *fixture) seedProduct(extID, name string, price string) *catalog.Product {
	p, err := catalog.NewSupplierProduct(f.settings.SupplierID, extID, name, decimal.RequireFromString(price))
	if err != nil {
		panic(err)
	}
	f.products.put(p)
	return p
}
