package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/catalogsync/backend/internal/application/catalogsync"
	"github.com/catalogsync/backend/internal/domain/catalog"
	"github.com/catalogsync/backend/internal/domain/integration"
	"github.com/catalogsync/backend/internal/infrastructure/cache"
	"github.com/catalogsync/backend/internal/infrastructure/scheduler"
	"github.com/catalogsync/backend/internal/interfaces/http/dto"
	"github.com/catalogsync/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

type registrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// newTestRouter mounts h under /api/v1 behind the request id middleware
func newTestRouter(h registrar) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	h.RegisterRoutes(r.Group("/api/v1"))
	return r
}

func performRequest(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewBuffer(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockReceiver struct{ mock.Mock }

func (m *mockReceiver) Receive(ctx context.Context, body []byte) catalogsync.Ack {
	return m.Called(ctx, body).Get(0).(catalogsync.Ack)
}

type mockMappingService struct {
	mock.Mock
	events []catalogsync.SyncProgress
}

func (m *mockMappingService) SaveMapping(ctx context.Context, supplierID, externalCategory string, internalCategoryID uuid.UUID) (*catalog.CategoryMapping, *catalogsync.MaterializeResult, error) {
	args := m.Called(ctx, supplierID, externalCategory, internalCategoryID)
	mapping, _ := args.Get(0).(*catalog.CategoryMapping)
	result, _ := args.Get(1).(*catalogsync.MaterializeResult)
	return mapping, result, args.Error(2)
}

func (m *mockMappingService) ListMappings(ctx context.Context) ([]catalog.CategoryMapping, error) {
	args := m.Called(ctx)
	rows, _ := args.Get(0).([]catalog.CategoryMapping)
	return rows, args.Error(1)
}

func (m *mockMappingService) ListUnmapped(ctx context.Context, supplierID string) ([]catalog.UnmappedCategory, error) {
	args := m.Called(ctx, supplierID)
	rows, _ := args.Get(0).([]catalog.UnmappedCategory)
	return rows, args.Error(1)
}

// SyncAllMappings publishes m.events and closes progress like the real service
func (m *mockMappingService) SyncAllMappings(ctx context.Context, progress chan<- catalogsync.SyncProgress) (*catalogsync.SyncSummary, error) {
	args := m.Called(ctx, progress != nil)
	if progress != nil {
		for _, ev := range m.events {
			progress <- ev
		}
		close(progress)
	}
	summary, _ := args.Get(0).(*catalogsync.SyncSummary)
	return summary, args.Error(1)
}

type mockCatalog struct{ mock.Mock }

func (m *mockCatalog) Categories(ctx context.Context) ([]integration.Category, error) {
	args := m.Called(ctx)
	rows, _ := args.Get(0).([]integration.Category)
	return rows, args.Error(1)
}

func (m *mockCatalog) CategoryPath(ctx context.Context, categoryID string) ([]integration.Category, error) {
	args := m.Called(ctx, categoryID)
	rows, _ := args.Get(0).([]integration.Category)
	return rows, args.Error(1)
}

func (m *mockCatalog) Search(ctx context.Context, q integration.SearchQuery) (*integration.SearchPage, error) {
	args := m.Called(ctx, q)
	page, _ := args.Get(0).(*integration.SearchPage)
	return page, args.Error(1)
}

func (m *mockCatalog) Product(ctx context.Context, externalProductID string) (*integration.ProductDetail, error) {
	args := m.Called(ctx, externalProductID)
	detail, _ := args.Get(0).(*integration.ProductDetail)
	return detail, args.Error(1)
}

func (m *mockCatalog) VariantStock(ctx context.Context, externalProductID, externalVariantID, countryCode string) ([]integration.VariantStock, error) {
	args := m.Called(ctx, externalProductID, externalVariantID, countryCode)
	rows, _ := args.Get(0).([]integration.VariantStock)
	return rows, args.Error(1)
}

func (m *mockCatalog) ProductStock(ctx context.Context, externalProductID, countryCode string) ([]integration.VariantStock, error) {
	args := m.Called(ctx, externalProductID, countryCode)
	rows, _ := args.Get(0).([]integration.VariantStock)
	return rows, args.Error(1)
}

func (m *mockCatalog) TestConnection(ctx context.Context) *catalogsync.ConnectionReport {
	return m.Called(ctx).Get(0).(*catalogsync.ConnectionReport)
}

type mockImporter struct{ mock.Mock }

func (m *mockImporter) StageProducts(ctx context.Context, q integration.SearchQuery, maxPages int) (*catalogsync.StageResult, error) {
	args := m.Called(ctx, q, maxPages)
	res, _ := args.Get(0).(*catalogsync.StageResult)
	return res, args.Error(1)
}

func (m *mockImporter) ImportProduct(ctx context.Context, externalProductID string) (*catalogsync.ImportResult, error) {
	args := m.Called(ctx, externalProductID)
	res, _ := args.Get(0).(*catalogsync.ImportResult)
	return res, args.Error(1)
}

type mockStockRefresher struct{ mock.Mock }

func (m *mockStockRefresher) ResyncProduct(ctx context.Context, productID uuid.UUID) (*catalogsync.ResyncResult, error) {
	args := m.Called(ctx, productID)
	res, _ := args.Get(0).(*catalogsync.ResyncResult)
	return res, args.Error(1)
}

type mockWebhookGateway struct{ mock.Mock }

func (m *mockWebhookGateway) RegisterWebhook(ctx context.Context, action integration.WebhookAction, callbackURL string) error {
	return m.Called(ctx, action, callbackURL).Error(0)
}

type mockCacheAdmin struct{ mock.Mock }

func (m *mockCacheAdmin) Stats() []cache.Stats {
	return m.Called().Get(0).([]cache.Stats)
}

func (m *mockCacheAdmin) InvalidateProduct(ctx context.Context, externalProductID string) {
	m.Called(ctx, externalProductID)
}

func (m *mockCacheAdmin) InvalidateAll(ctx context.Context) {
	m.Called(ctx)
}

func (m *mockCacheAdmin) Sweep() int {
	return m.Called().Int(0)
}

type mockSourcing struct{ mock.Mock }

func (m *mockSourcing) Submit(ctx context.Context, sub integration.SourcingSubmission) (*integration.SourcingRequest, error) {
	args := m.Called(ctx, sub)
	req, _ := args.Get(0).(*integration.SourcingRequest)
	return req, args.Error(1)
}

func (m *mockSourcing) Reconcile(ctx context.Context) (*catalogsync.ReconcileResult, error) {
	args := m.Called(ctx)
	res, _ := args.Get(0).(*catalogsync.ReconcileResult)
	return res, args.Error(1)
}

func (m *mockSourcing) Get(ctx context.Context, sourcingID string) (*integration.SourcingRequest, error) {
	args := m.Called(ctx, sourcingID)
	req, _ := args.Get(0).(*integration.SourcingRequest)
	return req, args.Error(1)
}

type mockLogReader struct{ mock.Mock }

func (m *mockLogReader) FindLog(ctx context.Context, messageID string) (*integration.NotificationLog, error) {
	args := m.Called(ctx, messageID)
	l, _ := args.Get(0).(*integration.NotificationLog)
	return l, args.Error(1)
}

func (m *mockLogReader) RecentLogs(ctx context.Context, status integration.NotificationLogStatus, limit int) ([]integration.NotificationLog, error) {
	args := m.Called(ctx, status, limit)
	rows, _ := args.Get(0).([]integration.NotificationLog)
	return rows, args.Error(1)
}

type mockNoticeRepo struct{ mock.Mock }

func (m *mockNoticeRepo) Create(ctx context.Context, notice *catalog.ChangeNotice) error {
	return m.Called(ctx, notice).Error(0)
}

func (m *mockNoticeRepo) FindRecent(ctx context.Context, limit int) ([]catalog.ChangeNotice, error) {
	args := m.Called(ctx, limit)
	rows, _ := args.Get(0).([]catalog.ChangeNotice)
	return rows, args.Error(1)
}

type mockOrders struct{ mock.Mock }

func (m *mockOrders) PlaceOrder(ctx context.Context, req integration.OrderRequest) (*integration.OrderMapping, error) {
	args := m.Called(ctx, req)
	om, _ := args.Get(0).(*integration.OrderMapping)
	return om, args.Error(1)
}

func (m *mockOrders) RefreshOrder(ctx context.Context, orderNumber string) (*integration.OrderMapping, error) {
	args := m.Called(ctx, orderNumber)
	om, _ := args.Get(0).(*integration.OrderMapping)
	return om, args.Error(1)
}

func (m *mockOrders) Freight(ctx context.Context, req integration.FreightRequest) ([]integration.FreightQuote, error) {
	args := m.Called(ctx, req)
	quotes, _ := args.Get(0).([]integration.FreightQuote)
	return quotes, args.Error(1)
}

func (m *mockOrders) Tracking(ctx context.Context, trackingNumber string) (*integration.TrackingInfo, error) {
	args := m.Called(ctx, trackingNumber)
	info, _ := args.Get(0).(*integration.TrackingInfo)
	return info, args.Error(1)
}

type mockJobs struct{ mock.Mock }

func (m *mockJobs) Jobs() []string {
	return m.Called().Get(0).([]string)
}

func (m *mockJobs) Trigger(name string) (scheduler.JobRun, error) {
	args := m.Called(name)
	return args.Get(0).(scheduler.JobRun), args.Error(1)
}

func (m *mockJobs) History(job string, limit int) []scheduler.JobRun {
	return m.Called(job, limit).Get(0).([]scheduler.JobRun)
}

var (
	_ NotificationReceiver           = (*mockReceiver)(nil)
	_ MappingService                 = (*mockMappingService)(nil)
	_ CatalogQuerier                 = (*mockCatalog)(nil)
	_ ProductImporter                = (*mockImporter)(nil)
	_ StockRefresher                 = (*mockStockRefresher)(nil)
	_ integration.WebhookGateway     = (*mockWebhookGateway)(nil)
	_ CacheAdmin                     = (*mockCacheAdmin)(nil)
	_ SourcingService                = (*mockSourcing)(nil)
	_ NotificationLogReader          = (*mockLogReader)(nil)
	_ catalog.ChangeNoticeRepository = (*mockNoticeRepo)(nil)
	_ OrderPlacer                    = (*mockOrders)(nil)
	_ JobRunner                      = (*mockJobs)(nil)
)

var (
	_ NotificationReceiver  = (*catalogsync.Dispatcher)(nil)
	_ NotificationLogReader = (*catalogsync.Dispatcher)(nil)
	_ MappingService        = (*catalogsync.Materializer)(nil)
	_ CatalogQuerier        = (*catalogsync.CatalogReader)(nil)
	_ ProductImporter       = (*catalogsync.Importer)(nil)
	_ StockRefresher        = (*catalogsync.StockResyncer)(nil)
	_ SourcingService       = (*catalogsync.SourcingReconciler)(nil)
	_ OrderPlacer           = (*catalogsync.OrderService)(nil)
	_ CacheAdmin            = (*cache.CatalogCache)(nil)
	_ JobRunner             = (*scheduler.Scheduler)(nil)
)
