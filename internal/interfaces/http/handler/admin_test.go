package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/catalogsync/backend/internal/application/catalogsync"
	"github.com/catalogsync/backend/internal/domain/catalog"
	"github.com/catalogsync/backend/internal/domain/integration"
	"github.com/catalogsync/backend/internal/infrastructure/cache"
	"github.com/catalogsync/backend/internal/infrastructure/scheduler"
	"github.com/catalogsync/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCacheHandler(t *testing.T) {
	c := new(mockCacheAdmin)
	c.On("Stats").Return([]cache.Stats{
		{Name: cache.SearchCacheName, TTL: 5 * time.Minute, Hits: 3, Misses: 1, Entries: 2},
		{Name: cache.StockCacheName, TTL: 2 * time.Minute},
	})
	c.On("InvalidateAll", mock.Anything).Return()
	c.On("InvalidateProduct", mock.Anything, "P-1").Return()
	c.On("Sweep").Return(4)
	r := newTestRouter(NewCacheHandler(c))

	w := performRequest(r, http.MethodGet, "/api/v1/cache/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	rows := decodeResponse(t, w).Data.([]any)
	require.Len(t, rows, 2)
	first := rows[0].(map[string]any)
	assert.Equal(t, "5m0s", first["ttl"])
	assert.Equal(t, 0.75, first["hitRatio"])
	assert.Equal(t, float64(0), rows[1].(map[string]any)["hitRatio"])

	w = performRequest(r, http.MethodDelete, "/api/v1/cache", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = performRequest(r, http.MethodDelete, "/api/v1/cache/products/P-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = performRequest(r, http.MethodPost, "/api/v1/cache/sweep", nil)
	assert.Equal(t, float64(4), decodeResponse(t, w).Data.(map[string]any)["removed"])

	c.AssertExpectations(t)
}

func TestSourcingHandler(t *testing.T) {
	t.Run("submit", func(t *testing.T) {
		s := new(mockSourcing)
		sub := integration.SourcingSubmission{ProductURL: "https://example.com/item/1"}
		s.On("Submit", mock.Anything, sub).Return(&integration.SourcingRequest{
			ID: uuid.New(), SourcingID: "S-1", ProductURL: sub.ProductURL, Status: integration.SourcingPending,
		}, nil)
		r := newTestRouter(NewSourcingHandler(s))

		w := performRequest(r, http.MethodPost, "/api/v1/sourcing", dto.SourcingRequest{ProductURL: sub.ProductURL})

		assert.Equal(t, http.StatusCreated, w.Code)
		data := decodeResponse(t, w).Data.(map[string]any)
		assert.Equal(t, "S-1", data["sourcingId"])
		assert.Equal(t, "pending", data["status"])
	})

	t.Run("submit without url or name", func(t *testing.T) {
		s := new(mockSourcing)
		s.On("Submit", mock.Anything, integration.SourcingSubmission{}).Return(nil, integration.ErrSourcingInvalidRequest)
		r := newTestRouter(NewSourcingHandler(s))

		w := performRequest(r, http.MethodPost, "/api/v1/sourcing", `{}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("get unknown", func(t *testing.T) {
		s := new(mockSourcing)
		s.On("Get", mock.Anything, "S-404").Return(nil, integration.ErrSourcingNotFound)
		r := newTestRouter(NewSourcingHandler(s))

		w := performRequest(r, http.MethodGet, "/api/v1/sourcing/S-404", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("reconcile", func(t *testing.T) {
		s := new(mockSourcing)
		s.On("Reconcile", mock.Anything).Return(&catalogsync.ReconcileResult{Checked: 3, Changed: 1}, nil)
		r := newTestRouter(NewSourcingHandler(s))

		w := performRequest(r, http.MethodPost, "/api/v1/sourcing/reconcile", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(1), decodeResponse(t, w).Data.(map[string]any)["changed"])
	})
}

func TestNotificationHandler(t *testing.T) {
	now := time.Now()

	t.Run("recent logs filter by status", func(t *testing.T) {
		logs := new(mockLogReader)
		logs.On("RecentLogs", mock.Anything, integration.NotificationLogError, 10).Return([]integration.NotificationLog{
			{MessageID: "m-1", Type: integration.NotificationVariant, Status: integration.NotificationLogError, ErrorMessage: "parent missing", Payload: `{"secret":1}`, ReceivedAt: now},
		}, nil)
		r := newTestRouter(NewNotificationHandler(logs, new(mockNoticeRepo)))

		w := performRequest(r, http.MethodGet, "/api/v1/notifications/logs?status=error&limit=10", nil)

		require.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, 10, resp.Meta.Limit)
		row := resp.Data.([]any)[0].(map[string]any)
		assert.Equal(t, "parent missing", row["error"])
		assert.NotContains(t, w.Body.String(), "secret")
	})

	t.Run("limit is bounded", func(t *testing.T) {
		r := newTestRouter(NewNotificationHandler(new(mockLogReader), new(mockNoticeRepo)))

		w := performRequest(r, http.MethodGet, "/api/v1/notifications/logs?limit=5000", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("log by message id", func(t *testing.T) {
		logs := new(mockLogReader)
		logs.On("FindLog", mock.Anything, "m-1").Return(&integration.NotificationLog{MessageID: "m-1", Status: integration.NotificationLogProcessed}, nil)
		logs.On("FindLog", mock.Anything, "m-2").Return(nil, integration.ErrNotificationLogNotFound)
		r := newTestRouter(NewNotificationHandler(logs, new(mockNoticeRepo)))

		w := performRequest(r, http.MethodGet, "/api/v1/notifications/logs/m-1", nil)
		assert.Equal(t, "PROCESSED", decodeResponse(t, w).Data.(map[string]any)["status"])

		w = performRequest(r, http.MethodGet, "/api/v1/notifications/logs/m-2", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("notices use the default limit", func(t *testing.T) {
		notices := new(mockNoticeRepo)
		notices.On("FindRecent", mock.Anything, defaultListLimit).Return([]catalog.ChangeNotice{
			{ID: uuid.New(), ProductID: uuid.New(), Title: "Phone case", Changes: []string{"price"}, CreatedAt: now},
		}, nil)
		r := newTestRouter(NewNotificationHandler(new(mockLogReader), notices))

		w := performRequest(r, http.MethodGet, "/api/v1/notifications/notices", nil)

		assert.Equal(t, 1, decodeResponse(t, w).Meta.Count)
		notices.AssertExpectations(t)
	})
}

func TestOrderHandler(t *testing.T) {
	placeBody := dto.PlaceOrderRequest{
		OrderNumber:  "SO-1",
		CountryCode:  "US",
		City:         "Austin",
		Address:      "1 Main St",
		CustomerName: "Sam Doe",
		LogisticName: "USPS",
		Lines:        []dto.OrderLineRequest{{VariantID: "V-1", Quantity: 2}},
	}

	t.Run("place", func(t *testing.T) {
		o := new(mockOrders)
		o.On("PlaceOrder", mock.Anything, placeBody.ToDomain()).Return(&integration.OrderMapping{
			ID: uuid.New(), LocalOrderNumber: "SO-1", SupplierOrderID: "CJ-9", Status: integration.OrderStatusPending,
		}, nil)
		r := newTestRouter(NewOrderHandler(o))

		w := performRequest(r, http.MethodPost, "/api/v1/orders", placeBody)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "CJ-9", decodeResponse(t, w).Data.(map[string]any)["supplierOrderId"])
		o.AssertExpectations(t)
	})

	t.Run("place without lines", func(t *testing.T) {
		o := new(mockOrders)
		r := newTestRouter(NewOrderHandler(o))
		body := placeBody
		body.Lines = nil

		w := performRequest(r, http.MethodPost, "/api/v1/orders", body)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		o.AssertNotCalled(t, "PlaceOrder")
	})

	t.Run("supplier down", func(t *testing.T) {
		o := new(mockOrders)
		o.On("PlaceOrder", mock.Anything, mock.Anything).Return(nil, integration.ErrSupplierUnavailable)
		r := newTestRouter(NewOrderHandler(o))

		w := performRequest(r, http.MethodPost, "/api/v1/orders", placeBody)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("refresh unknown", func(t *testing.T) {
		o := new(mockOrders)
		o.On("RefreshOrder", mock.Anything, "SO-404").Return(nil, integration.ErrOrderMappingNotFound)
		r := newTestRouter(NewOrderHandler(o))

		w := performRequest(r, http.MethodPost, "/api/v1/orders/SO-404/refresh", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("freight", func(t *testing.T) {
		o := new(mockOrders)
		o.On("Freight", mock.Anything, mock.Anything).Return([]integration.FreightQuote{
			{LogisticName: "USPS", Price: decimal.NewFromInt(4)},
			{LogisticName: "DHL", Price: decimal.NewFromInt(11)},
		}, nil)
		r := newTestRouter(NewOrderHandler(o))

		w := performRequest(r, http.MethodPost, "/api/v1/orders/freight", dto.FreightQuoteRequest{
			StartCountryCode: "CN", EndCountryCode: "US",
			Lines: []dto.OrderLineRequest{{VariantID: "V-1", Quantity: 1}},
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 2, decodeResponse(t, w).Meta.Count)
	})

	t.Run("tracking", func(t *testing.T) {
		o := new(mockOrders)
		o.On("Tracking", mock.Anything, "TN-1").Return(&integration.TrackingInfo{TrackingNumber: "TN-1", Status: "in transit"}, nil)
		r := newTestRouter(NewOrderHandler(o))

		w := performRequest(r, http.MethodGet, "/api/v1/orders/tracking/TN-1", nil)

		assert.Equal(t, "in transit", decodeResponse(t, w).Data.(map[string]any)["status"])
	})
}

func TestSchedulerHandler(t *testing.T) {
	t.Run("jobs and history", func(t *testing.T) {
		j := new(mockJobs)
		j.On("Jobs").Return([]string{catalogsync.JobMappingSync, catalogsync.JobSourcingReconcile})
		j.On("History", catalogsync.JobMappingSync, 5).Return([]scheduler.JobRun{
			{ID: uuid.New(), Job: catalogsync.JobMappingSync, Status: scheduler.RunStatusSuccess},
		})
		r := newTestRouter(NewSchedulerHandler(j))

		w := performRequest(r, http.MethodGet, "/api/v1/scheduler/jobs", nil)
		assert.Equal(t, 2, decodeResponse(t, w).Meta.Count)

		w = performRequest(r, http.MethodGet, "/api/v1/scheduler/runs?job=mapping_sync&limit=5", nil)
		assert.Equal(t, 1, decodeResponse(t, w).Meta.Count)

		w = performRequest(r, http.MethodGet, "/api/v1/scheduler/runs?limit=0", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("trigger", func(t *testing.T) {
		j := new(mockJobs)
		j.On("Trigger", catalogsync.JobSourcingReconcile).Return(scheduler.JobRun{
			ID: uuid.New(), Job: catalogsync.JobSourcingReconcile, Trigger: scheduler.TriggerManual, Status: scheduler.RunStatusRunning,
		}, nil)
		j.On("Trigger", catalogsync.JobMappingSync).Return(scheduler.JobRun{}, scheduler.ErrJobAlreadyRunning)
		j.On("Trigger", "nope").Return(scheduler.JobRun{}, scheduler.ErrJobNotFound)
		r := newTestRouter(NewSchedulerHandler(j))

		w := performRequest(r, http.MethodPost, "/api/v1/scheduler/jobs/sourcing_reconcile/trigger", nil)
		assert.Equal(t, http.StatusAccepted, w.Code)

		w = performRequest(r, http.MethodPost, "/api/v1/scheduler/jobs/mapping_sync/trigger", nil)
		assert.Equal(t, http.StatusConflict, w.Code)

		w = performRequest(r, http.MethodPost, "/api/v1/scheduler/jobs/nope/trigger", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

type stubPinger struct{ err error }

func (p stubPinger) PingContext(_ context.Context) error { return p.err }

func TestSystemHandler(t *testing.T) {
	h := NewSystemHandler("catalog-sync", "1.2.0", stubPinger{}, func() int64 { return 3 })

	w := performRequest(newTestRouter(h), http.MethodGet, "/api/v1/system/info", nil)
	data := decodeResponse(t, w).Data.(map[string]any)
	assert.Equal(t, "catalog-sync", data["name"])
	assert.Equal(t, float64(3), data["in_flight_notifications"])

	w = performRequest(newTestRouter(h), http.MethodGet, "/api/v1/system/ping", nil)
	assert.Equal(t, "pong", decodeResponse(t, w).Data.(map[string]any)["message"])
}

func TestSystemHandler_Health(t *testing.T) {
	healthy := NewSystemHandler("catalog-sync", "1.2.0", stubPinger{}, nil)
	w := performRequest(healthRouter(healthy), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	down := NewSystemHandler("catalog-sync", "1.2.0", stubPinger{err: errors.New("dial tcp: refused")}, nil)
	w = performRequest(healthRouter(down), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "unhealthy")
}

func healthRouter(h *SystemHandler) *gin.Engine {
	r := gin.New()
	r.GET("/health", h.Health)
	return r
}
