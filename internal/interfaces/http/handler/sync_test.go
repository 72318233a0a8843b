package handler

import (
	"bufio"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/catalogsync/backend/internal/application/catalogsync"
	"github.com/catalogsync/backend/internal/domain/catalog"
	"github.com/catalogsync/backend/internal/interfaces/http/dto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type sseEvent struct {
	name string
	data string
}

func parseSSE(t *testing.T, body string) []sseEvent {
	t.Helper()
	var (
		events []sseEvent
		cur    sseEvent
	)
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if cur.name != "" || cur.data != "" {
				events = append(events, cur)
			}
			cur = sseEvent{}
		case strings.HasPrefix(line, "event:"):
			cur.name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			cur.data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
	require.NoError(t, sc.Err())
	return events
}

func TestSyncHandler_ListMappings(t *testing.T) {
	svc := new(mockMappingService)
	svc.On("ListMappings", mock.Anything).Return([]catalog.CategoryMapping{
		{ID: uuid.New(), SupplierID: "cj", ExternalCategory: "Phones", InternalCategoryID: uuid.New(), UpdatedAt: time.Now()},
	}, nil)
	r := newTestRouter(NewSyncHandler(svc, "cj", nil))

	w := performRequest(r, http.MethodGet, "/api/v1/sync/mappings", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 1, resp.Meta.Count)
	rows := resp.Data.([]any)
	assert.Equal(t, "Phones", rows[0].(map[string]any)["externalCategory"])
}

func TestSyncHandler_SaveMapping(t *testing.T) {
	internal := uuid.New()

	t.Run("defaults the supplier and returns the materialization", func(t *testing.T) {
		svc := new(mockMappingService)
		mapping := &catalog.CategoryMapping{ID: uuid.New(), SupplierID: "cj", ExternalCategory: "Phones", InternalCategoryID: internal}
		svc.On("SaveMapping", mock.Anything, "cj", "Phones", internal).
			Return(mapping, &catalogsync.MaterializeResult{MappingID: mapping.ID, Created: 3}, nil)
		r := newTestRouter(NewSyncHandler(svc, "cj", nil))

		w := performRequest(r, http.MethodPost, "/api/v1/sync/mappings", dto.SaveMappingRequest{
			ExternalCategory:   "Phones",
			InternalCategoryID: internal.String(),
		})

		assert.Equal(t, http.StatusCreated, w.Code)
		data := decodeResponse(t, w).Data.(map[string]any)
		assert.Equal(t, float64(3), data["materialize"].(map[string]any)["created"])
		assert.Equal(t, "Phones", data["mapping"].(map[string]any)["externalCategory"])
		svc.AssertExpectations(t)
	})

	t.Run("rejects a malformed category id", func(t *testing.T) {
		svc := new(mockMappingService)
		r := newTestRouter(NewSyncHandler(svc, "cj", nil))

		w := performRequest(r, http.MethodPost, "/api/v1/sync/mappings", `{"externalCategory":"Phones","internalCategoryId":"nope"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "internalCategoryId", resp.Error.Details[0].Field)
		svc.AssertNotCalled(t, "SaveMapping")
	})

	t.Run("domain validation failure maps to 400", func(t *testing.T) {
		svc := new(mockMappingService)
		svc.On("SaveMapping", mock.Anything, "other", "Phones", internal).Return(nil, nil, catalog.ErrMappingInvalid)
		r := newTestRouter(NewSyncHandler(svc, "cj", nil))

		w := performRequest(r, http.MethodPost, "/api/v1/sync/mappings", dto.SaveMappingRequest{
			SupplierID:         "other",
			ExternalCategory:   "Phones",
			InternalCategoryID: internal.String(),
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidInput, decodeResponse(t, w).Error.Code)
	})
}

func TestSyncHandler_ListUnmapped(t *testing.T) {
	svc := new(mockMappingService)
	svc.On("ListUnmapped", mock.Anything, "cj").Return([]catalog.UnmappedCategory{
		{SupplierID: "cj", ExternalCategory: "Drones", SeenCount: 4},
	}, nil)
	svc.On("ListUnmapped", mock.Anything, "acme").Return([]catalog.UnmappedCategory{}, nil)
	r := newTestRouter(NewSyncHandler(svc, "cj", nil))

	w := performRequest(r, http.MethodGet, "/api/v1/sync/unmapped", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decodeResponse(t, w).Meta.Count)

	w = performRequest(r, http.MethodGet, "/api/v1/sync/unmapped?supplierId=acme", nil)
	assert.Equal(t, 0, decodeResponse(t, w).Meta.Count)
	svc.AssertExpectations(t)
}

func TestSyncHandler_RunSync(t *testing.T) {
	svc := new(mockMappingService)
	svc.On("SyncAllMappings", mock.Anything, false).Return(&catalogsync.SyncSummary{Mappings: 2, Created: 5}, nil)
	r := newTestRouter(NewSyncHandler(svc, "cj", nil))

	w := performRequest(r, http.MethodPost, "/api/v1/sync/run", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w).Data.(map[string]any)
	assert.Equal(t, float64(2), data["mappings"])
	assert.Equal(t, float64(5), data["created"])
}

func TestSyncHandler_StreamSync(t *testing.T) {
	t.Run("progress then complete", func(t *testing.T) {
		svc := &mockMappingService{events: []catalogsync.SyncProgress{
			{Index: 1, Total: 2, ExternalCategory: "Phones", Result: &catalogsync.MaterializeResult{Created: 2}},
			{Index: 2, Total: 2, ExternalCategory: "Cases", Error: "load staged entries: boom"},
		}}
		svc.On("SyncAllMappings", mock.Anything, true).Return(&catalogsync.SyncSummary{Mappings: 2, Created: 2}, nil)
		r := newTestRouter(NewSyncHandler(svc, "cj", nil))

		w := performRequest(r, http.MethodGet, "/api/v1/sync/run/stream", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
		events := parseSSE(t, w.Body.String())
		require.Len(t, events, 4)
		assert.Equal(t, SyncEventStarted, events[0].name)
		assert.Equal(t, SyncEventProgress, events[1].name)
		assert.Contains(t, events[1].data, `"externalCategory":"Phones"`)
		assert.Contains(t, events[2].data, `"error":"load staged entries: boom"`)
		assert.Equal(t, SyncEventComplete, events[3].name)
		assert.Contains(t, events[3].data, `"mappings":2`)
	})

	t.Run("failure ends with an error event", func(t *testing.T) {
		svc := new(mockMappingService)
		svc.On("SyncAllMappings", mock.Anything, true).Return(nil, errors.New("database unavailable"))
		r := newTestRouter(NewSyncHandler(svc, "cj", nil))

		w := performRequest(r, http.MethodGet, "/api/v1/sync/run/stream", nil)

		events := parseSSE(t, w.Body.String())
		require.Len(t, events, 2)
		assert.Equal(t, SyncEventError, events[1].name)
		assert.Contains(t, events[1].data, "database unavailable")
	})
}
