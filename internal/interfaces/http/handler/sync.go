package handler

import (
	"context"
	"net/http"

	"github.com/catalogsync/backend/internal/application/catalogsync"
	"github.com/catalogsync/backend/internal/domain/catalog"
	"github.com/catalogsync/backend/internal/interfaces/http/dto"
	"github.com/catalogsync/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// MappingService manages category mappings and their materialization
type MappingService interface {
	SaveMapping(ctx context.Context, supplierID, externalCategory string, internalCategoryID uuid.UUID) (*catalog.CategoryMapping, *catalogsync.MaterializeResult, error)
	ListMappings(ctx context.Context) ([]catalog.CategoryMapping, error)
	ListUnmapped(ctx context.Context, supplierID string) ([]catalog.UnmappedCategory, error)
	SyncAllMappings(ctx context.Context, progress chan<- catalogsync.SyncProgress) (*catalogsync.SyncSummary, error)
}

// SSE event names of the sync-all stream
const (
	SyncEventStarted  = "started"
	SyncEventProgress = "progress"
	SyncEventComplete = "complete"
	SyncEventError    = "error"
)

const syncProgressBuffer = 16

// SyncHandler exposes category mappings and the sync-all run
type SyncHandler struct {
	BaseHandler
	mappings   MappingService
	supplierID string
	logger     *zap.Logger
}

// NewSyncHandler creates a SyncHandler. supplierID is the default for
// requests that do not name one.
func NewSyncHandler(mappings MappingService, supplierID string, logger *zap.Logger) *SyncHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncHandler{mappings: mappings, supplierID: supplierID, logger: logger}
}

// SaveMappingResponse is a saved mapping and the materialization it triggered
type SaveMappingResponse struct {
	Mapping     dto.MappingResponse            `json:"mapping"`
	Materialize *catalogsync.MaterializeResult `json:"materialize,omitempty"`
}

// ListMappings godoc
// @ID           listSyncMappings
// @Summary      List category mappings
// @Tags         sync
// @Produce      json
// @Success      200 {object} dto.Response{data=[]dto.MappingResponse}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /sync/mappings [get]
func (h *SyncHandler) ListMappings(c *gin.Context) {
	mappings, err := h.mappings.ListMappings(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	out := lo.Map(mappings, func(m catalog.CategoryMapping, _ int) dto.MappingResponse {
		return dto.ToMappingResponse(m)
	})
	h.SuccessList(c, out, len(out), 0)
}

// SaveMapping godoc
// @ID           saveSyncMapping
// @Summary      Save category mapping
// @Description  Maps a supplier category to an internal one and materializes its products
// @Tags         sync
// @Accept       json
// @Produce      json
// @Param        request body dto.SaveMappingRequest true "Request body"
// @Success      201 {object} dto.Response{data=SaveMappingResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /sync/mappings [post]
func (h *SyncHandler) SaveMapping(c *gin.Context) {
	var req dto.SaveMappingRequest
	if !h.BindJSON(c, &req) {
		return
	}
	supplierID := lo.CoalesceOrEmpty(req.SupplierID, h.supplierID)

	mapping, result, err := h.mappings.SaveMapping(c.Request.Context(), supplierID, req.ExternalCategory, uuid.MustParse(req.InternalCategoryID))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, SaveMappingResponse{Mapping: dto.ToMappingResponse(*mapping), Materialize: result})
}

// ListUnmapped godoc
// @ID           listSyncUnmapped
// @Summary      List unmapped categories
// @Description  Supplier categories seen during import without a mapping
// @Tags         sync
// @Produce      json
// @Param        supplierId     query  string  false "Supplier ID"
// @Success      200 {object} dto.Response{data=[]dto.UnmappedResponse}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /sync/unmapped [get]
func (h *SyncHandler) ListUnmapped(c *gin.Context) {
	supplierID := c.DefaultQuery("supplierId", h.supplierID)
	rows, err := h.mappings.ListUnmapped(c.Request.Context(), supplierID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	out := lo.Map(rows, func(u catalog.UnmappedCategory, _ int) dto.UnmappedResponse {
		return dto.ToUnmappedResponse(u)
	})
	h.SuccessList(c, out, len(out), 0)
}

// RunSync godoc
// @ID           runSync
// @Summary      Run sync
// @Description  Materializes every mapping and returns the summary
// @Tags         sync
// @Produce      json
// @Success      200 {object} dto.Response
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /sync/run [post]
func (h *SyncHandler) RunSync(c *gin.Context) {
	summary, err := h.mappings.SyncAllMappings(c.Request.Context(), nil)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// StreamSync godoc
// @ID           streamSync
// @Summary      Stream sync
// @Description  The same run as POST /sync/run with per-mapping progress pushed as server-sent events
// @Tags         sync
// @Produce      text/event-stream
// @Success      200 {string} string "text/event-stream of started, progress, complete and error events"
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /sync/run/stream [get]
func (h *SyncHandler) StreamSync(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	type outcome struct {
		summary *catalogsync.SyncSummary
		err     error
	}
	ctx := c.Request.Context()
	progress := make(chan catalogsync.SyncProgress, syncProgressBuffer)
	done := make(chan outcome, 1)
	go func() {
		summary, err := h.mappings.SyncAllMappings(ctx, progress)
		done <- outcome{summary: summary, err: err}
	}()

	requestID := middleware.GetRequestID(c)
	c.SSEvent(SyncEventStarted, gin.H{"requestId": requestID})
	c.Writer.Flush()

	for ev := range progress {
		c.SSEvent(SyncEventProgress, ev)
		c.Writer.Flush()
	}

	out := <-done
	if out.err != nil {
		h.logger.Warn("sync-all stream ended with error",
			zap.String("request_id", requestID),
			zap.Error(out.err),
		)
		c.SSEvent(SyncEventError, gin.H{"message": out.err.Error(), "summary": out.summary})
	} else {
		c.SSEvent(SyncEventComplete, out.summary)
	}
	c.Writer.Flush()
}

// RegisterRoutes mounts the sync endpoints
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/sync")
	g.GET("/mappings", h.ListMappings)
	g.POST("/mappings", h.SaveMapping)
	g.GET("/unmapped", h.ListUnmapped)
	g.POST("/run", h.RunSync)
	g.GET("/run/stream", h.StreamSync)
}
