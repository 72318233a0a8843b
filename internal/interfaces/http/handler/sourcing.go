package handler

import (
	"context"

	"github.com/catalogsync/backend/internal/application/catalogsync"
	"github.com/catalogsync/backend/internal/domain/integration"
	"github.com/catalogsync/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// SourcingService submits and tracks supplier sourcing requests
type SourcingService interface {
	Submit(ctx context.Context, sub integration.SourcingSubmission) (*integration.SourcingRequest, error)
	Reconcile(ctx context.Context) (*catalogsync.ReconcileResult, error)
	Get(ctx context.Context, sourcingID string) (*integration.SourcingRequest, error)
}

// SourcingHandler exposes sourcing requests
type SourcingHandler struct {
	BaseHandler
	sourcing SourcingService
}

// NewSourcingHandler creates a SourcingHandler
func NewSourcingHandler(sourcing SourcingService) *SourcingHandler {
	return &SourcingHandler{sourcing: sourcing}
}

// Submit godoc
// @ID           submitSourcing
// @Summary      Submit sourcing request
// @Description  Asks the supplier to source a product it does not list
// @Tags         sourcing
// @Accept       json
// @Produce      json
// @Param        request body dto.SourcingRequest true "Request body"
// @Success      201 {object} dto.Response{data=dto.SourcingResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /sourcing [post]
func (h *SourcingHandler) Submit(c *gin.Context) {
	var req dto.SourcingRequest
	if !h.BindJSON(c, &req) {
		return
	}
	created, err := h.sourcing.Submit(c.Request.Context(), req.ToSubmission())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.ToSourcingResponse(created))
}

// Get godoc
// @ID           getSourcing
// @Summary      Get sourcing request
// @Tags         sourcing
// @Produce      json
// @Param        id             path   string  true  "Sourcing request ID"
// @Success      200 {object} dto.Response{data=dto.SourcingResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /sourcing/{id} [get]
func (h *SourcingHandler) Get(c *gin.Context) {
	req, err := h.sourcing.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToSourcingResponse(req))
}

// Reconcile godoc
// @ID           reconcileSourcing
// @Summary      Reconcile sourcing requests
// @Description  Polls the supplier for every pending sourcing request
// @Tags         sourcing
// @Produce      json
// @Success      200 {object} dto.Response
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /sourcing/reconcile [post]
func (h *SourcingHandler) Reconcile(c *gin.Context) {
	res, err := h.sourcing.Reconcile(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// RegisterRoutes mounts the sourcing endpoints
func (h *SourcingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/sourcing")
	g.POST("", h.Submit)
	g.POST("/reconcile", h.Reconcile)
	g.GET("/:id", h.Get)
}
