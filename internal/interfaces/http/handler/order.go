package handler

import (
	"context"

	"github.com/catalogsync/backend/internal/domain/integration"
	"github.com/catalogsync/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// OrderPlacer places and follows supplier orders
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req integration.OrderRequest) (*integration.OrderMapping, error)
	RefreshOrder(ctx context.Context, orderNumber string) (*integration.OrderMapping, error)
	Freight(ctx context.Context, req integration.FreightRequest) ([]integration.FreightQuote, error)
	Tracking(ctx context.Context, trackingNumber string) (*integration.TrackingInfo, error)
}

// OrderHandler exposes supplier order placement
type OrderHandler struct {
	BaseHandler
	orders OrderPlacer
}

// NewOrderHandler creates an OrderHandler
func NewOrderHandler(orders OrderPlacer) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// Place godoc
// @ID           placeOrder
// @Summary      Place order
// @Description  Forwards a local order to the supplier
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        request body dto.PlaceOrderRequest true "Request body"
// @Success      201 {object} dto.Response{data=dto.OrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /orders [post]
func (h *OrderHandler) Place(c *gin.Context) {
	var req dto.PlaceOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}
	m, err := h.orders.PlaceOrder(c.Request.Context(), req.ToDomain())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.ToOrderResponse(m))
}

// Refresh godoc
// @ID           refreshOrder
// @Summary      Refresh order
// @Description  Pulls the current supplier status of an order
// @Tags         orders
// @Produce      json
// @Param        orderNumber    path   string  true  "Local order number"
// @Success      200 {object} dto.Response{data=dto.OrderResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /orders/{orderNumber}/refresh [post]
func (h *OrderHandler) Refresh(c *gin.Context) {
	m, err := h.orders.RefreshOrder(c.Request.Context(), c.Param("orderNumber"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToOrderResponse(m))
}

// Freight godoc
// @ID           quoteFreight
// @Summary      Quote freight
// @Description  Shipping options and cost for a set of variants
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        request body dto.FreightQuoteRequest true "Request body"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /orders/freight [post]
func (h *OrderHandler) Freight(c *gin.Context) {
	var req dto.FreightQuoteRequest
	if !h.BindJSON(c, &req) {
		return
	}
	quotes, err := h.orders.Freight(c.Request.Context(), req.ToDomain())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, quotes, len(quotes), 0)
}

// Tracking godoc
// @ID           getOrderTracking
// @Summary      Get tracking
// @Description  Carrier tracking events of a shipment
// @Tags         orders
// @Produce      json
// @Param        trackingNumber path   string  true  "Tracking number"
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /orders/tracking/{trackingNumber} [get]
func (h *OrderHandler) Tracking(c *gin.Context) {
	info, err := h.orders.Tracking(c.Request.Context(), c.Param("trackingNumber"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, info)
}

// RegisterRoutes mounts the order endpoints
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/orders")
	g.POST("", h.Place)
	g.POST("/freight", h.Freight)
	g.GET("/tracking/:trackingNumber", h.Tracking)
	g.POST("/:orderNumber/refresh", h.Refresh)
}
