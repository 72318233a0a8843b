package handler

import (
	"context"

	"github.com/catalogsync/backend/internal/application/catalogsync"
	"github.com/catalogsync/backend/internal/domain/integration"
	"github.com/catalogsync/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CatalogQuerier reads the supplier catalog through the cache
type CatalogQuerier interface {
	Categories(ctx context.Context) ([]integration.Category, error)
	CategoryPath(ctx context.Context, categoryID string) ([]integration.Category, error)
	Search(ctx context.Context, q integration.SearchQuery) (*integration.SearchPage, error)
	Product(ctx context.Context, externalProductID string) (*integration.ProductDetail, error)
	VariantStock(ctx context.Context, externalProductID, externalVariantID, countryCode string) ([]integration.VariantStock, error)
	ProductStock(ctx context.Context, externalProductID, countryCode string) ([]integration.VariantStock, error)
	TestConnection(ctx context.Context) *catalogsync.ConnectionReport
}

// ProductImporter is the polling import path
type ProductImporter interface {
	StageProducts(ctx context.Context, q integration.SearchQuery, maxPages int) (*catalogsync.StageResult, error)
	ImportProduct(ctx context.Context, externalProductID string) (*catalogsync.ImportResult, error)
}

// StockRefresher refreshes local stock of one product
type StockRefresher interface {
	ResyncProduct(ctx context.Context, productID uuid.UUID) (*catalogsync.ResyncResult, error)
}

const defaultStagePages = 5

// SupplierHandler exposes supplier catalog reads, imports and webhook registration
type SupplierHandler struct {
	BaseHandler
	catalog  CatalogQuerier
	importer ProductImporter
	stock    StockRefresher
	webhooks integration.WebhookGateway
	logger   *zap.Logger
}

// NewSupplierHandler creates a SupplierHandler
func NewSupplierHandler(
	catalog CatalogQuerier,
	importer ProductImporter,
	stock StockRefresher,
	webhooks integration.WebhookGateway,
	logger *zap.Logger,
) *SupplierHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SupplierHandler{catalog: catalog, importer: importer, stock: stock, webhooks: webhooks, logger: logger}
}

// TestConnection godoc
// @ID           getSupplierConnection
// @Summary      Test supplier connection
// @Description  Authenticates against the supplier and reports tier, quota and latency
// @Tags         supplier
// @Produce      json
// @Success      200 {object} dto.Response
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /supplier/connection [get]
func (h *SupplierHandler) TestConnection(c *gin.Context) {
	h.Success(c, h.catalog.TestConnection(c.Request.Context()))
}

// Categories godoc
// @ID           listSupplierCategories
// @Summary      List supplier categories
// @Description  Returns the supplier category tree, cached
// @Tags         supplier
// @Produce      json
// @Success      200 {object} dto.Response
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /supplier/categories [get]
func (h *SupplierHandler) Categories(c *gin.Context) {
	cats, err := h.catalog.Categories(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, cats, len(cats), 0)
}

// CategoryPath godoc
// @ID           getSupplierCategoryPath
// @Summary      Get category path
// @Description  Resolves a supplier category id to its full path name
// @Tags         supplier
// @Produce      json
// @Param        id             path   string  true  "Supplier category ID"
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /supplier/categories/{id}/path [get]
func (h *SupplierHandler) CategoryPath(c *gin.Context) {
	path, err := h.catalog.CategoryPath(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, path)
}

// Search godoc
// @ID           searchSupplierProducts
// @Summary      Search supplier products
// @Description  One page of the supplier product listing
// @Tags         supplier
// @Produce      json
// @Param        keyword        query  string  false "Keyword"
// @Param        categoryId     query  string  false "Supplier category ID"
// @Param        countryCode    query  string  false "Ship-from country code"
// @Param        minPrice       query  string  false "Minimum price"
// @Param        maxPrice       query  string  false "Maximum price"
// @Param        pageNum        query  integer false "Page number"
// @Param        pageSize       query  integer false "Page size"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /supplier/products [get]
func (h *SupplierHandler) Search(c *gin.Context) {
	var req dto.SearchRequest
	if !h.BindQuery(c, &req) {
		return
	}
	page, err := h.catalog.Search(c.Request.Context(), req.ToQuery())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, page)
}

// Product godoc
// @ID           getSupplierProduct
// @Summary      Get supplier product
// @Description  Full product detail including variants
// @Tags         supplier
// @Produce      json
// @Param        pid            path   string  true  "Supplier product ID"
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /supplier/products/{pid} [get]
func (h *SupplierHandler) Product(c *gin.Context) {
	detail, err := h.catalog.Product(c.Request.Context(), c.Param("pid"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, detail)
}

// Stock godoc
// @ID           getSupplierProductStock
// @Summary      Get supplier stock
// @Description  Warehouse stock of a product, or of one variant when vid is given
// @Tags         supplier
// @Produce      json
// @Param        pid            path   string  true  "Supplier product ID"
// @Param        vid            query  string  false "Supplier variant ID"
// @Param        countryCode    query  string  false "Warehouse country code"
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /supplier/products/{pid}/stock [get]
func (h *SupplierHandler) Stock(c *gin.Context) {
	ctx := c.Request.Context()
	pid := c.Param("pid")
	country := c.Query("countryCode")

	var (
		rows []integration.VariantStock
		err  error
	)
	if vid := c.Query("vid"); vid != "" {
		rows, err = h.catalog.VariantStock(ctx, pid, vid, country)
	} else {
		rows, err = h.catalog.ProductStock(ctx, pid, country)
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, rows, len(rows), 0)
}

// Import godoc
// @ID           importSupplierProduct
// @Summary      Import product
// @Description  Imports or updates one supplier product into the local catalog
// @Tags         supplier
// @Produce      json
// @Param        pid            path   string  true  "Supplier product ID"
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /supplier/products/{pid}/import [post]
func (h *SupplierHandler) Import(c *gin.Context) {
	res, err := h.importer.ImportProduct(c.Request.Context(), c.Param("pid"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// Stage godoc
// @ID           stageSupplierProducts
// @Summary      Stage products
// @Description  Pages through a supplier listing and stages unseen products for review
// @Tags         supplier
// @Accept       json
// @Produce      json
// @Param        request body dto.StageRequest true "Request body"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /supplier/stage [post]
func (h *SupplierHandler) Stage(c *gin.Context) {
	var req dto.StageRequest
	if !h.BindJSON(c, &req) {
		return
	}
	maxPages := req.MaxPages
	if maxPages == 0 {
		maxPages = defaultStagePages
	}
	res, err := h.importer.StageProducts(c.Request.Context(), req.ToQuery(), maxPages)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// RegisterWebhook godoc
// @ID           registerSupplierWebhook
// @Summary      Register webhook
// @Description  Enables or cancels supplier change notifications to a callback URL
// @Tags         supplier
// @Accept       json
// @Produce      json
// @Param        request body dto.WebhookRegistrationRequest true "Request body"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /supplier/webhook [post]
func (h *SupplierHandler) RegisterWebhook(c *gin.Context) {
	var req dto.WebhookRegistrationRequest
	if !h.BindJSON(c, &req) {
		return
	}
	action := integration.WebhookAction(req.Action)
	if err := h.webhooks.RegisterWebhook(c.Request.Context(), action, req.CallbackURL); err != nil {
		h.HandleError(c, err)
		return
	}
	h.logger.Info("supplier webhook registration changed",
		zap.String("action", req.Action),
		zap.String("callback_url", req.CallbackURL),
	)
	h.Success(c, gin.H{"action": req.Action, "callbackUrl": req.CallbackURL})
}

// ResyncStock godoc
// @ID           resyncCatalogProductStock
// @Summary      Resync product stock
// @Description  Refreshes local stock of every variant of a catalog product from the supplier
// @Tags         catalog
// @Produce      json
// @Param        id             path   string  true  "Catalog product ID"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /catalog/products/{id}/stock/resync [post]
func (h *SupplierHandler) ResyncStock(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	res, err := h.stock.ResyncProduct(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// RegisterRoutes mounts the supplier endpoints
func (h *SupplierHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/supplier")
	g.GET("/connection", h.TestConnection)
	g.GET("/categories", h.Categories)
	g.GET("/categories/:id/path", h.CategoryPath)
	g.GET("/products", h.Search)
	g.GET("/products/:pid", h.Product)
	g.GET("/products/:pid/stock", h.Stock)
	g.POST("/products/:pid/import", h.Import)
	g.POST("/stage", h.Stage)
	g.POST("/webhook", h.RegisterWebhook)

	rg.POST("/catalog/products/:id/stock/resync", h.ResyncStock)
}
