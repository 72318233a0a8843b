package handler

import (
	"context"
	"time"

	"github.com/catalogsync/backend/internal/infrastructure/cache"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

// CacheAdmin inspects and flushes the supplier read caches
type CacheAdmin interface {
	Stats() []cache.Stats
	InvalidateProduct(ctx context.Context, externalProductID string)
	InvalidateAll(ctx context.Context)
	Sweep() int
}

// CacheStatsResponse is the state of one named cache
type CacheStatsResponse struct {
	Name     string  `json:"name"`
	TTL      string  `json:"ttl"`
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	Entries  int     `json:"entries"`
	HitRatio float64 `json:"hitRatio"`
}

// CacheHandler exposes cache statistics and invalidation
type CacheHandler struct {
	BaseHandler
	cache CacheAdmin
}

// NewCacheHandler creates a CacheHandler
func NewCacheHandler(c CacheAdmin) *CacheHandler {
	return &CacheHandler{cache: c}
}

// Stats godoc
// @ID           getCacheStats
// @Summary      Get cache statistics
// @Tags         cache
// @Produce      json
// @Success      200 {object} dto.Response{data=[]CacheStatsResponse}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /cache/stats [get]
func (h *CacheHandler) Stats(c *gin.Context) {
	out := lo.Map(h.cache.Stats(), func(s cache.Stats, _ int) CacheStatsResponse {
		return CacheStatsResponse{
			Name:     s.Name,
			TTL:      s.TTL.Round(time.Second).String(),
			Hits:     s.Hits,
			Misses:   s.Misses,
			Entries:  s.Entries,
			HitRatio: s.HitRatio(),
		}
	})
	h.Success(c, out)
}

// InvalidateAll godoc
// @ID           invalidateCache
// @Summary      Invalidate all caches
// @Tags         cache
// @Produce      json
// @Success      200 {object} dto.Response
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /cache [delete]
func (h *CacheHandler) InvalidateAll(c *gin.Context) {
	h.cache.InvalidateAll(c.Request.Context())
	h.Success(c, gin.H{"invalidated": "all"})
}

// InvalidateProduct godoc
// @ID           invalidateCachedProduct
// @Summary      Invalidate cached product
// @Description  Drops cached detail and stock of one supplier product
// @Tags         cache
// @Produce      json
// @Param        pid            path   string  true  "Supplier product ID"
// @Success      200 {object} dto.Response
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /cache/products/{pid} [delete]
func (h *CacheHandler) InvalidateProduct(c *gin.Context) {
	pid := c.Param("pid")
	h.cache.InvalidateProduct(c.Request.Context(), pid)
	h.Success(c, gin.H{"invalidated": pid})
}

// Sweep godoc
// @ID           sweepCache
// @Summary      Sweep expired entries
// @Tags         cache
// @Produce      json
// @Success      200 {object} dto.Response
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /cache/sweep [post]
func (h *CacheHandler) Sweep(c *gin.Context) {
	h.Success(c, gin.H{"removed": h.cache.Sweep()})
}

// RegisterRoutes mounts the cache endpoints
func (h *CacheHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/cache")
	g.GET("/stats", h.Stats)
	g.DELETE("", h.InvalidateAll)
	g.DELETE("/products/:pid", h.InvalidateProduct)
	g.POST("/sweep", h.Sweep)
}
