package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestSwaggerProtection(t *testing.T) {
	newRouter := func(cfg SwaggerConfig) *gin.Engine {
		router := gin.New()
		router.GET("/swagger/*any", SwaggerProtection(cfg), func(c *gin.Context) {
			c.String(http.StatusOK, "docs")
		})
		return router
	}
	get := func(router *gin.Engine, remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
		req.RemoteAddr = remote
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("disabled answers 404", func(t *testing.T) {
		w := get(newRouter(SwaggerConfig{}), "10.0.0.1:1234")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_NOT_FOUND")
	})

	t.Run("enabled without allow list is open", func(t *testing.T) {
		w := get(newRouter(SwaggerConfig{Enabled: true}), "203.0.113.5:1234")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "docs", w.Body.String())
	})

	t.Run("single ip allowed", func(t *testing.T) {
		router := newRouter(SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.0.0.1"}})
		assert.Equal(t, http.StatusOK, get(router, "10.0.0.1:1234").Code)
		w := get(router, "10.0.0.2:1234")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_FORBIDDEN")
	})

	t.Run("cidr allowed", func(t *testing.T) {
		router := newRouter(SwaggerConfig{Enabled: true, AllowedIPs: []string{" 10.1.0.0/16 "}})
		assert.Equal(t, http.StatusOK, get(router, "10.1.44.9:1234").Code)
		assert.Equal(t, http.StatusForbidden, get(router, "10.2.0.1:1234").Code)
	})

	t.Run("malformed entries are ignored", func(t *testing.T) {
		router := newRouter(SwaggerConfig{Enabled: true, AllowedIPs: []string{"not-an-ip", "10.0.0.0/99"}})
		assert.Equal(t, http.StatusForbidden, get(router, "10.0.0.1:1234").Code)
	})
}
