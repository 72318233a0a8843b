package router

import (
	"github.com/gin-gonic/gin"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router manages HTTP route registration under a versioned prefix
type Router struct {
	engine     *gin.Engine
	apiVersion string
	mounts     []mount
}

// mount is a registrar and the middleware that guards its routes only
type mount struct {
	registrar  RouteRegistrar
	middleware []gin.HandlerFunc
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register adds a RouteRegistrar to be mounted by Setup. The middleware runs
// for the registrar's routes only, after the engine-wide chain.
func (r *Router) Register(registrar RouteRegistrar, middleware ...gin.HandlerFunc) *Router {
	r.mounts = append(r.mounts, mount{registrar: registrar, middleware: middleware})
	return r
}

// Setup mounts every registrar under /api/<version>
func (r *Router) Setup() {
	api := r.engine.Group(r.BasePath())
	for _, m := range r.mounts {
		rg := api.Group("")
		if len(m.middleware) > 0 {
			rg.Use(m.middleware...)
		}
		m.registrar.RegisterRoutes(rg)
	}
}

// BasePath returns the versioned API prefix
func (r *Router) BasePath() string {
	return "/api/" + r.apiVersion
}

// RegistrarFunc adapts a plain function to RouteRegistrar
type RegistrarFunc func(rg *gin.RouterGroup)

// RegisterRoutes implements RouteRegistrar
func (f RegistrarFunc) RegisterRoutes(rg *gin.RouterGroup) {
	f(rg)
}
