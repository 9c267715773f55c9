package router

import (
	"github.com/erp/mason/internal/interfaces/http/middleware"
	"github.com/erp/mason/pkg/openapi"
	"github.com/erp/mason/pkg/viewset"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const (
	// OpenAPIPath serves the generated document.
	OpenAPIPath = "/openapi.json"
	// DocsPath is the prefix of the interactive docs UI.
	DocsPath = "/docs"
)

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []viewset.Registrar
	info       openapi.Info
	docs       middleware.DocsConfig
	routes     []viewset.RouteInfo
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// WithDocs serves /openapi.json and /docs/*any described by info, guarded by cfg.
func WithDocs(info openapi.Info, cfg middleware.DocsConfig) RouterOption {
	return func(r *Router) {
		r.info = info
		r.docs = cfg
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
		registrars: make([]viewset.Registrar, 0),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register adds registrars to be mounted by Setup
func (r *Router) Register(registrars ...viewset.Registrar) *Router {
	r.registrars = append(r.registrars, registrars...)
	return r
}

// Setup mounts every registrar under /api/{version} and, when enabled, the API docs.
// It returns the collected routes.
func (r *Router) Setup() []viewset.RouteInfo {
	api := r.engine.Group("/api/" + r.apiVersion)
	r.routes = viewset.Register(api, r.registrars...)

	if r.docs.Enabled {
		doc := openapi.Build(r.info, r.routes)
		guard := middleware.DocsAccess(r.docs)
		r.engine.GET(OpenAPIPath, guard, openapi.Handler(doc))
		r.engine.GET(DocsPath+"/*any", guard, ginSwagger.WrapHandler(
			swaggerFiles.Handler,
			ginSwagger.URL(OpenAPIPath),
			ginSwagger.DocExpansion("list"),
		))
	}

	return r.routes
}

// Routes returns the routes collected by the last Setup call
func (r *Router) Routes() []viewset.RouteInfo {
	return r.routes
}

// APIBasePath returns the versioned prefix, e.g. /api/v1
func (r *Router) APIBasePath() string {
	return "/api/" + r.apiVersion
}
