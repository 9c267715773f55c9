package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/erp/mason/internal/interfaces/http/middleware"
	"github.com/erp/mason/pkg/viewset"
	"github.com/erp/mason/pkg/wrapper"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger reports database reachability. *persistence.Database satisfies it.
type Pinger interface {
	Ping() error
}

// SystemHandler serves health, ping and build information.
type SystemHandler struct {
	BaseHandler
	name      string
	version   string
	env       string
	db        Pinger
	logger    *zap.Logger
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(name, version, env string, db Pinger, logger *zap.Logger) *SystemHandler {
	return &SystemHandler{
		name:      name,
		version:   version,
		env:       env,
		db:        db,
		logger:    logger,
		startTime: time.Now(),
	}
}

// SystemInfoResponse describes the running service
type SystemInfoResponse struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
	GoVersion   string `json:"go_version"`
	Uptime      string `json:"uptime"`
}

// PingResponse is returned by the ping endpoint
type PingResponse struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// HealthResponse reports the service and database status
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Health reports 503 when the database cannot be reached.
func (h *SystemHandler) Health(c *gin.Context) {
	resp := HealthResponse{Status: "ok", Database: "ok"}
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			h.logger.Warn("Health check failed", zap.Error(err))
			resp = HealthResponse{Status: "degraded", Database: "unreachable"}
			c.JSON(http.StatusServiceUnavailable, resp)
			return
		}
	}
	c.JSON(http.StatusOK, resp)
}

// GetSystemInfo returns name, version and uptime
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	h.Success(c, SystemInfoResponse{
		Name:        h.name,
		Version:     h.version,
		Environment: h.env,
		GoVersion:   runtime.Version(),
		Uptime:      time.Since(h.startTime).Round(time.Second).String(),
	})
}

// Ping answers pong
func (h *SystemHandler) Ping(c *gin.Context) {
	h.Success(c, PingResponse{Message: "pong", Timestamp: time.Now().UTC().Format(time.RFC3339)})
}

// InfoPermission is required to read /system/info.
const InfoPermission = "system:read"

// RegisterRoutes mounts /system/ping and /system/info and describes them for the API document.
func (h *SystemHandler) RegisterRoutes(rg gin.IRouter) []viewset.RouteInfo {
	base := ""
	if g, ok := rg.(*gin.RouterGroup); ok {
		base = g.BasePath()
	}
	sys := rg.Group("/system")
	sys.GET("/ping", h.Ping)
	sys.GET("/info", middleware.RequirePermission(h.logger, InfoPermission), h.GetSystemInfo)

	route := func(action, summary string, body any) viewset.RouteInfo {
		return viewset.RouteInfo{
			Method:         http.MethodGet,
			Path:           base + "/system/" + action,
			Name:           "system-" + action,
			ViewSet:        "system",
			Action:         action,
			Tags:           []string{"system"},
			Summary:        summary,
			Status:         http.StatusOK,
			ResponseSchema: body,
			SingleWrapper:  wrapper.Envelope{},
		}
	}
	return []viewset.RouteInfo{
		route("ping", "Ping the API", PingResponse{}),
		route("info", "Get system information", SystemInfoResponse{}),
	}
}
