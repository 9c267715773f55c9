package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/mason/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping() error { return p.err }

func TestSystemHandler_Health(t *testing.T) {
	tests := []struct {
		name       string
		db         Pinger
		wantStatus int
		wantBody   HealthResponse
	}{
		{name: "no database", db: nil, wantStatus: http.StatusOK, wantBody: HealthResponse{Status: "ok", Database: "ok"}},
		{name: "database up", db: fakePinger{}, wantStatus: http.StatusOK, wantBody: HealthResponse{Status: "ok", Database: "ok"}},
		{
			name:       "database down",
			db:         fakePinger{err: errors.New("dial tcp: connection refused")},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   HealthResponse{Status: "degraded", Database: "unreachable"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSystemHandler("mason", "1.0.0", "test", tt.db, zap.NewNop())
			r := gin.New()
			r.GET("/health", h.Health)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			var got HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Equal(t, tt.wantBody, got)
		})
	}
}

func TestSystemHandler_Routes(t *testing.T) {
	env := newTestEnv(t)

	t.Run("ping", func(t *testing.T) {
		w := env.do(http.MethodGet, "/api/v1/system/ping", "", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Success bool         `json:"success"`
			Data    PingResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, "pong", resp.Data.Message)
		assert.NotEmpty(t, resp.Data.Timestamp)
	})

	t.Run("info requires a grant", func(t *testing.T) {
		w := env.do(http.MethodGet, "/api/v1/system/info", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		w = env.do(http.MethodGet, "/api/v1/system/info", env.token(t, "project:read"), nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, dto.ErrCodeForbidden, errorCode(t, w))
	})

	t.Run("info", func(t *testing.T) {
		w := env.do(http.MethodGet, "/api/v1/system/info", env.token(t, InfoPermission), nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp struct {
			Data SystemInfoResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "mason", resp.Data.Name)
		assert.Equal(t, "test", resp.Data.Version)
		assert.NotEmpty(t, resp.Data.GoVersion)
	})

	t.Run("described for the api document", func(t *testing.T) {
		var paths []string
		for _, rt := range env.routes {
			if rt.ViewSet == "system" {
				paths = append(paths, rt.Method+" "+rt.Path)
			}
		}
		assert.ElementsMatch(t, []string{"GET /api/v1/system/ping", "GET /api/v1/system/info"}, paths)
	})
}

func TestRegisteredRoutes(t *testing.T) {
	env := newTestEnv(t)

	names := map[string]bool{}
	for _, rt := range env.routes {
		names[rt.Name] = true
	}
	for _, want := range []string{
		"companies-list", "companies-create", "companies-retrieve", "companies-update",
		"companies-destroy", "companies-stats",
		"projects-list", "projects-archive",
		"projects-feed-list", "projects-feed-retrieve",
		"auth-token", "auth-refresh", "auth-logout", "auth-me",
	} {
		assert.True(t, names[want], "missing route %s", want)
	}
	assert.False(t, names["projects-feed-create"])
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	h := &BaseHandler{}
	r := gin.New()
	r.NoRoute(func(c *gin.Context) { h.Error(c, dto.ErrCodeNotFound, "Route not found") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, dto.ErrCodeNotFound, errorCode(t, w))
}
