package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestGinMiddleware_LogsByStatus(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := zap.New(core)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("request_id", "req-abc")
		c.Next()
	})
	r.Use(GinMiddleware(l))
	r.GET("/ok", func(c *gin.Context) {
		assert.Equal(t, "req-abc", GetRequestID(c.Request.Context()))
		assert.NotNil(t, GetGinLogger(c))
		c.Status(http.StatusOK)
	})
	r.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for _, path := range []string{"/ok?x=1", "/bad", "/boom"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)

	first := entries[0].ContextMap()
	assert.Equal(t, "req-abc", first["request_id"])
	assert.Equal(t, "x=1", first["query"])
	assert.Equal(t, "/ok", first["route"])
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)

	r := gin.New()
	r.Use(Recovery(zap.New(core)))
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Panic recovered", logs.All()[0].Message)
}

func TestGetGinLogger_Missing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.NotNil(t, GetGinLogger(c))
}
