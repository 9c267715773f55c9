package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestDocsAccess(t *testing.T) {
	tests := []struct {
		name   string
		cfg    DocsConfig
		remote string
		want   int
	}{
		{"disabled", DocsConfig{Enabled: false}, "10.0.0.1:1234", http.StatusNotFound},
		{"open", DocsConfig{Enabled: true}, "10.0.0.1:1234", http.StatusOK},
		{"exact ip", DocsConfig{Enabled: true, AllowedIPs: []string{"10.0.0.1"}}, "10.0.0.1:1234", http.StatusOK},
		{"cidr", DocsConfig{Enabled: true, AllowedIPs: []string{"192.168.0.0/16"}}, "192.168.4.20:80", http.StatusOK},
		{"outside", DocsConfig{Enabled: true, AllowedIPs: []string{"192.168.0.0/16", "bogus"}}, "172.16.0.1:80", http.StatusForbidden},
		{"only bogus entries", DocsConfig{Enabled: true, AllowedIPs: []string{"bogus"}}, "127.0.0.1:80", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/openapi.json", DocsAccess(tt.cfg), func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodGet, "/openapi.json", nil)
			req.RemoteAddr = tt.remote
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
