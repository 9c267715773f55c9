package middleware

import (
	"net/http"
	"testing"

	"github.com/erp/mason/internal/infrastructure/auth"
	"github.com/erp/mason/pkg/permission"
	"github.com/erp/mason/pkg/state"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRequire(t *testing.T) {
	withUser := func(perms ...string) gin.HandlerFunc {
		return func(c *gin.Context) {
			if perms != nil {
				state.FromGin(c).SetUser(&auth.Claims{UserID: "u1", Permissions: perms})
			}
			c.Next()
		}
	}

	tests := []struct {
		name  string
		user  gin.HandlerFunc
		guard gin.HandlerFunc
		want  int
		code  string
	}{
		{"anonymous allowed", withUser(), Require(nil, permission.AllowAny{}), http.StatusOK, ""},
		{"anonymous rejected", withUser(), Require(nil, permission.IsAuthenticated{}), http.StatusUnauthorized, "ERR_UNAUTHORIZED"},
		{"authenticated", withUser("x"), Require(nil, permission.IsAuthenticated{}), http.StatusOK, ""},
		{"missing permission", withUser("project:read"), RequirePermission(nil, "system:read"), http.StatusForbidden, "ERR_FORBIDDEN"},
		{"wildcard grant", withUser("system:*"), RequirePermission(nil, "system:read"), http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(tt.user)
			r.GET("/guarded", tt.guard, func(c *gin.Context) { c.Status(http.StatusOK) })

			w := serve(r, http.MethodGet, "/guarded", nil)
			assert.Equal(t, tt.want, w.Code)
			if tt.code != "" {
				assert.Equal(t, tt.code, errorCode(t, w.Body.Bytes()))
			}
		})
	}
}
