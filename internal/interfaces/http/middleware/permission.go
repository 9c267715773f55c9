package middleware

import (
	"errors"

	"github.com/erp/mason/internal/interfaces/http/dto"
	"github.com/erp/mason/pkg/permission"
	"github.com/erp/mason/pkg/state"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Require guards plain gin routes with the same permission classes viewsets use.
func Require(log *zap.Logger, perms ...permission.Permission) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		err := permission.Check(c, state.FromGin(c), perms)
		if err == nil {
			c.Next()
			return
		}

		log.Warn("Permission denied",
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
			zap.Error(err),
		)
		if errors.Is(err, permission.ErrNotAuthenticated) {
			abort(c, dto.ErrCodeUnauthorized, "Authentication credentials were not provided")
			return
		}
		abort(c, dto.ErrCodeForbidden, "You do not have permission to perform this action")
	}
}

// RequirePermission is shorthand for Require with a HasPermissions{All: names}.
func RequirePermission(log *zap.Logger, names ...string) gin.HandlerFunc {
	return Require(log, permission.HasPermissions{All: names})
}
