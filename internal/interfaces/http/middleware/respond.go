package middleware

import (
	"github.com/erp/mason/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// abort stops the chain with the standard error envelope; status follows the code.
func abort(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(dto.GetHTTPStatus(code),
		dto.NewErrorResponseWithRequestID(code, message, c.GetString(RequestIDKey)))
}
