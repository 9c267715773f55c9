package middleware

import (
	"errors"
	"reflect"
	"strings"

	"github.com/erp/mason/internal/interfaces/http/dto"
	"github.com/erp/mason/pkg/viewset"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// SetupValidator makes validation errors report json field names instead of Go names.
func SetupValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				name, _, _ = strings.Cut(fld.Tag.Get("form"), ",")
			}
			return name
		})
	}
}

// FormatValidationErrors builds the validation error envelope for err.
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, d := range viewset.ValidationDetails(verrs) {
			details = append(details, dto.ValidationDetail{Field: d.Field, Message: d.Message})
		}
	}
	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

// HandleValidationError writes a 400 validation response for err.
func HandleValidationError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(dto.GetHTTPStatus(dto.ErrCodeValidation), FormatValidationErrors(err, c.GetString(RequestIDKey)))
}
