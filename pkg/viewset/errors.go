package viewset

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"

	"github.com/erp/mason/pkg/pagination"
	"github.com/erp/mason/pkg/permission"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Error codes used in error bodies.
const (
	CodeBadRequest    = "ERR_BAD_REQUEST"
	CodeInvalidJSON   = "ERR_INVALID_JSON"
	CodeValidation    = "ERR_VALIDATION"
	CodeInvalidQuery  = "ERR_INVALID_QUERY"
	CodeUnauthorized  = "ERR_UNAUTHORIZED"
	CodeForbidden     = "ERR_FORBIDDEN"
	CodeNotFound      = "ERR_NOT_FOUND"
	CodeAlreadyExists = "ERR_ALREADY_EXISTS"
	CodeInternal      = "ERR_INTERNAL"
)

// FieldError describes one invalid body field or query parameter.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is an error with an HTTP status and a stable code.
type Error struct {
	Status  int          `json:"-"`
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
	Err     error        `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// NewError returns an *Error with the given status, code and message.
func NewError(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// ErrorMapper converts application errors into *Error; it returns nil for errors it does not know.
type ErrorMapper func(err error) *Error

// ErrorRenderer writes e to the response and aborts the chain.
type ErrorRenderer func(c *gin.Context, e *Error)

// AsError classifies err. Errors nothing recognizes become 500s.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	var (
		perr      *pagination.ParamError
		verrs     validator.ValidationErrors
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.Is(err, permission.ErrNotAuthenticated):
		return &Error{Status: http.StatusUnauthorized, Code: CodeUnauthorized, Message: err.Error(), Err: err}
	case errors.Is(err, permission.ErrPermissionDenied):
		return &Error{Status: http.StatusForbidden, Code: CodeForbidden, Message: err.Error(), Err: err}
	case errors.As(err, &perr):
		details := make([]FieldError, len(perr.Issues))
		for i, is := range perr.Issues {
			details[i] = FieldError{Field: is.Param, Message: is.Message}
		}
		return &Error{Status: http.StatusBadRequest, Code: CodeInvalidQuery, Message: "Invalid query parameters", Details: details, Err: err}
	case errors.As(err, &verrs):
		return &Error{Status: http.StatusBadRequest, Code: CodeValidation, Message: "Request validation failed", Details: ValidationDetails(verrs), Err: err}
	case errors.As(err, &syntaxErr), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return &Error{Status: http.StatusBadRequest, Code: CodeInvalidJSON, Message: "Request body is not valid JSON", Err: err}
	case errors.As(err, &typeErr):
		return &Error{
			Status:  http.StatusBadRequest,
			Code:    CodeInvalidJSON,
			Message: "Request body has a field of the wrong type",
			Details: []FieldError{{Field: typeErr.Field, Message: "Must be of type " + typeErr.Type.String()}},
			Err:     err,
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &Error{Status: http.StatusNotFound, Code: CodeNotFound, Message: "Not found", Err: err}
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &Error{Status: http.StatusConflict, Code: CodeAlreadyExists, Message: "Resource already exists", Err: err}
	}
	return &Error{Status: http.StatusInternalServerError, Code: CodeInternal, Message: "An unexpected error occurred", Err: err}
}

// DefaultRenderer writes {"success": false, "error": {...}}.
func DefaultRenderer(c *gin.Context, e *Error) {
	c.AbortWithStatusJSON(e.Status, gin.H{"success": false, "error": e})
}

// ValidationDetails turns validator errors into field details.
func ValidationDetails(errs validator.ValidationErrors) []FieldError {
	details := make([]FieldError, 0, len(errs))
	for _, fe := range errs {
		details = append(details, FieldError{Field: fe.Field(), Message: ValidationMessage(fe)})
	}
	return details
}

// ValidationMessage returns a human-readable message for a single validator failure.
func ValidationMessage(fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "uuid", "uuid4":
		return "Invalid UUID format"
	case "url", "uri":
		return "Invalid URL format"
	case "oneof":
		return "Must be one of: " + fe.Param()
	case "min":
		if isString {
			return "Must be at least " + fe.Param() + " characters"
		}
		return "Must be at least " + fe.Param()
	case "max":
		if isString {
			return "Must be at most " + fe.Param() + " characters"
		}
		return "Must be at most " + fe.Param()
	case "len":
		return "Must be exactly " + fe.Param() + " characters"
	case "gte":
		return "Must be greater than or equal to " + fe.Param()
	case "lte":
		return "Must be less than or equal to " + fe.Param()
	case "gt":
		return "Must be greater than " + fe.Param()
	case "lt":
		return "Must be less than " + fe.Param()
	case "numeric":
		return "Must be numeric"
	case "alphanum":
		return "Must be alphanumeric"
	}
	return "Invalid value"
}
