package dto

import (
	"net/http"
	"strings"

	"github.com/erp/mason/pkg/viewset"
)

// Error codes carried in the error envelope. Codes produced by the viewset
// layer keep their viewset names so both layers render the same body.
const (
	ErrCodeBadRequest    = viewset.CodeBadRequest
	ErrCodeInvalidJSON   = viewset.CodeInvalidJSON
	ErrCodeValidation    = viewset.CodeValidation
	ErrCodeInvalidQuery  = viewset.CodeInvalidQuery
	ErrCodeUnauthorized  = viewset.CodeUnauthorized
	ErrCodeForbidden     = viewset.CodeForbidden
	ErrCodeNotFound      = viewset.CodeNotFound
	ErrCodeAlreadyExists = viewset.CodeAlreadyExists
	ErrCodeInternal      = viewset.CodeInternal

	ErrCodeInvalidInput     = "ERR_INVALID_INPUT"
	ErrCodeInvalidState     = "ERR_INVALID_STATE"
	ErrCodeConflict         = "ERR_CONFLICT"
	ErrCodeTokenExpired     = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid     = "ERR_TOKEN_INVALID"
	ErrCodeRateLimited      = "ERR_RATE_LIMITED"
	ErrCodeMethodNotAllowed = "ERR_METHOD_NOT_ALLOWED"
	ErrCodeRequestTooLarge  = "ERR_REQUEST_TOO_LARGE"
)

const codePrefix = "ERR_"

var httpStatus = map[string]int{
	ErrCodeBadRequest:       http.StatusBadRequest,
	ErrCodeInvalidJSON:      http.StatusBadRequest,
	ErrCodeValidation:       http.StatusBadRequest,
	ErrCodeInvalidQuery:     http.StatusBadRequest,
	ErrCodeInvalidInput:     http.StatusBadRequest,
	ErrCodeUnauthorized:     http.StatusUnauthorized,
	ErrCodeTokenExpired:     http.StatusUnauthorized,
	ErrCodeTokenInvalid:     http.StatusUnauthorized,
	ErrCodeForbidden:        http.StatusForbidden,
	ErrCodeNotFound:         http.StatusNotFound,
	ErrCodeMethodNotAllowed: http.StatusMethodNotAllowed,
	ErrCodeAlreadyExists:    http.StatusConflict,
	ErrCodeConflict:         http.StatusConflict,
	ErrCodeRequestTooLarge:  http.StatusRequestEntityTooLarge,
	ErrCodeInvalidState:     http.StatusUnprocessableEntity,
	ErrCodeRateLimited:      http.StatusTooManyRequests,
	ErrCodeInternal:         http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status for an error code, 500 when unknown
func GetHTTPStatus(code string) int {
	if status, ok := httpStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// NormalizeErrorCode turns a bare domain code such as NOT_FOUND into its
// envelope form ERR_NOT_FOUND. Codes already in envelope form are unchanged.
func NormalizeErrorCode(code string) string {
	if code == "" || strings.HasPrefix(code, codePrefix) {
		return code
	}
	return codePrefix + code
}
