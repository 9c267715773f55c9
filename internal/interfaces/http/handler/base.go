package handler

import (
	"errors"
	"net/http"

	"github.com/erp/mason/internal/domain/shared"
	"github.com/erp/mason/internal/interfaces/http/dto"
	"github.com/erp/mason/internal/interfaces/http/middleware"
	"github.com/erp/mason/pkg/viewset"
	"github.com/gin-gonic/gin"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

func getRequestID(c *gin.Context) string {
	if id := c.GetString(middleware.RequestIDKey); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDHeader)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response, deriving the status from the code
func (h *BaseHandler) Error(c *gin.Context, code, message string) {
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, dto.ErrCodeBadRequest, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, dto.ErrCodeUnauthorized, message)
}

// ValidationError sends a 400 validation error response with details
func (h *BaseHandler) ValidationError(c *gin.Context, err error) {
	middleware.HandleValidationError(c, err)
}

// HandleError renders err the same way viewsets do
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	RenderError(c, classify(err))
}

func classify(err error) *viewset.Error {
	if e := MapError(err); e != nil {
		return e
	}
	return viewset.AsError(err)
}

// MapError maps domain errors onto the service's error codes. Anything else is
// left to the viewset defaults.
func MapError(err error) *viewset.Error {
	var de *shared.DomainError
	if !errors.As(err, &de) {
		return nil
	}
	code := dto.NormalizeErrorCode(de.Code)
	return &viewset.Error{
		Status:  dto.GetHTTPStatus(code),
		Code:    code,
		Message: de.Message,
		Err:     err,
	}
}

// RenderError writes the service error envelope, tagged with the request id.
func RenderError(c *gin.Context, e *viewset.Error) {
	resp := dto.NewErrorResponseWithRequestID(e.Code, e.Message, getRequestID(c))
	for _, d := range e.Details {
		resp.Error.Details = append(resp.Error.Details, dto.ValidationDetail{Field: d.Field, Message: d.Message})
	}
	c.AbortWithStatusJSON(e.Status, resp)
}
