package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/catalogsync/backend/internal/domain/catalog"
	"github.com/catalogsync/backend/internal/domain/integration"
	"github.com/catalogsync/backend/internal/domain/shared"
	"github.com/catalogsync/backend/internal/infrastructure/scheduler"
	"github.com/catalogsync/backend/internal/interfaces/http/dto"
	"github.com/catalogsync/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// sentinelCodes maps package sentinel errors onto API error codes.
// Order matters: the first errors.Is match wins.
var sentinelCodes = []struct {
	err  error
	code string
}{
	{catalog.ErrProductNotFound, dto.ErrCodeNotFound},
	{catalog.ErrVariantNotFound, dto.ErrCodeNotFound},
	{catalog.ErrMappingNotFound, dto.ErrCodeNotFound},
	{integration.ErrCatalogEntryNotFound, dto.ErrCodeNotFound},
	{integration.ErrNotificationLogNotFound, dto.ErrCodeNotFound},
	{integration.ErrOrderMappingNotFound, dto.ErrCodeNotFound},
	{integration.ErrSourcingNotFound, dto.ErrCodeNotFound},
	{scheduler.ErrJobNotFound, dto.ErrCodeNotFound},

	{catalog.ErrProductAlreadyExists, dto.ErrCodeAlreadyExists},
	{scheduler.ErrJobAlreadyRunning, dto.ErrCodeConflict},

	{catalog.ErrMappingInvalid, dto.ErrCodeInvalidInput},
	{catalog.ErrProductInvalidName, dto.ErrCodeInvalidInput},
	{catalog.ErrProductInvalidPrice, dto.ErrCodeInvalidInput},
	{integration.ErrOrderMappingInvalid, dto.ErrCodeInvalidInput},
	{integration.ErrSourcingInvalidRequest, dto.ErrCodeInvalidInput},
	{integration.ErrWebhookURLNotHTTPS, dto.ErrCodeInvalidInput},
	{integration.ErrWebhookURLInvalid, dto.ErrCodeInvalidInput},

	{integration.ErrCatalogEntryInvalidStatus, dto.ErrCodeInvalidState},
	{integration.ErrSourcingInvalidTransition, dto.ErrCodeInvalidState},
	{scheduler.ErrSchedulerNotRunning, dto.ErrCodeInvalidState},

	{integration.ErrProductDelisted, dto.ErrCodeDelisted},
	{integration.ErrSupplierRateLimited, dto.ErrCodeRateLimited},
	{integration.ErrSupplierNotConfigured, dto.ErrCodeUpstreamUnavailable},
	{integration.ErrSupplierUnavailable, dto.ErrCodeUpstreamUnavailable},
	{integration.ErrSupplierAuthFailed, dto.ErrCodeUpstream},
	{integration.ErrSupplierRequestFailed, dto.ErrCodeUpstream},
	{integration.ErrSupplierInvalidResponse, dto.ErrCodeUpstream},

	{context.DeadlineExceeded, dto.ErrCodeTimeout},
}

// errorCode resolves the API error code for err, or "" when unknown
func errorCode(err error) string {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return dto.NormalizeErrorCode(domainErr.Code)
	}
	for _, s := range sentinelCodes {
		if errors.Is(err, s.err) {
			return s.code
		}
	}
	return ""
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessList sends a list response with count meta
func (h *BaseHandler) SuccessList(c *gin.Context, data any, count, limit int) {
	c.JSON(http.StatusOK, dto.NewListResponse(data, count, limit))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Accepted sends a 202 accepted response
func (h *BaseHandler) Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleError translates domain and sentinel errors into the response envelope.
// Unknown errors are attached to the gin context and reported as internal.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	code := errorCode(err)
	if code == "" {
		_ = c.Error(err)
		h.InternalError(c, "An unexpected error occurred")
		return
	}
	h.Error(c, dto.GetHTTPStatus(code), code, err.Error())
}

// BindJSON binds and validates a JSON body, writing a 400 on failure
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// BindQuery binds and validates query parameters, writing a 400 on failure
func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// ParseUUIDParam reads a UUID path parameter, writing a 400 on failure
func (h *BaseHandler) ParseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.BadRequest(c, "Invalid "+name+" format")
		return uuid.Nil, false
	}
	return id, true
}
