// Package handler holds the gin handlers of the marketplace API. Handlers
// bind and validate input, call one application service and write the JSON
// envelope; every error goes through BaseHandler.HandleError.
package handler

import (
	"net/http"

	"github.com/coopmarket/backend/internal/domain/shared"
	"github.com/coopmarket/backend/internal/infrastructure/logger"
	"github.com/coopmarket/backend/internal/interfaces/http/dto"
	"github.com/coopmarket/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with an explicit status and code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// HandleError converts err into the error envelope. Server side failures
// are logged with the cause; the client only sees the generic message.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	status, resp := dto.FromError(err, middleware.GetRequestID(c))
	_ = c.Error(err)

	log := logger.GetGinLogger(c)
	switch {
	case status >= http.StatusInternalServerError:
		log.Error("request failed", zap.String("code", resp.Error.Code), zap.Error(err))
	case shared.IsKind(err, shared.KindConflict):
		log.Info("request conflicted", zap.String("code", resp.Error.Code), zap.Error(err))
	}
	c.JSON(status, resp)
}

// bindJSON binds the body into req and writes the 400 itself on failure
func (h *BaseHandler) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// bindQuery binds the query string into req and writes the 400 itself on failure
func (h *BaseHandler) bindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// pathUUID parses the named path parameter, writing a 400 when malformed
func (h *BaseHandler) pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// buyerID returns the authenticated buyer, writing a 401 when absent
func (h *BaseHandler) buyerID(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.GetBuyerID(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
	}
	return id, ok
}
