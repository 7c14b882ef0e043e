package dto

import (
	"context"
	"errors"
	"net/http"

	"github.com/coopmarket/backend/internal/domain/shared"
)

// Transport error codes. Domain errors keep their own codes
// (INSUFFICIENT_STOCK, PRICE_MISMATCH, ...).
const (
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeTokenExpired = "TOKEN_EXPIRED"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeTimeout      = "TIMEOUT"
	ErrCodeTooLarge     = "REQUEST_TOO_LARGE"
)

// KindHTTPStatus maps domain error kinds to HTTP status codes
var KindHTTPStatus = map[shared.ErrorKind]int{
	shared.KindValidation:    http.StatusBadRequest,
	shared.KindNotFound:      http.StatusNotFound,
	shared.KindConflict:      http.StatusConflict,
	shared.KindConfiguration: http.StatusInternalServerError,
	shared.KindPersistence:   http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status for an error kind, 500 if unknown
func GetHTTPStatus(kind shared.ErrorKind) int {
	if status, ok := KindHTTPStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// FromError converts err into a status code and error body. Messages of
// configuration and persistence errors are replaced by generic ones so
// that storage details do not leak to clients.
func FromError(err error, requestID string) (int, Response) {
	var de *shared.DomainError
	if errors.As(err, &de) {
		status := GetHTTPStatus(de.Kind)
		message := de.Message
		switch de.Kind {
		case shared.KindConfiguration:
			message = "The service is misconfigured, please contact support"
		case shared.KindPersistence:
			if de.Code != shared.ErrTimeout.Code {
				message = shared.ErrPersistence.Message
			}
		}
		resp := NewErrorResponseWithRequestID(de.Code, message, requestID)
		resp.Error.Field = de.Field
		resp.Error.Retryable = de.Retryable()
		return status, resp
	}

	if errors.Is(err, context.DeadlineExceeded) {
		resp := NewErrorResponseWithRequestID(ErrCodeTimeout, shared.ErrTimeout.Message, requestID)
		resp.Error.Retryable = true
		return http.StatusServiceUnavailable, resp
	}

	return http.StatusInternalServerError,
		NewErrorResponseWithRequestID(ErrCodeInternal, "An unexpected error occurred", requestID)
}
