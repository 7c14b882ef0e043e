// Package middleware provides the gin middleware of the marketplace API.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// untracedPaths are polled by load balancers and would drown real traffic
var untracedPaths = map[string]bool{
	"/health":        true,
	"/api/v1/health": true,
}

// Tracing starts a server span per request named after the route template
func Tracing(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName,
		otelgin.WithFilter(func(r *http.Request) bool {
			return !untracedPaths[r.URL.Path]
		}),
	)
}

// SpanAttributes tags the request span with the request id and, once Auth
// ran, the buyer id. It marks 5xx responses as errors.
func SpanAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			c.Next()
			return
		}
		if requestID := GetRequestID(c); requestID != "" {
			span.SetAttributes(attribute.String("request_id", requestID))
		}

		c.Next()

		if buyerID, ok := GetBuyerID(c); ok {
			span.SetAttributes(attribute.String("buyer_id", buyerID.String()))
		}
		if status := c.Writer.Status(); status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		if len(c.Errors) > 0 {
			span.SetAttributes(attribute.StringSlice("gin.errors", c.Errors.Errors()))
		}
	}
}
