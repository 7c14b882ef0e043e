package middleware

import (
	"context"
	"strings"

	"github.com/coopmarket/backend/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
)

// Profiling runs each request under pprof labels (method, route, resource)
// so Pyroscope flame graphs can be split per endpoint.
func Profiling() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" || untracedPaths[route] {
			c.Next()
			return
		}

		labels := map[string]string{
			"method":   c.Request.Method,
			"route":    route,
			"resource": resourceFromRoute(route),
		}
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

// resourceFromRoute returns the first static segment after the version.
// "/api/v1/orders/:id/cancel" gives "orders".
func resourceFromRoute(route string) string {
	for _, part := range strings.Split(route, "/") {
		if part == "" || part == "api" || isVersionSegment(part) {
			continue
		}
		if strings.HasPrefix(part, ":") || strings.HasPrefix(part, "*") {
			return ""
		}
		return part
	}
	return ""
}

func isVersionSegment(segment string) bool {
	if len(segment) < 2 || (segment[0] != 'v' && segment[0] != 'V') {
		return false
	}
	for _, r := range segment[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
