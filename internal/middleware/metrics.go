package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// requestObserver is the subset of the metrics service used per request.
type requestObserver interface {
	ObserveHTTPRequest(method, path string, status int, duration time.Duration)
}

// Metrics records request metrics under the matched route template and names the active trace
// span after that route.
func Metrics(observer requestObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()

		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			span.SetName(c.Request.Method + " " + path)
			span.SetAttributes(attribute.String("http.route", path))
		}
		if observer != nil {
			observer.ObserveHTTPRequest(c.Request.Method, path, status, time.Since(start))
		}
	}
}
