package middleware

import (
	"net/http"

	"github.com/buildops/backoffice/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// maxRequestIDLength bounds the request ID copied into span attributes
const maxRequestIDLength = 128

// Tracing returns the otelgin middleware followed by a handler that tags
// the server span. Register both: router.Use(Tracing(name)...).
func Tracing(serviceName string, opts ...otelgin.Option) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		otelgin.Middleware(serviceName, opts...),
		annotateSpan,
	}
}

// annotateSpan adds request attributes to the span otelgin started and
// marks 5xx responses as errors once the handler has run
func annotateSpan(c *gin.Context) {
	span := trace.SpanFromContext(c.Request.Context())
	if !span.IsRecording() {
		c.Next()
		return
	}

	if id := logger.RequestID(c.Request.Context()); id != "" {
		if len(id) > maxRequestIDLength {
			id = id[:maxRequestIDLength]
		}
		span.SetAttributes(attribute.String("request_id", id))
	}
	if id := c.Param("id"); id != "" {
		span.SetAttributes(attribute.String("resource.id", id))
	}

	c.Next()

	status := c.Writer.Status()
	if status >= http.StatusBadRequest {
		span.SetAttributes(attribute.Int("http.status_code", status))
	}
	if status >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(status))
	}
	if len(c.Errors) > 0 {
		span.SetAttributes(attribute.String("gin.errors", c.Errors.String()))
	}
}
