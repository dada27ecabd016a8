package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	uuid "github.com/google/uuid"
)

const (
	// TraceIDHeader is the HTTP header carrying the trace ID.
	TraceIDHeader = "X-Trace-ID"
	// TraceIDKey is the context key for the trace ID.
	TraceIDKey = "trace_id"
	// DeviceHeader carries the client device fingerprint.
	DeviceHeader = "X-Device-ID"
	// AccountKey is the context key for the authenticated account.
	AccountKey = "account"
)

// RequestContext holds request-scoped connection metadata.
type RequestContext struct {
	TraceID string
	Device  string
	IP      string
}

// EnrichContext attaches a trace ID and connection metadata to each request.
func EnrichContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}

		c.Set(TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)

		c.Set("request_context", &RequestContext{
			TraceID: traceID,
			Device:  ClientDevice(c),
			IP:      c.ClientIP(),
		})

		c.Next()
	}
}

// GetTraceID retrieves the trace ID from the context.
func GetTraceID(c *gin.Context) string {
	if traceID, exists := c.Get(TraceIDKey); exists {
		if id, ok := traceID.(string); ok {
			return id
		}
	}
	return ""
}

// GetRequestContext retrieves the request context, never nil.
func GetRequestContext(c *gin.Context) *RequestContext {
	if ctx, exists := c.Get("request_context"); exists {
		if reqCtx, ok := ctx.(*RequestContext); ok {
			return reqCtx
		}
	}
	return &RequestContext{}
}

// ClientDevice resolves the device fingerprint for the request, falling back
// to the user agent when the client sends no explicit fingerprint.
func ClientDevice(c *gin.Context) string {
	if device := strings.TrimSpace(c.GetHeader(DeviceHeader)); device != "" {
		return device
	}
	return strings.TrimSpace(c.Request.UserAgent())
}
