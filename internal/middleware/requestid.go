package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/taskdesk/eligibility-service/internal/pkg/cuid2"
)

// RequestIDHeader carries the correlation ID between services.
const RequestIDHeader = "X-Request-ID"

// RequestIDKey is the gin context key the request logger reads.
const RequestIDKey = "request_id"

// RequestIDMiddleware attaches a collision-resistant correlation ID to every
// request. An inbound X-Request-ID from an upstream service is kept so a
// rule change can be traced across task service, queue and engine.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = cuid2.GeneratePrefixedId("req", cuid2.PrefixedIdOptions{TimeSortable: true})
		}
		c.Set(RequestIDKey, id)
		c.Writer.Header().Set(RequestIDHeader, id)
		c.Next()
	}
}
