package middleware

import (
	"regexp"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the correlation id in both directions.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "requestID"

var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// RequestContext assigns a request id, honoring a well formed incoming one,
// and attaches it together with the client IP and user agent to the request
// context.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if !requestIDPattern.MatchString(id) {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)

		ctx := goAccount.WithRequestID(c.Request.Context(), id)
		ctx = goAccount.WithClientIP(ctx, c.ClientIP())
		ctx = goAccount.WithUserAgent(ctx, c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequestID returns the id assigned by RequestContext.
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
