// Package middleware provides gin middleware for the HTTP server.
package middleware

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/gin-gonic/gin"
)

// HeaderXRequestID is the request ID header name.
const HeaderXRequestID = "X-Request-ID"

// requestIDContextKey is the gin context key for the request ID.
const requestIDContextKey = "request_id"

// RequestID returns a middleware that attaches a unique request ID to each
// request. An ID supplied by the client in X-Request-ID is reused, otherwise
// a random 16-byte hex string is generated. The ID is echoed in the response
// header and stored in the gin context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderXRequestID)
		if requestID == "" {
			requestID = generateRequestID()
		}

		c.Header(HeaderXRequestID, requestID)
		c.Set(requestIDContextKey, requestID)

		c.Next()
	}
}

// GetRequestID returns the request ID stored in the gin context, or ""
// when the RequestID middleware did not run.
func GetRequestID(c *gin.Context) string {
	if id, ok := c.Get(requestIDContextKey); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

func generateRequestID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
