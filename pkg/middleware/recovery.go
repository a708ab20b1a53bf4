package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
)

// RecoveryConfig defines the config for the Recovery middleware.
type RecoveryConfig struct {
	// EnableStackTrace includes a stack trace in the panic log.
	EnableStackTrace bool
}

// DefaultRecoveryConfig is the default Recovery middleware config.
var DefaultRecoveryConfig = RecoveryConfig{
	EnableStackTrace: true,
}

// Recovery returns a middleware that recovers from panics, logs them, and
// responds with 500.
func Recovery() gin.HandlerFunc {
	return RecoveryWithConfig(DefaultRecoveryConfig)
}

// RecoveryWithConfig returns a Recovery middleware with custom config.
func RecoveryWithConfig(config RecoveryConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				fields := []interface{}{
					"panic", r,
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
				}
				if requestID := GetRequestID(c); requestID != "" {
					fields = append(fields, "request_id", requestID)
				}
				if config.EnableStackTrace {
					fields = append(fields, "stack", string(debug.Stack()))
				}
				logger.Errorw("Panic recovered", fields...)

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"code":    http.StatusInternalServerError,
					"message": "internal server error",
				})
			}
		}()

		c.Next()
	}
}
