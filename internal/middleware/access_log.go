package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/logging"
)

// AccessLog writes one structured line per request. Server errors log at
// error level, client errors at warn.
func AccessLog() gin.HandlerFunc {
	logger := logging.NewLoggerV2("http")

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := logging.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"request_id": RequestIDFromContext(c.Request.Context()),
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			logger.Error("Request completed", fields)
		case status >= 400:
			logger.Warn("Request completed", fields)
		default:
			logger.Debug("Request completed", fields)
		}
	}
}
