package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/logging"
)

// BuildVersion is set at link time with -ldflags "-X ...handlers.BuildVersion=v1.2.3".
var BuildVersion = "dev"

var startTime = time.Now()

// Health handles GET /health
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "orders-service",
	})
}

// Ready handles GET /ready
func (h *Handlers) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{}
	ready := true
	for _, rc := range h.readiness {
		if err := rc.Check(ctx); err != nil {
			h.logger.Warn("Readiness check failed", logging.Fields{
				"check": rc.Name,
				"error": err.Error(),
			})
			checks[rc.Name] = err.Error()
			ready = false
			continue
		}
		checks[rc.Name] = "ok"
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "not_ready",
			"service": "orders-service",
			"checks":  checks,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ready",
		"service": "orders-service",
		"checks":  checks,
	})
}

// Live handles GET /live
func (h *Handlers) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

// Version handles GET /version
func (h *Handlers) Version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version":    BuildVersion,
		"service":    "orders-service",
		"go_version": runtime.Version(),
		"started_at": startTime.Format(time.RFC3339),
	})
}
