// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "orders"

var (
	OrdersCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "created_total",
		Help:      "Orders created, by source.",
	}, []string{"source"})

	TotalsComputed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "totals_computed_total",
		Help:      "Order totals calculations, by call path.",
	}, []string{"path"})

	RecomputeSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "totals_recompute_skipped_total",
		Help:      "Updates that left stored totals untouched.",
	})

	ResidualApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "residual_applied_total",
		Help:      "Client-total residuals absorbed, by component.",
	}, []string{"target"})

	ClientTotalDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkout_client_total_total",
		Help:      "Checkout client-declared total decisions.",
	}, []string{"decision"})

	OrderTotal = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "order_total_amount",
		Help:      "Order totals in currency units.",
		Buckets:   []float64{100, 250, 500, 1000, 2500, 5000, 10000, 25000, 50000},
	}, []string{"source"})

	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_requests_total",
		Help:      "Order cache lookups, by result.",
	}, []string{"result"})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_published_total",
		Help:      "Order events published, by type and outcome.",
	}, []string{"type", "outcome"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Client-total decision labels.
const (
	DecisionTrusted  = "trusted"
	DecisionIgnored  = "ignored"
	DecisionAbsent   = "absent"
	DecisionMismatch = "trusted_mismatch"
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// GinMiddleware records request latency by route template.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
