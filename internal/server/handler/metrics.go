package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	canopyCasTotal = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "canopy_cas_total",
		Help: "Number of configured CAs by status.",
	}, []string{"status"})

	canopyRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canopy_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	canopyRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "canopy_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	canopyStatusQueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canopy_status_queries_total",
		Help: "Total certificate status queries by outcome.",
	}, []string{"outcome"})

	canopyConfigMutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canopy_config_mutations_total",
		Help: "Total configuration mutations by entity and result.",
	}, []string{"entity", "result"})

	canopyStaleCrlIssuers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "canopy_stale_crl_issuers",
		Help: "Number of loaded issuers whose CRL metadata is missing or expired.",
	})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		canopyRequestsTotal.WithLabelValues(method, path, status).Inc()
		canopyRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordStatusQuery records one status query outcome ("good", "revoked", ...).
func RecordStatusQuery(outcome string) {
	canopyStatusQueriesTotal.WithLabelValues(outcome).Inc()
}

// RecordConfigMutation records one configuration mutation attempt.
func RecordConfigMutation(entity string, err error) {
	result := "ok"
	if err != nil {
		result = "rejected"
	}
	canopyConfigMutationsTotal.WithLabelValues(entity, result).Inc()
}

// SetCasGauge sets the CA count gauge for a given status.
func SetCasGauge(status string, count float64) {
	canopyCasTotal.WithLabelValues(status).Set(count)
}

// SetStaleCrlIssuers sets the stale CRL issuer gauge.
func SetStaleCrlIssuers(count int) {
	canopyStaleCrlIssuers.Set(float64(count))
}
