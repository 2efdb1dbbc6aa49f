package monitoring

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector manages Prometheus metrics for a service
type MetricsCollector struct {
	serviceName string
	registerer  prometheus.Registerer
	gatherer    prometheus.Gatherer

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	activeRequests      prometheus.Gauge
	serviceInfo         *prometheus.GaugeVec
}

// NewMetricsCollector registers the service's metrics on the default registry.
func NewMetricsCollector(serviceName, version, commit string) *MetricsCollector {
	return NewMetricsCollectorWithRegistry(serviceName, version, commit, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// NewMetricsCollectorWithRegistry is NewMetricsCollector against a caller
// supplied registry; tests use a fresh prometheus.NewRegistry().
func NewMetricsCollectorWithRegistry(serviceName, version, commit string, reg prometheus.Registerer, gatherer prometheus.Gatherer) *MetricsCollector {
	mc := &MetricsCollector{
		serviceName: strings.ReplaceAll(serviceName, "-", "_"),
		registerer:  reg,
		gatherer:    gatherer,
	}

	mc.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: mc.serviceName + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)
	mc.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    mc.serviceName + "_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "endpoint"},
	)
	mc.activeRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: mc.serviceName + "_active_requests",
			Help: "Number of in-flight HTTP requests",
		},
	)
	mc.serviceInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: mc.serviceName + "_service_info",
			Help: "Service information",
		},
		[]string{"version", "commit"},
	)

	reg.MustRegister(mc.httpRequestsTotal, mc.httpRequestDuration, mc.activeRequests, mc.serviceInfo)
	mc.serviceInfo.WithLabelValues(version, commit).Set(1)

	return mc
}

// MetricsMiddleware returns middleware that collects HTTP metrics
func (mc *MetricsCollector) MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		mc.activeRequests.Inc()
		defer mc.activeRequests.Dec()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}
		status := strconv.Itoa(c.Writer.Status())
		mc.httpRequestsTotal.WithLabelValues(c.Request.Method, endpoint, status).Inc()
		mc.httpRequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// Handler returns the Prometheus metrics HTTP handler
func (mc *MetricsCollector) Handler() gin.HandlerFunc {
	handler := promhttp.HandlerFor(mc.gatherer, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		handler.ServeHTTP(c.Writer, c.Request)
	}
}

// NewCounter creates a new counter metric for the service
func (mc *MetricsCollector) NewCounter(name, help string, labels []string) *prometheus.CounterVec {
	counter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: mc.serviceName + "_" + name,
			Help: help,
		},
		labels,
	)
	mc.registerer.MustRegister(counter)
	return counter
}

// NewHistogram creates a new histogram metric for the service
func (mc *MetricsCollector) NewHistogram(name, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	if buckets == nil {
		buckets = prometheus.DefBuckets
	}
	histogram := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    mc.serviceName + "_" + name,
			Help:    help,
			Buckets: buckets,
		},
		labels,
	)
	mc.registerer.MustRegister(histogram)
	return histogram
}
