package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	mwopts "github.com/kart-io/sentinel-rag/pkg/options/middleware"
)

// MetricsCollector collects HTTP request metrics.
type MetricsCollector struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	activeRequests  prometheus.Gauge
}

// NewMetricsCollector creates HTTP collectors and registers them with reg.
// reg 为 nil 时不注册, 便于测试。
func NewMetricsCollector(opts mwopts.MetricsOptions, reg prometheus.Registerer) *MetricsCollector {
	labels := []string{"method", "path", "status"}
	m := &MetricsCollector{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Subsystem: opts.Subsystem,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, labels),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: opts.Namespace,
			Subsystem: opts.Subsystem,
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, labels),
		activeRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: opts.Namespace,
			Subsystem: opts.Subsystem,
			Name:      "requests_active",
			Help:      "Current number of active requests.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.requestsTotal, m.requestDuration, m.activeRequests)
	}
	return m
}

// RecordRequest records a finished request.
func (m *MetricsCollector) RecordRequest(method, path string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	m.requestsTotal.WithLabelValues(method, path, code).Inc()
	m.requestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
}

// Middleware 返回采集请求指标的中间件。
// path 标签使用路由模板, 未匹配路由记为 "unmatched" 以限制基数。
func (m *MetricsCollector) Middleware(opts mwopts.MetricsOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == opts.Path {
			c.Next()
			return
		}

		m.activeRequests.Inc()
		start := time.Now()
		c.Next()
		m.activeRequests.Dec()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// RegisterMetricsRoutes 注册 Prometheus 抓取端点。
func RegisterMetricsRoutes(engine *gin.Engine, opts mwopts.MetricsOptions, gatherer prometheus.Gatherer) {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	engine.GET(opts.Path, gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}
