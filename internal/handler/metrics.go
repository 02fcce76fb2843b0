package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricsPath      = "/metrics"
	metricsNamespace = "aetherlens"
	unmatchedRoute   = "unmatched"
)

// HTTPMetrics is the metrics stage of the pipeline.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight *prometheus.GaugeVec
}

func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	m := &HTTPMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total API requests by method, route and status code.",
		}, []string{"method", "endpoint", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "API request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		inFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "api",
			Name:      "requests_in_progress",
			Help:      "API requests currently being served.",
		}, []string{"method", "endpoint"}),
	}
	reg.MustRegister(m.requests, m.duration, m.inFlight)
	return m
}

// Middleware records every request except scrapes of the metrics endpoint. A handler
// panic is counted as a 500 and re-raised for the recovery boundary.
func (m *HTTPMetrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == metricsPath {
			c.Next()
			return
		}

		method := c.Request.Method
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = unmatchedRoute
		}

		inFlight := m.inFlight.WithLabelValues(method, endpoint)
		inFlight.Inc()
		start := time.Now()

		defer func() {
			rec := recover()
			status := c.Writer.Status()
			if rec != nil {
				status = http.StatusInternalServerError
			}

			inFlight.Dec()
			m.duration.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())
			m.requests.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()

			if rec != nil {
				panic(rec)
			}
		}()

		c.Next()
	}
}

// PoolStatter reports store connection pool occupancy.
type PoolStatter interface {
	PoolStats() (total, acquired int32)
}

// KeyCounter reports how many client keys the admission controller tracks.
type KeyCounter interface {
	Keys() int
}

// RegisterRuntimeGauges exposes pool occupancy and admission state as scrape-time gauges.
func RegisterRuntimeGauges(reg prometheus.Registerer, pool PoolStatter, keys KeyCounter) {
	if pool != nil {
		reg.MustRegister(
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: "database",
				Name:      "pool_size",
				Help:      "Open connections in the store pool.",
			}, func() float64 {
				total, _ := pool.PoolStats()
				return float64(total)
			}),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: "database",
				Name:      "pool_available",
				Help:      "Open store pool connections not currently in use.",
			}, func() float64 {
				total, acquired := pool.PoolStats()
				return float64(total - acquired)
			}),
		)
	}
	if keys != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "ratelimit",
			Name:      "tracked_keys",
			Help:      "Client keys held by the admission controller.",
		}, func() float64 {
			return float64(keys.Keys())
		}))
	}
}

// MetricsHandler serves the Prometheus exposition format for g.
func MetricsHandler(g prometheus.Gatherer) gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}
