package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	deviceAuth      *prometheus.CounterVec
	deviceOps       *prometheus.CounterVec
	authEvents      *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hub_http_requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hub_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		deviceAuth: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hub_device_auth_total",
			Help: "Device authentication attempts by result.",
		}, []string{"result"}),
		deviceOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hub_device_operations_total",
			Help: "Device registrations and links by result.",
		}, []string{"operation", "result"}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hub_auth_events_total",
			Help: "User authentication events.",
		}, []string{"event"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestDuration,
		m.deviceAuth,
		m.deviceOps,
		m.authEvents,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) DeviceAuth(result string) {
	m.deviceAuth.WithLabelValues(result).Inc()
}

func (m *Metrics) DeviceOperation(operation, result string) {
	m.deviceOps.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) AuthEvent(event string) {
	m.authEvents.WithLabelValues(event).Inc()
}
