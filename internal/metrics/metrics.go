// Package metrics exposes Prometheus collectors for the HTTP surface and
// the intake workflows.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build as many as they need.
type Metrics struct {
	Registry *prometheus.Registry
	service  string

	requests       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	statusCategory *prometheus.CounterVec

	intakes       *prometheus.CounterVec
	casesOpened   *prometheus.CounterVec
	compensations *prometheus.CounterVec
}

func New(service string) *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		service:  service,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"service", "method", "path", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"service", "method", "path", "status"}),
		statusCategory: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_status_category_total",
			Help: "Responses by status category (2xx, 4xx, 5xx)",
		}, []string{"service", "category"}),
		intakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clinic_intakes_total",
			Help: "Consultation intakes by variant and outcome",
		}, []string{"variant", "outcome"}),
		casesOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clinic_social_work_cases_opened_total",
			Help: "Social-work cases opened, by what triggered them",
		}, []string{"trigger"}),
		compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clinic_intake_compensations_total",
			Help: "Compensating client deletes after failed intakes",
		}, []string{"outcome"}),
	}
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.duration, m.statusCategory,
		m.intakes, m.casesOpened, m.compensations,
	)
	return m
}

// Middleware records request count, latency and status category per route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()
		statusStr := strconv.Itoa(status)
		method := c.Request.Method

		m.requests.WithLabelValues(m.service, method, path, statusStr).Inc()
		m.duration.WithLabelValues(m.service, method, path, statusStr).Observe(time.Since(start).Seconds())
		if cat := category(status); cat != "" {
			m.statusCategory.WithLabelValues(m.service, cat).Inc()
		}
	}
}

func category(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500 && status < 600:
		return "5xx"
	default:
		return ""
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) IntakeFinished(variant string, err error) {
	m.intakes.WithLabelValues(variant, outcome(err)).Inc()
}

func (m *Metrics) SocialWorkOpened(trigger string) {
	m.casesOpened.WithLabelValues(trigger).Inc()
}

func (m *Metrics) Compensated(err error) {
	m.compensations.WithLabelValues(outcome(err)).Inc()
}
