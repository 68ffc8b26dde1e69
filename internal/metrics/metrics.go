// Package metrics collects and exposes Prometheus metrics for the auth endpoints.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Login outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeInvalid   = "invalid_request"
	OutcomeRejected  = "rejected"
	OutcomeUnhandled = "error"
)

// Recorder is the metrics surface used by the HTTP layer.
type Recorder interface {
	RecordLogin(platform, outcome string)
	RecordLoginLatency(duration time.Duration)
	RecordGuardRejection(reason string)
	RecordHTTPStatus(statusCode int)
}

// Collector records metrics into a Prometheus registry.
type Collector struct {
	logins       *prometheus.CounterVec
	loginLatency prometheus.Histogram
	guardRejects *prometheus.CounterVec
	httpStatus   *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sessiongate_logins_total",
			Help: "Login attempts by platform and outcome.",
		}, []string{"platform", "outcome"}),
		loginLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sessiongate_login_duration_seconds",
			Help:    "Time spent handling a login, including provider verification.",
			Buckets: prometheus.DefBuckets,
		}),
		guardRejects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sessiongate_guard_rejections_total",
			Help: "Requests rejected by the session guard, by reason.",
		}, []string{"reason"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sessiongate_http_status_total",
			Help: "HTTP responses by status code.",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.logins,
		c.loginLatency,
		c.guardRejects,
		c.httpStatus,
	)

	return c
}

// RecordLogin counts a login attempt.
func (c *Collector) RecordLogin(platform, outcome string) {
	if platform == "" {
		platform = "unknown"
	}
	c.logins.WithLabelValues(platform, outcome).Inc()
}

// RecordLoginLatency observes how long a login took.
func (c *Collector) RecordLoginLatency(duration time.Duration) {
	c.loginLatency.Observe(duration.Seconds())
}

// RecordGuardRejection counts a request turned away by the session guard.
func (c *Collector) RecordGuardRejection(reason string) {
	c.guardRejects.WithLabelValues(reason).Inc()
}

// RecordHTTPStatus counts a response by status code.
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything.
type Nop struct{}

// RecordLogin implements Recorder.
func (Nop) RecordLogin(string, string) {}

// RecordLoginLatency implements Recorder.
func (Nop) RecordLoginLatency(time.Duration) {}

// RecordGuardRejection implements Recorder.
func (Nop) RecordGuardRejection(string) {}

// RecordHTTPStatus implements Recorder.
func (Nop) RecordHTTPStatus(int) {}
