// Package metrics exposes Prometheus collectors for the tracker.
package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "budgetlog"

type Metrics struct {
	Commands            *prometheus.CounterVec
	PersistenceFailures *prometheus.CounterVec
	Transactions        prometheus.Gauge
	Notifications       *prometheus.CounterVec

	RequestDuration *prometheus.HistogramVec
	RateLimited     prometheus.Counter
	Suspicious      prometheus.Counter
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered, which tests use to avoid global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands handled, by kind and outcome.",
		}, []string{"command", "outcome"}),
		PersistenceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_failures_total",
			Help:      "Failed reads or writes of the durable slot.",
		}, []string{"op"}),
		Transactions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "transactions",
			Help:      "Records currently in the store.",
		}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notifications published, by result.",
		}, []string{"result"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency, by method, route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
		Suspicious: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "suspicious_requests_total",
			Help:      "Requests that looked like scanner probes.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Commands, m.PersistenceFailures, m.Transactions, m.Notifications,
			m.RequestDuration, m.RateLimited, m.Suspicious)
	}
	return m
}

func (m *Metrics) ObserveCommand(command, outcome string) {
	if m == nil {
		return
	}
	m.Commands.WithLabelValues(command, outcome).Inc()
}

func (m *Metrics) ObservePersistenceFailure(op string) {
	if m == nil {
		return
	}
	m.PersistenceFailures.WithLabelValues(op).Inc()
}

func (m *Metrics) SetTransactions(n int) {
	if m == nil {
		return
	}
	m.Transactions.Set(float64(n))
}

func (m *Metrics) ObserveNotification(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.Notifications.WithLabelValues(result).Inc()
}

// ObserveRequest records one completed HTTP request. Numeric path segments are
// folded into "{id}" to keep the route label bounded.
func (m *Metrics) ObserveRequest(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(method, Route(path), strconv.Itoa(status)).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveRateLimited() {
	if m == nil {
		return
	}
	m.RateLimited.Inc()
}

func (m *Metrics) ObserveSuspicious() {
	if m == nil {
		return
	}
	m.Suspicious.Inc()
}

// Route normalizes a request path for use as a label.
func Route(path string) string {
	if strings.HasPrefix(path, "/static/") {
		return "/static/"
	}
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if p == "" {
			continue
		}
		if _, err := strconv.ParseInt(p, 10, 64); err == nil {
			parts[i] = "{id}"
		}
	}
	return strings.Join(parts, "/")
}
