package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "expense_approval"

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics holds the service collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry                *prometheus.Registry
	httpRequests            *prometheus.CounterVec
	httpDuration            *prometheus.HistogramVec
	expenseTransitions      *prometheus.CounterVec
	approvalLimitRejections prometheus.Counter
	notificationDeliveries  *prometheus.CounterVec
}

// New registers the collectors on a fresh registry together with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		expenseTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expense_transitions_total",
			Help:      "Expense status transitions committed, by source and target status.",
		}, []string{"from", "to"}),
		approvalLimitRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expense_approval_limit_rejections_total",
			Help:      "Decisions refused because the total exceeded the approver's limit.",
		}),
		notificationDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_deliveries_total",
			Help:      "Notification delivery attempts by kind and result.",
		}, []string{"kind", "result"}),
	}

	reg.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.expenseTransitions,
		m.approvalLimitRejections,
		m.notificationDeliveries,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.expenseTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) ObserveApprovalLimitRejection() {
	if m == nil {
		return
	}
	m.approvalLimitRejections.Inc()
}

func (m *Metrics) ObserveDelivery(kind string, err error) {
	if m == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	m.notificationDeliveries.WithLabelValues(kind, result).Inc()
}

// ExpenseTransitions exposes the collector for assertions.
func (m *Metrics) ExpenseTransitions() *prometheus.CounterVec {
	return m.expenseTransitions
}

// NotificationDeliveries exposes the collector for assertions.
func (m *Metrics) NotificationDeliveries() *prometheus.CounterVec {
	return m.notificationDeliveries
}

// ApprovalLimitRejections exposes the collector for assertions.
func (m *Metrics) ApprovalLimitRejections() prometheus.Counter {
	return m.approvalLimitRejections
}
