package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Fuuurma/FinanceHub-sub001/internal/numeric"
)

const namespace = "analytics"

// Calculation outcomes
const (
	OutcomeOK           = "ok"
	OutcomeInvalid      = "invalid"
	OutcomeInsufficient = "insufficient"
	OutcomeError        = "error"
)

// Metrics holds the Prometheus collectors of the analytics service. A nil
// *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	calculationsTotal   *prometheus.CounterVec
	calculationDuration *prometheus.HistogramVec
	fallbacksTotal      *prometheus.CounterVec

	cacheLookupsTotal *prometheus.CounterVec

	driftAlertsTotal   prometheus.Counter
	eventsPublished    *prometheus.CounterVec
	jobRunsTotal       *prometheus.CounterVec
	jobDuration        *prometheus.HistogramVec
	websocketClients   prometheus.Gauge
	recalcRequestTotal *prometheus.CounterVec
}

// NewMetrics registers every collector on reg. A nil reg gets a fresh
// registry with the Go and process collectors.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		httpRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		calculationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calculations_total",
			Help:      "Calculations by operation and outcome",
		}, []string{"operation", "outcome"}),
		calculationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "calculation_duration_seconds",
			Help:      "Calculation latency by operation",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5, 30},
		}, []string{"operation"}),
		fallbacksTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Calculations answered by a fallback path",
		}, []string{"operation"}),
		cacheLookupsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Report cache lookups by result",
		}, []string{"kind", "result"}),
		driftAlertsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drift_alerts_total",
			Help:      "Portfolios found outside their tolerance bands",
		}),
		eventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Events published by routing key and status",
		}, []string{"routing_key", "status"}),
		jobRunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Scheduled job runs by status",
		}, []string{"job", "status"}),
		jobDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Scheduled job latency",
			Buckets:   []float64{.1, .5, 1, 5, 15, 60, 300},
		}, []string{"job"}),
		websocketClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Connected drift stream clients",
		}),
		recalcRequestTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recalculation_requests_total",
			Help:      "Recalculation requests consumed by status",
		}, []string{"status"}),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordCalculation classifies err into an outcome label
func (m *Metrics) RecordCalculation(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.calculationsTotal.WithLabelValues(operation, Outcome(err)).Inc()
	m.calculationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *Metrics) RecordFallback(operation string) {
	if m == nil {
		return
	}
	m.fallbacksTotal.WithLabelValues(operation).Inc()
}

func (m *Metrics) RecordCacheLookup(kind string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookupsTotal.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) RecordDriftAlert() {
	if m == nil {
		return
	}
	m.driftAlertsTotal.Inc()
}

func (m *Metrics) RecordEventPublished(routingKey string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.eventsPublished.WithLabelValues(routingKey, status).Inc()
}

func (m *Metrics) RecordJobRun(job string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.jobRunsTotal.WithLabelValues(job, status).Inc()
	m.jobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

func (m *Metrics) RecordRecalculation(err error) {
	if m == nil {
		return
	}
	m.recalcRequestTotal.WithLabelValues(Outcome(err)).Inc()
}

func (m *Metrics) SetWebsocketClients(n int) {
	if m == nil {
		return
	}
	m.websocketClients.Set(float64(n))
}

// Outcome maps an error onto a calculation outcome label
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case numeric.KindOf(err) == numeric.InvalidParameter:
		return OutcomeInvalid
	case !numeric.IsFatal(err):
		return OutcomeInsufficient
	default:
		return OutcomeError
	}
}
