package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/usagereg/usagereg/internal/catalog"
	jobmetrics "github.com/usagereg/usagereg/internal/jobs"
	"github.com/usagereg/usagereg/internal/shared"
)

var syncStates = []string{"idle", "checking-config", "connecting", "connected", "degraded"}

// Metrics collects the Prometheus metrics of the process.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	writes          *prometheus.CounterVec
	refreshes       *prometheus.CounterVec
	pushes          *prometheus.CounterVec
	state           *prometheus.GaugeVec
	jobs            *jobmetrics.Metrics
}

// NewMetrics initialises the registry with the HTTP, synchronizer and job metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "usagereg_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "usagereg_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	writes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "usagereg_sync_writes_total",
		Help: "Remote writes by entity, operation and result kind.",
	}, []string{"entity", "op", "result"})
	refreshes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "usagereg_sync_refreshes_total",
		Help: "Collection re-reads by entity, trigger and result kind.",
	}, []string{"entity", "source", "result"})
	pushes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "usagereg_sync_pushes_total",
		Help: "Change notifications received per entity.",
	}, []string{"entity"})
	state := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "usagereg_sync_state",
		Help: "1 for the current synchronizer state, 0 otherwise.",
	}, []string{"state"})
	registry.MustRegister(requests, duration, writes, refreshes, pushes, state)
	for _, s := range syncStates {
		state.WithLabelValues(s).Set(0)
	}
	state.WithLabelValues("idle").Set(1)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		writes:          writes,
		refreshes:       refreshes,
		pushes:          pushes,
		state:           state,
		jobs:            jobmetrics.NewMetrics(registry),
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer exposes the registry for custom collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// Jobs returns the background job collectors registered on this registry.
func (m *Metrics) Jobs() *jobmetrics.Metrics {
	if m == nil {
		return nil
	}
	return m.jobs
}

func result(err error) string {
	if err == nil {
		return "ok"
	}
	return string(shared.KindOf(err))
}

// ObserveWrite counts a remote write.
func (m *Metrics) ObserveWrite(entity catalog.Entity, op string, err error) {
	m.writes.WithLabelValues(string(entity), op, result(err)).Inc()
}

// ObserveRefresh counts a collection re-read.
func (m *Metrics) ObserveRefresh(entity catalog.Entity, source string, err error) {
	m.refreshes.WithLabelValues(string(entity), source, result(err)).Inc()
}

// ObservePush counts a change notification.
func (m *Metrics) ObservePush(entity catalog.Entity) {
	m.pushes.WithLabelValues(string(entity)).Inc()
}

// ObserveState flips the state gauge.
func (m *Metrics) ObserveState(state string) {
	for _, s := range syncStates {
		v := 0.0
		if s == state {
			v = 1
		}
		m.state.WithLabelValues(s).Set(v)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
