package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	settlementsTotal  *prometheus.CounterVec
	settlementAmount  prometheus.Counter
	chargesTotal      prometheus.Counter
	chargeAmount      prometheus.Counter
	ledgerDriftsTotal prometheus.Counter
}

// NewMetrics initialises the registry and base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sariverse_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sariverse_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	settlements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sariverse_settlements_total",
		Help: "Successful debtor settlements, partial vs full.",
	}, []string{"kind"})
	settlementAmount := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sariverse_settlement_amount_total",
		Help: "Sum of settled payment amounts.",
	})
	charges := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sariverse_debtor_charges_total",
		Help: "Product charges applied to debtor accounts.",
	})
	chargeAmount := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sariverse_debtor_charge_amount_total",
		Help: "Sum of charge totals applied to debtor balances.",
	})
	drifts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sariverse_ledger_drift_total",
		Help: "Ledger records that failed or reconciled to a drift.",
	})

	registry.MustRegister(requests, duration, settlements, settlementAmount, charges, chargeAmount, drifts)
	return &Metrics{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:     requests,
		requestDuration:   duration,
		settlementsTotal:  settlements,
		settlementAmount:  settlementAmount,
		chargesTotal:      charges,
		chargeAmount:      chargeAmount,
		ledgerDriftsTotal: drifts,
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

// SettlementApplied records a successful settlement.
func (m *Metrics) SettlementApplied(amount float64, full bool) {
	if m == nil {
		return
	}
	kind := "partial"
	if full {
		kind = "full"
	}
	m.settlementsTotal.WithLabelValues(kind).Inc()
	m.settlementAmount.Add(amount)
}

// ChargeApplied records a successful debtor charge.
func (m *Metrics) ChargeApplied(amount float64) {
	if m == nil {
		return
	}
	m.chargesTotal.Inc()
	m.chargeAmount.Add(amount)
}

// LedgerDriftDetected flags a reconciliation problem.
func (m *Metrics) LedgerDriftDetected() {
	if m == nil {
		return
	}
	m.ledgerDriftsTotal.Inc()
}

// Registerer exposes the registry for custom metric registration.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
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
