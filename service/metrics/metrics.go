package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the wallet core.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
type Metrics struct {
	// Solana RPC Metrics
	rpcCallsTotal   *prometheus.CounterVec
	rpcCallDuration *prometheus.HistogramVec

	// Synchronizer Metrics
	balanceRefreshesTotal *prometheus.CounterVec
	historyRefreshesTotal *prometheus.CounterVec
	recordsResolvedTotal  *prometheus.CounterVec
	historyBatchSize      prometheus.Histogram

	// Transfer Metrics
	transfersTotal   *prometheus.CounterVec
	transferDuration prometheus.Histogram

	// HTTP Metrics
	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec

	// Event publishing Metrics
	eventsPublishedTotal *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		rpcCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_calls_total",
				Help: "Total number of Solana RPC calls by method and status",
			},
			[]string{"method", "status"},
		),
		rpcCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_call_duration_seconds",
				Help:    "Duration of Solana RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method"},
		),

		balanceRefreshesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "balance_refreshes_total",
				Help: "Total number of balance refresh operations by outcome",
			},
			[]string{"status"},
		),
		historyRefreshesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "history_refreshes_total",
				Help: "Total number of history refresh operations by outcome",
			},
			[]string{"status"},
		),
		recordsResolvedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "history_records_resolved_total",
				Help: "Total number of signatures resolved to records by outcome",
			},
			[]string{"outcome"},
		),
		historyBatchSize: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "history_signatures_per_refresh",
				Help:    "Number of signatures fetched per history refresh",
				Buckets: []float64{1, 5, 10, 25, 50, 100},
			},
		),

		transfersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transfers_total",
				Help: "Total number of transfer attempts by outcome",
			},
			[]string{"outcome"},
		),
		transferDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "transfer_duration_seconds",
				Help:    "Duration of transfer submission (validation through signing) in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120},
			},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),

		eventsPublishedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_events_published_total",
				Help: "Total number of wallet events published to NATS",
			},
			[]string{"subject", "status"},
		),
	}
}

// RecordRPCCall records a Solana RPC call with duration.
func (m *Metrics) RecordRPCCall(method, status string, duration float64) {
	m.rpcCallsTotal.WithLabelValues(method, status).Inc()
	m.rpcCallDuration.WithLabelValues(method).Observe(duration)
}

// RecordBalanceRefresh records a balance refresh outcome.
func (m *Metrics) RecordBalanceRefresh(status string) {
	m.balanceRefreshesTotal.WithLabelValues(status).Inc()
}

// RecordHistoryRefresh records a history refresh outcome and signature count.
func (m *Metrics) RecordHistoryRefresh(status string, signatures int) {
	m.historyRefreshesTotal.WithLabelValues(status).Inc()
	m.historyBatchSize.Observe(float64(signatures))
}

// RecordRecordResolved records the outcome of resolving one signature.
func (m *Metrics) RecordRecordResolved(outcome string) {
	m.recordsResolvedTotal.WithLabelValues(outcome).Inc()
}

// RecordTransfer records a transfer attempt outcome with duration.
func (m *Metrics) RecordTransfer(outcome string, duration float64) {
	m.transfersTotal.WithLabelValues(outcome).Inc()
	m.transferDuration.Observe(duration)
}

// RecordHTTPRequest records an HTTP request with duration.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	status := statusCodeToString(statusCode)
	m.httpRequestDuration.WithLabelValues(handler, method, status).Observe(duration)
	m.httpRequestsTotal.WithLabelValues(handler, method, status).Inc()
}

// RecordEventPublished records a NATS publish outcome.
func (m *Metrics) RecordEventPublished(subject, status string) {
	m.eventsPublishedTotal.WithLabelValues(subject, status).Inc()
}

func statusCodeToString(code int) string {
	// Group status codes by class
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "unknown"
	}
}
