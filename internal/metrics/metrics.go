package metrics

import (
	"strconv"

	"github.com/alitto/pond/v2"
	"github.com/dlmiddlecote/sqlstats"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
)

type MetricsService interface {
	RegisterPoolMetrics(channel string, pool pond.Pool)
	GetRegistry() *prometheus.Registry
	// RPC transport metrics
	IncRPCRequests(endpoint string)
	ObserveRPCRequestDuration(endpoint string, duration float64)
	IncRPCEndpointFailure(endpoint string)
	IncRPCEndpointSuccess(endpoint string)
	SetRPCServiceHealth(healthy bool)
	SetRPCLatestLedger(ledger int64)
	// RPC method-level metrics
	IncRPCMethodCalls(method string)
	ObserveRPCMethodDuration(method string, duration float64)
	IncRPCMethodErrors(method, errorType string)
	// HTTP
	IncNumRequests(endpoint, method string, statusCode int)
	ObserveRequestDuration(endpoint, method string, duration float64)
	// DB
	ObserveDBQueryDuration(queryType, table string, duration float64)
	IncDBQuery(queryType, table string)
	IncDBQueryError(queryType, table, errorType string)
	// Token economy
	IncWalletsCreated(ownerKind string)
	IncTokenOperation(operation, outcome string)
	IncFallbackDelivery(ownerKind string)
	IncProofSubmission(kind, outcome string)
	IncEconomyEvent(event, outcome string)
}

type metricsService struct {
	registry *prometheus.Registry
	db       *sqlx.DB

	rpcRequestsTotal     *prometheus.CounterVec
	rpcRequestsDuration  *prometheus.SummaryVec
	rpcEndpointFailures  *prometheus.CounterVec
	rpcEndpointSuccesses *prometheus.CounterVec
	rpcServiceHealth     prometheus.Gauge
	rpcLatestLedger      prometheus.Gauge

	rpcMethodCallsTotal  *prometheus.CounterVec
	rpcMethodDuration    *prometheus.SummaryVec
	rpcMethodErrorsTotal *prometheus.CounterVec

	numRequestsTotal *prometheus.CounterVec
	requestsDuration *prometheus.SummaryVec

	dbQueryDuration *prometheus.SummaryVec
	dbQueriesTotal  *prometheus.CounterVec
	dbQueryErrors   *prometheus.CounterVec

	walletsCreatedTotal     *prometheus.CounterVec
	tokenOperationsTotal    *prometheus.CounterVec
	fallbackDeliveriesTotal *prometheus.CounterVec
	proofSubmissionsTotal   *prometheus.CounterVec
	economyEventsTotal      *prometheus.CounterVec
}

var summaryObjectives = map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001}

func counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labels)
}

func summaryVec(name, help string, labels ...string) *prometheus.SummaryVec {
	return prometheus.NewSummaryVec(prometheus.SummaryOpts{Name: name, Help: help, Objectives: summaryObjectives}, labels)
}

// NewMetricsService builds every collector on a private registry. The database pool stats are registered too.
func NewMetricsService(db *sqlx.DB) MetricsService {
	m := &metricsService{
		registry: prometheus.NewRegistry(),
		db:       db,

		rpcRequestsTotal:     counterVec("rpc_requests_total", "Total number of RPC requests", "endpoint"),
		rpcRequestsDuration:  summaryVec("rpc_requests_duration_seconds", "Duration of RPC requests in seconds", "endpoint"),
		rpcEndpointFailures:  counterVec("rpc_endpoint_failures_total", "Total number of RPC endpoint failures", "endpoint"),
		rpcEndpointSuccesses: counterVec("rpc_endpoint_successes_total", "Total number of successful RPC requests", "endpoint"),
		rpcServiceHealth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rpc_service_health",
			Help: "1 when the last RPC health check succeeded, 0 otherwise",
		}),
		rpcLatestLedger: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rpc_latest_ledger",
			Help: "Latest ledger sequence reported by the RPC service",
		}),

		rpcMethodCallsTotal:  counterVec("rpc_method_calls_total", "Total number of ledger client calls", "method"),
		rpcMethodDuration:    summaryVec("rpc_method_duration_seconds", "Duration of ledger client calls in seconds", "method"),
		rpcMethodErrorsTotal: counterVec("rpc_method_errors_total", "Total number of failed ledger client calls", "method", "error_type"),

		numRequestsTotal: counterVec("num_requests_total", "Total number of HTTP requests", "endpoint", "method", "status"),
		requestsDuration: summaryVec("requests_duration_seconds", "Duration of HTTP requests in seconds", "endpoint", "method"),

		dbQueryDuration: summaryVec("db_query_duration_seconds", "Duration of database queries in seconds", "query_type", "table"),
		dbQueriesTotal:  counterVec("db_queries_total", "Total number of database queries", "query_type", "table"),
		dbQueryErrors:   counterVec("db_query_errors_total", "Total number of failed database queries", "query_type", "table", "error_type"),

		walletsCreatedTotal:     counterVec("wallets_created_total", "Total number of custodial wallets created", "owner_kind"),
		tokenOperationsTotal:    counterVec("token_operations_total", "Total number of token ledger operations by outcome", "operation", "outcome"),
		fallbackDeliveriesTotal: counterVec("wallet_fallback_deliveries_total", "Total number of mint deliveries that took the operator-signed fallback path", "owner_kind"),
		proofSubmissionsTotal:   counterVec("proof_submissions_total", "Total number of proof topic submissions by outcome", "kind", "outcome"),
		economyEventsTotal:      counterVec("economy_events_total", "Total number of orchestrated economy events by outcome", "event", "outcome"),
	}

	m.registry.MustRegister(
		sqlstats.NewStatsCollector("smiles-wallet-db", m.db),
		m.rpcRequestsTotal, m.rpcRequestsDuration, m.rpcEndpointFailures, m.rpcEndpointSuccesses,
		m.rpcServiceHealth, m.rpcLatestLedger,
		m.rpcMethodCallsTotal, m.rpcMethodDuration, m.rpcMethodErrorsTotal,
		m.numRequestsTotal, m.requestsDuration,
		m.dbQueryDuration, m.dbQueriesTotal, m.dbQueryErrors,
		m.walletsCreatedTotal, m.tokenOperationsTotal, m.fallbackDeliveriesTotal,
		m.proofSubmissionsTotal, m.economyEventsTotal,
	)
	return m
}

// RegisterPoolMetrics exposes the state of a worker pool under the given channel label.
func (m *metricsService) RegisterPoolMetrics(channel string, pool pond.Pool) {
	labels := prometheus.Labels{"channel": channel}
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: "pool_workers_running", Help: "Number of running worker goroutines", ConstLabels: labels},
			func() float64 { return float64(pool.RunningWorkers()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{Name: "pool_tasks_submitted_total", Help: "Number of tasks submitted", ConstLabels: labels},
			func() float64 { return float64(pool.SubmittedTasks()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: "pool_tasks_waiting", Help: "Number of tasks waiting in the queue", ConstLabels: labels},
			func() float64 { return float64(pool.WaitingTasks()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{Name: "pool_tasks_failed_total", Help: "Number of tasks that completed with an error", ConstLabels: labels},
			func() float64 { return float64(pool.FailedTasks()) }),
	)
}

func (m *metricsService) GetRegistry() *prometheus.Registry {
	return m.registry
}

// RPC Service Metrics
func (m *metricsService) IncRPCRequests(endpoint string) {
	m.rpcRequestsTotal.WithLabelValues(endpoint).Inc()
}

func (m *metricsService) ObserveRPCRequestDuration(endpoint string, duration float64) {
	m.rpcRequestsDuration.WithLabelValues(endpoint).Observe(duration)
}

func (m *metricsService) IncRPCEndpointFailure(endpoint string) {
	m.rpcEndpointFailures.WithLabelValues(endpoint).Inc()
}

func (m *metricsService) IncRPCEndpointSuccess(endpoint string) {
	m.rpcEndpointSuccesses.WithLabelValues(endpoint).Inc()
}

func (m *metricsService) SetRPCServiceHealth(healthy bool) {
	var v float64
	if healthy {
		v = 1
	}
	m.rpcServiceHealth.Set(v)
}

func (m *metricsService) SetRPCLatestLedger(ledger int64) {
	m.rpcLatestLedger.Set(float64(ledger))
}

// RPC Method Metrics (application-level)
func (m *metricsService) IncRPCMethodCalls(method string) {
	m.rpcMethodCallsTotal.WithLabelValues(method).Inc()
}

func (m *metricsService) ObserveRPCMethodDuration(method string, duration float64) {
	m.rpcMethodDuration.WithLabelValues(method).Observe(duration)
}

func (m *metricsService) IncRPCMethodErrors(method, errorType string) {
	m.rpcMethodErrorsTotal.WithLabelValues(method, errorType).Inc()
}

// HTTP Request Metrics
func (m *metricsService) IncNumRequests(endpoint, method string, statusCode int) {
	m.numRequestsTotal.WithLabelValues(endpoint, method, strconv.Itoa(statusCode)).Inc()
}

func (m *metricsService) ObserveRequestDuration(endpoint, method string, duration float64) {
	m.requestsDuration.WithLabelValues(endpoint, method).Observe(duration)
}

// DB Query Metrics
func (m *metricsService) ObserveDBQueryDuration(queryType, table string, duration float64) {
	m.dbQueryDuration.WithLabelValues(queryType, table).Observe(duration)
}

func (m *metricsService) IncDBQuery(queryType, table string) {
	m.dbQueriesTotal.WithLabelValues(queryType, table).Inc()
}

func (m *metricsService) IncDBQueryError(queryType, table, errorType string) {
	m.dbQueryErrors.WithLabelValues(queryType, table, errorType).Inc()
}

// Token Economy Metrics
func (m *metricsService) IncWalletsCreated(ownerKind string) {
	m.walletsCreatedTotal.WithLabelValues(ownerKind).Inc()
}

func (m *metricsService) IncTokenOperation(operation, outcome string) {
	m.tokenOperationsTotal.WithLabelValues(operation, outcome).Inc()
}

func (m *metricsService) IncFallbackDelivery(ownerKind string) {
	m.fallbackDeliveriesTotal.WithLabelValues(ownerKind).Inc()
}

func (m *metricsService) IncProofSubmission(kind, outcome string) {
	m.proofSubmissionsTotal.WithLabelValues(kind, outcome).Inc()
}

func (m *metricsService) IncEconomyEvent(event, outcome string) {
	m.economyEventsTotal.WithLabelValues(event, outcome).Inc()
}
