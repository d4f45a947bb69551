// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Mention discovery metrics
	MentionsDiscovered  *prometheus.CounterVec
	MentionsProcessed   *prometheus.CounterVec
	SourceFailures      *prometheus.CounterVec
	FailoverActivations prometheus.Counter

	// Trade metrics
	TradesRequested prometheus.Counter
	TradesExecuted  *prometheus.CounterVec
	SwapLatency     prometheus.Histogram

	// Publish metrics
	PublishesTotal *prometheus.CounterVec

	// Colony metrics
	InteractionsTotal *prometheus.CounterVec

	// Credential metrics
	CredentialRefreshes *prometheus.CounterVec
	AgentsPaused        prometheus.Counter

	// Loop health metrics
	CycleDuration    *prometheus.HistogramVec
	CyclePanics      *prometheus.CounterVec
	LastCycleSuccess *prometheus.GaugeVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "agent_colony"
	}

	return &Metrics{
		// Mention discovery metrics
		MentionsDiscovered: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mentions",
			Name:      "discovered_total",
			Help:      "Total number of mentions discovered by source",
		}, []string{"source"}),
		MentionsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mentions",
			Name:      "processed_total",
			Help:      "Total number of mentions processed by outcome",
		}, []string{"outcome"}),
		SourceFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mentions",
			Name:      "source_failures_total",
			Help:      "Total number of mention source fetch failures by source",
		}, []string{"source"}),
		FailoverActivations: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mentions",
			Name:      "failover_activations_total",
			Help:      "Total number of primary-source cooldown activations",
		}),

		// Trade metrics
		TradesRequested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trades",
			Name:      "requested_total",
			Help:      "Total number of controller trade commands accepted",
		}),
		TradesExecuted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trades",
			Name:      "executed_total",
			Help:      "Total number of executed trades by terminal status",
		}, []string{"status"}),
		SwapLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "trades",
			Name:      "swap_latency_seconds",
			Help:      "Swap execution latency in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 90},
		}),

		// Publish metrics
		PublishesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publish",
			Name:      "posts_total",
			Help:      "Total number of autonomous publish attempts by status",
		}, []string{"status"}),

		// Colony metrics
		InteractionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "colony",
			Name:      "interactions_total",
			Help:      "Total number of colony interactions by flavor",
		}, []string{"flavor"}),

		// Credential metrics
		CredentialRefreshes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "credentials",
			Name:      "refreshes_total",
			Help:      "Total number of credential refresh attempts by result",
		}, []string{"result"}),
		AgentsPaused: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "credentials",
			Name:      "agents_paused_total",
			Help:      "Total number of agents paused on refresh exhaustion",
		}),

		// Loop health metrics
		CycleDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "cycle_duration_seconds",
			Help:      "Loop cycle duration in seconds by loop",
			Buckets:   prometheus.DefBuckets,
		}, []string{"loop"}),
		CyclePanics: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "cycle_panics_total",
			Help:      "Total number of recovered loop panics by loop",
		}, []string{"loop"}),
		LastCycleSuccess: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "last_cycle_timestamp_seconds",
			Help:      "Unix timestamp of the last completed cycle by loop",
		}, []string{"loop"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordMentionsDiscovered adds discovered mentions for a source.
func RecordMentionsDiscovered(source string, count int) {
	DefaultMetrics.MentionsDiscovered.WithLabelValues(source).Add(float64(count))
}

// RecordMentionProcessed increments the processed counter for an outcome.
func RecordMentionProcessed(outcome string) {
	DefaultMetrics.MentionsProcessed.WithLabelValues(outcome).Inc()
}

// RecordSourceFailure records a mention source fetch failure.
func RecordSourceFailure(source string) {
	DefaultMetrics.SourceFailures.WithLabelValues(source).Inc()
}

// RecordFailoverActivation records a primary-source cooldown activation.
func RecordFailoverActivation() {
	DefaultMetrics.FailoverActivations.Inc()
}

// RecordTradeRequested increments the accepted trade command counter.
func RecordTradeRequested() {
	DefaultMetrics.TradesRequested.Inc()
}

// RecordTradeExecuted records a terminal trade by status.
func RecordTradeExecuted(status string, latencySeconds float64) {
	DefaultMetrics.TradesExecuted.WithLabelValues(status).Inc()
	DefaultMetrics.SwapLatency.Observe(latencySeconds)
}

// RecordPublish records an autonomous publish attempt by status.
func RecordPublish(status string) {
	DefaultMetrics.PublishesTotal.WithLabelValues(status).Inc()
}

// RecordInteraction records a colony interaction by flavor.
func RecordInteraction(flavor string) {
	DefaultMetrics.InteractionsTotal.WithLabelValues(flavor).Inc()
}

// RecordCredentialRefresh records a refresh attempt result.
func RecordCredentialRefresh(result string) {
	DefaultMetrics.CredentialRefreshes.WithLabelValues(result).Inc()
}

// RecordAgentPaused increments the paused-agent counter.
func RecordAgentPaused() {
	DefaultMetrics.AgentsPaused.Inc()
}

// RecordCycle records one completed loop cycle.
func RecordCycle(loop string, seconds float64) {
	DefaultMetrics.CycleDuration.WithLabelValues(loop).Observe(seconds)
	DefaultMetrics.LastCycleSuccess.WithLabelValues(loop).SetToCurrentTime()
}

// RecordCyclePanic records a recovered loop panic.
func RecordCyclePanic(loop string) {
	DefaultMetrics.CyclePanics.WithLabelValues(loop).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
