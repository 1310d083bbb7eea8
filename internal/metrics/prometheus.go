package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wtclient"

// Submission outcomes.
const (
	OutcomeSettled  = "settled"
	OutcomeReverted = "reverted"
	OutcomeTimeout  = "timeout"
	OutcomeFailed   = "failed"
)

// Collector records ledger client activity in a dedicated Prometheus
// registry. A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	submissions        *prometheus.CounterVec
	submissionDuration *prometheus.HistogramVec
	gasBudget          *prometheus.HistogramVec
	gasUsed            *prometheus.HistogramVec
	estimationFailures *prometheus.CounterVec
	logQueries         *prometheus.CounterVec
	logsFetched        *prometheus.CounterVec
	reconcileDuration  *prometheus.HistogramVec
	outstanding        prometheus.Gauge
	rpcErrors          *prometheus.CounterVec
	reconnects         prometheus.Counter
	startTime          time.Time
}

var gasBuckets = prometheus.ExponentialBuckets(21000, 2, 10)

// NewCollector creates a Collector with its own registry so it does not
// interfere with the default global registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Transactions submitted by method and outcome.",
		}, []string{"method", "outcome"}),
		submissionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "submission_duration_seconds",
			Help:      "Time from signing to inclusion.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 15, 30, 60, 120, 300},
		}, []string{"method"}),
		gasBudget: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gas_budget",
			Help:      "Gas limit attached to submissions.",
			Buckets:   gasBuckets,
		}, []string{"method"}),
		gasUsed: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gas_used",
			Help:      "Gas consumed by included submissions.",
			Buckets:   gasBuckets,
		}, []string{"method"}),
		estimationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "estimation_failures_total",
			Help:      "Gas estimations refused by the node.",
		}, []string{"method"}),
		logQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_queries_total",
			Help:      "Historical log queries by event.",
		}, []string{"event"}),
		logsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logs_fetched_total",
			Help:      "Logs returned by historical queries by event.",
		}, []string{"event"}),
		reconcileDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of booking reconciliation queries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"query"}),
		outstanding: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outstanding_requests",
			Help:      "Booking requests awaiting confirmation in the last reconciliation.",
		}),
		rpcErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_errors_total",
			Help:      "Failed RPC calls by endpoint.",
		}, []string{"endpoint"}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watcher_reconnects_total",
			Help:      "Event subscription reconnects.",
		}),
		startTime: time.Now(),
	}

	uptime := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "uptime_seconds",
		Help:      "Time since the collector was created.",
	}, func() float64 { return time.Since(c.startTime).Seconds() })

	c.registry.MustRegister(
		c.submissions, c.submissionDuration, c.gasBudget, c.gasUsed,
		c.estimationFailures, c.logQueries, c.logsFetched, c.reconcileDuration,
		c.outstanding, c.rpcErrors, c.reconnects, uptime,
	)
	return c
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// RecordSubmission records the outcome of one submitted transaction.
func (c *Collector) RecordSubmission(method, outcome string, gasUsed uint64, d time.Duration) {
	if c == nil {
		return
	}
	c.submissions.WithLabelValues(method, outcome).Inc()
	if outcome == OutcomeSettled || outcome == OutcomeReverted {
		c.submissionDuration.WithLabelValues(method).Observe(d.Seconds())
		c.gasUsed.WithLabelValues(method).Observe(float64(gasUsed))
	}
}

// RecordGasBudget records the gas limit chosen for a submission.
func (c *Collector) RecordGasBudget(method string, budget uint64) {
	if c == nil {
		return
	}
	c.gasBudget.WithLabelValues(method).Observe(float64(budget))
}

// RecordEstimationFailure counts a refused gas estimation.
func (c *Collector) RecordEstimationFailure(method string) {
	if c == nil {
		return
	}
	c.estimationFailures.WithLabelValues(method).Inc()
}

// RecordLogQuery counts a historical log query and its result size.
func (c *Collector) RecordLogQuery(event string, logs int) {
	if c == nil {
		return
	}
	c.logQueries.WithLabelValues(event).Inc()
	c.logsFetched.WithLabelValues(event).Add(float64(logs))
}

// RecordReconcile records the duration of a reconciliation query.
func (c *Collector) RecordReconcile(query string, d time.Duration) {
	if c == nil {
		return
	}
	c.reconcileDuration.WithLabelValues(query).Observe(d.Seconds())
}

// SetOutstanding publishes the size of the last outstanding-request set.
func (c *Collector) SetOutstanding(n int) {
	if c == nil {
		return
	}
	c.outstanding.Set(float64(n))
}

// RecordRPCError counts a failed call against an endpoint.
func (c *Collector) RecordRPCError(endpoint string) {
	if c == nil {
		return
	}
	c.rpcErrors.WithLabelValues(endpoint).Inc()
}

// RecordReconnect counts an event subscription reconnect.
func (c *Collector) RecordReconnect() {
	if c == nil {
		return
	}
	c.reconnects.Inc()
}

// Handler serves the registry in the Prometheus text exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
