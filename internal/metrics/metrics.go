package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	TasksStarted     prometheus.Counter
	TasksSucceeded   prometheus.Counter
	TasksFailed      prometheus.Counter
	TaskRetries      prometheus.Counter
	TasksInFlight    prometheus.Gauge
	TaskDuration     prometheus.Histogram
	LogsFetched      prometheus.Counter
	ProposalsDecoded prometheus.Counter
	DecodeErrors     prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "proposals"
	}
	factory := promauto.With(reg)

	return &Metrics{
		TasksStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatcher",
			Name:      "tasks_started_total",
			Help:      "Tasks taken from the queue",
		}),
		TasksSucceeded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatcher",
			Name:      "tasks_succeeded_total",
			Help:      "Tasks that completed successfully",
		}),
		TasksFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatcher",
			Name:      "tasks_failed_total",
			Help:      "Tasks that exhausted their retries",
		}),
		TaskRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatcher",
			Name:      "task_retries_total",
			Help:      "Retry attempts after a failed task run",
		}),
		TasksInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dispatcher",
			Name:      "tasks_in_flight",
			Help:      "Tasks currently occupying a worker slot",
		}),
		TaskDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatcher",
			Name:      "task_duration_seconds",
			Help:      "Wall time of a task including retries",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		LogsFetched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "logs_fetched_total",
			Help:      "ProposalCreated logs returned by eth_getLogs",
		}),
		ProposalsDecoded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "proposals_decoded_total",
			Help:      "Proposal records decoded and stored",
		}),
		DecodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "decode_errors_total",
			Help:      "Logs that failed to decode",
		}),
	}
}

func (m *Metrics) TaskStarted() {
	if m == nil {
		return
	}
	m.TasksStarted.Inc()
	m.TasksInFlight.Inc()
}

func (m *Metrics) TaskFinished(elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.TasksInFlight.Dec()
	m.TaskDuration.Observe(elapsed.Seconds())
	if err != nil {
		m.TasksFailed.Inc()
		return
	}
	m.TasksSucceeded.Inc()
}

func (m *Metrics) Retry() {
	if m == nil {
		return
	}
	m.TaskRetries.Inc()
}

func (m *Metrics) Fetched(n int) {
	if m == nil {
		return
	}
	m.LogsFetched.Add(float64(n))
}

func (m *Metrics) Decoded(n int) {
	if m == nil {
		return
	}
	m.ProposalsDecoded.Add(float64(n))
}

func (m *Metrics) DecodeFailed() {
	if m == nil {
		return
	}
	m.DecodeErrors.Inc()
}
