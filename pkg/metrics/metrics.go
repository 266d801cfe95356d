package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Cache metrics (C4)
	CacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "raleighsl_cache_hits_total",
			Help: "Total number of object cache lookups that hit",
		},
	)

	CacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "raleighsl_cache_misses_total",
			Help: "Total number of object cache lookups that missed",
		},
	)

	CacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "raleighsl_cache_entries",
			Help: "Current number of entries held in the object cache",
		},
	)

	CacheEvictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "raleighsl_cache_evictions_total",
			Help: "Total number of object cache entries evicted",
		},
	)

	// Dispatcher metrics (C3)
	RunQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "raleighsl_runqueue_depth",
			Help: "Current number of runnable tasks queued at the root run queue",
		},
	)

	DispatcherTasksActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "raleighsl_dispatcher_tasks_active",
			Help: "Number of tasks currently executing across dispatcher workers",
		},
	)

	DispatcherTasksCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "raleighsl_dispatcher_tasks_completed_total",
			Help: "Total number of tasks that ran to completion",
		},
	)

	DispatcherTaskPanics = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "raleighsl_dispatcher_task_panics_total",
			Help: "Total number of tasks dropped after a panic during Resume",
		},
	)

	// Transaction manager metrics (C5)
	TxnCommitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "raleighsl_txn_commit_duration_seconds",
			Help:    "Time taken to two-phase commit a transaction",
			Buckets: prometheus.DefBuckets,
		},
	)

	TxnRollbackDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "raleighsl_txn_rollback_duration_seconds",
			Help:    "Time taken to roll back a transaction",
			Buckets: prometheus.DefBuckets,
		},
	)

	TxnCommittedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "raleighsl_txn_committed_total",
			Help: "Total number of transactions committed",
		},
	)

	TxnRolledbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raleighsl_txn_rolledback_total",
			Help: "Total number of transactions rolled back, by reason",
		},
		[]string{"reason"},
	)

	TxnReaperCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "raleighsl_txn_reaper_cycles_total",
			Help: "Total number of transaction reaper sweep cycles completed",
		},
	)

	TxnReaperDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "raleighsl_txn_reaper_duration_seconds",
			Help:    "Time taken for a transaction reaper sweep cycle",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Exec layer metrics (C6)
	ExecOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "raleighsl_exec_op_duration_seconds",
			Help:    "Time from exec entry point submission to notify callback, by op",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	ExecOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raleighsl_exec_ops_total",
			Help: "Total number of exec layer operations completed, by op and result",
		},
		[]string{"op", "errno"},
	)

	// Plugin registry metrics (C7)
	PluginsRegistered = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "raleighsl_plugins_registered",
			Help: "Number of plugins currently registered, by category",
		},
		[]string{"category"},
	)
)

func init() {
	prometheus.MustRegister(
		CacheHitsTotal,
		CacheMissesTotal,
		CacheEntries,
		CacheEvictionsTotal,
		RunQueueDepth,
		DispatcherTasksActive,
		DispatcherTasksCompleted,
		DispatcherTaskPanics,
		TxnCommitDuration,
		TxnRollbackDuration,
		TxnCommittedTotal,
		TxnRolledbackTotal,
		TxnReaperCyclesTotal,
		TxnReaperDuration,
		ExecOpDuration,
		ExecOpsTotal,
		PluginsRegistered,
	)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
