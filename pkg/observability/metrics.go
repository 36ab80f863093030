// Package observability exposes Prometheus metrics for the command
// pipeline, queue receivers, and event store.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	commandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventcore_commands_total",
			Help: "Total number of commands dispatched, by schema and outcome",
		},
		[]string{"schema", "outcome"},
	)

	commandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventcore_command_duration_seconds",
			Help:    "Command handling duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"schema"},
	)

	concurrencyConflictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventcore_concurrency_conflicts_total",
			Help: "Total number of optimistic-concurrency conflicts on Save",
		},
		[]string{"aggregate"},
	)

	queueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "eventcore_queue_depth",
			Help: "Approximate number of undelivered messages per queue",
		},
		[]string{"queue"},
	)

	queuePollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventcore_queue_polls_total",
			Help: "Total number of queue poll attempts, by result",
		},
		[]string{"queue", "result"},
	)
)

// Handler serves the Prometheus text-exposition format.
func Handler() http.Handler { return promhttp.Handler() }

// RecordCommand records one command's outcome and latency.
func RecordCommand(schema, outcome string, d time.Duration) {
	commandsTotal.WithLabelValues(schema, outcome).Inc()
	commandDuration.WithLabelValues(schema).Observe(d.Seconds())
}

// RecordConcurrencyConflict counts one optimistic-concurrency rejection
// for the given aggregate prefix.
func RecordConcurrencyConflict(aggregate string) {
	concurrencyConflictsTotal.WithLabelValues(aggregate).Inc()
}

// SetQueueDepth records the last observed depth of queue.
func SetQueueDepth(queue string, depth float64) {
	queueDepth.WithLabelValues(queue).Set(depth)
}

// RecordQueuePoll counts one poll attempt against queue with the given
// result ("found", "empty", "error").
func RecordQueuePoll(queue, result string) {
	queuePollsTotal.WithLabelValues(queue, result).Inc()
}
