// Package metrics provides internal metrics collection for the workflow
// engine. This package is internal and should not be imported by external
// projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector records engine metrics. A nil *Collector is valid and records
// nothing, so callers never need to branch on whether metrics are enabled.
type Collector struct {
	runsTotal           *prometheus.CounterVec
	runDuration         prometheus.Histogram
	framesTotal         prometheus.Counter
	loopIterationsTotal prometheus.Counter
	handlerDuration     *prometheus.HistogramVec
	handlerErrorsTotal  *prometheus.CounterVec
}

// NewCollector registers the engine metrics with the given registerer.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Workflow runs by terminal status",
			},
			[]string{"status"},
		),
		runDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Workflow run duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		framesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "frames_total",
				Help:      "Work-list frames processed",
			},
		),
		loopIterationsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "loop_iterations_total",
				Help:      "Loop iterations taken (condition evaluated true)",
			},
		),
		handlerDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "handler_duration_seconds",
				Help:      "Node handler duration in seconds by kind",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		handlerErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "handler_errors_total",
				Help:      "Node handler failures by kind",
			},
			[]string{"kind"},
		),
	}
}

// RunFinished records a run reaching a terminal status.
func (c *Collector) RunFinished(status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.runsTotal.WithLabelValues(status).Inc()
	c.runDuration.Observe(duration.Seconds())
}

// FrameProcessed records one popped work-list frame.
func (c *Collector) FrameProcessed() {
	if c == nil {
		return
	}
	c.framesTotal.Inc()
}

// LoopIteration records a loop condition evaluating true.
func (c *Collector) LoopIteration() {
	if c == nil {
		return
	}
	c.loopIterationsTotal.Inc()
}

// ObserveHandler records one handler dispatch.
func (c *Collector) ObserveHandler(kind string, duration time.Duration, err error) {
	if c == nil {
		return
	}
	c.handlerDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if err != nil {
		c.handlerErrorsTotal.WithLabelValues(kind).Inc()
	}
}
