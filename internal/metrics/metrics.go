// Package metrics exposes poll and print activity as Prometheus metrics.
//
// Everything is registered on a private registry so tests and multiple
// buses never collide with the global default.
package metrics

import (
	"context"
	"net/http"

	"github.com/desertthunder/brewq/internal/poller"
	"github.com/desertthunder/brewq/internal/printing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "brewq"

// Metrics implements [poller.Observer] and wraps a [printing.Recorder].
type Metrics struct {
	registry *prometheus.Registry

	polls        *prometheus.CounterVec
	pollInterval *prometheus.GaugeVec
	pollDuration *prometheus.HistogramVec
	prints       *prometheus.CounterVec
	newOrders    prometheus.Counter
}

// New creates and registers every collector.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Poll cycles by source and outcome.",
		}, []string{"source", "outcome"}),
		pollInterval: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "poll_interval_seconds",
			Help:      "Interval chosen for the next poll of each source.",
		}, []string{"source"}),
		pollDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_duration_seconds",
			Help:      "Time spent fetching each source.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"source"}),
		prints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "print_jobs_total",
			Help:      "Label print jobs by outcome.",
		}, []string{"outcome"}),
		newOrders: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "new_orders_total",
			Help:      "New-order announcements raised by the count watcher.",
		}),
	}

	m.registry.MustRegister(
		m.polls,
		m.pollInterval,
		m.pollDuration,
		m.prints,
		m.newOrders,
		collectors.NewGoCollector(),
	)
	return m
}

// ObservePoll implements [poller.Observer].
func (m *Metrics) ObservePoll(c poller.Cycle) {
	m.polls.WithLabelValues(c.Source, string(c.Outcome)).Inc()
	if c.Outcome == poller.OutcomeDiscarded {
		return
	}
	m.pollInterval.WithLabelValues(c.Source).Set(c.Interval.Seconds())
	m.pollDuration.WithLabelValues(c.Source).Observe(c.Duration.Seconds())
}

// NewOrder counts one announcement.
func (m *Metrics) NewOrder() { m.newOrders.Inc() }

// Recorder counts finished print jobs and then hands them to next, which may be nil.
func (m *Metrics) Recorder(next printing.Recorder) printing.Recorder {
	return recorder{m: m, next: next}
}

type recorder struct {
	m    *Metrics
	next printing.Recorder
}

func (r recorder) RecordPrint(ctx context.Context, job printing.JobResult) error {
	r.m.prints.WithLabelValues(string(job.Outcome)).Inc()
	if r.next == nil {
		return nil
	}
	return r.next.RecordPrint(ctx, job)
}

// Registry exposes the private registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
