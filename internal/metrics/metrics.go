// Package metrics exposes rotation activity as Prometheus metrics.
//
// Metrics:
//   - dirarchiver_archives_created_total: archives written, by target
//   - dirarchiver_archives_deleted_total: archives removed, by target and reason
//   - dirarchiver_deleted_bytes_total: bytes removed, by target and reason
//   - dirarchiver_rotation_failures_total: failed rotation passes, by target
//   - dirarchiver_rotation_duration_seconds: rotation pass duration, by target
//   - dirarchiver_last_rotation_timestamp_seconds: end of the last pass, by target
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/raoulx24/dir-archiver/internal/notify"
)

const namespace = "dirarchiver"

// Collector owns a private registry and the rotation metrics.
type Collector struct {
	registry *prometheus.Registry

	created      *prometheus.CounterVec
	deleted      *prometheus.CounterVec
	deletedBytes *prometheus.CounterVec
	failures     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	lastRotation *prometheus.GaugeVec
}

// NewCollector creates and registers the metrics. If registry is nil a new
// one is created.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		registry: registry,
		created: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "archives_created_total",
				Help:      "Total number of archives created",
			},
			[]string{"target"},
		),
		deleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "archives_deleted_total",
				Help:      "Total number of archives deleted",
			},
			[]string{"target", "reason"},
		),
		deletedBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "deleted_bytes_total",
				Help:      "Total bytes freed by archive deletion",
			},
			[]string{"target", "reason"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rotation_failures_total",
				Help:      "Total number of failed rotation passes",
			},
			[]string{"target"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rotation_duration_seconds",
				Help:      "Duration of a rotation pass in seconds",
				// archiving large trees can take minutes
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
			},
			[]string{"target"},
		),
		lastRotation: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_rotation_timestamp_seconds",
				Help:      "Unix time the last rotation pass finished",
			},
			[]string{"target"},
		),
	}

	registry.MustRegister(
		c.created,
		c.deleted,
		c.deletedBytes,
		c.failures,
		c.duration,
		c.lastRotation,
	)

	return c
}

// Notify implements notify.Notifier.
func (c *Collector) Notify(_ context.Context, ev notify.Event) {
	switch ev.Kind {
	case notify.Archived:
		c.created.WithLabelValues(ev.Target).Inc()
	case notify.Deleted:
		c.deleted.WithLabelValues(ev.Target, string(ev.Reason)).Inc()
		c.deletedBytes.WithLabelValues(ev.Target, string(ev.Reason)).Add(float64(ev.Size))
	case notify.Failed:
		c.failures.WithLabelValues(ev.Target).Inc()
	}
}

// ObserveRotation records the duration and completion time of a pass.
func (c *Collector) ObserveRotation(target string, d time.Duration, finished time.Time) {
	c.duration.WithLabelValues(target).Observe(d.Seconds())
	c.lastRotation.WithLabelValues(target).Set(float64(finished.Unix()))
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns an HTTP handler for the metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
