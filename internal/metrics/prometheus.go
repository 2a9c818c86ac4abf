// Package metrics records installation activity with Prometheus collectors.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ducnote/ducnote/internal/core"
)

type PrometheusMetrics struct {
	registry *prometheus.Registry

	artifacts        *prometheus.CounterVec
	artifactBytes    *prometheus.CounterVec
	artifactDuration *prometheus.HistogramVec
	stepDuration     *prometheus.HistogramVec
	runs             *prometheus.CounterVec
	lastRun          prometheus.Gauge
}

// NewPrometheusMetrics registers collectors on a private registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &PrometheusMetrics{
		registry: registry,
		artifacts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ducnote_artifacts_total",
				Help: "Artifacts processed by category, link kind and outcome",
			},
			[]string{"category", "kind", "outcome"},
		),
		artifactBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ducnote_artifact_bytes_total",
				Help: "Bytes written for installed artifacts",
			},
			[]string{"category", "kind"},
		),
		artifactDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ducnote_artifact_duration_seconds",
				Help:    "Time spent acquiring one artifact",
				Buckets: []float64{.01, .1, .5, 1, 5, 15, 30, 60, 180, 600, 1800},
			},
			[]string{"category", "kind"},
		),
		stepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ducnote_step_duration_seconds",
				Help:    "Duration of orchestration steps",
				Buckets: []float64{.1, .5, 1, 5, 15, 30, 60, 180, 600, 1800},
			},
			[]string{"step", "status"},
		),
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ducnote_runs_total",
				Help: "Orchestration runs by outcome",
			},
			[]string{"outcome"},
		),
		lastRun: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ducnote_last_run_timestamp_seconds",
				Help: "Unix time the last run finished",
			},
		),
	}
}

func (p *PrometheusMetrics) ObserveArtifact(category string, kind core.LinkKind, outcome core.Outcome, bytes int64, duration time.Duration) {
	p.artifacts.WithLabelValues(category, kind.String(), string(outcome)).Inc()
	if outcome != core.OutcomeInstalled {
		return
	}
	p.artifactBytes.WithLabelValues(category, kind.String()).Add(float64(bytes))
	p.artifactDuration.WithLabelValues(category, kind.String()).Observe(duration.Seconds())
}

func (p *PrometheusMetrics) ObserveStep(step string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	p.stepDuration.WithLabelValues(step, status).Observe(duration.Seconds())
}

func (p *PrometheusMetrics) ObserveRun(outcome core.RunOutcome) {
	p.runs.WithLabelValues(string(outcome)).Inc()
	p.lastRun.SetToCurrentTime()
}

// Gatherer exposes the private registry.
func (p *PrometheusMetrics) Gatherer() prometheus.Gatherer {
	return p.registry
}

// WriteTextfile writes all metrics in the text exposition format, suitable
// for the node exporter textfile collector.
func (p *PrometheusMetrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, p.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}

var _ core.Metrics = (*PrometheusMetrics)(nil)
