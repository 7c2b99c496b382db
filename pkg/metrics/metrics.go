// Package metrics provides Prometheus metrics for pipeline runs. Each run
// owns its registry so commands and tests never share global state.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline holds the metrics recorded by the extraction commands, the
// dataset loader and the trainer.
type Pipeline struct {
	reg *prometheus.Registry

	// Extraction metrics
	FilesProcessed *prometheus.CounterVec
	FileDuration   *prometheus.HistogramVec
	Triangles      prometheus.Counter
	SolidsLoaded   prometheus.Counter

	// Dataset metrics
	SamplesLoaded *prometheus.CounterVec

	// Training metrics
	Epoch      prometheus.Gauge
	Loss       *prometheus.GaugeVec
	BestScore  prometheus.Gauge
	StepsTotal prometheus.Counter
}

// New creates a Pipeline on a fresh registry.
func New() *Pipeline {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Pipeline{
		reg: reg,
		FilesProcessed: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uvreg_files_processed_total",
				Help: "Total number of input files processed",
			},
			[]string{"stage", "status"},
		),
		FileDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "uvreg_file_duration_seconds",
				Help:    "Time taken to process one input file",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10, 30},
			},
			[]string{"stage"},
		),
		Triangles: f.NewCounter(prometheus.CounterOpts{
			Name: "uvreg_triangles_emitted_total",
			Help: "Total number of triangles written to mesh archives",
		}),
		SolidsLoaded: f.NewCounter(prometheus.CounterOpts{
			Name: "uvreg_solids_loaded_total",
			Help: "Total number of solids loaded from input files",
		}),
		SamplesLoaded: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uvreg_samples_loaded_total",
				Help: "Total number of graph samples loaded",
			},
			[]string{"split"},
		),
		Epoch: f.NewGauge(prometheus.GaugeOpts{
			Name: "uvreg_epoch",
			Help: "Current training epoch",
		}),
		Loss: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "uvreg_loss",
				Help: "Most recent loss value by phase",
			},
			[]string{"phase"},
		),
		BestScore: f.NewGauge(prometheus.GaugeOpts{
			Name: "uvreg_best_val_loss",
			Help: "Best monitored validation loss so far",
		}),
		StepsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "uvreg_train_steps_total",
			Help: "Total number of optimisation steps",
		}),
	}
}

// Registry returns the registry backing the metrics.
func (p *Pipeline) Registry() *prometheus.Registry {
	return p.reg
}

// RecordFile records one processed file.
func (p *Pipeline) RecordFile(stage string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	p.FilesProcessed.WithLabelValues(stage, status).Inc()
	p.FileDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// WriteTextfile writes the current values in the node-exporter textfile
// format. An empty path is a no-op.
func (p *Pipeline) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, p.reg); err != nil {
		return fmt.Errorf("metrics: write %s: %w", path, err)
	}
	return nil
}

// Timer is a helper for measuring duration
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
