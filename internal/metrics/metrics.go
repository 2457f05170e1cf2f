// Package metrics counts conversion outcomes for a run and exports them in
// the Prometheus text format, for node_exporter's textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run holds the collectors for one conversion run on a private registry.
type Run struct {
	registry *prometheus.Registry

	FilesTotal    *prometheus.CounterVec
	FramesEncoded prometheus.Counter
	StageDuration *prometheus.HistogramVec
	LastRun       prometheus.Gauge
}

// NewRun registers a fresh set of collectors.
func NewRun() *Run {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Run{
		registry: reg,
		FilesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cag2mp4_files_total",
			Help: "Source files processed, by status",
		}, []string{"status"}),
		FramesEncoded: f.NewCounter(prometheus.CounterOpts{
			Name: "cag2mp4_frames_encoded_total",
			Help: "Frames written to videos",
		}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cag2mp4_stage_duration_seconds",
			Help:    "Duration of each per-file stage",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}, []string{"stage"}),
		LastRun: f.NewGauge(prometheus.GaugeOpts{
			Name: "cag2mp4_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
	}
}

// ObserveStage records how long one stage (decode, encode, verify) took.
func (r *Run) ObserveStage(stage string, d time.Duration) {
	r.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// FileDone counts one file. frames is what was actually encoded: zero for a
// dry run, and ignored for a failed file.
func (r *Run) FileDone(ok bool, frames int) {
	if !ok {
		r.FilesTotal.WithLabelValues("failed").Inc()
		return
	}
	r.FilesTotal.WithLabelValues("converted").Inc()
	r.FramesEncoded.Add(float64(frames))
}

// Finish stamps the run's end time.
func (r *Run) Finish(t time.Time) {
	r.LastRun.Set(float64(t.Unix()))
}

// WriteFile writes all metrics to path atomically in the text format.
func (r *Run) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
