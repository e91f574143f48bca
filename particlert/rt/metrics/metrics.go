package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics instruments the tick loop. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Frames        prometheus.Counter
	FramesSkipped prometheus.Counter
	FrameSeconds  prometheus.Histogram
	CPUStep       prometheus.Histogram
	Visible       prometheus.Gauge
}

func New(reg prometheus.Registerer, runID string) *Metrics {
	f := promauto.With(reg)
	labels := prometheus.Labels{"run_id": runID}
	return &Metrics{
		Frames: f.NewCounter(prometheus.CounterOpts{
			Name:        "particles_frames_total",
			Help:        "Ticks that submitted simulation work",
			ConstLabels: labels,
		}),
		FramesSkipped: f.NewCounter(prometheus.CounterOpts{
			Name:        "particles_frames_skipped_total",
			Help:        "Ticks whose draw was skipped because no surface texture was available",
			ConstLabels: labels,
		}),
		FrameSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:        "particles_frame_seconds",
			Help:        "CPU time spent encoding and submitting one tick",
			Buckets:     prometheus.ExponentialBuckets(0.0005, 2, 12),
			ConstLabels: labels,
		}),
		CPUStep: f.NewHistogram(prometheus.HistogramOpts{
			Name:        "particles_cpu_step_seconds",
			Help:        "Duration of one CPU simulation step",
			Buckets:     prometheus.ExponentialBuckets(0.0005, 2, 14),
			ConstLabels: labels,
		}),
		Visible: f.NewGauge(prometheus.GaugeOpts{
			Name:        "particles_visible",
			Help:        "Particles not hidden after the last CPU step",
			ConstLabels: labels,
		}),
	}
}

func (m *Metrics) ObserveFrame(d time.Duration, skipped bool) {
	if m == nil {
		return
	}
	m.Frames.Inc()
	if skipped {
		m.FramesSkipped.Inc()
	}
	m.FrameSeconds.Observe(d.Seconds())
}

func (m *Metrics) ObserveCPUStep(d time.Duration, visible int) {
	if m == nil {
		return
	}
	m.CPUStep.Observe(d.Seconds())
	m.Visible.Set(float64(visible))
}

// NewServer exposes g on /metrics.
func NewServer(addr string, g prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}
}
