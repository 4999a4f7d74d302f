// Package metrics exposes Prometheus metrics for the recognition pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "face_attendance"

// Modes lists the label values of the mode gauge
var Modes = []string{"idle", "registering", "recognizing"}

// Metrics holds the pipeline collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry prometheus.Registerer

	framesProcessed *prometheus.CounterVec
	frameDuration   prometheus.Histogram
	facesDetected   prometheus.Counter
	recognitions    *prometheus.CounterVec
	attendance      *prometheus.CounterVec
	trainingRuns    *prometheus.CounterVec
	mode            *prometheus.GaugeVec
}

// New registers the collectors with reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		framesProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_processed_total",
			Help:      "Frames processed by the recognition loop, by mode.",
		}, []string{"mode"}),
		frameDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_duration_seconds",
			Help:      "Time spent processing one frame.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		facesDetected: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "faces_detected_total",
			Help:      "Faces found by the detector.",
		}),
		recognitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognitions_total",
			Help:      "Recognition results, by result (matched, unknown, error).",
		}, []string{"result"}),
		attendance: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attendance_events_total",
			Help:      "Attendance decisions, by outcome.",
		}, []string{"outcome"}),
		trainingRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "training_runs_total",
			Help:      "Model training runs, by status.",
		}, []string{"status"}),
		mode: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mode",
			Help:      "1 for the active controller mode, 0 otherwise.",
		}, []string{"mode"}),
	}
}

// FrameProcessed records one processed frame
func (m *Metrics) FrameProcessed(mode string, d time.Duration) {
	if m == nil {
		return
	}
	m.framesProcessed.WithLabelValues(mode).Inc()
	m.frameDuration.Observe(d.Seconds())
}

// FacesDetected adds n detected faces
func (m *Metrics) FacesDetected(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.facesDetected.Add(float64(n))
}

// Recognition records one recognition result
func (m *Metrics) Recognition(result string) {
	if m == nil {
		return
	}
	m.recognitions.WithLabelValues(result).Inc()
}

// Attendance records one attendance decision
func (m *Metrics) Attendance(outcome string) {
	if m == nil {
		return
	}
	m.attendance.WithLabelValues(outcome).Inc()
}

// Training records the status of a training run
func (m *Metrics) Training(status string) {
	if m == nil {
		return
	}
	m.trainingRuns.WithLabelValues(status).Inc()
}

// SetMode marks mode as the active one
func (m *Metrics) SetMode(mode string) {
	if m == nil {
		return
	}
	for _, name := range Modes {
		v := 0.0
		if name == mode {
			v = 1
		}
		m.mode.WithLabelValues(name).Set(v)
	}
}

// WatchViewers exports the live stream viewer count read from fn
func (m *Metrics) WatchViewers(fn func() int) {
	if m == nil {
		return
	}
	promauto.With(m.registry).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "stream_viewers",
		Help:      "Clients currently watching the video feed.",
	}, func() float64 { return float64(fn()) })
}
