package server

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the read-only instrumentation exposed at /metrics. None
// of these values ever feed back into the processing path; they exist
// purely for operators watching the engine from outside.
type Metrics struct {
	FramesProcessed prometheus.Counter
	FramesLearned   prometheus.Counter
	TransientFrames prometheus.Counter
	WetDryLevel     prometheus.Gauge
	ActiveStreams   prometheus.Gauge
}

// NewMetrics registers the engine's counters and gauges against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FramesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "noisereduce_frames_processed_total",
			Help: "STFT frames run through the apply path.",
		}),
		FramesLearned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "noisereduce_frames_learned_total",
			Help: "STFT frames folded into a noise profile.",
		}),
		TransientFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "noisereduce_transient_frames_total",
			Help: "Stream blocks whose last STFT frame the gain estimator flagged as a transient onset.",
		}),
		WetDryLevel: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "noisereduce_wet_dry_level",
			Help: "Most recently observed soft-bypass crossfade level, in [0,1].",
		}),
		ActiveStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "noisereduce_active_streams",
			Help: "Number of open /stream WebSocket sessions.",
		}),
	}

	reg.MustRegister(m.FramesProcessed, m.FramesLearned, m.TransientFrames, m.WetDryLevel, m.ActiveStreams)
	return m
}
