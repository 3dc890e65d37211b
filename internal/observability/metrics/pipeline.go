// Package metrics provides Prometheus metrics for the mixing pipeline and
// processing graph.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics contains Prometheus metrics for pipeline stage operations
type PipelineMetrics struct {
	registry *prometheus.Registry

	// Packet queue metrics
	packetsPushed  *prometheus.CounterVec
	packetsDropped *prometheus.CounterVec
	releaseCalls   *prometheus.CounterVec
	queueDepth     *prometheus.GaugeVec

	// Underflow metrics
	underflowTotal    *prometheus.CounterVec
	underflowDuration *prometheus.HistogramVec

	// Mix job metrics
	mixJobs        *prometheus.CounterVec
	mixJobDuration *prometheus.HistogramVec
	framesMixed    *prometheus.CounterVec
	framesSilence  *prometheus.CounterVec

	// collectors is a slice of all collectors for easier iteration
	collectors []prometheus.Collector
}

// NewPipelineMetrics creates and registers new pipeline metrics
func NewPipelineMetrics(registry *prometheus.Registry) (*PipelineMetrics, error) {
	m := &PipelineMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, err
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// initMetrics initializes all Prometheus metrics
func (m *PipelineMetrics) initMetrics() error {
	m.packetsPushed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mixcore_packets_pushed_total",
			Help: "Total number of packets pushed into producer stages",
		},
		[]string{"stage"},
	)

	m.packetsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mixcore_packets_dropped_total",
			Help: "Total number of packets discarded before being fully read",
		},
		[]string{"stage", "reason"}, // advanced-past, cleared
	)

	m.releaseCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mixcore_packet_releases_total",
			Help: "Total number of packet release callbacks invoked",
		},
		[]string{"stage"},
	)

	m.queueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mixcore_packet_queue_depth",
			Help: "Number of packets currently queued in a producer stage",
		},
		[]string{"stage"},
	)

	m.underflowTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mixcore_underflow_total",
			Help: "Total number of underflow gaps detected during reads",
		},
		[]string{"stage"},
	)

	m.underflowDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mixcore_underflow_duration_seconds",
			Help:    "Estimated duration of underflow gaps",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~1.6s
		},
		[]string{"stage"},
	)

	m.mixJobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mixcore_mix_jobs_total",
			Help: "Total number of mix jobs executed",
		},
		[]string{"stage", "status"}, // ok, canceled
	)

	m.mixJobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mixcore_mix_job_duration_seconds",
			Help:    "Wall time spent producing one mix period",
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 14), // 10us to ~160ms
		},
		[]string{"stage"},
	)

	m.framesMixed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mixcore_frames_mixed_total",
			Help: "Total number of destination frames produced by mixer stages",
		},
		[]string{"stage"},
	)

	m.framesSilence = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mixcore_frames_silence_total",
			Help: "Total number of destination frames filled with silence",
		},
		[]string{"stage"},
	)

	m.collectors = []prometheus.Collector{
		m.packetsPushed,
		m.packetsDropped,
		m.releaseCalls,
		m.queueDepth,
		m.underflowTotal,
		m.underflowDuration,
		m.mixJobs,
		m.mixJobDuration,
		m.framesMixed,
		m.framesSilence,
	}

	return nil
}

// Describe implements the Collector interface
func (m *PipelineMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *PipelineMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordPacketPushed records a packet accepted by a producer stage
func (m *PipelineMetrics) RecordPacketPushed(stage string) {
	m.packetsPushed.WithLabelValues(stage).Inc()
}

// RecordPacketDropped records a packet discarded before being fully read
func (m *PipelineMetrics) RecordPacketDropped(stage, reason string) {
	m.packetsDropped.WithLabelValues(stage, reason).Inc()
}

// RecordRelease records a packet release callback invocation
func (m *PipelineMetrics) RecordRelease(stage string) {
	m.releaseCalls.WithLabelValues(stage).Inc()
}

// UpdateQueueDepth updates the queued packet count for a stage
func (m *PipelineMetrics) UpdateQueueDepth(stage string, depth int) {
	m.queueDepth.WithLabelValues(stage).Set(float64(depth))
}

// RecordUnderflow records one underflow gap and its estimated duration
func (m *PipelineMetrics) RecordUnderflow(stage string, seconds float64) {
	m.underflowTotal.WithLabelValues(stage).Inc()
	m.underflowDuration.WithLabelValues(stage).Observe(seconds)
}

// RecordMixJob records one completed mix job
func (m *PipelineMetrics) RecordMixJob(stage, status string, seconds float64) {
	m.mixJobs.WithLabelValues(stage, status).Inc()
	m.mixJobDuration.WithLabelValues(stage).Observe(seconds)
}

// RecordFramesMixed records destination frames produced by a mixer
func (m *PipelineMetrics) RecordFramesMixed(stage string, frames int64) {
	m.framesMixed.WithLabelValues(stage).Add(float64(frames))
}

// RecordFramesSilence records destination frames filled with silence
func (m *PipelineMetrics) RecordFramesSilence(stage string, frames int64) {
	m.framesSilence.WithLabelValues(stage).Add(float64(frames))
}
