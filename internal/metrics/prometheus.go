// Package metrics defines the Prometheus metrics for the voice capture
// service and helper methods to record them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the voice capture service
type Metrics struct {
	// Gateway feed metrics
	PacketsReceived  prometheus.Counter
	PacketsProcessed prometheus.Counter
	ParseErrors      prometheus.Counter
	SequenceGaps     prometheus.Counter
	QueueSize        prometheus.Gauge

	// Speaker metrics
	ActiveSpeakers  prometheus.Gauge
	SpeakersCreated prometheus.Counter
	SpeakersRemoved prometheus.Counter

	// Frame routing metrics
	FramesRouted  prometheus.Counter
	FramesIgnored prometheus.Counter
	FramesDropped prometheus.Counter

	// Classifier metrics
	ClassifierChecks     prometheus.Counter
	ClassifierSpeech     prometheus.Counter
	ClassifierUndersized prometheus.Counter
	ClassifierFaults     prometheus.Counter

	// Utterance metrics
	UtterancesFinalized prometheus.Counter
	UtterancesDiscarded prometheus.Counter
	ForcedFlushes       prometheus.Counter

	// Artifact metrics
	ArtifactsWritten prometheus.Counter
	ArtifactDuration prometheus.Histogram
	ArtifactSize     prometheus.Histogram
	StorageErrors    prometheus.Counter
	SinkQueueSize    prometheus.Gauge

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Gateway feed metrics
		PacketsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "capture_packets_received_total",
			Help: "Total number of gateway packets received",
		}),
		PacketsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "capture_packets_processed_total",
			Help: "Total number of gateway packets successfully processed",
		}),
		ParseErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "capture_parse_errors_total",
			Help: "Total number of packet parsing errors",
		}),
		SequenceGaps: promauto.NewCounter(prometheus.CounterOpts{
			Name: "capture_sequence_gaps_total",
			Help: "Total number of audio frame sequence gaps observed",
		}),
		QueueSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "capture_packet_queue_size",
			Help: "Current number of packets in the processing queue",
		}),

		// Speaker metrics
		ActiveSpeakers: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "capture_active_speakers",
			Help: "Current number of tracked speakers",
		}),
		SpeakersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "capture_speakers_created_total",
			Help: "Total number of speaker states created",
		}),
		SpeakersRemoved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "capture_speakers_removed_total",
			Help: "Total number of speaker states evicted",
		}),

		// Frame routing metrics
		FramesRouted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "capture_frames_routed_total",
			Help: "Total number of PCM frames routed to speaker state machines",
		}),
		FramesIgnored: promauto.NewCounter(prometheus.CounterOpts{
			Name: "capture_frames_ignored_total",
			Help: "Total number of frames ignored due to missing speaker or payload",
		}),
		FramesDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "capture_frames_dropped_total",
			Help: "Total number of frames dropped due to full speaker queues",
		}),

		// Classifier metrics
		ClassifierChecks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "capture_classifier_checks_total",
			Help: "Total number of decimated speech classification checks",
		}),
		ClassifierSpeech: promauto.NewCounter(prometheus.CounterOpts{
			Name: "capture_classifier_speech_total",
			Help: "Total number of checks classified as speech",
		}),
		ClassifierUndersized: promauto.NewCounter(prometheus.CounterOpts{
			Name: "capture_classifier_undersized_total",
			Help: "Total number of checks skipped due to undersized input",
		}),
		ClassifierFaults: promauto.NewCounter(prometheus.CounterOpts{
			Name: "capture_classifier_faults_total",
			Help: "Total number of detector faults degraded to non-speech",
		}),

		// Utterance metrics
		UtterancesFinalized: promauto.NewCounter(prometheus.CounterOpts{
			Name: "capture_utterances_finalized_total",
			Help: "Total number of utterances handed to the finalizer",
		}),
		UtterancesDiscarded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "capture_utterances_discarded_total",
			Help: "Total number of utterances discarded below the minimum speech duration",
		}),
		ForcedFlushes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "capture_forced_flushes_total",
			Help: "Total number of buffers force-flushed on shutdown or speaker leave",
		}),

		// Artifact metrics
		ArtifactsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "capture_artifacts_written_total",
			Help: "Total number of utterance artifacts written to storage",
		}),
		ArtifactDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "capture_artifact_duration_seconds",
			Help:    "Duration of written utterance artifacts",
			Buckets: prometheus.ExponentialBuckets(0.125, 2, 10), // 125ms to ~1 minute
		}),
		ArtifactSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "capture_artifact_size_bytes",
			Help:    "Size of written utterance artifacts in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 14), // 1KB to ~16MB
		}),
		StorageErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "capture_storage_errors_total",
			Help: "Total number of artifact write failures",
		}),
		SinkQueueSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "capture_sink_queue_size",
			Help: "Current number of finalize jobs waiting for a writer",
		}),

		// HTTP API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "capture_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "capture_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "capture_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordPacketReceived increments the packets received counter
func (m *Metrics) RecordPacketReceived() {
	m.PacketsReceived.Inc()
}

// RecordPacketProcessed increments the packets processed counter
func (m *Metrics) RecordPacketProcessed() {
	m.PacketsProcessed.Inc()
}

// RecordParseError increments the parse errors counter
func (m *Metrics) RecordParseError() {
	m.ParseErrors.Inc()
}

// RecordSequenceGap increments the sequence gap counter
func (m *Metrics) RecordSequenceGap() {
	m.SequenceGaps.Inc()
}

// SetQueueSize sets the current packet queue size
func (m *Metrics) SetQueueSize(size int) {
	m.QueueSize.Set(float64(size))
}

// SetActiveSpeakers sets the current number of tracked speakers
func (m *Metrics) SetActiveSpeakers(count int) {
	m.ActiveSpeakers.Set(float64(count))
}

// RecordSpeakerCreated increments the speakers created counter
func (m *Metrics) RecordSpeakerCreated() {
	m.SpeakersCreated.Inc()
}

// RecordSpeakerRemoved increments the speakers removed counter
func (m *Metrics) RecordSpeakerRemoved() {
	m.SpeakersRemoved.Inc()
}

// RecordFrameRouted increments the frames routed counter
func (m *Metrics) RecordFrameRouted() {
	m.FramesRouted.Inc()
}

// RecordFrameIgnored increments the frames ignored counter
func (m *Metrics) RecordFrameIgnored() {
	m.FramesIgnored.Inc()
}

// RecordFrameDropped increments the frames dropped counter
func (m *Metrics) RecordFrameDropped() {
	m.FramesDropped.Inc()
}

// RecordClassifierCheck records one decimated classification check
func (m *Metrics) RecordClassifierCheck(isSpeech bool) {
	m.ClassifierChecks.Inc()
	if isSpeech {
		m.ClassifierSpeech.Inc()
	}
}

// RecordClassifierUndersized increments the undersized input counter
func (m *Metrics) RecordClassifierUndersized() {
	m.ClassifierUndersized.Inc()
}

// RecordClassifierFault increments the detector fault counter
func (m *Metrics) RecordClassifierFault() {
	m.ClassifierFaults.Inc()
}

// RecordUtteranceFinalized increments the finalized utterance counter
func (m *Metrics) RecordUtteranceFinalized() {
	m.UtterancesFinalized.Inc()
}

// RecordUtteranceDiscarded increments the discarded utterance counter
func (m *Metrics) RecordUtteranceDiscarded() {
	m.UtterancesDiscarded.Inc()
}

// RecordForcedFlush increments the forced flush counter
func (m *Metrics) RecordForcedFlush() {
	m.ForcedFlushes.Inc()
}

// RecordArtifactWritten records a successfully written artifact
func (m *Metrics) RecordArtifactWritten(durationSeconds float64, sizeBytes int) {
	m.ArtifactsWritten.Inc()
	m.ArtifactDuration.Observe(durationSeconds)
	m.ArtifactSize.Observe(float64(sizeBytes))
}

// RecordStorageError increments the storage error counter
func (m *Metrics) RecordStorageError() {
	m.StorageErrors.Inc()
}

// SetSinkQueueSize sets the current finalize queue size
func (m *Metrics) SetSinkQueueSize(size int) {
	m.SinkQueueSize.Set(float64(size))
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
