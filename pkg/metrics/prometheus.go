// Package metrics provides Prometheus metrics for the poseloop feedback loop.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the feedback loop.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Scheduler metrics - tick cadence and the single-flight gate
	ticksFired        prometheus.Counter
	ticksSkipped      *prometheus.CounterVec
	submissions       prometheus.Counter
	submissionErrors  *prometheus.CounterVec
	submissionLatency prometheus.Histogram
	responsesMerged   prometheus.Counter
	inFlight          prometheus.Gauge
	frameSequence     prometheus.Gauge

	// Session metrics - ledger-visible running state
	sessionScore      prometheus.Gauge
	sessionErrors     prometheus.Gauge
	errorsObserved    prometheus.Counter
	navigationSignals prometheus.Counter
	finalizeFailures  prometheus.Counter

	// Announcement metrics - queue admission and drain
	announcementsEnqueued   prometheus.Counter
	announcementsSuppressed *prometheus.CounterVec
	announcementsEvicted    prometheus.Counter
	announcementsSpoken     prometheus.Counter
	speechFailures          prometheus.Counter
	speechDuration          prometheus.Histogram
	backlogSize             prometheus.Gauge

	// Renderer and codec metrics
	renders            prometheus.Counter
	subjectsSkipped    prometheus.Counter
	malformedKeypoints prometheus.Counter
	malformedSubjects  prometheus.Counter

	// HTTP metrics for the local status surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "poseloop",
		subsystem:        "feedback",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	// Initialize metrics
	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	// Scheduler metrics
	m.ticksFired = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ticks_fired_total",
		Help:      "Total number of capture timer firings",
	})

	m.ticksSkipped = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "ticks_skipped_total",
			Help:      "Total number of ticks skipped, by precondition",
		},
		[]string{"reason"},
	)

	m.submissions = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submissions_total",
		Help:      "Total number of frames submitted to the scoring endpoint",
	})

	m.submissionErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "submission_errors_total",
			Help:      "Total number of failed submissions, by kind",
		},
		[]string{"kind"},
	)

	m.submissionLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submission_latency_milliseconds",
		Help:      "Round-trip latency of frame submissions in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.responsesMerged = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "responses_merged_total",
		Help:      "Total number of scoring responses merged into session state",
	})

	m.inFlight = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submission_in_flight",
		Help:      "Whether a submission is currently outstanding (0 or 1)",
	})

	m.frameSequence = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frame_sequence",
		Help:      "Sequence index of the most recently submitted frame",
	})

	// Session metrics
	m.sessionScore = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "session_score",
		Help:      "Current ledger-visible session score",
	})

	m.sessionErrors = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "session_errors",
		Help:      "Current ledger-visible session error count",
	})

	m.errorsObserved = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_observed_total",
		Help:      "Total number of newly observed posture errors",
	})

	m.navigationSignals = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "navigation_signals_total",
		Help:      "Total number of terminal-condition navigation signals",
	})

	m.finalizeFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "finalize_failures_total",
		Help:      "Total number of failed best-effort finalize calls on stop",
	})

	// Announcement metrics
	m.announcementsEnqueued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "announcements_enqueued_total",
		Help:      "Total number of announcements admitted to the backlog",
	})

	m.announcementsSuppressed = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "announcements_suppressed_total",
			Help:      "Total number of announcements rejected at enqueue, by reason",
		},
		[]string{"reason"},
	)

	m.announcementsEvicted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "announcements_evicted_total",
		Help:      "Total number of pending announcements evicted by newer entries",
	})

	m.announcementsSpoken = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "announcements_spoken_total",
		Help:      "Total number of announcements spoken to completion",
	})

	m.speechFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "speech_failures_total",
		Help:      "Total number of failed speech synthesis attempts",
	})

	m.speechDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "speech_duration_milliseconds",
		Help:      "Duration of speech synthesis in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.backlogSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "announcement_backlog_size",
		Help:      "Current number of pending announcements",
	})

	// Renderer and codec metrics
	m.renders = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "renders_total",
		Help:      "Total number of overlay render passes",
	})

	m.subjectsSkipped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "render_subjects_skipped_total",
		Help:      "Total number of subjects skipped during rendering for missing or malformed keypoints",
	})

	m.malformedKeypoints = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "malformed_keypoints_total",
		Help:      "Total number of keypoint sets rejected by the codec",
	})

	m.malformedSubjects = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "malformed_subjects_total",
		Help:      "Total number of wire subjects dropped by the codec",
	})

	// HTTP metrics for the local status surface
	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)
}

// RecordTickFired increments the ticks fired counter.
func RecordTickFired() {
	globalManager.ticksFired.Inc()
}

// RecordTickSkipped increments the skipped ticks counter for a reason.
func RecordTickSkipped(reason string) {
	globalManager.ticksSkipped.WithLabelValues(reason).Inc()
}

// RecordSubmission increments the submissions counter.
func RecordSubmission() {
	globalManager.submissions.Inc()
}

// RecordSubmissionError increments the submission errors counter for a kind.
func RecordSubmissionError(kind string) {
	globalManager.submissionErrors.WithLabelValues(kind).Inc()
}

// RecordSubmissionLatency records round-trip latency in milliseconds.
func RecordSubmissionLatency(latencyMs float64) {
	globalManager.submissionLatency.Observe(latencyMs)
}

// RecordResponseMerged increments the merged responses counter.
func RecordResponseMerged() {
	globalManager.responsesMerged.Inc()
}

// UpdateInFlight sets the in-flight gauge.
func UpdateInFlight(inFlight bool) {
	if inFlight {
		globalManager.inFlight.Set(1)
		return
	}
	globalManager.inFlight.Set(0)
}

// UpdateFrameSequence sets the frame sequence gauge.
func UpdateFrameSequence(seq int64) {
	globalManager.frameSequence.Set(float64(seq))
}

// UpdateSessionScore sets the session score gauge.
func UpdateSessionScore(score float64) {
	globalManager.sessionScore.Set(score)
}

// UpdateSessionErrors sets the session error count gauge.
func UpdateSessionErrors(count int) {
	globalManager.sessionErrors.Set(float64(count))
}

// RecordErrorObserved increments the observed errors counter.
func RecordErrorObserved() {
	globalManager.errorsObserved.Inc()
}

// RecordNavigationSignal increments the navigation signals counter.
func RecordNavigationSignal() {
	globalManager.navigationSignals.Inc()
}

// RecordFinalizeFailure increments the finalize failures counter.
func RecordFinalizeFailure() {
	globalManager.finalizeFailures.Inc()
}

// RecordAnnouncementEnqueued increments the enqueued announcements counter.
func RecordAnnouncementEnqueued() {
	globalManager.announcementsEnqueued.Inc()
}

// RecordAnnouncementSuppressed increments the suppressed counter for a reason.
func RecordAnnouncementSuppressed(reason string) {
	globalManager.announcementsSuppressed.WithLabelValues(reason).Inc()
}

// RecordAnnouncementEvicted increments the evicted announcements counter.
func RecordAnnouncementEvicted() {
	globalManager.announcementsEvicted.Inc()
}

// RecordAnnouncementSpoken increments the spoken announcements counter.
func RecordAnnouncementSpoken() {
	globalManager.announcementsSpoken.Inc()
}

// RecordSpeechFailure increments the speech failures counter.
func RecordSpeechFailure() {
	globalManager.speechFailures.Inc()
}

// RecordSpeechDuration records speech synthesis duration in milliseconds.
func RecordSpeechDuration(durationMs float64) {
	globalManager.speechDuration.Observe(durationMs)
}

// UpdateBacklogSize sets the announcement backlog gauge.
func UpdateBacklogSize(size int) {
	globalManager.backlogSize.Set(float64(size))
}

// RecordRender increments the render passes counter.
func RecordRender() {
	globalManager.renders.Inc()
}

// RecordRenderSubjectSkipped increments the skipped render subjects counter.
func RecordRenderSubjectSkipped() {
	globalManager.subjectsSkipped.Inc()
}

// RecordMalformedKeypoints increments the rejected keypoint sets counter.
func RecordMalformedKeypoints() {
	globalManager.malformedKeypoints.Inc()
}

// RecordMalformedSubject increments the dropped wire subjects counter.
func RecordMalformedSubject() {
	globalManager.malformedSubjects.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
