// Package metrics exposes detection pipeline metrics for Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ayusman/vigil/internal/fatigue"
)

const namespace = "vigil"

// Frame outcomes recorded by RecordFrame.
const (
	OutcomeFace     = "face"
	OutcomeNoFace   = "no_face"
	OutcomeError    = "error"
	OutcomeInactive = "inactive"
)

// Calibration statuses.
const (
	CalibrationStarted   = "started"
	CalibrationCompleted = "completed"
	CalibrationCancelled = "cancelled"
)

// Metrics collects detection metrics. It also observes a fatigue session so
// blinks, events and level changes are counted where they happen.
type Metrics struct {
	fatigue.NopObserver

	framesTotal          *prometheus.CounterVec
	droppedFramesTotal   prometheus.Counter
	detectionErrorsTotal prometheus.Counter
	eventsTotal          *prometheus.CounterVec
	blinksTotal          prometheus.Counter
	calibrationsTotal    *prometheus.CounterVec
	processingDuration   prometheus.Histogram
	level                prometheus.Gauge
	eventCount           prometheus.Gauge
	ear                  prometheus.Gauge
	mar                  prometheus.Gauge
}

// New creates the metrics and registers them with registry.
func New(registry prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.framesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Frames processed, by outcome",
		},
		[]string{"outcome"}, // face, no_face, error, inactive
	)

	m.droppedFramesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dropped_frames_total",
		Help:      "Frames dropped because processing was still busy",
	})

	m.detectionErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "detection_errors_total",
		Help:      "Landmark detection failures",
	})

	m.eventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fatigue_events_total",
			Help:      "Fatigue events emitted, by kind",
		},
		[]string{"kind"},
	)

	m.blinksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "blinks_total",
		Help:      "Blinks detected",
	})

	m.calibrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calibrations_total",
			Help:      "Calibration runs, by status",
		},
		[]string{"status"},
	)

	m.processingDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "frame_processing_duration_seconds",
		Help:      "Time from frame capture to session result",
		// 1ms .. ~0.5s
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
	})

	m.level = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "fatigue_level",
		Help:      "Current fatigue level (0 normal, 1 moderate, 2 severe)",
	})

	m.eventCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "fatigue_event_count",
		Help:      "Fatigue events accumulated since the last reset",
	})

	m.ear = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "eye_aspect_ratio",
		Help:      "Eye aspect ratio of the last processed face",
	})

	m.mar = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "mouth_aspect_ratio",
		Help:      "Mouth aspect ratio of the last processed face",
	})
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.framesTotal.Describe(ch)
	m.droppedFramesTotal.Describe(ch)
	m.detectionErrorsTotal.Describe(ch)
	m.eventsTotal.Describe(ch)
	m.blinksTotal.Describe(ch)
	m.calibrationsTotal.Describe(ch)
	m.processingDuration.Describe(ch)
	m.level.Describe(ch)
	m.eventCount.Describe(ch)
	m.ear.Describe(ch)
	m.mar.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.framesTotal.Collect(ch)
	m.droppedFramesTotal.Collect(ch)
	m.detectionErrorsTotal.Collect(ch)
	m.eventsTotal.Collect(ch)
	m.blinksTotal.Collect(ch)
	m.calibrationsTotal.Collect(ch)
	m.processingDuration.Collect(ch)
	m.level.Collect(ch)
	m.eventCount.Collect(ch)
	m.ear.Collect(ch)
	m.mar.Collect(ch)
}

// RecordFrame counts a processed frame and how long it took.
func (m *Metrics) RecordFrame(outcome string, took time.Duration) {
	m.framesTotal.WithLabelValues(outcome).Inc()
	m.processingDuration.Observe(took.Seconds())
}

// RecordDroppedFrame counts a frame skipped while the pipeline was busy.
func (m *Metrics) RecordDroppedFrame() {
	m.droppedFramesTotal.Inc()
}

// RecordDetectionError counts a failed landmark detection.
func (m *Metrics) RecordDetectionError() {
	m.detectionErrorsTotal.Inc()
}

// RecordResult updates the ratio gauges from a face frame's result.
func (m *Metrics) RecordResult(result fatigue.Result, eventCount int) {
	m.ear.Set(result.EAR)
	m.mar.Set(result.MAR)
	m.eventCount.Set(float64(eventCount))
}

// RecordCalibration counts a calibration transition.
func (m *Metrics) RecordCalibration(status string) {
	m.calibrationsTotal.WithLabelValues(status).Inc()
}

// SetEventCount sets the accumulated event gauge, e.g. after a reset.
func (m *Metrics) SetEventCount(n int) {
	m.eventCount.Set(float64(n))
}

func (m *Metrics) OnCalibrationStarted() {
	m.RecordCalibration(CalibrationStarted)
}

func (m *Metrics) OnCalibrationCompleted(fatigue.CalibrationResult) {
	m.RecordCalibration(CalibrationCompleted)
}

func (m *Metrics) OnBlink() {
	m.blinksTotal.Inc()
}

func (m *Metrics) OnFatigueDetected(result fatigue.Result) {
	for _, e := range result.Events {
		m.eventsTotal.WithLabelValues(e.Kind().String()).Inc()
	}
}

func (m *Metrics) OnFatigueLevelChanged(level fatigue.Level) {
	m.level.Set(float64(level))
}
