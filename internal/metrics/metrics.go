// Package metrics exposes Prometheus instrumentation for the streaming
// engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all engine metrics. All Record* methods are safe on a nil
// receiver so wiring stays optional in tests.
type Metrics struct {
	SessionsCreated prometheus.Counter
	SessionsClosed  prometheus.Counter
	SessionsExpired prometheus.Counter
	ActiveSessions  prometheus.Gauge

	ChunksReceived prometheus.Counter
	ChunksRejected prometheus.Counter

	TranscriptionSuccesses prometheus.Counter
	TranscriptionFailures  prometheus.Counter
	TranscriptionDuration  prometheus.Histogram

	SynthesisSuccesses prometheus.Counter
	SynthesisFailures  prometheus.Counter
	SynthesisDuration  prometheus.Histogram
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		SessionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stream_sessions_created_total",
			Help: "Total number of conversation sessions created",
		}),
		SessionsClosed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stream_sessions_closed_total",
			Help: "Total number of conversation sessions closed",
		}),
		SessionsExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stream_sessions_expired_total",
			Help: "Total number of sessions closed by the expiry loop",
		}),
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "stream_active_sessions",
			Help: "Current number of active conversation sessions",
		}),
		ChunksReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stream_audio_chunks_received_total",
			Help: "Total number of audio chunks accepted into session buffers",
		}),
		ChunksRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stream_audio_chunks_rejected_total",
			Help: "Total number of audio chunks rejected by backpressure",
		}),
		TranscriptionSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stream_transcriptions_total",
			Help: "Total number of successful transcriptions",
		}),
		TranscriptionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stream_transcription_failures_total",
			Help: "Total number of failed transcription attempts",
		}),
		TranscriptionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "stream_transcription_duration_seconds",
			Help:    "Duration of transcription collaborator calls",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		SynthesisSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stream_syntheses_total",
			Help: "Total number of successful speech syntheses",
		}),
		SynthesisFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stream_synthesis_failures_total",
			Help: "Total number of failed synthesis attempts",
		}),
		SynthesisDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "stream_synthesis_duration_seconds",
			Help:    "Duration of synthesis collaborator calls",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
	}
}

// RecordSessionCreated increments creation counters and the active gauge.
func (m *Metrics) RecordSessionCreated() {
	if m == nil {
		return
	}
	m.SessionsCreated.Inc()
	m.ActiveSessions.Inc()
}

// RecordSessionClosed decrements the active gauge.
func (m *Metrics) RecordSessionClosed(expired bool) {
	if m == nil {
		return
	}
	m.SessionsClosed.Inc()
	if expired {
		m.SessionsExpired.Inc()
	}
	m.ActiveSessions.Dec()
}

// RecordChunkReceived counts an accepted chunk.
func (m *Metrics) RecordChunkReceived() {
	if m == nil {
		return
	}
	m.ChunksReceived.Inc()
}

// RecordChunkRejected counts a chunk dropped by backpressure.
func (m *Metrics) RecordChunkRejected() {
	if m == nil {
		return
	}
	m.ChunksRejected.Inc()
}

// RecordTranscription records one transcription outcome.
func (m *Metrics) RecordTranscription(ok bool, seconds float64) {
	if m == nil {
		return
	}
	if ok {
		m.TranscriptionSuccesses.Inc()
	} else {
		m.TranscriptionFailures.Inc()
	}
	m.TranscriptionDuration.Observe(seconds)
}

// RecordSynthesis records one synthesis outcome.
func (m *Metrics) RecordSynthesis(ok bool, seconds float64) {
	if m == nil {
		return
	}
	if ok {
		m.SynthesisSuccesses.Inc()
	} else {
		m.SynthesisFailures.Inc()
	}
	m.SynthesisDuration.Observe(seconds)
}
