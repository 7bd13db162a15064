package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request outcome labels
const (
	OutcomeOK            = "ok"
	OutcomeEndpointError = "endpoint_error"
	OutcomeFailure       = "failure"
	OutcomeSuperseded    = "superseded"
)

var (
	// Chat metrics
	chatRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicebot_chat_requests_total",
		Help: "Chat requests by outcome (ok, endpoint_error, failure, superseded)",
	}, []string{"outcome"})

	chatLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voicebot_chat_latency_seconds",
		Help:    "Chat endpoint round trip in seconds",
		Buckets: []float64{0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
	})

	// Speech synthesis metrics
	speakRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicebot_speak_requests_total",
		Help: "Speech synthesis requests by outcome (ok, endpoint_error, failure)",
	}, []string{"outcome"})

	speakLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voicebot_speak_latency_seconds",
		Help:    "Speech endpoint round trip in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
	})

	// Recognition metrics
	recordingActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voicebot_recording_active",
		Help: "1 while a recognition session is running",
	})

	recordingSessions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicebot_recording_sessions_total",
		Help: "Recognition sessions started",
	})

	recognitionEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicebot_recognition_events_total",
		Help: "Recognition events by kind (result, error)",
	}, []string{"kind"})

	// Playback metrics
	playbackActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voicebot_playback_active",
		Help: "1 while synthesized audio is playing",
	})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "voicebot_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicebot_circuit_breaker_failures_total",
		Help: "Total circuit breaker failures",
	}, []string{"service"})

	// Audio metrics
	audioBytesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicebot_audio_bytes_total",
		Help: "Total audio bytes processed",
	}, []string{"direction"}) // direction: "in" (microphone) or "out" (playback)
)

// RecordChat records a finished chat request
func RecordChat(outcome string, elapsed time.Duration) {
	chatRequests.WithLabelValues(outcome).Inc()
	chatLatency.Observe(elapsed.Seconds())
}

// RecordSpeak records a finished speech synthesis request
func RecordSpeak(outcome string, elapsed time.Duration) {
	speakRequests.WithLabelValues(outcome).Inc()
	speakLatency.Observe(elapsed.Seconds())
}

// SetRecording tracks the recording state machine
func SetRecording(active bool) {
	if active {
		recordingSessions.Inc()
		recordingActive.Set(1)
		return
	}
	recordingActive.Set(0)
}

// RecordRecognitionEvent counts recognizer callbacks
func RecordRecognitionEvent(kind string) {
	recognitionEvents.WithLabelValues(kind).Inc()
}

// SetPlaying tracks the playback state machine
func SetPlaying(active bool) {
	if active {
		playbackActive.Set(1)
		return
	}
	playbackActive.Set(0)
}

// RecordAudioBytes records audio bytes processed
func RecordAudioBytes(direction string, bytes int64) {
	audioBytesProcessed.WithLabelValues(direction).Add(float64(bytes))
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures increments circuit breaker failure counter
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}
