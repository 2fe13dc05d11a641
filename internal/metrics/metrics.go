// Package metrics exposes Prometheus instruments for realtime sessions.
//
// All methods are safe to call on a nil *Metrics, which records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ema_realtime"

type Metrics struct {
	// Session lifecycle
	SessionsStarted prometheus.Counter
	SessionFailures *prometheus.CounterVec
	SessionState    prometheus.Gauge

	// Audio
	FramesSent        prometheus.Counter
	FrameBytesDropped prometheus.Counter
	PlaybackSamples   prometheus.Counter
	BargeIns          prometheus.Counter

	// Protocol
	EventsReceived *prometheus.CounterVec
	ProtocolErrors prometheus.Counter

	// Text to speech
	SpeechRequests *prometheus.CounterVec
	SpeechFailures *prometheus.CounterVec
}

// New creates the instruments and registers them with reg. A nil reg uses
// the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Total number of sessions that left the idle state",
		}),
		SessionFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_failures_total",
			Help:      "Total number of sessions aborted by a fatal error, by category",
		}, []string{"category"}),
		SessionState: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_state",
			Help:      "Current controller state (0 idle, 1 connecting, 2 active, 3 stopping)",
		}),

		FramesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_frames_sent_total",
			Help:      "Total number of input audio frames sent to the backend",
		}),
		FrameBytesDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_frame_bytes_dropped_total",
			Help:      "Total number of captured bytes discarded as an incomplete frame",
		}),
		PlaybackSamples: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_samples_total",
			Help:      "Total number of PCM16 samples handed to the audio sink",
		}),
		BargeIns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "barge_ins_total",
			Help:      "Total number of times user speech flushed assistant playback",
		}),

		EventsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_received_total",
			Help:      "Total number of decoded inbound protocol events, by kind",
		}, []string{"kind"}),
		ProtocolErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "protocol_errors_total",
			Help:      "Total number of malformed or unrecognised inbound messages",
		}),

		SpeechRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tts_requests_total",
			Help:      "Total number of text-to-speech requests, by provider",
		}, []string{"provider"}),
		SpeechFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tts_failures_total",
			Help:      "Total number of failed text-to-speech requests, by provider",
		}, []string{"provider"}),
	}
}

func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.SessionsStarted.Inc()
}

func (m *Metrics) SessionFailed(category string) {
	if m == nil {
		return
	}
	m.SessionFailures.WithLabelValues(category).Inc()
}

func (m *Metrics) StateChanged(state int) {
	if m == nil {
		return
	}
	m.SessionState.Set(float64(state))
}

func (m *Metrics) FrameSent() {
	if m == nil {
		return
	}
	m.FramesSent.Inc()
}

func (m *Metrics) BytesDropped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.FrameBytesDropped.Add(float64(n))
}

func (m *Metrics) SamplesPlayed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.PlaybackSamples.Add(float64(n))
}

func (m *Metrics) BargeIn() {
	if m == nil {
		return
	}
	m.BargeIns.Inc()
}

func (m *Metrics) EventReceived(kind string) {
	if m == nil {
		return
	}
	m.EventsReceived.WithLabelValues(kind).Inc()
}

func (m *Metrics) ProtocolError() {
	if m == nil {
		return
	}
	m.ProtocolErrors.Inc()
}

func (m *Metrics) SpeechRequested(provider string) {
	if m == nil {
		return
	}
	m.SpeechRequests.WithLabelValues(provider).Inc()
}

func (m *Metrics) SpeechFailed(provider string) {
	if m == nil {
		return
	}
	m.SpeechFailures.WithLabelValues(provider).Inc()
}
