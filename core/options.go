package realtime

import (
	"context"
	"time"

	"github.com/koscakluka/ema-realtime/core/events"
	"github.com/koscakluka/ema-realtime/core/transcript"
	"github.com/koscakluka/ema-realtime/core/transport"
	"github.com/koscakluka/ema-realtime/internal/metrics"
)

type ControllerOption func(*Controller)

// AudioInput is a capture device with explicit start and stop controls.
type AudioInput interface {
	StartCapture(ctx context.Context, onAudio func(audio []byte)) error
	StopCapture() error
}

func WithAudioInput(client AudioInput) ControllerOption {
	return func(c *Controller) { c.audioInput.Set(client) }
}

// AudioInputStream is a capture device exposing a blocking loop that runs
// until ctx is cancelled.
type AudioInputStream interface {
	Stream(ctx context.Context, onAudio func(audio []byte)) error
}

func WithAudioInputStream(client AudioInputStream) ControllerOption {
	return func(c *Controller) { c.audioInput.Set(client) }
}

// AudioOutput is a sink playing decoded PCM16 samples.
type AudioOutput interface {
	Init(sampleRate int) error
	Play(samples []int16) error
	Clear()
}

func WithAudioOutput(client AudioOutput) ControllerOption {
	return func(c *Controller) { c.audioOutput.Set(client) }
}

// AudioOutputRaw is a sink accepting little-endian PCM16 bytes.
type AudioOutputRaw interface {
	SendAudio(audio []byte) error
	ClearBuffer()
}

func WithAudioOutputRaw(client AudioOutputRaw) ControllerOption {
	return func(c *Controller) { c.audioOutput.Set(client) }
}

// WithDialer replaces the websocket dialer used to reach the backend.
func WithDialer(dialer transport.Dialer) ControllerOption {
	return func(c *Controller) {
		if dialer != nil {
			c.dialer = dialer
		}
	}
}

// WithHandshakeTimeout bounds how long a session may stay connecting before
// it fails. Zero or negative disables the bound.
func WithHandshakeTimeout(timeout time.Duration) ControllerOption {
	return func(c *Controller) { c.handshakeTimeout = timeout }
}

func WithMetrics(m *metrics.Metrics) ControllerOption {
	return func(c *Controller) { c.metrics = m }
}

// WithClock replaces time.Now for transcript entries and export names.
func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithStateChangeCallback is called on every state transition, from the
// goroutine that made the transition.
func WithStateChangeCallback(callback func(State)) ControllerOption {
	return func(c *Controller) { c.callbacks.onStateChange = callback }
}

// WithErrorCallback is called once per failed session with the fatal error,
// and for every malformed inbound message, which does not end the session.
func WithErrorCallback(callback func(error)) ControllerOption {
	return func(c *Controller) { c.callbacks.onError = callback }
}

// WithTranscriptCallback receives a snapshot after every transcript change.
func WithTranscriptCallback(callback func([]transcript.Entry)) ControllerOption {
	return func(c *Controller) { c.callbacks.onTranscript = callback }
}

// WithExportCallback receives the transcript artifact when the user stops a
// session.
func WithExportCallback(callback func(transcript.Artifact)) ControllerOption {
	return func(c *Controller) { c.callbacks.onExport = callback }
}

// WithEventCallback observes every decoded inbound event before the
// controller applies it.
func WithEventCallback(callback func(events.Event)) ControllerOption {
	return func(c *Controller) { c.callbacks.onEvent = callback }
}
