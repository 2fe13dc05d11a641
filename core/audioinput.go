package realtime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

const streamStopTimeout = 2 * time.Second

var errNoAudioInput = errors.New("no audio input configured")

// audioInput normalizes capture clients with explicit start/stop controls and
// clients that only expose a blocking stream behind one start/stop facade.
type audioInput struct {
	// fine is set when the client supports explicit capture controls.
	fine AudioInput
	// stream is set when the client only supports a blocking capture loop.
	stream AudioInputStream

	// isCapturing reports whether capture was started and not yet stopped.
	isCapturing atomic.Bool

	mu           sync.Mutex
	cancelStream context.CancelFunc
	streamDone   chan struct{}

	// onStreamError receives failures of a blocking stream after it started.
	onStreamError func(error)
}

func newAudioInput(client any) *audioInput {
	a := &audioInput{onStreamError: func(error) {}}
	a.Set(client)
	return a
}

// Set replaces the configured client. Clients with capture controls take
// precedence over the streaming form. Nil and typed-nil values unconfigure.
func (a *audioInput) Set(client any) {
	if a == nil {
		return
	}

	a.fine = nil
	a.stream = nil
	a.isCapturing.Store(false)

	if isNilClient(client) {
		return
	}

	if fine, ok := client.(AudioInput); ok {
		a.fine = fine
	} else if stream, ok := client.(AudioInputStream); ok {
		a.stream = stream
	}
}

func (a *audioInput) IsConfigured() bool            { return a != nil && (a.fine != nil || a.stream != nil) }
func (a *audioInput) SupportsCaptureControls() bool { return a != nil && a.fine != nil }
func (a *audioInput) IsCapturing() bool             { return a != nil && a.isCapturing.Load() }

// Start begins delivering captured chunks to onAudio. Controlled clients
// report start failures directly; streaming clients report later failures
// through onStreamError.
func (a *audioInput) Start(ctx context.Context, onAudio func(audio []byte)) error {
	if !a.IsConfigured() {
		return errNoAudioInput
	}

	if !a.isCapturing.CompareAndSwap(false, true) {
		return nil
	}

	if a.fine != nil {
		if err := a.fine.StartCapture(ctx, onAudio); err != nil {
			a.isCapturing.Store(false)
			return err
		}
		return nil
	}

	streamCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	a.mu.Lock()
	a.cancelStream, a.streamDone = cancel, done
	a.mu.Unlock()

	go func() {
		defer close(done)
		if err := a.stream.Stream(streamCtx, onAudio); err != nil && streamCtx.Err() == nil {
			a.isCapturing.Store(false)
			a.onStreamError(err)
		}
	}()
	return nil
}

// Stop ends capture. It is a no-op when capture was never started.
func (a *audioInput) Stop() error {
	if a == nil || !a.isCapturing.CompareAndSwap(true, false) {
		return nil
	}

	if a.fine != nil {
		return a.fine.StopCapture()
	}

	a.mu.Lock()
	cancel, done := a.cancelStream, a.streamDone
	a.cancelStream, a.streamDone = nil, nil
	a.mu.Unlock()
	if cancel == nil {
		return nil
	}

	cancel()
	select {
	case <-done:
	case <-time.After(streamStopTimeout):
		logger.Warn("audio input stream did not stop in time")
	}
	return nil
}
