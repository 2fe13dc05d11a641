// Package realtime drives one voice conversation at a time against a realtime
// speech backend: it streams microphone frames out, plays assistant audio
// back, and keeps the conversation transcript.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/koscakluka/ema-realtime/core/audio"
	"github.com/koscakluka/ema-realtime/core/config"
	"github.com/koscakluka/ema-realtime/core/events"
	"github.com/koscakluka/ema-realtime/core/transcript"
	"github.com/koscakluka/ema-realtime/core/transport"
	"github.com/koscakluka/ema-realtime/internal/metrics"
)

const DefaultHandshakeTimeout = 15 * time.Second

// Controller owns the session state machine. It runs at most one session at a
// time; a failed or stopped session always returns it to StateIdle.
type Controller struct {
	config           config.SessionConfig
	dialer           transport.Dialer
	handshakeTimeout time.Duration

	audioInput  *audioInput
	audioOutput *audioOutput
	transcript  *transcript.Transcript
	metrics     *metrics.Metrics
	now         func() time.Time
	callbacks   callbacks

	mu      sync.Mutex
	state   State
	session *session
	lastErr error
}

type callbacks struct {
	onStateChange func(State)
	onError       func(error)
	onTranscript  func([]transcript.Entry)
	onExport      func(transcript.Artifact)
	onEvent       func(events.Event)
}

func NewController(cfg config.SessionConfig, opts ...ControllerOption) *Controller {
	c := &Controller{
		config:           cfg,
		dialer:           transport.NewWebsocketDialer(),
		handshakeTimeout: DefaultHandshakeTimeout,
		audioInput:       newAudioInput(nil),
		audioOutput:      newAudioOutput(nil),
		now:              time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}
	c.transcript = transcript.New(transcript.WithClock(c.now))

	return c
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the error that ended the most recent session, or nil when it was
// stopped by the caller.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Transcript returns a copy of the conversation so far.
func (c *Controller) Transcript() []transcript.Entry {
	return c.transcript.Snapshot()
}

// ClearTranscript drops every entry. It is refused while a session is
// running because open turn indices would no longer be valid.
func (c *Controller) ClearTranscript() error {
	c.mu.Lock()
	running := c.session != nil
	c.mu.Unlock()
	if running {
		return ErrSessionRunning
	}

	c.transcript.Reset()
	c.publishTranscript()
	return nil
}

// Start begins a session. It returns once the session is connecting; the
// session keeps running after ctx ends and is ended with Stop.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrSessionRunning
	}

	if err := c.config.Validate(); err != nil {
		c.mu.Unlock()
		err = fmt.Errorf("%w: %w", ErrConfiguration, err)
		c.metrics.SessionFailed(errorCategory(err))
		c.callbacks.error(err)
		return err
	}

	s := newSession(ctx)
	c.session = s
	c.lastErr = nil
	c.state = StateConnecting
	c.mu.Unlock()

	c.audioInput.onStreamError = s.reportDeviceError
	c.metrics.SessionStarted()
	c.notifyState(StateConnecting)
	logger.Info("session starting", "session_id", s.id, "azure", c.config.IsAzure)

	go c.run(s)
	return nil
}

// Stop ends the running session and waits until the controller is idle or
// ctx ends. It is safe in any state.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s == nil {
		return nil
	}

	s.requestStop()
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops any running session.
func (c *Controller) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.Stop(ctx)
}

type inboundMessage struct {
	raw []byte
	err error
}

type session struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc

	conn           transport.Conn
	framer         *audio.Framer
	captureStarted bool
	// recording gates frame transmission. It is cleared the moment a stop is
	// requested, before the loop observes the request.
	recording atomic.Bool

	userEntry      int
	assistantEntry int

	audioCh   chan []byte
	inbound   chan inboundMessage
	deviceErr chan error

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

func newSession(ctx context.Context) *session {
	sessionCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	return &session{
		id:             uuid.NewString(),
		ctx:            sessionCtx,
		cancel:         cancel,
		framer:         audio.NewFramer(audio.FrameSize),
		userEntry:      -1,
		assistantEntry: -1,
		audioCh:        make(chan []byte, 64),
		inbound:        make(chan inboundMessage),
		deviceErr:      make(chan error, 1),
		stopCh:         make(chan struct{}),
		done:           make(chan struct{}),
	}
}

func (s *session) requestStop() {
	s.stopOnce.Do(func() {
		s.recording.Store(false)
		close(s.stopCh)
		s.cancel()
	})
}

func (s *session) stopRequested() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

// onAudio is the capture callback. It may run on any goroutine.
func (s *session) onAudio(chunk []byte) {
	if !s.recording.Load() || len(chunk) == 0 {
		return
	}

	owned := make([]byte, len(chunk))
	copy(owned, chunk)
	select {
	case s.audioCh <- owned:
	case <-s.ctx.Done():
	}
}

func (s *session) reportDeviceError(err error) {
	select {
	case s.deviceErr <- err:
	default:
	}
}

func (s *session) read(conn transport.Conn) {
	defer close(s.inbound)
	for raw, err := range conn.Messages() {
		select {
		case s.inbound <- inboundMessage{raw: raw, err: err}:
		case <-s.ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

func (c *Controller) run(s *session) {
	defer close(s.done)

	ctx, span := tracer.Start(s.ctx, "session",
		trace.WithAttributes(attribute.String("session.id", s.id)))
	defer span.End()

	err := c.serve(ctx, s)
	if err != nil && s.stopRequested() {
		err = nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	c.teardown(s, err)
}

func (c *Controller) serve(ctx context.Context, s *session) error {
	conn, err := c.dialer.Dial(ctx, transport.ConnectParams{
		Endpoint:   c.config.Endpoint,
		Credential: c.config.Credential,
		Deployment: c.config.Deployment,
		Azure:      c.config.IsAzure,
	})
	if err != nil {
		return fmt.Errorf("%w: failed to open transport: %w", ErrConnection, err)
	}
	s.conn = conn
	if s.stopRequested() {
		return nil
	}

	handshake := events.NewSessionUpdate(events.SessionParams{
		Instructions: c.config.SystemInstructions,
		Temperature:  c.config.Temperature,
		Voice:        c.config.Voice,
	})
	if err := conn.Send(ctx, handshake); err != nil {
		return fmt.Errorf("%w: failed to send session configuration: %w", ErrConnection, err)
	}

	go s.read(conn)

	var handshakeTimeout <-chan time.Time
	if c.handshakeTimeout > 0 {
		timer := time.NewTimer(c.handshakeTimeout)
		defer timer.Stop()
		handshakeTimeout = timer.C
	}

	for {
		// A pending stop wins over queued audio and events.
		if s.stopRequested() {
			return nil
		}

		select {
		case <-s.stopCh:
			return nil

		case <-handshakeTimeout:
			return fmt.Errorf("%w: backend did not establish the session within %s", ErrConnection, c.handshakeTimeout)

		case err := <-s.deviceErr:
			return fmt.Errorf("%w: audio capture failed: %w", ErrDevice, err)

		case chunk := <-s.audioCh:
			if err := c.sendAudio(ctx, s, chunk); err != nil {
				return err
			}

		case msg, ok := <-s.inbound:
			if !ok || msg.err != nil {
				return c.closedError(msg.err)
			}
			if err := c.handleMessage(ctx, s, msg.raw); err != nil {
				return err
			}
			if c.State() == StateActive {
				handshakeTimeout = nil
			}
		}
	}
}

func (c *Controller) closedError(cause error) error {
	if cause == nil {
		cause = errors.New("backend closed the connection")
	}
	if c.State() == StateConnecting {
		return fmt.Errorf("%w: connection ended during handshake: %w", ErrConnection, cause)
	}
	return fmt.Errorf("%w: %w", ErrTransportClosed, cause)
}

func (c *Controller) sendAudio(ctx context.Context, s *session, chunk []byte) error {
	if !s.recording.Load() {
		return nil
	}

	for _, frame := range s.framer.Append(chunk) {
		if !s.recording.Load() {
			return nil
		}
		if err := s.conn.Send(ctx, events.NewAudioAppend(audio.EncodeBase64(frame))); err != nil {
			return fmt.Errorf("%w: failed to send audio frame: %w", ErrTransportClosed, err)
		}
		c.metrics.FrameSent()
	}
	return nil
}

// activate moves a connecting session to active once the backend has
// established it: playback is prepared first, then capture begins.
func (c *Controller) activate(ctx context.Context, s *session) error {
	_, span := tracer.Start(ctx, "session.activate")
	defer span.End()

	if err := c.audioOutput.Init(audio.DefaultSampleRate); err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: failed to initialize audio output: %w", ErrDevice, err)
	}

	s.recording.Store(true)
	if err := c.audioInput.Start(s.ctx, s.onAudio); err != nil {
		s.recording.Store(false)
		span.RecordError(err)
		return fmt.Errorf("%w: failed to start audio capture: %w", ErrDevice, err)
	}
	s.captureStarted = true

	c.setState(StateActive)
	logger.Info("session active", "session_id", s.id)
	return nil
}

// teardown releases everything a session acquired. Each step tolerates
// resources that were never acquired.
func (c *Controller) teardown(s *session, cause error) {
	s.recording.Store(false)
	if cause == nil {
		c.setState(StateStopping)
	}

	var releaseErrs []error
	if s.captureStarted {
		if err := c.audioInput.Stop(); err != nil {
			releaseErrs = append(releaseErrs, fmt.Errorf("failed to stop audio capture: %w", err))
		}
	}
	c.audioOutput.Clear()

	if dropped := s.framer.Reset(); dropped > 0 {
		c.metrics.BytesDropped(dropped)
		logger.Debug("dropped partial audio frame", "session_id", s.id, "bytes", dropped)
	}

	s.cancel()
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			releaseErrs = append(releaseErrs, fmt.Errorf("failed to close transport: %w", err))
		}
	}
	// Release failures never replace the cause and are not retried.
	if err := errors.Join(releaseErrs...); err != nil {
		logger.Warn("session resources not released cleanly", "session_id", s.id, "error", err)
	}

	if cause == nil && c.callbacks.onExport != nil {
		c.callbacks.onExport(transcript.Export(c.transcript.Snapshot(), c.now()))
	}

	c.mu.Lock()
	c.session = nil
	c.lastErr = cause
	c.state = StateIdle
	c.mu.Unlock()
	c.notifyState(StateIdle)

	if cause != nil {
		c.metrics.SessionFailed(errorCategory(cause))
		logger.Error("session failed", "session_id", s.id, "error", cause)
		c.callbacks.error(cause)
		return
	}
	logger.Info("session stopped", "session_id", s.id)
}

func (c *Controller) setState(state State) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
	c.notifyState(state)
}

func (c *Controller) notifyState(state State) {
	c.metrics.StateChanged(int(state))
	if c.callbacks.onStateChange != nil {
		c.callbacks.onStateChange(state)
	}
}

func (c *Controller) publishTranscript() {
	if c.callbacks.onTranscript != nil {
		c.callbacks.onTranscript(c.transcript.Snapshot())
	}
}

func (cb callbacks) error(err error) {
	if cb.onError != nil {
		cb.onError(err)
	}
}
