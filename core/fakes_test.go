package realtime

import (
	"context"
	"iter"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/koscakluka/ema-realtime/core/config"
	"github.com/koscakluka/ema-realtime/core/transcript"
	"github.com/koscakluka/ema-realtime/core/transport"
)

func validSessionConfig() config.SessionConfig {
	return config.SessionConfig{
		Endpoint:    "https://api.openai.com",
		Credential:  "test-key",
		Deployment:  "gpt-4o-realtime-preview",
		Temperature: 0.8,
		Voice:       "alloy",
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

type fakeMessage struct {
	raw []byte
	err error
}

type fakeConn struct {
	mu      sync.Mutex
	sent    []any
	sendErr error

	incoming   chan fakeMessage
	closed     chan struct{}
	closeOnce  sync.Once
	closeCalls atomic.Int32
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		incoming: make(chan fakeMessage, 32),
		closed:   make(chan struct{}),
	}
}

func (c *fakeConn) Send(_ context.Context, msg any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, msg)
	return nil
}

func (c *fakeConn) Messages() iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		for {
			select {
			case <-c.closed:
				return
			case msg, ok := <-c.incoming:
				if !ok {
					return
				}
				if !yield(msg.raw, msg.err) || msg.err != nil {
					return
				}
			}
		}
	}
}

func (c *fakeConn) Close() error {
	c.closeCalls.Add(1)
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) push(raw string) { c.incoming <- fakeMessage{raw: []byte(raw)} }
func (c *fakeConn) fail(err error)  { c.incoming <- fakeMessage{err: err} }

func (c *fakeConn) setSendErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendErr = err
}

func (c *fakeConn) sentMessages() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.sent)
}

type fakeDialer struct {
	conn  *fakeConn
	err   error
	block bool

	dials  atomic.Int32
	mu     sync.Mutex
	params transport.ConnectParams
}

func (d *fakeDialer) Dial(ctx context.Context, params transport.ConnectParams) (transport.Conn, error) {
	d.dials.Add(1)
	d.mu.Lock()
	d.params = params
	d.mu.Unlock()

	if d.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if d.err != nil {
		return nil, d.err
	}
	return d.conn, nil
}

type fakeInput struct {
	mu       sync.Mutex
	onAudio  func([]byte)
	startErr error

	starts atomic.Int32
	stops  atomic.Int32
}

func (f *fakeInput) StartCapture(_ context.Context, onAudio func([]byte)) error {
	f.starts.Add(1)
	if f.startErr != nil {
		return f.startErr
	}
	f.mu.Lock()
	f.onAudio = onAudio
	f.mu.Unlock()
	return nil
}

func (f *fakeInput) StopCapture() error {
	f.stops.Add(1)
	f.mu.Lock()
	f.onAudio = nil
	f.mu.Unlock()
	return nil
}

func (f *fakeInput) deliver(chunk []byte) {
	f.mu.Lock()
	onAudio := f.onAudio
	f.mu.Unlock()
	if onAudio != nil {
		onAudio(chunk)
	}
}

// fakeOutput behaves like a FIFO playback queue; Clear drops what is queued.
type fakeOutput struct {
	mu     sync.Mutex
	rate   int
	queue  [][]int16
	ops    []string
	clears int
}

func (f *fakeOutput) Init(sampleRate int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rate = sampleRate
	f.ops = append(f.ops, "init")
	return nil
}

func (f *fakeOutput) Play(samples []int16) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, samples)
	f.ops = append(f.ops, "play")
	return nil
}

func (f *fakeOutput) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = nil
	f.clears++
	f.ops = append(f.ops, "clear")
}

func (f *fakeOutput) snapshot() (ops []string, queue [][]int16, clears int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.ops), slices.Clone(f.queue), f.clears
}

type harness struct {
	t          *testing.T
	controller *Controller
	dialer     *fakeDialer
	conn       *fakeConn
	input      *fakeInput
	output     *fakeOutput

	mu      sync.Mutex
	states  []State
	errs    []error
	exports []transcript.Artifact
}

func newHarness(t *testing.T, cfg config.SessionConfig, opts ...ControllerOption) *harness {
	t.Helper()

	h := &harness{
		t:      t,
		conn:   newFakeConn(),
		input:  &fakeInput{},
		output: &fakeOutput{},
	}
	h.dialer = &fakeDialer{conn: h.conn}

	base := []ControllerOption{
		WithDialer(h.dialer),
		WithAudioInput(h.input),
		WithAudioOutput(h.output),
		WithStateChangeCallback(func(s State) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.states = append(h.states, s)
		}),
		WithErrorCallback(func(err error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.errs = append(h.errs, err)
		}),
		WithExportCallback(func(a transcript.Artifact) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.exports = append(h.exports, a)
		}),
	}
	h.controller = NewController(cfg, append(base, opts...)...)
	t.Cleanup(func() { _ = h.controller.Close() })

	return h
}

func (h *harness) start() {
	h.t.Helper()
	if err := h.controller.Start(context.Background()); err != nil {
		h.t.Fatalf("expected start to succeed, got %v", err)
	}
}

// activate starts a session and completes the backend handshake.
func (h *harness) activate() {
	h.t.Helper()
	h.start()
	h.conn.push(`{"type":"session.created","session":{"id":"sess_1"}}`)
	waitFor(h.t, "active state", func() bool { return h.controller.State() == StateActive })
}

func (h *harness) stop() {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.controller.Stop(ctx); err != nil {
		h.t.Fatalf("expected stop to succeed, got %v", err)
	}
}

func (h *harness) waitIdle() {
	h.t.Helper()
	waitFor(h.t, "idle state", func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		return len(h.states) > 0 && h.states[len(h.states)-1] == StateIdle && h.controller.State() == StateIdle
	})
}

func (h *harness) recordedStates() []State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.states)
}

func (h *harness) recordedErrors() []error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.errs)
}

func (h *harness) recordedExports() []transcript.Artifact {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.exports)
}

func (h *harness) lastEntryText() string {
	entries := h.controller.Transcript()
	if len(entries) == 0 {
		return ""
	}
	return entries[len(entries)-1].Text
}
