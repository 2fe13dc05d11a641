package portaudio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/koscakluka/ema-realtime/core/audio"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

var logger = otelslog.NewLogger("github.com/koscakluka/ema-realtime/core/audio/portaudio")

// Client is a duplex PortAudio stream at the realtime sample rate. Capture is
// a blocking Stream loop and playback accepts raw PCM16 bytes, written out in
// whole device buffers.
type Client struct {
	bufferSize int
	stream     *portaudio.Stream

	in  []int16
	out []int16

	started   bool
	startMu   sync.Mutex
	writeMu   sync.Mutex
	leftover  []byte
	closeOnce sync.Once
}

func NewClient(bufferSize int) (*Client, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	in := make([]int16, bufferSize)
	out := make([]int16, bufferSize)
	stream, err := portaudio.OpenDefaultStream(1, 1, audio.DefaultSampleRate, bufferSize, in, out)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to open portaudio stream: %w", err)
	}

	return &Client{
		bufferSize: bufferSize,
		stream:     stream,
		in:         in,
		out:        out,
	}, nil
}

func (c *Client) start() error {
	c.startMu.Lock()
	defer c.startMu.Unlock()
	if c.started {
		return nil
	}
	if err := c.stream.Start(); err != nil {
		return fmt.Errorf("failed to start portaudio stream: %w", err)
	}
	c.started = true
	return nil
}

// Stream reads microphone buffers until ctx is cancelled.
func (c *Client) Stream(ctx context.Context, onAudio func(audio []byte)) error {
	if err := c.start(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := c.stream.Read(); err != nil {
			if errors.Is(err, portaudio.InputOverflowed) {
				logger.Debug("portaudio input overflowed")
				continue
			}
			return fmt.Errorf("failed to read from portaudio stream: %w", err)
		}
		onAudio(audio.PCM16ToBytes(c.in))
	}
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		if err := c.stream.Close(); err != nil {
			logger.Warn("failed to close portaudio stream", "error", err)
		}
		_ = portaudio.Terminate()
	})
}

// SendAudio writes PCM16 bytes to the output device, keeping anything short
// of a full device buffer for the next call.
func (c *Client) SendAudio(chunk []byte) error {
	if err := c.start(); err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	bufferBytes := c.bufferSize * 2
	pending := append(c.leftover, chunk...)
	for len(pending) >= bufferBytes {
		copy(c.out, audio.BytesToPCM16(pending[:bufferBytes]))
		if err := c.stream.Write(); err != nil && !errors.Is(err, portaudio.OutputUnderflowed) {
			c.leftover = nil
			return fmt.Errorf("failed to write to portaudio stream: %w", err)
		}
		pending = pending[bufferBytes:]
	}
	c.leftover = append([]byte(nil), pending...)

	return nil
}

func (c *Client) ClearBuffer() {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.leftover = nil
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.GetDefaultEncodingInfo()
}
