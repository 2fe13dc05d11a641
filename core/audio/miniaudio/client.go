package miniaudio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-realtime/core/audio"
)

// Client owns one miniaudio context and drives a capture device and a
// playback device on it. Capture runs at the realtime input rate; playback is
// (re)initialised at whatever rate Init is given.
type Client struct {
	// audioContext is only saved to be able to uninitialize it, it is an
	// ownership thing
	audioContext *malgo.AllocatedContext
	playbackClient
	captureClient

	closeOnce sync.Once
}

func NewClient() (*Client, error) {
	audioCtx, err := malgo.InitContext(
		nil,
		malgo.ContextConfig{},
		func(message string) { logger.Debug("malgo", "message", message) },
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	client := Client{audioContext: audioCtx}
	if err := client.captureClient.Init(audioCtx, audio.DefaultSampleRate); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize capture client: %w", err)
	}

	return &client, nil
}

func (c *Client) StartCapture(_ context.Context, onAudio func(audio []byte)) error {
	return c.captureClient.Start(onAudio)
}

func (c *Client) StopCapture() error {
	return c.captureClient.Stop()
}

// Init prepares playback at sampleRate, replacing any previous playback
// device running at a different rate.
func (c *Client) Init(sampleRate int) error {
	if err := c.playbackClient.Init(c.audioContext, sampleRate); err != nil {
		return fmt.Errorf("failed to initialize playback client: %w", err)
	}
	if err := c.playbackClient.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}
	return nil
}

func (c *Client) Play(samples []int16) error {
	return c.playbackClient.SendAudio(audio.PCM16ToBytes(samples))
}

func (c *Client) Clear() {
	c.playbackClient.ClearBuffer()
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		_ = c.captureClient.Uninit()
		_ = c.playbackClient.Uninit()
		_ = c.audioContext.Uninit()
		c.audioContext.Free()
	})
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.GetDefaultEncodingInfo()
}
