// Package deepgram synthesizes speech with Deepgram Aura over the Deepgram
// speak websocket.
package deepgram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	msginterfaces "github.com/deepgram/deepgram-go-sdk/pkg/api/speak/v1/websocket/interfaces"
	clientinterfaces "github.com/deepgram/deepgram-go-sdk/pkg/client/interfaces/v1"
	"github.com/deepgram/deepgram-go-sdk/pkg/client/speak"

	"github.com/koscakluka/ema-realtime/core/audio"
	"github.com/koscakluka/ema-realtime/core/texttospeech"
)

const (
	DefaultVoice   = "aura-2-thalia-en"
	DefaultTimeout = 15 * time.Second

	providerName = "deepgram"
)

var availableVoices = []texttospeech.Voice{
	{ID: "aura-2-thalia-en", Name: "Thalia"},
	{ID: "aura-2-andromeda-en", Name: "Andromeda"},
	{ID: "aura-2-helena-en", Name: "Helena"},
	{ID: "aura-2-apollo-en", Name: "Apollo"},
	{ID: "aura-2-arcas-en", Name: "Arcas"},
	{ID: "aura-2-aries-en", Name: "Aries"},
	{ID: "aura-asteria-en", Name: "Asteria"},
	{ID: "aura-luna-en", Name: "Luna"},
	{ID: "aura-orion-en", Name: "Orion"},
}

var errConnect = errors.New("failed to connect to deepgram")

// speaker is the part of the SDK websocket client used here.
type speaker interface {
	Connect() bool
	SpeakWithText(text string) error
	Flush() error
	Stop()
}

type dialFunc func(ctx context.Context, apiKey string, options *clientinterfaces.WSSpeakOptions, callback *speakCallback) (speaker, error)

func dialSDK(ctx context.Context, apiKey string, options *clientinterfaces.WSSpeakOptions, callback *speakCallback) (speaker, error) {
	client, err := speak.NewWSUsingCallback(ctx, apiKey, &clientinterfaces.ClientOptions{}, options, callback)
	if err != nil {
		return nil, err
	}
	return client, nil
}

type Client struct {
	apiKey  string
	timeout time.Duration
	dial    dialFunc
}

type Option func(*Client)

// WithTimeout bounds a single synthesis from connect to the final flush.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s: %w", providerName, texttospeech.ErrMissingKey)
	}

	c := &Client{apiKey: apiKey, timeout: DefaultTimeout, dial: dialSDK}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Synthesize sends text followed by a flush and collects audio until
// Deepgram confirms the flush.
func (c *Client) Synthesize(ctx context.Context, text, voice string) (*texttospeech.Speech, error) {
	if text == "" {
		return nil, texttospeech.ErrEmptyText
	}
	if voice == "" {
		voice = DefaultVoice
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	callback := newSpeakCallback()
	client, err := c.dial(ctx, c.apiKey, &clientinterfaces.WSSpeakOptions{
		Model:      voice,
		Encoding:   string(audio.EncodingLinear16),
		SampleRate: audio.DefaultSampleRate,
	}, callback)
	if err != nil {
		return nil, fmt.Errorf("failed to create deepgram client: %w", err)
	}
	defer client.Stop()

	if !client.Connect() {
		return nil, errConnect
	}
	if err := client.SpeakWithText(text); err != nil {
		return nil, fmt.Errorf("failed to send text: %w", err)
	}
	if err := client.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush text: %w", err)
	}

	select {
	case <-callback.flushed:
	case err := <-callback.failed:
		return nil, err
	case <-ctx.Done():
		return nil, fmt.Errorf("deepgram did not finish speaking: %w", ctx.Err())
	}

	return &texttospeech.Speech{
		Audio:      callback.audio(),
		Format:     audio.ContainerPCM,
		SampleRate: audio.DefaultSampleRate,
	}, nil
}

// Voices lists the Aura voices. Deepgram has no voice catalogue endpoint.
func (c *Client) Voices(context.Context) ([]texttospeech.Voice, error) {
	return slices.Clone(availableVoices), nil
}

type speakCallback struct {
	mu  sync.Mutex
	buf bytes.Buffer

	flushOnce sync.Once
	flushed   chan struct{}
	failed    chan error
}

func newSpeakCallback() *speakCallback {
	return &speakCallback{flushed: make(chan struct{}), failed: make(chan error, 1)}
}

func (s *speakCallback) audio() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return bytes.Clone(s.buf.Bytes())
}

func (s *speakCallback) Binary(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.Write(data)
	return nil
}

func (s *speakCallback) Flush(*msginterfaces.FlushedResponse) error {
	s.flushOnce.Do(func() { close(s.flushed) })
	return nil
}

func (s *speakCallback) Error(resp *msginterfaces.ErrorResponse) error {
	err := errors.New("deepgram reported an error")
	if resp != nil {
		err = fmt.Errorf("deepgram reported an error: %+v", *resp)
	}
	select {
	case s.failed <- err:
	default:
	}
	return nil
}

func (s *speakCallback) Open(*msginterfaces.OpenResponse) error         { return nil }
func (s *speakCallback) Metadata(*msginterfaces.MetadataResponse) error { return nil }
func (s *speakCallback) Clear(*msginterfaces.ClearedResponse) error     { return nil }
func (s *speakCallback) Close(*msginterfaces.CloseResponse) error       { return nil }
func (s *speakCallback) Warning(*msginterfaces.WarningResponse) error   { return nil }
func (s *speakCallback) UnhandledEvent([]byte) error                    { return nil }
