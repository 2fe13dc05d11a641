// Package texttospeech defines the capability shared by the standalone speech
// synthesis vendors: turn text into playable audio with a chosen voice.
package texttospeech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/koscakluka/ema-realtime/core/audio"
)

var (
	ErrMissingKey = errors.New("missing api key")
	ErrEmptyText  = errors.New("nothing to synthesize")
)

// Speech is synthesized audio as returned by a vendor.
type Speech struct {
	Audio  []byte
	Format audio.ContainerFormat
	// SampleRate applies to audio.ContainerPCM payloads only; other
	// containers describe their own rate.
	SampleRate int
}

// Samples decodes the speech into mono PCM16 at sampleRate.
func (s *Speech) Samples(sampleRate int) ([]int16, error) {
	return audio.DecodeSpeech(s.Format, s.Audio, s.SampleRate, sampleRate)
}

type Voice struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Synthesizer interface {
	// Synthesize renders text with voice. An empty voice selects the vendor
	// default.
	Synthesize(ctx context.Context, text, voice string) (*Speech, error)
}

type VoiceLister interface {
	Voices(ctx context.Context) ([]Voice, error)
}

// APIError is a non-2xx response from a vendor API.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s responded with status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// CheckResponse turns a non-2xx response into an *APIError carrying the
// start of the response body.
func CheckResponse(provider string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &APIError{Provider: provider, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

type ClientOptions struct {
	BaseURL    string
	HTTPClient *http.Client
}

type ClientOption func(*ClientOptions)

// WithBaseURL points a vendor client at a different API host, e.g. a proxy.
func WithBaseURL(baseURL string) ClientOption {
	return func(o *ClientOptions) {
		if baseURL != "" {
			o.BaseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

func WithHTTPClient(client *http.Client) ClientOption {
	return func(o *ClientOptions) {
		if client != nil {
			o.HTTPClient = client
		}
	}
}

// NewClientOptions applies opts over defaultBaseURL and a traced HTTP client.
func NewClientOptions(defaultBaseURL string, opts ...ClientOption) ClientOptions {
	o := ClientOptions{BaseURL: defaultBaseURL, HTTPClient: DefaultHTTPClient()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func DefaultHTTPClient() *http.Client {
	return &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return operation + " " + r.URL.Path
			}),
		),
	}
}
