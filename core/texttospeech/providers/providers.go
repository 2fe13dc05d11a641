// Package providers selects a speech synthesis vendor from configuration.
package providers

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/koscakluka/ema-realtime/core/config"
	"github.com/koscakluka/ema-realtime/core/texttospeech"
	"github.com/koscakluka/ema-realtime/core/texttospeech/azure"
	"github.com/koscakluka/ema-realtime/core/texttospeech/deepgram"
	"github.com/koscakluka/ema-realtime/core/texttospeech/elevenlabs"
	"github.com/koscakluka/ema-realtime/core/texttospeech/openai"
	"github.com/koscakluka/ema-realtime/core/texttospeech/speechify"
	"github.com/koscakluka/ema-realtime/internal/metrics"
)

type vendor interface {
	texttospeech.Synthesizer
	texttospeech.VoiceLister
}

// Provider is the configured vendor with its default voice, traced and
// counted.
type Provider struct {
	name   config.TTSProvider
	voice  string
	vendor vendor

	metrics *metrics.Metrics
}

type options struct {
	clientOptions []texttospeech.ClientOption
	metrics       *metrics.Metrics
}

type Option func(*options)

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithClientOptions is passed to HTTP based vendors.
func WithClientOptions(opts ...texttospeech.ClientOption) Option {
	return func(o *options) { o.clientOptions = append(o.clientOptions, opts...) }
}

func New(cfg config.TTSConfig, opts ...Option) (*Provider, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	name := cfg.Provider
	if name == "" {
		name = config.TTSAzure
	}

	var (
		v   vendor
		err error
	)
	switch name {
	case config.TTSAzure:
		v, err = azure.NewClient(cfg.AzureSpeechKey, cfg.AzureSpeechRegion, o.clientOptions...)
	case config.TTSElevenLabs:
		v, err = elevenlabs.NewClient(cfg.ElevenLabsKey, o.clientOptions...)
	case config.TTSSpeechify:
		v, err = speechify.NewClient(cfg.SpeechifyKey, o.clientOptions...)
	case config.TTSDeepgram:
		v, err = deepgram.NewClient(cfg.DeepgramKey)
	case config.TTSOpenAI:
		v, err = openai.NewClient(cfg.OpenAIKey, o.clientOptions...)
	default:
		return nil, fmt.Errorf("%w: unknown tts provider %q", config.ErrInvalid, name)
	}
	if err != nil {
		return nil, err
	}

	return &Provider{name: name, voice: cfg.Voice, vendor: v, metrics: o.metrics}, nil
}

func (p *Provider) Name() config.TTSProvider { return p.name }

// Synthesize renders text with voice, falling back to the configured voice
// and then to the vendor default.
func (p *Provider) Synthesize(ctx context.Context, text, voice string) (*texttospeech.Speech, error) {
	if voice == "" {
		voice = p.voice
	}

	ctx, span := tracer.Start(ctx, "synthesize speech", trace.WithAttributes(
		attribute.String("tts.provider", string(p.name)),
		attribute.String("tts.voice", voice),
		attribute.Int("tts.text_length", len(text)),
	))
	defer span.End()

	p.metrics.SpeechRequested(string(p.name))
	speech, err := p.vendor.Synthesize(ctx, text, voice)
	if err != nil {
		p.metrics.SpeechFailed(string(p.name))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn("speech synthesis failed", "provider", p.name, "error", err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("tts.audio_bytes", len(speech.Audio)))
	return speech, nil
}

func (p *Provider) Voices(ctx context.Context) ([]texttospeech.Voice, error) {
	ctx, span := tracer.Start(ctx, "list voices", trace.WithAttributes(
		attribute.String("tts.provider", string(p.name)),
	))
	defer span.End()

	voices, err := p.vendor.Voices(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list %s voices: %w", p.name, err)
	}
	return voices, nil
}
