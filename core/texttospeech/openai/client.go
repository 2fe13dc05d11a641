// Package openai synthesizes speech with the OpenAI speech endpoint.
package openai

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/koscakluka/ema-realtime/core/audio"
	"github.com/koscakluka/ema-realtime/core/texttospeech"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "tts-1"
	DefaultVoice   = "alloy"

	providerName = "openai"
)

var availableVoices = []texttospeech.Voice{
	{ID: "alloy", Name: "Alloy"},
	{ID: "ash", Name: "Ash"},
	{ID: "coral", Name: "Coral"},
	{ID: "echo", Name: "Echo"},
	{ID: "fable", Name: "Fable"},
	{ID: "nova", Name: "Nova"},
	{ID: "onyx", Name: "Onyx"},
	{ID: "sage", Name: "Sage"},
	{ID: "shimmer", Name: "Shimmer"},
}

type Client struct {
	client openai.Client
	model  string
}

func NewClient(apiKey string, opts ...texttospeech.ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s: %w", providerName, texttospeech.ErrMissingKey)
	}

	options := texttospeech.NewClientOptions(DefaultBaseURL, opts...)
	return &Client{
		client: openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithBaseURL(options.BaseURL+"/"),
			option.WithHTTPClient(options.HTTPClient),
		),
		model: DefaultModel,
	}, nil
}

// Synthesize requests raw PCM, which the endpoint produces at 24kHz mono.
func (c *Client) Synthesize(ctx context.Context, text, voice string) (*texttospeech.Speech, error) {
	if text == "" {
		return nil, texttospeech.ErrEmptyText
	}
	if voice == "" {
		voice = DefaultVoice
	}

	resp, err := c.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(c.model),
		Input:          text,
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormat("pcm"),
	})
	if err != nil {
		return nil, fmt.Errorf("speech synthesis failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read speech: %w", err)
	}
	return &texttospeech.Speech{Audio: data, Format: audio.ContainerPCM, SampleRate: audio.DefaultSampleRate}, nil
}

func (c *Client) Voices(context.Context) ([]texttospeech.Voice, error) {
	return slices.Clone(availableVoices), nil
}
