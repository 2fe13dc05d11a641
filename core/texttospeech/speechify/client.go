// Package speechify synthesizes speech with the Speechify HTTP API.
package speechify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/koscakluka/ema-realtime/core/audio"
	"github.com/koscakluka/ema-realtime/core/texttospeech"
)

const (
	DefaultBaseURL = "https://api.speechify.com"
	// DefaultVoicesURL serves the voice catalogue, which lives on a separate
	// host from synthesis.
	DefaultVoicesURL = "https://api.sws.speechify.com"
	DefaultVoice     = "henry"

	providerName = "speechify"
)

type Client struct {
	apiKey    string
	voicesURL string
	options   texttospeech.ClientOptions
}

// NewClient creates a Speechify client. When a base URL override is given it
// serves both synthesis and the voice catalogue.
func NewClient(apiKey string, opts ...texttospeech.ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s: %w", providerName, texttospeech.ErrMissingKey)
	}

	options := texttospeech.NewClientOptions(DefaultBaseURL, opts...)
	voicesURL := DefaultVoicesURL
	if options.BaseURL != DefaultBaseURL {
		voicesURL = options.BaseURL
	}
	return &Client{apiKey: apiKey, voicesURL: voicesURL, options: options}, nil
}

type synthesizeRequest struct {
	Text    string `json:"text"`
	Voice   string `json:"voice"`
	Quality string `json:"quality"`
}

func (c *Client) Synthesize(ctx context.Context, text, voice string) (*texttospeech.Speech, error) {
	if text == "" {
		return nil, texttospeech.ErrEmptyText
	}
	if voice == "" {
		voice = DefaultVoice
	}

	body, err := json.Marshal(synthesizeRequest{Text: text, Voice: voice, Quality: "premium"})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.options.BaseURL+"/v1/tts", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.options.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to request speech: %w", err)
	}
	defer resp.Body.Close()

	if err := texttospeech.CheckResponse(providerName, resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read speech: %w", err)
	}

	// The response carries no reliable content type.
	return &texttospeech.Speech{
		Audio:      data,
		Format:     audio.SniffContainer(data),
		SampleRate: audio.DefaultSampleRate,
	}, nil
}

func (c *Client) Voices(ctx context.Context) ([]texttospeech.Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.voicesURL+"/v1/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.options.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list voices: %w", err)
	}
	defer resp.Body.Close()

	if err := texttospeech.CheckResponse(providerName, resp); err != nil {
		return nil, err
	}

	var payload []struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode voices: %w", err)
	}

	voices := make([]texttospeech.Voice, 0, len(payload))
	for _, v := range payload {
		voices = append(voices, texttospeech.Voice{ID: v.ID, Name: v.DisplayName})
	}
	return voices, nil
}
