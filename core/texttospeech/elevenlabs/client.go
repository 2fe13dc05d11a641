// Package elevenlabs synthesizes speech with the ElevenLabs HTTP API.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/koscakluka/ema-realtime/core/audio"
	"github.com/koscakluka/ema-realtime/core/texttospeech"
)

const (
	DefaultBaseURL = "https://api.elevenlabs.io"
	// DefaultVoice is "Rachel", available on every account.
	DefaultVoice = "21m00Tcm4TlvDq8ikWAM"

	providerName = "elevenlabs"
)

type Client struct {
	apiKey  string
	options texttospeech.ClientOptions
}

func NewClient(apiKey string, opts ...texttospeech.ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s: %w", providerName, texttospeech.ErrMissingKey)
	}
	return &Client{apiKey: apiKey, options: texttospeech.NewClientOptions(DefaultBaseURL, opts...)}, nil
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type synthesizeRequest struct {
	Text          string        `json:"text"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

func (c *Client) Synthesize(ctx context.Context, text, voice string) (*texttospeech.Speech, error) {
	if text == "" {
		return nil, texttospeech.ErrEmptyText
	}
	if voice == "" {
		voice = DefaultVoice
	}

	body, err := json.Marshal(synthesizeRequest{
		Text:          text,
		VoiceSettings: voiceSettings{Stability: 0.5, SimilarityBoost: 0.5},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := c.options.BaseURL + "/v1/text-to-speech/" + url.PathEscape(voice)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

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
	return &texttospeech.Speech{Audio: data, Format: audio.ContainerMP3}, nil
}

func (c *Client) Voices(ctx context.Context) ([]texttospeech.Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.options.BaseURL+"/v1/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.options.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list voices: %w", err)
	}
	defer resp.Body.Close()

	if err := texttospeech.CheckResponse(providerName, resp); err != nil {
		return nil, err
	}

	var payload struct {
		Voices []struct {
			VoiceID string `json:"voice_id"`
			Name    string `json:"name"`
		} `json:"voices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode voices: %w", err)
	}

	voices := make([]texttospeech.Voice, 0, len(payload.Voices))
	for _, v := range payload.Voices {
		voices = append(voices, texttospeech.Voice{ID: v.VoiceID, Name: v.Name})
	}
	return voices, nil
}
