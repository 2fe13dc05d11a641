// Package azure synthesizes speech with the Azure Cognitive Services speech
// REST API.
package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"

	"github.com/koscakluka/ema-realtime/core/audio"
	"github.com/koscakluka/ema-realtime/core/texttospeech"
)

const (
	DefaultRegion = "eastus"
	DefaultVoice  = "en-US-JennyNeural"

	// outputFormat is 24kHz mono PCM16 in a RIFF container, which matches the
	// realtime playback rate.
	outputFormat = "riff-24khz-16bit-mono-pcm"
	providerName = "azure"
)

type Client struct {
	key     string
	options texttospeech.ClientOptions
}

func NewClient(key, region string, opts ...texttospeech.ClientOption) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("%s: %w", providerName, texttospeech.ErrMissingKey)
	}
	if region == "" {
		region = DefaultRegion
	}

	baseURL := "https://" + region + ".tts.speech.microsoft.com"
	return &Client{key: key, options: texttospeech.NewClientOptions(baseURL, opts...)}, nil
}

func (c *Client) Synthesize(ctx context.Context, text, voice string) (*texttospeech.Speech, error) {
	if text == "" {
		return nil, texttospeech.ErrEmptyText
	}
	if voice == "" {
		voice = DefaultVoice
	}

	ssml, err := buildSSML(text, voice)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.options.BaseURL+"/cognitiveservices/v1", bytes.NewReader(ssml))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.key)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", outputFormat)
	req.Header.Set("User-Agent", "ema-realtime")

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
	return &texttospeech.Speech{Audio: data, Format: audio.ContainerWAV}, nil
}

func buildSSML(text, voice string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`<speak version="1.0" xml:lang="en-US"><voice name="`)
	if err := xml.EscapeText(&buf, []byte(voice)); err != nil {
		return nil, fmt.Errorf("failed to escape voice: %w", err)
	}
	buf.WriteString(`">`)
	if err := xml.EscapeText(&buf, []byte(text)); err != nil {
		return nil, fmt.Errorf("failed to escape text: %w", err)
	}
	buf.WriteString(`</voice></speak>`)
	return buf.Bytes(), nil
}

func (c *Client) Voices(ctx context.Context) ([]texttospeech.Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.options.BaseURL+"/cognitiveservices/voices/list", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.key)

	resp, err := c.options.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list voices: %w", err)
	}
	defer resp.Body.Close()

	if err := texttospeech.CheckResponse(providerName, resp); err != nil {
		return nil, err
	}

	var payload []struct {
		ShortName   string `json:"ShortName"`
		DisplayName string `json:"DisplayName"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode voices: %w", err)
	}

	voices := make([]texttospeech.Voice, 0, len(payload))
	for _, v := range payload {
		voices = append(voices, texttospeech.Voice{ID: v.ShortName, Name: v.DisplayName})
	}
	return voices, nil
}
