// Package config assembles session and text-to-speech settings from
// defaults, an optional YAML file, a .env file and the process environment.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

const (
	DefaultTemperature = 0.8
	DefaultPort        = 5000
)

var ErrInvalid = errors.New("invalid configuration")

type TTSProvider string

const (
	TTSAzure      TTSProvider = "azure"
	TTSElevenLabs TTSProvider = "elevenlabs"
	TTSSpeechify  TTSProvider = "speechify"
	TTSDeepgram   TTSProvider = "deepgram"
	TTSOpenAI     TTSProvider = "openai"
)

func TTSProviders() []TTSProvider {
	return []TTSProvider{TTSAzure, TTSElevenLabs, TTSSpeechify, TTSDeepgram, TTSOpenAI}
}

// SessionConfig is everything a session needs to connect. Only the
// connection fields are required; voice and temperature go to the backend
// as given. It is treated as
// immutable once a session starts.
type SessionConfig struct {
	Endpoint   string `yaml:"endpoint" json:"endpoint" jsonschema:"description=Realtime endpoint; Azure resource URL or OpenAI API host"`
	Credential string `yaml:"credential" json:"credential" jsonschema:"description=API key for the endpoint"`
	Deployment string `yaml:"deployment" json:"deployment" jsonschema:"description=Azure deployment name or OpenAI model id"`
	IsAzure    bool   `yaml:"is_azure" json:"is_azure" jsonschema:"description=Use Azure OpenAI authentication and URLs; guessed from the endpoint when unset"`

	SystemInstructions string `yaml:"system_instructions,omitempty" json:"system_instructions,omitempty"`
	// Temperature is NaN when it was configured but could not be parsed. Any
	// non-finite value is left out of the handshake and the backend default
	// applies.
	Temperature float64 `yaml:"temperature" json:"temperature" jsonschema:"default=0.8"`
	Voice       string  `yaml:"voice,omitempty" json:"voice,omitempty" jsonschema:"description=Backend voice such as alloy or verse"`
}

func (c SessionConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Endpoint) == "" {
		errs = append(errs, errors.New("endpoint is required"))
	}
	if strings.TrimSpace(c.Credential) == "" {
		errs = append(errs, errors.New("credential is required"))
	}
	if strings.TrimSpace(c.Deployment) == "" {
		errs = append(errs, errors.New("deployment or model is required"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

type TTSConfig struct {
	Provider TTSProvider `yaml:"provider" json:"provider" jsonschema:"enum=azure,enum=elevenlabs,enum=speechify,enum=deepgram,enum=openai"`
	Voice    string      `yaml:"voice,omitempty" json:"voice,omitempty"`

	ElevenLabsKey     string `yaml:"elevenlabs_api_key,omitempty" json:"elevenlabs_api_key,omitempty"`
	SpeechifyKey      string `yaml:"speechify_api_key,omitempty" json:"speechify_api_key,omitempty"`
	AzureSpeechKey    string `yaml:"azure_speech_key,omitempty" json:"azure_speech_key,omitempty"`
	AzureSpeechRegion string `yaml:"azure_speech_region,omitempty" json:"azure_speech_region,omitempty" jsonschema:"default=eastus"`
	DeepgramKey       string `yaml:"deepgram_api_key,omitempty" json:"deepgram_api_key,omitempty"`
	OpenAIKey         string `yaml:"openai_api_key,omitempty" json:"openai_api_key,omitempty"`
}

func (c TTSConfig) Validate() error {
	if c.Provider != "" && !slices.Contains(TTSProviders(), c.Provider) {
		return fmt.Errorf("%w: unknown tts provider %q", ErrInvalid, c.Provider)
	}
	return nil
}

// Key returns the API key configured for the selected provider.
func (c TTSConfig) Key() string {
	switch c.Provider {
	case TTSAzure:
		return c.AzureSpeechKey
	case TTSElevenLabs:
		return c.ElevenLabsKey
	case TTSSpeechify:
		return c.SpeechifyKey
	case TTSDeepgram:
		return c.DeepgramKey
	case TTSOpenAI:
		return c.OpenAIKey
	}
	return ""
}

type ServerConfig struct {
	Port        int    `yaml:"port" json:"port" jsonschema:"default=5000"`
	MetricsAddr string `yaml:"metrics_addr,omitempty" json:"metrics_addr,omitempty"`
}

type Config struct {
	Session SessionConfig `yaml:"session" json:"session"`
	TTS     TTSConfig     `yaml:"tts" json:"tts"`
	Server  ServerConfig  `yaml:"server" json:"server"`
}

func Default() Config {
	return Config{
		Session: SessionConfig{Temperature: DefaultTemperature},
		TTS:     TTSConfig{Provider: TTSAzure, AzureSpeechRegion: "eastus"},
		Server:  ServerConfig{Port: DefaultPort},
	}
}

func (c Config) Validate() error {
	return errors.Join(c.Session.Validate(), c.TTS.Validate())
}

// GuessAzure reports whether an endpoint looks like an Azure OpenAI resource.
func GuessAzure(endpoint string) bool {
	return strings.Contains(strings.ToLower(endpoint), "azure")
}
