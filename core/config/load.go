package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/jinzhu/copier"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/koscakluka/ema-realtime/internal/utils"
)

type LoadOptions struct {
	// Path is an optional YAML file.
	Path string
	// EnvFile is a .env file loaded into the environment without overriding
	// variables that are already set. Missing files are ignored.
	EnvFile string
	// Lookup replaces os.LookupEnv.
	Lookup func(string) (string, bool)
}

// layer mirrors Config with pointers where the zero value is meaningful so
// that an explicit false or 0 still overrides an earlier layer.
type layer struct {
	Session sessionLayer `yaml:"session"`
	TTS     TTSConfig    `yaml:"tts"`
	Server  ServerConfig `yaml:"server"`
}

type sessionLayer struct {
	Endpoint           string   `yaml:"endpoint"`
	Credential         string   `yaml:"credential"`
	Deployment         string   `yaml:"deployment"`
	IsAzure            *bool    `yaml:"is_azure"`
	SystemInstructions string   `yaml:"system_instructions"`
	Temperature        *float64 `yaml:"temperature"`
	Voice              string   `yaml:"voice"`
}

// Load builds a Config from defaults, then the YAML file, then the
// environment (after applying the .env file).
func Load(opts LoadOptions) (*Config, error) {
	cfg := Default()
	explicitAzure := false

	if opts.Path != "" {
		fileLayer, err := readFile(opts.Path)
		if err != nil {
			return nil, err
		}
		if err := merge(&cfg, fileLayer); err != nil {
			return nil, err
		}
		explicitAzure = fileLayer.Session.IsAzure != nil
	}

	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", opts.EnvFile, err)
		}
	}

	lookup := opts.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	envLayer := fromEnv(lookup)
	if err := merge(&cfg, envLayer); err != nil {
		return nil, err
	}
	explicitAzure = explicitAzure || envLayer.Session.IsAzure != nil

	if !explicitAzure {
		cfg.Session.IsAzure = GuessAzure(cfg.Session.Endpoint)
	}

	return &cfg, nil
}

func readFile(path string) (*layer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var l layer
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &l, nil
}

func fromEnv(lookup func(string) (string, bool)) *layer {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	l := &layer{
		Session: sessionLayer{
			Endpoint:           get("ENDPOINT"),
			Credential:         get("API_KEY"),
			Deployment:         get("DEPLOYMENT_OR_MODEL"),
			SystemInstructions: get("SYSTEM_MESSAGE"),
			Voice:              get("VOICE"),
		},
		TTS: TTSConfig{
			Provider:          TTSProvider(strings.ToLower(get("TTS_PROVIDER"))),
			Voice:             get("TTS_VOICE"),
			ElevenLabsKey:     get("ELEVENLABS_API_KEY"),
			SpeechifyKey:      get("SPEECHIFY_API_KEY"),
			AzureSpeechKey:    get("AZURE_SPEECH_KEY"),
			AzureSpeechRegion: get("AZURE_SPEECH_REGION"),
			DeepgramKey:       get("DEEPGRAM_API_KEY"),
			OpenAIKey:         get("OPENAI_API_KEY"),
		},
		Server: ServerConfig{MetricsAddr: get("METRICS_ADDR")},
	}

	if v := get("IS_AZURE_OPENAI"); v != "" {
		l.Session.IsAzure = utils.Ptr(strings.EqualFold(v, "true") || v == "1")
	}
	if v := get("TEMPERATURE"); v != "" {
		temperature, err := strconv.ParseFloat(v, 64)
		if err != nil {
			temperature = math.NaN()
		}
		l.Session.Temperature = utils.Ptr(temperature)
	}
	if v := get("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			l.Server.Port = port
		}
	}

	return l
}

// merge copies every non-empty value of l onto cfg.
func merge(cfg *Config, l *layer) error {
	opt := copier.Option{IgnoreEmpty: true}
	if err := copier.CopyWithOption(&cfg.Session, &l.Session, opt); err != nil {
		return fmt.Errorf("failed to merge session config: %w", err)
	}
	if err := copier.CopyWithOption(&cfg.TTS, &l.TTS, opt); err != nil {
		return fmt.Errorf("failed to merge tts config: %w", err)
	}
	if err := copier.CopyWithOption(&cfg.Server, &l.Server, opt); err != nil {
		return fmt.Errorf("failed to merge server config: %w", err)
	}
	return nil
}
