package config

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(LoadOptions{Lookup: lookupFrom(nil)})
	if err != nil {
		t.Fatalf("expected load to succeed, got %v", err)
	}

	if cfg.Session.Temperature != DefaultTemperature {
		t.Fatalf("expected default temperature, got %v", cfg.Session.Temperature)
	}
	if cfg.Server.Port != DefaultPort || cfg.TTS.Provider != TTSAzure {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if err := cfg.Session.Validate(); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected empty session to be invalid, got %v", err)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	cfg, err := Load(LoadOptions{Lookup: lookupFrom(map[string]string{
		"ENDPOINT":            "https://myres.openai.azure.com",
		"API_KEY":             "secret",
		"DEPLOYMENT_OR_MODEL": "gpt-4o-realtime",
		"SYSTEM_MESSAGE":      "be brief",
		"TEMPERATURE":         "0.6",
		"VOICE":               "alloy",
		"PORT":                "8080",
		"TTS_PROVIDER":        "ElevenLabs",
		"ELEVENLABS_API_KEY":  "el-key",
	})})
	if err != nil {
		t.Fatalf("expected load to succeed, got %v", err)
	}

	s := cfg.Session
	if s.Endpoint != "https://myres.openai.azure.com" || s.Credential != "secret" || s.Deployment != "gpt-4o-realtime" {
		t.Fatalf("unexpected session %+v", s)
	}
	if !s.IsAzure {
		t.Fatalf("expected azure to be guessed from the endpoint")
	}
	if s.Temperature != 0.6 || s.Voice != "alloy" || s.SystemInstructions != "be brief" {
		t.Fatalf("unexpected optional settings %+v", s)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.TTS.Provider != TTSElevenLabs || cfg.TTS.Key() != "el-key" {
		t.Fatalf("unexpected tts config %+v", cfg.TTS)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected config to be valid, got %v", err)
	}
}

func TestLoadUnparseableTemperatureIsNaN(t *testing.T) {
	cfg, err := Load(LoadOptions{Lookup: lookupFrom(map[string]string{"TEMPERATURE": "warm"})})
	if err != nil {
		t.Fatalf("expected load to succeed, got %v", err)
	}
	if !math.IsNaN(cfg.Session.Temperature) {
		t.Fatalf("expected NaN temperature, got %v", cfg.Session.Temperature)
	}
}

func TestLoadExplicitAzureOverridesGuess(t *testing.T) {
	cfg, err := Load(LoadOptions{Lookup: lookupFrom(map[string]string{
		"ENDPOINT":        "https://azure-proxy.example.com",
		"IS_AZURE_OPENAI": "false",
	})})
	if err != nil {
		t.Fatalf("expected load to succeed, got %v", err)
	}
	if cfg.Session.IsAzure {
		t.Fatalf("expected explicit false to win over the endpoint guess")
	}
}

func TestLoadLayersFileUnderEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(`
session:
  endpoint: https://api.openai.com
  credential: file-key
  deployment: file-model
  temperature: 0
  voice: sage
tts:
  provider: deepgram
server:
  port: 7000
`), 0o600); err != nil {
		t.Fatalf("failed to write config fixture: %v", err)
	}

	cfg, err := Load(LoadOptions{Path: path, Lookup: lookupFrom(map[string]string{"API_KEY": "env-key"})})
	if err != nil {
		t.Fatalf("expected load to succeed, got %v", err)
	}

	if cfg.Session.Credential != "env-key" {
		t.Fatalf("expected environment to override file credential, got %q", cfg.Session.Credential)
	}
	if cfg.Session.Deployment != "file-model" || cfg.Session.Voice != "sage" {
		t.Fatalf("expected file values to survive, got %+v", cfg.Session)
	}
	if cfg.Session.Temperature != 0 {
		t.Fatalf("expected explicit zero temperature from file, got %v", cfg.Session.Temperature)
	}
	if cfg.Session.IsAzure {
		t.Fatalf("expected openai endpoint not to be treated as azure")
	}
	if cfg.TTS.Provider != TTSDeepgram || cfg.Server.Port != 7000 {
		t.Fatalf("unexpected file layers %+v", cfg)
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("DEPLOYMENT_OR_MODEL=from-dotenv\n"), 0o600); err != nil {
		t.Fatalf("failed to write env fixture: %v", err)
	}
	t.Setenv("DEPLOYMENT_OR_MODEL", "")
	os.Unsetenv("DEPLOYMENT_OR_MODEL")

	cfg, err := Load(LoadOptions{EnvFile: path})
	if err != nil {
		t.Fatalf("expected load to succeed, got %v", err)
	}
	if cfg.Session.Deployment != "from-dotenv" {
		t.Fatalf("expected deployment from .env, got %q", cfg.Session.Deployment)
	}
}

func TestLoadMissingFiles(t *testing.T) {
	if _, err := Load(LoadOptions{Path: filepath.Join(t.TempDir(), "missing.yaml"), Lookup: lookupFrom(nil)}); err == nil {
		t.Fatalf("expected missing config file to fail")
	}
	if _, err := Load(LoadOptions{EnvFile: filepath.Join(t.TempDir(), "missing.env"), Lookup: lookupFrom(nil)}); err != nil {
		t.Fatalf("expected missing env file to be ignored, got %v", err)
	}
}

func TestSessionValidate(t *testing.T) {
	valid := SessionConfig{Endpoint: "https://api.openai.com", Credential: "k", Deployment: "m", Temperature: 0.8}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	passthrough := map[string]func(*SessionConfig){
		"NaN temperature":       func(c *SessionConfig) { c.Temperature = math.NaN() },
		"infinite temperature":  func(c *SessionConfig) { c.Temperature = math.Inf(1) },
		"negative infinity":     func(c *SessionConfig) { c.Temperature = math.Inf(-1) },
		"temperature above two": func(c *SessionConfig) { c.Temperature = 3 },
		"unlisted voice":        func(c *SessionConfig) { c.Voice = "robot" },
	}
	for name, mutate := range passthrough {
		t.Run(name, func(t *testing.T) {
			cfg := valid
			mutate(&cfg)
			if err := cfg.Validate(); err != nil {
				t.Fatalf("expected config to be accepted, got %v", err)
			}
		})
	}

	testCases := map[string]func(*SessionConfig){
		"missing endpoint":   func(c *SessionConfig) { c.Endpoint = "" },
		"missing credential": func(c *SessionConfig) { c.Credential = " " },
		"missing deployment": func(c *SessionConfig) { c.Deployment = "" },
	}
	for name, mutate := range testCases {
		t.Run(name, func(t *testing.T) {
			cfg := valid
			mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected invalid config, got %v", err)
			}
		})
	}
}

func TestTTSValidateRejectsUnknownProvider(t *testing.T) {
	if err := (TTSConfig{Provider: "polly"}).Validate(); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected unknown provider to be invalid, got %v", err)
	}
}

func TestFetchRemote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/config" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(PublicConfig{
			Endpoint:        "https://x.openai.azure.com",
			DeploymentModel: "dep",
			IsAzureOpenAI:   true,
			Temperature:     0.5,
			Voice:           "coral",
		})
	}))
	defer server.Close()

	public, err := FetchRemote(context.Background(), server.URL+"/", server.Client())
	if err != nil {
		t.Fatalf("expected fetch to succeed, got %v", err)
	}

	merged := SessionConfig{Credential: "local", Temperature: 0.8}.WithPublic(*public)
	if merged.Credential != "local" || merged.Deployment != "dep" || !merged.IsAzure || merged.Temperature != 0.5 || merged.Voice != "coral" {
		t.Fatalf("unexpected merged config %+v", merged)
	}
	if merged.Public() != *public {
		t.Fatalf("expected public view to round trip, got %+v", merged.Public())
	}
}

func TestFetchRemoteReportsStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	if _, err := FetchRemote(context.Background(), server.URL, nil); err == nil || !strings.Contains(err.Error(), "503") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestSchemaDescribesFile(t *testing.T) {
	data, err := Schema()
	if err != nil {
		t.Fatalf("expected schema to build, got %v", err)
	}

	for _, want := range []string{`"session"`, `"endpoint"`, `"deployment"`, `"elevenlabs"`, `"shimmer"`} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("expected schema to mention %s", want)
		}
	}
}
