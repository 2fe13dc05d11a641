package config

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// PublicConfig is the subset of the session configuration a config server
// may hand out. It never carries credentials.
type PublicConfig struct {
	Endpoint        string  `json:"endpoint"`
	DeploymentModel string  `json:"deploymentModel"`
	IsAzureOpenAI   bool    `json:"isAzureOpenAI"`
	SystemMessage   string  `json:"systemMessage"`
	Temperature     float64 `json:"temperature"`
	Voice           string  `json:"voice"`
}

func (c SessionConfig) Public() PublicConfig {
	return PublicConfig{
		Endpoint:        c.Endpoint,
		DeploymentModel: c.Deployment,
		IsAzureOpenAI:   c.IsAzure,
		SystemMessage:   c.SystemInstructions,
		Temperature:     c.Temperature,
		Voice:           c.Voice,
	}
}

// WithPublic returns a copy of c with every non-empty public field applied.
// The credential is kept.
func (c SessionConfig) WithPublic(p PublicConfig) SessionConfig {
	if p.Endpoint != "" {
		c.Endpoint = p.Endpoint
		c.IsAzure = p.IsAzureOpenAI
	}
	if p.DeploymentModel != "" {
		c.Deployment = p.DeploymentModel
	}
	if p.SystemMessage != "" {
		c.SystemInstructions = p.SystemMessage
	}
	if p.Temperature != 0 {
		c.Temperature = p.Temperature
	}
	if p.Voice != "" {
		c.Voice = p.Voice
	}
	return c
}

func defaultHTTPClient() *http.Client {
	return &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
		otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
			return operationName + " " + request.URL.Path
		}),
	)}
}

// FetchRemote reads the public configuration served at baseURL/api/config.
// A nil client uses an instrumented default.
func FetchRemote(ctx context.Context, baseURL string, client *http.Client) (*PublicConfig, error) {
	if client == nil {
		client = defaultHTTPClient()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(baseURL, "/")+"/api/config", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create config request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("failed to fetch config: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var public PublicConfig
	if err := json.NewDecoder(resp.Body).Decode(&public); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &public, nil
}
