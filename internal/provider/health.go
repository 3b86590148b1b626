package provider

import (
	"net/url"
	"strings"
)

// HealthCheckConfig describes a cheap authenticated GET that proves the
// configured backend is reachable without spending tokens.
type HealthCheckConfig struct {
	URL     string
	Headers map[string]string
}

// HealthCheck returns the health check for the selected backend, or nil when the
// backend exposes no suitable listing endpoint.
func (c *Config) HealthCheck() *HealthCheckConfig {
	switch c.Backend {
	case BackendOllama:
		return &HealthCheckConfig{URL: strings.TrimRight(c.Ollama.Host, "/") + "/api/tags"}
	case BackendOpenAI:
		base := strings.TrimRight(c.OpenAI.BaseURL, "/")
		if base == "" {
			base = "https://api.openai.com/v1"
		}
		return &HealthCheckConfig{
			URL:     base + "/models",
			Headers: map[string]string{"Authorization": "Bearer " + c.OpenAI.APIKey},
		}
	case BackendAzure:
		q := url.Values{"api-version": {c.AzureOpenAI.APIVersion}}
		return &HealthCheckConfig{
			URL:     strings.TrimRight(c.AzureOpenAI.Endpoint, "/") + "/openai/models?" + q.Encode(),
			Headers: map[string]string{"api-key": c.AzureOpenAI.APIKey},
		}
	case BackendGemini:
		return &HealthCheckConfig{
			URL:     "https://generativelanguage.googleapis.com/v1beta/models",
			Headers: map[string]string{"x-goog-api-key": c.Gemini.APIKey},
		}
	default:
		return nil
	}
}
