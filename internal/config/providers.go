package config

import "time"

type ProvidersConfig struct {
	Providers map[string]ProviderConfig `yaml:"providers"`
}

type ProviderConfig struct {
	// Type is "openai" (and OpenAI-compatible endpoints) or "anthropic".
	Type          string            `yaml:"type"`
	BaseURL       string            `yaml:"base_url"`
	APIKey        string            `yaml:"api_key"`
	APIVersion    string            `yaml:"api_version,omitempty"`
	MaxConcurrent int               `yaml:"max_concurrent"`
	Timeout       time.Duration     `yaml:"timeout"`
	Headers       map[string]string `yaml:"headers,omitempty"`
	// Hosting is "external" (default) or "internal" for self-hosted endpoints.
	// Egress policies see it as request.provider_type.
	Hosting string `yaml:"hosting,omitempty"`
}

const (
	HostingExternal = "external"
	HostingInternal = "internal"
)

// HostingType returns Hosting, defaulting to external.
func (p ProviderConfig) HostingType() string {
	if p.Hosting == HostingInternal {
		return HostingInternal
	}
	return HostingExternal
}
