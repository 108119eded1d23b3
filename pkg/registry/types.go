package registry

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// Pricing represents pricing information for a model
type Pricing struct {
	Currency    string  `json:"currency" yaml:"currency"`
	InputPer1K  float64 `json:"input_per_1k" yaml:"input_per_1k"`
	OutputPer1K float64 `json:"output_per_1k" yaml:"output_per_1k"`
}

// ToolConfig declares one tool of a provider and the models it accepts
type ToolConfig struct {
	Name         string   `json:"name" yaml:"name"` // text_generator|assistant
	Models       []string `json:"models" yaml:"models"`
	DefaultModel string   `json:"default_model" yaml:"default_model"`
}

// Supports reports whether model is in the tool's supported list
func (t ToolConfig) Supports(model string) bool {
	for _, m := range t.Models {
		if m == model {
			return true
		}
	}
	return false
}

// ProviderConfig represents configuration for a provider
type ProviderConfig struct {
	Name      string             `json:"name" yaml:"name"` // openai|anthropic|gemini
	BaseURL   string             `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	APIKeyEnv string             `json:"api_key_env,omitempty" yaml:"api_key_env,omitempty"`
	Tools     []ToolConfig       `json:"tools" yaml:"tools"`
	Pricing   map[string]Pricing `json:"pricing,omitempty" yaml:"pricing,omitempty"` // by model
	MaxRPM    int                `json:"max_rpm,omitempty" yaml:"max_rpm,omitempty"` // requests per minute
	MaxTPM    int                `json:"max_tpm,omitempty" yaml:"max_tpm,omitempty"` // tokens per minute
}

// FindTool returns the tool with the given name
func (p *ProviderConfig) FindTool(name string) *ToolConfig {
	for i := range p.Tools {
		if p.Tools[i].Name == name {
			return &p.Tools[i]
		}
	}
	return nil
}

// ToolNames returns the names of all tools of the provider
func (p *ProviderConfig) ToolNames() []string {
	names := make([]string, 0, len(p.Tools))
	for _, t := range p.Tools {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return names
}

// KeyEnv returns the environment variable holding the provider secret
func (p *ProviderConfig) KeyEnv() string {
	if p.APIKeyEnv != "" {
		return p.APIKeyEnv
	}
	return strings.ToUpper(p.Name) + "_KEY"
}

// APIKey reads the provider secret from the environment
func (p *ProviderConfig) APIKey() (string, error) {
	env := p.KeyEnv()
	apiKey := os.Getenv(env)
	if apiKey == "" {
		return "", fmt.Errorf("API key not found in environment variable %s", env)
	}
	return apiKey, nil
}

// PricingFor returns the price of a model
func (p *ProviderConfig) PricingFor(model string) (Pricing, bool) {
	pricing, ok := p.Pricing[model]
	return pricing, ok
}

// Registry represents the provider capability table
type Registry struct {
	Providers []ProviderConfig `json:"providers" yaml:"providers"`
}

// FindProvider returns a provider configuration by name
func (r *Registry) FindProvider(name string) *ProviderConfig {
	for i := range r.Providers {
		if r.Providers[i].Name == name {
			return &r.Providers[i]
		}
	}
	return nil
}

// ProviderNames returns all provider names, sorted
func (r *Registry) ProviderNames() []string {
	names := make([]string, 0, len(r.Providers))
	for _, p := range r.Providers {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

// Validate checks that every tool has models and a supported default
func (r *Registry) Validate() error {
	seen := make(map[string]bool)
	for _, p := range r.Providers {
		if p.Name == "" {
			return fmt.Errorf("provider without name")
		}
		if seen[p.Name] {
			return fmt.Errorf("provider %s declared twice", p.Name)
		}
		seen[p.Name] = true

		for _, t := range p.Tools {
			if len(t.Models) == 0 {
				return fmt.Errorf("provider %s tool %s declares no models", p.Name, t.Name)
			}
			if !t.Supports(t.DefaultModel) {
				return fmt.Errorf("provider %s tool %s default model %q is not in its model list", p.Name, t.Name, t.DefaultModel)
			}
		}
	}
	return nil
}
