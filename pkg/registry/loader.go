package registry

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Loader handles loading the provider registry
type Loader struct {
	configPath string
}

// NewLoader creates a new configuration loader
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
	}
}

// LoadRegistry loads the registry from the configuration file, or the built-in table if there is none
func (l *Loader) LoadRegistry() (*Registry, error) {
	// Check if config path is provided via environment
	if configPath := os.Getenv("CONFIG"); configPath != "" {
		l.configPath = configPath
	}

	if l.configPath == "" {
		return GetDefaultRegistry(), nil
	}

	if _, err := os.Stat(l.configPath); os.IsNotExist(err) {
		return GetDefaultRegistry(), nil
	}

	data, err := os.ReadFile(l.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", l.configPath, err)
	}

	return LoadRegistryFromBytes(data)
}

// LoadRegistryFromBytes parses a registry document, expanding ${VAR} references first
func LoadRegistryFromBytes(data []byte) (*Registry, error) {
	expanded := os.ExpandEnv(string(data))

	decoder := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	decoder.KnownFields(true)

	var registry Registry
	if err := decoder.Decode(&registry); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := registry.Validate(); err != nil {
		return nil, fmt.Errorf("invalid registry: %w", err)
	}

	return &registry, nil
}

// GetDefaultRegistry returns the built-in provider table
func GetDefaultRegistry() *Registry {
	return &Registry{
		Providers: []ProviderConfig{
			{
				Name:      "openai",
				BaseURL:   "https://api.openai.com/v1",
				APIKeyEnv: "OPENAI_KEY",
				Tools: []ToolConfig{
					{
						Name:         "text_generator",
						Models:       []string{"gpt-3.5-turbo", "gpt-4o", "gpt-4o-mini"},
						DefaultModel: "gpt-4o",
					},
					{
						Name:         "assistant",
						Models:       []string{"gpt-3.5-turbo", "gpt-4o", "gpt-4o-mini"},
						DefaultModel: "gpt-4o",
					},
				},
				Pricing: map[string]Pricing{
					"gpt-3.5-turbo": {Currency: "USD", InputPer1K: 0.0005, OutputPer1K: 0.0015},
					"gpt-4o":        {Currency: "USD", InputPer1K: 0.005, OutputPer1K: 0.015},
					"gpt-4o-mini":   {Currency: "USD", InputPer1K: 0.00015, OutputPer1K: 0.0006},
				},
				MaxRPM: 5000,
				MaxTPM: 100000,
			},
			{
				Name:      "anthropic",
				BaseURL:   "https://api.anthropic.com",
				APIKeyEnv: "ANTHROPIC_KEY",
				Tools: []ToolConfig{
					{
						Name:         "text_generator",
						Models:       []string{"claude-3-5-sonnet-20241022", "claude-3-5-haiku-20241022"},
						DefaultModel: "claude-3-5-sonnet-20241022",
					},
				},
				Pricing: map[string]Pricing{
					"claude-3-5-sonnet-20241022": {Currency: "USD", InputPer1K: 0.003, OutputPer1K: 0.015},
					"claude-3-5-haiku-20241022":  {Currency: "USD", InputPer1K: 0.0008, OutputPer1K: 0.004},
				},
				MaxRPM: 1000,
				MaxTPM: 80000,
			},
			{
				Name:      "gemini",
				APIKeyEnv: "GEMINI_KEY",
				Tools: []ToolConfig{
					{
						Name:         "text_generator",
						Models:       []string{"gemini-1.5-flash", "gemini-1.5-pro"},
						DefaultModel: "gemini-1.5-flash",
					},
				},
				Pricing: map[string]Pricing{
					"gemini-1.5-flash": {Currency: "USD", InputPer1K: 0.000075, OutputPer1K: 0.0003},
					"gemini-1.5-pro":   {Currency: "USD", InputPer1K: 0.00125, OutputPer1K: 0.005},
				},
				MaxRPM: 1000,
				MaxTPM: 100000,
			},
		},
	}
}
