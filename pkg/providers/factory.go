package providers

import (
	"context"
	"fmt"
	"sort"

	"github.com/snow-ghost/robotai/pkg/registry"
)

// Factory builds the provider described by config
type Factory func(ctx context.Context, config registry.ProviderConfig, deps Dependencies) (Provider, error)

// factories is the static registration table. Adding a vendor means adding an entry here.
var factories = map[string]Factory{
	"openai":    NewOpenAIProvider,
	"anthropic": NewAnthropicProvider,
	"gemini":    NewGeminiProvider,
}

// GetSupportedProviders returns the names of all provider implementations
func GetSupportedProviders() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CreateProvider builds a provider from its registry entry
func CreateProvider(ctx context.Context, config registry.ProviderConfig, deps Dependencies) (Provider, error) {
	factory, ok := factories[config.Name]
	if !ok {
		return nil, fmt.Errorf("unsupported provider type: %s", config.Name)
	}
	return factory(ctx, config, deps.withDefaults())
}
