package providers

import (
	"context"
	"fmt"
	"sort"

	"github.com/snow-ghost/robotai/pkg/errdefs"
	"github.com/snow-ghost/robotai/pkg/logging"
	"github.com/snow-ghost/robotai/pkg/prompt"
	"github.com/snow-ghost/robotai/pkg/registry"
)

// Adapter is the Provider of one vendor: it owns the tool map and checks models before delegating
type Adapter struct {
	name     string
	tools    map[prompt.ToolType]ToolHandler
	toolCaps map[prompt.ToolType]ToolCapabilities
	logger   *logging.Logger
}

// NewAdapter creates an adapter for config. Every handler must be declared as a tool in config.
func NewAdapter(config registry.ProviderConfig, logger *logging.Logger, handlers map[prompt.ToolType]ToolHandler) (*Adapter, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	a := &Adapter{
		name:     config.Name,
		tools:    make(map[prompt.ToolType]ToolHandler, len(handlers)),
		toolCaps: make(map[prompt.ToolType]ToolCapabilities, len(handlers)),
		logger:   logger,
	}

	for tool, handler := range handlers {
		toolConfig := config.FindTool(string(tool))
		if toolConfig == nil {
			return nil, fmt.Errorf("provider %s: handler registered for undeclared tool %s", config.Name, tool)
		}
		a.tools[tool] = handler
		a.toolCaps[tool] = NewToolCapabilities(*toolConfig)
	}

	return a, nil
}

// Name implements Provider
func (a *Adapter) Name() string {
	return a.name
}

// Tools implements Provider
func (a *Adapter) Tools() []string {
	names := make([]string, 0, len(a.tools))
	for tool := range a.tools {
		names = append(names, string(tool))
	}
	sort.Strings(names)
	return names
}

// Capabilities returns the model declaration of tool
func (a *Adapter) Capabilities(tool prompt.ToolType) (ToolCapabilities, bool) {
	caps, ok := a.toolCaps[tool]
	return caps, ok
}

// ResolveModel returns the effective model for tool: the requested one if supported, the default if unset
func (a *Adapter) ResolveModel(tool prompt.ToolType, requested string) (string, error) {
	caps, ok := a.toolCaps[tool]
	if !ok {
		return "", &errdefs.UnknownToolError{Provider: a.name, Tool: string(tool), Valid: a.Tools()}
	}

	if requested == "" {
		return caps.DefaultModel, nil
	}
	if !caps.Supports(requested) {
		return "", &errdefs.UnsupportedModelError{
			Provider:  a.name,
			Tool:      string(tool),
			Model:     requested,
			Supported: caps.Models,
		}
	}
	return requested, nil
}

// Handle implements Provider. Unknown tools and unsupported models fail before any vendor call.
func (a *Adapter) Handle(ctx context.Context, p prompt.Prompt) (*prompt.Response, error) {
	handler, ok := a.tools[p.Tool]
	if !ok {
		return nil, &errdefs.UnknownToolError{Provider: a.name, Tool: string(p.Tool), Valid: a.Tools()}
	}

	model, err := a.ResolveModel(p.Tool, p.Config.Model)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("delegating to tool handler",
		"provider", a.name,
		"tool", string(p.Tool),
		"model", model)

	return handler.Handle(ctx, p, model)
}
