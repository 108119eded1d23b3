package providers

import (
	"context"
	"net/http"
	"time"

	"github.com/snow-ghost/robotai/pkg/errdefs"
	"github.com/snow-ghost/robotai/pkg/limiter"
	"github.com/snow-ghost/robotai/pkg/logging"
	"github.com/snow-ghost/robotai/pkg/prompt"
	"github.com/snow-ghost/robotai/pkg/registry"
	"github.com/snow-ghost/robotai/pkg/tokens"
)

// Provider handles prompts addressed to one LLM vendor
type Provider interface {
	// Name returns the registry key of the provider
	Name() string

	// Tools returns the tool types the provider offers
	Tools() []string

	// Handle routes the prompt to the matching tool handler
	Handle(ctx context.Context, p prompt.Prompt) (*prompt.Response, error)
}

// ToolHandler turns a prompt into one vendor interaction.
// model is the effective model, already validated against the tool's supported list.
type ToolHandler interface {
	Handle(ctx context.Context, p prompt.Prompt, model string) (*prompt.Response, error)
}

// ProviderCapabilities is the vendor axis shared by every handler of a provider
type ProviderCapabilities struct {
	Config     registry.ProviderConfig
	Protection *limiter.ProtectionManager
	Logger     *logging.Logger
}

// Name returns the provider name
func (c ProviderCapabilities) Name() string {
	return c.Config.Name
}

// Call runs one vendor request under rate limiting and circuit breaking.
// Vendor failures come back as ProviderCallError.
func (c ProviderCapabilities) Call(ctx context.Context, model, op string, fn func(ctx context.Context) error) error {
	wrapped := func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return errdefs.NewProviderCallError(c.Config.Name, op, err)
		}
		return nil
	}

	if c.Protection == nil {
		return wrapped(ctx)
	}
	return c.Protection.Execute(ctx, c.Config, model, wrapped)
}

// ToolCapabilities is the tool-type axis: which tool, which models
type ToolCapabilities struct {
	Tool         prompt.ToolType
	Models       []string
	DefaultModel string
}

// NewToolCapabilities reads the tool declaration from the provider configuration
func NewToolCapabilities(tool registry.ToolConfig) ToolCapabilities {
	return ToolCapabilities{
		Tool:         prompt.ToolType(tool.Name),
		Models:       append([]string(nil), tool.Models...),
		DefaultModel: tool.DefaultModel,
	}
}

// Supports reports whether model is in the supported list
func (c ToolCapabilities) Supports(model string) bool {
	for _, m := range c.Models {
		if m == model {
			return true
		}
	}
	return false
}

// Dependencies are the shared collaborators handed to provider factories
type Dependencies struct {
	Logger            *logging.Logger
	Protection        *limiter.ProtectionManager
	Encoders          *tokens.EncoderRegistry
	HTTPClient        *http.Client
	PollInterval      time.Duration
	PollTimeout       time.Duration
	UploadConcurrency int
}

// withDefaults fills unset dependencies
func (d Dependencies) withDefaults() Dependencies {
	if d.Logger == nil {
		d.Logger = logging.NewNop()
	}
	if d.Encoders == nil {
		d.Encoders = tokens.NewEncoderRegistry()
	}
	if d.PollInterval <= 0 {
		d.PollInterval = 500 * time.Millisecond
	}
	if d.PollTimeout <= 0 {
		d.PollTimeout = 2 * time.Minute
	}
	if d.UploadConcurrency <= 0 {
		d.UploadConcurrency = 4
	}
	return d
}

// fillUsage estimates token counts when the vendor reported none
func fillUsage(encoders *tokens.EncoderRegistry, meta *prompt.ResponseMetadata, p prompt.Prompt, reply string) {
	if meta.PromptTokens > 0 || meta.CompletionTokens > 0 {
		return
	}

	inputs := make([]string, 0, len(p.History)+2)
	for _, m := range p.Messages() {
		inputs = append(inputs, m.Content)
	}
	meta.PromptTokens, meta.CompletionTokens = encoders.EstimateUsage(meta.Model, inputs, reply)
}
