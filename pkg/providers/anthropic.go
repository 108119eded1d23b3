package providers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/snow-ghost/robotai/pkg/prompt"
	"github.com/snow-ghost/robotai/pkg/registry"
	"github.com/snow-ghost/robotai/pkg/tokens"
)

// anthropicDefaultMaxTokens is sent when the prompt leaves max_tokens unset; the API requires it
const anthropicDefaultMaxTokens = 1024

const anthropicJSONInstruction = "Respond only with a single valid JSON object and no other text."

// NewAnthropicProvider creates the Anthropic adapter. Only text generation is offered.
func NewAnthropicProvider(ctx context.Context, config registry.ProviderConfig, deps Dependencies) (Provider, error) {
	apiKey, err := config.APIKey()
	if err != nil {
		return nil, err
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(config.BaseURL, "/")+"/"))
	}
	if deps.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(deps.HTTPClient))
	}

	caps := ProviderCapabilities{
		Config:     config,
		Protection: deps.Protection,
		Logger:     deps.Logger.Named(config.Name),
	}

	handlers := make(map[prompt.ToolType]ToolHandler)
	if tool := config.FindTool(string(prompt.ToolTextGenerator)); tool != nil {
		handlers[prompt.ToolTextGenerator] = &AnthropicTextGenerator{
			provider: caps,
			tool:     NewToolCapabilities(*tool),
			client:   anthropic.NewClient(opts...),
			encoders: deps.Encoders,
		}
	}

	return NewAdapter(config, caps.Logger, handlers)
}

// AnthropicTextGenerator answers prompts with the messages API
type AnthropicTextGenerator struct {
	provider ProviderCapabilities
	tool     ToolCapabilities
	client   anthropic.Client
	encoders *tokens.EncoderRegistry
}

// Handle implements ToolHandler
func (g *AnthropicTextGenerator) Handle(ctx context.Context, p prompt.Prompt, model string) (*prompt.Response, error) {
	params := g.buildParams(p, model)

	var message *anthropic.Message
	err := g.provider.Call(ctx, model, "messages", func(ctx context.Context) error {
		var callErr error
		message, callErr = g.client.Messages.New(ctx, params)
		if callErr != nil {
			return callErr
		}
		if len(message.Content) == 0 {
			return errors.New("response contained no content")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	meta := prompt.ResponseMetadata{
		Tool:             g.tool.Tool,
		Provider:         g.provider.Name(),
		Model:            model,
		FinishReason:     prompt.FinishReason(string(message.StopReason)),
		PromptTokens:     int(message.Usage.InputTokens),
		CompletionTokens: int(message.Usage.OutputTokens),
		CompletedAt:      time.Now(),
	}
	fillUsage(g.encoders, &meta, p, text.String())

	return &prompt.Response{Message: text.String(), Metadata: meta}, nil
}

func (g *AnthropicTextGenerator) buildParams(p prompt.Prompt, model string) anthropic.MessageNewParams {
	maxTokens := anthropicDefaultMaxTokens
	if p.Parameters.MaxTokens != nil {
		maxTokens = *p.Parameters.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
	}

	var system []string
	if p.SystemMessage != "" {
		system = append(system, p.SystemMessage)
	}
	for _, m := range p.History {
		switch m.Role {
		case prompt.RoleSystem:
			system = append(system, m.Content)
		case prompt.RoleAssistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	if p.UserMessage != "" {
		params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(p.UserMessage)))
	}
	if p.Config.ResponseFormat == prompt.FormatJSON {
		system = append(system, anthropicJSONInstruction)
	}
	if len(system) > 0 {
		params.System = []anthropic.TextBlockParam{{Text: strings.Join(system, "\n\n")}}
	}

	if p.Parameters.Temperature != nil {
		params.Temperature = anthropic.Float(*p.Parameters.Temperature)
	}
	if p.Parameters.TopP != nil {
		params.TopP = anthropic.Float(*p.Parameters.TopP)
	}
	if p.Parameters.FrequencyPenalty != nil || p.Parameters.PresencePenalty != nil {
		g.provider.Logger.Debug("dropping penalties not supported by the messages API", "model", model)
	}

	return params
}
