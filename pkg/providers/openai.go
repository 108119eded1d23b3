package providers

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/snow-ghost/robotai/pkg/prompt"
	"github.com/snow-ghost/robotai/pkg/registry"
	"github.com/snow-ghost/robotai/pkg/tokens"
)

// NewOpenAIProvider creates the OpenAI adapter with a handler for every declared tool
func NewOpenAIProvider(ctx context.Context, config registry.ProviderConfig, deps Dependencies) (Provider, error) {
	apiKey, err := config.APIKey()
	if err != nil {
		return nil, err
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	if deps.HTTPClient != nil {
		clientConfig.HTTPClient = deps.HTTPClient
	}
	client := openai.NewClientWithConfig(clientConfig)

	caps := ProviderCapabilities{
		Config:     config,
		Protection: deps.Protection,
		Logger:     deps.Logger.Named(config.Name),
	}

	handlers := make(map[prompt.ToolType]ToolHandler)
	if tool := config.FindTool(string(prompt.ToolTextGenerator)); tool != nil {
		handlers[prompt.ToolTextGenerator] = &OpenAITextGenerator{
			provider: caps,
			tool:     NewToolCapabilities(*tool),
			client:   client,
			encoders: deps.Encoders,
		}
	}
	if tool := config.FindTool(string(prompt.ToolAssistant)); tool != nil {
		handlers[prompt.ToolAssistant] = NewOpenAIAssistant(caps, NewToolCapabilities(*tool), client, deps)
	}

	return NewAdapter(config, caps.Logger, handlers)
}

// OpenAITextGenerator answers prompts with the chat completions API
type OpenAITextGenerator struct {
	provider ProviderCapabilities
	tool     ToolCapabilities
	client   *openai.Client
	encoders *tokens.EncoderRegistry
}

// Handle implements ToolHandler
func (g *OpenAITextGenerator) Handle(ctx context.Context, p prompt.Prompt, model string) (*prompt.Response, error) {
	request := openai.ChatCompletionRequest{
		Model:    model,
		Messages: toOpenAIMessages(p.Messages()),
	}
	applyOpenAIParameters(&request, p.Parameters)
	if p.Config.ResponseFormat == prompt.FormatJSON {
		request.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	g.provider.Logger.Debug("sending chat completion",
		"model", model,
		"messages", len(request.Messages),
		"response_format", string(p.Config.ResponseFormat))

	var response openai.ChatCompletionResponse
	err := g.provider.Call(ctx, model, "chat_completion", func(ctx context.Context) error {
		var callErr error
		response, callErr = g.client.CreateChatCompletion(ctx, request)
		if callErr != nil {
			return callErr
		}
		if len(response.Choices) == 0 {
			return errors.New("response contained no choices")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	choice := response.Choices[0]
	completedAt := time.Now()
	if response.Created > 0 {
		completedAt = time.Unix(response.Created, 0)
	}

	meta := prompt.ResponseMetadata{
		Tool:             g.tool.Tool,
		Provider:         g.provider.Name(),
		Model:            model,
		FinishReason:     prompt.FinishReason(string(choice.FinishReason)),
		PromptTokens:     response.Usage.PromptTokens,
		CompletionTokens: response.Usage.CompletionTokens,
		CompletedAt:      completedAt,
	}
	fillUsage(g.encoders, &meta, p, choice.Message.Content)

	return &prompt.Response{Message: choice.Message.Content, Metadata: meta}, nil
}

func toOpenAIMessages(messages []prompt.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
	}
	return out
}

// openAIFloat converts a sampling parameter. The client omits zero values,
// so an explicit zero is sent as the smallest positive float32.
func openAIFloat(v float64) float32 {
	if v == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(v)
}

func applyOpenAIParameters(request *openai.ChatCompletionRequest, params prompt.Parameters) {
	if params.MaxTokens != nil {
		request.MaxTokens = *params.MaxTokens
	}
	if params.Temperature != nil {
		request.Temperature = openAIFloat(*params.Temperature)
	}
	if params.TopP != nil {
		request.TopP = openAIFloat(*params.TopP)
	}
	if params.FrequencyPenalty != nil {
		request.FrequencyPenalty = float32(*params.FrequencyPenalty)
	}
	if params.PresencePenalty != nil {
		request.PresencePenalty = float32(*params.PresencePenalty)
	}
}
