package providers

import (
	"context"
	"errors"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/snow-ghost/robotai/pkg/prompt"
	"github.com/snow-ghost/robotai/pkg/registry"
	"github.com/snow-ghost/robotai/pkg/tokens"
)

// NewGeminiProvider creates the Gemini adapter. Only text generation is offered.
func NewGeminiProvider(ctx context.Context, config registry.ProviderConfig, deps Dependencies) (Provider, error) {
	apiKey, err := config.APIKey()
	if err != nil {
		return nil, err
	}

	clientConfig := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: deps.HTTPClient,
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, err
	}

	caps := ProviderCapabilities{
		Config:     config,
		Protection: deps.Protection,
		Logger:     deps.Logger.Named(config.Name),
	}

	handlers := make(map[prompt.ToolType]ToolHandler)
	if tool := config.FindTool(string(prompt.ToolTextGenerator)); tool != nil {
		handlers[prompt.ToolTextGenerator] = &GeminiTextGenerator{
			provider: caps,
			tool:     NewToolCapabilities(*tool),
			client:   client,
			encoders: deps.Encoders,
		}
	}

	return NewAdapter(config, caps.Logger, handlers)
}

// GeminiTextGenerator answers prompts with the generateContent API
type GeminiTextGenerator struct {
	provider ProviderCapabilities
	tool     ToolCapabilities
	client   *genai.Client
	encoders *tokens.EncoderRegistry
}

// Handle implements ToolHandler
func (g *GeminiTextGenerator) Handle(ctx context.Context, p prompt.Prompt, model string) (*prompt.Response, error) {
	contents, config := buildGeminiRequest(p)

	var response *genai.GenerateContentResponse
	err := g.provider.Call(ctx, model, "generate_content", func(ctx context.Context) error {
		var callErr error
		response, callErr = g.client.Models.GenerateContent(ctx, model, contents, config)
		if callErr != nil {
			return callErr
		}
		if response == nil || len(response.Candidates) == 0 {
			return errors.New("response contained no candidates")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	text := response.Text()

	meta := prompt.ResponseMetadata{
		Tool:        g.tool.Tool,
		Provider:    g.provider.Name(),
		Model:       model,
		CompletedAt: time.Now(),
	}
	if candidate := response.Candidates[0]; candidate != nil {
		meta.FinishReason = prompt.FinishReason(string(candidate.FinishReason))
	}
	if usage := response.UsageMetadata; usage != nil {
		meta.PromptTokens = int(usage.PromptTokenCount)
		meta.CompletionTokens = int(usage.CandidatesTokenCount)
	}
	fillUsage(g.encoders, &meta, p, text)

	return &prompt.Response{Message: text, Metadata: meta}, nil
}

func buildGeminiRequest(p prompt.Prompt) ([]*genai.Content, *genai.GenerateContentConfig) {
	config := &genai.GenerateContentConfig{}

	var system []string
	if p.SystemMessage != "" {
		system = append(system, p.SystemMessage)
	}

	contents := make([]*genai.Content, 0, len(p.History)+1)
	for _, m := range p.History {
		switch m.Role {
		case prompt.RoleSystem:
			system = append(system, m.Content)
		case prompt.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if p.UserMessage != "" {
		contents = append(contents, genai.NewContentFromText(p.UserMessage, genai.RoleUser))
	}

	if len(system) > 0 {
		config.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	if p.Config.ResponseFormat == prompt.FormatJSON {
		config.ResponseMIMEType = "application/json"
	}

	params := p.Parameters
	if params.MaxTokens != nil {
		config.MaxOutputTokens = int32(*params.MaxTokens)
	}
	if params.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*params.Temperature))
	}
	if params.TopP != nil {
		config.TopP = genai.Ptr(float32(*params.TopP))
	}
	if params.FrequencyPenalty != nil {
		config.FrequencyPenalty = genai.Ptr(float32(*params.FrequencyPenalty))
	}
	if params.PresencePenalty != nil {
		config.PresencePenalty = genai.Ptr(float32(*params.PresencePenalty))
	}

	return contents, config
}
