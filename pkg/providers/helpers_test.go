package providers

import (
	"context"
	"sync"

	"github.com/snow-ghost/robotai/pkg/prompt"
	"github.com/snow-ghost/robotai/pkg/registry"
)

// stubHandler records the prompts it receives and answers with a fixed reply
type stubHandler struct {
	mu     sync.Mutex
	calls  []prompt.Prompt
	models []string
	reply  string
	err    error
}

func (h *stubHandler) Handle(ctx context.Context, p prompt.Prompt, model string) (*prompt.Response, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.calls = append(h.calls, p)
	h.models = append(h.models, model)
	if h.err != nil {
		return nil, h.err
	}
	return &prompt.Response{
		Message: h.reply,
		Metadata: prompt.ResponseMetadata{
			Tool:             p.Tool,
			Provider:         p.Config.Provider,
			Model:            model,
			PromptTokens:     1000,
			CompletionTokens: 500,
		},
	}, nil
}

func (h *stubHandler) callCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.calls)
}

func testProviderConfig(name string) registry.ProviderConfig {
	return registry.ProviderConfig{
		Name: name,
		Tools: []registry.ToolConfig{
			{Name: "text_generator", Models: []string{"small", "large"}, DefaultModel: "small"},
			{Name: "assistant", Models: []string{"large"}, DefaultModel: "large"},
		},
		Pricing: map[string]registry.Pricing{
			"small": {Currency: "USD", InputPer1K: 0.001, OutputPer1K: 0.002},
		},
	}
}

func textPrompt(provider, model, message string) prompt.Prompt {
	return prompt.Prompt{
		Tool:        prompt.ToolTextGenerator,
		Config:      prompt.Config{Provider: provider, Model: model},
		UserMessage: message,
		Metadata:    prompt.NewMetadata("test"),
	}
}
