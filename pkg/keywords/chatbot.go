package keywords

import (
	"context"
	"sync"

	"github.com/snow-ghost/robotai/pkg/logging"
	"github.com/snow-ghost/robotai/pkg/prompt"
	"github.com/snow-ghost/robotai/pkg/validation"
)

// GenerateArgs are the arguments of GenerateResponse
type GenerateArgs struct {
	Common
	Message       string `json:"message"`
	SystemMessage string `json:"system_message,omitempty"`
	KeepHistory   *bool  `json:"keep_history,omitempty"`
}

// Chatbot generates chat responses and remembers the conversation per provider
type Chatbot struct {
	dispatcher Dispatcher
	logger     *logging.Logger

	mu       sync.Mutex
	defaults Defaults
	history  map[string][]prompt.Message
}

// NewChatbot creates a chatbot with the documented defaults
func NewChatbot(dispatcher Dispatcher, logger *logging.Logger) *Chatbot {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Chatbot{
		dispatcher: dispatcher,
		logger:     logger.Named("chatbot"),
		defaults:   DefaultDefaults(),
		history:    make(map[string][]prompt.Message),
	}
}

// Defaults returns the staged defaults
func (c *Chatbot) Defaults() Defaults {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.defaults
}

// SetDefaults replaces the staged defaults
func (c *Chatbot) SetDefaults(d Defaults) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaults = d
}

// History returns a copy of the stored conversation with provider
func (c *Chatbot) History(provider string) []prompt.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]prompt.Message(nil), c.history[provider]...)
}

// SetHistory replaces the stored conversation with provider, e.g. to seed a dialogue
func (c *Chatbot) SetHistory(provider string, history []prompt.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(history) == 0 {
		delete(c.history, provider)
		return
	}
	c.history[provider] = append([]prompt.Message(nil), history...)
}

// ResetHistory forgets the conversation with provider
func (c *Chatbot) ResetHistory(provider string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.history, provider)
}

// GenerateResponse sends message to the provider and returns the reply.
// With KeepHistory the stored conversation is replayed; without it the conversation starts over.
// A successful exchange is recorded; a failed call leaves the stored conversation untouched.
func (c *Chatbot) GenerateResponse(ctx context.Context, args GenerateArgs) (string, error) {
	const keyword = "generate_response"

	c.mu.Lock()
	defaults := c.defaults
	c.mu.Unlock()

	r, err := defaults.resolve(args.Common)
	err = validation.Collect(err, validation.RequireString("message", args.Message))
	if err != nil {
		return "", fail(c.logger, keyword, err)
	}

	keepHistory := defaults.KeepHistory
	if args.KeepHistory != nil {
		keepHistory = *args.KeepHistory
	}
	systemMessage := firstNonEmpty(args.SystemMessage, defaults.SystemMessage)

	c.logger.Debug("calling keyword",
		"keyword", keyword,
		"provider", r.provider,
		"model", r.model,
		"keep_history", keepHistory,
		"response_format", string(r.format))

	var history []prompt.Message
	if keepHistory {
		history = c.History(r.provider)
	}

	p := prompt.Prompt{
		Tool: prompt.ToolTextGenerator,
		Config: prompt.Config{
			Provider:       r.provider,
			Model:          r.model,
			ResponseFormat: r.format,
		},
		SystemMessage: systemMessage,
		UserMessage:   args.Message,
		History:       history,
		Parameters:    r.params,
		Metadata:      newMetadata("chatbot"),
	}

	resp, err := c.dispatcher.Dispatch(ctx, p)
	if err != nil {
		return "", fail(c.logger, keyword, err)
	}

	c.mu.Lock()
	if !keepHistory {
		delete(c.history, r.provider)
	}
	c.history[r.provider] = append(c.history[r.provider],
		prompt.Message{Role: prompt.RoleUser, Content: args.Message},
		prompt.Message{Role: prompt.RoleAssistant, Content: resp.Message},
	)
	c.mu.Unlock()

	return resp.Message, nil
}
