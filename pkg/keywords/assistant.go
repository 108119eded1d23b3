package keywords

import (
	"context"
	"sync"

	"github.com/snow-ghost/robotai/pkg/logging"
	"github.com/snow-ghost/robotai/pkg/prompt"
	"github.com/snow-ghost/robotai/pkg/validation"
)

// AssistantArgs are the arguments of CreateAssistant and UpdateAssistant
type AssistantArgs struct {
	Common
	Name         string `json:"name,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

// MessageArgs are the arguments of SendMessage
type MessageArgs struct {
	Provider  string   `json:"provider,omitempty"`
	Message   string   `json:"message"`
	FilePaths []string `json:"file_paths,omitempty"`
}

// Assistant exposes the assistant actions. The assistant state itself lives in the provider's handler.
type Assistant struct {
	dispatcher Dispatcher
	logger     *logging.Logger

	mu       sync.Mutex
	defaults Defaults
}

// NewAssistant creates the assistant keywords with the documented defaults
func NewAssistant(dispatcher Dispatcher, logger *logging.Logger) *Assistant {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Assistant{
		dispatcher: dispatcher,
		logger:     logger.Named("assistant"),
		defaults:   DefaultDefaults(),
	}
}

// Defaults returns the staged defaults
func (a *Assistant) Defaults() Defaults {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.defaults
}

// SetDefaults replaces the staged defaults
func (a *Assistant) SetDefaults(d Defaults) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.defaults = d
}

// CreateAssistant creates an assistant, makes it active and returns its id
func (a *Assistant) CreateAssistant(ctx context.Context, args AssistantArgs) (string, error) {
	const keyword = "create_assistant"
	defaults := a.Defaults()

	r, err := defaults.resolve(args.Common)
	name := firstNonEmpty(args.Name, defaults.Name)
	instructions := firstNonEmpty(args.Instructions, defaults.Instructions)
	err = validation.Collect(err,
		validation.RequireString("name", name),
		validation.RequireString("instructions", instructions))
	if err != nil {
		return "", fail(a.logger, keyword, err)
	}

	a.logger.Debug("calling keyword",
		"keyword", keyword,
		"provider", r.provider,
		"model", r.model,
		"name", name,
		"response_format", string(r.format))

	return a.run(ctx, keyword, r, "", &prompt.AssistantData{
		Action:       prompt.ActionCreateAssistant,
		Name:         name,
		Instructions: instructions,
	})
}

// UpdateAssistant changes the supplied fields of the active assistant and describes the changes.
// Only explicit arguments are applied; staged sampling defaults are not.
func (a *Assistant) UpdateAssistant(ctx context.Context, args AssistantArgs) (string, error) {
	const keyword = "update_assistant"
	defaults := a.Defaults()
	defaults.Parameters = prompt.Parameters{}
	defaults.Model = ""
	defaults.ResponseFormat = ""

	r, err := defaults.resolve(args.Common)
	if err != nil {
		return "", fail(a.logger, keyword, err)
	}

	a.logger.Debug("calling keyword",
		"keyword", keyword,
		"provider", r.provider,
		"model", r.model,
		"name", args.Name)

	return a.run(ctx, keyword, r, "", &prompt.AssistantData{
		Action:       prompt.ActionUpdateAssistant,
		Name:         args.Name,
		Instructions: args.Instructions,
	})
}

// SendMessage posts a message, optionally with files, to the active thread and returns the reply
func (a *Assistant) SendMessage(ctx context.Context, args MessageArgs) (string, error) {
	const keyword = "send_message"

	r, err := a.resolveProvider(args.Provider)
	err = validation.Collect(err, validation.RequireString("message", args.Message))
	if err != nil {
		return "", fail(a.logger, keyword, err)
	}

	a.logger.Debug("calling keyword", "keyword", keyword, "provider", r.provider, "files", len(args.FilePaths))

	return a.run(ctx, keyword, r, args.Message, &prompt.AssistantData{
		Action:    prompt.ActionSendMessage,
		FilePaths: args.FilePaths,
	})
}

// AttachFiles uploads the files under paths and binds them to the active assistant
func (a *Assistant) AttachFiles(ctx context.Context, provider string, paths []string) (string, error) {
	const keyword = "attach_files"

	r, err := a.resolveProvider(provider)
	err = validation.Collect(err, validation.RequirePaths("file_paths", paths))
	if err != nil {
		return "", fail(a.logger, keyword, err)
	}

	a.logger.Debug("calling keyword", "keyword", keyword, "provider", r.provider, "paths", paths)

	return a.run(ctx, keyword, r, "", &prompt.AssistantData{
		Action:    prompt.ActionAttachFiles,
		FilePaths: paths,
	})
}

// GetActiveAssistantID returns the id of the active assistant
func (a *Assistant) GetActiveAssistantID(ctx context.Context, provider string) (string, error) {
	return a.simple(ctx, "get_active_assistant_id", provider, &prompt.AssistantData{Action: prompt.ActionGetActiveAssistantID})
}

// CreateNewThread starts a new conversation with the active assistant
func (a *Assistant) CreateNewThread(ctx context.Context, provider string) (string, error) {
	return a.simple(ctx, "create_new_thread", provider, &prompt.AssistantData{Action: prompt.ActionCreateNewThread})
}

// DeleteAssistant deletes the active assistant
func (a *Assistant) DeleteAssistant(ctx context.Context, provider string) (string, error) {
	return a.simple(ctx, "delete_assistant", provider, &prompt.AssistantData{Action: prompt.ActionDeleteAssistant})
}

// SetActiveAssistant makes an existing assistant active
func (a *Assistant) SetActiveAssistant(ctx context.Context, provider, id string) (string, error) {
	return a.withID(ctx, "set_active_assistant", prompt.ActionSetActiveAssistant, provider, id)
}

// DeleteAssistantByID deletes an assistant by id
func (a *Assistant) DeleteAssistantByID(ctx context.Context, provider, id string) (string, error) {
	return a.withID(ctx, "delete_assistant_by_id", prompt.ActionDeleteAssistantByID, provider, id)
}

func (a *Assistant) withID(ctx context.Context, keyword string, action prompt.Action, provider, id string) (string, error) {
	id = firstNonEmpty(id, a.Defaults().ID)

	r, err := a.resolveProvider(provider)
	err = validation.Collect(err, validation.RequireString("id", id))
	if err != nil {
		return "", fail(a.logger, keyword, err)
	}

	a.logger.Debug("calling keyword", "keyword", keyword, "provider", r.provider, "id", id)

	return a.run(ctx, keyword, r, "", &prompt.AssistantData{Action: action, ID: id})
}

func (a *Assistant) simple(ctx context.Context, keyword, provider string, data *prompt.AssistantData) (string, error) {
	r, err := a.resolveProvider(provider)
	if err != nil {
		return "", fail(a.logger, keyword, err)
	}

	a.logger.Debug("calling keyword", "keyword", keyword, "provider", r.provider)

	return a.run(ctx, keyword, r, "", data)
}

func (a *Assistant) resolveProvider(provider string) (resolved, error) {
	r := resolved{provider: firstNonEmpty(provider, a.Defaults().Provider)}
	return r, validation.RequireString("provider", r.provider)
}

func (a *Assistant) run(ctx context.Context, keyword string, r resolved, message string, data *prompt.AssistantData) (string, error) {
	p := prompt.Prompt{
		Tool: prompt.ToolAssistant,
		Config: prompt.Config{
			Provider:       r.provider,
			Model:          r.model,
			ResponseFormat: r.format,
		},
		UserMessage: message,
		Parameters: prompt.Parameters{
			Temperature: r.params.Temperature,
			TopP:        r.params.TopP,
		},
		Data:     data,
		Metadata: newMetadata("assistant"),
	}

	resp, err := a.dispatcher.Dispatch(ctx, p)
	if err != nil {
		return "", fail(a.logger, keyword, err)
	}
	return resp.Message, nil
}
