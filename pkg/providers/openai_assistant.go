package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"

	"github.com/snow-ghost/robotai/pkg/errdefs"
	"github.com/snow-ghost/robotai/pkg/files"
	"github.com/snow-ghost/robotai/pkg/prompt"
	"github.com/snow-ghost/robotai/pkg/tokens"
	"github.com/snow-ghost/robotai/pkg/validation"
)

// OpenAIAssistant runs the assistant state machine against the OpenAI assistants API.
// The active assistant and thread are shared by all callers; mu is held for the
// whole action, including run polling, so actions on one handler are serialized.
type OpenAIAssistant struct {
	provider ProviderCapabilities
	tool     ToolCapabilities
	client   *openai.Client
	encoders *tokens.EncoderRegistry

	pollInterval      time.Duration
	pollTimeout       time.Duration
	uploadConcurrency int

	mu             sync.Mutex
	assistantID    string
	assistantModel string
	threadID       string
}

// NewOpenAIAssistant creates an assistant handler with no active assistant
func NewOpenAIAssistant(provider ProviderCapabilities, tool ToolCapabilities, client *openai.Client, deps Dependencies) *OpenAIAssistant {
	deps = deps.withDefaults()
	return &OpenAIAssistant{
		provider:          provider,
		tool:              tool,
		client:            client,
		encoders:          deps.Encoders,
		pollInterval:      deps.PollInterval,
		pollTimeout:       deps.PollTimeout,
		uploadConcurrency: deps.UploadConcurrency,
	}
}

// Handle implements ToolHandler
func (a *OpenAIAssistant) Handle(ctx context.Context, p prompt.Prompt, model string) (*prompt.Response, error) {
	data, ok := p.Data.(*prompt.AssistantData)
	if !ok || data == nil {
		return nil, errdefs.NewMissingArgumentError("tool_data", "assistant prompts require assistant data")
	}

	action, err := prompt.ParseAction(string(data.Action))
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if action.RequiresActiveAssistant() && a.assistantID == "" {
		return nil, &errdefs.NoActiveAssistantError{Provider: a.provider.Name(), Action: string(action)}
	}

	a.provider.Logger.Debug("running assistant action",
		"action", string(action),
		"model", model,
		"assistant_id", a.assistantID)

	var message string
	switch action {
	case prompt.ActionCreateAssistant:
		message, err = a.createAssistant(ctx, p, data, model)
	case prompt.ActionUpdateAssistant:
		message, err = a.updateAssistant(ctx, p, data, model)
	case prompt.ActionDeleteAssistant:
		message, err = a.deleteAssistant(ctx, a.assistantID)
	case prompt.ActionDeleteAssistantByID:
		if err = validation.RequireString("id", data.ID); err == nil {
			message, err = a.deleteAssistant(ctx, data.ID)
		}
	case prompt.ActionAttachFiles:
		message, err = a.attachFiles(ctx, data.FilePaths)
	case prompt.ActionSendMessage:
		return a.sendMessage(ctx, p, data)
	case prompt.ActionGetActiveAssistantID:
		message = a.assistantID
	case prompt.ActionCreateNewThread:
		message, err = a.createNewThread(ctx)
	case prompt.ActionSetActiveAssistant:
		message, err = a.setActiveAssistant(ctx, data.ID)
	default:
		err = &errdefs.UnknownActionError{Action: string(action), Valid: prompt.Actions()}
	}
	if err != nil {
		return nil, err
	}

	return &prompt.Response{
		Message: message,
		Metadata: prompt.ResponseMetadata{
			Tool:        a.tool.Tool,
			Provider:    a.provider.Name(),
			Model:       a.assistantModelOr(model),
			CompletedAt: time.Now(),
		},
	}, nil
}

func (a *OpenAIAssistant) assistantModelOr(model string) string {
	if a.assistantModel != "" {
		return a.assistantModel
	}
	return model
}

func (a *OpenAIAssistant) createAssistant(ctx context.Context, p prompt.Prompt, data *prompt.AssistantData, model string) (string, error) {
	request := openai.AssistantRequest{
		Model: model,
		Tools: []openai.AssistantTool{{Type: openai.AssistantToolTypeFileSearch}},
	}
	if data.Name != "" {
		request.Name = &data.Name
	}
	if data.Instructions != "" {
		request.Instructions = &data.Instructions
	}
	applyAssistantParameters(&request, p)

	var created openai.Assistant
	err := a.provider.Call(ctx, model, "create_assistant", func(ctx context.Context) error {
		var callErr error
		created, callErr = a.client.CreateAssistant(ctx, request)
		return callErr
	})
	if err != nil {
		return "", err
	}

	thread, err := a.newThread(ctx, model)
	if err != nil {
		a.cleanup(ctx, "delete_assistant", created.ID, func(ctx context.Context) error {
			_, err := a.client.DeleteAssistant(ctx, created.ID)
			return err
		})
		return "", err
	}

	a.assistantID = created.ID
	a.assistantModel = model
	a.threadID = thread
	a.provider.Logger.Info("assistant created", "assistant_id", created.ID, "thread_id", thread, "model", model)

	return created.ID, nil
}

func applyAssistantParameters(request *openai.AssistantRequest, p prompt.Prompt) {
	if p.Parameters.Temperature != nil {
		v := float32(*p.Parameters.Temperature)
		request.Temperature = &v
	}
	if p.Parameters.TopP != nil {
		v := float32(*p.Parameters.TopP)
		request.TopP = &v
	}
	if p.Config.ResponseFormat == prompt.FormatJSON {
		request.ResponseFormat = map[string]string{"type": string(prompt.FormatJSON)}
	}
}

func (a *OpenAIAssistant) updateAssistant(ctx context.Context, p prompt.Prompt, data *prompt.AssistantData, model string) (string, error) {
	var current openai.Assistant
	err := a.provider.Call(ctx, a.assistantModel, "retrieve_assistant", func(ctx context.Context) error {
		var callErr error
		current, callErr = a.client.RetrieveAssistant(ctx, a.assistantID)
		return callErr
	})
	if err != nil {
		return "", err
	}

	request := openai.AssistantRequest{Model: current.Model}
	var changes []string

	if data.Name != "" && derefString(current.Name) != data.Name {
		changes = append(changes, fmt.Sprintf("name (%s -> %s)", derefString(current.Name), data.Name))
		request.Name = &data.Name
	}
	if data.Instructions != "" && derefString(current.Instructions) != data.Instructions {
		changes = append(changes, fmt.Sprintf("instructions (%s -> %s)", derefString(current.Instructions), data.Instructions))
		request.Instructions = &data.Instructions
	}
	// An unset model keeps the assistant's model instead of resetting it to the tool default.
	if p.Config.Model != "" && current.Model != model {
		changes = append(changes, fmt.Sprintf("model (%s -> %s)", current.Model, model))
		request.Model = model
	}
	if p.Parameters.Temperature != nil && !sameFloat(current.Temperature, *p.Parameters.Temperature) {
		changes = append(changes, fmt.Sprintf("temperature (%s -> %v)", formatFloat(current.Temperature), *p.Parameters.Temperature))
		v := float32(*p.Parameters.Temperature)
		request.Temperature = &v
	}
	if p.Parameters.TopP != nil && !sameFloat(current.TopP, *p.Parameters.TopP) {
		changes = append(changes, fmt.Sprintf("top_p (%s -> %v)", formatFloat(current.TopP), *p.Parameters.TopP))
		v := float32(*p.Parameters.TopP)
		request.TopP = &v
	}
	if p.Config.ResponseFormat != prompt.FormatDefault {
		currentFormat := responseFormatName(current.ResponseFormat)
		if currentFormat != string(p.Config.ResponseFormat) {
			changes = append(changes, fmt.Sprintf("response_format (%s -> %s)", currentFormat, p.Config.ResponseFormat))
			request.ResponseFormat = map[string]string{"type": string(p.Config.ResponseFormat)}
		}
	}

	if len(changes) == 0 {
		return fmt.Sprintf("No changes for assistant %s", a.assistantID), nil
	}

	var updated openai.Assistant
	err = a.provider.Call(ctx, request.Model, "modify_assistant", func(ctx context.Context) error {
		var callErr error
		updated, callErr = a.client.ModifyAssistant(ctx, a.assistantID, request)
		return callErr
	})
	if err != nil {
		return "", err
	}
	a.assistantModel = updated.Model
	if a.assistantModel == "" {
		a.assistantModel = request.Model
	}

	return fmt.Sprintf("Updated assistant %s: %s", a.assistantID, strings.Join(changes, ", ")), nil
}

func (a *OpenAIAssistant) deleteAssistant(ctx context.Context, id string) (string, error) {
	err := a.provider.Call(ctx, a.assistantModel, "delete_assistant", func(ctx context.Context) error {
		_, callErr := a.client.DeleteAssistant(ctx, id)
		return callErr
	})
	if err != nil {
		return "", err
	}

	if id == a.assistantID {
		a.assistantID = ""
		a.assistantModel = ""
		a.threadID = ""
	}
	a.provider.Logger.Info("assistant deleted", "assistant_id", id)

	return fmt.Sprintf("Deleted assistant %s", id), nil
}

func (a *OpenAIAssistant) setActiveAssistant(ctx context.Context, id string) (string, error) {
	if err := validation.RequireString("id", id); err != nil {
		return "", err
	}

	var retrieved openai.Assistant
	err := a.provider.Call(ctx, a.tool.DefaultModel, "retrieve_assistant", func(ctx context.Context) error {
		var callErr error
		retrieved, callErr = a.client.RetrieveAssistant(ctx, id)
		return callErr
	})
	if err != nil {
		return "", err
	}

	thread, err := a.newThread(ctx, retrieved.Model)
	if err != nil {
		return "", err
	}

	a.assistantID = retrieved.ID
	if a.assistantID == "" {
		a.assistantID = id
	}
	a.assistantModel = retrieved.Model
	a.threadID = thread

	return fmt.Sprintf("Assistant %s is now active", a.assistantID), nil
}

func (a *OpenAIAssistant) createNewThread(ctx context.Context) (string, error) {
	thread, err := a.newThread(ctx, a.assistantModel)
	if err != nil {
		return "", err
	}
	a.threadID = thread
	return fmt.Sprintf("Created new thread %s for assistant %s", thread, a.assistantID), nil
}

func (a *OpenAIAssistant) newThread(ctx context.Context, model string) (string, error) {
	var thread openai.Thread
	err := a.provider.Call(ctx, model, "create_thread", func(ctx context.Context) error {
		var callErr error
		thread, callErr = a.client.CreateThread(ctx, openai.ThreadRequest{})
		return callErr
	})
	if err != nil {
		return "", err
	}
	return thread.ID, nil
}

func (a *OpenAIAssistant) attachFiles(ctx context.Context, paths []string) (string, error) {
	if err := validation.RequirePaths("file_paths", paths); err != nil {
		return "", err
	}

	collected, err := files.Collect(paths)
	if err != nil {
		return "", err
	}

	fileIDs, err := a.uploadFiles(ctx, collected)
	if err != nil {
		a.deleteFiles(ctx, fileIDs)
		return "", err
	}

	message, err := a.bindFiles(ctx, collected, fileIDs)
	if err != nil {
		a.deleteFiles(ctx, fileIDs)
		return "", err
	}
	return message, nil
}

// bindFiles puts the uploaded files into a new vector store and points the assistant's file search at it
func (a *OpenAIAssistant) bindFiles(ctx context.Context, collected []files.File, fileIDs []string) (string, error) {
	var store openai.VectorStore
	err := a.provider.Call(ctx, a.assistantModel, "create_vector_store", func(ctx context.Context) error {
		var callErr error
		store, callErr = a.client.CreateVectorStore(ctx, openai.VectorStoreRequest{
			Name: fmt.Sprintf("%s-files", a.assistantID),
		})
		return callErr
	})
	if err != nil {
		return "", err
	}

	var batch openai.VectorStoreFileBatch
	err = a.provider.Call(ctx, a.assistantModel, "create_file_batch", func(ctx context.Context) error {
		var callErr error
		batch, callErr = a.client.CreateVectorStoreFileBatch(ctx, store.ID, openai.VectorStoreFileBatchRequest{FileIDs: fileIDs})
		return callErr
	})
	if err == nil {
		err = a.waitForFileBatch(ctx, store.ID, batch)
	}
	if err != nil {
		a.deleteVectorStore(ctx, store.ID)
		return "", err
	}

	err = a.provider.Call(ctx, a.assistantModel, "modify_assistant", func(ctx context.Context) error {
		_, callErr := a.client.ModifyAssistant(ctx, a.assistantID, openai.AssistantRequest{
			Model: a.assistantModel,
			ToolResources: &openai.AssistantToolResource{
				FileSearch: &openai.AssistantToolFileSearch{VectorStoreIDs: []string{store.ID}},
			},
		})
		return callErr
	})
	if err != nil {
		a.deleteVectorStore(ctx, store.ID)
		return "", err
	}

	a.provider.Logger.Info("files attached", "assistant_id", a.assistantID, "vector_store_id", store.ID, "files", len(collected))

	return fmt.Sprintf("Successfully added %d files to assistant with id: %s. The following files got added: `%s`",
		len(collected), a.assistantID, strings.Join(files.Paths(collected), "`, `")), nil
}

// uploadFiles uploads the files concurrently and returns their ids in input order.
// On failure the ids of the files that did upload are returned with the error.
func (a *OpenAIAssistant) uploadFiles(ctx context.Context, collected []files.File) ([]string, error) {
	ids := make([]string, len(collected))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.uploadConcurrency)

	for i, f := range collected {
		g.Go(func() error {
			return a.provider.Call(gctx, a.assistantModel, "upload_file", func(ctx context.Context) error {
				uploaded, callErr := a.client.CreateFileBytes(ctx, openai.FileBytesRequest{
					Name:    f.Name(),
					Bytes:   f.Content,
					Purpose: openai.PurposeAssistants,
				})
				if callErr != nil {
					return fmt.Errorf("%s: %w", f.Path, callErr)
				}
				ids[i] = uploaded.ID
				return nil
			})
		})
	}

	if err := g.Wait(); err != nil {
		uploaded := ids[:0]
		for _, id := range ids {
			if id != "" {
				uploaded = append(uploaded, id)
			}
		}
		return uploaded, err
	}
	return ids, nil
}

// cleanupTimeout bounds each best-effort cleanup call
const cleanupTimeout = 10 * time.Second

// cleanup removes a vendor resource left behind by a failed action. It runs even when ctx is
// already cancelled; a failure is logged and otherwise ignored.
func (a *OpenAIAssistant) cleanup(ctx context.Context, op, id string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		a.provider.Logger.Warn("failed to clean up after failed assistant action",
			"op", op,
			"id", id,
			"error", err)
	}
}

func (a *OpenAIAssistant) deleteFiles(ctx context.Context, fileIDs []string) {
	for _, id := range fileIDs {
		a.cleanup(ctx, "delete_file", id, func(ctx context.Context) error {
			return a.client.DeleteFile(ctx, id)
		})
	}
}

func (a *OpenAIAssistant) deleteVectorStore(ctx context.Context, storeID string) {
	a.cleanup(ctx, "delete_vector_store", storeID, func(ctx context.Context) error {
		_, err := a.client.DeleteVectorStore(ctx, storeID)
		return err
	})
}

func (a *OpenAIAssistant) waitForFileBatch(ctx context.Context, storeID string, batch openai.VectorStoreFileBatch) error {
	return a.poll(ctx, "file_batch", func(ctx context.Context) (bool, error) {
		switch batch.Status {
		case "completed":
			return true, nil
		case "failed", "cancelled":
			return false, fmt.Errorf("file batch %s ended with status %s", batch.ID, batch.Status)
		}

		var err error
		batch, err = a.client.RetrieveVectorStoreFileBatch(ctx, storeID, batch.ID)
		return false, err
	})
}

func (a *OpenAIAssistant) sendMessage(ctx context.Context, p prompt.Prompt, data *prompt.AssistantData) (*prompt.Response, error) {
	if err := validation.RequireString("message", p.UserMessage); err != nil {
		return nil, err
	}

	if a.threadID == "" {
		thread, err := a.newThread(ctx, a.assistantModel)
		if err != nil {
			return nil, err
		}
		a.threadID = thread
	}

	request := openai.MessageRequest{
		Role:    string(prompt.RoleUser),
		Content: p.UserMessage,
	}
	var attached []string
	if len(data.FilePaths) > 0 {
		collected, err := files.Collect(data.FilePaths)
		if err != nil {
			return nil, err
		}
		fileIDs, err := a.uploadFiles(ctx, collected)
		if err != nil {
			a.deleteFiles(ctx, fileIDs)
			return nil, err
		}
		attached = fileIDs
		for _, id := range fileIDs {
			request.Attachments = append(request.Attachments, openai.ThreadAttachment{
				FileID: id,
				Tools:  []openai.ThreadAttachmentTool{{Type: string(openai.AssistantToolTypeFileSearch)}},
			})
		}
	}

	err := a.provider.Call(ctx, a.assistantModel, "create_message", func(ctx context.Context) error {
		_, callErr := a.client.CreateMessage(ctx, a.threadID, request)
		return callErr
	})
	if err != nil {
		a.deleteFiles(ctx, attached)
		return nil, err
	}

	var run openai.Run
	err = a.provider.Call(ctx, a.assistantModel, "create_run", func(ctx context.Context) error {
		var callErr error
		run, callErr = a.client.CreateRun(ctx, a.threadID, openai.RunRequest{AssistantID: a.assistantID})
		return callErr
	})
	if err != nil {
		return nil, err
	}

	run, err = a.waitForRun(ctx, run)
	if err != nil {
		return nil, err
	}

	order := "desc"
	var list openai.MessagesList
	err = a.provider.Call(ctx, a.assistantModel, "list_messages", func(ctx context.Context) error {
		var callErr error
		list, callErr = a.client.ListMessage(ctx, a.threadID, nil, &order, nil, nil, &run.ID)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	reply, createdAt, err := latestReply(list)
	if err != nil {
		return nil, errdefs.NewProviderCallError(a.provider.Name(), "list_messages", err)
	}

	meta := prompt.ResponseMetadata{
		Tool:             a.tool.Tool,
		Provider:         a.provider.Name(),
		Model:            a.assistantModel,
		PromptTokens:     run.Usage.PromptTokens,
		CompletionTokens: run.Usage.CompletionTokens,
		CompletedAt:      createdAt,
	}
	fillUsage(a.encoders, &meta, p, reply)

	return &prompt.Response{Message: reply, Metadata: meta}, nil
}

// waitForRun polls the run until it reaches a terminal status or the poll timeout passes
func (a *OpenAIAssistant) waitForRun(ctx context.Context, run openai.Run) (openai.Run, error) {
	err := a.poll(ctx, "run", func(ctx context.Context) (bool, error) {
		switch run.Status {
		case openai.RunStatusCompleted:
			return true, nil
		case openai.RunStatusFailed, openai.RunStatusCancelled, openai.RunStatusExpired,
			openai.RunStatusIncomplete, openai.RunStatusRequiresAction:
			reason := string(run.Status)
			if run.LastError != nil && run.LastError.Message != "" {
				reason += ": " + run.LastError.Message
			}
			return false, fmt.Errorf("run %s ended with status %s", run.ID, reason)
		}

		var err error
		run, err = a.client.RetrieveRun(ctx, a.threadID, run.ID)
		return false, err
	})
	return run, err
}

// poll calls check every poll interval until it reports done, fails, or the timeout passes.
// Failures are reported as ProviderCallError for op.
func (a *OpenAIAssistant) poll(ctx context.Context, op string, check func(ctx context.Context) (bool, error)) error {
	limit := a.pollTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < limit {
			limit = remaining
		}
	}

	ctx, cancel := context.WithTimeout(ctx, a.pollTimeout)
	defer cancel()

	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for {
		done, err := check(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = ctxErr
			}
			return errdefs.NewProviderCallError(a.provider.Name(), op, err)
		}
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return errdefs.NewProviderCallError(a.provider.Name(), op,
				fmt.Errorf("gave up waiting after %s: %w", limit.Round(time.Millisecond), ctx.Err()))
		case <-ticker.C:
		}
	}
}

func latestReply(list openai.MessagesList) (string, time.Time, error) {
	for _, message := range list.Messages {
		if message.Role != string(prompt.RoleAssistant) {
			continue
		}
		for _, content := range message.Content {
			if content.Text != nil {
				return content.Text.Value, time.Unix(int64(message.CreatedAt), 0), nil
			}
		}
	}
	return "", time.Time{}, errors.New("run produced no assistant text")
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func sameFloat(current *float32, requested float64) bool {
	return current != nil && *current == float32(requested)
}

func formatFloat(v *float32) string {
	if v == nil {
		return "unset"
	}
	return fmt.Sprintf("%v", *v)
}

func responseFormatName(format any) string {
	switch f := format.(type) {
	case string:
		if f == "auto" {
			return string(prompt.FormatText)
		}
		return f
	case map[string]any:
		if t, ok := f["type"].(string); ok {
			return t
		}
	}
	return string(prompt.FormatText)
}
