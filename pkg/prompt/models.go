package prompt

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/snow-ghost/robotai/pkg/errdefs"
)

// ToolType names a capability offered by a provider
type ToolType string

const (
	ToolTextGenerator ToolType = "text_generator"
	ToolAssistant     ToolType = "assistant"
)

// Role is the author of a chat turn
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ResponseFormat is a structured-output hint passed to the vendor
type ResponseFormat string

const (
	FormatDefault ResponseFormat = ""
	FormatText    ResponseFormat = "text"
	FormatJSON    ResponseFormat = "json_object"
)

// ParseResponseFormat accepts the spellings callers use for the output hint
func ParseResponseFormat(s string) (ResponseFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return FormatDefault, nil
	case "text", "plain":
		return FormatText, nil
	case "json", "json_object":
		return FormatJSON, nil
	default:
		return FormatDefault, errdefs.NewValidationError(errdefs.Violation{
			Field:  "response_format",
			Value:  s,
			Reason: "Value must be one of: text, json_object.",
		})
	}
}

// Message is one turn of a conversation
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Parameters holds the sampling parameters of a request; nil means not sent
type Parameters struct {
	MaxTokens        *int     `json:"max_tokens,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	TopP             *float64 `json:"top_p,omitempty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty"`
}

// Config selects the provider, model and output format of a prompt
type Config struct {
	Provider       string         `json:"provider"`
	Model          string         `json:"model,omitempty"` // empty selects the tool default
	ResponseFormat ResponseFormat `json:"response_format,omitempty"`
}

// Metadata records where and when a prompt was built
type Metadata struct {
	Origin    string    `json:"origin"`
	RequestID string    `json:"request_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewMetadata stamps a prompt built by origin
func NewMetadata(origin string) Metadata {
	return Metadata{
		Origin:    origin,
		CreatedAt: time.Now(),
	}
}

// ToolData is the tool-specific payload of a prompt
type ToolData interface {
	Tool() ToolType
}

// Prompt is the request envelope crossing the dispatch boundary.
// Handlers receive it by value and must not modify the slices it carries.
type Prompt struct {
	Tool          ToolType   `json:"tool"`
	Config        Config     `json:"config"`
	SystemMessage string     `json:"system_message,omitempty"`
	UserMessage   string     `json:"user_message,omitempty"`
	History       []Message  `json:"history,omitempty"`
	Parameters    Parameters `json:"parameters"`
	Data          ToolData   `json:"tool_data,omitempty"`
	Metadata      Metadata   `json:"metadata"`
}

// Validate checks the envelope invariants
func (p Prompt) Validate() error {
	var violations []errdefs.Violation

	if p.Tool == "" {
		violations = append(violations, errdefs.Violation{Field: "tool", Value: p.Tool, Reason: "Value can not be empty."})
	}
	if p.Config.Provider == "" {
		violations = append(violations, errdefs.Violation{Field: "provider", Value: p.Config.Provider, Reason: "Value can not be empty."})
	}

	switch {
	case p.Data == nil && p.Tool == ToolAssistant:
		violations = append(violations, errdefs.Violation{Field: "tool_data", Value: nil, Reason: "Assistant prompts require assistant data."})
	case p.Data != nil && p.Data.Tool() != p.Tool:
		violations = append(violations, errdefs.Violation{
			Field:  "tool_data",
			Value:  p.Data.Tool(),
			Reason: fmt.Sprintf("Tool data does not match tool `%s`.", p.Tool),
		})
	}

	if len(violations) > 0 {
		return errdefs.NewValidationError(violations...)
	}
	return nil
}

// Messages returns the ordered conversation: system first, then history, then the user message
func (p Prompt) Messages() []Message {
	messages := make([]Message, 0, len(p.History)+2)
	if p.SystemMessage != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: p.SystemMessage})
	}
	messages = append(messages, p.History...)
	if p.UserMessage != "" {
		messages = append(messages, Message{Role: RoleUser, Content: p.UserMessage})
	}
	return messages
}

// Action is one operation of the assistant tool
type Action string

const (
	ActionCreateAssistant      Action = "create_assistant"
	ActionUpdateAssistant      Action = "update_assistant"
	ActionDeleteAssistant      Action = "delete_assistant"
	ActionDeleteAssistantByID  Action = "delete_assistant_by_id"
	ActionAttachFiles          Action = "attach_files"
	ActionSendMessage          Action = "send_message"
	ActionGetActiveAssistantID Action = "get_active_assistant_id"
	ActionCreateNewThread      Action = "create_new_thread"
	ActionSetActiveAssistant   Action = "set_active_assistant"
)

var actions = map[Action]struct{}{
	ActionCreateAssistant:      {},
	ActionUpdateAssistant:      {},
	ActionDeleteAssistant:      {},
	ActionDeleteAssistantByID:  {},
	ActionAttachFiles:          {},
	ActionSendMessage:          {},
	ActionGetActiveAssistantID: {},
	ActionCreateNewThread:      {},
	ActionSetActiveAssistant:   {},
}

// Actions returns every valid assistant action, sorted
func Actions() []string {
	names := make([]string, 0, len(actions))
	for a := range actions {
		names = append(names, string(a))
	}
	sort.Strings(names)
	return names
}

// ParseAction maps an external action name onto the closed action set
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if _, ok := actions[a]; !ok {
		return "", &errdefs.UnknownActionError{Action: s, Valid: Actions()}
	}
	return a, nil
}

// RequiresActiveAssistant reports whether the action can only run against an active assistant
func (a Action) RequiresActiveAssistant() bool {
	switch a {
	case ActionCreateAssistant, ActionSetActiveAssistant, ActionDeleteAssistantByID:
		return false
	default:
		return true
	}
}

// AssistantData is the tool data of assistant prompts
type AssistantData struct {
	Action       Action   `json:"action"`
	ID           string   `json:"id,omitempty"`
	Name         string   `json:"name,omitempty"`
	Instructions string   `json:"instructions,omitempty"`
	FilePaths    []string `json:"file_paths,omitempty"`
}

// Tool implements ToolData
func (d *AssistantData) Tool() ToolType {
	return ToolAssistant
}

// Response is the result envelope of a successful dispatch
type Response struct {
	Message  string           `json:"message"`
	Metadata ResponseMetadata `json:"metadata"`
}

// ResponseMetadata describes how a response was produced
type ResponseMetadata struct {
	Tool             ToolType  `json:"tool"`
	Provider         string    `json:"provider"`
	Model            string    `json:"model,omitempty"`
	FinishReason     *string   `json:"finish_reason"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	CompletedAt      time.Time `json:"completed_at"`
}

// TotalTokens returns prompt plus completion tokens
func (m ResponseMetadata) TotalTokens() int {
	return m.PromptTokens + m.CompletionTokens
}

// FinishReason returns a pointer for ResponseMetadata.FinishReason, nil for an empty reason
func FinishReason(reason string) *string {
	if reason == "" {
		return nil
	}
	return &reason
}

// Int returns a pointer to v
func Int(v int) *int {
	return &v
}

// Bool returns a pointer to v
func Bool(v bool) *bool {
	return &v
}

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}
