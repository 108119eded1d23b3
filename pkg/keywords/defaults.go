// Package keywords exposes the LLM keywords: chat responses, assistant management and
// test data generation. Each module owns its staged defaults; explicit arguments win.
package keywords

import (
	"context"

	"github.com/google/uuid"

	"github.com/snow-ghost/robotai/pkg/logging"
	"github.com/snow-ghost/robotai/pkg/prompt"
	"github.com/snow-ghost/robotai/pkg/validation"
)

// Dispatcher routes prompts to providers
type Dispatcher interface {
	Dispatch(ctx context.Context, p prompt.Prompt) (*prompt.Response, error)
}

// Defaults are the values a module uses for arguments a call leaves unset
type Defaults struct {
	Provider       string
	Model          string
	ResponseFormat string
	Parameters     prompt.Parameters

	// chatbot
	SystemMessage string
	KeepHistory   bool

	// assistant
	Name         string
	Instructions string
	ID           string
}

// DefaultDefaults returns the documented keyword defaults
func DefaultDefaults() Defaults {
	return Defaults{
		Parameters: prompt.Parameters{
			MaxTokens:        prompt.Int(256),
			Temperature:      prompt.Float(1),
			TopP:             prompt.Float(0.5),
			FrequencyPenalty: prompt.Float(0),
			PresencePenalty:  prompt.Float(0),
		},
	}
}

// WithProvider stages the provider used when a call names none
func (d Defaults) WithProvider(provider string) Defaults {
	d.Provider = provider
	return d
}

// WithModel stages the model; empty selects the tool's default model
func (d Defaults) WithModel(model string) Defaults {
	d.Model = model
	return d
}

// WithResponseFormat stages the output hint ("text" or "json")
func (d Defaults) WithResponseFormat(format string) Defaults {
	d.ResponseFormat = format
	return d
}

// WithMaxTokens stages max_tokens
func (d Defaults) WithMaxTokens(v int) Defaults {
	d.Parameters.MaxTokens = prompt.Int(v)
	return d
}

// WithTemperature stages temperature
func (d Defaults) WithTemperature(v float64) Defaults {
	d.Parameters.Temperature = prompt.Float(v)
	return d
}

// WithTopP stages top_p
func (d Defaults) WithTopP(v float64) Defaults {
	d.Parameters.TopP = prompt.Float(v)
	return d
}

// WithFrequencyPenalty stages frequency_penalty
func (d Defaults) WithFrequencyPenalty(v float64) Defaults {
	d.Parameters.FrequencyPenalty = prompt.Float(v)
	return d
}

// WithPresencePenalty stages presence_penalty
func (d Defaults) WithPresencePenalty(v float64) Defaults {
	d.Parameters.PresencePenalty = prompt.Float(v)
	return d
}

// WithSystemMessage stages the chatbot's system message
func (d Defaults) WithSystemMessage(message string) Defaults {
	d.SystemMessage = message
	return d
}

// WithKeepHistory stages whether the chatbot replays its stored conversation
func (d Defaults) WithKeepHistory(keep bool) Defaults {
	d.KeepHistory = keep
	return d
}

// WithName stages the assistant name used by CreateAssistant
func (d Defaults) WithName(name string) Defaults {
	d.Name = name
	return d
}

// WithInstructions stages the assistant instructions used by CreateAssistant
func (d Defaults) WithInstructions(instructions string) Defaults {
	d.Instructions = instructions
	return d
}

// WithID stages the assistant id used by SetActiveAssistant and DeleteAssistantByID
func (d Defaults) WithID(id string) Defaults {
	d.ID = id
	return d
}

// Common are the arguments shared by every keyword
type Common struct {
	Provider       string `json:"provider,omitempty"`
	Model          string `json:"model,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
	prompt.Parameters
}

type resolved struct {
	provider string
	model    string
	format   prompt.ResponseFormat
	params   prompt.Parameters
}

// resolve merges call arguments over the defaults and validates the result
func (d Defaults) resolve(c Common) (resolved, error) {
	r := resolved{
		provider: firstNonEmpty(c.Provider, d.Provider),
		model:    firstNonEmpty(c.Model, d.Model),
		params:   mergeParameters(c.Parameters, d.Parameters),
	}

	format, formatErr := prompt.ParseResponseFormat(firstNonEmpty(c.ResponseFormat, d.ResponseFormat))
	r.format = format

	err := validation.Collect(
		validation.RequireString("provider", r.provider),
		formatErr,
		validation.ValidateParameters(r.params),
	)
	return r, err
}

func mergeParameters(explicit, defaults prompt.Parameters) prompt.Parameters {
	merged := defaults
	if explicit.MaxTokens != nil {
		merged.MaxTokens = explicit.MaxTokens
	}
	if explicit.Temperature != nil {
		merged.Temperature = explicit.Temperature
	}
	if explicit.TopP != nil {
		merged.TopP = explicit.TopP
	}
	if explicit.FrequencyPenalty != nil {
		merged.FrequencyPenalty = explicit.FrequencyPenalty
	}
	if explicit.PresencePenalty != nil {
		merged.PresencePenalty = explicit.PresencePenalty
	}
	return merged
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func newMetadata(origin string) prompt.Metadata {
	meta := prompt.NewMetadata(origin)
	meta.RequestID = uuid.NewString()
	return meta
}

// fail logs a keyword error and returns it unchanged
func fail(logger *logging.Logger, keyword string, err error) error {
	logger.Error("keyword failed", "keyword", keyword, "error", err)
	return err
}
