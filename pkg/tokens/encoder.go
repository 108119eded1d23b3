package tokens

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Encoder counts the tokens of a text for a specific model
type Encoder interface {
	Count(text string) (int, error)
}

// TiktokenEncoder implements Encoder using tiktoken-go
type TiktokenEncoder struct {
	encoding *tiktoken.Tiktoken
}

// NewTiktokenEncoder creates a new tiktoken encoder
func NewTiktokenEncoder(encodingName string) (*TiktokenEncoder, error) {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to get encoding %s: %w", encodingName, err)
	}

	return &TiktokenEncoder{
		encoding: encoding,
	}, nil
}

// Count returns the number of tokens in text
func (e *TiktokenEncoder) Count(text string) (int, error) {
	return len(e.encoding.Encode(text, nil, nil)), nil
}

// MockEncoder implements Encoder with simple character-based counting
type MockEncoder struct{}

// NewMockEncoder creates a new mock encoder
func NewMockEncoder() *MockEncoder {
	return &MockEncoder{}
}

// Count returns the number of tokens in text (~4 characters per token, at least one)
func (e *MockEncoder) Count(text string) (int, error) {
	count := len(text) / 4
	if count < 1 {
		count = 1
	}
	return count, nil
}

// EncoderRegistry manages model-to-encoder mappings
type EncoderRegistry struct {
	encoders map[string]Encoder
	fallback Encoder
}

// NewEncoderRegistry creates a registry that only knows the fallback encoder
func NewEncoderRegistry() *EncoderRegistry {
	return &EncoderRegistry{
		encoders: make(map[string]Encoder),
		fallback: NewMockEncoder(),
	}
}

// RegisterEncoder registers an encoder for a model
func (r *EncoderRegistry) RegisterEncoder(modelID string, encoder Encoder) {
	r.encoders[modelID] = encoder
}

// GetEncoder returns the encoder for a model, or fallback if not found
func (r *EncoderRegistry) GetEncoder(modelID string) Encoder {
	if encoder, exists := r.encoders[modelID]; exists {
		return encoder
	}
	return r.fallback
}

// CountTokens counts tokens in text using the appropriate encoder
func (r *EncoderRegistry) CountTokens(modelID, text string) (int, error) {
	return r.GetEncoder(modelID).Count(text)
}

// EstimateUsage counts prompt and completion tokens for a call whose vendor reported none
func (r *EncoderRegistry) EstimateUsage(modelID string, inputs []string, output string) (promptTokens, completionTokens int) {
	encoder := r.GetEncoder(modelID)

	for _, text := range inputs {
		if count, err := encoder.Count(text); err == nil {
			promptTokens += count
		} else {
			promptTokens += len(text) / 4
		}
	}

	if count, err := encoder.Count(output); err == nil {
		completionTokens = count
	} else {
		completionTokens = len(output) / 4
	}

	return promptTokens, completionTokens
}

var (
	defaultRegistry     *EncoderRegistry
	defaultRegistryOnce sync.Once
)

// GetDefaultRegistry returns the shared registry with tiktoken encoders for known models.
// When the BPE ranks cannot be loaded every model falls back to the mock encoder.
func GetDefaultRegistry() *EncoderRegistry {
	defaultRegistryOnce.Do(func() {
		registry := NewEncoderRegistry()

		encoder, err := NewTiktokenEncoder("cl100k_base")
		if err == nil {
			models := []string{
				"gpt-3.5-turbo", "gpt-4o", "gpt-4o-mini",
				// cl100k_base approximates these
				"claude-3-5-sonnet-20241022", "claude-3-5-haiku-20241022",
				"gemini-1.5-flash", "gemini-1.5-pro",
			}
			for _, model := range models {
				registry.RegisterEncoder(model, encoder)
			}
		}

		defaultRegistry = registry
	})
	return defaultRegistry
}
