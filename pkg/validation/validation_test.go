package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snow-ghost/robotai/pkg/errdefs"
	"github.com/snow-ghost/robotai/pkg/prompt"
)

func TestValidateParameters(t *testing.T) {
	tests := []struct {
		name   string
		params prompt.Parameters
		fields []string
	}{
		{name: "nothing set", params: prompt.Parameters{}},
		{
			name: "all at the boundaries",
			params: prompt.Parameters{
				MaxTokens:        prompt.Int(MaxTokensLimit),
				Temperature:      prompt.Float(2),
				TopP:             prompt.Float(0),
				FrequencyPenalty: prompt.Float(-2),
				PresencePenalty:  prompt.Float(2),
			},
		},
		{name: "zero max tokens", params: prompt.Parameters{MaxTokens: prompt.Int(0)}, fields: []string{"max_tokens"}},
		{name: "max tokens over the limit", params: prompt.Parameters{MaxTokens: prompt.Int(MaxTokensLimit + 1)}, fields: []string{"max_tokens"}},
		{name: "top_p above one", params: prompt.Parameters{TopP: prompt.Float(1.5)}, fields: []string{"top_p"}},
		{
			name: "every violation reported",
			params: prompt.Parameters{
				Temperature:      prompt.Float(-0.1),
				FrequencyPenalty: prompt.Float(2.5),
				PresencePenalty:  prompt.Float(-3),
			},
			fields: []string{"temperature", "frequency_penalty", "presence_penalty"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateParameters(tt.params)
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}
			var validationErr *errdefs.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.fields, validationErr.Fields())
		})
	}
}

func TestRange(t *testing.T) {
	assert.False(t, MaxTokensRange.Contains(0))
	assert.True(t, MaxTokensRange.Contains(1))
	assert.True(t, TemperatureRange.Contains(0))
	assert.Equal(t, "Value must be between 0 and 1 (inclusive).", TopPRange.Describe())
	assert.Equal(t, "Value must be greater than 0 and at most 4096.", MaxTokensRange.Describe())
}

func TestRequireString(t *testing.T) {
	assert.NoError(t, RequireString("message", "hi"))

	var missing *errdefs.MissingArgumentError
	require.ErrorAs(t, RequireString("model", ""), &missing)
	assert.Equal(t, "model", missing.Field)
	assert.Contains(t, missing.Error(), "supply `model` directly")
}

func TestRequirePaths(t *testing.T) {
	assert.NoError(t, RequirePaths("file_paths", []string{"", "a.txt"}))

	var missing *errdefs.MissingArgumentError
	assert.ErrorAs(t, RequirePaths("file_paths", nil), &missing)
	assert.ErrorAs(t, RequirePaths("file_paths", []string{""}), &missing)
}

func TestCollect(t *testing.T) {
	assert.NoError(t, Collect())
	assert.NoError(t, Collect(nil, nil))

	missing := errdefs.NewMissingArgumentError("provider", "")
	assert.Same(t, missing, Collect(nil, missing))

	err := Collect(
		errdefs.NewValidationError(errdefs.Violation{Field: "temperature"}),
		missing,
		errors.Join(errdefs.NewValidationError(errdefs.Violation{Field: "top_p"}), nil),
	)

	var validationErr *errdefs.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, []string{"temperature", "top_p"}, validationErr.Fields())

	var missingErr *errdefs.MissingArgumentError
	require.ErrorAs(t, err, &missingErr)
	assert.Equal(t, "provider", missingErr.Field)
}
