package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snow-ghost/robotai/pkg/errdefs"
)

func TestParseResponseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want ResponseFormat
	}{
		{"", FormatDefault},
		{"text", FormatText},
		{"Plain", FormatText},
		{"json", FormatJSON},
		{" json_object ", FormatJSON},
	}
	for _, tt := range tests {
		got, err := ParseResponseFormat(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseResponseFormat("yaml")
	var validationErr *errdefs.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, []string{"response_format"}, validationErr.Fields())
}

func TestPromptValidate(t *testing.T) {
	valid := Prompt{Tool: ToolTextGenerator, Config: Config{Provider: "openai"}}
	assert.NoError(t, valid.Validate())

	err := Prompt{}.Validate()
	var validationErr *errdefs.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, []string{"tool", "provider"}, validationErr.Fields())

	err = Prompt{Tool: ToolAssistant, Config: Config{Provider: "openai"}}.Validate()
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, []string{"tool_data"}, validationErr.Fields())

	err = Prompt{
		Tool:   ToolTextGenerator,
		Config: Config{Provider: "openai"},
		Data:   &AssistantData{Action: ActionSendMessage},
	}.Validate()
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, []string{"tool_data"}, validationErr.Fields())
}

func TestPromptMessages(t *testing.T) {
	p := Prompt{
		SystemMessage: "be brief",
		History: []Message{
			{Role: RoleUser, Content: "hi"},
			{Role: RoleAssistant, Content: "hello"},
		},
		UserMessage: "how are you?",
	}

	assert.Equal(t, []Message{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
		{Role: RoleUser, Content: "how are you?"},
	}, p.Messages())

	assert.Empty(t, Prompt{}.Messages())
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction("send_message")
	require.NoError(t, err)
	assert.Equal(t, ActionSendMessage, a)
	assert.True(t, a.RequiresActiveAssistant())

	for _, name := range []Action{ActionCreateAssistant, ActionSetActiveAssistant, ActionDeleteAssistantByID} {
		assert.False(t, name.RequiresActiveAssistant(), name)
	}

	_, err = ParseAction("summon_assistant")
	var actionErr *errdefs.UnknownActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Len(t, actionErr.Valid, 9)
	assert.Equal(t, Actions(), actionErr.Valid)
}

func TestResponseMetadataHelpers(t *testing.T) {
	assert.Nil(t, FinishReason(""))
	assert.Equal(t, "stop", *FinishReason("stop"))
	assert.Equal(t, 15, ResponseMetadata{PromptTokens: 10, CompletionTokens: 5}.TotalTokens())
	assert.Equal(t, ToolAssistant, (&AssistantData{}).Tool())
}
