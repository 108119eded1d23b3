package keywords

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snow-ghost/robotai/pkg/errdefs"
	"github.com/snow-ghost/robotai/pkg/prompt"
)

func TestGenerateResponseUsesDefaults(t *testing.T) {
	dispatcher := &fakeDispatcher{replies: []string{"Hello!"}}
	chatbot := NewChatbot(dispatcher, nil)
	chatbot.SetDefaults(chatbot.Defaults().WithProvider("openai").WithModel("gpt-4o-mini"))

	reply, err := chatbot.GenerateResponse(context.Background(), GenerateArgs{Message: "Hi", SystemMessage: "be kind"})
	require.NoError(t, err)
	assert.Equal(t, "Hello!", reply)

	p := dispatcher.last()
	assert.Equal(t, prompt.ToolTextGenerator, p.Tool)
	assert.Equal(t, "openai", p.Config.Provider)
	assert.Equal(t, "gpt-4o-mini", p.Config.Model)
	assert.Equal(t, "be kind", p.SystemMessage)
	assert.Equal(t, "Hi", p.UserMessage)
	assert.Equal(t, "chatbot", p.Metadata.Origin)
	assert.NotEmpty(t, p.Metadata.RequestID)
	assert.Equal(t, 256, *p.Parameters.MaxTokens)
	assert.Equal(t, 1.0, *p.Parameters.Temperature)
	assert.Equal(t, 0.5, *p.Parameters.TopP)
}

func TestGenerateResponseExplicitArgumentsWin(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	chatbot := NewChatbot(dispatcher, nil)
	chatbot.SetDefaults(chatbot.Defaults().WithProvider("openai").WithTemperature(0.3))

	_, err := chatbot.GenerateResponse(context.Background(), GenerateArgs{
		Common: Common{
			Provider:       "anthropic",
			ResponseFormat: "json",
			Parameters:     prompt.Parameters{Temperature: prompt.Float(0), MaxTokens: prompt.Int(10)},
		},
		Message: "Hi",
	})
	require.NoError(t, err)

	p := dispatcher.last()
	assert.Equal(t, "anthropic", p.Config.Provider)
	assert.Equal(t, prompt.FormatJSON, p.Config.ResponseFormat)
	assert.Equal(t, 0.0, *p.Parameters.Temperature)
	assert.Equal(t, 10, *p.Parameters.MaxTokens)
	assert.Equal(t, 0.5, *p.Parameters.TopP)

	// staged defaults are untouched by explicit arguments
	assert.Equal(t, 0.3, *chatbot.Defaults().Parameters.Temperature)
}

func TestGenerateResponseKeepHistory(t *testing.T) {
	dispatcher := &fakeDispatcher{replies: []string{"first reply", "second reply", "fresh reply"}}
	chatbot := NewChatbot(dispatcher, nil)
	chatbot.SetDefaults(chatbot.Defaults().WithProvider("openai"))

	_, err := chatbot.GenerateResponse(context.Background(), GenerateArgs{Message: "one", KeepHistory: prompt.Bool(true)})
	require.NoError(t, err)
	assert.Empty(t, dispatcher.last().History)

	_, err = chatbot.GenerateResponse(context.Background(), GenerateArgs{Message: "two", KeepHistory: prompt.Bool(true)})
	require.NoError(t, err)
	assert.Equal(t, []prompt.Message{
		{Role: prompt.RoleUser, Content: "one"},
		{Role: prompt.RoleAssistant, Content: "first reply"},
	}, dispatcher.last().History)
	assert.Len(t, chatbot.History("openai"), 4)

	// without keep_history the conversation starts over but the exchange is still recorded
	_, err = chatbot.GenerateResponse(context.Background(), GenerateArgs{Message: "three"})
	require.NoError(t, err)
	assert.Empty(t, dispatcher.last().History)
	assert.Equal(t, []prompt.Message{
		{Role: prompt.RoleUser, Content: "three"},
		{Role: prompt.RoleAssistant, Content: "fresh reply"},
	}, chatbot.History("openai"))

	chatbot.ResetHistory("openai")
	assert.Empty(t, chatbot.History("openai"))
}

func TestGenerateResponseHistoryIsPerProvider(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	chatbot := NewChatbot(dispatcher, nil)

	_, err := chatbot.GenerateResponse(context.Background(), GenerateArgs{Common: Common{Provider: "openai"}, Message: "a", KeepHistory: prompt.Bool(true)})
	require.NoError(t, err)
	_, err = chatbot.GenerateResponse(context.Background(), GenerateArgs{Common: Common{Provider: "gemini"}, Message: "b", KeepHistory: prompt.Bool(true)})
	require.NoError(t, err)

	assert.Empty(t, dispatcher.last().History)
	assert.Len(t, chatbot.History("openai"), 2)
	assert.Len(t, chatbot.History("gemini"), 2)
}

func TestGenerateResponseValidation(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	chatbot := NewChatbot(dispatcher, nil)

	_, err := chatbot.GenerateResponse(context.Background(), GenerateArgs{
		Common: Common{
			ResponseFormat: "yaml",
			Parameters:     prompt.Parameters{Temperature: prompt.Float(3), TopP: prompt.Float(2)},
		},
	})
	require.Error(t, err)

	var validationErr *errdefs.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, []string{"response_format", "temperature", "top_p"}, validationErr.Fields())

	var missing *errdefs.MissingArgumentError
	assert.ErrorAs(t, err, &missing)
	assert.Zero(t, dispatcher.count())
}

func TestGenerateResponseFailureIsNotRecorded(t *testing.T) {
	boom := errors.New("vendor down")
	dispatcher := &fakeDispatcher{err: boom}
	chatbot := NewChatbot(dispatcher, nil)

	_, err := chatbot.GenerateResponse(context.Background(), GenerateArgs{Common: Common{Provider: "openai"}, Message: "hi", KeepHistory: prompt.Bool(true)})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, chatbot.History("openai"))
}

func TestGenerateResponseFailedCallKeepsStoredHistory(t *testing.T) {
	dispatcher := &fakeDispatcher{replies: []string{"first reply"}}
	chatbot := NewChatbot(dispatcher, nil)
	chatbot.SetDefaults(chatbot.Defaults().WithProvider("openai"))

	_, err := chatbot.GenerateResponse(context.Background(), GenerateArgs{Message: "one", KeepHistory: prompt.Bool(true)})
	require.NoError(t, err)
	require.Len(t, chatbot.History("openai"), 2)

	dispatcher.err = errors.New("vendor down")
	_, err = chatbot.GenerateResponse(context.Background(), GenerateArgs{Message: "two", KeepHistory: prompt.Bool(false)})
	require.Error(t, err)

	assert.Equal(t, []prompt.Message{
		{Role: prompt.RoleUser, Content: "one"},
		{Role: prompt.RoleAssistant, Content: "first reply"},
	}, chatbot.History("openai"))
}

func TestGenerateResponseStagedSystemMessageAndKeepHistory(t *testing.T) {
	dispatcher := &fakeDispatcher{replies: []string{"first reply", "second reply", "third reply"}}
	chatbot := NewChatbot(dispatcher, nil)
	chatbot.SetDefaults(chatbot.Defaults().
		WithProvider("openai").
		WithSystemMessage("You are a helpful assistant.").
		WithKeepHistory(true))

	_, err := chatbot.GenerateResponse(context.Background(), GenerateArgs{Message: "one"})
	require.NoError(t, err)
	assert.Equal(t, "You are a helpful assistant.", dispatcher.last().SystemMessage)

	_, err = chatbot.GenerateResponse(context.Background(), GenerateArgs{Message: "two"})
	require.NoError(t, err)
	assert.Len(t, dispatcher.last().History, 2)

	// explicit arguments override the staged values
	_, err = chatbot.GenerateResponse(context.Background(), GenerateArgs{
		Message:       "three",
		SystemMessage: "Answer in French.",
		KeepHistory:   prompt.Bool(false),
	})
	require.NoError(t, err)
	assert.Equal(t, "Answer in French.", dispatcher.last().SystemMessage)
	assert.Empty(t, dispatcher.last().History)
	assert.Len(t, chatbot.History("openai"), 2)
}

func TestSetHistorySeedsConversation(t *testing.T) {
	dispatcher := &fakeDispatcher{replies: []string{"It is 4."}}
	chatbot := NewChatbot(dispatcher, nil)
	chatbot.SetDefaults(chatbot.Defaults().WithProvider("openai"))

	seed := []prompt.Message{
		{Role: prompt.RoleUser, Content: "Remember the number 2."},
		{Role: prompt.RoleAssistant, Content: "Noted."},
	}
	chatbot.SetHistory("openai", seed)
	seed[0].Content = "mutated"

	_, err := chatbot.GenerateResponse(context.Background(), GenerateArgs{Message: "Double it.", KeepHistory: prompt.Bool(true)})
	require.NoError(t, err)

	history := dispatcher.last().History
	require.Len(t, history, 2)
	assert.Equal(t, "Remember the number 2.", history[0].Content)
	assert.Len(t, chatbot.History("openai"), 4)

	chatbot.SetHistory("openai", nil)
	assert.Empty(t, chatbot.History("openai"))
}
