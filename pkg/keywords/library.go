package keywords

import "github.com/snow-ghost/robotai/pkg/logging"

// Library bundles the keyword modules sharing one dispatcher
type Library struct {
	Chatbot   *Chatbot
	Assistant *Assistant
	TestData  *TestDataGenerator
}

// NewLibrary creates every keyword module on top of dispatcher
func NewLibrary(dispatcher Dispatcher, logger *logging.Logger) *Library {
	return &Library{
		Chatbot:   NewChatbot(dispatcher, logger),
		Assistant: NewAssistant(dispatcher, logger),
		TestData:  NewTestDataGenerator(dispatcher, logger),
	}
}
