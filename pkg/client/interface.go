package client

import (
	"context"

	"github.com/snow-ghost/robotai/pkg/keywords"
)

// KeywordClient defines the keyword operations available remotely
type KeywordClient interface {
	GenerateResponse(ctx context.Context, args keywords.GenerateArgs) (string, error)
	CreateAssistant(ctx context.Context, args keywords.AssistantArgs) (string, error)
	UpdateAssistant(ctx context.Context, args keywords.AssistantArgs) (string, error)
	SendMessage(ctx context.Context, args keywords.MessageArgs) (string, error)
	AttachFiles(ctx context.Context, provider string, paths []string) (string, error)
	GetActiveAssistantID(ctx context.Context, provider string) (string, error)
	SetActiveAssistant(ctx context.Context, provider, id string) (string, error)
	CreateNewThread(ctx context.Context, provider string) (string, error)
	DeleteAssistant(ctx context.Context, provider string) (string, error)
	DeleteAssistantByID(ctx context.Context, provider, id string) (string, error)
	GenerateTestData(ctx context.Context, args keywords.TestDataArgs) ([]string, error)

	// Health checks if the service is healthy
	Health(ctx context.Context) error
}

// Ensure Client implements KeywordClient interface
var _ KeywordClient = (*Client)(nil)
