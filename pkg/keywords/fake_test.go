package keywords

import (
	"context"
	"sync"

	"github.com/snow-ghost/robotai/pkg/prompt"
)

// fakeDispatcher records prompts and answers from a queue of replies
type fakeDispatcher struct {
	mu      sync.Mutex
	prompts []prompt.Prompt
	replies []string
	err     error
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, p prompt.Prompt) (*prompt.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.prompts = append(f.prompts, p)
	if f.err != nil {
		return nil, f.err
	}

	reply := "ok"
	if len(f.replies) > 0 {
		reply, f.replies = f.replies[0], f.replies[1:]
	}
	return &prompt.Response{
		Message:  reply,
		Metadata: prompt.ResponseMetadata{Tool: p.Tool, Provider: p.Config.Provider, Model: p.Config.Model},
	}, nil
}

func (f *fakeDispatcher) last() prompt.Prompt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prompts[len(f.prompts)-1]
}

func (f *fakeDispatcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}
