package httpserver

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/snow-ghost/robotai/pkg/keywords"
)

// keywordFunc runs one keyword with its JSON encoded arguments
type keywordFunc func(ctx context.Context, args json.RawMessage) (interface{}, error)

type providerArgs struct {
	Provider string `json:"provider,omitempty"`
}

type idArgs struct {
	Provider string `json:"provider,omitempty"`
	ID       string `json:"id"`
}

type attachArgs struct {
	Provider  string   `json:"provider,omitempty"`
	FilePaths []string `json:"file_paths"`
}

// decode unmarshals args into T; an empty body decodes to the zero value
func decode[T any](args json.RawMessage) (T, error) {
	var v T
	if len(args) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(args, &v); err != nil {
		return v, &decodeError{err: err}
	}
	return v, nil
}

type decodeError struct {
	err error
}

func (e *decodeError) Error() string {
	return "invalid keyword arguments: " + e.err.Error()
}

func (e *decodeError) Unwrap() error {
	return e.err
}

// keywordTable builds the keyword set of lib
func keywordTable(lib *keywords.Library) map[string]keywordFunc {
	return map[string]keywordFunc{
		"generate_response": func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
			args, err := decode[keywords.GenerateArgs](raw)
			if err != nil {
				return nil, err
			}
			return lib.Chatbot.GenerateResponse(ctx, args)
		},
		"create_assistant": func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
			args, err := decode[keywords.AssistantArgs](raw)
			if err != nil {
				return nil, err
			}
			return lib.Assistant.CreateAssistant(ctx, args)
		},
		"update_assistant": func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
			args, err := decode[keywords.AssistantArgs](raw)
			if err != nil {
				return nil, err
			}
			return lib.Assistant.UpdateAssistant(ctx, args)
		},
		"send_message": func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
			args, err := decode[keywords.MessageArgs](raw)
			if err != nil {
				return nil, err
			}
			return lib.Assistant.SendMessage(ctx, args)
		},
		"attach_files": func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
			args, err := decode[attachArgs](raw)
			if err != nil {
				return nil, err
			}
			return lib.Assistant.AttachFiles(ctx, args.Provider, args.FilePaths)
		},
		"get_active_assistant_id": func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
			args, err := decode[providerArgs](raw)
			if err != nil {
				return nil, err
			}
			return lib.Assistant.GetActiveAssistantID(ctx, args.Provider)
		},
		"create_new_thread": func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
			args, err := decode[providerArgs](raw)
			if err != nil {
				return nil, err
			}
			return lib.Assistant.CreateNewThread(ctx, args.Provider)
		},
		"delete_assistant": func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
			args, err := decode[providerArgs](raw)
			if err != nil {
				return nil, err
			}
			return lib.Assistant.DeleteAssistant(ctx, args.Provider)
		},
		"set_active_assistant": func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
			args, err := decode[idArgs](raw)
			if err != nil {
				return nil, err
			}
			return lib.Assistant.SetActiveAssistant(ctx, args.Provider, args.ID)
		},
		"delete_assistant_by_id": func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
			args, err := decode[idArgs](raw)
			if err != nil {
				return nil, err
			}
			return lib.Assistant.DeleteAssistantByID(ctx, args.Provider, args.ID)
		},
		"generate_test_data": func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
			args, err := decode[keywords.TestDataArgs](raw)
			if err != nil {
				return nil, err
			}
			return lib.TestData.GenerateTestData(ctx, args)
		},
	}
}

func keywordNames(table map[string]keywordFunc) []string {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
