// Package client is a Go client for the keyword server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/snow-ghost/robotai/pkg/httpserver"
	"github.com/snow-ghost/robotai/pkg/keywords"
)

// Client represents an HTTP client for the keyword server
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Config holds client configuration
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewClient creates a new keyword server client. Requests are never retried.
func NewClient(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = 4 * time.Minute
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	return &Client{
		baseURL:    config.BaseURL,
		httpClient: httpClient,
	}
}

// HTTPError is returned for every non-2xx reply
type HTTPError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("keyword server returned status %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("keyword server returned status %d: %s", e.StatusCode, e.Message)
}

// Run executes a keyword and decodes its result into result
func (c *Client) Run(ctx context.Context, keyword string, args interface{}, result interface{}) error {
	reqData, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := c.baseURL + "/v1/keywords/" + url.PathEscape(keyword)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := c.do(httpReq, &envelope); err != nil {
		return err
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, result); err != nil {
		return fmt.Errorf("failed to decode result: %w", err)
	}
	return nil
}

func (c *Client) runString(ctx context.Context, keyword string, args interface{}) (string, error) {
	var result string
	if err := c.Run(ctx, keyword, args, &result); err != nil {
		return "", err
	}
	return result, nil
}

// GenerateResponse runs generate_response
func (c *Client) GenerateResponse(ctx context.Context, args keywords.GenerateArgs) (string, error) {
	return c.runString(ctx, "generate_response", args)
}

// CreateAssistant runs create_assistant
func (c *Client) CreateAssistant(ctx context.Context, args keywords.AssistantArgs) (string, error) {
	return c.runString(ctx, "create_assistant", args)
}

// UpdateAssistant runs update_assistant
func (c *Client) UpdateAssistant(ctx context.Context, args keywords.AssistantArgs) (string, error) {
	return c.runString(ctx, "update_assistant", args)
}

// SendMessage runs send_message
func (c *Client) SendMessage(ctx context.Context, args keywords.MessageArgs) (string, error) {
	return c.runString(ctx, "send_message", args)
}

// AttachFiles runs attach_files
func (c *Client) AttachFiles(ctx context.Context, provider string, paths []string) (string, error) {
	return c.runString(ctx, "attach_files", map[string]interface{}{"provider": provider, "file_paths": paths})
}

// GetActiveAssistantID runs get_active_assistant_id
func (c *Client) GetActiveAssistantID(ctx context.Context, provider string) (string, error) {
	return c.runString(ctx, "get_active_assistant_id", map[string]string{"provider": provider})
}

// SetActiveAssistant runs set_active_assistant
func (c *Client) SetActiveAssistant(ctx context.Context, provider, id string) (string, error) {
	return c.runString(ctx, "set_active_assistant", map[string]string{"provider": provider, "id": id})
}

// CreateNewThread runs create_new_thread
func (c *Client) CreateNewThread(ctx context.Context, provider string) (string, error) {
	return c.runString(ctx, "create_new_thread", map[string]string{"provider": provider})
}

// DeleteAssistant runs delete_assistant
func (c *Client) DeleteAssistant(ctx context.Context, provider string) (string, error) {
	return c.runString(ctx, "delete_assistant", map[string]string{"provider": provider})
}

// DeleteAssistantByID runs delete_assistant_by_id
func (c *Client) DeleteAssistantByID(ctx context.Context, provider, id string) (string, error) {
	return c.runString(ctx, "delete_assistant_by_id", map[string]string{"provider": provider, "id": id})
}

// GenerateTestData runs generate_test_data
func (c *Client) GenerateTestData(ctx context.Context, args keywords.TestDataArgs) ([]string, error) {
	var result []string
	if err := c.Run(ctx, "generate_test_data", args, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Keywords lists the keywords offered by the server
func (c *Client) Keywords(ctx context.Context) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/keywords", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var resp httpserver.KeywordsResponse
	if err := c.do(httpReq, &resp); err != nil {
		return nil, err
	}
	return resp.Keywords, nil
}

// Providers lists the providers registered on the server
func (c *Client) Providers(ctx context.Context) ([]httpserver.ProviderInfo, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/providers", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var resp httpserver.ProvidersResponse
	if err := c.do(httpReq, &resp); err != nil {
		return nil, err
	}
	return resp.Providers, nil
}

// Health checks if the keyword server is healthy
func (c *Client) Health(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(httpReq, nil)
}

func (c *Client) do(httpReq *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		httpErr := &HTTPError{StatusCode: resp.StatusCode, Message: string(body)}

		var errResp httpserver.ErrorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			httpErr.Message = errResp.Error
			httpErr.Code = errResp.Code
		}
		return httpErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
