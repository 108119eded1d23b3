package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/snow-ghost/robotai/pkg/errdefs"
	"github.com/snow-ghost/robotai/pkg/metrics"
	"github.com/snow-ghost/robotai/pkg/prompt"
	"github.com/snow-ghost/robotai/pkg/providers"
	"github.com/snow-ghost/robotai/pkg/registry"
	"github.com/snow-ghost/robotai/pkg/tracing"
)

// replyHandler answers every prompt with a fixed reply and usage
type replyHandler struct {
	mu    sync.Mutex
	reply string
	err   error
	calls int
}

func (h *replyHandler) Handle(ctx context.Context, p prompt.Prompt, model string) (*prompt.Response, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	if h.err != nil {
		return nil, h.err
	}
	return &prompt.Response{
		Message: h.reply,
		Metadata: prompt.ResponseMetadata{
			Tool:             p.Tool,
			Provider:         p.Config.Provider,
			Model:            model,
			PromptTokens:     1000,
			CompletionTokens: 500,
		},
	}, nil
}

func testRegistry() *registry.Registry {
	return &registry.Registry{Providers: []registry.ProviderConfig{{
		Name: "acme",
		Tools: []registry.ToolConfig{
			{Name: "text_generator", Models: []string{"small", "large"}, DefaultModel: "small"},
			{Name: "assistant", Models: []string{"large"}, DefaultModel: "large"},
		},
		Pricing: map[string]registry.Pricing{
			"small": {Currency: "USD", InputPer1K: 0.001, OutputPer1K: 0.002},
		},
	}}}
}

func newTestServer(t *testing.T, handler *replyHandler) *httptest.Server {
	t.Helper()
	return newTracedTestServer(t, handler, nil)
}

func newTracedTestServer(t *testing.T, handler *replyHandler, tracer *tracing.Tracer) *httptest.Server {
	t.Helper()

	reg := testRegistry()
	adapter, err := providers.NewAdapter(reg.Providers[0], nil, map[prompt.ToolType]providers.ToolHandler{
		prompt.ToolTextGenerator: handler,
	})
	require.NoError(t, err)

	promReg := prometheus.NewRegistry()
	m := metrics.NewPrometheusMetrics(promReg)

	dispatcher := providers.NewDispatcher(providers.DispatcherConfig{Metrics: m, Tracer: tracer})
	require.NoError(t, dispatcher.Register(adapter))

	server := NewServer(Config{Dispatcher: dispatcher, Registry: reg, Metrics: m, Tracer: tracer})
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postKeyword(t *testing.T, ts *httptest.Server, name, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+"/v1/keywords/"+name, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readError(t *testing.T, resp *http.Response) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestGenerateResponseKeyword(t *testing.T) {
	ts := newTestServer(t, &replyHandler{reply: "pong"})

	resp := postKeyword(t, ts, "generate_response", `{"provider": "acme", "message": "ping"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "0.002000;currency=USD", resp.Header.Get("X-Cost-Total"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var body KeywordResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "pong", body.Result)
}

func TestGenerateTestDataKeyword(t *testing.T) {
	ts := newTestServer(t, &replyHandler{reply: `{"addresses": [{"address": "Main St 1"}]}`})

	resp := postKeyword(t, ts, "generate_test_data", `{"provider": "acme", "type": "address", "amount": 1}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Result []string `json:"result"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []string{"Main St 1"}, body.Result)
}

func TestKeywordErrors(t *testing.T) {
	tests := []struct {
		name       string
		keyword    string
		body       string
		handlerErr error
		status     int
		code       string
	}{
		{"unknown keyword", "summon_demon", `{}`, nil, http.StatusNotFound, "UNKNOWN_KEYWORD"},
		{"invalid json", "generate_response", `{"provider":`, nil, http.StatusBadRequest, "INVALID_JSON"},
		{"missing argument", "generate_response", `{"provider": "acme"}`, nil, http.StatusBadRequest, "MISSING_ARGUMENT"},
		{"validation", "generate_response", `{"provider": "acme", "message": "hi", "temperature": 3}`, nil, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"unknown provider", "generate_response", `{"provider": "nope", "message": "hi"}`, nil, http.StatusBadRequest, "UNKNOWN_PROVIDER"},
		{"unsupported model", "generate_response", `{"provider": "acme", "model": "huge", "message": "hi"}`, nil, http.StatusBadRequest, "UNSUPPORTED_MODEL"},
		{"unknown tool", "get_active_assistant_id", `{"provider": "acme"}`, nil, http.StatusBadRequest, "UNKNOWN_TOOL"},
		{"unparseable reply", "generate_test_data", `{"provider": "acme", "type": "address"}`, nil, http.StatusBadGateway, "RESPONSE_PARSE_FAILED"},
		{
			"vendor failure", "generate_response", `{"provider": "acme", "message": "hi"}`,
			errdefs.NewProviderCallError("acme", "chat", errors.New("connection reset")),
			http.StatusBadGateway, "PROVIDER_CALL_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, &replyHandler{reply: "not json", err: tt.handlerErr})

			resp := postKeyword(t, ts, tt.keyword, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Empty(t, resp.Header.Get("X-Cost-Total"))

			body := readError(t, resp)
			assert.Equal(t, tt.code, body.Code)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestOversizedBodyIsRejected(t *testing.T) {
	handler := &replyHandler{reply: "pong"}
	ts := newTestServer(t, handler)

	message := strings.Repeat("a", maxBodyBytes)
	resp := postKeyword(t, ts, "generate_response", `{"provider": "acme", "message": "`+message+`"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	body := readError(t, resp)
	assert.Equal(t, "BODY_TOO_LARGE", body.Code)

	handler.mu.Lock()
	defer handler.mu.Unlock()
	assert.Zero(t, handler.calls)
}

func TestKeywordSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { tp.Shutdown(context.Background()) })

	ts := newTracedTestServer(t, &replyHandler{err: errdefs.NewProviderCallError("acme", "chat", errors.New("connection reset"))},
		tracing.NewTracerFromProvider(tp, "httpserver-test"))

	resp := postKeyword(t, ts, "generate_response", `{"provider": "acme", "message": "hi"}`)
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	body := readError(t, resp)
	require.NotEmpty(t, body.TraceID)

	spans := recorder.Ended()
	names := make(map[string]string, len(spans))
	for _, span := range spans {
		names[span.Name()] = span.SpanContext().TraceID().String()
	}
	require.Contains(t, names, "keyword.generate_response")
	require.Contains(t, names, "llm.dispatch")
	assert.Equal(t, body.TraceID, names["keyword.generate_response"])
	assert.Equal(t, body.TraceID, names["llm.dispatch"])

	// errors outside a keyword run carry no trace
	resp = postKeyword(t, ts, "summon_demon", `{}`)
	assert.Empty(t, readError(t, resp).TraceID)
}

func TestClassifyNoActiveAssistant(t *testing.T) {
	status, code := classify(&errdefs.NoActiveAssistantError{Provider: "openai", Action: "send_message"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "NO_ACTIVE_ASSISTANT", code)

	status, code = classify(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "INTERNAL_ERROR", code)
}

func TestListKeywords(t *testing.T) {
	ts := newTestServer(t, &replyHandler{})

	resp, err := http.Get(ts.URL + "/v1/keywords")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body KeywordsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Len(t, body.Keywords, 11)
	assert.Contains(t, body.Keywords, "generate_response")
	assert.Contains(t, body.Keywords, "delete_assistant_by_id")
	assert.IsIncreasing(t, body.Keywords)
}

func TestListProviders(t *testing.T) {
	ts := newTestServer(t, &replyHandler{})

	resp, err := http.Get(ts.URL + "/v1/providers")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body ProvidersResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Providers, 1)
	assert.Equal(t, "acme", body.Providers[0].Name)
	require.Len(t, body.Providers[0].Tools, 2)
	assert.Equal(t, "small", body.Providers[0].Tools[0].DefaultModel)
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, &replyHandler{reply: "pong"})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	postKeyword(t, ts, "generate_response", `{"provider": "acme", "message": "ping"}`)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var sb strings.Builder
	_, err = io.Copy(&sb, resp.Body)
	require.NoError(t, err)
	assert.Contains(t, sb.String(), "llm_requests_total")
}

func TestRequestIDIsEchoed(t *testing.T) {
	ts := newTestServer(t, &replyHandler{})

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "req-42")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "req-42", resp.Header.Get("X-Request-ID"))
}
