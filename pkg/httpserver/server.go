// Package httpserver exposes the keyword library over HTTP/JSON.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/snow-ghost/robotai/pkg/cost"
	"github.com/snow-ghost/robotai/pkg/keywords"
	"github.com/snow-ghost/robotai/pkg/logging"
	"github.com/snow-ghost/robotai/pkg/metrics"
	"github.com/snow-ghost/robotai/pkg/prompt"
	"github.com/snow-ghost/robotai/pkg/providers"
	"github.com/snow-ghost/robotai/pkg/registry"
	"github.com/snow-ghost/robotai/pkg/tracing"
)

// maxBodyBytes bounds keyword argument bodies
const maxBodyBytes = 1 << 20

// Config holds the collaborators of a server
type Config struct {
	Port           string
	Dispatcher     *providers.Dispatcher
	Registry       *registry.Registry
	Costs          *cost.Calculator
	Metrics        *metrics.PrometheusMetrics
	Logger         *logging.Logger
	Tracer         *tracing.Tracer
	RequestTimeout time.Duration
}

// Server represents the HTTP server
type Server struct {
	port           string
	logger         *logging.Logger
	router         chi.Router
	dispatcher     *providers.Dispatcher
	registry       *registry.Registry
	metrics        *metrics.PrometheusMetrics
	tracer         *tracing.Tracer
	library        *keywords.Library
	keywords       map[string]keywordFunc
	requestTimeout time.Duration
	httpServer     *http.Server
}

// NewServer creates a new HTTP server with its own keyword library
func NewServer(config Config) *Server {
	if config.Logger == nil {
		config.Logger = logging.NewNop()
	}
	if config.Registry == nil {
		config.Registry = registry.GetDefaultRegistry()
	}
	if config.Costs == nil {
		config.Costs = cost.NewCalculator(config.Registry)
	}
	if config.Tracer == nil {
		config.Tracer = tracing.NewNoopTracer()
	}

	costed := &costRecorder{inner: config.Dispatcher, costs: config.Costs}
	library := keywords.NewLibrary(costed, config.Logger)

	s := &Server{
		port:           config.Port,
		logger:         config.Logger.Named("httpserver"),
		router:         chi.NewRouter(),
		dispatcher:     config.Dispatcher,
		registry:       config.Registry,
		metrics:        config.Metrics,
		tracer:         config.Tracer,
		library:        library,
		keywords:       keywordTable(library),
		requestTimeout: config.RequestTimeout,
	}
	s.setupRoutes()
	return s
}

// Library returns the keyword library served by s
func (s *Server) Library() *keywords.Library {
	return s.library
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all the HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.requestID)
	s.router.Use(s.logRequests)

	s.router.Get("/health", s.handleHealth)
	if s.metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	s.router.Route("/v1", func(r chi.Router) {
		r.Get("/keywords", s.handleListKeywords)
		r.Post("/keywords/{name}", s.handleKeyword)
		r.Get("/providers", s.handleProviders)
	})
}

// Start starts the server and blocks until it stops
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(s.logger.GetSlog().Handler(), slog.LevelError),
	}

	s.logger.Info("starting HTTP server", "port", s.port)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops a started server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

type requestIDKey struct{}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		id, _ := r.Context().Value(requestIDKey{}).(string)
		s.logger.LogRequest(r.Context(), r.Method, r.URL.Path, ww.Status(), time.Since(start), id)
	})
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","service":"keywordd","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}

// KeywordsResponse lists the available keywords
type KeywordsResponse struct {
	Keywords []string `json:"keywords"`
}

func (s *Server) handleListKeywords(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(KeywordsResponse{Keywords: keywordNames(s.keywords)})
}

// ProviderInfo describes one registered provider
type ProviderInfo struct {
	Name  string     `json:"name"`
	Tools []ToolInfo `json:"tools"`
}

// ToolInfo describes one tool of a provider
type ToolInfo struct {
	Name         string   `json:"name"`
	Models       []string `json:"models"`
	DefaultModel string   `json:"default_model"`
}

// ProvidersResponse lists the registered providers
type ProvidersResponse struct {
	Providers []ProviderInfo `json:"providers"`
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	response := ProvidersResponse{Providers: []ProviderInfo{}}

	if s.dispatcher != nil {
		for _, name := range s.dispatcher.Providers() {
			info := ProviderInfo{Name: name, Tools: []ToolInfo{}}
			if config := s.registry.FindProvider(name); config != nil {
				for _, tool := range config.Tools {
					info.Tools = append(info.Tools, ToolInfo{
						Name:         tool.Name,
						Models:       tool.Models,
						DefaultModel: tool.DefaultModel,
					})
				}
			}
			response.Providers = append(response.Providers, info)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// KeywordResponse is the body of a successful keyword call
type KeywordResponse struct {
	Result interface{} `json:"result"`
}

func (s *Server) handleKeyword(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	run, ok := s.keywords[name]
	if !ok {
		s.writeError(w, fmt.Sprintf("unknown keyword %q", name), "UNKNOWN_KEYWORD", http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), "BODY_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return
		}
		s.writeError(w, "Failed to read request body", "INVALID_BODY", http.StatusBadRequest)
		return
	}

	ctx, span := s.tracer.StartSpan(r.Context(), "keyword."+name,
		trace.WithAttributes(attribute.String("keyword.name", name)))
	defer span.End()

	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}
	tally := &costTally{}
	ctx = context.WithValue(ctx, costTallyKey{}, tally)

	result, err := run(ctx, body)
	if err != nil {
		tracing.RecordSpanError(span, err)
		s.writeKeywordError(ctx, w, err)
		return
	}
	tracing.RecordSpanSuccess(span)

	if total, ok := tally.total(); ok {
		w.Header().Set("X-Cost-Total", cost.FormatCostHeader(total))
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(KeywordResponse{Result: result})
}

type costTallyKey struct{}

// costTally sums the cost of every dispatch made while serving one request
type costTally struct {
	mu     sync.Mutex
	result *cost.CostResult
}

func (t *costTally) add(c *cost.CostResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.result == nil {
		copied := *c
		t.result = &copied
		return
	}
	t.result.InputCost += c.InputCost
	t.result.OutputCost += c.OutputCost
	t.result.TotalCost += c.TotalCost
	t.result.InputTokens += c.InputTokens
	t.result.OutputTokens += c.OutputTokens
}

func (t *costTally) total() (*cost.CostResult, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result, t.result != nil
}

// costRecorder prices every successful dispatch into the request's tally
type costRecorder struct {
	inner keywords.Dispatcher
	costs *cost.Calculator
}

func (c *costRecorder) Dispatch(ctx context.Context, p prompt.Prompt) (*prompt.Response, error) {
	resp, err := c.inner.Dispatch(ctx, p)
	if err != nil {
		return nil, err
	}

	if tally, ok := ctx.Value(costTallyKey{}).(*costTally); ok && resp.Metadata.TotalTokens() > 0 {
		if result, costErr := c.costs.CalcCostForResponse(resp.Metadata); costErr == nil {
			tally.add(result)
		}
	}
	return resp, nil
}
