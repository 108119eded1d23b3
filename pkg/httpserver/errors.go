package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/snow-ghost/robotai/pkg/errdefs"
	"github.com/snow-ghost/robotai/pkg/tracing"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// classify maps an error onto an HTTP status and a machine readable code
func classify(err error) (int, string) {
	var (
		validation  *errdefs.ValidationError
		missing     *errdefs.MissingArgumentError
		provider    *errdefs.UnknownProviderError
		tool        *errdefs.UnknownToolError
		action      *errdefs.UnknownActionError
		model       *errdefs.UnsupportedModelError
		noAssistant *errdefs.NoActiveAssistantError
		call        *errdefs.ProviderCallError
		parse       *errdefs.ResponseParseError
		decodeErr   *decodeError
	)

	switch {
	case errors.As(err, &decodeErr):
		return http.StatusBadRequest, "INVALID_JSON"
	case errors.As(err, &validation):
		return http.StatusBadRequest, "VALIDATION_FAILED"
	case errors.As(err, &missing):
		return http.StatusBadRequest, "MISSING_ARGUMENT"
	case errors.As(err, &provider):
		return http.StatusBadRequest, "UNKNOWN_PROVIDER"
	case errors.As(err, &tool):
		return http.StatusBadRequest, "UNKNOWN_TOOL"
	case errors.As(err, &action):
		return http.StatusBadRequest, "UNKNOWN_ACTION"
	case errors.As(err, &model):
		return http.StatusBadRequest, "UNSUPPORTED_MODEL"
	case errors.As(err, &noAssistant):
		return http.StatusConflict, "NO_ACTIVE_ASSISTANT"
	case errors.As(err, &parse):
		return http.StatusBadGateway, "RESPONSE_PARSE_FAILED"
	case errors.As(err, &call):
		return http.StatusBadGateway, "PROVIDER_CALL_FAILED"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, message, code string, statusCode int) {
	s.writeErrorResponse(w, statusCode, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, body ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// writeKeywordError writes the response for a failed keyword, carrying the trace id of ctx when it has one
func (s *Server) writeKeywordError(ctx context.Context, w http.ResponseWriter, err error) {
	status, code := classify(err)
	s.writeErrorResponse(w, status, ErrorResponse{
		Error:   err.Error(),
		Code:    code,
		TraceID: tracing.GetTraceID(ctx),
	})
}
