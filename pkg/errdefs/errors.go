package errdefs

import (
	"errors"
	"fmt"
	"strings"
)

// Violation describes one parameter that failed a range check
type Violation struct {
	Field  string      `json:"field"`
	Value  interface{} `json:"value"`
	Reason string      `json:"reason"`
}

// String renders the violation in the form used by ValidationError
func (v Violation) String() string {
	return fmt.Sprintf("Invalid value `%v` for `%s`. %s", v.Value, v.Field, v.Reason)
}

// ValidationError aggregates every violated parameter of one call
type ValidationError struct {
	Violations []Violation
}

// NewValidationError creates a validation error from the collected violations
func NewValidationError(violations ...Violation) *ValidationError {
	return &ValidationError{Violations: violations}
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return "invalid input argument(s): " + strings.Join(parts, " ")
}

// Fields returns the names of all violated fields in report order
func (e *ValidationError) Fields() []string {
	fields := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		fields[i] = v.Field
	}
	return fields
}

// MissingArgumentError reports a required field that was not supplied
type MissingArgumentError struct {
	Field string
	Hint  string
}

// NewMissingArgumentError creates a missing argument error for field
func NewMissingArgumentError(field, hint string) *MissingArgumentError {
	return &MissingArgumentError{Field: field, Hint: hint}
}

func (e *MissingArgumentError) Error() string {
	msg := fmt.Sprintf("argument `%s` can not be empty", e.Field)
	if e.Hint != "" {
		msg += ". " + e.Hint
	}
	return msg
}

// UnknownProviderError is returned when a prompt names an unregistered provider
type UnknownProviderError struct {
	Name  string
	Valid []string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("invalid provider %q, valid providers are: %s", e.Name, strings.Join(e.Valid, ", "))
}

// UnknownToolError is returned when a provider does not offer the requested tool
type UnknownToolError struct {
	Provider string
	Tool     string
	Valid    []string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("provider %q has no tool %q, valid tools are: %s", e.Provider, e.Tool, strings.Join(e.Valid, ", "))
}

// UnknownActionError is returned for an assistant action outside the closed action set
type UnknownActionError struct {
	Action string
	Valid  []string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("invalid assistant action %q, valid actions are: %s", e.Action, strings.Join(e.Valid, ", "))
}

// UnsupportedModelError is returned when a model is not in a tool's supported list
type UnsupportedModelError struct {
	Provider  string
	Tool      string
	Model     string
	Supported []string
}

func (e *UnsupportedModelError) Error() string {
	return fmt.Sprintf("model %q is not supported by %s %s, supported models are: %s",
		e.Model, e.Provider, e.Tool, strings.Join(e.Supported, ", "))
}

// NoActiveAssistantError is returned when an action needs an active assistant and there is none
type NoActiveAssistantError struct {
	Provider string
	Action   string
}

func (e *NoActiveAssistantError) Error() string {
	return fmt.Sprintf("%s: no active assistant for provider %q, create one or set one as active first", e.Action, e.Provider)
}

// ProviderCallError wraps a failure reported by, or on the way to, a vendor API
type ProviderCallError struct {
	Provider string
	Op       string
	Err      error
}

// NewProviderCallError wraps err as a failed vendor operation
func NewProviderCallError(provider, op string, err error) *ProviderCallError {
	return &ProviderCallError{Provider: provider, Op: op, Err: err}
}

func (e *ProviderCallError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderCallError) Unwrap() error {
	return e.Err
}

// ResponseParseError is returned when vendor text does not decode into the requested structure
type ResponseParseError struct {
	Payload string
	Err     error
}

// NewResponseParseError wraps a decode failure together with the offending payload
func NewResponseParseError(payload string, err error) *ResponseParseError {
	return &ResponseParseError{Payload: payload, Err: err}
}

func (e *ResponseParseError) Error() string {
	return fmt.Sprintf("the response could not be parsed: %v. Response: %s", e.Err, e.Payload)
}

func (e *ResponseParseError) Unwrap() error {
	return e.Err
}

// IsCallerError reports whether err was caused by caller input or state rather than the vendor
func IsCallerError(err error) bool {
	var (
		validation  *ValidationError
		missing     *MissingArgumentError
		provider    *UnknownProviderError
		tool        *UnknownToolError
		action      *UnknownActionError
		model       *UnsupportedModelError
		noAssistant *NoActiveAssistantError
	)
	return errors.As(err, &validation) ||
		errors.As(err, &missing) ||
		errors.As(err, &provider) ||
		errors.As(err, &tool) ||
		errors.As(err, &action) ||
		errors.As(err, &model) ||
		errors.As(err, &noAssistant)
}
