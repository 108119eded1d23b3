package validation

import (
	"errors"
	"fmt"

	"github.com/snow-ghost/robotai/pkg/errdefs"
	"github.com/snow-ghost/robotai/pkg/prompt"
)

// MaxTokensLimit is the largest accepted max_tokens value
const MaxTokensLimit = 4096

// Range is an inclusive numeric bound, optionally open at the bottom
type Range struct {
	Min          float64
	Max          float64
	MinExclusive bool
}

// Contains reports whether v lies within the range
func (r Range) Contains(v float64) bool {
	if r.MinExclusive {
		if v <= r.Min {
			return false
		}
	} else if v < r.Min {
		return false
	}
	return v <= r.Max
}

// Describe renders the bound for error messages
func (r Range) Describe() string {
	if r.MinExclusive {
		return fmt.Sprintf("Value must be greater than %v and at most %v.", r.Min, r.Max)
	}
	return fmt.Sprintf("Value must be between %v and %v (inclusive).", r.Min, r.Max)
}

// Parameter ranges
var (
	MaxTokensRange        = Range{Min: 0, Max: MaxTokensLimit, MinExclusive: true}
	TemperatureRange      = Range{Min: 0, Max: 2}
	TopPRange             = Range{Min: 0, Max: 1}
	FrequencyPenaltyRange = Range{Min: -2, Max: 2}
	PresencePenaltyRange  = Range{Min: -2, Max: 2}
)

// ValidateParameters checks every supplied sampling parameter and reports all violations together
func ValidateParameters(p prompt.Parameters) error {
	var violations []errdefs.Violation

	check := func(field string, value *float64, r Range) {
		if value != nil && !r.Contains(*value) {
			violations = append(violations, errdefs.Violation{Field: field, Value: *value, Reason: r.Describe()})
		}
	}

	if p.MaxTokens != nil && !MaxTokensRange.Contains(float64(*p.MaxTokens)) {
		violations = append(violations, errdefs.Violation{
			Field:  "max_tokens",
			Value:  *p.MaxTokens,
			Reason: MaxTokensRange.Describe(),
		})
	}
	check("temperature", p.Temperature, TemperatureRange)
	check("top_p", p.TopP, TopPRange)
	check("frequency_penalty", p.FrequencyPenalty, FrequencyPenaltyRange)
	check("presence_penalty", p.PresencePenalty, PresencePenaltyRange)

	if len(violations) > 0 {
		return errdefs.NewValidationError(violations...)
	}
	return nil
}

// RequireString fails with a MissingArgumentError when value is empty
func RequireString(field, value string) error {
	if value == "" {
		return errdefs.NewMissingArgumentError(field, setterHint(field))
	}
	return nil
}

// RequirePaths fails with a MissingArgumentError when no paths were given
func RequirePaths(field string, paths []string) error {
	for _, p := range paths {
		if p != "" {
			return nil
		}
	}
	return errdefs.NewMissingArgumentError(field, "Supply at least one file or folder path.")
}

// Collect combines the failures of several checks, nil when all passed.
// Validation errors are merged into one so every violation is reported together.
func Collect(errs ...error) error {
	var (
		violations []errdefs.Violation
		others     []error
	)
	for _, err := range flatten(errs) {
		if validationErr, ok := err.(*errdefs.ValidationError); ok {
			violations = append(violations, validationErr.Violations...)
			continue
		}
		others = append(others, err)
	}

	if len(violations) > 0 {
		others = append([]error{errdefs.NewValidationError(violations...)}, others...)
	}
	if len(others) == 1 {
		return others[0]
	}
	return errors.Join(others...)
}

// flatten expands joined errors and drops nils
func flatten(errs []error) []error {
	var out []error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			out = append(out, flatten(joined.Unwrap())...)
			continue
		}
		out = append(out, err)
	}
	return out
}

func setterHint(field string) string {
	return fmt.Sprintf("Either stage it in the defaults or supply `%s` directly.", field)
}
