// Package testdata builds prompts that ask a model for realistic test data and
// extracts the values from the JSON the model returns.
package testdata

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/snow-ghost/robotai/pkg/errdefs"
)

// Request describes the data a caller wants
type Request struct {
	Amount  int
	Format  string            // optional output format, e.g. "street, city, country"
	Options map[string]string // type specific options such as country
}

// Option returns a trimmed option value
func (r Request) Option(name string) string {
	return strings.TrimSpace(r.Options[name])
}

// Generator produces the messages for one type of test data and extracts the result
type Generator interface {
	// Name is the type name callers select the generator with
	Name() string

	// SystemMessage describes the JSON shape the model must answer with
	SystemMessage(req Request) string

	// UserMessage asks for req.Amount values
	UserMessage(req Request) string

	// Extract decodes the values out of the model's JSON reply
	Extract(payload string) ([]string, error)
}

var generators = map[string]Generator{
	"address":      AddressGenerator{},
	"phone_number": PhoneNumberGenerator{},
}

// Types returns the supported test data types, sorted
func Types() []string {
	names := make([]string, 0, len(generators))
	for name := range generators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the generator registered for name
func Lookup(name string) (Generator, error) {
	g, ok := generators[name]
	if !ok {
		return nil, errdefs.NewValidationError(errdefs.Violation{
			Field:  "type",
			Value:  name,
			Reason: fmt.Sprintf("Value must be in: %s.", strings.Join(Types(), ", ")),
		})
	}
	return g, nil
}

// extractList decodes {"<list>": [{"<key>": value}, ...]} into the values.
// Other top level keys are ignored; a missing or null list is a parse error.
func extractList(payload, list, key string) ([]string, error) {
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		return nil, errdefs.NewResponseParseError(payload, err)
	}

	raw, ok := decoded[list]
	if !ok || string(raw) == "null" {
		return nil, errdefs.NewResponseParseError(payload, fmt.Errorf("missing key %q", list))
	}

	var items []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errdefs.NewResponseParseError(payload, fmt.Errorf("key %q: %w", list, err))
	}

	values := make([]string, 0, len(items))
	for i, item := range items {
		raw, ok := item[key]
		if !ok {
			return nil, errdefs.NewResponseParseError(payload, fmt.Errorf("item %d of %q has no key %q", i, list, key))
		}
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			return nil, errdefs.NewResponseParseError(payload, fmt.Errorf("item %d of %q: %w", i, list, err))
		}
		values = append(values, value)
	}
	return values, nil
}
