package keywords

import (
	"context"
	"sync"

	"github.com/snow-ghost/robotai/pkg/errdefs"
	"github.com/snow-ghost/robotai/pkg/logging"
	"github.com/snow-ghost/robotai/pkg/prompt"
	"github.com/snow-ghost/robotai/pkg/testdata"
	"github.com/snow-ghost/robotai/pkg/validation"
)

// DefaultTestDataAmount is the number of rows generated when no amount is given
const DefaultTestDataAmount = 3

// TestDataArgs are the arguments of GenerateTestData
type TestDataArgs struct {
	Common
	Type    string            `json:"type"`
	Amount  int               `json:"amount,omitempty"`
	Format  string            `json:"format,omitempty"`
	Options map[string]string `json:"options,omitempty"`
}

// TestDataGenerator asks models for realistic test data
type TestDataGenerator struct {
	dispatcher Dispatcher
	logger     *logging.Logger

	mu       sync.Mutex
	defaults Defaults
	staged   TestDataArgs
}

// NewTestDataGenerator creates the test data keyword with the documented defaults
func NewTestDataGenerator(dispatcher Dispatcher, logger *logging.Logger) *TestDataGenerator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &TestDataGenerator{
		dispatcher: dispatcher,
		logger:     logger.Named("test_data_generator"),
		defaults:   DefaultDefaults(),
		staged:     TestDataArgs{Amount: DefaultTestDataAmount},
	}
}

// Defaults returns the staged defaults
func (g *TestDataGenerator) Defaults() Defaults {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.defaults
}

// SetDefaults replaces the staged defaults
func (g *TestDataGenerator) SetDefaults(d Defaults) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.defaults = d
}

// StageTestData sets the type specific defaults: type, amount, format and options
func (g *TestDataGenerator) StageTestData(args TestDataArgs) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if args.Amount == 0 {
		args.Amount = DefaultTestDataAmount
	}
	g.staged = TestDataArgs{
		Type:    args.Type,
		Amount:  args.Amount,
		Format:  args.Format,
		Options: copyOptions(args.Options),
	}
}

// GenerateTestData generates amount rows of the requested type. The json response format is always used.
func (g *TestDataGenerator) GenerateTestData(ctx context.Context, args TestDataArgs) ([]string, error) {
	const keyword = "generate_test_data"

	g.mu.Lock()
	defaults, staged := g.defaults, g.staged
	g.mu.Unlock()

	args.ResponseFormat = string(prompt.FormatJSON)
	r, err := defaults.resolve(args.Common)

	req := testdata.Request{
		Amount:  args.Amount,
		Format:  firstNonEmpty(args.Format, staged.Format),
		Options: copyOptions(staged.Options),
	}
	for k, v := range args.Options {
		req.Options[k] = v
	}
	if req.Amount == 0 {
		req.Amount = staged.Amount
	}

	dataType := firstNonEmpty(args.Type, staged.Type)
	var generator testdata.Generator
	typeErr := validation.RequireString("type", dataType)
	if typeErr == nil {
		generator, typeErr = testdata.Lookup(dataType)
	}

	var amountErr error
	if req.Amount <= 0 {
		amountErr = errdefs.NewValidationError(errdefs.Violation{
			Field:  "amount",
			Value:  req.Amount,
			Reason: "Value must be greater than 0.",
		})
	}

	if err = validation.Collect(err, typeErr, amountErr); err != nil {
		return nil, fail(g.logger, keyword, err)
	}

	g.logger.Debug("calling keyword",
		"keyword", keyword,
		"provider", r.provider,
		"model", r.model,
		"type", dataType,
		"amount", req.Amount,
		"format", req.Format)

	p := prompt.Prompt{
		Tool: prompt.ToolTextGenerator,
		Config: prompt.Config{
			Provider:       r.provider,
			Model:          r.model,
			ResponseFormat: prompt.FormatJSON,
		},
		SystemMessage: generator.SystemMessage(req),
		UserMessage:   generator.UserMessage(req),
		Parameters:    r.params,
		Metadata:      newMetadata("test_data_generator"),
	}

	resp, err := g.dispatcher.Dispatch(ctx, p)
	if err != nil {
		return nil, fail(g.logger, keyword, err)
	}

	values, err := generator.Extract(resp.Message)
	if err != nil {
		return nil, fail(g.logger, keyword, err)
	}
	return values, nil
}

func copyOptions(options map[string]string) map[string]string {
	out := make(map[string]string, len(options))
	for k, v := range options {
		out[k] = v
	}
	return out
}
