package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Tracer wraps OpenTelemetry tracer
type Tracer struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
}

// Config holds tracing configuration
type Config struct {
	ServiceName    string
	ServiceVersion string
	JaegerEndpoint string
	Environment    string
}

// NewTracer creates a tracer exporting to Jaeger, or a no-op tracer when no endpoint is set
func NewTracer(config Config) (*Tracer, error) {
	if config.JaegerEndpoint == "" {
		return NewNoopTracer(), nil
	}

	exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(config.JaegerEndpoint)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Jaeger exporter: %w", err)
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String(config.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(config.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Tracer{
		tracer:   tp.Tracer(config.ServiceName),
		provider: tp,
	}, nil
}

// NewNoopTracer returns a tracer that records nothing
func NewNoopTracer() *Tracer {
	return &Tracer{
		tracer: noop.NewTracerProvider().Tracer("noop"),
	}
}

// NewTracerFromProvider builds a tracer on an existing SDK provider
func NewTracerFromProvider(tp *sdktrace.TracerProvider, name string) *Tracer {
	return &Tracer{
		tracer:   tp.Tracer(name),
		provider: tp,
	}
}

// StartSpan starts a new span
func (t *Tracer) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// StartDispatchSpan starts a span for one dispatched prompt
func (t *Tracer) StartDispatchSpan(ctx context.Context, origin, provider, tool, model string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("llm.origin", origin),
		attribute.String("llm.provider", provider),
		attribute.String("llm.tool", tool),
		attribute.String("llm.model", model),
	}

	return t.tracer.Start(ctx, "llm.dispatch", trace.WithAttributes(attrs...))
}

// RecordSpanError records an error in a span
func RecordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// RecordSpanSuccess records success in a span
func RecordSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// RecordSpanTokens records token usage in a span
func RecordSpanTokens(span trace.Span, inputTokens, outputTokens int) {
	span.SetAttributes(
		attribute.Int("tokens.input", inputTokens),
		attribute.Int("tokens.output", outputTokens),
		attribute.Int("tokens.total", inputTokens+outputTokens),
	)
}

// RecordSpanCost records cost in a span
func RecordSpanCost(span trace.Span, cost float64, currency string) {
	span.SetAttributes(
		attribute.Float64("cost.total", cost),
		attribute.String("cost.currency", currency),
	)
}

// Shutdown flushes and stops the exporter, if any
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

// GetTraceID extracts trace ID from context
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}
