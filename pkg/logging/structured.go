package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a zap logger and exposes a slog view for stdlib-facing components
type Logger struct {
	slog *slog.Logger
	zap  *zap.Logger
}

// Config holds logging configuration
type Config struct {
	Level     string
	Format    string // "json" or "console"
	Output    string // "stdout" or "stderr"
	AddCaller bool
	AddStack  bool
}

// DefaultConfig returns the configuration used when nothing is set
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}
}

// NewLogger creates a new structured logger
func NewLogger(config Config) (*Logger, error) {
	if config.Format == "" {
		config.Format = "json"
	}
	if config.Output == "" {
		config.Output = "stdout"
	}

	out := os.Stdout
	if config.Output == "stderr" {
		out = os.Stderr
	}
	slogLogger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: parseSlogLevel(config.Level),
	}))

	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = parseZapLevel(config.Level)
	zapConfig.Encoding = config.Format
	zapConfig.OutputPaths = []string{config.Output}
	zapConfig.ErrorOutputPaths = []string{config.Output}
	zapConfig.DisableCaller = !config.AddCaller
	zapConfig.DisableStacktrace = !config.AddStack
	if config.Format == "console" {
		zapConfig.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	zapLogger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	return &Logger{
		slog: slogLogger,
		zap:  zapLogger,
	}, nil
}

// NewNop returns a logger that discards everything
func NewNop() *Logger {
	return &Logger{
		slog: slog.New(slog.NewTextHandler(io.Discard, nil)),
		zap:  zap.NewNop(),
	}
}

// parseSlogLevel parses slog level from string
func parseSlogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// parseZapLevel parses zap level from string
func parseZapLevel(level string) zap.AtomicLevel {
	switch level {
	case "debug":
		return zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case "warn":
		return zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		return zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		return zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
}

// WithRequestID adds request ID to logger context
func (l *Logger) WithRequestID(ctx context.Context, requestID string) *Logger {
	return &Logger{
		slog: l.slog.With("request_id", requestID),
		zap:  l.zap.With(zap.String("request_id", requestID)),
	}
}

// Named returns a child logger for a component
func (l *Logger) Named(name string) *Logger {
	return &Logger{
		slog: l.slog.With("component", name),
		zap:  l.zap.Named(name),
	}
}

// WithFields adds fields to logger context
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	slogAttrs := make([]any, 0, len(fields)*2)
	zapFields := make([]zap.Field, 0, len(fields))

	for key, value := range fields {
		slogAttrs = append(slogAttrs, key, value)
		zapFields = append(zapFields, zap.Any(key, value))
	}

	return &Logger{
		slog: l.slog.With(slogAttrs...),
		zap:  l.zap.With(zapFields...),
	}
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.zap.Debug(msg, convertToZapFields(args)...)
}

// Info logs an info message
func (l *Logger) Info(msg string, args ...interface{}) {
	l.zap.Info(msg, convertToZapFields(args)...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.zap.Warn(msg, convertToZapFields(args)...)
}

// Error logs an error message
func (l *Logger) Error(msg string, args ...interface{}) {
	l.zap.Error(msg, convertToZapFields(args)...)
}

// convertToZapFields converts alternating key/value args to zap fields
func convertToZapFields(args []interface{}) []zap.Field {
	if len(args) == 0 {
		return nil
	}

	fields := make([]zap.Field, 0, len(args)/2)
	for i := 0; i < len(args)-1; i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		if err, isErr := args[i+1].(error); isErr {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, args[i+1]))
	}
	return fields
}

// LogRequest logs an HTTP request
func (l *Logger) LogRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration, requestID string) {
	fields := map[string]interface{}{
		"method":      method,
		"path":        path,
		"status_code": statusCode,
		"duration_ms": float64(duration.Nanoseconds()) / 1e6,
		"request_id":  requestID,
	}

	l.WithFields(fields).Info("HTTP request completed")
}

// LogLLMRequest logs a completed vendor call
func (l *Logger) LogLLMRequest(ctx context.Context, provider, model string, status string, duration time.Duration, tokens int, cost float64, requestID string) {
	fields := map[string]interface{}{
		"provider":    provider,
		"model":       model,
		"status":      status,
		"duration_ms": float64(duration.Nanoseconds()) / 1e6,
		"tokens":      tokens,
		"cost":        cost,
		"request_id":  requestID,
	}

	l.WithFields(fields).Info("LLM request completed")
}

// LogCircuitBreaker logs a circuit breaker state change
func (l *Logger) LogCircuitBreaker(name, from, to string) {
	fields := map[string]interface{}{
		"breaker": name,
		"from":    from,
		"to":      to,
	}

	l.WithFields(fields).Warn("Circuit breaker state changed")
}

// Sync flushes buffered log entries
func (l *Logger) Sync() error {
	return l.zap.Sync()
}

// GetSlog returns the slog logger
func (l *Logger) GetSlog() *slog.Logger {
	return l.slog
}

// GetZap returns the zap logger
func (l *Logger) GetZap() *zap.Logger {
	return l.zap
}
