package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
)

// LogLevel is a thin enum for user friendly level configuration decoupled
// from slog.
type LogLevel int

const (
	// LogLevelDebug is the debug logging level.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is the informational logging level.
	LogLevelInfo
	// LogLevelWarn is the warning logging level.
	LogLevelWarn
	// LogLevelError is the error logging level.
	LogLevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger defines the minimal logging interface used across the marketplace.
// This allows users to provide their own logger implementation or use the
// built-in adapters.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// OrNoOp returns l, or a NoOpLogger when l is nil. Components call this at
// construction time so a nil logger is always safe.
func OrNoOp(l Logger) Logger {
	if l == nil {
		return NoOpLogger{}
	}
	return l
}

// SlogAdapter wraps *slog.Logger to implement the Logger interface.
type SlogAdapter struct {
	*slog.Logger
}

// Debug logs a debug message.
func (s *SlogAdapter) Debug(msg string, args ...any) { s.Logger.Debug(msg, args...) }

// Info logs an informational message.
func (s *SlogAdapter) Info(msg string, args ...any) { s.Logger.Info(msg, args...) }

// Warn logs a warning message.
func (s *SlogAdapter) Warn(msg string, args ...any) { s.Logger.Warn(msg, args...) }

// Error logs an error message.
func (s *SlogAdapter) Error(msg string, args ...any) { s.Logger.Error(msg, args...) }

// NewSlogAdapter creates a Logger from *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// NewDefaultSlogLogger creates a Logger using slog.Default().
func NewDefaultSlogLogger() Logger {
	return NewSlogAdapter(slog.Default())
}

// MarketLogger wraps slog.Logger adding contextual cloning helpers and
// marketplace convenience methods. It is cheap to copy via the With* methods.
type MarketLogger struct {
	logger    *slog.Logger
	level     LogLevel
	context   map[string]any
	component string
	agentKey  string
	operation string
}

// LoggerConfig configures construction of a MarketLogger.
type LoggerConfig struct {
	Level       LogLevel
	Format      string // json or text
	Output      io.Writer
	AddSource   bool
	Component   string
	AgentKey    string
	CustomAttrs map[string]any
}

// DefaultLoggerConfig returns a baseline JSON info level configuration.
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{Level: LogLevelInfo, Format: "json", Output: os.Stdout, AddSource: false, CustomAttrs: map[string]any{}}
}

// NewLogger builds a MarketLogger from a config (or defaults if nil).
func NewLogger(cfg *LoggerConfig) *MarketLogger {
	if cfg == nil {
		cfg = DefaultLoggerConfig()
	}
	opts := &slog.HandlerOptions{Level: slogLevel(cfg.Level), AddSource: cfg.AddSource}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(cfg.Output, opts)
	} else {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	}
	ml := &MarketLogger{logger: slog.New(handler), level: cfg.Level, context: map[string]any{}, component: cfg.Component, agentKey: cfg.AgentKey}
	for k, v := range cfg.CustomAttrs {
		ml.context[k] = v
	}
	return ml
}

// NewSlogLogger creates a MarketLogger with the specified level and format.
func NewSlogLogger(level LogLevel, format string, addSource bool) *MarketLogger {
	cfg := DefaultLoggerConfig()
	cfg.Level = level
	if format != "" {
		cfg.Format = format
	}
	cfg.AddSource = addSource
	return NewLogger(cfg)
}

func slogLevel(l LogLevel) slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *MarketLogger) clone() *MarketLogger {
	nl := *l
	nl.context = map[string]any{}
	for k, v := range l.context {
		nl.context[k] = v
	}
	return &nl
}

// WithContext adds a key/value attribute attached to every log entry.
func (l *MarketLogger) WithContext(key string, value any) *MarketLogger {
	nl := l.clone()
	nl.context[key] = value
	return nl
}

// WithComponent sets the logical component (registry, catalog, ledger, ...).
func (l *MarketLogger) WithComponent(c string) *MarketLogger {
	nl := l.clone()
	nl.component = c
	return nl
}

// WithAgent attaches the acting agent key.
func (l *MarketLogger) WithAgent(key string) *MarketLogger {
	nl := l.clone()
	nl.agentKey = key
	return nl
}

// WithOperation attaches the current marketplace operation name.
func (l *MarketLogger) WithOperation(op string) *MarketLogger {
	nl := l.clone()
	nl.operation = op
	return nl
}

func (l *MarketLogger) buildAttrs() []slog.Attr {
	attrs := make([]slog.Attr, 0, len(l.context)+4)
	if l.component != "" {
		attrs = append(attrs, slog.String("component", l.component))
	}
	if l.agentKey != "" {
		attrs = append(attrs, slog.String("agent_key", l.agentKey))
	}
	if l.operation != "" {
		attrs = append(attrs, slog.String("operation", l.operation))
	}
	for k, v := range l.context {
		attrs = append(attrs, slog.Any(k, v))
	}
	return attrs
}

func (l *MarketLogger) log(level slog.Level, allowed bool, msg string, args ...any) {
	if !allowed {
		return
	}
	attrs := append(l.buildAttrs(), kvAttrs(args)...)
	l.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

// kvAttrs converts slog-style alternating key/value args into attributes,
// following slog's convention for stray values.
func kvAttrs(args []any) []slog.Attr {
	attrs := make([]slog.Attr, 0, (len(args)+1)/2)
	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			attrs = append(attrs, slog.Any(badKey, args[i]))
			break
		}
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", args[i])
		}
		attrs = append(attrs, slog.Any(key, args[i+1]))
	}
	return attrs
}

const badKey = "!BADKEY"

// Debug logs at debug level.
func (l *MarketLogger) Debug(msg string, args ...any) {
	l.log(slog.LevelDebug, l.level <= LogLevelDebug, msg, args...)
}

// Info logs at info level.
func (l *MarketLogger) Info(msg string, args ...any) {
	l.log(slog.LevelInfo, l.level <= LogLevelInfo, msg, args...)
}

// Warn logs at warn level.
func (l *MarketLogger) Warn(msg string, args ...any) {
	l.log(slog.LevelWarn, l.level <= LogLevelWarn, msg, args...)
}

// Error logs at error level.
func (l *MarketLogger) Error(msg string, args ...any) {
	l.log(slog.LevelError, l.level <= LogLevelError, msg, args...)
}

// LogTrade records the outcome of a settlement attempt.
func (l *MarketLogger) LogTrade(buyer, seller, listingID string, price float64, dur time.Duration, success bool, err error) {
	attrs := l.buildAttrs()
	attrs = append(attrs,
		slog.String("buyer", buyer),
		slog.String("seller", seller),
		slog.String("listing_id", listingID),
		slog.Float64("price", price),
		slog.Duration("duration", dur),
		slog.Bool("success", success))
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	level := slog.LevelInfo
	msg := "Trade settled"
	if !success {
		level = slog.LevelError
		msg = "Trade failed"
	}
	l.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

// LogCommit records a transparency commit lifecycle transition.
func (l *MarketLogger) LogCommit(commitID, status string, agentKey string) {
	attrs := l.buildAttrs()
	attrs = append(attrs,
		slog.String("commit_id", commitID),
		slog.String("status", status),
		slog.String("agent_key", agentKey))
	l.logger.LogAttrs(context.Background(), slog.LevelInfo, "Commit transition", attrs...)
}

// LogMirror records the outcome of a best-effort mirror attempt.
func (l *MarketLogger) LogMirror(sink string, remoteOK, localOK bool, err error) {
	attrs := l.buildAttrs()
	attrs = append(attrs,
		slog.String("sink", sink),
		slog.Bool("remote_ok", remoteOK),
		slog.Bool("local_ok", localOK))
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	level := slog.LevelDebug
	if !localOK {
		level = slog.LevelWarn
	}
	l.logger.LogAttrs(context.Background(), level, "Mirror attempt", attrs...)
}

// StartTimer returns a closure that logs the elapsed duration when invoked.
func (l *MarketLogger) StartTimer(op string) func() {
	start := time.Now()
	return func() { l.Info("Operation completed", "operation", op, "duration", time.Since(start)) }
}

// NoOpLogger discards all log messages. Useful for testing or when logging is
// disabled.
type NoOpLogger struct{}

// Debug logs a debug message.
func (NoOpLogger) Debug(string, ...any) {}

// Info logs an informational message.
func (NoOpLogger) Info(string, ...any) {}

// Warn logs a warning message.
func (NoOpLogger) Warn(string, ...any) {}

// Error logs an error message.
func (NoOpLogger) Error(string, ...any) {}
