// Package log provides structured JSON logging with session context.
//
// Entries carry session_id and source at the top level and the call's
// fields under "fields". Scoped loggers from With add top-level context,
// e.g. the packet a chunk belongs to.
package log

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pithecene-io/ddmscope/types"
)

// Logger provides structured logging with session context.
// All entries carry session_id and source.
type Logger struct {
	zap *zap.Logger
}

// NewLogger creates a logger with session context writing to os.Stderr at
// info level.
func NewLogger(meta *types.SessionMeta) *Logger {
	return NewLoggerWithWriter(meta, os.Stderr, zapcore.InfoLevel)
}

// NewLoggerWithWriter creates a logger writing JSON lines to w.
func NewLoggerWithWriter(meta *types.SessionMeta, w io.Writer, level zapcore.Level) *Logger {
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig()),
		zapcore.AddSync(w),
		level,
	)

	var contextFields []zap.Field
	if meta != nil {
		contextFields = append(contextFields,
			zap.String("session_id", meta.SessionID),
			zap.String("source", meta.Source),
		)
	}
	return &Logger{zap: zap.New(core).With(contextFields...)}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zap: zap.NewNop()}
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		LevelKey:    "level",
		MessageKey:  "message",
		EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	}
}

// ParseLevel parses a level name (debug, info, warn, error).
func ParseLevel(name string) (zapcore.Level, error) {
	return zapcore.ParseLevel(name)
}

// Debug logs a debug message.
func (l *Logger) Debug(message string, fields map[string]any) {
	l.zap.Debug(message, zap.Any("fields", fields))
}

// Info logs an info message.
func (l *Logger) Info(message string, fields map[string]any) {
	l.zap.Info(message, zap.Any("fields", fields))
}

// Warn logs a warning message.
func (l *Logger) Warn(message string, fields map[string]any) {
	l.zap.Warn(message, zap.Any("fields", fields))
}

// Error logs an error message.
func (l *Logger) Error(message string, fields map[string]any) {
	l.zap.Error(message, zap.Any("fields", fields))
}

// With returns a logger that adds ctx to every entry as top-level keys.
func (l *Logger) With(ctx map[string]any) *Logger {
	if len(ctx) == 0 {
		return l
	}
	fields := make([]zap.Field, 0, len(ctx))
	for k, v := range ctx {
		fields = append(fields, zap.Any(k, v))
	}
	return &Logger{zap: l.zap.With(fields...)}
}

// DebugEnabled reports whether debug entries are written. Hot decode
// paths check it before building fields.
func (l *Logger) DebugEnabled() bool {
	return l.zap.Core().Enabled(zapcore.DebugLevel)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.zap.Sync()
}
