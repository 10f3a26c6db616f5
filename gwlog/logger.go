// Package gwlog provides the structured logger every gateway component
// logs through. It implements core.ComponentAwareLogger on top of
// go.uber.org/zap, replacing core/logger.go's bare log.Println-based
// SimpleLogger with a real structured sink while keeping the same
// narrow interface shape (Info/Warn/Error/Debug with a field map, plus
// WithComponent to tag a sub-logger without re-configuring sinks).
package gwlog

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/relaygate/gateway/core"
)

// Logger wraps a zap.Logger to satisfy core.ComponentAwareLogger.
type Logger struct {
	z         *zap.Logger
	component string
}

var _ core.ComponentAwareLogger = (*Logger)(nil)

// Config controls sink construction. Encoding is "json" in production
// and "console" is useful for local demo runs.
type Config struct {
	Level    string // debug, info, warn, error
	Encoding string // json, console
	Output   []string
}

// DefaultConfig mirrors core/logger.go's production defaults: JSON to
// stdout at info level.
func DefaultConfig() Config {
	return Config{Level: "info", Encoding: "json", Output: []string{"stdout"}}
}

// New builds a Logger from cfg. An empty cfg.Output defaults to stdout.
func New(cfg Config) (*Logger, error) {
	level := parseLevel(cfg.Level)
	encoding := cfg.Encoding
	if encoding == "" {
		encoding = "json"
	}
	output := cfg.Output
	if len(output) == 0 {
		output = []string{"stdout"}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	zcfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Encoding:         encoding,
		EncoderConfig:    encCfg,
		OutputPaths:      output,
		ErrorOutputPaths: []string{"stderr"},
	}

	z, err := zcfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, core.NewFrameworkError("gwlog.New", "logger", err)
	}
	return &Logger{z: z}, nil
}

// NewNop returns a Logger that discards everything, useful in tests.
func NewNop() *Logger {
	return &Logger{z: zap.NewNop()}
}

// NewDevelopment returns a console-encoded, debug-level Logger for
// local runs.
func NewDevelopment() *Logger {
	z, _ := zap.NewDevelopment()
	return &Logger{z: z}
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *Logger) fields(fields map[string]interface{}) []zap.Field {
	zf := make([]zap.Field, 0, len(fields)+1)
	if l.component != "" {
		zf = append(zf, zap.String("component", l.component))
	}
	for k, v := range fields {
		zf = append(zf, zap.Any(k, v))
	}
	return zf
}

func (l *Logger) Info(msg string, fields map[string]interface{}) {
	l.z.Info(msg, l.fields(fields)...)
}

func (l *Logger) Warn(msg string, fields map[string]interface{}) {
	l.z.Warn(msg, l.fields(fields)...)
}

func (l *Logger) Error(msg string, fields map[string]interface{}) {
	l.z.Error(msg, l.fields(fields)...)
}

func (l *Logger) Debug(msg string, fields map[string]interface{}) {
	l.z.Debug(msg, l.fields(fields)...)
}

// WithComponent returns a Logger tagged with component on every entry.
// Cheap: reuses the same zap core, just threads the label through.
func (l *Logger) WithComponent(component string) core.Logger {
	return &Logger{z: l.z, component: component}
}

// Sync flushes buffered log entries. Call before process exit.
func (l *Logger) Sync() error {
	return l.z.Sync()
}

var (
	defaultOnce   sync.Once
	defaultLogger *Logger
)

// Default returns a process-wide stdout JSON logger, built once.
func Default() *Logger {
	defaultOnce.Do(func() {
		lg, err := New(DefaultConfig())
		if err != nil {
			// zap's own construction over stdout should never fail; fall
			// back to a nop logger rather than panic in a logging path.
			os.Stderr.WriteString("gwlog: falling back to nop logger: " + err.Error() + "\n")
			lg = NewNop()
		}
		defaultLogger = lg
	})
	return defaultLogger
}
