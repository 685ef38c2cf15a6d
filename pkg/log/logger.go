package log

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	bferrors "github.com/YuminosukeSato/badfeatures/pkg/errors"
)

// Output formats accepted by SetupLogger.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

var (
	providerMu sync.RWMutex
	provider   LoggerProvider = NewZerologProvider(os.Stderr, LevelInfo)
)

// ZerologProvider is the default LoggerProvider. All loggers it hands out
// share one minimum level, so SetLevel takes effect on existing loggers too.
type ZerologProvider struct {
	base  zerolog.Logger
	level *atomic.Int64
}

// NewZerologProvider creates a provider writing JSON lines to w.
func NewZerologProvider(w io.Writer, level Level) *ZerologProvider {
	lv := &atomic.Int64{}
	lv.Store(int64(level))
	return &ZerologProvider{
		base:  zerolog.New(w).With().Timestamp().Logger(),
		level: lv,
	}
}

// GetLogger implements LoggerProvider.GetLogger.
func (p *ZerologProvider) GetLogger() Logger {
	return &zerologLogger{zl: p.base, level: p.level}
}

// GetLoggerWithName implements LoggerProvider.GetLoggerWithName.
func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	return &zerologLogger{
		zl:    p.base.With().Str(ComponentKey, name).Logger(),
		level: p.level,
	}
}

// SetLevel implements LoggerProvider.SetLevel.
func (p *ZerologProvider) SetLevel(level Level) {
	p.level.Store(int64(level))
}

type zerologLogger struct {
	zl    zerolog.Logger
	level *atomic.Int64
}

func (l *zerologLogger) Debug(msg string, fields ...any) {
	if l.enabled(LevelDebug) {
		l.zl.Debug().Fields(fieldMap(fields)).Msg(msg)
	}
}

func (l *zerologLogger) Info(msg string, fields ...any) {
	if l.enabled(LevelInfo) {
		l.zl.Info().Fields(fieldMap(fields)).Msg(msg)
	}
}

func (l *zerologLogger) Warn(msg string, fields ...any) {
	if l.enabled(LevelWarn) {
		l.zl.Warn().Fields(fieldMap(fields)).Msg(msg)
	}
}

func (l *zerologLogger) Error(msg string, fields ...any) {
	if !l.enabled(LevelError) {
		return
	}
	err, rest := splitError(fields)
	appendError(l.zl.Error(), err).Fields(fieldMap(rest)).Msg(msg)
}

func (l *zerologLogger) With(fields ...any) Logger {
	return &zerologLogger{
		zl:    l.zl.With().Fields(fieldMap(fields)).Logger(),
		level: l.level,
	}
}

func (l *zerologLogger) Enabled(_ context.Context, level Level) bool {
	return l.enabled(level)
}

func (l *zerologLogger) enabled(level Level) bool {
	return int64(level) >= l.level.Load()
}

// SetProvider replaces the global provider.
func SetProvider(p LoggerProvider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	provider = p
}

// Provider returns the global provider.
func Provider() LoggerProvider {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return provider
}

// GetLogger returns the global default logger.
func GetLogger() Logger {
	return Provider().GetLogger()
}

// GetLoggerWithName returns a global logger tagged with a component name.
func GetLoggerWithName(name string) Logger {
	return Provider().GetLoggerWithName(name)
}

// SetLevel sets the minimum level of the global provider.
func SetLevel(level Level) {
	Provider().SetLevel(level)
}

// SetupLogger installs a zerolog provider on stderr with the given level and
// format ("json" or "console"), and routes library warnings through it.
func SetupLogger(level, format string) error {
	lv, err := ParseLevel(level)
	if err != nil {
		return err
	}

	var w io.Writer
	switch strings.ToLower(format) {
	case "", FormatJSON:
		w = os.Stderr
	case FormatConsole:
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	default:
		return bferrors.NewValidationError("log_format", "must be json or console", format)
	}

	p := NewZerologProvider(w, lv)
	SetProvider(p)

	warnLogger := p.GetLoggerWithName("warnings")
	bferrors.SetZerologWarnFunc(func(warning error) {
		warnLogger.Warn(warning.Error())
	})
	return nil
}

// ParseLevel converts a level name to a Level.
func ParseLevel(level string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, bferrors.NewValidationError("log_level", "must be one of debug, info, warn, error", level)
	}
}
