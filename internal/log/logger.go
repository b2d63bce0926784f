// Package log is the structured logger shared by the server and the CLI:
// log/slog with a component attribute bound to every record.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// Logger is a slog.Logger scoped to one component. The embedded logger
// already carries the component attribute.
type Logger struct {
	*slog.Logger
	unscoped  *slog.Logger
	component string
}

type Config struct {
	Level     slog.Level
	Format    string // FormatText or FormatJSON
	Component string
	Output    io.Writer
	// Handler, when set, wins over Format and Output.
	Handler slog.Handler
}

func DefaultConfig() Config {
	return Config{
		Level:     slog.LevelInfo,
		Format:    FormatText,
		Component: ComponentApp,
		Output:    os.Stdout,
	}
}

func New(cfg Config) *Logger {
	handler := cfg.Handler
	if handler == nil {
		out := cfg.Output
		if out == nil {
			out = os.Stdout
		}
		opts := &slog.HandlerOptions{Level: cfg.Level}
		if cfg.Format == FormatJSON {
			handler = slog.NewJSONHandler(out, opts)
		} else {
			handler = slog.NewTextHandler(out, opts)
		}
	}
	component := cfg.Component
	if component == "" {
		component = ComponentApp
	}
	return scoped(slog.New(handler), component)
}

func scoped(base *slog.Logger, component string) *Logger {
	return &Logger{
		Logger:    base.With(FieldComponent, component),
		unscoped:  base,
		component: component,
	}
}

// ParseLevel maps debug/info/warn/error to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// With adds attributes that survive a later WithComponent.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger:    l.Logger.With(args...),
		unscoped:  l.unscoped.With(args...),
		component: l.component,
	}
}

// WithComponent rescopes the logger; the previous component is replaced,
// not nested.
func (l *Logger) WithComponent(component string) *Logger {
	return scoped(l.unscoped, component)
}

func (l *Logger) Component() string {
	return l.component
}

// SetDefault installs logger as the slog default, component included.
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.Logger)
}

// Discard returns a logger that drops everything, for tests.
func Discard() *Logger {
	return New(Config{Output: io.Discard, Level: slog.LevelError + 1})
}
