// Package logger builds the structured logger handed to every rdm component.
//
// There is no package-level logger: the CLI calls New once at startup and
// threads the result into each engine. Records fan out to the console, where
// they render as "[INFO] message" lines, and, in debug mode, to a text log
// file under the state directory.
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"charm.land/lipgloss/v2"
	"github.com/google/uuid"

	"github.com/rdmcfg/rdm/paths"
)

// Options configures New.
type Options struct {
	// Debug lowers the console level to debug and enables the log file.
	Debug bool
	// Quiet suppresses informational console output.
	Quiet bool
	// Console receives the tagged console lines. Defaults to os.Stdout.
	Console io.Writer
	// LogPath overrides the debug log file location.
	LogPath string
}

// Logger is a *slog.Logger that owns its log file, if any.
type Logger struct {
	*slog.Logger
	RunID string
	file  *os.File
}

// DefaultLogPath returns the default debug log file path.
func DefaultLogPath() (string, error) {
	dir, err := paths.LogsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "rdm.log"), nil
}

// New creates the logger for one invocation. Every record carries a run
// attribute so that lines from one invocation can be grouped in the log file.
func New(opts Options) (*Logger, error) {
	console := opts.Console
	if console == nil {
		console = os.Stdout
	}

	level := slog.LevelInfo
	switch {
	case opts.Debug:
		level = slog.LevelDebug
	case opts.Quiet:
		level = slog.LevelWarn
	}

	handlers := []slog.Handler{newConsoleHandler(console, level)}

	l := &Logger{RunID: uuid.New().String()}
	if opts.Debug {
		path := opts.LogPath
		if path == "" {
			var err error
			if path, err = DefaultLogPath(); err != nil {
				return nil, err
			}
		}

		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
		}
		l.file = f
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	l.Logger = slog.New(fanout(handlers)).With("run", l.RunID)
	l.Debug("logger initialized", "debug", opts.Debug, "quiet", opts.Quiet)
	return l, nil
}

// Close closes the log file.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Discard returns a logger that drops every record. Intended for tests.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

var (
	infoTag  = lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Render("[INFO]")
	warnTag  = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Render("[WARNING]")
	errorTag = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Render("[ERROR]")
	debugTag = lipgloss.NewStyle().Faint(true).Render("[DEBUG]")
)

// consoleHandler renders only the level tag and the message; attributes
// are left to the log file.
type consoleHandler struct {
	mu    *sync.Mutex
	w     io.Writer
	level slog.Level
}

func newConsoleHandler(w io.Writer, level slog.Level) *consoleHandler {
	return &consoleHandler{mu: &sync.Mutex{}, w: w, level: level}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	tag := infoTag
	switch {
	case r.Level >= slog.LevelError:
		tag = errorTag
	case r.Level >= slog.LevelWarn:
		tag = warnTag
	case r.Level < slog.LevelInfo:
		tag = debugTag
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := lipgloss.Fprintln(h.w, tag, r.Message)
	return err
}

func (h *consoleHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *consoleHandler) WithGroup(string) slog.Handler      { return h }

// multiHandler delivers each record to every handler that accepts it.
type multiHandler []slog.Handler

func fanout(handlers []slog.Handler) slog.Handler {
	if len(handlers) == 1 {
		return handlers[0]
	}
	return multiHandler(handlers)
}

func (m multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (m multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(multiHandler, len(m))
	for i, h := range m {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (m multiHandler) WithGroup(name string) slog.Handler {
	out := make(multiHandler, len(m))
	for i, h := range m {
		out[i] = h.WithGroup(name)
	}
	return out
}
