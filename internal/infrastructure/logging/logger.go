package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/watchkeeper/internal/infrastructure/config"
)

// ServiceName is attached to every log entry.
const ServiceName = "watchkeeper"

// Logger is a slog.Logger carrying the service and version fields.
// It is safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New builds a Logger for cfg. Output "stderr" selects standard error;
// anything else writes to standard output.
func New(cfg config.LoggingConfig, version string) *Logger {
	var w io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		w = os.Stderr
	}
	return NewWithWriter(cfg, version, w)
}

// NewWithWriter builds a Logger writing to w, ignoring cfg.Output.
func NewWithWriter(cfg config.LoggingConfig, version string, w io.Writer) *Logger {
	h := newHandler(w, cfg.Format, parseLevel(cfg.Level)).WithAttrs([]slog.Attr{
		slog.String("service", ServiceName),
		slog.String("version", version),
	})
	return &Logger{Logger: slog.New(h)}
}

// newHandler returns a text handler for format "text" and JSON otherwise.
func newHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// parseLevel maps a config level name to slog; unknown names mean info.
func parseLevel(level string) slog.Level {
	levels := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	if l, ok := levels[strings.ToLower(level)]; ok {
		return l
	}
	return slog.LevelInfo
}

// With returns a child Logger with extra default attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Component tags entries with the subsystem that wrote them.
func (l *Logger) Component(name string) *Logger { return l.With("component", name) }

// Vessel tags entries with the vessel a watch loop serves.
func (l *Logger) Vessel(id string) *Logger { return l.With("vessel", id) }

// Default is the bootstrap logger used until the config is loaded:
// JSON at info level on stdout.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}
