package utils

import (
	"log/slog"
	"strings"
)

// ErrAttr returns a slog attribute for an error. A nil error yields a nil
// value so callers can pass results through unconditionally.
func ErrAttr(err error) slog.Attr {
	if err == nil {
		return slog.Any("error", nil)
	}

	return slog.Any("error", err)
}

// LogOnError runs fn and logs msg if it returns an error. Intended for
// deferred Close calls.
func LogOnError(l *slog.Logger, fn func() error, msg string) {
	if err := fn(); err != nil {
		l.Error(msg, ErrAttr(err))
	}
}

// SlogReplacer normalizes attribute rendering for the JSON handler:
// timestamps become "YYYY-MM-DD HH:MM:SS" and durations their String form.
func SlogReplacer(groups []string, a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindTime:
		return slog.String(a.Key, a.Value.Time().Format("2006-01-02 15:04:05"))
	case slog.KindDuration:
		return slog.String(a.Key, a.Value.Duration().String())
	default:
		return a
	}
}

// LogWriter adapts an io.Writer onto a slog.Logger so libraries that want a
// plain writer (e.g. dbmate) log through the same pipeline.
type LogWriter struct {
	logger *slog.Logger
}

func NewSlogWriter(logger *slog.Logger) *LogWriter {
	return &LogWriter{logger: logger}
}

func (w *LogWriter) Write(p []byte) (int, error) {
	msg := strings.TrimRight(string(p), "\n")
	if msg != "" {
		w.logger.Info(msg)
	}

	return len(p), nil
}
