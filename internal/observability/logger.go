package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Yiming0576/Dadi360-Rental-Job-Monitor/internal/config"
)

// Logger wraps slog with a rotating file sink. Output goes to stdout and
// to the configured log file.
type Logger struct {
	sl   *slog.Logger
	file *lumberjack.Logger
}

func NewLogger(cfg config.ObservabilityConfig) *Logger {
	file := &lumberjack.Logger{
		Filename:   cfg.LogPath,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}

	handler := slog.NewTextHandler(io.MultiWriter(os.Stdout, file), &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	})

	return &Logger{
		sl:   slog.New(handler),
		file: file,
	}
}

// NewTestLogger discards all output; for use in tests.
func NewTestLogger() *Logger {
	handler := slog.NewTextHandler(io.Discard, nil)
	return &Logger{sl: slog.New(handler)}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

func (l *Logger) Debug(msg string, fields ...any) {
	l.sl.Debug(msg, fields...)
}

func (l *Logger) Info(msg string, fields ...any) {
	l.sl.Info(msg, fields...)
}

func (l *Logger) Warn(msg string, fields ...any) {
	l.sl.Warn(msg, fields...)
}

func (l *Logger) Error(msg string, fields ...any) {
	l.sl.Error(msg, fields...)
}

func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
