// log/log.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"slices"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps slog.Logger with a few conveniences used throughout the
// storage engine and its ingest/serving binaries: printf-style helpers, a
// nil-safe receiver so unconfigured subsystems can log without crashing,
// and a callstack attribute attached to Debug/Info so page-fault-era mmap
// bugs can be traced back to the call site that issued them.
type Logger struct {
	*slog.Logger
	LogFile string
	LogDir  string
	Start   time.Time
}

// New creates a Logger that writes JSON lines to a rotated file (via
// lumberjack) and mirrors warnings/errors to stderr as text.
func New(level string, dir string) *Logger {
	if dir == "" {
		dir = "wx-logs"
	}

	w := &lumberjack.Logger{
		Filename: filepath.Join(dir, "wx.slog"),
		MaxSize:  64, // MB
		MaxAge:   14,
		Compress: true,
	}

	lvl := slog.LevelInfo
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "":
		// use default
	default:
		fmt.Fprintf(os.Stderr, "%s: invalid log level\n", level)
	}

	h := newHandler(w, &slog.HandlerOptions{Level: lvl})
	l := &Logger{
		Logger:  slog.New(h),
		LogFile: w.Filename,
		LogDir:  dir,
		Start:   time.Now(),
	}

	l.Info("Hello logging", slog.Time("start", l.Start))
	l.Info("System information",
		slog.String("GOARCH", runtime.GOARCH),
		slog.String("GOOS", runtime.GOOS),
		slog.Int("NumCPUs", runtime.NumCPU()))

	if bi, ok := debug.ReadBuildInfo(); ok {
		l.Info("Build", slog.String("Go version", bi.GoVersion), slog.String("Path", bi.Path))
	}

	return l
}

// Debug wraps slog.Debug to add call stack information (and similarly for
// the following Logger methods...). Note that we do not wrap the entire
// slog logging interface, so, for example, WarnContext and Log do not have
// callstacks included.
//
// We also wrap the logging methods to allow a nil *Logger, in which case
// debug and info messages are discarded (though warnings and errors still
// go through to slog.)
func (l *Logger) Debug(msg string, args ...any) {
	if l != nil && l.Logger.Enabled(nil, slog.LevelDebug) {
		args = append([]any{slog.Any("callstack", Callstack(nil).Strings())}, args...)
		l.Logger.Debug(msg, args...)
	}
}

func (l *Logger) Debugf(msg string, args ...any) {
	if l != nil && l.Logger.Enabled(nil, slog.LevelDebug) {
		l.Logger.Debug(fmt.Sprintf(msg, args...), slog.Any("callstack", Callstack(nil).Strings()))
	}
}

func (l *Logger) Info(msg string, args ...any) {
	if l != nil && l.Logger.Enabled(nil, slog.LevelInfo) {
		args = append([]any{slog.Any("callstack", Callstack(nil).Strings())}, args...)
		l.Logger.Info(msg, args...)
	}
}

func (l *Logger) Infof(msg string, args ...any) {
	if l != nil && l.Logger.Enabled(nil, slog.LevelInfo) {
		l.Logger.Info(fmt.Sprintf(msg, args...), slog.Any("callstack", Callstack(nil).Strings()))
	}
}

func (l *Logger) Warn(msg string, args ...any) {
	args = append([]any{slog.Any("callstack", Callstack(nil).Strings())}, args...)
	if l == nil {
		slog.Warn(msg, args...)
	} else {
		l.Logger.Warn(msg, args...)
	}
}

func (l *Logger) Warnf(msg string, args ...any) {
	if l == nil {
		slog.Warn(fmt.Sprintf(msg, args...), slog.Any("callstack", Callstack(nil).Strings()))
	} else {
		l.Logger.Warn(fmt.Sprintf(msg, args...), slog.Any("callstack", Callstack(nil).Strings()))
	}
}

func (l *Logger) Error(msg string, args ...any) {
	args = append([]any{slog.Any("callstack", Callstack(nil).Strings())}, args...)
	if l == nil {
		slog.Error(msg, args...)
	} else {
		l.Logger.Error(msg, args...)
	}
}

func (l *Logger) Errorf(msg string, args ...any) {
	if l == nil {
		slog.Error(fmt.Sprintf(msg, args...), slog.Any("callstack", Callstack(nil).Strings()))
	} else {
		l.Logger.Error(fmt.Sprintf(msg, args...), slog.Any("callstack", Callstack(nil).Strings()))
	}
}

func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger:  l.Logger.With(args...),
		LogFile: l.LogFile,
		LogDir:  l.LogDir,
		Start:   l.Start,
	}
}

///////////////////////////////////////////////////////////////////////////

// handler is an implementation of slog.Handler that sends log entries both
// to a JSON handler (that will log to disk) and a text handler that prints
// warnings and errors to stderr.
type handler struct {
	json slog.Handler
	txt  slog.Handler
}

func newHandler(w io.Writer, opts *slog.HandlerOptions) *handler {
	return &handler{
		json: slog.NewJSONHandler(w, opts),
		txt:  slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}),
	}
}

func (h *handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.json.Enabled(ctx, level) || h.txt.Enabled(ctx, level)
}

func (h *handler) Handle(ctx context.Context, rec slog.Record) error {
	if h.txt.Enabled(ctx, rec.Level) {
		_ = h.txt.Handle(ctx, rec)
	}
	if h.json.Enabled(ctx, rec.Level) {
		return h.json.Handle(ctx, rec)
	}
	return nil
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	// Handlers own the attrs passed to them, so we make sure each gets
	// its own copy.
	return &handler{
		json: h.json.WithAttrs(slices.Clone(attrs)),
		txt:  h.txt.WithAttrs(slices.Clone(attrs)),
	}
}

func (h *handler) WithGroup(name string) slog.Handler {
	return &handler{
		json: h.json.WithGroup(name),
		txt:  h.txt.WithGroup(name),
	}
}
