// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logger wraps zerolog with the defaults used by fetch-papers:
// a single process-wide root logger writing to stderr, console or JSON
// output, and run-scoped child loggers.
package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Options configures the root logger.
type Options struct {
	Level     string
	Format    string
	Component string
	Writer    io.Writer
}

// Logger is the project-wide logging type.
type Logger = zerolog.Logger

var root atomic.Pointer[zerolog.Logger]

// Get returns the process-wide root logger. Before Init it returns an
// info-level console logger on stderr.
func Get() *Logger {
	if l := root.Load(); l != nil {
		return l
	}
	Init(Options{Level: "info", Format: "console"})
	return root.Load()
}

// Init builds the root logger. Later calls replace it, which lets the CLI
// apply --debug after flags are parsed.
func Init(opt Options) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var w io.Writer = os.Stderr
	if opt.Writer != nil {
		w = opt.Writer
	}
	if opt.Format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}

	ctx := zerolog.New(w).Level(ParseLevel(opt.Level)).With().Timestamp()
	if opt.Component != "" {
		ctx = ctx.Str("component", opt.Component)
	}
	l := ctx.Logger()
	root.Store(&l)
}

// ParseLevel maps a level name to a zerolog level. Unknown names map to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Named returns a child logger with a component field.
func Named(component string) *Logger {
	if component == "" {
		return Get()
	}
	l := Get().With().Str("component", component).Logger()
	return &l
}

type ctxKey struct{}

// WithRun annotates ctx with the run identifier.
func WithRun(ctx context.Context, runID string) context.Context {
	if runID == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, runID)
}

// RunID returns the run identifier stored in ctx, if any.
func RunID(ctx context.Context) string {
	s, _ := ctx.Value(ctxKey{}).(string)
	return s
}

// C returns a child of l enriched with the run_id from ctx.
func C(ctx context.Context, l *Logger) *Logger {
	if l == nil {
		l = Get()
	}
	id := RunID(ctx)
	if id == "" {
		return l
	}
	child := l.With().Str("run_id", id).Logger()
	return &child
}
