/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package log provides centralized slog-based logging for the board.
// It wraps slog with a small configuration surface and a handler that enriches
// records with the common fields (component, op, board path).
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gorefcanvas/internal/version"

	// lumberjack is optional; used only if file logging is enabled
	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger initialization.
// Values can be provided directly or overlaid from the environment by FromEnv:
//   - GRC_LOG_LEVEL=debug|info|warn|error
//   - GRC_LOG_FORMAT=console|json
//   - GRC_LOG_FILE=<path> (enables file logging with rotation)
//   - GRC_LOG_SOURCE=true|false (include source)
//
// If File is set, a rotating file writer will be used.
// Defaults: INFO level, console format, no source.
type Options struct {
	Level     string
	Format    string // "console" or "json"
	AddSource bool
	File      string // optional path for file logging (rotated)
	// MaxSizeMB and MaxBackups tune the rotating writer; zero means 10 MB and 3 files.
	MaxSizeMB  int
	MaxBackups int
	// Writer replaces stderr for console output when set.
	Writer io.Writer
}

var (
	defaultLoggerMu sync.RWMutex
	defaultLogger   *slog.Logger
)

// L returns the default application logger, initializing from env if needed.
func L() *slog.Logger {
	defaultLoggerMu.RLock()
	l := defaultLogger
	defaultLoggerMu.RUnlock()
	if l != nil {
		return l
	}
	// lazy init from env
	Init(FromEnv(Options{Level: "info", Format: "console"}))
	defaultLoggerMu.RLock()
	l = defaultLogger
	defaultLoggerMu.RUnlock()
	return l
}

// Init configures the global logger and sets slog.Default as well.
func Init(opts Options) {
	lvl := parseLevel(opts.Level)
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "console"
	}

	out := opts.Writer
	if out == nil {
		out = os.Stderr
	}

	var handlers []slog.Handler
	var consoleHandler slog.Handler
	if format == "json" {
		consoleHandler = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: lvl, AddSource: opts.AddSource})
	} else {
		consoleHandler = &prettyTextHandler{opts: prettyOpts{Level: lvl, AddSource: opts.AddSource}, w: out}
	}
	handlers = append(handlers, withEnricher(consoleHandler))

	// Optional file handler with rotation
	if strings.TrimSpace(opts.File) != "" {
		size, backups := opts.MaxSizeMB, opts.MaxBackups
		if size <= 0 {
			size = 10
		}
		if backups <= 0 {
			backups = 3
		}
		w := &lj.Logger{Filename: opts.File, MaxSize: size, MaxBackups: backups, MaxAge: 28, Compress: true}
		fh := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl, AddSource: opts.AddSource})
		handlers = append(handlers, withEnricher(fh))
	}

	var h slog.Handler
	if len(handlers) == 1 {
		h = handlers[0]
	} else {
		h = multiHandler(handlers...)
	}

	logger := slog.New(h)
	// Attach static attrs
	logger = logger.With(
		slog.String("app", "gorefcanvas"),
		slog.String("ver", version.Version),
		slog.Time("ts_init", time.Now()),
	)

	defaultLoggerMu.Lock()
	defaultLogger = logger
	defaultLoggerMu.Unlock()
	slog.SetDefault(logger)
}

// Environment variables read by FromEnv.
const (
	EnvLevel  = "GRC_LOG_LEVEL"
	EnvFormat = "GRC_LOG_FORMAT"
	EnvSource = "GRC_LOG_SOURCE"
	EnvFile   = "GRC_LOG_FILE"
)

// FromEnv returns base with every logging variable set in the environment
// applied on top. Level and format are lower-cased; the source flag accepts
// 1, true, on and yes.
func FromEnv(base Options) Options {
	if v := envValue(EnvLevel); v != "" {
		base.Level = strings.ToLower(v)
	}
	if v := envValue(EnvFormat); v != "" {
		base.Format = strings.ToLower(v)
	}
	if v := envValue(EnvSource); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "on", "yes":
			base.AddSource = true
		default:
			base.AddSource = false
		}
	}
	if v := envValue(EnvFile); v != "" {
		base.File = v
	}
	return base
}

func envValue(key string) string { return strings.TrimSpace(os.Getenv(key)) }

// WithComponent returns a logger with the component attribute pre-set.
func WithComponent(name string) *slog.Logger { return L().With(slog.String("component", name)) }

// WithOperation annotates the logger with an operation name.
func WithOperation(l *slog.Logger, op string) *slog.Logger { return l.With(slog.String("op", op)) }

// parseLevel converts a string to slog.Level.
func parseLevel(s string) slog.Leveler {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// multiHandler fans out log records to multiple handlers.
func multiHandler(handlers ...slog.Handler) slog.Handler { return &multi{hs: handlers} }

type multi struct{ hs []slog.Handler }

func (m *multi) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.hs {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multi) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range m.hs {
		if err := h.Handle(ctx, r); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *multi) WithAttrs(attrs []slog.Attr) slog.Handler {
	res := make([]slog.Handler, len(m.hs))
	for i, h := range m.hs {
		res[i] = h.WithAttrs(attrs)
	}
	return &multi{hs: res}
}

func (m *multi) WithGroup(name string) slog.Handler {
	res := make([]slog.Handler, len(m.hs))
	for i, h := range m.hs {
		res[i] = h.WithGroup(name)
	}
	return &multi{hs: res}
}

// enricher adds common attributes and passes to the underlying handler.
func withEnricher(h slog.Handler) slog.Handler { return &enrich{next: h} }

type enrich struct{ next slog.Handler }

func (e *enrich) Enabled(ctx context.Context, level slog.Level) bool {
	return e.next.Enabled(ctx, level)
}

func (e *enrich) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		if p, ok := ctx.Value(boardKey{}).(string); ok && p != "" {
			r.AddAttrs(slog.String("board", p))
		}
	}
	return e.next.Handle(ctx, r)
}

type boardKey struct{}

// ContextWithBoard returns ctx carrying the board file path; records logged
// with that context gain a board attribute.
func ContextWithBoard(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, boardKey{}, path)
}

func (e *enrich) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &enrich{next: e.next.WithAttrs(attrs)}
}
func (e *enrich) WithGroup(name string) slog.Handler { return &enrich{next: e.next.WithGroup(name)} }

// prettyTextHandler is a minimal custom text handler for console output.
// It prints human-friendly, one-line logs: ts level msg key=val... and supports
// accumulating attributes and groups.

type prettyTextHandler struct {
	opts   prettyOpts
	w      io.Writer
	attrs  []slog.Attr
	groups []string
}

type prettyOpts struct {
	Level     slog.Leveler
	AddSource bool
}

func (h *prettyTextHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level()
}

func (h *prettyTextHandler) level() slog.Level {
	if h.opts.Level == nil {
		return slog.LevelInfo
	}
	switch v := h.opts.Level.(type) {
	case slog.Level:
		return v
	case *slog.LevelVar:
		return v.Level()
	default:
		return slog.LevelInfo
	}
}

func (h *prettyTextHandler) Handle(_ context.Context, r slog.Record) error {
	b := &strings.Builder{}
	b.Grow(256)
	b.WriteString(time.Now().Format(time.RFC3339))
	b.WriteString(" ")
	b.WriteString(levelString(r.Level))
	b.WriteString(" ")
	if r.Message != "" {
		b.WriteString(r.Message)
	}
	// base attrs
	keyPrefix := ""
	if len(h.groups) > 0 {
		keyPrefix = strings.Join(h.groups, ".") + "."
	}
	writeAttrs := func(attrs []slog.Attr) {
		for i, a := range attrs {
			if i == 0 && b.Len() > 0 {
				b.WriteString(" ")
			} else {
				b.WriteString(" ")
			}
			b.WriteString(keyPrefix)
			b.WriteString(a.Key)
			b.WriteString("=")
			b.WriteString(attrValueString(a.Value))
		}
	}
	if len(h.attrs) > 0 {
		writeAttrs(h.attrs)
	}
	var recAttrs []slog.Attr
	r.Attrs(func(a slog.Attr) bool {
		recAttrs = append(recAttrs, a)
		return true
	})
	if len(recAttrs) > 0 {
		writeAttrs(recAttrs)
	}
	if h.opts.AddSource {
		// Use a version-tolerant way to access source info. Newer Go versions
		// expose Record.Source() *slog.Source; older ones do not.
		if rw, ok := any(r).(interface{ Source() *slog.Source }); ok {
			if src := rw.Source(); src != nil {
				b.WriteString(" ")
				b.WriteString("src=")
				b.WriteString(src.File)
				b.WriteString(":")
				b.WriteString(strconv.FormatInt(int64(src.Line), 10))
			}
		}
	}
	b.WriteString("\n")
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *prettyTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	na := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	na = append(na, h.attrs...)
	na = append(na, attrs...)
	return &prettyTextHandler{opts: h.opts, w: h.w, attrs: na, groups: append([]string(nil), h.groups...)}
}

func (h *prettyTextHandler) WithGroup(name string) slog.Handler {
	ng := append([]string(nil), h.groups...)
	ng = append(ng, name)
	return &prettyTextHandler{opts: h.opts, w: h.w, attrs: append([]slog.Attr(nil), h.attrs...), groups: ng}
}

func levelString(l slog.Level) string {
	switch l {
	case slog.LevelDebug:
		return "DBG"
	case slog.LevelInfo:
		return "INF"
	case slog.LevelWarn:
		return "WRN"
	case slog.LevelError:
		return "ERR"
	default:
		return l.String()
	}
}

func attrValueString(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindFloat64:
		return strings.TrimRight(strings.TrimRight(strconv.FormatFloat(v.Float64(), 'f', -1, 64), "0"), ".")
	case slog.KindBool:
		if v.Bool() {
			return "true"
		}
		return "false"
	default:
		return v.String()
	}
}
