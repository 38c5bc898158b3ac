// Copyright 2024 The vaultchain Authors
// This file is part of the vaultchain library.
//
// The vaultchain library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The vaultchain library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the vaultchain library. If not, see <http://www.gnu.org/licenses/>.

// Package log provides leveled, structured logging for the node's
// subsystems. It mirrors the call shape subsystems throughout this codebase
// expect: New(ctx...) returns a Logger bound to a set of key/value pairs,
// and Logger.Info/Warn/Error/Crit take a message plus further alternating
// key/value pairs.
package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/go-stack/stack"
	"github.com/mattn/go-colorable"
)

// Level is the severity of a log record, ordered least to most severe.
type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelCrit
)

var levelColor = map[Level]*color.Color{
	LevelTrace: color.New(color.FgHiBlack),
	LevelDebug: color.New(color.FgBlue),
	LevelInfo:  color.New(color.FgGreen),
	LevelWarn:  color.New(color.FgYellow),
	LevelError: color.New(color.FgRed),
	LevelCrit:  color.New(color.FgHiRed, color.Bold),
}

var levelName = map[Level]string{
	LevelTrace: "TRACE",
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
	LevelCrit:  "CRIT",
}

// Logger writes structured records bound to a fixed set of context pairs.
type Logger struct {
	handler *handler
	ctx     []any
}

var root = &Logger{handler: newHandler(colorable.NewColorableStderr(), LevelInfo)}

// Root returns the process-wide root logger.
func Root() *Logger { return root }

// SetLevel adjusts the minimum level the root logger emits.
func SetLevel(lvl Level) { root.handler.setLevel(lvl) }

// SetOutput redirects the root logger's writer (tests use this to capture
// output without touching stderr).
func SetOutput(w io.Writer) { root.handler.setOutput(w) }

// New returns a Logger bound to ctx, a flat list of alternating key/value
// pairs attached to every record it emits.
func New(ctx ...any) *Logger {
	return &Logger{handler: root.handler, ctx: ctx}
}

// With returns a child logger with additional bound context.
func (l *Logger) With(ctx ...any) *Logger {
	merged := make([]any, 0, len(l.ctx)+len(ctx))
	merged = append(merged, l.ctx...)
	merged = append(merged, ctx...)
	return &Logger{handler: l.handler, ctx: merged}
}

func (l *Logger) log(lvl Level, msg string, ctx []any) {
	l.handler.write(lvl, msg, l.ctx, ctx)
}

func (l *Logger) Trace(msg string, ctx ...any) { l.log(LevelTrace, msg, ctx) }
func (l *Logger) Debug(msg string, ctx ...any) { l.log(LevelDebug, msg, ctx) }
func (l *Logger) Info(msg string, ctx ...any)  { l.log(LevelInfo, msg, ctx) }
func (l *Logger) Warn(msg string, ctx ...any)  { l.log(LevelWarn, msg, ctx) }
func (l *Logger) Error(msg string, ctx ...any) { l.log(LevelError, msg, ctx) }
func (l *Logger) Crit(msg string, ctx ...any)  { l.log(LevelCrit, msg, ctx) }

// Package-level convenience functions operate on the root logger, matching
// the call shape used throughout this codebase's subsystems.
func Trace(msg string, ctx ...any) { root.log(LevelTrace, msg, ctx) }
func Debug(msg string, ctx ...any) { root.log(LevelDebug, msg, ctx) }
func Info(msg string, ctx ...any)  { root.log(LevelInfo, msg, ctx) }
func Warn(msg string, ctx ...any)  { root.log(LevelWarn, msg, ctx) }
func Error(msg string, ctx ...any) { root.log(LevelError, msg, ctx) }
func Crit(msg string, ctx ...any)  { root.log(LevelCrit, msg, ctx) }

type handler struct {
	lvl Level
	mu  sync.Mutex
	w   io.Writer
}

func newHandler(w io.Writer, lvl Level) *handler {
	return &handler{w: w, lvl: lvl}
}

func (h *handler) setLevel(lvl Level) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lvl = lvl
}

func (h *handler) setOutput(w io.Writer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.w = w
}

func (h *handler) write(lvl Level, msg string, bound, extra []any) {
	h.mu.Lock()
	cur, w := h.lvl, h.w
	h.mu.Unlock()
	if lvl < cur {
		return
	}

	var b strings.Builder
	c := levelColor[lvl]
	b.WriteString(c.Sprintf("%-5s", levelName[lvl]))
	b.WriteByte(' ')
	b.WriteString(msg)
	writePairs(&b, bound)
	writePairs(&b, extra)
	if lvl >= LevelWarn {
		if call := callerFrame(); call != "" {
			fmt.Fprintf(&b, " caller=%s", call)
		}
	}
	b.WriteByte('\n')

	h.mu.Lock()
	io.WriteString(w, b.String())
	h.mu.Unlock()

	if lvl == LevelCrit {
		os.Exit(1) //nolint: this mirrors the source's release-assert on a second fatal write failure
	}
}

func writePairs(b *strings.Builder, pairs []any) {
	for i := 0; i+1 < len(pairs); i += 2 {
		fmt.Fprintf(b, " %v=%v", pairs[i], pairs[i+1])
	}
}

// callerFrame captures the immediate caller outside of this package, using
// go-stack so Warn/Error/Crit records carry a call site without paying the
// cost of a full stack capture on every Info/Debug line.
func callerFrame() string {
	trace := stack.Trace().TrimRuntime()
	for _, c := range trace {
		s := fmt.Sprintf("%+v", c)
		if !strings.Contains(s, "vaultchain/log/") {
			return s
		}
	}
	return ""
}

// ctxKey keys a request/attempt-scoped logger stashed on a context.Context
// by WithContext; FromContext fetches it, falling back to Root() when none
// is present.
type ctxKey struct{}

func WithContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return root
}
