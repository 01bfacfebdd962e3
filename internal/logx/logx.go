// Package logx holds pslog helpers shared by the form stack and the terminal front end.
package logx

import (
	"context"
	"io"
	"strings"

	"pkt.systems/pslog"
)

type contextKey int

const tabKey contextKey = iota

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// OrDefault returns log, or the context-free default logger when log is nil.
func OrDefault(log pslog.Logger) pslog.Logger {
	if log == nil {
		return pslog.Ctx(context.Background())
	}
	return log
}

// WithTab annotates the logger with tab and form identifiers when present.
func WithTab(log pslog.Logger, tabID, formType string) pslog.Logger {
	log = OrDefault(log)
	if tabID != "" {
		log = log.With("tab", tabID)
	}
	if formType != "" {
		log = log.With("form", formType)
	}
	return log
}

// ContextWithTab stores the tab marker on the context.
func ContextWithTab(ctx context.Context, tabID string) context.Context {
	if ctx == nil || tabID == "" {
		return ctx
	}
	return context.WithValue(ctx, tabKey, tabID)
}

// TabFromContext returns the tab marker stored by ContextWithTab.
func TabFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(tabKey).(string)
	return id
}

// New builds a logger writing to w. Structured mode is used for files and
// tests, console mode for interactive stderr. Unknown level names fall back to info.
func New(w io.Writer, level string, structured bool) pslog.Logger {
	opts := pslog.Options{
		Mode:          pslog.ModeConsole,
		MinLevel:      pslog.InfoLevel,
		VerboseFields: true,
	}
	if structured {
		opts.Mode = pslog.ModeStructured
		opts.NoColor = true
	}
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		opts.MinLevel = pslog.TraceLevel
	case "debug":
		opts.MinLevel = pslog.DebugLevel
	case "error":
		opts.MinLevel = pslog.ErrorLevel
	}
	return pslog.NewWithOptions(w, opts)
}
