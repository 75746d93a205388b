// Package logger sets up the process-wide slog logger.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
	"golang.org/x/term"

	"github.com/user/webconsole/internal/config"
)

type requestIDKey struct{}

// New returns a logger writing human-readable text to w when w is a
// terminal and JSON otherwise. With cfg.File set, records are also appended
// to that file as JSON. The returned close func releases the file.
func New(cfg config.Logging, w io.Writer) (*slog.Logger, func() error, error) {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handlers []slog.Handler
	if isTerminal(w) {
		handlers = append(handlers, slog.NewTextHandler(w, opts))
	} else {
		handlers = append(handlers, slog.NewJSONHandler(w, opts))
	}

	closeFn := func() error { return nil }
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file %q: %w", cfg.File, err)
		}
		handlers = append(handlers, slog.NewJSONHandler(f, opts))
		closeFn = f.Close
	}

	l := slog.New(&contextHandler{Handler: slogmulti.Fanout(handlers...)})
	if cfg.Service != "" {
		l = l.With("service", cfg.Service)
	}
	return l, closeFn, nil
}

// ParseLevel maps a level name to slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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

// WithRequestID stores a request id for handlers that log with a context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// contextHandler adds the request id carried by the context, if any.
type contextHandler struct {
	slog.Handler
}

func (h *contextHandler) Handle(ctx context.Context, record slog.Record) error {
	if id := RequestID(ctx); id != "" {
		record.AddAttrs(slog.String("request_id", id))
	}
	return h.Handler.Handle(ctx, record)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithGroup(name)}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
