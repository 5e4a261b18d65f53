package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5/middleware"
)

type ctxKey string

// RequestIDKey is the gRPC metadata key and context key carrying a request id.
const RequestIDKey = "x-request-id"

const reqIDKey ctxKey = RequestIDKey

// WithRequestID stores id in ctx for log correlation.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, reqIDKey, id)
}

// RequestID returns the request id carried by ctx, from a gRPC interceptor or the chi
// RequestID middleware. Empty when none.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(reqIDKey).(string); ok {
		return id
	}
	return middleware.GetReqID(ctx)
}

// ContextHandler is a slog.Handler that adds the request id from the context to every
// log record.
type ContextHandler struct {
	slog.Handler
}

// Handle adds request attributes before calling the underlying handler.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := RequestID(ctx); id != "" {
		r.AddAttrs(slog.String("request_id", id))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithGroup(name)}
}

// NewContextHandler returns a new slog.Handler that decorates logs with request ids.
func NewContextHandler(h slog.Handler) *ContextHandler {
	return &ContextHandler{Handler: h}
}

// NewLogger builds a JSON logger writing to w.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(NewContextHandler(handler)).With(slog.String("service", "canteen"))
}

// InitLogger initialises the global slog logger with a JSON handler on stderr.
func InitLogger() *slog.Logger {
	logger := NewLogger(os.Stderr, slog.LevelInfo)
	slog.SetDefault(logger)
	return logger
}

// Discard is a logger that drops everything. Used as the default for optional loggers.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
