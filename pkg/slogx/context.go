package slogx

import (
	"context"
	"log/slog"
	"sync"
)

type ctxKey struct{}

// scope is the per-request logging state. The access log line is written
// from the outside of the handler chain, so attributes learned further in
// (the caller) are recorded here as well as on the derived logger.
type scope struct {
	logger *slog.Logger

	mu     sync.Mutex
	caller []any
}

func (s *scope) callerAttrs() []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caller
}

// WithContext returns ctx carrying logger.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	s := &scope{logger: logger}
	if parent, ok := ctx.Value(ctxKey{}).(*scope); ok {
		s = &scope{logger: logger, caller: parent.callerAttrs()}
	}
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the request logger, or slog.Default outside a request.
func FromContext(ctx context.Context) *slog.Logger {
	if s, ok := ctx.Value(ctxKey{}).(*scope); ok {
		return s.logger
	}
	return slog.Default()
}

// WithUser tags the request logger with the resolved caller. The enclosing
// HTTPMiddleware picks the same attributes up for its access log line.
func WithUser(ctx context.Context, userID, role string) context.Context {
	attrs := []any{"user_id", userID, "role", role}

	s, ok := ctx.Value(ctxKey{}).(*scope)
	if !ok {
		return WithContext(ctx, slog.Default().With(attrs...))
	}
	s.mu.Lock()
	s.caller = attrs
	s.mu.Unlock()

	return context.WithValue(ctx, ctxKey{}, &scope{logger: s.logger.With(attrs...), caller: attrs})
}
