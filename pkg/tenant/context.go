package tenant

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/billsync/pkg/logger"
)

type contextKey struct{}

// WithID returns a copy of ctx carrying the tenant id.
func WithID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IDFromContext returns the tenant id stored by WithID.
func IDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(contextKey{}).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// LoggerExtractor adds tenant_id to log records emitted with a tenant context.
func LoggerExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id, ok := IDFromContext(ctx); ok {
			return logger.TenantID(id.String()), true
		}
		return slog.Attr{}, false
	}
}
