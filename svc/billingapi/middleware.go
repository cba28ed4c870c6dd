package billingapi

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/dmitrymomot/billsync/handler"
	"github.com/dmitrymomot/billsync/pkg/tenant"
)

// Gate decides whether a tenant may use paid features. *billing.AccessGate
// implements it.
type Gate interface {
	Allow(ctx context.Context, tenantID uuid.UUID) bool
}

// RequireActiveSubscription answers 402 when gate denies the tenant in the
// request context and 401 when there is none.
func RequireActiveSubscription(gate Gate) func(http.Handler) http.Handler {
	if gate == nil {
		panic("billingapi: gate cannot be nil")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := tenant.IDFromContext(r.Context())
			if !ok {
				_ = handler.JSONError(handler.ErrUnauthorized).Render(w, r)
				return
			}
			if !gate.Allow(r.Context(), id) {
				_ = handler.JSONError(handler.ErrPaymentRequired).Render(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
