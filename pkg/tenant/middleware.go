package tenant

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Middleware resolves the tenant id and stores it in the request context.
// Requests without a valid tenant id go to the error handler.
func Middleware(resolver Resolver, opts ...Option) func(http.Handler) http.Handler {
	if resolver == nil {
		panic("tenant: middleware requires a resolver")
	}

	cfg := &config{errorHandler: defaultErrorHandler}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range cfg.skipPaths {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			id, err := resolver.Resolve(r)
			if err != nil {
				cfg.errorHandler(w, r, err)
				return
			}
			if id == uuid.Nil {
				cfg.errorHandler(w, r, ErrNoTenantInContext)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithID(r.Context(), id)))
		})
	}
}
