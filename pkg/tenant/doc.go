// Package tenant carries the authenticated tenant id through request contexts.
//
// Authentication itself happens upstream. The upstream collaborator places the
// tenant id on the request, typically as a header set by the auth proxy, and
// Middleware turns it into a context value:
//
//	r.Use(tenant.Middleware(tenant.NewHeaderResolver("X-Tenant-ID")))
//
//	func handle(w http.ResponseWriter, r *http.Request) {
//		id, ok := tenant.IDFromContext(r.Context())
//		...
//	}
//
// Requests without a resolvable tenant are answered with 401 unless a custom
// ErrorHandler is configured.
package tenant
