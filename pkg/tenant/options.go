package tenant

import (
	"net/http"
)

// ErrorHandler answers requests the middleware rejects.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Option configures Middleware.
type Option func(*config)

type config struct {
	errorHandler ErrorHandler
	skipPaths    []string
}

// WithErrorHandler replaces the default 401 response.
func WithErrorHandler(h ErrorHandler) Option {
	return func(c *config) {
		if h != nil {
			c.errorHandler = h
		}
	}
}

// WithSkipPaths lets requests whose path has one of the prefixes through
// without a tenant.
func WithSkipPaths(prefixes ...string) Option {
	return func(c *config) {
		c.skipPaths = append(c.skipPaths, prefixes...)
	}
}

func defaultErrorHandler(w http.ResponseWriter, _ *http.Request, _ error) {
	http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
}
