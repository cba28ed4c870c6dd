package tenant

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Resolver extracts the tenant id from a request.
// It returns uuid.Nil and no error when the request carries no tenant.
type Resolver interface {
	Resolve(r *http.Request) (uuid.UUID, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(r *http.Request) (uuid.UUID, error)

func (f ResolverFunc) Resolve(r *http.Request) (uuid.UUID, error) {
	return f(r)
}

// HeaderResolver reads the tenant id from a request header.
type HeaderResolver struct {
	HeaderName string
}

// NewHeaderResolver defaults the header name to X-Tenant-ID.
func NewHeaderResolver(headerName string) *HeaderResolver {
	if headerName == "" {
		headerName = "X-Tenant-ID"
	}
	return &HeaderResolver{HeaderName: headerName}
}

func (h *HeaderResolver) Resolve(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(r.Header.Get(h.HeaderName))
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.Join(ErrInvalidIdentifier, err)
	}
	return id, nil
}
