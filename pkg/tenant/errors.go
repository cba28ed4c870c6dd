package tenant

import "errors"

var (
	ErrInvalidIdentifier = errors.New("invalid tenant identifier")
	ErrNoTenantInContext = errors.New("no tenant in context")
)
