package billing

import (
	"context"

	"github.com/google/uuid"
)

// TokenVault is read-only access to tenants' delegated credentials.
type TokenVault interface {
	// GetCredential returns ErrTenantNotFound for unknown tenants and
	// ErrMissingCredential when the tenant has no usable token.
	GetCredential(ctx context.Context, tenantID uuid.UUID) (Credential, error)
	// ListCredentialedTenants returns only tenants holding a token.
	ListCredentialedTenants(ctx context.Context) ([]uuid.UUID, error)
}

// PersistenceSink stores reconciliation snapshots.
type PersistenceSink interface {
	// Upsert writes the snapshot fields only. It returns ErrTenantNotFound
	// when no tenant row matches.
	Upsert(ctx context.Context, tenantID uuid.UUID, snap Snapshot) error
}

// StatusReader reads cached tenant billing state.
type StatusReader interface {
	GetState(ctx context.Context, tenantID uuid.UUID) (TenantState, error)
}

// OTPBroker exchanges a delegated API token for a one-time password.
// It performs one request and never retries.
type OTPBroker interface {
	Exchange(ctx context.Context, apiToken string) (*OneTimePassword, error)
}

// StatusResolver spends an OTP on the provider's active recurring services listing.
type StatusResolver interface {
	Resolve(ctx context.Context, otp *OneTimePassword) (*Status, error)
}

// RecurringCanceller spends an OTP on disabling a recurring service's auto-renewal.
type RecurringCanceller interface {
	DisableAutoRenew(ctx context.Context, otp *OneTimePassword, req CancelRequest) error
}
