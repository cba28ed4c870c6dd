package billing

import (
	"errors"
)

var (
	ErrMissingCredential    = errors.New("billing: tenant has no delegated credential")
	ErrAuthRejected         = errors.New("billing: provider rejected the delegated credential")
	ErrProviderUnavailable  = errors.New("billing: provider unavailable")
	ErrTimeout              = errors.New("billing: provider call timed out")
	ErrMalformedResponse    = errors.New("billing: malformed provider response")
	ErrProviderRejected     = errors.New("billing: provider rejected the action")
	ErrNoActiveSubscription = errors.New("billing: no active subscription")
	ErrRequiresOnboarding   = errors.New("billing: tenant must complete billing onboarding")
	ErrTenantNotFound       = errors.New("billing: tenant not found")
	ErrOTPConsumed          = errors.New("billing: one-time password already used")
	ErrBatchInProgress      = errors.New("billing: reconciliation batch already running")
	ErrStore                = errors.New("billing: tenant store failure")
)

// ErrorKind is a stable, log- and metric-safe name for an error class.
type ErrorKind string

const (
	KindNone                 ErrorKind = ""
	KindMissingCredential    ErrorKind = "missing_credential"
	KindAuthRejected         ErrorKind = "auth_rejected"
	KindProviderUnavailable  ErrorKind = "provider_unavailable"
	KindTimeout              ErrorKind = "timeout"
	KindMalformedResponse    ErrorKind = "malformed_response"
	KindProviderRejected     ErrorKind = "provider_rejected"
	KindNoActiveSubscription ErrorKind = "no_active_subscription"
	KindRequiresOnboarding   ErrorKind = "requires_onboarding"
	KindTenantNotFound       ErrorKind = "tenant_not_found"
	KindOTPConsumed          ErrorKind = "otp_consumed"
	KindBatchInProgress      ErrorKind = "batch_in_progress"
	KindStore                ErrorKind = "store"
	KindInternal             ErrorKind = "internal"
)

// Order matters: a timeout also matches ErrProviderUnavailable, and an
// onboarding error wraps ErrMissingCredential.
var kinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrTimeout, KindTimeout},
	{ErrRequiresOnboarding, KindRequiresOnboarding},
	{ErrMissingCredential, KindMissingCredential},
	{ErrAuthRejected, KindAuthRejected},
	{ErrProviderUnavailable, KindProviderUnavailable},
	{ErrMalformedResponse, KindMalformedResponse},
	{ErrProviderRejected, KindProviderRejected},
	{ErrNoActiveSubscription, KindNoActiveSubscription},
	{ErrTenantNotFound, KindTenantNotFound},
	{ErrOTPConsumed, KindOTPConsumed},
	{ErrBatchInProgress, KindBatchInProgress},
	{ErrStore, KindStore},
}

// KindOf classifies err. It returns KindNone for nil and KindInternal for
// errors outside the package taxonomy.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// IsProviderFailure reports whether err came from talking to the provider
// rather than from local state.
func IsProviderFailure(err error) bool {
	switch KindOf(err) {
	case KindAuthRejected, KindProviderUnavailable, KindTimeout, KindMalformedResponse, KindProviderRejected:
		return true
	}
	return false
}

func timeoutError(cause error) error {
	return errors.Join(ErrTimeout, ErrProviderUnavailable, cause)
}
