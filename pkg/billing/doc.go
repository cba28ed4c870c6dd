// Package billing keeps each tenant's cached subscription status in sync with
// the external billing provider and runs user-triggered billing actions.
//
// The provider has no webhooks. Every query or mutation first exchanges the
// tenant's delegated API token for a one-time password (OTP), and that OTP
// authenticates exactly one follow-up call. The package is built from small
// collaborators:
//
//   - TokenVault yields a tenant's delegated credential (svc/tenantstore in production).
//   - OTPBroker exchanges the credential for an OTP (Client).
//   - StatusResolver spends an OTP on the active recurring services listing (Client).
//   - PersistenceSink stores the derived snapshot (svc/tenantstore).
//
// Reconciler composes them into ReconcileAll, the periodic batch that isolates
// per-tenant failures, and ReconcileTenant, the synchronous path that returns them.
// Gateway builds card-update and checkout redirects and disables auto-renewal.
// AccessGate answers "may this tenant use paid features" from the cached
// snapshot and fails open when the provider cannot be reached.
//
// A subscription is active when its next billing date is strictly after today
// in the configured location. Nothing else sets the active flag.
//
// Credentials and OTPs redact themselves in fmt and slog output and never
// appear in error messages.
package billing
