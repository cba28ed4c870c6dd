package billingapi

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/billsync/handler"
	"github.com/dmitrymomot/billsync/pkg/billing"
)

var (
	ErrBillingNotConfigured = handler.NewHTTPError(http.StatusConflict, "billing_not_configured")
	ErrNoActiveSubscription = handler.NewHTTPError(http.StatusConflict, "no_active_subscription")
	ErrRequiresOnboarding   = handler.NewHTTPError(http.StatusConflict, "requires_onboarding")
	ErrBillingAuthRejected  = handler.NewHTTPError(http.StatusBadGateway, "billing_auth_rejected")
	ErrBillingBadResponse   = handler.NewHTTPError(http.StatusBadGateway, "billing_bad_response")
	ErrBillingUnavailable   = handler.NewHTTPError(http.StatusServiceUnavailable, "billing_unavailable")
	ErrBillingTimeout       = handler.NewHTTPError(http.StatusGatewayTimeout, "billing_timeout")
	ErrActionRejected       = handler.NewHTTPError(http.StatusUnprocessableEntity, "billing_action_rejected")
	ErrTenantNotFound       = handler.NewHTTPError(http.StatusNotFound, "tenant_not_found")
	ErrReconcileInProgress  = handler.NewHTTPError(http.StatusConflict, "reconcile_in_progress")
)

var kindErrors = map[billing.ErrorKind]handler.HTTPError{
	billing.KindMissingCredential:    ErrBillingNotConfigured,
	billing.KindNoActiveSubscription: ErrNoActiveSubscription,
	billing.KindRequiresOnboarding:   ErrRequiresOnboarding,
	billing.KindAuthRejected:         ErrBillingAuthRejected,
	billing.KindMalformedResponse:    ErrBillingBadResponse,
	billing.KindProviderUnavailable:  ErrBillingUnavailable,
	billing.KindTimeout:              ErrBillingTimeout,
	billing.KindProviderRejected:     ErrActionRejected,
	billing.KindTenantNotFound:       ErrTenantNotFound,
	billing.KindBatchInProgress:      ErrReconcileInProgress,
}

// Classify maps err to the HTTPError sent to the client. HTTP errors already
// in the chain win over billing kinds.
func Classify(err error) handler.HTTPError {
	var httpErr handler.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	if e, ok := kindErrors[billing.KindOf(err)]; ok {
		return e
	}
	return handler.ErrInternalServerError
}
