// Package billingapi exposes the billing engine over HTTP.
//
// Routes are mounted on a chi router by API.Register. Tenant routes live under
// /billing and expect the tenant id in the request context, usually put there
// by tenant.Middleware. POST /internal/reconcile starts a full reconciliation
// in the background and is meant for a periodic trigger on the private network.
//
// Errors are rendered as JSON envelopes; Classify maps the billing error
// taxonomy to status codes and stable keys.
package billingapi
