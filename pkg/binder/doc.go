// Package binder decodes HTTP request bodies into typed request structs for
// the handler package.
//
//	http.Handle("/billing/cancel", handler.Wrap(cancel,
//		handler.WithBinders[handler.Context, CancelRequest](binder.JSON()),
//	))
//
// JSON rejects unknown fields, trailing data and bodies above DefaultMaxJSONSize,
// and trims surrounding whitespace from every decoded string.
// A request without a body yields ErrBinderNotApplicable, which Wrap skips.
package binder
