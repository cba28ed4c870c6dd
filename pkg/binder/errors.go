package binder

import "errors"

var (
	// ErrBinderNotApplicable means the request carries no body to bind.
	// handler.Wrap treats it as "nothing to do", not as a failure.
	ErrBinderNotApplicable = errors.New("binder: no request body")

	// The errors below map to 400 responses.
	ErrMissingContentType   = errors.New("binder: missing content type")
	ErrUnsupportedMediaType = errors.New("binder: unsupported media type")
	ErrFailedToParseJSON    = errors.New("binder: malformed JSON request body")
)
