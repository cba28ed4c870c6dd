package handler

import (
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/billsync/pkg/logger"
)

// Classifier maps an error to the HTTPError sent to the client.
type Classifier func(err error) HTTPError

// errorResponse defers rendering to the ErrorHandler configured on Wrap.
type errorResponse struct {
	err error
}

func (e errorResponse) Render(w http.ResponseWriter, _ *http.Request) error {
	httpErr := AsHTTPError(e.err)
	http.Error(w, httpErr.Key, httpErr.Code)
	return nil
}

// Error returns a Response that hands err to the ErrorHandler.
func Error(err error) Response {
	return errorResponse{err: err}
}

// NewErrorHandler logs err and writes a JSON error body. Client errors log at
// warn, server errors at error. A nil classify uses AsHTTPError.
func NewErrorHandler(log *slog.Logger, classify Classifier) ErrorHandler[Context] {
	if log == nil {
		log = slog.Default()
	}
	if classify == nil {
		classify = AsHTTPError
	}

	return func(ctx Context, err error) {
		httpErr := classify(err)

		level := slog.LevelError
		if httpErr.Code < http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		r := ctx.Request()
		log.LogAttrs(r.Context(), level, "request failed",
			logger.Component("http"),
			logger.Error(err),
			slog.Int("status", httpErr.Code),
			slog.String("key", httpErr.Key),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)

		if renderErr := JSONError(httpErr).Render(ctx.ResponseWriter(), r); renderErr != nil {
			log.ErrorContext(r.Context(), "failed to render error response", logger.Error(renderErr))
		}
	}
}
