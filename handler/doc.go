// Package handler provides typed HTTP handlers.
//
// A handler receives a Context and a request value populated by binders, and
// returns a Response that renders itself:
//
//	type CancelRequest struct {
//		SubscriptionID string `json:"subscription_id"`
//	}
//
//	func cancel(ctx handler.Context, req CancelRequest) handler.Response {
//		if err := gateway.Cancel(ctx, tenantID, req.SubscriptionID); err != nil {
//			return handler.Error(err)
//		}
//		return handler.EmptyWithStatus(http.StatusAccepted)
//	}
//
//	r.Post("/billing/cancel", handler.Wrap(cancel,
//		handler.WithBinders[handler.Context, CancelRequest](binder.JSON()),
//		handler.WithErrorHandler[handler.Context, CancelRequest](errorHandler),
//	))
//
// Errors returned through Error, binder failures and render failures all reach
// the configured ErrorHandler. NewErrorHandler builds one that logs the error
// and answers with a JSON body whose status and key come from an HTTPError.
package handler
