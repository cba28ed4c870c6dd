// Package httpserver runs an http.Handler with graceful shutdown.
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil {
//		return err
//	}
//
// Run blocks until ctx is cancelled (cmd/billsync derives ctx from
// signal.NotifyContext) or the listener fails, then drains in-flight requests
// for at most the shutdown timeout.
//
// Liveness and Readiness build the /healthz and /readyz probes.
package httpserver
