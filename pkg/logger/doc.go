// Package logger builds *slog.Logger instances for billsync services.
//
// New returns a logger configured through functional options:
//
//	log := logger.New(
//		logger.WithEnvironment(cfg.Env, "billsync"),
//		logger.WithContextExtractors(tenant.LoggerExtractor()),
//	)
//
// Production and staging environments log JSON at info level; anything else is
// treated as development and logs text at debug level.
//
// Attributes whose key names a secret (tokens, one-time passwords, authorization
// headers) are replaced with "[REDACTED]" before they reach the output. The default
// key set is extended with WithRedactedKeys.
//
// Context extractors pull request-scoped values such as the tenant id out of the
// context passed to the *Context logging methods and attach them to each record.
package logger
