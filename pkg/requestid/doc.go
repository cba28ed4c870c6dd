// Package requestid tags each HTTP request with a correlation id.
//
// Middleware reuses a well-formed X-Request-ID header or mints a UUID, echoes
// it in the response and stores it in the request context. LoggerExtractor
// plugs the id into pkg/logger so every record logged with the request
// context carries request_id, including the provider calls a billing action
// makes on the tenant's behalf.
package requestid
