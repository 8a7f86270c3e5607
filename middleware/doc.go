// Package middleware provides the gin middleware that fronts goAccount.Engine.
//
// Auth reads the bearer token, calls Engine.Validate and stores the resulting
// session on the gin context. RequestContext copies the request id, client IP
// and user agent onto the request context where the engine picks them up for
// throttling and audit records. The remaining middleware are transport
// hygiene: body size limits, per-IP request rate limits and security headers.
//
// Authentication decisions are never made here; they are delegated to the
// engine.
package middleware
