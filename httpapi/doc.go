// Package httpapi exposes the account engine over HTTP with gin.
//
// Routes live under /api/v1/users. Request bodies are validated before they
// reach the engine, and every failure is rendered as
// {"status": "fail"|"error", "message": ...} with a status derived from the
// error class.
package httpapi
