// Package logging provides structured logging for the auth service.
//
// It wraps log/slog with service-wide defaults: configurable level and
// format (JSON or text), a default service/version attribute pair, and a
// With helper for per-component loggers.
//
// Authentication failures are logged at warn with the claimed subject and
// token record id so revocation decisions can be audited; secrets and raw
// tokens are never logged.
package logging
