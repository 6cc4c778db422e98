// Package middleware adapts a goGuard.Engine to net/http. Every constructor returns the
// chi-compatible func(http.Handler) http.Handler shape.
//
// # Middleware
//
//   - [RouteGuard]: page navigation. Redirects to the login page or home per the
//     engine's rules and writes security headers.
//   - [RequireSession]: API routes. 401 JSON envelope without a session indicator.
//   - [SecurityHeaders]: hardening headers only.
//   - [RequestID] and [Logging]: request correlation and access logs.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. Route decisions come from
// Engine.RouteDecision; cookie presence is read through the cookie package. It never
// fetches identities and never validates tokens.
package middleware
