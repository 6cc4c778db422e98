// Package goGuard is the session context of a client of an external identity service.
// It ties together a cookie token store, an identity cache, a route guard, and
// protected action gates, and gives them one explicit lifecycle: [Engine.Init] at
// bootstrap, [Engine.Refresh] and [Engine.Login] while running, [Engine.Teardown] on
// logout or rejection.
//
// Engine methods are safe to call from multiple goroutines after [Builder.Build].
//
// # Architecture boundaries
//
// goGuard is the public surface. It exposes [Engine], [Builder], [Config], and value
// types. Decision logic lives in the guard, gate and role packages, which never import
// goGuard.
//
// # Session model
//
// Tokens are opaque. The engine never decodes or validates a token; the readable
// indicator cookie is a hint, and a 401 or 403 from the identity service is the only
// authoritative signal. Any failure to confirm the session clears local state.
//
// # What this package must NOT do
//
//   - Construct, decode or persist tokens.
//   - Retain an identity after a failed fetch.
//   - Render prompts; gates publish descriptors to a sink.
package goGuard
