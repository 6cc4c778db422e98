// Package cookie owns the session cookies: their names, their attributes, and the
// two places they are read from: an inbound HTTP request at the edge, and a client
// cookie jar shared with the identity service client.
//
// # Session hint
//
// The access and refresh tokens are HTTP-only and opaque. [TokenStore.HasSession] only
// looks at the readable indicator cookie, so it can report true for a session the
// backend has already expired. A 401 or 403 from any authenticated call is the
// authoritative signal; callers react by calling [TokenStore.Clear].
//
// # What this package must NOT do
//
//   - Decode, verify, or construct tokens.
//   - Return errors or panic on missing cookies; absence is a valid state.
package cookie
