// Package client talks to the identity service over HTTP.
//
// The service owns tokens: it sets and clears session cookies as a side effect of
// POST /auth/login and POST /auth/logout, and GET /users/me returns the current
// identity. The client never builds or inspects a token. Cookies live in the
// [http.CookieJar] of the underlying [http.Client], which is the same jar a
// cookie.JarStore reads the session indicator from.
//
// A 401 or 403 from an authenticated call is authoritative: the client returns
// [ErrUnauthorized] and invokes the OnUnauthorized hook so the caller can clear local
// session state.
package client
