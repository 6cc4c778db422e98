// Package identitytest is an in-memory identity service for tests and local
// development. It speaks the same cookie contract as a real backend: login sets an
// HTTP-only JWT access cookie, an opaque refresh cookie and the readable session
// indicator; logout clears them; GET /users/me resolves the access cookie.
package identitytest
