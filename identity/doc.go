// Package identity holds the in-memory record of the signed-in user and its optional
// persistence across process restarts.
//
// # Freshness
//
// The [Cache] is authoritative for the lifetime of the process. A profile loaded from a
// [Persister] is provisional: it lets a client render who was signed in last time, but it
// must be reconciled by a fresh fetch from the identity service before it backs any
// authorization decision. [Cache.Provisional] reports this state.
//
// # Binary encoding
//
// Persisted profiles use a compact versioned format ([Encode], [Decode]). Only profile
// fields are stored; tokens never leave the cookie jar.
//
// # What this package must NOT do
//
//   - Import goGuard, gate, or client (no upward imports).
//   - Perform network I/O from [Cache.Get] or [Cache.IsAuthenticated].
//   - Fail [Cache.Set] because persistence failed.
package identity
