// Package role maps role names to bit positions and provides a compact role-set mask
// for authorization checks that must not allocate or perform I/O.
//
// # Architecture boundaries
//
// This package owns the name-to-bit registry and the [Mask] set type. It does NOT know
// where identities come from or how a failed check is surfaced; the gate and engine
// decide that.
//
// # What this package must NOT do
//
//   - Import goGuard, identity, or gate (no upward imports).
//   - Treat an unknown role name as matching anything.
package role
