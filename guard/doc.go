// Package guard decides the outcome of a navigation before any page code runs.
//
// [Rules.Decide] is a pure function of (path, hasSession):
//
//	path class   hasSession  outcome
//	login page   true        redirect to home
//	login page   false       allow
//	protected    true        allow
//	protected    false       redirect to login, from=<path>
//	neither      any         allow
//
// The login page is checked before the protected set, so a login path that also
// matches a protected pattern still receives the inverse treatment.
//
// # What this package must NOT do
//
//   - Read cookies or write responses (the middleware package does that).
//   - Return errors from Decide; an absent session is the safe default.
package guard
