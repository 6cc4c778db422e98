// Package gate wraps a user-triggered operation so it runs only when the current
// identity satisfies an authentication and role requirement.
//
// A [Gate] moves through four states:
//
//	Idle ──Invoke──▶ Checking ──pass──▶ Executing ──done──▶ Idle
//	                    │
//	                  fail
//	                    ▼
//	              AwaitingAuth ──Resume──▶ Checking
//	                    │
//	      Dismiss / Release / ctx done
//	                    ▼
//	                  Idle
//
// The wrapped operation is invoked at most once per Invoke. While a gate is not idle a
// second Invoke is rejected with [ErrBusy]. Failed checks never render anything: they
// publish a [Prompt] descriptor to a [PromptSink] and wait.
//
// # What this package must NOT do
//
//   - Perform network I/O itself; identity comes from a [Resolver].
//   - Execute an operation from a state other than Executing.
//   - Trust a role set that was not re-resolved on Resume.
package gate
