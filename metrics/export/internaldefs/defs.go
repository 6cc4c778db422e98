package internaldefs

import (
	goGuard "github.com/MrEthical07/goGuard"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   goGuard.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   goGuard.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goGuard.MetricGuardAllow, Name: "goguard_guard_allow_total", Help: "Navigations let through by the route guard."},
	{ID: goGuard.MetricGuardRedirectLogin, Name: "goguard_guard_redirect_login_total", Help: "Protected navigations redirected to the login page."},
	{ID: goGuard.MetricGuardRedirectHome, Name: "goguard_guard_redirect_home_total", Help: "Login page visits with a session redirected home."},
	{ID: goGuard.MetricIdentityFetchSuccess, Name: "goguard_identity_fetch_success_total", Help: "Successful identity fetches."},
	{ID: goGuard.MetricIdentityFetchFailure, Name: "goguard_identity_fetch_failure_total", Help: "Failed identity fetches."},
	{ID: goGuard.MetricSessionRejected, Name: "goguard_session_rejected_total", Help: "Sessions rejected by the identity service or an API."},
	{ID: goGuard.MetricLoginSuccess, Name: "goguard_login_success_total", Help: "Successful credential logins."},
	{ID: goGuard.MetricLoginFailure, Name: "goguard_login_failure_total", Help: "Failed credential logins."},
	{ID: goGuard.MetricLogout, Name: "goguard_logout_total", Help: "Explicit logouts."},
	{ID: goGuard.MetricTeardown, Name: "goguard_teardown_total", Help: "Local session teardowns."},
	{ID: goGuard.MetricProfileRestored, Name: "goguard_profile_restored_total", Help: "Bootstraps that restored a persisted profile."},
	{ID: goGuard.MetricGatePrompted, Name: "goguard_gate_prompted_total", Help: "Gated actions that raised an authentication prompt."},
	{ID: goGuard.MetricGateExecuted, Name: "goguard_gate_executed_total", Help: "Gated actions that ran."},
	{ID: goGuard.MetricGateReleased, Name: "goguard_gate_released_total", Help: "Gated actions abandoned before running."},
	{ID: goGuard.MetricCallbackSuccess, Name: "goguard_callback_success_total", Help: "Sign-in callbacks that produced an identity."},
	{ID: goGuard.MetricCallbackFailure, Name: "goguard_callback_failure_total", Help: "Sign-in callbacks that failed."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goGuard.MetricIdentityFetchLatency, Name: "goguard_identity_fetch_latency_seconds", Help: "Identity fetch latency histogram."},
}

// PromptsDroppedName is the counter for prompts lost to delivery backpressure.
const PromptsDroppedName = "goguard_prompts_dropped_total"

// PromptsDroppedHelp describes [PromptsDroppedName].
const PromptsDroppedHelp = "Gate prompts dropped because the delivery buffer was full."

// HistogramUpperBounds are the finite bucket bounds in seconds. The eighth bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf included, for exporters without native
// histogram buckets.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to eight buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
