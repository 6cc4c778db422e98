package goGuard

import (
	"sync/atomic"
	"time"
)

// MetricID identifies a counter in [Metrics].
type MetricID uint16

const (
	// MetricGuardAllow counts navigations let through.
	MetricGuardAllow MetricID = iota
	// MetricGuardRedirectLogin counts protected navigations without a session.
	MetricGuardRedirectLogin
	// MetricGuardRedirectHome counts login page visits with a session.
	MetricGuardRedirectHome
	// MetricIdentityFetchSuccess counts successful GET /users/me calls.
	MetricIdentityFetchSuccess
	// MetricIdentityFetchFailure counts failed identity fetches of any kind.
	MetricIdentityFetchFailure
	// MetricSessionRejected counts 401/403 responses from authenticated calls.
	MetricSessionRejected
	// MetricLoginSuccess counts successful logins.
	MetricLoginSuccess
	// MetricLoginFailure counts failed logins.
	MetricLoginFailure
	// MetricLogout counts explicit logouts.
	MetricLogout
	// MetricTeardown counts local session teardowns for any reason.
	MetricTeardown
	// MetricProfileRestored counts bootstraps that restored a persisted profile.
	MetricProfileRestored
	// MetricGatePrompted counts gate transitions into AwaitingAuth.
	MetricGatePrompted
	// MetricGateExecuted counts gated operations that ran.
	MetricGateExecuted
	// MetricGateReleased counts gated operations abandoned before running.
	MetricGateReleased
	// MetricCallbackSuccess counts sign-in callbacks that produced an identity.
	MetricCallbackSuccess
	// MetricCallbackFailure counts sign-in callbacks that did not.
	MetricCallbackFailure
	// MetricIdentityFetchLatency is the identity fetch latency histogram.
	MetricIdentityFetchLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a set of lock-free counters. A nil or disabled Metrics records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of [Metrics].
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates counters according to cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc increments id by one.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram of id. Only MetricIdentityFetchLatency has one.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricIdentityFetchLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current count of id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter, and the histogram when enabled.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricIdentityFetchLatency].buckets[i])
		}
		s.Histograms[MetricIdentityFetchLatency] = buckets
	}

	return s
}

// bucketIndex maps d to the 5/10/25/50/100/250/500ms/+Inf buckets.
func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
