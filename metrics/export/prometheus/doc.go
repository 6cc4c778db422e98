// Package prometheus exposes engine counters as a Prometheus collector.
//
// [PrometheusExporter] implements prometheus.Collector and can be registered with any
// registry; [PrometheusExporter.Handler] serves it from a private one. Counter names
// are goguard_*_total; the single histogram is goguard_identity_fetch_latency_seconds.
//
// # What this package must NOT do
//
//   - Register in the global default registry.
//   - Mutate engine state.
package prometheus
