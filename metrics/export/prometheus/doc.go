// Package prometheus renders goAccount engine metrics in the Prometheus text
// exposition format.
//
// Counters are published as goaccount_*_total and bearer validation latency
// as goaccount_validate_latency_seconds. Nothing is registered globally;
// callers mount [Exporter.Handler] where they want it.
package prometheus
