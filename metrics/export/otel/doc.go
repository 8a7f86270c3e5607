// Package otel publishes goAccount engine metrics through an OpenTelemetry
// meter.
//
// Each engine counter becomes an Int64ObservableCounter and each latency
// bucket an Int64ObservableGauge. One callback reads the engine snapshot per
// collection cycle. The caller owns the MeterProvider.
package otel
