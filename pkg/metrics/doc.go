// Package metrics provides weft.Observer implementations: a Prometheus
// exporter for render, commit, and flush activity, and an OpenTelemetry
// tracer that emits one span per observed operation. Fanout combines them.
package metrics
