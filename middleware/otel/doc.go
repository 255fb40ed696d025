// Package otel provides OpenTelemetry middleware for the Slurm client.
//
// This package integrates with the OpenTelemetry SDK to provide distributed
// tracing and metrics for calls to the Slurm REST API. It creates a client
// span per HTTP round trip and records metrics via the OTel metrics API.
//
// # Tracing
//
// The [Tracing] middleware creates a span for every request with the method,
// path, host and response status, and injects the trace context into the
// outgoing headers:
//
//	client, err := slurm.NewClient(url, slurm.WithTransportOptions(
//	    slurm.WithMiddleware(otel.Tracing(otel.WithTracerProvider(tp))),
//	))
//
// # Metrics
//
// The [Metrics] middleware records request counters and duration
// histograms via the OTel metrics API:
//
//	slurm.WithMiddleware(otel.Metrics(otel.WithMeterProvider(mp)))
package otel
