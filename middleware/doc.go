// Package middleware provides pre-built [slurm.Middleware] for the Slurm
// client's HTTP layer.
//
// Middleware wraps the [slurm.Doer] a Transport sends requests through and is
// installed with [slurm.WithMiddleware]:
//
//	client, err := slurm.NewClient(url, slurm.WithTransportOptions(
//	    slurm.WithMiddleware(
//	        middleware.Recovery(slog.Default()),
//	        middleware.Logging(slog.Default()),
//	    ),
//	))
//
// # Logging
//
// The [Logging] middleware emits structured log entries via [log/slog] for every
// round trip, including method, path, status, duration and error (if any).
// The core SDK never logs on its own.
//
// # Recovery
//
// The [Recovery] middleware catches panics in downstream Doers and converts
// them to errors.
//
// # Metrics
//
// The [Metrics] middleware reports request metrics via the [MetricsRecorder]
// interface. The otel subpackage provides an OpenTelemetry implementation.
package middleware
