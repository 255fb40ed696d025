package otel

import (
	"fmt"
	"net/http"
	"time"

	slurm "github.com/slurmsdk/slurm-go-sdk"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/slurmsdk/slurm-go-sdk/middleware/otel"

// --- Options ---

// Option configures the OTel middleware.
type Option func(*config)

type config struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	propagator     propagation.TextMapPropagator
}

// WithTracerProvider sets a custom TracerProvider. Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) { c.tracerProvider = tp }
}

// WithMeterProvider sets a custom MeterProvider. Defaults to the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *config) { c.meterProvider = mp }
}

// WithPropagator sets the propagator used to inject trace context into
// outgoing headers. Defaults to the global propagator.
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(c *config) { c.propagator = p }
}

func resolve(opts []Option) config {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// --- Tracing Middleware ---

// Tracing returns middleware that creates a client span for every request
// and injects the trace context into the request headers.
//
// Span attributes include:
//   - http.request.method
//   - url.path
//   - server.address
//   - http.response.status_code (when a response arrived)
//
// The span status is Error when the Doer fails or the status is 400 or above.
func Tracing(opts ...Option) slurm.Middleware {
	cfg := resolve(opts)
	tp := cfg.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	prop := cfg.propagator
	if prop == nil {
		prop = otel.GetTextMapPropagator()
	}
	tracer := tp.Tracer(instrumentationName)

	return func(next slurm.Doer) slurm.Doer {
		return slurm.DoerFunc(func(req *http.Request) (*http.Response, error) {
			spanCtx, span := tracer.Start(req.Context(),
				fmt.Sprintf("slurm %s", req.Method),
				trace.WithSpanKind(trace.SpanKindClient),
				trace.WithAttributes(requestAttributes(req)...),
			)
			defer span.End()

			req = req.Clone(spanCtx)
			prop.Inject(spanCtx, propagation.HeaderCarrier(req.Header))

			resp, err := next.Do(req)
			switch {
			case err != nil:
				span.SetStatus(codes.Error, err.Error())
				span.RecordError(err)
			case resp.StatusCode >= 400:
				span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
				span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
			default:
				span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
				span.SetStatus(codes.Ok, "")
			}
			return resp, err
		})
	}
}

// --- Metrics Middleware ---

// Metrics returns middleware that records request metrics via OTel.
//
// Recorded instruments:
//   - slurm.client.requests (counter): incremented for every request
//   - slurm.client.errors (counter): transport failures and statuses >= 400
//   - slurm.client.duration (histogram, milliseconds): round-trip duration
func Metrics(opts ...Option) slurm.Middleware {
	cfg := resolve(opts)
	mp := cfg.meterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	requests, _ := meter.Int64Counter("slurm.client.requests",
		metric.WithDescription("Number of requests sent"),
	)
	failures, _ := meter.Int64Counter("slurm.client.errors",
		metric.WithDescription("Number of requests that failed or returned an error status"),
	)
	duration, _ := meter.Float64Histogram("slurm.client.duration",
		metric.WithDescription("Request round-trip duration in milliseconds"),
		metric.WithUnit("ms"),
	)

	return func(next slurm.Doer) slurm.Doer {
		return slurm.DoerFunc(func(req *http.Request) (*http.Response, error) {
			ctx := req.Context()
			attrs := []attribute.KeyValue{attribute.String("http.request.method", req.Method)}

			start := time.Now()
			resp, err := next.Do(req)
			durationMS := float64(time.Since(start).Microseconds()) / 1000.0

			if resp != nil {
				attrs = append(attrs, attribute.Int("http.response.status_code", resp.StatusCode))
			}
			set := metric.WithAttributes(attrs...)

			requests.Add(ctx, 1, set)
			duration.Record(ctx, durationMS, set)
			if err != nil || resp.StatusCode >= 400 {
				failures.Add(ctx, 1, set)
			}

			return resp, err
		})
	}
}

// requestAttributes returns the standard OTel attributes for a request.
func requestAttributes(req *http.Request) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("http.request.method", req.Method),
		attribute.String("url.path", req.URL.Path),
		attribute.String("server.address", req.URL.Hostname()),
	}
}
