package slurm

import (
	"time"
)

// --- Transport Options ---

// transportConfig holds the resolved configuration for a Transport.
type transportConfig struct {
	doer       Doer
	timeout    time.Duration
	middleware []Middleware
}

// TransportOption configures a [Transport].
type TransportOption func(*transportConfig)

// WithDoer sets the HTTP client used to send requests. Retry, pooling and
// proxy policy all belong to the Doer. When set, [WithTimeout] is ignored.
func WithDoer(doer Doer) TransportOption {
	return func(c *transportConfig) {
		c.doer = doer
	}
}

// WithTimeout sets the round-trip timeout of the default http.Client.
// Default: 30 seconds.
func WithTimeout(d time.Duration) TransportOption {
	return func(c *transportConfig) {
		c.timeout = d
	}
}

// WithMiddleware wraps the Doer with mw. The first middleware is the
// outermost. See the middleware package for logging, metrics and
// OpenTelemetry.
func WithMiddleware(mw ...Middleware) TransportOption {
	return func(c *transportConfig) {
		c.middleware = append(c.middleware, mw...)
	}
}

func resolveTransportConfig(opts []TransportOption) transportConfig {
	cfg := transportConfig{
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// --- Client Options ---

// clientConfig holds the resolved configuration for a Client.
type clientConfig struct {
	accessToken   string
	transport     *Transport
	transportOpts []TransportOption
}

// ClientOption configures the Slurm client.
type ClientOption func(*clientConfig)

// WithAccessToken sets the initial bearer token. It can be changed later
// with [Client.SetAccessToken].
func WithAccessToken(token string) ClientOption {
	return func(c *clientConfig) {
		c.accessToken = token
	}
}

// WithTransport makes the client send every call through t. It takes
// precedence over [WithTransportOptions].
func WithTransport(t *Transport) ClientOption {
	return func(c *clientConfig) {
		c.transport = t
	}
}

// WithTransportOptions configures the Transport the client builds for
// itself.
func WithTransportOptions(opts ...TransportOption) ClientOption {
	return func(c *clientConfig) {
		c.transportOpts = append(c.transportOpts, opts...)
	}
}
