package middleware

import (
	"net/http"
	"time"

	slurm "github.com/slurmsdk/slurm-go-sdk"
)

// MetricsRecorder is the interface for recording HTTP client metrics.
// Implement this interface to connect any metrics backend (Prometheus,
// OpenTelemetry, StatsD, etc.).
type MetricsRecorder interface {
	// RequestStarted is called before the request is sent.
	RequestStarted(method, path string)

	// RequestCompleted is called when a response arrived, whatever its status.
	RequestCompleted(method, path string, status int, duration time.Duration)

	// RequestFailed is called when no response arrived.
	RequestFailed(method, path string, duration time.Duration)
}

// Metrics returns middleware that records request metrics via the provided
// [MetricsRecorder]. It tracks starts, completions, failures and round-trip
// duration.
func Metrics(recorder MetricsRecorder) slurm.Middleware {
	return func(next slurm.Doer) slurm.Doer {
		return slurm.DoerFunc(func(req *http.Request) (*http.Response, error) {
			method, path := req.Method, req.URL.Path
			recorder.RequestStarted(method, path)

			start := time.Now()
			resp, err := next.Do(req)
			duration := time.Since(start)

			if err != nil {
				recorder.RequestFailed(method, path, duration)
			} else {
				recorder.RequestCompleted(method, path, resp.StatusCode, duration)
			}

			return resp, err
		})
	}
}
