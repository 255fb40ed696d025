package middleware

import (
	"log/slog"
	"net/http"
	"time"

	slurm "github.com/slurmsdk/slurm-go-sdk"
)

// Logging returns middleware that logs every HTTP round trip using the
// provided [slog.Logger]. Each request produces two log entries: one at start
// (DEBUG level) and one at completion (INFO when a response arrived, ERROR
// when the Doer failed).
//
// Log attributes include http.method, http.path and, on completion,
// http.status and duration_ms. Headers and query strings are never logged.
func Logging(logger *slog.Logger) slurm.Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next slurm.Doer) slurm.Doer {
		return slurm.DoerFunc(func(req *http.Request) (*http.Response, error) {
			ctx := req.Context()
			attrs := []slog.Attr{
				slog.String("http.method", req.Method),
				slog.String("http.path", req.URL.Path),
			}

			logger.LogAttrs(ctx, slog.LevelDebug, "request started", attrs...)

			start := time.Now()
			resp, err := next.Do(req)
			duration := time.Since(start)

			attrs = append(attrs, slog.Float64("duration_ms", float64(duration.Microseconds())/1000.0))

			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
				logger.LogAttrs(ctx, slog.LevelError, "request failed", attrs...)
				return resp, err
			}

			attrs = append(attrs, slog.Int("http.status", resp.StatusCode))
			logger.LogAttrs(ctx, slog.LevelInfo, "request completed", attrs...)
			return resp, nil
		})
	}
}
