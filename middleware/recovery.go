package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime"

	slurm "github.com/slurmsdk/slurm-go-sdk"
)

// Recovery returns middleware that recovers from panics in downstream
// Doers and converts them to errors, which the Transport then reports as
// [slurm.ErrRequest]. Useful when plugging in custom or third-party clients.
//
// If a logger is provided, the panic value and stack trace are logged
// at ERROR level. Pass nil to disable panic logging.
func Recovery(logger *slog.Logger) slurm.Middleware {
	return func(next slurm.Doer) slurm.Doer {
		return slurm.DoerFunc(func(req *http.Request) (resp *http.Response, retErr error) {
			defer func() {
				if r := recover(); r != nil {
					buf := make([]byte, 4096)
					n := runtime.Stack(buf, false)

					if logger != nil {
						logger.LogAttrs(req.Context(), slog.LevelError, "doer panicked",
							slog.String("http.method", req.Method),
							slog.String("http.path", req.URL.Path),
							slog.Any("panic", r),
							slog.String("stack", string(buf[:n])),
						)
					}

					resp = nil
					retErr = fmt.Errorf("panic in %s %s: %v", req.Method, req.URL.Path, r)
				}
			}()
			return next.Do(req)
		})
	}
}
