package cli

import (
	"net/http"
	"time"

	"github.com/sethgrid/pester"
	log "github.com/sirupsen/logrus"

	slurm "github.com/slurmsdk/slurm-go-sdk"
	"github.com/slurmsdk/slurm-go-sdk/internal/config"
)

// newDoer returns a plain http.Client, or a pester client with exponential
// backoff when retries are configured. The SDK itself never retries.
func newDoer(cfg config.Config, logger *log.Logger) slurm.Doer {
	hc := &http.Client{Timeout: cfg.Timeout}
	if cfg.Retries == 0 {
		return hc
	}
	client := pester.NewExtendedClient(hc)
	client.Backoff = pester.ExponentialBackoff
	// pester counts the first attempt.
	client.MaxRetries = cfg.Retries + 1
	client.LogHook = func(e pester.ErrEntry) {
		logger.Warnf("Retrying after failed attempt: %+v", e)
	}
	return client
}

// logRequests logs each round trip at debug level.
func logRequests(logger *log.Logger) slurm.Middleware {
	return func(next slurm.Doer) slurm.Doer {
		return slurm.DoerFunc(func(req *http.Request) (*http.Response, error) {
			entry := logger.WithFields(log.Fields{"method": req.Method, "path": req.URL.Path})
			entry.Debug("request started")

			start := time.Now()
			resp, err := next.Do(req)
			entry = entry.WithField("duration", time.Since(start))
			if err != nil {
				entry.WithError(err).Debug("request failed")
				return resp, err
			}
			entry.WithField("status", resp.StatusCode).Debug("request completed")
			return resp, nil
		})
	}
}
