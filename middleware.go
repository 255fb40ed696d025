package slurm

import "net/http"

// DoerFunc adapts an ordinary function to the [Doer] interface.
type DoerFunc func(*http.Request) (*http.Response, error)

// Do calls f(req).
func (f DoerFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Middleware wraps a Doer with cross-cutting concerns such as logging or
// tracing. It follows the standard Go middleware pattern (onion model).
//
// Example:
//
//	func userAgent(next slurm.Doer) slurm.Doer {
//	    return slurm.DoerFunc(func(req *http.Request) (*http.Response, error) {
//	        req.Header.Set("User-Agent", "my-app/1.0")
//	        return next.Do(req)
//	    })
//	}
type Middleware func(next Doer) Doer

// Chain wraps d with mw. mw[0] is the outermost layer and sees the request
// first.
func Chain(d Doer, mw ...Middleware) Doer {
	for i := len(mw) - 1; i >= 0; i-- {
		d = mw[i](d)
	}
	return d
}
