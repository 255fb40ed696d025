package slurm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"time"

	"github.com/google/go-querystring/query"
)

const (
	jsonContentType = "application/json"

	// DefaultTimeout bounds a round trip when the Transport builds its own
	// http.Client.
	DefaultTimeout = 30 * time.Second
)

// Doer sends a single HTTP request. *http.Client satisfies it, as do
// retrying clients such as github.com/sethgrid/pester.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Transport performs exactly one JSON HTTP round trip per call and
// normalizes the outcome into a decoded JSON value or an [*Error].
//
// A Transport holds no per-request state and is safe for concurrent use.
type Transport struct {
	doer    Doer
	headers map[string]string
}

// NewTransport creates a Transport. Without [WithDoer] it sends requests
// through an http.Client bounded by [DefaultTimeout]. Middleware from
// [WithMiddleware] wraps whichever Doer is used.
func NewTransport(opts ...TransportOption) *Transport {
	cfg := resolveTransportConfig(opts)
	doer := cfg.doer
	if doer == nil {
		doer = &http.Client{Timeout: cfg.timeout}
	}
	return &Transport{
		doer:    Chain(doer, cfg.middleware...),
		headers: map[string]string{"Content-Type": jsonContentType},
	}
}

// Request issues method against rawURL. A non-nil data is JSON-encoded as the
// body. headers are applied after the default Content-Type header, so a
// caller value for the same key wins. params is encoded onto the query
// string; see [encodeParams] for the accepted shapes.
//
// The returned value is whatever the response body decodes to:
// map[string]any for objects, []any for arrays.
func (t *Transport) Request(ctx context.Context, method, rawURL string, data any, headers map[string]string, params any) (any, error) {
	var bodyReader io.Reader
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, requestError(fmt.Errorf("marshal request: %w", err))
		}
		bodyReader = bytes.NewReader(b)
	}

	target, err := withQuery(rawURL, params)
	if err != nil {
		return nil, requestError(err)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, requestError(err)
	}
	for _, layer := range []map[string]string{t.headers, headers} {
		for k, v := range layer {
			req.Header.Set(k, v)
		}
	}

	resp, err := t.doer.Do(req)
	if err != nil {
		return nil, requestError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, requestError(fmt.Errorf("read response: %w", err))
	}

	if ct := resp.Header.Get("Content-Type"); ct != jsonContentType {
		return nil, protocolError("Invalid Content-Type: %s", ct)
	}

	var result any
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, protocolError("Invalid JSON response: %s", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, remoteError(resp.StatusCode, result)
	}
	return result, nil
}

// Get performs an HTTP GET request.
func (t *Transport) Get(ctx context.Context, rawURL string, headers map[string]string, params any) (any, error) {
	return t.Request(ctx, http.MethodGet, rawURL, nil, headers, params)
}

// Post performs an HTTP POST request.
func (t *Transport) Post(ctx context.Context, rawURL string, data any, headers map[string]string) (any, error) {
	return t.Request(ctx, http.MethodPost, rawURL, data, headers, nil)
}

// Put performs an HTTP PUT request.
func (t *Transport) Put(ctx context.Context, rawURL string, data any, headers map[string]string) (any, error) {
	return t.Request(ctx, http.MethodPut, rawURL, data, headers, nil)
}

// Delete performs an HTTP DELETE request.
func (t *Transport) Delete(ctx context.Context, rawURL string, headers map[string]string) (any, error) {
	return t.Request(ctx, http.MethodDelete, rawURL, nil, headers, nil)
}

// withQuery appends the encoded params to rawURL. rawURL is returned
// untouched when there is nothing to add.
func withQuery(rawURL string, params any) (string, error) {
	values, err := encodeParams(params)
	if err != nil {
		return "", err
	}
	if len(values) == 0 {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for k, vs := range values {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// encodeParams turns params into query values. It accepts nil, url.Values,
// map[string]string, map[string]any and structs tagged for go-querystring.
// Nil entries in a map[string]any, including nil pointers, are left off the
// wire.
func encodeParams(params any) (url.Values, error) {
	switch p := params.(type) {
	case nil:
		return nil, nil
	case url.Values:
		return p, nil
	case map[string]string:
		values := make(url.Values, len(p))
		for k, v := range p {
			values.Set(k, v)
		}
		return values, nil
	case map[string]any:
		values := make(url.Values, len(p))
		for k, v := range p {
			if v == nil {
				continue
			}
			rv := reflect.ValueOf(v)
			if rv.Kind() == reflect.Pointer {
				if rv.IsNil() {
					continue
				}
				v = rv.Elem().Interface()
			}
			values.Set(k, fmt.Sprint(v))
		}
		return values, nil
	}
	values, err := query.Values(params)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	return values, nil
}
