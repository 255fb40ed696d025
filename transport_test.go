package slurm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"
)

func jsonServer(t *testing.T, status int, contentType, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func asError(t *testing.T, err error) *Error {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var sErr *Error
	if !errors.As(err, &sErr) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	return sErr
}

func TestRequestValidJSONResponse(t *testing.T) {
	server := jsonServer(t, http.StatusOK, "application/json", `{"key":"value"}`)

	result, err := NewTransport().Request(context.Background(), http.MethodGet, server.URL, nil, nil, nil)
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	want := map[string]any{"key": "value"}
	if !reflect.DeepEqual(result, want) {
		t.Errorf("result = %v, want %v", result, want)
	}
}

func TestRequestJSONArrayResponse(t *testing.T) {
	server := jsonServer(t, http.StatusOK, "application/json", `[{"id":1},{"id":2}]`)

	result, err := NewTransport().Get(context.Background(), server.URL, nil, nil)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	list, ok := result.([]any)
	if !ok || len(list) != 2 {
		t.Fatalf("expected 2-element list, got %#v", result)
	}
}

func TestRequestValidJSONErrorResponse(t *testing.T) {
	server := jsonServer(t, http.StatusBadRequest, "application/json", `{"key":"value"}`)

	_, err := NewTransport().Request(context.Background(), http.MethodGet, server.URL, nil, nil, nil)
	sErr := asError(t, err)
	if sErr.Kind != KindRemote {
		t.Errorf("Kind = %v, want %v", sErr.Kind, KindRemote)
	}
	if sErr.Message != "400" {
		t.Errorf("Message = %q, want %q", sErr.Message, "400")
	}
	if sErr.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d, want 400", sErr.StatusCode)
	}
	if !reflect.DeepEqual(sErr.Data, map[string]any{"key": "value"}) {
		t.Errorf("Data = %v", sErr.Data)
	}
	if !errors.Is(err, ErrRemote) {
		t.Error("expected errors.Is(err, ErrRemote)")
	}
	if StatusCode(err) != 400 {
		t.Errorf("StatusCode(err) = %d, want 400", StatusCode(err))
	}
	if !reflect.DeepEqual(ErrorData(err), map[string]any{"key": "value"}) {
		t.Errorf("ErrorData(err) = %v", ErrorData(err))
	}
}

func TestRequestServerErrorIsRemote(t *testing.T) {
	server := jsonServer(t, http.StatusServiceUnavailable, "application/json", `{"error":"down"}`)

	_, err := NewTransport().Get(context.Background(), server.URL, nil, nil)
	if sErr := asError(t, err); sErr.Message != "503" {
		t.Errorf("Message = %q, want 503", sErr.Message)
	}
}

func TestRequestConnectionError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	target := server.URL + "/jobs"
	server.Close()

	_, err := NewTransport().Request(context.Background(), http.MethodGet, target, nil, nil, nil)
	sErr := asError(t, err)
	if sErr.Kind != KindRequest {
		t.Errorf("Kind = %v, want %v", sErr.Kind, KindRequest)
	}
	if !strings.Contains(sErr.Message, target) {
		t.Errorf("Message %q does not contain URL %q", sErr.Message, target)
	}
	if sErr.Data != nil {
		t.Errorf("Data = %v, want nil", sErr.Data)
	}
	if !errors.Is(err, ErrRequest) {
		t.Error("expected errors.Is(err, ErrRequest)")
	}
}

func TestRequestCancelledContext(t *testing.T) {
	server := jsonServer(t, http.StatusOK, "application/json", `{}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewTransport().Get(ctx, server.URL, nil, nil)
	if !errors.Is(err, ErrRequest) {
		t.Fatalf("expected ErrRequest, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected wrapped context.Canceled, got %v", err)
	}
}

func TestRequestInvalidContentType(t *testing.T) {
	server := jsonServer(t, http.StatusOK, "plain/text", "")

	_, err := NewTransport().Request(context.Background(), http.MethodGet, server.URL, nil, nil, nil)
	sErr := asError(t, err)
	if sErr.Kind != KindProtocol {
		t.Errorf("Kind = %v, want %v", sErr.Kind, KindProtocol)
	}
	if sErr.Message != "Invalid Content-Type: plain/text" {
		t.Errorf("Message = %q", sErr.Message)
	}
}

func TestRequestContentTypeWithCharsetRejected(t *testing.T) {
	server := jsonServer(t, http.StatusOK, "application/json; charset=utf-8", `{}`)

	_, err := NewTransport().Get(context.Background(), server.URL, nil, nil)
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("expected ErrProtocol, got %v", err)
	}
}

func TestRequestContentTypeCheckedBeforeStatus(t *testing.T) {
	server := jsonServer(t, http.StatusInternalServerError, "text/html", "<h1>oops</h1>")

	_, err := NewTransport().Get(context.Background(), server.URL, nil, nil)
	if sErr := asError(t, err); sErr.Kind != KindProtocol {
		t.Errorf("Kind = %v, want %v", sErr.Kind, KindProtocol)
	}
}

func TestRequestNonJSONResponse(t *testing.T) {
	server := jsonServer(t, http.StatusOK, "application/json", "response body")

	_, err := NewTransport().Request(context.Background(), http.MethodGet, server.URL, nil, nil, nil)
	sErr := asError(t, err)
	if sErr.Kind != KindProtocol {
		t.Errorf("Kind = %v, want %v", sErr.Kind, KindProtocol)
	}
	if !strings.Contains(sErr.Message, "Invalid JSON response") {
		t.Errorf("Message = %q", sErr.Message)
	}
}

func TestRequestSendsJSONBody(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{}`)
	}))
	defer server.Close()

	data := map[string]any{"header": "value"}
	if _, err := NewTransport().Request(context.Background(), http.MethodGet, server.URL, data, nil, nil); err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if !reflect.DeepEqual(got, data) {
		t.Errorf("body = %v, want %v", got, data)
	}
}

func TestRequestNoBodyWithoutData(t *testing.T) {
	var gotLen int64 = -1
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotLen = int64(len(b))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{}`)
	}))
	defer server.Close()

	if _, err := NewTransport().Post(context.Background(), server.URL, nil, nil); err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	if gotLen != 0 {
		t.Errorf("expected empty body, got %d bytes", gotLen)
	}
}

func TestRequestHeaders(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{}`)
	}))
	defer server.Close()

	tr := NewTransport()
	if _, err := tr.Request(context.Background(), http.MethodGet, server.URL, nil, map[string]string{"header": "value"}, nil); err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if got.Get("header") != "value" {
		t.Errorf("header = %q, want value", got.Get("header"))
	}
	if got.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got.Get("Content-Type"))
	}

	// Caller headers are layered over the defaults.
	if _, err := tr.Request(context.Background(), http.MethodGet, server.URL, nil, map[string]string{"content-type": "application/x-custom"}, nil); err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if got.Get("Content-Type") != "application/x-custom" {
		t.Errorf("Content-Type = %q, want caller override", got.Get("Content-Type"))
	}
}

func TestRequestParams(t *testing.T) {
	var gotURL *url.URL
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{}`)
	}))
	defer server.Close()

	tr := NewTransport()
	ctx := context.Background()

	if _, err := tr.Request(ctx, http.MethodGet, server.URL, nil, nil, map[string]any{"param": "value"}); err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if !strings.HasSuffix(server.URL+gotURL.RequestURI(), "?param=value") {
		t.Errorf("RequestURI = %q, want suffix ?param=value", gotURL.RequestURI())
	}

	if _, err := tr.Get(ctx, server.URL+"/jobs?fixed=1", nil, url.Values{"extra": {"2"}}); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if gotURL.RawQuery != "extra=2&fixed=1" {
		t.Errorf("RawQuery = %q, want extra=2&fixed=1", gotURL.RawQuery)
	}

	if _, err := tr.Get(ctx, server.URL, nil, map[string]any{"q": nil, "offset": 0, "limit": (*int)(nil)}); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if gotURL.RawQuery != "offset=0" {
		t.Errorf("RawQuery = %q, want offset=0", gotURL.RawQuery)
	}
}

func TestEncodeParamsRejectsUnsupported(t *testing.T) {
	if _, err := encodeParams(42); err == nil {
		t.Fatal("expected error for int params")
	}
}

type recordingDoer struct {
	requests []*http.Request
}

func (d *recordingDoer) Do(req *http.Request) (*http.Response, error) {
	d.requests = append(d.requests, req)
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       io.NopCloser(strings.NewReader(`{"ok":true}`)),
	}, nil
}

func TestConvenienceWrappers(t *testing.T) {
	doer := &recordingDoer{}
	tr := NewTransport(WithDoer(doer))
	ctx := context.Background()
	data := map[string]any{"key": "value"}
	headers := map[string]string{"header": "value"}

	calls := []struct {
		name    string
		call    func() (any, error)
		method  string
		hasBody bool
	}{
		{"Get", func() (any, error) { return tr.Get(ctx, "http://my.test.com", headers, map[string]string{"param": "value"}) }, http.MethodGet, false},
		{"Post", func() (any, error) { return tr.Post(ctx, "http://my.test.com", data, headers) }, http.MethodPost, true},
		{"Put", func() (any, error) { return tr.Put(ctx, "http://my.test.com", data, headers) }, http.MethodPut, true},
		{"Delete", func() (any, error) { return tr.Delete(ctx, "http://my.test.com", headers) }, http.MethodDelete, false},
	}

	for i, tc := range calls {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.call(); err != nil {
				t.Fatalf("%s() error = %v", tc.name, err)
			}
			if len(doer.requests) != i+1 {
				t.Fatalf("expected exactly one Do call, have %d total", len(doer.requests))
			}
			req := doer.requests[i]
			if req.Method != tc.method {
				t.Errorf("method = %s, want %s", req.Method, tc.method)
			}
			if req.Header.Get("header") != "value" {
				t.Error("expected caller header")
			}
			if (req.Body != nil) != tc.hasBody {
				t.Errorf("body present = %v, want %v", req.Body != nil, tc.hasBody)
			}
		})
	}
	if got := doer.requests[0].URL.RawQuery; got != "param=value" {
		t.Errorf("Get RawQuery = %q, want param=value", got)
	}
}

func TestNewTransportDefaultTimeout(t *testing.T) {
	tr := NewTransport()
	hc, ok := tr.doer.(*http.Client)
	if !ok {
		t.Fatalf("expected *http.Client, got %T", tr.doer)
	}
	if hc.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", hc.Timeout, DefaultTimeout)
	}
}
