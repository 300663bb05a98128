package testutil

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
)

// NewInProcessClient returns a client whose requests are served by handler
// without opening a listener.
func NewInProcessClient(handler http.Handler) *http.Client {
	return &http.Client{Transport: handlerTransport{handler: handler}}
}

type handlerTransport struct {
	handler http.Handler
}

func (t handlerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rec := httptest.NewRecorder()
	t.handler.ServeHTTP(rec, req)
	resp := rec.Result()
	resp.Request = req
	return resp, nil
}

func NewRequest(method, path string, body []byte) *http.Request {
	return httptest.NewRequest(method, "http://feed.test"+path, bytes.NewReader(body))
}

// StreamRecorder is a flushable ResponseWriter whose output can be read while
// the handler is still running, for SSE endpoints.
type StreamRecorder struct {
	Body *io.PipeReader

	header http.Header
	pw     *io.PipeWriter
}

func NewStreamRecorder() *StreamRecorder {
	pr, pw := io.Pipe()
	return &StreamRecorder{Body: pr, header: http.Header{}, pw: pw}
}

func (r *StreamRecorder) Header() http.Header         { return r.header }
func (r *StreamRecorder) WriteHeader(int)             {}
func (r *StreamRecorder) Write(p []byte) (int, error) { return r.pw.Write(p) }
func (r *StreamRecorder) Flush()                      {}

// Close ends the stream; readers of Body see io.EOF.
func (r *StreamRecorder) Close() error { return r.pw.Close() }
