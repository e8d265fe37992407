// Package httpdoertest provides a fake httpdoer.HTTPDoer for exercising the
// Http task without making real outbound requests.
package httpdoertest

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/lattice-http/lattice/core/pkg/httpdoer"
)

// FakeDoer implements httpdoer.HTTPDoer so tests can run offline.
type FakeDoer struct {
	t         testing.TB
	responses []*http.Response
	requests  []*http.Request
}

// NewFakeDoer returns a FakeDoer seeded with the responses that should be
// returned for each Do call, in order.
func NewFakeDoer(t testing.TB, responses ...*http.Response) *FakeDoer {
	return &FakeDoer{
		t:         t,
		responses: append([]*http.Response(nil), responses...),
	}
}

// Do records the request and returns the next queued response.
func (f *FakeDoer) Do(req *http.Request) (*http.Response, error) {
	f.requests = append(f.requests, req)
	if len(f.responses) == 0 {
		f.t.Fatalf("fake http client has no responses left for request %s %s", req.Method, req.URL.String())
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

// Requests returns the HTTP requests captured so far.
func (f *FakeDoer) Requests() []*http.Request {
	return append([]*http.Request(nil), f.requests...)
}

// NewStringResponse builds a minimal http.Response with the provided status
// code and body string.
func NewStringResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

var _ httpdoer.HTTPDoer = (*FakeDoer)(nil)
