package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lattice-http/lattice/core/pkg/evalctx"
	"github.com/lattice-http/lattice/core/pkg/httpdoer"
	"github.com/lattice-http/lattice/core/pkg/render"
)

var httpMethods = map[string]bool{
	"get": true, "post": true, "put": true, "delete": true, "patch": true, "head": true,
}

// Http issues one outbound request through the injected HTTPDoer and, when
// a result variable is requested, binds {request: {url}, response: {body}}
// to it. The body is null when the response is not JSON; the whole variable
// is null when the request cannot be built or the transport fails.
type Http struct {
	name    string
	method  string
	url     *yaml.Node
	headers map[string]*yaml.Node
	query   map[string]*yaml.Node
	body    *yaml.Node
	result  string
	doer    httpdoer.HTTPDoer
	logger  *log.Logger
	nextSpec
}

func (h *Http) Name() string { return h.name }

func (h *Http) warnf(format string, args ...any) {
	l := h.logger
	if l == nil {
		l = log.Default()
	}
	l.Printf("WARNING [tasks.http] "+format, args...)
}

func (h *Http) Execute(ctx context.Context, ec *evalctx.Context) (string, bool) {
	rawURL := ""
	if h.url != nil {
		rawURL = coerceToString(render.Obj(h.url, ec, h.logger))
	}
	query := url.Values{}
	for k, v := range h.query {
		query.Set(k, coerceToString(render.Obj(v, ec, h.logger)))
	}
	reqURL, err := buildURLWithQuery(rawURL, query)
	if err != nil {
		h.warnf("building request url %q: %v", rawURL, err)
		h.bindNull(ec)
		return h.next, h.terminate
	}

	var bodyReader io.Reader
	var bodyJSON any
	if h.body != nil {
		bodyJSON = render.Obj(h.body, ec, h.logger)
		b, merr := json.Marshal(bodyJSON)
		if merr == nil {
			bodyReader = bytes.NewReader(b)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, strings.ToUpper(h.method), reqURL, bodyReader)
	if err != nil {
		h.warnf("building request: %v", err)
		h.bindNull(ec)
		return h.next, h.terminate
	}
	for k, v := range h.headers {
		httpReq.Header.Set(k, coerceToString(render.Obj(v, ec, h.logger)))
	}
	if bodyReader != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.doer.Do(httpReq)
	if err != nil {
		h.warnf("request to %q: %v", reqURL, err)
		h.bindNull(ec)
		return h.next, h.terminate
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	var respBody any
	if err := json.Unmarshal(data, &respBody); err != nil {
		respBody = nil
	}

	if h.result != "" {
		bindJSVar(ec, h.result, map[string]any{
			"request":  map[string]any{"url": reqURL},
			"response": map[string]any{"body": respBody},
		})
	}
	return h.next, h.terminate
}

func (h *Http) bindNull(ec *evalctx.Context) {
	if h.result != "" {
		bindJSVar(ec, h.result, nil)
	}
}

func buildURLWithQuery(raw string, extra url.Values) (string, error) {
	if len(extra) == 0 {
		return raw, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	existing := u.Query()
	for k, vs := range extra {
		for _, v := range vs {
			existing.Set(k, v)
		}
	}
	u.RawQuery = existing.Encode()
	return u.String(), nil
}
