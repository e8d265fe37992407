// Package httpbridge adapts an inbound *gin.Context into the engine's
// internal Request shape and writes an engine response back onto the HTTP
// response.
package httpbridge

import (
	"encoding/json"
	"io"
	"net/url"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/lattice-http/lattice/core/pkg/dsl"
	"github.com/lattice-http/lattice/core/pkg/engine"
)

// BuildRequest adapts c into a dsl.Request: headers collapse multi-valued
// entries to their first valid-UTF-8 value, query parameters take each
// key's first value, and the body is parsed as JSON (non-JSON bodies
// become nil, matching render_obj's null-on-failure convention).
func BuildRequest(c *gin.Context) *dsl.Request {
	headers := map[string]string{}
	for name, values := range c.Request.Header {
		for _, v := range values {
			if utf8.ValidString(v) {
				headers[name] = v
				break
			}
		}
	}

	params := map[string]string{}
	if query, err := url.ParseQuery(c.Request.URL.RawQuery); err == nil {
		for k, values := range query {
			if len(values) > 0 {
				params[k] = values[0]
			}
		}
	}

	var body any
	if data, err := io.ReadAll(c.Request.Body); err == nil && len(data) > 0 {
		if jerr := json.Unmarshal(data, &body); jerr != nil {
			body = nil
		}
	}

	return &dsl.Request{Headers: headers, Params: params, Body: body}
}

// WriteResponse serializes resp as {"response": ...} and sets the HTTP
// status, replacing anything outside the valid HTTP status range with 500.
func WriteResponse(c *gin.Context, resp engine.EngineResponse) {
	status := resp.Status
	if status < 100 || status > 599 {
		status = 500
	}
	c.JSON(status, gin.H{"response": resp.Response})
}
