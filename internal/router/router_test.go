package router

import (
	"bytes"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/lattice-http/lattice/core/pkg/dsl"
	"github.com/lattice-http/lattice/core/pkg/engine"
	"github.com/lattice-http/lattice/core/pkg/httpdoer/httpdoertest"
	"github.com/lattice-http/lattice/internal/logx"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestNew_RoutesToMatchingEndpointAndReportsGuardShortCircuit(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "myapp", ".guard"), `
check:
  switch:
    - condition: "${incoming.params.reject === \"yes\"}"
      next: deny
  next: allow
deny:
  return: { error: "rejected by guard" }
  status: 403
  next: end
allow:
  return: { ok: true }
`)
	writeFile(t, filepath.Join(root, "myapp", "GET", "widgets.yml"), `
r:
  return: { greeting: "hi" }
`)

	endpoints, err := dsl.NewLoader(log.New(os.Stderr, "", 0)).Load(root)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	factory := engine.NewFactory(root, httpdoertest.NewFakeDoer(t), 0, log.New(os.Stderr, "", 0))

	r := New(endpoints, factory, false, nil, false, nil, "X-Request-Id")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/myapp/widgets", nil)
	r.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := w.Body.String(); got != `{"response":{"greeting":"hi"}}` {
		t.Fatalf("body = %q", got)
	}

	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/myapp/widgets?reject=yes", nil)
	r.ServeHTTP(w2, req2)
	if w2.Code != 403 {
		t.Fatalf("status = %d, body = %s", w2.Code, w2.Body.String())
	}
}

func TestNew_HealthzAlwaysAvailable(t *testing.T) {
	endpoints := &dsl.EndpointsCollection{}
	factory := engine.NewFactory(t.TempDir(), httpdoertest.NewFakeDoer(t), 0, nil)
	r := New(endpoints, factory, false, nil, false, nil, "X-Request-Id")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != 200 {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestAccessLogMiddleware_WritesEndpointTagAndGuardShortCircuit(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)
	formatter, err := logx.CompileAccessLogFormat("$method $path $endpoint_tag $guard_short_circuit")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	r := gin.New()
	r.Use(requestIDMiddleware("X-Request-Id"))
	r.Use(accessLogMiddleware(logger, false, "X-Request-Id", formatter))
	r.GET("/widgets", func(c *gin.Context) {
		c.Set(ctxKeyEndpointTag, "myapp")
		c.Set(ctxKeyGuardShortCircuit, true)
		c.JSON(200, gin.H{"response": nil})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/widgets", nil))

	if got := buf.String(); got != "GET /widgets myapp true\n" {
		t.Fatalf("log line = %q", got)
	}
}
