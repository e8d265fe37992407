package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/lattice-http/lattice/core/pkg/dsl"
)

func parseDoc(t *testing.T, src string) *yaml.Node {
	t.Helper()
	var n yaml.Node
	if err := yaml.Unmarshal([]byte(src), &n); err != nil {
		t.Fatalf("parse: %v", err)
	}
	return n.Content[0]
}

func TestEngine_LiteralReturn(t *testing.T) {
	f := NewFactory(t.TempDir(), nil, 0, nil)
	ep := &dsl.Endpoint{YAML: parseDoc(t, "r: { return: { ok: true } }")}
	e := f.FromEndpoint(ep)
	resp := e.Execute(context.Background(), &dsl.Request{})
	if resp.Status != 200 {
		t.Fatalf("status = %d, want 200", resp.Status)
	}
	body := resp.Response.(map[string]any)
	if body["ok"] != true {
		t.Fatalf("body = %v", body)
	}
}

func TestEngine_GuardShortCircuitsMainTree(t *testing.T) {
	f := NewFactory(t.TempDir(), nil, 0, nil)
	ep := &dsl.Endpoint{
		YAML: parseDoc(t, "r: { return: { reached: main } }"),
		Guards: []*dsl.Guard{
			{YAML: parseDoc(t, `
check:
  switch:
    - condition: "${incoming.params.error === \"error\"}"
      next: reject
  next: pass
pass:
  return: ok
  next: end
reject:
  return: { error: rejected }
  status: 400
`)},
		},
	}
	e := f.FromEndpoint(ep)

	resp := e.Execute(context.Background(), &dsl.Request{Params: map[string]string{"error": "error"}})
	if resp.Status != 400 {
		t.Fatalf("status = %d, want 400 (guard short-circuit)", resp.Status)
	}
	body := resp.Response.(map[string]any)
	if body["error"] != "rejected" {
		t.Fatalf("body = %v", body)
	}

	resp = e.Execute(context.Background(), &dsl.Request{Params: map[string]string{}})
	if resp.Status != 200 {
		t.Fatalf("status = %d, want 200 (guard passed, main ran)", resp.Status)
	}
	body = resp.Response.(map[string]any)
	if body["reached"] != "main" {
		t.Fatalf("body = %v, want main tree's return", body)
	}
}

func TestEngine_TemplateSubEngineInvocation(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "TEMPLATES"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	echoYAML := "r: { return: \"${incoming.body.greeting}\" }\n"
	if err := os.WriteFile(filepath.Join(root, "TEMPLATES", "echo.yml"), []byte(echoYAML), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	f := NewFactory(root, nil, 0, nil)
	ep := &dsl.Endpoint{YAML: parseDoc(t, `
t:
  template: TEMPLATES/echo.yml
  body: { greeting: hi }
  result: res
  next: r
r:
  return: "${res.response}"
`)}
	e := f.FromEndpoint(ep)
	resp := e.Execute(context.Background(), &dsl.Request{})
	if resp.Status != 200 {
		t.Fatalf("status = %d, want 200", resp.Status)
	}
	if resp.Response != "hi" {
		t.Fatalf("response = %v, want \"hi\"", resp.Response)
	}
}

func TestEngine_StepLimitExceededYields500(t *testing.T) {
	f := NewFactory(t.TempDir(), nil, 2, nil)
	ep := &dsl.Endpoint{YAML: parseDoc(t, `
a: { assign: { x: 1 }, next: b }
b: { assign: { x: 2 }, next: a }
`)}
	e := f.FromEndpoint(ep)
	resp := e.Execute(context.Background(), &dsl.Request{})
	if resp.Status != 500 {
		t.Fatalf("status = %d, want 500 (step limit)", resp.Status)
	}
}
