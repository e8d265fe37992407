package tasks

import (
	"context"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/lattice-http/lattice/core/pkg/dsl"
	"github.com/lattice-http/lattice/core/pkg/evalctx"
	"github.com/lattice-http/lattice/core/pkg/httpdoer/httpdoertest"
)

func parseDoc(t *testing.T, src string) *yaml.Node {
	t.Helper()
	var n yaml.Node
	if err := yaml.Unmarshal([]byte(src), &n); err != nil {
		t.Fatalf("parse: %v", err)
	}
	return n.Content[0]
}

func newEvalCtx(t *testing.T) *evalctx.Context {
	t.Helper()
	ec, err := evalctx.New(&dsl.Request{}, "/dsl", nil)
	if err != nil {
		t.Fatalf("evalctx.New: %v", err)
	}
	return ec
}

func TestBuild_DispatchesEachVariant(t *testing.T) {
	doc := parseDoc(t, `
declareIt:
  call: declare
  description: does a thing
returnIt:
  return: { ok: true }
assignIt:
  assign:
    x: 1
switchIt:
  switch:
    - condition: "${false}"
      next: unreachable
checkIt:
  call: http.get
  args:
    url: "http://example.invalid"
mockIt:
  call: reflect.mock
  args: { ok: true }
templateIt:
  template: TEMPLATES/echo.yml
`)
	tasksOut := Build(doc, Deps{})
	if len(tasksOut) != 7 {
		t.Fatalf("got %d tasks, want 7: %+v", len(tasksOut), tasksOut)
	}
	wantTypes := []Task{&Declaration{}, &Return{}, &Assign{}, &Switch{}, &Http{}, &Mock{}, &Template{}}
	for i, want := range wantTypes {
		if got, want := typeName(tasksOut[i]), typeName(want); got != want {
			t.Fatalf("task %d: got %s, want %s", i, got, want)
		}
	}
}

func typeName(t Task) string {
	switch t.(type) {
	case *Declaration:
		return "Declaration"
	case *Return:
		return "Return"
	case *Assign:
		return "Assign"
	case *Switch:
		return "Switch"
	case *Http:
		return "Http"
	case *Mock:
		return "Mock"
	case *Template:
		return "Template"
	default:
		return "unknown"
	}
}

func TestResolveDefaultNext_ExplicitEndAndLexicalSuccessor(t *testing.T) {
	doc := parseDoc(t, `
a: { return: 1, next: end }
b: { return: 2, next: d }
c: { return: 3 }
d: { return: 4 }
`)
	got := Build(doc, Deps{})
	if len(got) != 4 {
		t.Fatalf("got %d tasks", len(got))
	}
	next, term := got[0].Execute(context.Background(), newEvalCtx(t))
	if !term || next != "" {
		t.Fatalf("a: next=%q term=%v, want terminate", next, term)
	}
	next, term = got[1].Execute(context.Background(), newEvalCtx(t))
	if term || next != "d" {
		t.Fatalf("b: next=%q term=%v, want next=d", next, term)
	}
	next, term = got[2].Execute(context.Background(), newEvalCtx(t))
	if term || next != "d" {
		t.Fatalf("c: next=%q term=%v, want lexical successor d", next, term)
	}
	next, term = got[3].Execute(context.Background(), newEvalCtx(t))
	if !term || next != "" {
		t.Fatalf("d: next=%q term=%v, want terminate (last key)", next, term)
	}
}

func TestReturn_DefaultsStatus200(t *testing.T) {
	doc := parseDoc(t, "r: { return: { msg: hi } }")
	got := Build(doc, Deps{})
	ec := newEvalCtx(t)
	got[0].Execute(context.Background(), ec)
	rv := ec.GetReturnValue()
	if rv.Status != 200 {
		t.Fatalf("status = %d, want 200", rv.Status)
	}
	body := rv.Body.(map[string]any)
	if body["msg"] != "hi" {
		t.Fatalf("body = %v", body)
	}
}

func TestReturn_ExplicitStatus(t *testing.T) {
	doc := parseDoc(t, "r: { return: { msg: no }, status: 403 }")
	got := Build(doc, Deps{})
	ec := newEvalCtx(t)
	got[0].Execute(context.Background(), ec)
	if ec.GetReturnValue().Status != 403 {
		t.Fatalf("status = %d, want 403", ec.GetReturnValue().Status)
	}
}

func TestAssign_BindsFieldsInOrderForLaterReference(t *testing.T) {
	doc := parseDoc(t, `
a:
  assign:
    x: 10
    y: "${x + 1}"
  next: b
b:
  return: "${y}"
`)
	got := Build(doc, Deps{})
	ec := newEvalCtx(t)
	next, term := got[0].Execute(context.Background(), ec)
	if term || next != "b" {
		t.Fatalf("next=%q term=%v", next, term)
	}
	got[1].Execute(context.Background(), ec)
	if ec.GetReturnValue().Body != float64(11) {
		t.Fatalf("body = %v, want 11", ec.GetReturnValue().Body)
	}
}

func TestSwitch_FirstTruthyClauseWinsElseFallsThrough(t *testing.T) {
	doc := parseDoc(t, `
s:
  switch:
    - condition: "${false}"
      next: nope
    - condition: "${1 === 1}"
      next: hit
  next: fallthrough
`)
	got := Build(doc, Deps{})
	next, term := got[0].Execute(context.Background(), newEvalCtx(t))
	if term || next != "hit" {
		t.Fatalf("next=%q term=%v, want hit", next, term)
	}
}

func TestSwitch_NoClauseTruthyFallsThroughToDefaultNext(t *testing.T) {
	doc := parseDoc(t, `
s:
  switch:
    - condition: "${false}"
      next: nope
  next: fallthrough
`)
	got := Build(doc, Deps{})
	next, term := got[0].Execute(context.Background(), newEvalCtx(t))
	if term || next != "fallthrough" {
		t.Fatalf("next=%q term=%v, want fallthrough", next, term)
	}
}

func TestHttp_RecordsResultAndIssuesRequest(t *testing.T) {
	doc := parseDoc(t, `
h:
  call: http.post
  args:
    url: "http://example.invalid/widgets"
    headers:
      X-Test: "yes"
    query:
      q: "${1+1}"
    body: { name: widget }
  result: res
`)
	fake := httpdoertest.NewFakeDoer(t, httpdoertest.NewStringResponse(200, `{"ok":true}`))
	got := Build(doc, Deps{Doer: fake})
	ec := newEvalCtx(t)
	got[0].Execute(context.Background(), ec)

	reqs := fake.Requests()
	if len(reqs) != 1 {
		t.Fatalf("got %d requests", len(reqs))
	}
	if reqs[0].Header.Get("X-Test") != "yes" {
		t.Fatalf("header not set: %v", reqs[0].Header)
	}
	if reqs[0].URL.Query().Get("q") != "2" {
		t.Fatalf("query not set: %v", reqs[0].URL.Query())
	}

	got2 := ec.EvaluateExpr("${res.response.body.ok}")
	if got2 != true {
		t.Fatalf("result var body.ok = %v", got2)
	}
}

func TestHttp_InvalidURLBindsNullAndAdvances(t *testing.T) {
	doc := parseDoc(t, `
h:
  call: http.get
  args:
    url: "://not a url"
  result: res
`)
	got := Build(doc, Deps{Doer: httpdoertest.NewFakeDoer(t)})
	ec := newEvalCtx(t)
	next, term := got[0].Execute(context.Background(), ec)
	if !term || next != "" {
		t.Fatalf("next=%q term=%v, want terminate (last/only task)", next, term)
	}
	if v := ec.EvaluateExpr("${res}"); v != nil {
		t.Fatalf("res = %v, want null", v)
	}
}

func TestMock_RendersArgsAndBindsResult(t *testing.T) {
	doc := parseDoc(t, `
m:
  call: reflect.mock
  args: { status: ok }
  result: res
  sleep: 0
`)
	got := Build(doc, Deps{})
	ec := newEvalCtx(t)
	got[0].Execute(context.Background(), ec)
	if v := ec.EvaluateExpr("${res.status}"); v != "ok" {
		t.Fatalf("res.status = %v", v)
	}
}

type stubRunner struct {
	lastPath string
	lastReq  *dsl.Request
	rv       dsl.ReturnValue
}

func (s *stubRunner) RunTemplate(ctx context.Context, path string, req *dsl.Request) (dsl.ReturnValue, error) {
	s.lastPath = path
	s.lastReq = req
	return s.rv, nil
}

func TestTemplate_ResolvesPathAndBindsSubResponse(t *testing.T) {
	doc := parseDoc(t, `
t:
  template: TEMPLATES/echo.yml
  body: { greeting: hi }
  result: res
`)
	runner := &stubRunner{rv: dsl.ReturnValue{Status: 200, Body: map[string]any{"echoed": true}}}
	got := Build(doc, Deps{Template: runner})
	ec := newEvalCtx(t)
	got[0].Execute(context.Background(), ec)

	if runner.lastPath != "/dsl/TEMPLATES/echo.yml" {
		t.Fatalf("lastPath = %q", runner.lastPath)
	}
	if runner.lastReq.Body.(map[string]any)["greeting"] != "hi" {
		t.Fatalf("sub-request body = %v", runner.lastReq.Body)
	}
	if v := ec.EvaluateExpr("${res.response.echoed}"); v != true {
		t.Fatalf("res.response.echoed = %v", v)
	}
}

func TestDeclaration_IsNoOpAndAdvances(t *testing.T) {
	doc := parseDoc(t, `
d:
  call: declare
  description: x
  next: n
n:
  return: done
`)
	got := Build(doc, Deps{})
	next, term := got[0].Execute(context.Background(), newEvalCtx(t))
	if term || next != "n" {
		t.Fatalf("next=%q term=%v", next, term)
	}
}
