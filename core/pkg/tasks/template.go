package tasks

import (
	"context"
	"log"

	"gopkg.in/yaml.v3"

	"github.com/lattice-http/lattice/core/pkg/dsl"
	"github.com/lattice-http/lattice/core/pkg/evalctx"
	"github.com/lattice-http/lattice/core/pkg/render"
)

// Template delegates to a sub-engine built from another YAML file
// under the DSL root, synthesizing a fresh Request from this task's own
// fields. The sub-engine is invoked through the TemplateRunner interface rather than
// an import of the engine package, which would cycle back here.
type Template struct {
	name       string
	pathLit    string // raw, unrendered "template:" scalar value
	query      map[string]*yaml.Node
	headers    map[string]*yaml.Node
	body       *yaml.Node
	result     string
	runner     TemplateRunner
	logger     *log.Logger
	nextSpec
}

func (t *Template) Name() string { return t.name }

func (t *Template) warnf(format string, args ...any) {
	l := t.logger
	if l == nil {
		l = log.Default()
	}
	l.Printf("WARNING [tasks.template] "+format, args...)
}

func (t *Template) Execute(ctx context.Context, ec *evalctx.Context) (string, bool) {
	resolved := ec.EvaluateExpr("${dsl}/" + t.pathLit)
	path, ok := resolved.(string)
	if !ok {
		t.warnf("template path %q did not resolve to a string", t.pathLit)
		t.bindNull(ec)
		return t.next, t.terminate
	}

	req := &dsl.Request{Headers: map[string]string{}, Params: map[string]string{}}
	for k, v := range t.headers {
		req.Headers[k] = coerceToString(render.Obj(v, ec, t.logger))
	}
	for k, v := range t.query {
		req.Params[k] = coerceToString(render.Obj(v, ec, t.logger))
	}
	if t.body != nil {
		req.Body = render.Obj(t.body, ec, t.logger)
	}

	if t.runner == nil {
		t.warnf("no template runner configured, skipping %q", path)
		t.bindNull(ec)
		return t.next, t.terminate
	}

	rv, err := t.runner.RunTemplate(ctx, path, req)
	if err != nil {
		t.warnf("running template %q: %v", path, err)
		t.bindNull(ec)
		return t.next, t.terminate
	}

	if t.result != "" {
		bindJSVar(ec, t.result, map[string]any{"response": rv.Body})
	}
	return t.next, t.terminate
}

func (t *Template) bindNull(ec *evalctx.Context) {
	if t.result != "" {
		bindJSVar(ec, t.result, nil)
	}
}
