package engine

import (
	"context"
	"log"

	"gopkg.in/yaml.v3"

	"github.com/lattice-http/lattice/core/pkg/dsl"
	"github.com/lattice-http/lattice/core/pkg/evalctx"
	"github.com/lattice-http/lattice/core/pkg/httpdoer"
	"github.com/lattice-http/lattice/core/pkg/tasks"
)

// Factory holds the collaborators every Engine built from this DSL root
// needs (the HTTP client tasks issue outbound calls through, the step limit,
// a logger) and builds Engines that share them, including Template tasks'
// recursive sub-engine invocations.
type Factory struct {
	dslRoot   string
	doer      httpdoer.HTTPDoer
	stepLimit int
	logger    *log.Logger
}

// NewFactory returns a Factory rooted at dslRoot (an absolute filesystem
// path). stepLimit <= 0 falls back to defaultStepLimit.
func NewFactory(dslRoot string, doer httpdoer.HTTPDoer, stepLimit int, logger *log.Logger) *Factory {
	return &Factory{dslRoot: dslRoot, doer: doer, stepLimit: stepLimit, logger: logger}
}

func (f *Factory) deps() tasks.Deps {
	return tasks.Deps{
		Logger:   f.logger,
		Doer:     f.doer,
		Template: &templateRunner{factory: f},
	}
}

// Engine is an immutable, built-once task-graph bundle: zero or more guard
// trees plus one main tree.
type Engine struct {
	guardTrees []*TaskTree
	mainTree   *TaskTree
	dslRoot    string
	logger     *log.Logger
}

// EngineResponse is the HTTP-facing shape an Engine.Execute call produces:
// the status and body that belong inside the "response" envelope.
type EngineResponse struct {
	Status              int
	Response            any
	GuardShortCircuited bool
}

// FromEndpoint builds one TaskTree per guard (outermost-first, matching
// Endpoint.Guards' order) plus the main tree from the endpoint's own YAML.
func (f *Factory) FromEndpoint(ep *dsl.Endpoint) *Engine {
	deps := f.deps()
	guardTrees := make([]*TaskTree, 0, len(ep.Guards))
	for _, g := range ep.Guards {
		guardTrees = append(guardTrees, buildTaskTree(g.YAML, deps, f.stepLimit, f.logger))
	}
	return &Engine{
		guardTrees: guardTrees,
		mainTree:   buildTaskTree(ep.YAML, deps, f.stepLimit, f.logger),
		dslRoot:    f.dslRoot,
		logger:     f.logger,
	}
}

// FromTemplate builds only the main tree, with no guards, from a
// standalone YAML document (used for TEMPLATES/*.yml files).
func (f *Factory) FromTemplate(doc *yaml.Node) *Engine {
	return &Engine{
		mainTree: buildTaskTree(doc, f.deps(), f.stepLimit, f.logger),
		dslRoot:  f.dslRoot,
		logger:   f.logger,
	}
}

// Execute runs request through every guard tree in order, short-circuiting
// with that guard's response the moment its status falls outside [200,
// 300), then (only if every guard passed) runs the main tree.
func (e *Engine) Execute(ctx context.Context, req *dsl.Request) EngineResponse {
	ec, err := evalctx.New(req, e.dslRoot, e.logger)
	if err != nil {
		e.warnf("building evaluation context: %v", err)
		return EngineResponse{Status: 500, Response: map[string]any{"error": "failed to build evaluation context"}}
	}

	for _, gt := range e.guardTrees {
		gt.Walk(ctx, ec)
		if status := ec.Status(); status < 200 || status >= 300 {
			resp := responseFrom(ec)
			resp.GuardShortCircuited = true
			return resp
		}
	}

	e.mainTree.Walk(ctx, ec)
	return responseFrom(ec)
}

func (e *Engine) warnf(format string, args ...any) {
	l := e.logger
	if l == nil {
		l = log.Default()
	}
	l.Printf("WARNING [engine] "+format, args...)
}

func responseFrom(ec *evalctx.Context) EngineResponse {
	rv := ec.GetReturnValue()
	return EngineResponse{Status: rv.Status, Response: rv.Body}
}
