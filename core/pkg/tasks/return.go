package tasks

import (
	"context"
	"log"

	"gopkg.in/yaml.v3"

	"github.com/lattice-http/lattice/core/pkg/evalctx"
	"github.com/lattice-http/lattice/core/pkg/render"
)

// Return renders its body through render_obj and sets it as the
// context's pending return value, defaulting to status 200 when no status
// field is present.
type Return struct {
	name   string
	body   *yaml.Node
	status *int
	logger *log.Logger
	nextSpec
}

func newReturn(name string, body *yaml.Node, status *int, logger *log.Logger, ns nextSpec) *Return {
	return &Return{name: name, body: body, status: status, logger: logger, nextSpec: ns}
}

func (r *Return) Name() string { return r.name }

func (r *Return) Execute(ctx context.Context, ec *evalctx.Context) (string, bool) {
	status := 200
	if r.status != nil {
		status = *r.status
	}
	rendered := render.Obj(r.body, ec, r.logger)
	ec.SetReturnValue(status, rendered)
	return r.next, r.terminate
}
