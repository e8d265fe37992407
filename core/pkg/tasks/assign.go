package tasks

import (
	"context"
	"log"

	"gopkg.in/yaml.v3"

	"github.com/lattice-http/lattice/core/pkg/evalctx"
	"github.com/lattice-http/lattice/core/pkg/render"
)

type assignField struct {
	name  string
	value *yaml.Node
}

// Assign binds each field in declaration order to a JS variable of
// the same name, rendering its value through render_obj first so later
// fields can reference earlier ones.
type Assign struct {
	name   string
	fields []assignField
	logger *log.Logger
	nextSpec
}

func newAssign(name string, body *yaml.Node, logger *log.Logger, ns nextSpec) *Assign {
	fields := make([]assignField, 0, len(body.Content)/2)
	for i := 0; i+1 < len(body.Content); i += 2 {
		fields = append(fields, assignField{name: body.Content[i].Value, value: body.Content[i+1]})
	}
	return &Assign{name: name, fields: fields, logger: logger, nextSpec: ns}
}

func (a *Assign) Name() string { return a.name }

func (a *Assign) Execute(ctx context.Context, ec *evalctx.Context) (string, bool) {
	for _, f := range a.fields {
		rendered := render.Obj(f.value, ec, a.logger)
		bindJSVar(ec, f.name, rendered)
	}
	return a.next, a.terminate
}
