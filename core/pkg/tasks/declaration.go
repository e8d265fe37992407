package tasks

import (
	"context"

	"github.com/lattice-http/lattice/core/pkg/evalctx"
)

// Declaration is a no-op at execution time: "call: declare" bodies
// only exist to be folded into an endpoint's merged declaration at
// load time, before any task tree is built.
type Declaration struct {
	name string
	nextSpec
}

func newDeclaration(name string, ns nextSpec) *Declaration {
	return &Declaration{name: name, nextSpec: ns}
}

func (d *Declaration) Name() string { return d.name }

func (d *Declaration) Execute(ctx context.Context, ec *evalctx.Context) (string, bool) {
	return d.next, d.terminate
}
