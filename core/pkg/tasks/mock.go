package tasks

import (
	"context"
	"log"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lattice-http/lattice/core/pkg/evalctx"
	"github.com/lattice-http/lattice/core/pkg/render"
)

// Mock renders a fixed payload and optionally binds it to a result
// variable, with an optional cooperative delay — useful for stubbing out an
// Http task during local development.
type Mock struct {
	name     string
	args     *yaml.Node
	result   string
	sleepMS  int64
	logger   *log.Logger
	sleepFn  func(time.Duration)
	nextSpec
}

func newMock(name string, args *yaml.Node, result string, sleepMS int64, logger *log.Logger, ns nextSpec) *Mock {
	return &Mock{name: name, args: args, result: result, sleepMS: sleepMS, logger: logger, sleepFn: time.Sleep, nextSpec: ns}
}

func (m *Mock) Name() string { return m.name }

func (m *Mock) Execute(ctx context.Context, ec *evalctx.Context) (string, bool) {
	rendered := render.Obj(m.args, ec, m.logger)
	if m.result != "" {
		bindJSVar(ec, m.result, rendered)
	}
	if m.sleepMS > 0 {
		sleep := m.sleepFn
		if sleep == nil {
			sleep = time.Sleep
		}
		sleep(time.Duration(m.sleepMS) * time.Millisecond)
	}
	return m.next, m.terminate
}
