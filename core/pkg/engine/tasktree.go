// Package engine builds and walks task trees and exposes the Engine
// facade that an HTTP bridge drives per request.
package engine

import (
	"context"
	"log"

	"gopkg.in/yaml.v3"

	"github.com/lattice-http/lattice/core/pkg/evalctx"
	"github.com/lattice-http/lattice/core/pkg/tasks"
	"github.com/lattice-http/lattice/core/pkg/yamlutil"
)

// defaultStepLimit bounds a single walk against a cyclic task graph; it is
// not part of the task taxonomy itself, just a safety net around it.
const defaultStepLimit = 4096

// TaskTree is the ordered set of tasks built from one YAML mapping (an
// endpoint's own body, a guard's body, or a template file).
type TaskTree struct {
	tasks     []tasks.Task
	stepLimit int
	logger    *log.Logger
}

// buildTaskTree clones doc before preprocessing so the caller's original
// tree (an Endpoint's or Guard's owned YAML) is never mutated.
func buildTaskTree(doc *yaml.Node, deps tasks.Deps, stepLimit int, logger *log.Logger) *TaskTree {
	clone := yamlutil.Clone(doc)
	yamlutil.PreprocessObj(clone)
	built := tasks.Build(clone, deps)
	if stepLimit <= 0 {
		stepLimit = defaultStepLimit
	}
	return &TaskTree{tasks: built, stepLimit: stepLimit, logger: logger}
}

func (tt *TaskTree) warnf(format string, args ...any) {
	l := tt.logger
	if l == nil {
		l = log.Default()
	}
	l.Printf("WARNING [engine] "+format, args...)
}

func (tt *TaskTree) findByName(name string) (tasks.Task, bool) {
	for _, t := range tt.tasks {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

// Walk executes the entry task (the first in the list), then repeatedly
// linear-scans for the task named by each step's next-task result. It
// terminates when a task returns no next, when the named next can't be
// found, or when the step limit is exceeded (treated as a 500).
func (tt *TaskTree) Walk(ctx context.Context, ec *evalctx.Context) {
	if len(tt.tasks) == 0 {
		return
	}
	current := tt.tasks[0]
	for steps := 1; ; steps++ {
		if steps > tt.stepLimit {
			tt.warnf("step limit %d exceeded, aborting walk", tt.stepLimit)
			ec.SetReturnValue(500, map[string]any{"error": "task graph exceeded its step limit"})
			return
		}
		next, terminate := current.Execute(ctx, ec)
		if terminate {
			return
		}
		nextTask, ok := tt.findByName(next)
		if !ok {
			tt.warnf("next task %q not found, terminating walk", next)
			return
		}
		current = nextTask
	}
}
