package tasks

import (
	"context"
	"log"
	"strings"

	"github.com/lattice-http/lattice/core/pkg/evalctx"
)

type switchClause struct {
	condition string
	next      string
}

// Switch evaluates each clause's condition in order, jumping
// directly to the first truthy clause's next task with no default
// sequencing; if none match, it falls through to its own default next.
type Switch struct {
	name    string
	clauses []switchClause
	logger  *log.Logger
	nextSpec
}

func newSwitch(name string, clauses []switchClause, logger *log.Logger, ns nextSpec) *Switch {
	return &Switch{name: name, clauses: clauses, logger: logger, nextSpec: ns}
}

func (s *Switch) Name() string { return s.name }

func (s *Switch) Execute(ctx context.Context, ec *evalctx.Context) (string, bool) {
	for _, cl := range s.clauses {
		boolExpr, ok := asBooleanCoercion(cl.condition)
		if !ok {
			continue
		}
		if v, _ := ec.EvaluateExpr(boolExpr).(bool); v {
			return cl.next, false
		}
	}
	return s.next, s.terminate
}

// asBooleanCoercion rewrites a "${...}" condition to "${!!(...)}" so the
// result always coerces to a JS boolean. Anything not of that sole-expression
// shape is rejected (non-"${…}" conditions are always false).
func asBooleanCoercion(cond string) (string, bool) {
	if !strings.HasPrefix(cond, "${") || !strings.HasSuffix(cond, "}") {
		return "", false
	}
	inner := cond[2 : len(cond)-1]
	return "${!!(" + inner + ")}", true
}
