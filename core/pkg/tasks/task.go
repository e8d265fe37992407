// Package tasks implements the seven-variant task taxonomy: each
// variant renders its YAML-declared payload through the evaluation context
// and resolves which task runs next. Tasks are a closed tagged set — no
// open-class extension is implied.
package tasks

import (
	"context"
	"encoding/json"
	"log"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/lattice-http/lattice/core/pkg/dsl"
	"github.com/lattice-http/lattice/core/pkg/evalctx"
	"github.com/lattice-http/lattice/core/pkg/httpdoer"
)

// Task is one node in an endpoint's execution graph.
type Task interface {
	Name() string
	// Execute runs the task against ec and returns the next task's name
	// plus whether the tree should terminate after this task (no further
	// lookup should be attempted when terminate is true).
	Execute(ctx context.Context, ec *evalctx.Context) (next string, terminate bool)
}

// TemplateRunner is implemented by the engine package and injected into
// Template tasks at construction time, so this package never imports engine
// (which itself imports tasks to build task trees).
type TemplateRunner interface {
	RunTemplate(ctx context.Context, path string, req *dsl.Request) (dsl.ReturnValue, error)
}

// Deps bundles the collaborators task construction needs that aren't
// present in a task's own YAML body.
type Deps struct {
	Logger   *log.Logger
	Doer     httpdoer.HTTPDoer
	Template TemplateRunner
}

func (d Deps) warnf(format string, args ...any) {
	l := d.Logger
	if l == nil {
		l = log.Default()
	}
	l.Printf("WARNING [tasks] "+format, args...)
}

// nextSpec carries the resolved next-task name computed by the shared
// default-next helper, common to every variant except the clause
// jumps inside Switch.
type nextSpec struct {
	next      string
	terminate bool
}

// resolveDefaultNext is the default-next resolution shared by every task
// variant except Switch's clause jumps: consult the task body's own "next"
// field ("end" terminates, any other string names an explicit next); if
// absent, take the next key in declaration order of the enclosing mapping;
// if none, terminate.
func resolveDefaultNext(body *yaml.Node, keys []string, idx int) nextSpec {
	if nextNode := mappingGet(body, "next"); nextNode != nil && nextNode.Kind == yaml.ScalarNode {
		if nextNode.Value == "end" {
			return nextSpec{terminate: true}
		}
		return nextSpec{next: nextNode.Value}
	}
	if idx+1 < len(keys) {
		return nextSpec{next: keys[idx+1]}
	}
	return nextSpec{terminate: true}
}

func mappingGet(n *yaml.Node, key string) *yaml.Node {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

func mappingHas(n *yaml.Node, key string) bool {
	return mappingGet(n, key) != nil
}

func scalarString(n *yaml.Node) (string, bool) {
	if n == nil || n.Kind != yaml.ScalarNode {
		return "", false
	}
	return n.Value, true
}

// coerceToString converts a render_obj JSON value into a header/query-param
// string: strings pass through, numbers and bools stringify, nil becomes
// empty, anything else is JSON-encoded.
func coerceToString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// bindJSVar assigns the JSON-encoded value v to the JS variable named
// name in ec, used by task variants that support a "result" field.
func bindJSVar(ec *evalctx.Context, name string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		b = []byte("null")
	}
	code := "var " + name + " = " + string(b) + ";"
	ec.EvaluateExpr(evalctx.WrapJSCode(code))
}
