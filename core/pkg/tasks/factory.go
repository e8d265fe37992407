package tasks

import (
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Build iterates doc's top-level keys in declaration order and dispatches
// each key+body pair through the factory chain: Declaration, Return,
// Assign, Switch, Http, Mock, Template, first match wins. doc must already
// be preprocessed (env-var substitution) by the caller.
func Build(doc *yaml.Node, deps Deps) []Task {
	if doc == nil || doc.Kind != yaml.MappingNode {
		return nil
	}
	keys := make([]string, 0, len(doc.Content)/2)
	for i := 0; i+1 < len(doc.Content); i += 2 {
		keys = append(keys, doc.Content[i].Value)
	}

	out := make([]Task, 0, len(keys))
	idx := 0
	for i := 0; i+1 < len(doc.Content); i += 2 {
		name := doc.Content[i].Value
		body := doc.Content[i+1]
		ns := resolveDefaultNext(body, keys, idx)
		idx++

		task, ok := buildOne(name, body, ns, deps)
		if !ok {
			deps.warnf("task %q: no factory matched its shape, skipping", name)
			continue
		}
		out = append(out, task)
	}
	return out
}

func buildOne(name string, body *yaml.Node, ns nextSpec, deps Deps) (Task, bool) {
	if body == nil || body.Kind != yaml.MappingNode {
		return nil, false
	}
	if t, ok := buildDeclaration(name, body, ns); ok {
		return t, true
	}
	if t, ok := buildReturn(name, body, ns, deps); ok {
		return t, true
	}
	if t, ok := buildAssign(name, body, ns, deps); ok {
		return t, true
	}
	if t, ok := buildSwitch(name, body, ns, deps); ok {
		return t, true
	}
	if t, ok := buildHttp(name, body, ns, deps); ok {
		return t, true
	}
	if t, ok := buildMock(name, body, ns, deps); ok {
		return t, true
	}
	if t, ok := buildTemplate(name, body, ns, deps); ok {
		return t, true
	}
	return nil, false
}

func buildDeclaration(name string, body *yaml.Node, ns nextSpec) (Task, bool) {
	call, ok := scalarString(mappingGet(body, "call"))
	if !ok || call != "declare" {
		return nil, false
	}
	return newDeclaration(name, ns), true
}

func buildReturn(name string, body *yaml.Node, ns nextSpec, deps Deps) (Task, bool) {
	retNode := mappingGet(body, "return")
	if retNode == nil {
		return nil, false
	}
	var status *int
	if sNode := mappingGet(body, "status"); sNode != nil {
		if v, err := strconv.Atoi(strings.TrimSpace(sNode.Value)); err == nil {
			status = &v
		}
	}
	return newReturn(name, retNode, status, deps.Logger, ns), true
}

func buildAssign(name string, body *yaml.Node, ns nextSpec, deps Deps) (Task, bool) {
	assignNode := mappingGet(body, "assign")
	if assignNode == nil {
		return nil, false
	}
	if assignNode.Kind != yaml.MappingNode {
		deps.warnf("task %q: assign must be a mapping, skipping", name)
		return nil, false
	}
	return newAssign(name, assignNode, deps.Logger, ns), true
}

func buildSwitch(name string, body *yaml.Node, ns nextSpec, deps Deps) (Task, bool) {
	switchNode := mappingGet(body, "switch")
	if switchNode == nil {
		return nil, false
	}
	if switchNode.Kind != yaml.SequenceNode {
		deps.warnf("task %q: switch must be a sequence, skipping", name)
		return nil, false
	}
	clauses := make([]switchClause, 0, len(switchNode.Content))
	for _, cl := range switchNode.Content {
		if cl.Kind != yaml.MappingNode {
			continue
		}
		cond, _ := scalarString(mappingGet(cl, "condition"))
		next, _ := scalarString(mappingGet(cl, "next"))
		clauses = append(clauses, switchClause{condition: cond, next: next})
	}
	return newSwitch(name, clauses, deps.Logger, ns), true
}

func buildHttp(name string, body *yaml.Node, ns nextSpec, deps Deps) (Task, bool) {
	call, ok := scalarString(mappingGet(body, "call"))
	if !ok || !strings.HasPrefix(call, "http.") {
		return nil, false
	}
	method := strings.TrimPrefix(call, "http.")
	if !httpMethods[method] {
		deps.warnf("task %q: unsupported http method %q, skipping", name, method)
		return nil, false
	}
	args := mappingGet(body, "args")
	result, _ := scalarString(mappingGet(body, "result"))

	h := &Http{
		name:     name,
		method:   method,
		headers:  nodeFieldMap(mappingGet(args, "headers")),
		query:    nodeFieldMap(mappingGet(args, "query")),
		body:     mappingGet(args, "body"),
		result:   result,
		doer:     deps.Doer,
		logger:   deps.Logger,
		nextSpec: ns,
	}
	if args != nil {
		h.url = mappingGet(args, "url")
	}
	return h, true
}

func buildMock(name string, body *yaml.Node, ns nextSpec, deps Deps) (Task, bool) {
	call, ok := scalarString(mappingGet(body, "call"))
	if !ok || call != "reflect.mock" {
		return nil, false
	}
	args := mappingGet(body, "args")
	result, _ := scalarString(mappingGet(body, "result"))
	var sleepMS int64
	if sNode := mappingGet(body, "sleep"); sNode != nil {
		if v, err := strconv.ParseInt(strings.TrimSpace(sNode.Value), 10, 64); err == nil {
			sleepMS = v
		}
	}
	return newMock(name, args, result, sleepMS, deps.Logger, ns), true
}

func buildTemplate(name string, body *yaml.Node, ns nextSpec, deps Deps) (Task, bool) {
	pathNode := mappingGet(body, "template")
	if pathNode == nil {
		return nil, false
	}
	result, _ := scalarString(mappingGet(body, "result"))
	return &Template{
		name:     name,
		pathLit:  pathNode.Value,
		query:    nodeFieldMap(mappingGet(body, "query")),
		headers:  nodeFieldMap(mappingGet(body, "headers")),
		body:     mappingGet(body, "body"),
		result:   result,
		runner:   deps.Template,
		logger:   deps.Logger,
		nextSpec: ns,
	}, true
}

// nodeFieldMap converts a mapping node into a string-keyed map of its
// (still unrendered) value nodes; nil input yields a nil map.
func nodeFieldMap(n *yaml.Node) map[string]*yaml.Node {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	out := make(map[string]*yaml.Node, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		out[n.Content[i].Value] = n.Content[i+1]
	}
	return out
}
