// Package declmerge folds an endpoint's "declare" task bodies together with
// its guards' into a single documentation-only declaration. The merged
// declaration has no runtime effect; it exists for an external
// OpenAPI-style generator to read off Endpoint.MergedDeclaration.
package declmerge

import (
	"log"

	"gopkg.in/yaml.v3"

	"github.com/lattice-http/lattice/core/pkg/yamlutil"
)

// Declaration is the payload of one or more "call: declare" task bodies,
// already folded together.
type Declaration struct {
	Description string
	Params      []any
	Headers     []any
	Body        any
}

// Merger folds declarations together, logging warnings for malformed
// type-merge inputs instead of failing the whole merge.
type Merger struct {
	Logger *log.Logger
}

func (m *Merger) logf(format string, args ...any) {
	l := m.Logger
	if l == nil {
		l = log.Default()
	}
	l.Printf("WARNING [declmerge] "+format, args...)
}

// ExtractFromDocument scans the top-level entries of a task-tree document
// (an ordered YAML mapping) for ones whose body carries call: "declare",
// and folds their payloads together in top-level declaration order.
func (m *Merger) ExtractFromDocument(doc *yaml.Node) Declaration {
	if !yamlutil.IsMapping(doc) {
		return Declaration{}
	}
	var acc Declaration
	first := true
	for i := 0; i+1 < len(doc.Content); i += 2 {
		body := doc.Content[i+1]
		if !yamlutil.IsMapping(body) {
			continue
		}
		call := yamlutil.MappingGet(body, "call")
		if call == nil || call.Value != "declare" {
			continue
		}
		d := m.declarationFromBody(body)
		if first {
			acc = d
			first = false
			continue
		}
		acc = m.CombineTwo(acc, d)
	}
	return acc
}

func (m *Merger) declarationFromBody(body *yaml.Node) Declaration {
	d := Declaration{}
	if desc := yamlutil.MappingGet(body, "description"); yamlutil.IsScalar(desc) {
		d.Description = desc.Value
	}
	allow := yamlutil.MappingGet(body, "allowlist")
	if allow == nil {
		return d
	}
	d.Params = append(d.Params, decodeSlice(yamlutil.MappingGet(allow, "params"))...)
	d.Params = append(d.Params, decodeSlice(yamlutil.MappingGet(allow, "query"))...)
	d.Params = m.FieldListDedup(d.Params)
	d.Headers = m.FieldListDedup(decodeSlice(yamlutil.MappingGet(allow, "headers")))
	d.Body = decodeAny(yamlutil.MappingGet(allow, "body"))
	return d
}

// Merge combines two full declarations: description concatenation,
// params/headers dedup, recursive body type-merge.
func (m *Merger) Merge(l, r Declaration) Declaration {
	return m.CombineTwo(l, r)
}

// CombineTwo implements the field-by-field combination rules shared by
// Merge and ExtractFromDocument's intra-document folding.
func (m *Merger) CombineTwo(l, r Declaration) Declaration {
	return Declaration{
		Description: joinNonEmpty(l.Description, r.Description),
		Params:      m.FieldListDedup(append(append([]any{}, l.Params...), r.Params...)),
		Headers:     m.FieldListDedup(append(append([]any{}, l.Headers...), r.Headers...)),
		Body:        m.MergeTwoTypes(l.Body, r.Body),
	}
}

// ToYAMLValue produces the `{ declaration: { call: "declare", ... } }`
// document the spec stores as Endpoint.merged_declaration.
func (d Declaration) ToYAMLValue() any {
	return map[string]any{
		"declaration": map[string]any{
			"call":        "declare",
			"description": d.Description,
			"allowlist": map[string]any{
				"params":  nonNilSlice(d.Params),
				"headers": nonNilSlice(d.Headers),
				"body":    d.Body,
			},
		},
	}
}

func joinNonEmpty(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	return a + "; " + b
}

func nonNilSlice(s []any) []any {
	if s == nil {
		return []any{}
	}
	return s
}

func decodeAny(n *yaml.Node) any {
	if n == nil {
		return nil
	}
	var v any
	_ = n.Decode(&v)
	return v
}

func decodeSlice(n *yaml.Node) []any {
	if !yamlutil.IsSequence(n) {
		return nil
	}
	out := make([]any, 0, len(n.Content))
	for _, c := range n.Content {
		out = append(out, decodeAny(c))
	}
	return out
}
