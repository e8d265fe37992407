// Package render implements render_obj: walking a parsed YAML value
// into a JSON value, evaluating every string through a Context.
package render

import (
	"log"

	"gopkg.in/yaml.v3"

	"github.com/lattice-http/lattice/core/pkg/evalctx"
)

// Obj walks n into a JSON value. Strings are evaluated through ec; booleans,
// numbers, and null transcribe directly; sequences and mappings recurse.
// Tagged values and numbers that can't be represented are logged and
// rendered as null.
func Obj(n *yaml.Node, ec *evalctx.Context, logger *log.Logger) any {
	if n == nil {
		return nil
	}
	if n.Tag != "" && isUnsupportedTag(n.Tag) {
		warnf(logger, "unsupported tagged value %q", n.Tag)
		return nil
	}
	switch n.Kind {
	case yaml.ScalarNode:
		return renderScalar(n, ec, logger)
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			out = append(out, Obj(c, ec, logger))
		}
		return out
	case yaml.MappingNode:
		out := make(map[string]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i]
			if key.Kind != yaml.ScalarNode || key.ShortTag() != "!!str" {
				continue // non-string keys drop the entry
			}
			out[key.Value] = Obj(n.Content[i+1], ec, logger)
		}
		return out
	case yaml.AliasNode:
		return Obj(n.Alias, ec, logger)
	default:
		warnf(logger, "unsupported node kind %v", n.Kind)
		return nil
	}
}

func renderScalar(n *yaml.Node, ec *evalctx.Context, logger *log.Logger) any {
	switch n.Tag {
	case "!!bool":
		var v bool
		if err := n.Decode(&v); err != nil {
			warnf(logger, "decode bool %q: %v", n.Value, err)
			return nil
		}
		return v
	case "!!int", "!!float":
		var v float64
		if err := n.Decode(&v); err != nil {
			warnf(logger, "decode number %q: %v", n.Value, err)
			return nil
		}
		return v
	case "!!null":
		return nil
	default:
		if ec == nil {
			return n.Value
		}
		return ec.EvaluateExpr(n.Value)
	}
}

func isUnsupportedTag(tag string) bool {
	switch tag {
	case "", "!!str", "!!bool", "!!int", "!!float", "!!null", "!!seq", "!!map":
		return false
	default:
		return true
	}
}

func warnf(logger *log.Logger, format string, args ...any) {
	l := logger
	if l == nil {
		l = log.Default()
	}
	l.Printf("WARNING [render] "+format, args...)
}
