// Package yamlutil holds small value utilities shared by the DSL loader, the
// declaration merger, and the expression renderer: deep cloning yaml.Node
// trees, type predicates over yaml.Node kinds, and the pre-runtime
// environment-variable substitution pass (preprocess_obj).
package yamlutil

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Clone returns a deep copy of n. Guards are parsed once and shared
// read-only across many endpoints; every endpoint that inherits a guard
// clones it first so that later mutation (preprocessing, task construction)
// never touches the shared tree.
func Clone(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	out := *n
	out.Content = nil
	for _, c := range n.Content {
		out.Content = append(out.Content, Clone(c))
	}
	out.Alias = nil
	return &out
}

// IsMapping reports whether n is a YAML mapping node.
func IsMapping(n *yaml.Node) bool {
	return n != nil && n.Kind == yaml.MappingNode
}

// IsSequence reports whether n is a YAML sequence node.
func IsSequence(n *yaml.Node) bool {
	return n != nil && n.Kind == yaml.SequenceNode
}

// IsScalar reports whether n is a YAML scalar node.
func IsScalar(n *yaml.Node) bool {
	return n != nil && n.Kind == yaml.ScalarNode
}

// MappingGet returns the value node paired with key in mapping node n, or
// nil if n is not a mapping or key is absent. Keys are compared by their
// scalar string value.
func MappingGet(n *yaml.Node, key string) *yaml.Node {
	if !IsMapping(n) {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

// MappingKeys returns the top-level keys of mapping node n in declaration
// order. Next-task resolution depends on this order being preserved.
func MappingKeys(n *yaml.Node) []string {
	if !IsMapping(n) {
		return nil
	}
	keys := make([]string, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		keys = append(keys, n.Content[i].Value)
	}
	return keys
}

// PreprocessObj walks n once, rewriting every scalar string by substituting
// occurrences of "[#VARNAME]" with the value of environment variable
// VARNAME (empty string if unset). An unterminated "[#" is left verbatim.
// It mutates n's scalar nodes in place and also returns n for chaining.
func PreprocessObj(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!str" || n.Tag == "" {
			n.Value = substituteEnvVars(n.Value)
		}
	case yaml.MappingNode, yaml.SequenceNode, yaml.DocumentNode:
		for _, c := range n.Content {
			PreprocessObj(c)
		}
	}
	return n
}

func substituteEnvVars(s string) string {
	if !strings.Contains(s, "[#") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); {
		start := strings.Index(s[i:], "[#")
		if start < 0 {
			b.WriteString(s[i:])
			break
		}
		start += i
		b.WriteString(s[i:start])
		end := strings.IndexByte(s[start+2:], ']')
		if end < 0 {
			// unterminated "[#" — left verbatim
			b.WriteString(s[start:])
			break
		}
		end += start + 2
		name := s[start+2 : end]
		b.WriteString(os.Getenv(name))
		i = end + 1
	}
	return b.String()
}
