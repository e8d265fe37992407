// Package dsl holds the engine's core data model — Guard, Endpoint,
// EndpointsCollection, Request, ReturnValue — and the directory-walking
// loader that builds an EndpointsCollection from a DSL root.
package dsl

import (
	"gopkg.in/yaml.v3"
)

// Guard is a task-graph declaration attached to an enclosing directory; it
// is parsed once and shared read-only across every endpoint beneath that
// directory.
type Guard struct {
	YAML *yaml.Node
}

// Endpoint is one HTTP-reachable task graph: an ordered, outermost-first
// chain of Guards plus the endpoint's own YAML. It is immutable once the
// loader constructs it.
type Endpoint struct {
	Tag               string
	Method            string // "GET" or "POST"
	URLPath           string
	YAML              *yaml.Node
	Guards            []*Guard
	MergedDeclaration string
}

// EndpointsCollection is the ordered set of endpoints a Loader produced.
type EndpointsCollection struct {
	Endpoints []*Endpoint
}

// ByPath groups endpoints sharing a URL path, so a router can dispatch a
// single route on method.
func (c *EndpointsCollection) ByPath() map[string][]*Endpoint {
	out := make(map[string][]*Endpoint)
	for _, ep := range c.Endpoints {
		out[ep.URLPath] = append(out[ep.URLPath], ep)
	}
	return out
}

// Request is the internal shape an HTTP request (or a synthesized template
// invocation) is adapted into before it reaches a Context.
type Request struct {
	Headers map[string]string
	Params  map[string]string
	Body    any
}

// ReturnValue is the JSON body and HTTP status snapshotted out of a Context
// once a task tree finishes walking.
type ReturnValue struct {
	Status int
	Body   any
}
