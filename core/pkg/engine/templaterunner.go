package engine

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lattice-http/lattice/core/pkg/dsl"
)

// templateRunner implements tasks.TemplateRunner by reading a YAML file off
// disk, building a fresh Engine from it as a template, and executing it
// against the synthesized request.
type templateRunner struct {
	factory *Factory
}

func (r *templateRunner) RunTemplate(ctx context.Context, path string, req *dsl.Request) (dsl.ReturnValue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return dsl.ReturnValue{}, fmt.Errorf("reading template %q: %w", path, err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return dsl.ReturnValue{}, fmt.Errorf("parsing template %q: %w", path, err)
	}
	if len(doc.Content) == 0 {
		return dsl.ReturnValue{}, fmt.Errorf("template %q is empty", path)
	}

	sub := r.factory.FromTemplate(doc.Content[0])
	resp := sub.Execute(ctx, req)
	return dsl.ReturnValue{Status: resp.Status, Body: resp.Response}, nil
}
