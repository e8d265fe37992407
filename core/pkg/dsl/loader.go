package dsl

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/lattice-http/lattice/core/pkg/declmerge"
	"github.com/lattice-http/lattice/core/pkg/yamlutil"
)

var guardFileNames = []string{".guard", ".guard.yml", ".guard.yaml"}

// Loader walks a DSL root directory and materializes an EndpointsCollection.
// A single bad file never aborts the walk — it is skipped with a warning
// logged through Logger.
type Loader struct {
	Logger     *log.Logger
	Declmerger *declmerge.Merger
}

// NewLoader returns a Loader with the given diagnostic sink. A nil logger
// falls back to log.Default().
func NewLoader(logger *log.Logger) *Loader {
	return &Loader{Logger: logger, Declmerger: &declmerge.Merger{Logger: logger}}
}

func (l *Loader) warnf(format string, args ...any) {
	lg := l.Logger
	if lg == nil {
		lg = log.Default()
	}
	lg.Printf("WARNING [dsl] "+format, args...)
}

// Load walks root and returns the endpoints discovered. A missing root
// yields an empty collection, not an error.
func (l *Loader) Load(root string) (*EndpointsCollection, error) {
	coll := &EndpointsCollection{}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return coll, nil
	}
	l.walk(root, "", "", nil, "", coll)
	return coll, nil
}

// walk descends dir depth-first. tag is the accumulated top-level project
// directory name (empty until the first subdirectory under root is
// entered); method is "" outside a GET/POST folder and the HTTP method once
// inside one.
func (l *Loader) walk(dir, urlPrefix, tag string, guards []*Guard, method string, coll *EndpointsCollection) {
	guards = l.pushGuardIfPresent(dir, guards)

	entries, err := os.ReadDir(dir)
	if err != nil {
		l.warnf("read dir %q: %v", dir, err)
		return
	}

	for _, ent := range entries {
		name := ent.Name()
		if !utf8.ValidString(name) {
			l.warnf("skipping non-UTF8 entry under %q", dir)
			continue
		}
		full := filepath.Join(dir, name)

		if ent.IsDir() {
			l.walkSubdir(full, name, urlPrefix, tag, guards, method, coll)
			continue
		}
		if method == "" {
			// Outside method-endpoint mode, plain files (e.g. a template
			// file sitting directly under a tag directory) are not
			// endpoints and are not walked further.
			continue
		}
		if strings.HasPrefix(name, ".guard") {
			continue
		}
		l.emitEndpoint(full, name, urlPrefix, tag, method, guards, coll)
	}
}

func (l *Loader) walkSubdir(full, name, urlPrefix, tag string, guards []*Guard, method string, coll *EndpointsCollection) {
	if method == "" && (name == "GET" || name == "POST") {
		l.walk(full, urlPrefix, tag, guards, name, coll)
		return
	}
	if name == "TEMPLATES" {
		// Never walked as an endpoint folder; still reachable as a
		// filesystem path from template tasks.
		return
	}
	childTag := tag
	if childTag == "" {
		childTag = name
	}
	l.walk(full, urlPrefix+"/"+name, childTag, guards, method, coll)
}

func (l *Loader) emitEndpoint(full, name, urlPrefix, tag, method string, guards []*Guard, coll *EndpointsCollection) {
	data, err := os.ReadFile(full)
	if err != nil {
		l.warnf("read endpoint file %q: %v", full, err)
		return
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil || len(doc.Content) != 1 {
		l.warnf("parse endpoint file %q: %v", full, err)
		return
	}
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	ep := &Endpoint{
		Tag:     tag,
		Method:  method,
		URLPath: urlPrefix + "/" + stem,
		YAML:    doc.Content[0],
		Guards:  cloneGuards(guards),
	}
	ep.MergedDeclaration = l.mergedDeclarationFor(ep)
	coll.Endpoints = append(coll.Endpoints, ep)
}

func (l *Loader) pushGuardIfPresent(dir string, stack []*Guard) []*Guard {
	for _, name := range guardFileNames {
		p := filepath.Join(dir, name)
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			l.warnf("read guard %q: %v", p, err)
			return stack
		}
		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil || len(doc.Content) != 1 {
			l.warnf("parse guard %q: %v", p, err)
			return stack
		}
		out := make([]*Guard, len(stack), len(stack)+1)
		copy(out, stack)
		out = append(out, &Guard{YAML: doc.Content[0]})
		return out
	}
	return stack
}

func cloneGuards(stack []*Guard) []*Guard {
	out := make([]*Guard, len(stack))
	for i, g := range stack {
		out[i] = &Guard{YAML: yamlutil.Clone(g.YAML)}
	}
	return out
}

func (l *Loader) mergedDeclarationFor(ep *Endpoint) string {
	acc := l.Declmerger.ExtractFromDocument(ep.YAML)
	for _, g := range ep.Guards {
		acc = l.Declmerger.Merge(acc, l.Declmerger.ExtractFromDocument(g.YAML))
	}
	out, err := yaml.Marshal(acc.ToYAMLValue())
	if err != nil {
		l.warnf("marshal merged declaration for %q: %v", ep.URLPath, err)
		return ""
	}
	return string(out)
}
