// Package evalctx implements the per-request evaluation context: it owns a
// sandboxed JavaScript interpreter for the lifetime of one request, bridges
// HTTP request data into that interpreter as the `incoming` global, and
// holds the pending return value tasks accumulate into.
//
// A Context is confined to the goroutine that owns it — goja.Runtime is not
// safe for concurrent use, and gin already runs one goroutine per request,
// so no worker-thread indirection is needed.
package evalctx

import (
	"encoding/json"
	"log"
	"strings"

	"github.com/dop251/goja"

	"github.com/lattice-http/lattice/core/pkg/dsl"
)

// Context is the request-scoped evaluation environment.
type Context struct {
	vm      *goja.Runtime
	status  int
	retJSON any
	dslRoot string
	logger  *log.Logger
}

// New creates a fresh interpreter for req, injecting the `incoming` and
// `dsl` globals, and initializes status to 200 / return value to nil.
func New(req *dsl.Request, dslRoot string, logger *log.Logger) (*Context, error) {
	vm := goja.New()
	c := &Context{vm: vm, status: 200, dslRoot: dslRoot, logger: logger}

	headers := map[string]string{}
	params := map[string]string{}
	var body any
	if req != nil {
		if req.Headers != nil {
			headers = req.Headers
		}
		if req.Params != nil {
			params = req.Params
		}
		body = req.Body
	}
	incoming := map[string]any{
		"headers": headers,
		"params":  params,
		"body":    body,
	}
	if err := vm.Set("incoming", incoming); err != nil {
		return nil, err
	}
	if err := vm.Set("dsl", dslRoot); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Context) warnf(format string, args ...any) {
	l := c.logger
	if l == nil {
		l = log.Default()
	}
	l.Printf("WARNING [evalctx] "+format, args...)
}

// EvaluateExpr does a three-way dispatch: a bare "${expr}" with no nested
// "${" evaluates expr as a JS expression (or, if expr ends with "!", as a
// statement with no returned value); a string
// containing "${...}" anywhere evaluates as a JS template literal; anything
// else is returned as a raw JSON string.
func (c *Context) EvaluateExpr(expr string) any {
	if inner, ok := soleExpression(expr); ok {
		if stmt, isStmt := asStatement(inner); isStmt {
			if _, err := c.vm.RunString(stmt); err != nil {
				c.warnf("statement %q: %v", stmt, err)
			}
			return nil
		}
		return c.evalAsJSON(inner)
	}
	if strings.Contains(expr, "${") {
		return c.evalTemplateLiteral(expr)
	}
	return expr
}

func (c *Context) evalAsJSON(inner string) any {
	val, err := c.vm.RunString("JSON.stringify(" + inner + ")")
	if err != nil {
		c.warnf("evaluate %q: %v", inner, err)
		return nil
	}
	s, ok := val.Export().(string)
	if !ok {
		// JSON.stringify(undefined) yields the JS value undefined, which
		// Export()s as nil, not a string.
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		c.warnf("parse result of %q: %v", inner, err)
		return nil
	}
	return v
}

func (c *Context) evalTemplateLiteral(expr string) any {
	code := "`" + escapeTemplateLiteral(expr) + "`"
	val, err := c.vm.RunString(code)
	if err != nil {
		c.warnf("evaluate template %q: %v", expr, err)
		return nil
	}
	return val.Export()
}

// soleExpression reports whether expr is exactly "${...}" with no nested
// "${" inside, returning the inner text.
func soleExpression(expr string) (string, bool) {
	if !strings.HasPrefix(expr, "${") || !strings.HasSuffix(expr, "}") {
		return "", false
	}
	inner := expr[2 : len(expr)-1]
	if strings.Contains(inner, "${") {
		return "", false
	}
	return inner, true
}

// asStatement reports whether inner ends with "!" (after trailing
// whitespace), returning the statement text with the "!" stripped.
func asStatement(inner string) (string, bool) {
	trimmed := strings.TrimRight(inner, " \t\r\n")
	if !strings.HasSuffix(trimmed, "!") {
		return "", false
	}
	return strings.TrimSuffix(trimmed, "!"), true
}

func escapeTemplateLiteral(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "`", "\\`")
	return s
}

// SetReturnValue records the task tree's chosen status and body.
func (c *Context) SetReturnValue(status int, body any) {
	c.status = status
	c.retJSON = body
}

// GetReturnValue snapshots the pending return value.
func (c *Context) GetReturnValue() dsl.ReturnValue {
	return dsl.ReturnValue{Status: c.status, Body: c.retJSON}
}

// Status returns the context's current status code without consuming it.
func (c *Context) Status() int {
	return c.status
}

// DSLRoot returns the absolute DSL root path this context was built with.
func (c *Context) DSLRoot() string {
	return c.dslRoot
}

// WrapJSCode returns "${"+code+"!}" — a convenience for tasks that need to
// emit a JS statement (variable assignment) through EvaluateExpr.
func WrapJSCode(code string) string {
	return "${" + code + "!}"
}
