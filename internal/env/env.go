package env

import (
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

// Env is a named namespace of values, child namespaces and functions.
type Env struct {
	name     string
	parent   *Env
	vars     map[string]cty.Value
	children map[string]*Env
	funcs    map[string]function.Function
}

// New creates an empty root namespace.
func New(name string) *Env {
	return &Env{
		name:     name,
		vars:     make(map[string]cty.Value),
		children: make(map[string]*Env),
		funcs:    make(map[string]function.Function),
	}
}

// Child creates an empty namespace whose lookups fall through to e. The
// child is not registered in e's lookup table; use Bind for that.
func (e *Env) Child(name string) *Env {
	c := New(name)
	c.parent = e
	return c
}

// Name returns the identifier of the namespace.
func (e *Env) Name() string {
	return e.name
}

// Parent returns the enclosing namespace, or nil for a root.
func (e *Env) Parent() *Env {
	return e.parent
}

// Reparent replaces the enclosing namespace.
func (e *Env) Reparent(parent *Env) {
	e.parent = parent
}

// Set binds a value in this namespace, replacing any child namespace bound
// under the same name.
func (e *Env) Set(name string, v cty.Value) {
	delete(e.children, name)
	e.vars[name] = v
}

// Get looks a name up in this namespace, then in its ancestors.
func (e *Env) Get(name string) (cty.Value, bool) {
	for cur := e; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
		if c, ok := cur.children[name]; ok {
			return c.Value(), true
		}
	}
	return cty.NilVal, false
}

// Delete removes a value or child namespace bound directly in e.
func (e *Env) Delete(name string) {
	delete(e.vars, name)
	delete(e.children, name)
}

// Names returns the sorted names of the values bound directly in e.
func (e *Env) Names() []string {
	names := make([]string, 0, len(e.vars))
	for name := range e.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of values bound directly in e.
func (e *Env) Len() int {
	return len(e.vars)
}

// Bind registers child in e's lookup table under key.
func (e *Env) Bind(key string, child *Env) {
	delete(e.vars, key)
	e.children[key] = child
}

// Lookup returns the child namespace registered directly in e under key.
func (e *Env) Lookup(key string) (*Env, bool) {
	c, ok := e.children[key]
	return c, ok
}

// CopyFrom binds every value and child namespace bound directly in src
// into e, replacing what e had under the same names. Copied children are
// reparented to e.
func (e *Env) CopyFrom(src *Env) {
	for name, v := range src.vars {
		e.Set(name, v)
	}
	for key, c := range src.children {
		c.parent = e
		e.Bind(key, c)
	}
}

// SetFunction makes fn callable from expressions evaluated in e and its
// descendants.
func (e *Env) SetFunction(name string, fn function.Function) {
	e.funcs[name] = fn
}

// SetFunctions installs every function in fns.
func (e *Env) SetFunctions(fns map[string]function.Function) {
	for name, fn := range fns {
		e.funcs[name] = fn
	}
}

// Value returns the namespace as an object of its own values and child
// namespaces. An empty namespace is the empty object, never null.
func (e *Env) Value() cty.Value {
	attrs := e.variables()
	if len(attrs) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(attrs)
}

// EvalContext builds the hcl.EvalContext chain for e and its ancestors. The
// result is a snapshot: later changes to e are not reflected in it.
func (e *Env) EvalContext() *hcl.EvalContext {
	var ctx *hcl.EvalContext
	if e.parent != nil {
		ctx = e.parent.EvalContext().NewChild()
	} else {
		ctx = &hcl.EvalContext{}
	}
	ctx.Variables = e.variables()
	if len(e.funcs) > 0 {
		ctx.Functions = make(map[string]function.Function, len(e.funcs))
		for name, fn := range e.funcs {
			ctx.Functions[name] = fn
		}
	}
	return ctx
}

func (e *Env) variables() map[string]cty.Value {
	out := make(map[string]cty.Value, len(e.vars)+len(e.children))
	for name, v := range e.vars {
		out[name] = v
	}
	for name, c := range e.children {
		out[name] = c.Value()
	}
	return out
}
