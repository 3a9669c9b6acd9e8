// Package env implements the execution handle that segments evaluate their
// payloads in.
//
// An Env is a named, mutable namespace of cty values. It owns its variables,
// a lookup table of named child namespaces, and a function table. Envs form a
// chain through their parent, and EvalContext turns that chain into the
// matching chain of hcl.EvalContext values, so a lookup that misses in a
// child falls through to its ancestors exactly like HCL scoping does.
//
// There is no locking: a namespace is written only by the segment that is
// currently executing against it.
package env
