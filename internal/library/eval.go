package library

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/gridmake/internal/funcs"
)

// funcsOnly is the evaluation context for library files: the standard
// functions and no variables, so library values never depend on a pipeline.
func funcsOnly() *hcl.EvalContext {
	return &hcl.EvalContext{Functions: funcs.Standard()}
}
