package segment

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// Recipe is an HCL expression evaluated in the segment's environment.
type Recipe struct {
	source string
	expr   hclsyntax.Expression
}

// ParseRecipe parses source as a single HCL expression.
func ParseRecipe(source string) (*Recipe, error) {
	if strings.TrimSpace(source) == "" {
		return nil, fmt.Errorf("%w: empty recipe", ErrInvalidRecipe)
	}
	expr, diags := hclsyntax.ParseExpression([]byte(source), "recipe", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRecipe, diags.Error())
	}
	return &Recipe{source: source, expr: expr}, nil
}

// NewRecipe builds a segment whose payload is the expression in source.
func NewRecipe(opts Options, source string) (*Segment, error) {
	r, err := ParseRecipe(source)
	if err != nil {
		return nil, err
	}
	return New(opts, r)
}

// Source returns the expression text.
func (r *Recipe) Source() string { return r.source }

func (r *Recipe) Kind() string { return "recipe" }

func (r *Recipe) title() string { return "Recipe" }

func (r *Recipe) describe() []string {
	lines := []string{"Recipe:"}
	for _, l := range strings.Split(strings.TrimRight(r.source, "\n"), "\n") {
		lines = append(lines, "    "+l)
	}
	return lines
}

func (r *Recipe) describeResult(v cty.Value) string {
	if v.IsNull() {
		return "null"
	}
	return v.Type().FriendlyName()
}

func (r *Recipe) effectiveDependencies(deps []string) []string {
	return append([]string(nil), deps...)
}

func (r *Recipe) validate([]string) error { return nil }

func (r *Recipe) prepare(s *Segment) invocation {
	return &recipeRun{recipe: r, segment: s}
}

type recipeRun struct {
	recipe  *Recipe
	segment *Segment
}

func (i *recipeRun) run(ctx context.Context) (cty.Value, error) {
	evalCtx, err := i.segment.evalContext(ctx)
	if err != nil {
		return cty.NilVal, err
	}
	v, diags := i.recipe.expr.Value(evalCtx)
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("recipe failed: %s", diags.Error())
	}
	return v, nil
}

func (i *recipeRun) skipped() cty.Value {
	return cty.NullVal(cty.DynamicPseudoType)
}
