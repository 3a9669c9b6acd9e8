package segment

import (
	"context"

	"github.com/zclconf/go-cty/cty"
)

// Payload is the work a segment runs: a *Recipe or a *Script.
type Payload interface {
	// Kind is "recipe" or "script".
	Kind() string

	title() string
	describe() []string
	describeResult(v cty.Value) string
	effectiveDependencies(deps []string) []string
	validate(targets []string) error
	prepare(s *Segment) invocation
}

// invocation is one prepared execution of a payload.
type invocation interface {
	run(ctx context.Context) (cty.Value, error)
	// skipped is the result recorded when the targets are up to date.
	skipped() cty.Value
}
