package segment

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/specialistvlad/gridmake/internal/env"
	"github.com/specialistvlad/gridmake/internal/library"
	"github.com/zclconf/go-cty/cty"
)

// Options holds the attributes shared by every kind of segment.
type Options struct {
	// ID is assigned by the pipeline and never changes.
	ID           int
	Targets      []string
	Dependencies []string
	Packages     []string
	// Handle is the environment the payload executes in.
	Handle *env.Env
	Force  bool
	Label  string
	Note   string
	// Libraries resolves Packages. It may be nil when Packages is empty.
	Libraries library.Resolver
}

// Segment is one unit of work.
type Segment struct {
	id           int
	targets      []string
	dependencies []string
	packages     []string
	libs         library.Resolver
	handle       *env.Env
	force        bool
	payload      Payload

	executed bool
	result   cty.Value
	duration *time.Duration

	label string
	note  string

	lifecycle *lifecycle
}

// New validates opts and builds a segment around payload. No segment is
// returned if validation fails.
func New(opts Options, payload Payload) (*Segment, error) {
	return build(opts, payload, StateConstructed)
}

func build(opts Options, payload Payload, state string) (*Segment, error) {
	if payload == nil {
		return nil, ErrNoPayload
	}
	if opts.ID < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidID, opts.ID)
	}
	if opts.Handle == nil {
		return nil, ErrNoHandle
	}

	targets := unique(opts.Targets)
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}
	dependencies := unique(opts.Dependencies)
	packages := unique(opts.Packages)
	for _, list := range [][]string{targets, dependencies, packages} {
		for _, p := range list {
			if p == "" {
				return nil, ErrEmptyPath
			}
		}
	}

	for _, name := range packages {
		if opts.Libraries == nil {
			return nil, fmt.Errorf("package %q: %w", name, library.ErrNotInstalled)
		}
		if _, err := opts.Libraries.Resolve(name); err != nil {
			return nil, fmt.Errorf("package %q: %w", name, err)
		}
	}

	if overlap := intersect(targets, dependencies); len(overlap) > 0 {
		return nil, fmt.Errorf("%w: %q", ErrTargetIsDependency, overlap)
	}
	if err := payload.validate(targets); err != nil {
		return nil, err
	}

	lc, err := newLifecycle(state, opts.ID)
	if err != nil {
		return nil, err
	}

	return &Segment{
		id:           opts.ID,
		targets:      targets,
		dependencies: dependencies,
		packages:     packages,
		libs:         opts.Libraries,
		handle:       opts.Handle,
		force:        opts.Force,
		payload:      payload,
		result:       cty.NullVal(cty.DynamicPseudoType),
		label:        opts.Label,
		note:         opts.Note,
		lifecycle:    lc,
	}, nil
}

// ID returns the pipeline-assigned identifier.
func (s *Segment) ID() int { return s.id }

// Targets returns the deduplicated target paths.
func (s *Segment) Targets() []string { return append([]string(nil), s.targets...) }

// Dependencies returns the deduplicated dependency paths.
func (s *Segment) Dependencies() []string { return append([]string(nil), s.dependencies...) }

// Packages returns the deduplicated package names.
func (s *Segment) Packages() []string { return append([]string(nil), s.packages...) }

// Handle returns the execution environment.
func (s *Segment) Handle() *env.Env { return s.handle }

// Force reports whether the staleness check is bypassed.
func (s *Segment) Force() bool { return s.force }

// Payload returns the recipe or script.
func (s *Segment) Payload() Payload { return s.payload }

// Executed reports whether the last execution ran the payload.
func (s *Segment) Executed() bool { return s.executed }

// Result returns the outcome of the last execution: the recipe's value, or
// the script's registered values as an object. It is null before the first
// execution and after a skipped recipe.
func (s *Segment) Result() cty.Value { return s.result }

// Duration returns how long the last execution took. It reports false when
// the segment never ran or the last execution was skipped.
func (s *Segment) Duration() (time.Duration, bool) {
	if s.duration == nil {
		return 0, false
	}
	return *s.duration, true
}

// Label returns the label annotation.
func (s *Segment) Label() string { return s.label }

// Note returns the note annotation.
func (s *Segment) Note() string { return s.note }

// State returns the lifecycle state: constructed, executed or skipped.
func (s *Segment) State() string { return s.lifecycle.current() }

// EffectiveDependencies returns the dependencies that decide staleness: the
// declared dependencies plus, for scripts, the script itself.
func (s *Segment) EffectiveDependencies() []string {
	return s.payload.effectiveDependencies(s.dependencies)
}

// Title is the label, else the script's base name, else "Recipe".
func (s *Segment) Title() string {
	if s.label != "" {
		return s.label
	}
	return s.payload.title()
}

// UpdateResult overwrites the outcome of the last execution verbatim.
func (s *Segment) UpdateResult(executed bool, duration *time.Duration, result cty.Value) {
	s.executed = executed
	s.duration = duration
	s.result = result
}

// Annotate sets the label and note. Empty values leave the current
// annotation in place.
func (s *Segment) Annotate(label, note string) {
	if label != "" {
		s.label = label
	}
	if note != "" {
		s.note = note
	}
}

// Restore reapplies a previously recorded outcome together with the
// lifecycle state it was recorded in.
func (s *Segment) Restore(executed bool, duration *time.Duration, result cty.Value, state string) error {
	var event string
	switch state {
	case StateConstructed:
		event = eventReset
	case StateExecuted:
		event = eventRun
	case StateSkipped:
		event = eventSkip
	default:
		return fmt.Errorf("segment %d: unknown state %q", s.id, state)
	}
	s.UpdateResult(executed, duration, result)
	if s.State() != state {
		s.lifecycle.fire(event)
	}
	return nil
}

// Reset clears the outcome of the last execution without touching any
// files, returning the segment to the constructed state.
func (s *Segment) Reset() {
	s.UpdateResult(false, nil, cty.NullVal(cty.DynamicPseudoType))
	s.lifecycle.fire(eventReset)
}

// unique drops entries that name the same cleaned path as an earlier one,
// keeping the first spelling.
func unique(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		key := s
		if s != "" {
			key = filepath.Clean(s)
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

// intersect returns the paths of a that also appear in b, comparing
// cleaned paths.
func intersect(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, p := range b {
		set[filepath.Clean(p)] = struct{}{}
	}
	var out []string
	for _, p := range a {
		if _, ok := set[filepath.Clean(p)]; ok {
			out = append(out, p)
		}
	}
	return out
}
