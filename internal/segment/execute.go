package segment

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/gridmake/internal/ctxlog"
	"github.com/specialistvlad/gridmake/internal/env"
	"github.com/specialistvlad/gridmake/internal/library"
	"github.com/specialistvlad/gridmake/internal/staleness"
	"github.com/zclconf/go-cty/cty"
)

// LibraryVar is the variable under which a segment's packages are exposed
// to its payload.
const LibraryVar = "lib"

// OutOfDate reports whether the targets need to be rebuilt, ignoring Force.
func (s *Segment) OutOfDate() bool {
	return staleness.OutOfDate(s.targets, s.EffectiveDependencies(), s.packages, s.libs)
}

// Execute runs the payload if the segment is forced or its targets are out
// of date, and records the outcome. A non-nil handle replaces the segment's
// execution environment first. Notifications go to the context logger
// unless quiet is set.
//
// If the payload fails, the error is returned and the recorded outcome of
// the previous execution is kept.
func (s *Segment) Execute(ctx context.Context, handle *env.Env, quiet bool) error {
	if handle != nil {
		s.handle = handle
	}
	if quiet {
		ctx = ctxlog.Discard(ctx)
	}
	ctx, logger := ctxlog.With(ctx, "segment", s.id, "title", s.Title())

	stale := s.force || s.OutOfDate()
	inv := s.payload.prepare(s)

	if !stale {
		logger.Info("Targets are up to date, skipping.", "targets", s.targets)
		s.UpdateResult(false, nil, inv.skipped())
		s.lifecycle.fire(eventSkip)
		return nil
	}

	logger.Info("Targets are out of date, running.", "targets", s.targets, "forced", s.force)
	start := time.Now()
	result, err := inv.run(ctx)
	if err != nil {
		logger.Error("Segment failed.", "error", err)
		return fmt.Errorf("segment %d (%s): %w", s.id, s.Title(), err)
	}
	elapsed := time.Since(start)
	logger.Info("Segment finished.", "duration", elapsed)

	s.UpdateResult(true, &elapsed, result)
	s.lifecycle.fire(eventRun)
	return nil
}

// evalContext derives the context a payload is evaluated in: the handle's
// chain plus, when the segment uses packages, the lib namespace.
func (s *Segment) evalContext(ctx context.Context) (*hcl.EvalContext, error) {
	evalCtx := s.handle.EvalContext()
	if len(s.packages) == 0 {
		return evalCtx, nil
	}

	libs := make([]*library.Library, 0, len(s.packages))
	for _, name := range s.packages {
		if s.libs == nil {
			return nil, fmt.Errorf("package %q: %w", name, library.ErrNotInstalled)
		}
		l, err := s.libs.Resolve(name)
		if err != nil {
			return nil, fmt.Errorf("package %q: %w", name, err)
		}
		libs = append(libs, l)
	}
	ns, err := library.Namespace(ctx, libs)
	if err != nil {
		return nil, err
	}

	evalCtx = evalCtx.NewChild()
	evalCtx.Variables = map[string]cty.Value{LibraryVar: ns}
	return evalCtx, nil
}
