package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/specialistvlad/gridmake/internal/ctxlog"
	"github.com/specialistvlad/gridmake/internal/env"
	"github.com/specialistvlad/gridmake/internal/library"
	"github.com/specialistvlad/gridmake/internal/segment"
)

// Recorder observes every segment execution.
type Recorder interface {
	Record(ctx context.Context, s *segment.Segment, started time.Time, err error) error
}

// Pipeline is an ordered collection of segments sharing a root environment.
type Pipeline struct {
	root     *env.Env
	libs     library.Resolver
	segments []*segment.Segment
	nextID   int
	recorder Recorder
}

// New creates an empty pipeline. Recipes run in root unless told otherwise;
// each script gets its own namespace bound in root.
func New(root *env.Env, libs library.Resolver) *Pipeline {
	return &Pipeline{root: root, libs: libs, nextID: 1}
}

// SetRecorder attaches r to every later execution.
func (p *Pipeline) SetRecorder(r Recorder) {
	p.recorder = r
}

// Root returns the shared environment.
func (p *Pipeline) Root() *env.Env {
	return p.root
}

// Segments returns the segments in declaration order.
func (p *Pipeline) Segments() []*segment.Segment {
	return append([]*segment.Segment(nil), p.segments...)
}

// Segment returns the segment with the given id.
func (p *Pipeline) Segment(id int) (*segment.Segment, bool) {
	for _, s := range p.segments {
		if s.ID() == id {
			return s, true
		}
	}
	return nil, false
}

// Len returns the number of segments.
func (p *Pipeline) Len() int {
	return len(p.segments)
}

// Recipe declares a recipe segment without running it.
func (p *Pipeline) Recipe(opts segment.Options, source string) (*segment.Segment, error) {
	opts = p.defaults(opts)
	s, err := segment.NewRecipe(opts, source)
	if err != nil {
		return nil, err
	}
	return s, p.Add(s)
}

// Script declares a script segment without running it. Unless opts carries a
// handle, the script gets a fresh namespace bound in the root environment
// as segment_<id>, so later recipes can read what it defined.
func (p *Pipeline) Script(opts segment.Options, path string) (*segment.Segment, error) {
	bindHandle := opts.Handle == nil
	opts = p.defaults(opts)
	if bindHandle {
		opts.Handle = p.root.Child(fmt.Sprintf("segment_%d", opts.ID))
	}
	s, err := segment.NewScript(opts, path)
	if err != nil {
		return nil, err
	}
	if err := p.Add(s); err != nil {
		return nil, err
	}
	if bindHandle {
		p.root.Bind(opts.Handle.Name(), opts.Handle)
	}
	return s, nil
}

// MakeWithRecipe declares a recipe segment and executes it.
func (p *Pipeline) MakeWithRecipe(ctx context.Context, opts segment.Options, source string, quiet bool) (*segment.Segment, error) {
	s, err := p.Recipe(opts, source)
	if err != nil {
		return nil, err
	}
	return s, p.execute(ctx, s, quiet)
}

// MakeWithSource declares a script segment and executes it.
func (p *Pipeline) MakeWithSource(ctx context.Context, opts segment.Options, path string, quiet bool) (*segment.Segment, error) {
	s, err := p.Script(opts, path)
	if err != nil {
		return nil, err
	}
	return s, p.execute(ctx, s, quiet)
}

// Add appends an already constructed segment. Its id must be unused.
func (p *Pipeline) Add(s *segment.Segment) error {
	if _, exists := p.Segment(s.ID()); exists {
		return fmt.Errorf("segment %d already exists in the pipeline", s.ID())
	}
	p.segments = append(p.segments, s)
	if s.ID() >= p.nextID {
		p.nextID = s.ID() + 1
	}
	return nil
}

// Build executes every segment in declaration order, stopping at the first
// failure.
func (p *Pipeline) Build(ctx context.Context, quiet bool) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Pipeline build started.", "segments", len(p.segments))

	executed := 0
	for _, s := range p.segments {
		if err := p.execute(ctx, s, quiet); err != nil {
			return err
		}
		if s.Executed() {
			executed++
		}
	}

	if !quiet {
		logger.Info("Pipeline build finished.", "segments", len(p.segments), "executed", executed)
	}
	return nil
}

// Clean forgets the outcome of every segment. Targets on disk are left alone.
func (p *Pipeline) Clean() {
	for _, s := range p.segments {
		s.Reset()
	}
}

func (p *Pipeline) execute(ctx context.Context, s *segment.Segment, quiet bool) error {
	started := time.Now()
	err := s.Execute(ctx, nil, quiet)
	if p.recorder != nil {
		if recErr := p.recorder.Record(ctx, s, started, err); recErr != nil {
			ctxlog.FromContext(ctx).Warn("Failed to record execution.", "segment", s.ID(), "error", recErr)
		}
	}
	return err
}

func (p *Pipeline) defaults(opts segment.Options) segment.Options {
	if opts.ID == 0 {
		opts.ID = p.nextID
	}
	if opts.Handle == nil {
		opts.Handle = p.root
	}
	if opts.Libraries == nil {
		opts.Libraries = p.libs
	}
	return opts
}
