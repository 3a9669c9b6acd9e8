package pipeline

import (
	"github.com/specialistvlad/gridmake/internal/graph"
)

// Projection merges every segment's nodes and edges into one graph and
// propagates staleness downstream.
func (p *Pipeline) Projection() (graph.Projection, error) {
	return graph.Propagate(p.merged())
}

// Validate rejects pipelines whose segments depend on each other in a cycle.
func (p *Pipeline) Validate() error {
	return graph.Validate(p.merged())
}

// OutOfDate returns the ids of segments that a build would run: forced
// segments, and segments with an outdated edge once staleness has been
// propagated across the pipeline.
func (p *Pipeline) OutOfDate() ([]int, error) {
	proj, err := p.Projection()
	if err != nil {
		return nil, err
	}
	stale := make(map[int]bool)
	for _, e := range proj.Edges {
		if e.Outdated {
			stale[e.SegmentID] = true
		}
	}

	var ids []int
	for _, s := range p.segments {
		if s.Force() || stale[s.ID()] || s.OutOfDate() {
			ids = append(ids, s.ID())
		}
	}
	return ids, nil
}

func (p *Pipeline) merged() graph.Projection {
	projections := make([]graph.Projection, 0, len(p.segments))
	for _, s := range p.segments {
		projections = append(projections, s.Projection())
	}
	return graph.Merge(projections...)
}
