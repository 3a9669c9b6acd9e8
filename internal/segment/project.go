package segment

import (
	"github.com/specialistvlad/gridmake/internal/graph"
	"github.com/specialistvlad/gridmake/internal/staleness"
)

// Nodes projects the segment into graph nodes: its instruction, then its
// targets, dependencies and packages.
func (s *Segment) Nodes() []graph.Node {
	instr := graph.InstructionID(s.id)
	nodes := []graph.Node{{ID: instr, Label: s.Title(), IsInstruction: true}}
	for _, t := range s.targets {
		nodes = append(nodes, graph.Node{ID: t, Label: t})
	}
	for _, d := range s.EffectiveDependencies() {
		nodes = append(nodes, graph.Node{ID: d, Label: d, IsSource: true})
	}
	for _, p := range s.packages {
		nodes = append(nodes, graph.Node{ID: p, Label: p, IsSource: true, IsPackage: true})
	}
	return nodes
}

// Edges projects the segment into graph edges: packages and dependencies
// into the instruction, the instruction into each target.
//
// A missing effective dependency marks every edge outdated, package edges
// included. Otherwise dependency and target edges carry the oracle's answer
// and package edges, which leave a source node, are not outdated. Whether a
// dependency is an original input is only known across segments;
// graph.Merge settles that and clears the flag on every source edge.
func (s *Segment) Edges() []graph.Edge {
	deps := s.EffectiveDependencies()
	missing := len(staleness.Missing(deps)) > 0
	outdated := missing || staleness.OutOfDate(s.targets, deps, s.packages, s.libs)

	instr := graph.InstructionID(s.id)
	var edges []graph.Edge
	for _, p := range s.packages {
		edges = append(edges, graph.Edge{
			From: p, To: instr, Arrows: graph.ArrowsTo,
			IsSource: true, IsPackage: true, Outdated: missing, SegmentID: s.id,
		})
	}
	for _, d := range deps {
		edges = append(edges, graph.Edge{
			From: d, To: instr, Arrows: graph.ArrowsTo,
			Outdated: outdated, SegmentID: s.id,
		})
	}
	for _, t := range s.targets {
		edges = append(edges, graph.Edge{
			From: instr, To: t, Arrows: graph.ArrowsTo,
			Outdated: outdated, SegmentID: s.id,
		})
	}
	return edges
}

// Projection returns Nodes and Edges together.
func (s *Segment) Projection() graph.Projection {
	return graph.Projection{Nodes: s.Nodes(), Edges: s.Edges()}
}
