package graph

import (
	"fmt"

	"github.com/specialistvlad/gridmake/internal/dag"
)

// ArrowsTo is the arrow direction carried by every edge: from dependency
// towards the thing that consumes it.
const ArrowsTo = "to"

// Node is a vertex in the dependency graph.
type Node struct {
	ID    string
	Label string
	// IsSource marks a node that is never itself a produced target.
	IsSource      bool
	IsInstruction bool
	IsPackage     bool
}

// Edge is a directed dependency between two nodes, owned by one segment.
type Edge struct {
	From      string
	To        string
	Arrows    string
	IsSource  bool
	IsPackage bool
	Outdated  bool
	SegmentID int
}

// Projection is a set of nodes and edges.
type Projection struct {
	Nodes []Node
	Edges []Edge
}

// InstructionID returns the node ID of a segment's instruction vertex.
func InstructionID(segmentID int) string {
	return fmt.Sprintf("segment:%d", segmentID)
}

type edgeKey struct {
	from, to  string
	segmentID int
}

// Merge unions projections by node and edge identity, keeping first-seen
// order. A merged node is a source only if it is a source in every
// projection it appears in. Edge source flags and outdated flags are then
// recomputed: each segment's verdict is read from its instruction edges and
// applied to every edge of that segment whose source node is not an
// original input.
func Merge(projections ...Projection) Projection {
	var out Projection
	nodeIndex := make(map[string]int)
	for _, p := range projections {
		for _, n := range p.Nodes {
			i, ok := nodeIndex[n.ID]
			if !ok {
				nodeIndex[n.ID] = len(out.Nodes)
				out.Nodes = append(out.Nodes, n)
				continue
			}
			merged := &out.Nodes[i]
			merged.IsSource = merged.IsSource && n.IsSource
			merged.IsInstruction = merged.IsInstruction || n.IsInstruction
			merged.IsPackage = merged.IsPackage || n.IsPackage
			if merged.Label == "" {
				merged.Label = n.Label
			}
		}
	}

	seen := make(map[edgeKey]bool)
	verdict := make(map[int]bool)
	for _, p := range projections {
		for _, e := range p.Edges {
			k := edgeKey{e.From, e.To, e.SegmentID}
			if seen[k] {
				continue
			}
			seen[k] = true
			out.Edges = append(out.Edges, e)
			if i, ok := nodeIndex[e.From]; ok && out.Nodes[i].IsInstruction && e.Outdated {
				verdict[e.SegmentID] = true
			}
		}
	}

	for i := range out.Edges {
		e := &out.Edges[i]
		if n, ok := nodeIndex[e.From]; ok {
			e.IsSource = out.Nodes[n].IsSource
		}
		e.Outdated = verdict[e.SegmentID] && !e.IsSource
	}
	return out
}

// DAG builds a dag.Graph over the projection's nodes and edges.
func DAG(p Projection) (*dag.Graph, error) {
	g := dag.New()
	for _, n := range p.Nodes {
		g.AddNode(n.ID)
	}
	for _, e := range p.Edges {
		if err := g.AddEdge(e.From, e.To); err != nil {
			return nil, fmt.Errorf("edge of segment %d: %w", e.SegmentID, err)
		}
	}
	return g, nil
}

// Validate reports an error if the projection has dangling edges or cycles.
func Validate(p Projection) error {
	g, err := DAG(p)
	if err != nil {
		return err
	}
	return g.DetectCycles()
}

// Propagate marks every edge leaving a node that is downstream of an
// outdated edge as outdated: if a target has to be rebuilt, everything
// built from it has to be rebuilt as well. The input is not modified.
func Propagate(p Projection) (Projection, error) {
	g, err := DAG(p)
	if err != nil {
		return Projection{}, err
	}

	var pending []string
	for _, e := range p.Edges {
		if e.Outdated {
			pending = append(pending, e.To)
		}
	}
	stale := make(map[string]bool)
	for _, id := range pending {
		stale[id] = true
	}
	for _, id := range g.Descendants(pending...) {
		stale[id] = true
	}

	out := Projection{
		Nodes: append([]Node(nil), p.Nodes...),
		Edges: append([]Edge(nil), p.Edges...),
	}
	for i := range out.Edges {
		if stale[out.Edges[i].From] {
			out.Edges[i].Outdated = true
		}
	}
	return out, nil
}

// Sorted returns p with its nodes in topological order, inputs before the
// segments that read them and segments before their targets. Edges keep
// their order. The input is not modified.
func Sorted(p Projection) (Projection, error) {
	g, err := DAG(p)
	if err != nil {
		return Projection{}, err
	}
	order, err := g.Sort()
	if err != nil {
		return Projection{}, err
	}

	byID := make(map[string]Node, len(p.Nodes))
	for _, n := range p.Nodes {
		byID[n.ID] = n
	}
	out := Projection{
		Nodes: make([]Node, 0, len(order)),
		Edges: append([]Edge(nil), p.Edges...),
	}
	for _, id := range order {
		out.Nodes = append(out.Nodes, byID[id])
	}
	return out, nil
}
