package dag

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Graph is a string-keyed directed graph. It is built once per query and is
// not safe for concurrent mutation.
type Graph struct {
	nodes map[string]*vertex
}

type vertex struct {
	id string
	// upstream are the vertices with an edge into this one, downstream the
	// vertices this one has an edge to.
	upstream   map[string]*vertex
	downstream map[string]*vertex
}

// CycleError reports a cycle as the ordered list of vertices on it, with the
// first vertex repeated at the end.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "cycle detected: " + strings.Join(e.Path, " -> ")
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*vertex)}
}

// AddNode adds a vertex. Adding an existing ID is a no-op.
func (g *Graph) AddNode(id string) {
	if _, ok := g.nodes[id]; ok {
		return
	}
	g.nodes[id] = &vertex{
		id:         id,
		upstream:   make(map[string]*vertex),
		downstream: make(map[string]*vertex),
	}
}

// AddEdge adds the edge from -> to. Both vertices must exist and differ.
func (g *Graph) AddEdge(from, to string) error {
	if from == to {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", from, to)
	}
	src, ok := g.nodes[from]
	if !ok {
		return fmt.Errorf("source node not found: %s", from)
	}
	dst, ok := g.nodes[to]
	if !ok {
		return fmt.Errorf("destination node not found: %s", to)
	}
	src.downstream[to] = dst
	dst.upstream[from] = src
	return nil
}

// Len returns the number of vertices.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Upstream returns the sorted IDs of the vertices with an edge into id.
func (g *Graph) Upstream(id string) ([]string, error) {
	v, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return sortedIDs(v.upstream), nil
}

// Downstream returns the sorted IDs of the vertices id has an edge to.
func (g *Graph) Downstream(id string) ([]string, error) {
	v, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return sortedIDs(v.downstream), nil
}

// Descendants returns the sorted IDs of every vertex reachable from ids.
// A starting vertex is only included if another starting vertex reaches it.
// Unknown IDs are ignored.
func (g *Graph) Descendants(ids ...string) []string {
	seen := make(map[string]*vertex)
	var stack []*vertex
	for _, id := range ids {
		if v, ok := g.nodes[id]; ok {
			stack = append(stack, v)
		}
	}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for id, next := range v.downstream {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = next
			stack = append(stack, next)
		}
	}
	return sortedIDs(seen)
}

// Sort returns the vertices in topological order, breaking ties by ID.
// It returns a *CycleError if the graph is not acyclic.
func (g *Graph) Sort() ([]string, error) {
	if err := g.DetectCycles(); err != nil {
		return nil, err
	}

	indegree := make(map[string]int, len(g.nodes))
	var ready []string
	for id, v := range g.nodes {
		indegree[id] = len(v.upstream)
		if len(v.upstream) == 0 {
			ready = append(ready, id)
		}
	}
	slices.Sort(ready)

	order := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		for _, next := range sortedIDs(g.nodes[id].downstream) {
			indegree[next]--
			if indegree[next] == 0 {
				i, _ := slices.BinarySearch(ready, next)
				ready = slices.Insert(ready, i, next)
			}
		}
	}
	return order, nil
}

// DetectCycles returns a *CycleError describing the first cycle found, or nil.
// Vertices are visited in ID order so the reported cycle is deterministic.
func (g *Graph) DetectCycles() error {
	const (
		unvisited = iota
		onPath
		done
	)
	state := make(map[string]int, len(g.nodes))
	var path []string

	var visit func(v *vertex) *CycleError
	visit = func(v *vertex) *CycleError {
		switch state[v.id] {
		case done:
			return nil
		case onPath:
			start := slices.Index(path, v.id)
			cycle := append(slices.Clone(path[start:]), v.id)
			return &CycleError{Path: cycle}
		}

		state[v.id] = onPath
		path = append(path, v.id)
		for _, id := range sortedIDs(v.downstream) {
			if err := visit(v.downstream[id]); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		state[v.id] = done
		return nil
	}

	for _, id := range sortedIDs(g.nodes) {
		if state[id] != unvisited {
			continue
		}
		if err := visit(g.nodes[id]); err != nil {
			return err
		}
	}
	return nil
}

func sortedIDs(m map[string]*vertex) []string {
	return slices.Sorted(maps.Keys(m))
}
