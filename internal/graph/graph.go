// Package graph implements the lineage graph: a directed graph of
// provenance records connected by typed edges, stored as an explicit
// arena (ids mapped to dense indices, adjacency as index slices) rather
// than a generic graph library.
package graph

import (
	"errors"
	"fmt"

	"github.com/provlens/provlens/internal/model"
)

// EdgeType classifies the relationship an edge expresses.
type EdgeType string

const (
	EdgeAdjacent    EdgeType = "adjacent"
	EdgeSemantic    EdgeType = "semantic"
	EdgeReferences  EdgeType = "references"
	EdgeSameEntity  EdgeType = "same_entity"
	EdgeDerived     EdgeType = "derived"
	EdgeParentChild EdgeType = "parent_child"
)

// Valid reports whether the edge type belongs to the closed set.
func (t EdgeType) Valid() bool {
	switch t {
	case EdgeAdjacent, EdgeSemantic, EdgeReferences, EdgeSameEntity, EdgeDerived, EdgeParentChild:
		return true
	}
	return false
}

// ErrNotFound reports an unknown node id.
var ErrNotFound = errors.New("graph: node not found")

type arc struct {
	peer int // dense index of the other endpoint
	typ  EdgeType
}

// Graph keeps nodes in insertion order with dense indices. Successor and
// predecessor lists are kept in parallel so traversal never scans the full
// edge set.
type Graph struct {
	ids     []string
	byID    map[string]int
	records []model.Record
	out     [][]arc // successors of node i
	in      [][]arc // predecessors of node i
}

// New returns an empty lineage graph.
func New() *Graph {
	return &Graph{byID: make(map[string]int)}
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.ids) }

// EdgeCount returns the number of directed edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, arcs := range g.out {
		n += len(arcs)
	}
	return n
}

// Contains reports whether a node id is present.
func (g *Graph) Contains(id string) bool {
	_, ok := g.byID[id]
	return ok
}

// AddNode inserts the record's node, overwriting the stored record when
// the id already exists. Existing edges are preserved on overwrite.
func (g *Graph) AddNode(rec model.Record) {
	if i, ok := g.byID[rec.ID]; ok {
		g.records[i] = rec
		return
	}
	i := len(g.ids)
	g.ids = append(g.ids, rec.ID)
	g.records = append(g.records, rec)
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	g.byID[rec.ID] = i
}

// AddEdge inserts a typed directed edge. Both endpoints must already be
// present; a duplicate (source, target, type) edge is a no-op.
func (g *Graph) AddEdge(source, target string, typ EdgeType) error {
	if !typ.Valid() {
		return fmt.Errorf("invalid edge type %q", typ)
	}
	si, ok := g.byID[source]
	if !ok {
		return fmt.Errorf("%w: source %s", ErrNotFound, source)
	}
	ti, ok := g.byID[target]
	if !ok {
		return fmt.Errorf("%w: target %s", ErrNotFound, target)
	}

	for _, a := range g.out[si] {
		if a.peer == ti && a.typ == typ {
			return nil
		}
	}
	g.out[si] = append(g.out[si], arc{peer: ti, typ: typ})
	g.in[ti] = append(g.in[ti], arc{peer: si, typ: typ})
	return nil
}

// GetNode returns the full record stored for id.
func (g *Graph) GetNode(id string) (model.Record, error) {
	i, ok := g.byID[id]
	if !ok {
		return model.Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return g.records[i], nil
}

// Neighbors walks the graph breadth-first from id, treating edges as
// undirected, for up to depth hops. The start node is excluded; an
// unknown id or depth <= 0 yields no neighbors.
func (g *Graph) Neighbors(id string, depth int) []string {
	start, ok := g.byID[id]
	if !ok || depth <= 0 {
		return nil
	}

	visited := make(map[int]struct{}, 8)
	visited[start] = struct{}{}

	var reached []string
	frontier := []int{start}

	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		var next []int
		for _, i := range frontier {
			for _, a := range g.out[i] {
				if _, seen := visited[a.peer]; !seen {
					visited[a.peer] = struct{}{}
					reached = append(reached, g.ids[a.peer])
					next = append(next, a.peer)
				}
			}
			for _, a := range g.in[i] {
				if _, seen := visited[a.peer]; !seen {
					visited[a.peer] = struct{}{}
					reached = append(reached, g.ids[a.peer])
					next = append(next, a.peer)
				}
			}
		}
		frontier = next
	}
	return reached
}
