package graph

import "github.com/provlens/provlens/internal/model"

// SnapshotNode is the persisted per-node shape. Content is deliberately
// not persisted; reload resolves full records through an external
// registry.
type SnapshotNode struct {
	ID             string `json:"id"`
	ContentHash    string `json:"content_hash"`
	DatasetVersion string `json:"dataset_version"`
}

// SnapshotEdge is the persisted edge shape.
type SnapshotEdge struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	EdgeType string `json:"edge_type"`
}

// Snapshot is the JSON-serializable graph export.
type Snapshot struct {
	Nodes map[string]SnapshotNode `json:"nodes"`
	Edges []SnapshotEdge          `json:"edges"`
}

// Export produces the persisted graph shape.
func (g *Graph) Export() Snapshot {
	snap := Snapshot{Nodes: make(map[string]SnapshotNode, len(g.ids))}
	for i, id := range g.ids {
		rec := g.records[i]
		snap.Nodes[id] = SnapshotNode{
			ID:             rec.ID,
			ContentHash:    rec.ContentHash,
			DatasetVersion: rec.DatasetVersion,
		}
	}
	for i, arcs := range g.out {
		for _, a := range arcs {
			snap.Edges = append(snap.Edges, SnapshotEdge{
				Source:   g.ids[i],
				Target:   g.ids[a.peer],
				EdgeType: string(a.typ),
			})
		}
	}
	return snap
}

// Registry resolves a node id to its full provenance record during
// snapshot reload.
type Registry interface {
	Lookup(id string) (model.Record, bool)
}

// MapRegistry adapts a plain map to the Registry interface.
type MapRegistry map[string]model.Record

func (m MapRegistry) Lookup(id string) (model.Record, bool) {
	rec, ok := m[id]
	return rec, ok
}

// Load replaces the graph contents from a snapshot. Nodes are resolved
// against the registry; ids absent from the registry are skipped, as are
// edges with a skipped endpoint.
func (g *Graph) Load(snap Snapshot, registry Registry) {
	g.ids = nil
	g.records = nil
	g.out = nil
	g.in = nil
	g.byID = make(map[string]int, len(snap.Nodes))

	for id := range snap.Nodes {
		if rec, ok := registry.Lookup(id); ok {
			g.AddNode(rec)
		}
	}
	for _, e := range snap.Edges {
		if !g.Contains(e.Source) || !g.Contains(e.Target) {
			continue
		}
		// endpoints verified above, only an invalid type can fail here
		_ = g.AddEdge(e.Source, e.Target, EdgeType(e.EdgeType))
	}
}
