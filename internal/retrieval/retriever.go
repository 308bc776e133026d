// Package retrieval composes the embedding provider, vector index,
// lineage graph and record registry into ranked, provenance-bearing
// retrieval.
package retrieval

import (
	"context"
	"fmt"
	"sort"

	"github.com/provlens/provlens/internal/embedding"
	"github.com/provlens/provlens/internal/graph"
	"github.com/provlens/provlens/internal/index"
	"github.com/provlens/provlens/internal/model"
)

// neighborScore is assigned to graph-expanded results. It is a fixed
// approximation, not recomputed against the query.
const neighborScore = 0.8

// Retriever merges similarity search with graph expansion and filtering.
type Retriever struct {
	embedder embedding.Embedder
	store    index.Store
	graph    *graph.Graph
	records  map[string]model.Record
}

// New wires a retriever over already-loaded state.
func New(embedder embedding.Embedder, store index.Store, g *graph.Graph, records map[string]model.Record) *Retriever {
	return &Retriever{embedder: embedder, store: store, graph: g, records: records}
}

// Retrieve returns at most k hits sorted by descending score. Candidates
// are over-fetched (2k) to survive filtering; when graphDepth > 0 each
// surviving candidate's graph neighborhood is merged in at a fixed
// neighbor score, keeping the higher score on collision.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int, filters *FilterConfig, graphDepth int) ([]index.Hit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits := r.store.Search(queryVec, k*2)

	f := FilterConfig{}
	if filters != nil {
		f = *filters
	}
	hits = ApplyFilters(hits, r.records, f)

	if len(hits) > k {
		hits = hits[:k]
	}

	if graphDepth > 0 {
		hits = r.expand(hits, graphDepth)
	}

	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].Score != hits[b].Score {
			return hits[a].Score > hits[b].Score
		}
		return hits[a].ID < hits[b].ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// expand merges graph neighbors of each hit into the result set,
// deduplicating by id and keeping the higher score.
func (r *Retriever) expand(hits []index.Hit, depth int) []index.Hit {
	scores := make(map[string]float64, len(hits))
	order := make([]string, 0, len(hits))
	for _, hit := range hits {
		if prev, ok := scores[hit.ID]; !ok || hit.Score > prev {
			if !ok {
				order = append(order, hit.ID)
			}
			scores[hit.ID] = hit.Score
		}
	}

	for _, hit := range hits {
		for _, neighborID := range r.graph.Neighbors(hit.ID, depth) {
			if _, known := r.records[neighborID]; !known {
				continue
			}
			if prev, ok := scores[neighborID]; !ok || neighborScore > prev {
				if !ok {
					order = append(order, neighborID)
				}
				scores[neighborID] = neighborScore
			}
		}
	}

	out := make([]index.Hit, 0, len(order))
	for _, id := range order {
		out = append(out, index.Hit{ID: id, Score: scores[id]})
	}
	return out
}
