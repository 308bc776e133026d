package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provlens/provlens/internal/embedding"
	"github.com/provlens/provlens/internal/graph"
	"github.com/provlens/provlens/internal/index"
	"github.com/provlens/provlens/internal/model"
)

// fakeEmbedder maps known texts to fixed vectors so scores are
// deterministic without a provider.
type fakeEmbedder struct {
	dims    int
	vectors map[string]embedding.Vector
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) (embedding.Vector, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	v := make(embedding.Vector, f.dims)
	v[0] = 1
	return v, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]embedding.Vector, error) {
	out := make([]embedding.Vector, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int { return f.dims }

func record(id, uri, version string) model.Record {
	return model.Record{
		ID:             id,
		Content:        "content " + id,
		Source:         model.FileRef(uri, 1, 1),
		DatasetVersion: version,
		ContentHash:    model.ContentHash("content " + id),
	}
}

// fixture builds a three-node corpus where "a" matches the query exactly,
// "b" partially and "c" not at all, with a graph edge a -> c.
func fixture(t *testing.T) (*Retriever, map[string]model.Record) {
	t.Helper()

	b := record("b", "/data/b.csv", "v1.0")
	b.Source = model.RowRef("/data/b.csv", 0, "")

	records := map[string]model.Record{
		"a": record("a", "/data/a.txt", "v1.0"),
		"b": b,
		"c": record("c", "/data/c.txt", "v1.1"),
	}

	idx := index.NewFlat(3)
	require.NoError(t, idx.Add("a", embedding.Vector{1, 0, 0}))
	require.NoError(t, idx.Add("b", embedding.Vector{1, 1, 0}))
	require.NoError(t, idx.Add("c", embedding.Vector{0, 0, 1}))

	g := graph.New()
	for _, id := range []string{"a", "b", "c"} {
		g.AddNode(records[id])
	}
	require.NoError(t, g.AddEdge("a", "c", graph.EdgeReferences))

	emb := &fakeEmbedder{dims: 3, vectors: map[string]embedding.Vector{
		"the query": {1, 0, 0},
	}}
	return New(emb, idx, g, records), records
}

func TestRetrieve_RanksAndTruncates(t *testing.T) {
	r, _ := fixture(t)

	hits, err := r.Retrieve(context.Background(), "the query", 2, nil, 0)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].ID)
	assert.Equal(t, "b", hits[1].ID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestRetrieve_RejectsNonPositiveK(t *testing.T) {
	r, _ := fixture(t)
	_, err := r.Retrieve(context.Background(), "the query", 0, nil, 0)
	assert.Error(t, err)
}

func TestRetrieve_MinScoreFilter(t *testing.T) {
	r, _ := fixture(t)

	hits, err := r.Retrieve(context.Background(), "the query", 5, &FilterConfig{MinScore: 0.9}, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].ID)
	assert.GreaterOrEqual(t, hits[0].Score, 0.9)
}

func TestRetrieve_VersionAndTypeFilters(t *testing.T) {
	r, _ := fixture(t)
	ctx := context.Background()

	hits, err := r.Retrieve(ctx, "the query", 5, &FilterConfig{DatasetVersion: "v1.1"}, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "c", hits[0].ID)

	hits, err = r.Retrieve(ctx, "the query", 5, &FilterConfig{SourceType: model.SourceRow}, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b", hits[0].ID)

	hits, err = r.Retrieve(ctx, "the query", 5, &FilterConfig{SourceURI: "/data/a.txt"}, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].ID)
}

func TestRetrieve_GraphExpansionAddsNeighbors(t *testing.T) {
	r, _ := fixture(t)

	// With k=1 only "a" survives similarity; depth 1 pulls in its
	// neighbor "c" at the fixed neighbor score, then the top k is kept.
	hits, err := r.Retrieve(context.Background(), "the query", 1, nil, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].ID)

	hits, err = r.Retrieve(context.Background(), "the query", 3, nil, 1)
	require.NoError(t, err)
	ids := map[string]float64{}
	for _, h := range hits {
		ids[h.ID] = h.Score
	}
	assert.Contains(t, ids, "c")
	assert.InDelta(t, 0.8, ids["c"], 0.0001)
}

func TestRetrieve_ExpansionKeepsHigherScore(t *testing.T) {
	r, _ := fixture(t)

	// "a" scores 1.0 by similarity and is also reachable from "c"'s
	// neighborhood; the similarity score must win.
	hits, err := r.Retrieve(context.Background(), "the query", 3, nil, 1)
	require.NoError(t, err)
	for _, h := range hits {
		if h.ID == "a" {
			assert.InDelta(t, 1.0, h.Score, 0.001)
		}
	}
	// Scores stay descending after the merge.
	for i := 1; i < len(hits); i++ {
		assert.LessOrEqual(t, hits[i].Score, hits[i-1].Score)
	}
}

func TestApplyFilters_DropsUnregisteredHits(t *testing.T) {
	records := map[string]model.Record{"known": record("known", "/x.txt", "v1.0")}
	hits := []index.Hit{{ID: "known", Score: 0.9}, {ID: "phantom", Score: 0.99}}

	out := ApplyFilters(hits, records, FilterConfig{})
	require.Len(t, out, 1)
	assert.Equal(t, "known", out[0].ID)
}

func TestApplyFilters_PredicatesAreANDed(t *testing.T) {
	records := map[string]model.Record{
		"a": record("a", "/data/a.txt", "v1.0"),
		"b": record("b", "/data/b.txt", "v1.1"),
	}
	hits := []index.Hit{{ID: "a", Score: 0.95}, {ID: "b", Score: 0.5}}

	out := ApplyFilters(hits, records, FilterConfig{
		DatasetVersion: "v1.0",
		MinScore:       0.9,
	})
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].ID)

	out = ApplyFilters(hits, records, FilterConfig{
		DatasetVersion: "v1.1",
		MinScore:       0.9,
	})
	assert.Empty(t, out)
}
