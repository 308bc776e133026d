package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/provlens/provlens/internal/embedding"
)

// Flat is a brute-force cosine similarity index. Vectors live in a dense
// slice; ids map to slice offsets. Removal only drops the id mapping (the
// vector stays, a known inconsistency shared with flat indexes that
// cannot delete).
type Flat struct {
	dims    int
	ids     []string // "" marks a removed slot
	vectors []embedding.Vector
	byID    map[string]int
}

// NewFlat returns an empty flat index for vectors of the given dimension.
func NewFlat(dims int) *Flat {
	return &Flat{dims: dims, byID: make(map[string]int)}
}

// Add inserts or replaces the vector stored for id.
func (f *Flat) Add(id string, vec embedding.Vector) error {
	if len(vec) != f.dims {
		return fmt.Errorf("vector dimension %d does not match index dimension %d", len(vec), f.dims)
	}
	if i, ok := f.byID[id]; ok {
		f.vectors[i] = vec
		return nil
	}
	f.byID[id] = len(f.ids)
	f.ids = append(f.ids, id)
	f.vectors = append(f.vectors, vec)
	return nil
}

// Search scores the query against every stored vector and returns the top
// k hits by descending score. Cosine similarity is mapped into [0,1].
func (f *Flat) Search(vec embedding.Vector, k int) []Hit {
	if k <= 0 {
		return nil
	}

	hits := make([]Hit, 0, len(f.ids))
	for i, id := range f.ids {
		if id == "" {
			continue
		}
		cos := embedding.CosineSimilarity(vec, f.vectors[i])
		hits = append(hits, Hit{ID: id, Score: (cos + 1) / 2})
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
	return hits
}

// Remove drops the id mapping. The underlying vector is retained.
func (f *Flat) Remove(id string) error {
	i, ok := f.byID[id]
	if !ok {
		return nil
	}
	slog.Warn("flat index does not support vector removal, dropping mapping only", "id", id)
	delete(f.byID, id)
	f.ids[i] = ""
	return nil
}

// Size returns the number of searchable vectors.
func (f *Flat) Size() int {
	return len(f.byID)
}

type flatSnapshot struct {
	Dimension int                `json:"dimension"`
	IDs       []string           `json:"ids"`
	Vectors   []embedding.Vector `json:"vectors"`
}

// Save persists the index to path as JSON.
func (f *Flat) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	data, err := json.Marshal(flatSnapshot{Dimension: f.dims, IDs: f.ids, Vectors: f.vectors})
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}

// Load replaces the index contents from path. A missing file leaves the
// index empty.
func (f *Flat) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Warn("index file not found, starting empty", "path", path)
			return nil
		}
		return fmt.Errorf("read index: %w", err)
	}

	var snap flatSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decode index: %w", err)
	}

	f.dims = snap.Dimension
	f.ids = snap.IDs
	f.vectors = snap.Vectors
	f.byID = make(map[string]int, len(snap.IDs))
	for i, id := range snap.IDs {
		if id != "" {
			f.byID[id] = i
		}
	}
	return nil
}
