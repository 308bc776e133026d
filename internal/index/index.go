// Package index defines the vector similarity index interface and a flat
// in-process implementation.
package index

import "github.com/provlens/provlens/internal/embedding"

// Hit is one similarity search result.
type Hit struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Store is the vector index interface. Search results are ordered by
// descending score. Remove may be unsupported by an implementation, in
// which case it logs a warning and drops only the id mapping.
type Store interface {
	Add(id string, vec embedding.Vector) error
	Search(vec embedding.Vector, k int) []Hit
	Remove(id string) error
	Save(path string) error
	Load(path string) error
	Size() int
}
