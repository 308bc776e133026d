package transform

import (
	"log/slog"

	"github.com/provlens/provlens/internal/model"
)

// Deduper drops records whose content hash was already seen in the current
// pipeline run. It is stateful per run: instantiate fresh (or Reset)
// before each build/update, and never share across concurrent runs.
type Deduper struct {
	seen map[string]struct{}
}

// NewDeduper returns a deduplication stage with empty state.
func NewDeduper() *Deduper {
	return &Deduper{seen: make(map[string]struct{})}
}

func (d *Deduper) Name() string { return "deduplicate" }

func (d *Deduper) Apply(rec model.Record) []model.Record {
	if _, dup := d.seen[rec.ContentHash]; dup {
		slog.Debug("dropping duplicate record", "id", rec.ID, "hash", rec.ContentHash)
		return nil
	}
	d.seen[rec.ContentHash] = struct{}{}

	out := rec
	out.TransformChain = model.AppendChain(rec.TransformChain, d.Name())
	return []model.Record{out}
}

// Reset clears the seen-hash state for a new run.
func (d *Deduper) Reset() {
	d.seen = make(map[string]struct{})
}
