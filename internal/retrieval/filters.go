package retrieval

import (
	"github.com/provlens/provlens/internal/index"
	"github.com/provlens/provlens/internal/model"
)

// FilterConfig holds retrieval filter predicates. Active predicates are
// ANDed; zero values deactivate a predicate.
type FilterConfig struct {
	DatasetVersion string
	SourceURI      string
	SourceType     model.SourceType
	MinScore       float64
}

// ApplyFilters drops hits that fail any active predicate or that are
// missing from the record registry.
func ApplyFilters(hits []index.Hit, records map[string]model.Record, f FilterConfig) []index.Hit {
	out := make([]index.Hit, 0, len(hits))
	for _, hit := range hits {
		if hit.Score < f.MinScore {
			continue
		}
		rec, ok := records[hit.ID]
		if !ok {
			continue
		}
		if f.DatasetVersion != "" && rec.DatasetVersion != f.DatasetVersion {
			continue
		}
		if f.SourceURI != "" && rec.Source.URI != f.SourceURI {
			continue
		}
		if f.SourceType != "" && rec.Source.Type != f.SourceType {
			continue
		}
		out = append(out, hit)
	}
	return out
}
