package transform

import (
	"regexp"
	"strings"
	"time"

	"github.com/provlens/provlens/internal/model"
)

var (
	whitespaceRe   = regexp.MustCompile(`\s+`)
	specialCharsRe = regexp.MustCompile(`[^\w\s.,!?;:-]`)
)

// Normalizer collapses whitespace and trims content. Aggressive mode
// additionally strips characters outside a conservative
// alphanumeric-and-punctuation set and lower-cases the result; it reports
// a distinct stage name so auditors can flag it.
type Normalizer struct {
	aggressive bool
}

// NewNormalizer returns a normalizer stage.
func NewNormalizer(aggressive bool) *Normalizer {
	return &Normalizer{aggressive: aggressive}
}

func (n *Normalizer) Name() string {
	if n.aggressive {
		return "normalize_aggressive"
	}
	return "normalize"
}

func (n *Normalizer) Apply(rec model.Record) []model.Record {
	content := whitespaceRe.ReplaceAllString(rec.Content, " ")
	content = strings.TrimSpace(content)

	if n.aggressive {
		content = specialCharsRe.ReplaceAllString(content, "")
		content = strings.ToLower(content)
	}

	now := time.Now().UTC()
	meta := model.CloneMetadata(rec.Metadata)
	meta["normalization_aggressive"] = n.aggressive

	return []model.Record{{
		ID:             rec.ID,
		Content:        content,
		Source:         rec.Source,
		DatasetVersion: rec.DatasetVersion,
		TransformChain: model.AppendChain(rec.TransformChain, n.Name()),
		ContentHash:    model.ContentHash(content),
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      &now,
		Metadata:       meta,
	}}
}
