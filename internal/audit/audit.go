// Package audit inspects a retrieved answer's provenance to assess
// staleness, version mixing and transform risk.
package audit

import (
	"strconv"
	"unicode"

	"github.com/provlens/provlens/internal/model"
)

// riskyTransforms maps risky stage names to their warning messages.
var riskyTransforms = map[string]string{
	"normalize_aggressive": "Aggressive normalization may lose information",
	"ocr":                  "OCR may introduce errors",
	"translation":          "Translation may introduce semantic drift",
	"summarization":        "Summarization may lose important details",
}

// Auditor generates audit reports against an optional current dataset
// version.
type Auditor struct {
	CurrentVersion string
}

// Audit is a pure function of the answer and the auditor's current
// version.
func (a Auditor) Audit(ans model.Answer) model.AuditReport {
	return model.AuditReport{
		AnswerID:           ans.ID,
		StalenessCheck:     CheckStaleness(ans, a.CurrentVersion),
		VersionConsistency: CheckVersionConsistency(ans),
		TransformRiskFlags: CheckTransformRisks(ans),
	}
}

// CheckVersionConsistency reports whether the lineage draws on one
// dataset version or several.
func CheckVersionConsistency(ans model.Answer) string {
	if len(ans.Lineage) == 0 {
		return model.VersionUnknown
	}
	first := ans.Lineage[0].DatasetVersion
	for _, entry := range ans.Lineage[1:] {
		if entry.DatasetVersion != first {
			return model.VersionMixed
		}
	}
	return model.VersionSingle
}

// CheckStaleness compares the lineage's versions against the current
// version. Version tags are compared numerically after stripping a
// leading letter prefix; non-numeric tags silently pass.
func CheckStaleness(ans model.Answer, currentVersion string) string {
	if len(ans.Lineage) == 0 {
		return model.StalenessWarning
	}
	if currentVersion == "" {
		return model.StalenessPass
	}

	for _, entry := range ans.Lineage {
		if entry.DatasetVersion == currentVersion {
			return model.StalenessPass
		}
	}

	currentNum, ok := parseVersionNumber(currentVersion)
	if !ok {
		return model.StalenessPass
	}
	maxLineage := 0.0
	for i, entry := range ans.Lineage {
		n, ok := parseVersionNumber(entry.DatasetVersion)
		if !ok {
			return model.StalenessPass
		}
		if i == 0 || n > maxLineage {
			maxLineage = n
		}
	}

	switch gap := currentNum - maxLineage; {
	case gap > 1.0:
		return model.StalenessFail
	case gap > 0:
		return model.StalenessWarning
	default:
		return model.StalenessPass
	}
}

// CheckTransformRisks scans every lineage entry's transform chain and
// collects each distinct risk message once, in first-encountered order.
func CheckTransformRisks(ans model.Answer) []string {
	var flags []string
	seen := make(map[string]struct{})
	for _, entry := range ans.Lineage {
		for _, stage := range entry.TransformChain {
			msg, risky := riskyTransforms[stage]
			if !risky {
				continue
			}
			if _, dup := seen[msg]; dup {
				continue
			}
			seen[msg] = struct{}{}
			flags = append(flags, msg)
		}
	}
	return flags
}

// parseVersionNumber strips a single leading letter (e.g. the "v" in
// "v1.2") and parses the remainder as a float.
func parseVersionNumber(tag string) (float64, bool) {
	runes := []rune(tag)
	if len(runes) > 0 && unicode.IsLetter(runes[0]) {
		runes = runes[1:]
	}
	n, err := strconv.ParseFloat(string(runes), 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
