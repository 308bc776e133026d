package model

// LineageEntry is one provenance entry backing an answer.
type LineageEntry struct {
	RecordID       string    `json:"record_id"`
	Score          float64   `json:"score"`
	Source         SourceRef `json:"source"`
	DatasetVersion string    `json:"dataset_version"`
	TransformChain []string  `json:"transform_chain"`
}

// Answer is a generated answer together with its full lineage.
type Answer struct {
	ID       string         `json:"id,omitempty"`
	Question string         `json:"question"`
	Answer   string         `json:"answer"`
	Lineage  []LineageEntry `json:"lineage"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Staleness check results.
const (
	StalenessPass    = "pass"
	StalenessWarning = "warning"
	StalenessFail    = "fail"
)

// Version consistency results.
const (
	VersionSingle  = "single_version"
	VersionMixed   = "mixed_versions"
	VersionUnknown = "unknown"
)

// AuditReport summarises provenance checks over an answer.
type AuditReport struct {
	AnswerID           string         `json:"answer_id,omitempty"`
	StalenessCheck     string         `json:"staleness_check"`
	VersionConsistency string         `json:"version_consistency"`
	TransformRiskFlags []string       `json:"transform_risk_flags"`
	Metadata           map[string]any `json:"metadata,omitempty"`
}
