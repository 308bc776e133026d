package model

import "time"

// FileEntry records one file's state inside a dataset version.
type FileEntry struct {
	Path       string    `json:"path"`
	Hash       string    `json:"hash"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

// DatasetVersion is a named, immutable snapshot of file-hash state.
type DatasetVersion struct {
	Version   string         `json:"version"`
	CreatedAt time.Time      `json:"created_at"`
	Files     []FileEntry    `json:"files"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// DatasetManifest tracks a dataset's name and its append-only version
// history. CurrentVersion always points at the most recently appended
// version.
type DatasetManifest struct {
	DatasetName    string           `json:"dataset_name"`
	CurrentVersion string           `json:"current_version,omitempty"`
	Versions       []DatasetVersion `json:"versions"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	Metadata       map[string]any   `json:"metadata,omitempty"`
}

// NewManifest creates an empty manifest for a dataset.
func NewManifest(name string) *DatasetManifest {
	now := time.Now().UTC()
	return &DatasetManifest{DatasetName: name, CreatedAt: now, UpdatedAt: now}
}

// GetVersion looks up a version by tag.
func (m *DatasetManifest) GetVersion(tag string) (DatasetVersion, bool) {
	for _, v := range m.Versions {
		if v.Version == tag {
			return v, true
		}
	}
	return DatasetVersion{}, false
}

// AddVersion appends a version and advances the current pointer. Versions
// are never removed.
func (m *DatasetManifest) AddVersion(v DatasetVersion) {
	m.Versions = append(m.Versions, v)
	m.CurrentVersion = v.Version
	m.UpdatedAt = time.Now().UTC()
}
