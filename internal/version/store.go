// Package version manages dataset version snapshots: the append-only
// manifest and the set-based diff between any two versions.
package version

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/provlens/provlens/internal/model"
)

const (
	// StorageDir holds all provlens state under the dataset root.
	StorageDir   = ".provlens"
	manifestFile = "manifest.json"
)

// ErrNotFound reports an unknown version tag.
var ErrNotFound = errors.New("version not found")

// Store manages the dataset manifest for one dataset root.
type Store struct {
	root     string
	manifest *model.DatasetManifest
}

// NewStore returns a version store rooted at the dataset directory.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// ManifestPath is the on-disk location of the manifest.
func (s *Store) ManifestPath() string {
	return filepath.Join(s.root, StorageDir, manifestFile)
}

// LoadManifest reads the manifest from disk, caching the result. A missing
// or unparseable manifest is reported as absent, not as an error, so a
// fresh manifest can be created in its place.
func (s *Store) LoadManifest() *model.DatasetManifest {
	if s.manifest != nil {
		return s.manifest
	}

	data, err := os.ReadFile(s.ManifestPath())
	if err != nil {
		return nil
	}

	var m model.DatasetManifest
	if err := json.Unmarshal(data, &m); err != nil {
		slog.Warn("manifest failed to parse, treating as absent", "path", s.ManifestPath(), "error", err)
		return nil
	}
	s.manifest = &m
	return s.manifest
}

// SaveManifest writes the manifest to disk.
func (s *Store) SaveManifest(m *model.DatasetManifest) error {
	if err := os.MkdirAll(filepath.Dir(s.ManifestPath()), 0o755); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(s.ManifestPath(), data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	s.manifest = m
	slog.Debug("saved manifest", "path", s.ManifestPath())
	return nil
}

// GetOrCreateManifest loads the manifest or creates a fresh one named
// after the dataset.
func (s *Store) GetOrCreateManifest(datasetName string) (*model.DatasetManifest, error) {
	if m := s.LoadManifest(); m != nil {
		return m, nil
	}
	m := model.NewManifest(datasetName)
	if err := s.SaveManifest(m); err != nil {
		return nil, err
	}
	return m, nil
}

// CreateVersion snapshots the given files (paths relative to the dataset
// root), appends the version to the manifest and advances the current
// pointer. Files that no longer exist are skipped.
func (s *Store) CreateVersion(tag string, files []string, metadata map[string]any) (model.DatasetVersion, error) {
	entries := make([]model.FileEntry, 0, len(files))
	for _, rel := range files {
		full := filepath.Join(s.root, rel)
		info, err := os.Stat(full)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				slog.Warn("skipping unreadable file", "path", full, "error", err)
			}
			continue
		}
		hash, err := FileHash(full)
		if err != nil {
			slog.Warn("skipping unhashable file", "path", full, "error", err)
			continue
		}
		entries = append(entries, model.FileEntry{
			Path:       rel,
			Hash:       hash,
			Size:       info.Size(),
			ModifiedAt: info.ModTime().UTC(),
		})
	}

	v := model.DatasetVersion{
		Version:   tag,
		CreatedAt: time.Now().UTC(),
		Files:     entries,
		Metadata:  metadata,
	}

	m, err := s.GetOrCreateManifest(filepath.Base(s.root))
	if err != nil {
		return model.DatasetVersion{}, err
	}
	m.AddVersion(v)
	if err := s.SaveManifest(m); err != nil {
		return model.DatasetVersion{}, err
	}
	return v, nil
}

// GetVersion looks up a version by tag.
func (s *Store) GetVersion(tag string) (model.DatasetVersion, error) {
	m := s.LoadManifest()
	if m == nil {
		return model.DatasetVersion{}, fmt.Errorf("%w: %s", ErrNotFound, tag)
	}
	v, ok := m.GetVersion(tag)
	if !ok {
		return model.DatasetVersion{}, fmt.Errorf("%w: %s", ErrNotFound, tag)
	}
	return v, nil
}

// CurrentVersion returns the current version tag, or "" when no version
// exists yet.
func (s *Store) CurrentVersion() string {
	m := s.LoadManifest()
	if m == nil {
		return ""
	}
	return m.CurrentVersion
}

// FileHash computes the hex SHA-256 digest of a file's contents.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
