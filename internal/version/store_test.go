package version

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestStore_CreateVersionAndReload(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "policy.txt", "30 days return window")
	writeFile(t, root, "data/items.csv", "name,price\nwidget,10\n")

	s := NewStore(root)
	v, err := s.CreateVersion("v1.0", []string{"policy.txt", "data/items.csv"}, map[string]any{"note": "initial"})
	require.NoError(t, err)

	assert.Equal(t, "v1.0", v.Version)
	require.Len(t, v.Files, 2)
	assert.Equal(t, "policy.txt", v.Files[0].Path)
	assert.Len(t, v.Files[0].Hash, 64)
	assert.Equal(t, int64(len("30 days return window")), v.Files[0].Size)

	// A fresh store must see the persisted manifest.
	fresh := NewStore(root)
	assert.Equal(t, "v1.0", fresh.CurrentVersion())
	got, err := fresh.GetVersion("v1.0")
	require.NoError(t, err)
	assert.Equal(t, v.Files, got.Files)
}

func TestStore_CreateVersionSkipsMissingFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "present.txt", "here")

	s := NewStore(root)
	v, err := s.CreateVersion("v1.0", []string{"present.txt", "missing.txt"}, nil)
	require.NoError(t, err)
	require.Len(t, v.Files, 1)
	assert.Equal(t, "present.txt", v.Files[0].Path)
}

func TestStore_ManifestIsAppendOnly(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "one")

	s := NewStore(root)
	_, err := s.CreateVersion("v1.0", []string{"a.txt"}, nil)
	require.NoError(t, err)

	writeFile(t, root, "a.txt", "two")
	_, err = s.CreateVersion("v1.1", []string{"a.txt"}, nil)
	require.NoError(t, err)

	m := s.LoadManifest()
	require.NotNil(t, m)
	require.Len(t, m.Versions, 2)
	assert.Equal(t, "v1.0", m.Versions[0].Version)
	assert.Equal(t, "v1.1", m.Versions[1].Version)
	assert.Equal(t, "v1.1", m.CurrentVersion)

	// The earlier snapshot keeps its original hash.
	old, err := s.GetVersion("v1.0")
	require.NoError(t, err)
	cur, err := s.GetVersion("v1.1")
	require.NoError(t, err)
	assert.NotEqual(t, old.Files[0].Hash, cur.Files[0].Hash)
}

func TestStore_GetVersionUnknownTag(t *testing.T) {
	s := NewStore(t.TempDir())
	_, err := s.GetVersion("v9.9")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_CorruptManifestTreatedAsAbsent(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, StorageDir), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, StorageDir, "manifest.json"), []byte("{not json"), 0o644))

	s := NewStore(root)
	assert.Nil(t, s.LoadManifest())
	assert.Equal(t, "", s.CurrentVersion())
}

func TestFileHash_MatchesContent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "same bytes")
	writeFile(t, root, "b.txt", "same bytes")
	writeFile(t, root, "c.txt", "other bytes")

	ha, err := FileHash(filepath.Join(root, "a.txt"))
	require.NoError(t, err)
	hb, err := FileHash(filepath.Join(root, "b.txt"))
	require.NoError(t, err)
	hc, err := FileHash(filepath.Join(root, "c.txt"))
	require.NoError(t, err)

	assert.Equal(t, ha, hb)
	assert.NotEqual(t, ha, hc)
}
