package ingest

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/provlens/provlens/internal/version"
)

// ScanOptions controls which files a scan picks up. Patterns are
// doublestar globs matched against paths relative to the root.
type ScanOptions struct {
	Include []string // empty means everything
	Ignore  []string
}

// Scan walks the dataset root and returns matching file paths relative to
// it, in walk order. The storage directory is always skipped.
func Scan(root string, opts ScanOptions) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		if d.IsDir() {
			if d.Name() == version.StorageDir || strings.HasPrefix(d.Name(), ".") && rel != "." {
				return filepath.SkipDir
			}
			return nil
		}
		if matches(rel, opts) {
			out = append(out, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func matches(rel string, opts ScanOptions) bool {
	rel = filepath.ToSlash(rel)
	for _, pat := range opts.Ignore {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return false
		}
	}
	if len(opts.Include) == 0 {
		return true
	}
	for _, pat := range opts.Include {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	return false
}
