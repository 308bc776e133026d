package version

import "github.com/provlens/provlens/internal/model"

// Diff is the set-based comparison of two dataset versions. Added follows
// the target version's file order; removed, modified and unchanged follow
// the source version's order.
type Diff struct {
	From      string   `json:"version_from"`
	To        string   `json:"version_to"`
	Added     []string `json:"added_files"`
	Removed   []string `json:"removed_files"`
	Modified  []string `json:"modified_files"`
	Unchanged []string `json:"unchanged_files"`
}

// HasChanges reports whether any file was added, removed or modified.
func (d Diff) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0 || len(d.Modified) > 0
}

// ChangedFiles returns added, removed and modified paths, in that order.
func (d Diff) ChangedFiles() []string {
	out := make([]string, 0, len(d.Added)+len(d.Removed)+len(d.Modified))
	out = append(out, d.Added...)
	out = append(out, d.Removed...)
	out = append(out, d.Modified...)
	return out
}

// Compute diffs two version snapshots by path and content hash. It is a
// pure function of its inputs and reproducible regardless of call order.
func Compute(from, to model.DatasetVersion) Diff {
	hashFrom := make(map[string]string, len(from.Files))
	for _, f := range from.Files {
		hashFrom[f.Path] = f.Hash
	}
	hashTo := make(map[string]string, len(to.Files))
	for _, f := range to.Files {
		hashTo[f.Path] = f.Hash
	}

	d := Diff{From: from.Version, To: to.Version}

	for _, f := range to.Files {
		if _, ok := hashFrom[f.Path]; !ok {
			d.Added = append(d.Added, f.Path)
		}
	}
	for _, f := range from.Files {
		toHash, ok := hashTo[f.Path]
		switch {
		case !ok:
			d.Removed = append(d.Removed, f.Path)
		case toHash != f.Hash:
			d.Modified = append(d.Modified, f.Path)
		default:
			d.Unchanged = append(d.Unchanged, f.Path)
		}
	}
	return d
}
