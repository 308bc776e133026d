package registry

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/provlens/provlens/internal/model"
)

func openTest(t *testing.T) *Registry {
	t.Helper()
	r, err := Open(filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func sample(id string) model.Record {
	return model.Record{
		ID:             id,
		Content:        "content for " + id,
		Source:         model.FileRef("/data/"+id+".txt", 1, 5),
		DatasetVersion: "v1.0",
		TransformChain: []string{"file_read", "simple_chunk"},
		ContentHash:    model.ContentHash("content for " + id),
		CreatedAt:      time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Metadata:       map[string]any{"chunk_index": float64(0)},
	}
}

func TestRegistry_PutGetRoundTrip(t *testing.T) {
	r := openTest(t)
	ctx := context.Background()

	want := sample("ln_aaa")
	if err := r.Put(ctx, want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := r.Get(ctx, "ln_aaa")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("record not found after Put")
	}
	if got.Content != want.Content {
		t.Errorf("content = %q", got.Content)
	}
	if got.Source != want.Source {
		t.Errorf("source = %+v, want %+v", got.Source, want.Source)
	}
	if len(got.TransformChain) != 2 || got.TransformChain[1] != "simple_chunk" {
		t.Errorf("chain = %v", got.TransformChain)
	}
	if got.ContentHash != want.ContentHash {
		t.Errorf("hash = %q", got.ContentHash)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, want.CreatedAt)
	}
	if got.Metadata["chunk_index"] != float64(0) {
		t.Errorf("metadata = %v", got.Metadata)
	}
}

func TestRegistry_GetMissing(t *testing.T) {
	r := openTest(t)
	_, ok, err := r.Get(context.Background(), "ln_ghost")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("missing record reported as found")
	}
}

func TestRegistry_PutReplacesByID(t *testing.T) {
	r := openTest(t)
	ctx := context.Background()

	rec := sample("ln_aaa")
	if err := r.Put(ctx, rec); err != nil {
		t.Fatal(err)
	}

	now := time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC)
	rec.Content = "revised content"
	rec.ContentHash = model.ContentHash(rec.Content)
	rec.UpdatedAt = &now
	if err := r.Put(ctx, rec); err != nil {
		t.Fatal(err)
	}

	n, err := r.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}

	got, ok, err := r.Get(ctx, "ln_aaa")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got.Content != "revised content" {
		t.Errorf("content = %q", got.Content)
	}
	if got.UpdatedAt == nil || !got.UpdatedAt.Equal(now) {
		t.Errorf("updated_at = %v", got.UpdatedAt)
	}
}

func TestRegistry_PutRejectsInvalidSource(t *testing.T) {
	r := openTest(t)
	rec := sample("ln_bad")
	rec.Source = model.SourceRef{Type: "mystery", URI: "x"}
	if err := r.Put(context.Background(), rec); err == nil {
		t.Error("invalid source accepted")
	}
}

func TestRegistry_All(t *testing.T) {
	r := openTest(t)
	ctx := context.Background()

	for _, id := range []string{"ln_a", "ln_b", "ln_c"} {
		if err := r.Put(ctx, sample(id)); err != nil {
			t.Fatal(err)
		}
	}

	all, err := r.All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("All returned %d records", len(all))
	}
	for _, id := range []string{"ln_a", "ln_b", "ln_c"} {
		if _, ok := all[id]; !ok {
			t.Errorf("missing %s", id)
		}
	}
}

func TestRegistry_PersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "records.db")
	ctx := context.Background()

	r, err := Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Put(ctx, sample("ln_keep")); err != nil {
		t.Fatal(err)
	}
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	_, ok, err := reopened.Get(ctx, "ln_keep")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("record lost across reopen")
	}
}
