// Package registry provides the durable provenance record store, keyed by
// record id and backed by SQLite.
package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/provlens/provlens/internal/model"
)

// Registry stores provenance records in a SQLite database.
type Registry struct {
	db *sql.DB
}

// Open opens or creates the registry database at the given path.
func Open(dbPath string) (*Registry, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create registry dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)")
	if err != nil {
		return nil, fmt.Errorf("open registry db: %w", err)
	}

	r := &Registry{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate registry: %w", err)
	}
	return r, nil
}

func (r *Registry) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		id              TEXT PRIMARY KEY,
		content         TEXT NOT NULL,
		source          TEXT NOT NULL,
		dataset_version TEXT NOT NULL,
		transform_chain TEXT NOT NULL,
		content_hash    TEXT NOT NULL,
		created_at      TEXT NOT NULL,
		updated_at      TEXT,
		metadata        TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_records_version ON records(dataset_version);
	CREATE INDEX IF NOT EXISTS idx_records_hash ON records(content_hash);
	`
	_, err := r.db.Exec(schema)
	return err
}

// Put inserts or replaces a record.
func (r *Registry) Put(ctx context.Context, rec model.Record) error {
	if err := rec.Source.Validate(); err != nil {
		return fmt.Errorf("put %s: %w", rec.ID, err)
	}

	source, err := json.Marshal(rec.Source)
	if err != nil {
		return fmt.Errorf("encode source: %w", err)
	}
	chain, err := json.Marshal(rec.TransformChain)
	if err != nil {
		return fmt.Errorf("encode transform chain: %w", err)
	}
	var meta []byte
	if rec.Metadata != nil {
		if meta, err = json.Marshal(rec.Metadata); err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
	}

	var updatedAt any
	if rec.UpdatedAt != nil {
		updatedAt = rec.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO records
		 (id, content, source, dataset_version, transform_chain, content_hash, created_at, updated_at, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Content, string(source), rec.DatasetVersion, string(chain),
		rec.ContentHash, rec.CreatedAt.UTC().Format(time.RFC3339Nano), updatedAt, nullableString(meta))
	return err
}

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

// Get retrieves a record by id.
func (r *Registry) Get(ctx context.Context, id string) (model.Record, bool, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, content, source, dataset_version, transform_chain, content_hash, created_at, updated_at, metadata
		 FROM records WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return model.Record{}, false, nil
	}
	if err != nil {
		return model.Record{}, false, err
	}
	return rec, true, nil
}

// All loads every record keyed by id. Datasets are bounded by a single
// local root, so loading the full registry is the intended access pattern
// for retrieval and graph reload.
func (r *Registry) All(ctx context.Context) (map[string]model.Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, content, source, dataset_version, transform_chain, content_hash, created_at, updated_at, metadata
		 FROM records`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]model.Record)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out[rec.ID] = rec
	}
	return out, rows.Err()
}

// Count returns the number of stored records.
func (r *Registry) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n)
	return n, err
}

// Close closes the underlying database.
func (r *Registry) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (model.Record, error) {
	var (
		rec       model.Record
		source    string
		chain     string
		createdAt string
		updatedAt sql.NullString
		meta      sql.NullString
	)
	err := row.Scan(&rec.ID, &rec.Content, &source, &rec.DatasetVersion, &chain,
		&rec.ContentHash, &createdAt, &updatedAt, &meta)
	if err != nil {
		return model.Record{}, err
	}

	if err := json.Unmarshal([]byte(source), &rec.Source); err != nil {
		return model.Record{}, fmt.Errorf("decode source for %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(chain), &rec.TransformChain); err != nil {
		return model.Record{}, fmt.Errorf("decode transform chain for %s: %w", rec.ID, err)
	}
	if meta.Valid && meta.String != "" {
		if err := json.Unmarshal([]byte(meta.String), &rec.Metadata); err != nil {
			return model.Record{}, fmt.Errorf("decode metadata for %s: %w", rec.ID, err)
		}
	}

	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		rec.CreatedAt = t
	}
	if updatedAt.Valid {
		if t, err := time.Parse(time.RFC3339Nano, updatedAt.String); err == nil {
			rec.UpdatedAt = &t
		}
	}
	return rec, nil
}
