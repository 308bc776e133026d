// Package ingest turns source files into initial provenance records. Each
// ingestor handles a family of file formats; Auto routes by extension.
package ingest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/provlens/provlens/internal/model"
)

// Ingestor converts one source file into a finite batch of records.
type Ingestor interface {
	CanIngest(path string) bool
	Ingest(path string) ([]model.Record, error)
}

var textExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".rst":      true,
	".text":     true,
}

// Text ingests plain-text files as a single record each.
type Text struct {
	DatasetVersion string
}

func (t *Text) CanIngest(path string) bool {
	return textExtensions[strings.ToLower(filepath.Ext(path))]
}

func (t *Text) Ingest(path string) ([]model.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	content := string(data)
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	lineEnd := strings.Count(content, "\n") + 1
	return []model.Record{{
		ID:             model.RecordID(path),
		Content:        content,
		Source:         model.FileRef(path, 1, lineEnd),
		DatasetVersion: t.DatasetVersion,
		TransformChain: []string{"file_read"},
		ContentHash:    model.ContentHash(content),
		CreatedAt:      time.Now().UTC(),
	}}, nil
}

// Tabular ingests CSV and JSON files, one record per row or array
// element.
type Tabular struct {
	DatasetVersion string
}

func (t *Tabular) CanIngest(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".json":
		return true
	}
	return false
}

func (t *Tabular) Ingest(path string) ([]model.Record, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return t.ingestCSV(path)
	case ".json":
		return t.ingestJSON(path)
	default:
		return nil, fmt.Errorf("unsupported tabular format: %s", path)
	}
}

func (t *Tabular) ingestCSV(path string) ([]model.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv %s: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, nil
	}

	header := rows[0]
	var out []model.Record
	for i, row := range rows[1:] {
		fields := make(map[string]string, len(header))
		for c, col := range header {
			if c < len(row) {
				fields[col] = row[c]
			}
		}
		// map marshaling sorts keys, so row content is deterministic
		content, err := json.Marshal(fields)
		if err != nil {
			return nil, fmt.Errorf("encode row %d of %s: %w", i, path, err)
		}
		out = append(out, t.rowRecord(path, i, string(content), "csv_parse"))
	}
	return out, nil
}

func (t *Tabular) ingestJSON(path string) ([]model.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(data, &arr); err == nil {
		out := make([]model.Record, 0, len(arr))
		for i, item := range arr {
			out = append(out, t.rowRecord(path, i, string(item), "json_parse"))
		}
		return out, nil
	}

	// Not an array: treat the whole document as row 0.
	var obj json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("parse json %s: %w", path, err)
	}
	return []model.Record{t.rowRecord(path, 0, string(obj), "json_parse")}, nil
}

func (t *Tabular) rowRecord(path string, row int, content, stage string) model.Record {
	return model.Record{
		ID:             model.RecordID(fmt.Sprintf("%s#%d", path, row)),
		Content:        content,
		Source:         model.RowRef(path, row, ""),
		DatasetVersion: t.DatasetVersion,
		TransformChain: []string{stage},
		ContentHash:    model.ContentHash(content),
		CreatedAt:      time.Now().UTC(),
	}
}

// Auto routes a file to the first ingestor that accepts it.
type Auto struct {
	ingestors []Ingestor
}

// NewAuto returns the auto-detecting ingestor for one dataset version.
func NewAuto(datasetVersion string) *Auto {
	return &Auto{ingestors: []Ingestor{
		&Tabular{DatasetVersion: datasetVersion},
		&Text{DatasetVersion: datasetVersion},
	}}
}

func (a *Auto) CanIngest(path string) bool {
	for _, ing := range a.ingestors {
		if ing.CanIngest(path) {
			return true
		}
	}
	return false
}

func (a *Auto) Ingest(path string) ([]model.Record, error) {
	for _, ing := range a.ingestors {
		if ing.CanIngest(path) {
			return ing.Ingest(path)
		}
	}
	slog.Warn("no ingestor for file, skipping", "path", path)
	return nil, nil
}
