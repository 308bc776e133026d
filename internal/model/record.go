// Package model defines the core provenance data types.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// SourceType discriminates the SourceRef variants.
type SourceType string

const (
	SourceFile     SourceType = "file"
	SourceDocument SourceType = "document"
	SourceRow      SourceType = "row"
	SourceRemote   SourceType = "remote_call"
)

// SourceRef is a closed, tagged reference to a record's origin. Exactly one
// variant is active, selected by Type; consumers must switch on Type and
// treat any other value as invalid.
type SourceRef struct {
	Type SourceType `json:"type"`
	URI  string     `json:"uri"`

	// file
	LineStart int `json:"line_start,omitempty"`
	LineEnd   int `json:"line_end,omitempty"`

	// document
	Page    int    `json:"page,omitempty"`
	Section string `json:"section,omitempty"`

	// row
	Row    int    `json:"row,omitempty"`
	Column string `json:"column,omitempty"`

	// remote_call
	RequestID string `json:"request_id,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// FileRef references a span of a text file.
func FileRef(uri string, lineStart, lineEnd int) SourceRef {
	return SourceRef{Type: SourceFile, URI: uri, LineStart: lineStart, LineEnd: lineEnd}
}

// DocumentRef references a page/section of a paginated document.
func DocumentRef(uri string, page int, section string) SourceRef {
	return SourceRef{Type: SourceDocument, URI: uri, Page: page, Section: section}
}

// RowRef references a row (and optionally a column) of tabular data.
func RowRef(uri string, row int, column string) SourceRef {
	return SourceRef{Type: SourceRow, URI: uri, Row: row, Column: column}
}

// RemoteRef references data obtained from a remote call.
func RemoteRef(uri, requestID, timestamp string) SourceRef {
	return SourceRef{Type: SourceRemote, URI: uri, RequestID: requestID, Timestamp: timestamp}
}

// Validate checks that the discriminant carries a known variant.
func (s SourceRef) Validate() error {
	switch s.Type {
	case SourceFile, SourceDocument, SourceRow, SourceRemote:
		if s.URI == "" {
			return fmt.Errorf("source ref %q missing uri", s.Type)
		}
		return nil
	default:
		return fmt.Errorf("unknown source type %q", s.Type)
	}
}

// String renders the active variant for logs and CLI output.
func (s SourceRef) String() string {
	switch s.Type {
	case SourceFile:
		if s.LineEnd > 0 {
			return fmt.Sprintf("%s:%d-%d", s.URI, s.LineStart, s.LineEnd)
		}
		return s.URI
	case SourceDocument:
		return fmt.Sprintf("%s@page%d", s.URI, s.Page)
	case SourceRow:
		return fmt.Sprintf("%s#row%d", s.URI, s.Row)
	case SourceRemote:
		return fmt.Sprintf("%s?req=%s", s.URI, s.RequestID)
	default:
		return s.URI
	}
}

// Record is the atomic retrievable unit with full provenance. Records are
// never mutated in place; transforms construct new records.
type Record struct {
	ID             string         `json:"id"`
	Content        string         `json:"content"`
	Source         SourceRef      `json:"source"`
	DatasetVersion string         `json:"dataset_version"`
	TransformChain []string       `json:"transform_chain"`
	ContentHash    string         `json:"content_hash"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      *time.Time     `json:"updated_at,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// ContentHash returns the hex SHA-256 digest of content.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// RecordID derives a stable record identifier from an origin key, so
// re-ingesting the same origin reproduces the same id.
func RecordID(origin string) string {
	sum := sha256.Sum256([]byte(origin))
	return "ln_" + hex.EncodeToString(sum[:])[:12]
}

// AppendChain returns a fresh chain with name appended, leaving the
// original slice untouched.
func AppendChain(chain []string, name string) []string {
	next := make([]string, 0, len(chain)+1)
	next = append(next, chain...)
	return append(next, name)
}

// CloneMetadata copies a metadata bag so derived records do not alias the
// parent's map.
func CloneMetadata(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta)+2)
	for k, v := range meta {
		out[k] = v
	}
	return out
}
