package transform

import (
	"fmt"
	"strings"
	"time"

	"github.com/provlens/provlens/internal/model"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// validateChunkParams rejects malformed chunker configuration at
// construction time.
func validateChunkParams(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 {
		return fmt.Errorf("chunk overlap must not be negative, got %d", overlap)
	}
	if overlap >= size {
		return fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", overlap, size)
	}
	return nil
}

// chunkRecords turns a list of chunk strings into derived records with
// stable ids, recomputed hashes and chunk metadata.
func chunkRecords(rec model.Record, name string, chunks []string) []model.Record {
	out := make([]model.Record, 0, len(chunks))
	for i, content := range chunks {
		meta := model.CloneMetadata(rec.Metadata)
		meta["chunk_index"] = i
		meta["total_chunks"] = len(chunks)
		out = append(out, model.Record{
			ID:             fmt.Sprintf("%s_chunk_%d", rec.ID, i),
			Content:        content,
			Source:         rec.Source,
			DatasetVersion: rec.DatasetVersion,
			TransformChain: model.AppendChain(rec.TransformChain, name),
			ContentHash:    model.ContentHash(content),
			CreatedAt:      time.Now().UTC(),
			Metadata:       meta,
		})
	}
	return out
}

// SimpleChunker splits content into fixed-size sliding windows with
// overlap. With overlap < size every character of the input appears in at
// least one chunk.
type SimpleChunker struct {
	size    int
	overlap int
}

// NewSimpleChunker validates parameters and returns a simple chunker.
func NewSimpleChunker(size, overlap int) (*SimpleChunker, error) {
	if err := validateChunkParams(size, overlap); err != nil {
		return nil, err
	}
	return &SimpleChunker{size: size, overlap: overlap}, nil
}

func (c *SimpleChunker) Name() string { return "simple_chunk" }

func (c *SimpleChunker) Apply(rec model.Record) []model.Record {
	return chunkRecords(rec, c.Name(), c.split(rec.Content))
}

func (c *SimpleChunker) split(content string) []string {
	runes := []rune(content)
	if len(runes) <= c.size {
		return []string{content}
	}

	var chunks []string
	for start := 0; start < len(runes); start += c.size - c.overlap {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// SemanticChunker accumulates whole sentences into chunks of roughly
// chunk-size characters, seeding each new chunk with as many trailing
// sentences from the previous chunk as fit within the overlap budget.
type SemanticChunker struct {
	size    int
	overlap int
}

// NewSemanticChunker validates parameters and returns a semantic chunker.
func NewSemanticChunker(size, overlap int) (*SemanticChunker, error) {
	if err := validateChunkParams(size, overlap); err != nil {
		return nil, err
	}
	return &SemanticChunker{size: size, overlap: overlap}, nil
}

func (c *SemanticChunker) Name() string { return "semantic_chunk" }

func (c *SemanticChunker) Apply(rec model.Record) []model.Record {
	return chunkRecords(rec, c.Name(), c.split(rec.Content))
}

func (c *SemanticChunker) split(content string) []string {
	sentences := splitSentences(content)

	var chunks []string
	var current []string
	currentSize := 0

	for _, sentence := range sentences {
		if currentSize+len(sentence) > c.size && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))

			// Seed the next chunk with trailing sentences that fit the
			// overlap character budget.
			var carried []string
			carriedSize := 0
			for i := len(current) - 1; i >= 0; i-- {
				if carriedSize+len(current[i]) > c.overlap {
					break
				}
				carried = append([]string{current[i]}, carried...)
				carriedSize += len(current[i])
			}
			current = carried
			currentSize = carriedSize
		}
		current = append(current, sentence)
		currentSize += len(sentence)
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	if len(chunks) == 0 {
		return []string{content}
	}
	return chunks
}

// splitSentences performs naive period-based sentence splitting.
func splitSentences(content string) []string {
	flat := strings.ReplaceAll(content, ".\n", ". ")
	flat = strings.ReplaceAll(flat, "\n", " ")

	var sentences []string
	for _, part := range strings.Split(flat, ". ") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !strings.HasSuffix(part, ".") {
			part += "."
		}
		sentences = append(sentences, part)
	}
	return sentences
}
