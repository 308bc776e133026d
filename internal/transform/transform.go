// Package transform implements the record processing pipeline: chunking,
// normalization and deduplication stages composed into an ordered flat-map
// over provenance records.
package transform

import "github.com/provlens/provlens/internal/model"

// Transform is a single pipeline stage. Apply consumes one record and
// emits zero, one or many derived records, each with the stage's name
// appended to its transform chain.
type Transform interface {
	Name() string
	Apply(rec model.Record) []model.Record
}

// Resettable is implemented by stateful stages whose per-run state must be
// cleared between pipeline runs.
type Resettable interface {
	Reset()
}

// Pipeline is an explicit ordered sequence of stages. Each stage's output
// feeds the next stage's input, per record.
type Pipeline struct {
	stages []Transform
}

// NewPipeline assembles a pipeline from already-validated stages. Nil
// stages are skipped so callers can pass conditionally-enabled transforms.
func NewPipeline(stages ...Transform) *Pipeline {
	p := &Pipeline{}
	for _, s := range stages {
		if s != nil {
			p.stages = append(p.stages, s)
		}
	}
	return p
}

// Run pushes a single record through every stage in order.
func (p *Pipeline) Run(rec model.Record) []model.Record {
	current := []model.Record{rec}
	for _, stage := range p.stages {
		next := make([]model.Record, 0, len(current))
		for _, r := range current {
			next = append(next, stage.Apply(r)...)
		}
		current = next
	}
	return current
}

// RunAll flat-maps a batch of records through the pipeline.
func (p *Pipeline) RunAll(recs []model.Record) []model.Record {
	var out []model.Record
	for _, rec := range recs {
		out = append(out, p.Run(rec)...)
	}
	return out
}

// Reset clears every stateful stage. Call between build/update runs.
func (p *Pipeline) Reset() {
	for _, stage := range p.stages {
		if r, ok := stage.(Resettable); ok {
			r.Reset()
		}
	}
}
