// Package engine orchestrates build, update, query, diff and audit over a
// single dataset root. Build and update mutate shared state and must not
// run concurrently against the same root; queries are read-only.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/schollz/progressbar/v3"

	"github.com/provlens/provlens/internal/audit"
	"github.com/provlens/provlens/internal/config"
	"github.com/provlens/provlens/internal/embedding"
	"github.com/provlens/provlens/internal/graph"
	"github.com/provlens/provlens/internal/index"
	"github.com/provlens/provlens/internal/ingest"
	"github.com/provlens/provlens/internal/model"
	"github.com/provlens/provlens/internal/registry"
	"github.com/provlens/provlens/internal/retrieval"
	"github.com/provlens/provlens/internal/transform"
	"github.com/provlens/provlens/internal/version"
)

const (
	indexFile = "index.json"
	graphFile = "graph.json"
	dbFile    = "records.db"
)

// Engine ties the pipeline, version store, registry, graph and index
// together for one dataset root.
type Engine struct {
	root     string
	cfg      *config.Config
	versions *version.Store
	reg      *registry.Registry
	g        *graph.Graph

	embedder embedding.Embedder
	idx      index.Store

	records     map[string]model.Record
	graphLoaded bool
	progress    bool
}

// Option customises engine construction.
type Option func(*Engine)

// WithEmbedder injects an embedding provider, bypassing the configured
// one.
func WithEmbedder(e embedding.Embedder) Option {
	return func(eng *Engine) { eng.embedder = e }
}

// WithProgress enables progress bars during build and update.
func WithProgress(enabled bool) Option {
	return func(eng *Engine) { eng.progress = enabled }
}

// New opens an engine for the dataset root.
func New(root string, cfg *config.Config, opts ...Option) (*Engine, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	reg, err := registry.Open(filepath.Join(abs, version.StorageDir, dbFile))
	if err != nil {
		return nil, err
	}

	eng := &Engine{
		root:     abs,
		cfg:      cfg,
		versions: version.NewStore(abs),
		reg:      reg,
		g:        graph.New(),
	}
	for _, opt := range opts {
		opt(eng)
	}
	return eng, nil
}

// Close releases the registry.
func (e *Engine) Close() error {
	return e.reg.Close()
}

func (e *Engine) storageDir() string {
	return filepath.Join(e.root, version.StorageDir)
}

// Init prepares a dataset root: storage directory, empty manifest and a
// default config file when none exists.
func (e *Engine) Init() error {
	if _, err := e.versions.GetOrCreateManifest(filepath.Base(e.root)); err != nil {
		return err
	}
	cfgPath := filepath.Join(e.storageDir(), "config.yaml")
	if _, err := os.Stat(cfgPath); errors.Is(err, fs.ErrNotExist) {
		if err := config.WriteDefault(cfgPath); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
	}
	slog.Info("initialized dataset", "root", e.root)
	return nil
}

func (e *Engine) ensureEmbedder() (embedding.Embedder, error) {
	if e.embedder != nil {
		return e.embedder, nil
	}
	emb, err := embedding.New(embedding.Options{
		Provider:  e.cfg.Embedding.Provider,
		Model:     e.cfg.Embedding.Model,
		BaseURL:   e.cfg.Embedding.BaseURL,
		APIKey:    e.cfg.Embedding.APIKey,
		Dimension: e.cfg.Embedding.Dimension,
		RateLimit: e.cfg.Embedding.RateLimit,
	})
	if err != nil {
		return nil, err
	}
	e.embedder = emb
	return emb, nil
}

func (e *Engine) ensureIndex() (index.Store, error) {
	if e.idx != nil {
		return e.idx, nil
	}
	emb, err := e.ensureEmbedder()
	if err != nil {
		return nil, err
	}

	// cfg.Index.Backend is validated at load; "flat" is the only backend
	idx := index.NewFlat(emb.Dimension())
	path := filepath.Join(e.storageDir(), indexFile)
	if _, statErr := os.Stat(path); statErr == nil {
		if err := idx.Load(path); err != nil {
			return nil, err
		}
	}
	e.idx = idx
	return idx, nil
}

// loadState loads the registry snapshot and graph from disk once per
// engine lifetime.
func (e *Engine) loadState(ctx context.Context) (map[string]model.Record, error) {
	if e.graphLoaded {
		return e.records, nil
	}

	records, err := e.reg.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}

	path := filepath.Join(e.storageDir(), graphFile)
	if data, err := os.ReadFile(path); err == nil {
		var snap graph.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("decode graph snapshot: %w", err)
		}
		e.g.Load(snap, graph.MapRegistry(records))
	}

	e.records = records
	e.graphLoaded = true
	return records, nil
}

func (e *Engine) persist() error {
	if e.idx != nil {
		if err := e.idx.Save(filepath.Join(e.storageDir(), indexFile)); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(e.g.Export(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode graph snapshot: %w", err)
	}
	if err := os.WriteFile(filepath.Join(e.storageDir(), graphFile), data, 0o644); err != nil {
		return fmt.Errorf("write graph snapshot: %w", err)
	}
	return nil
}

func (e *Engine) buildPipeline() (*transform.Pipeline, error) {
	var chunker transform.Transform
	var err error
	switch e.cfg.Pipeline.Strategy {
	case "simple":
		chunker, err = transform.NewSimpleChunker(e.cfg.Pipeline.ChunkSize, e.cfg.Pipeline.ChunkOverlap)
	default:
		chunker, err = transform.NewSemanticChunker(e.cfg.Pipeline.ChunkSize, e.cfg.Pipeline.ChunkOverlap)
	}
	if err != nil {
		return nil, err
	}

	var normalizer, deduper transform.Transform
	if e.cfg.Pipeline.Normalize {
		normalizer = transform.NewNormalizer(e.cfg.Pipeline.NormalizeAggressive)
	}
	if e.cfg.Pipeline.Dedupe {
		deduper = transform.NewDeduper()
	}
	return transform.NewPipeline(chunker, normalizer, deduper), nil
}

// Build ingests the full source tree under a new version tag.
func (e *Engine) Build(ctx context.Context, tag string) error {
	slog.Info("building dataset", "root", e.root, "version", tag)

	files, err := ingest.Scan(e.root, ingest.ScanOptions{
		Include: e.cfg.Ingest.Include,
		Ignore:  e.cfg.Ingest.Ignore,
	})
	if err != nil {
		return fmt.Errorf("scan source: %w", err)
	}

	if _, err := e.versions.CreateVersion(tag, files, nil); err != nil {
		return err
	}

	if _, err := e.loadState(ctx); err != nil {
		return err
	}
	batch, err := e.ingestFiles(tag, files)
	if err != nil {
		return err
	}
	if err := e.indexBatch(ctx, batch); err != nil {
		return err
	}
	if err := e.persist(); err != nil {
		return err
	}
	slog.Info("build complete", "records", len(batch), "version", tag)
	return nil
}

// Update creates a new version and re-ingests only changed files when
// changedOnly is set. Records for removed files are not purged from the
// registry, graph or index; they remain retrievable under their old
// version (known limitation).
func (e *Engine) Update(ctx context.Context, tag string, changedOnly bool) error {
	current := e.versions.CurrentVersion()
	if current == "" {
		slog.Warn("no current version, performing full build", "version", tag)
		return e.Build(ctx, tag)
	}
	fromVer, err := e.versions.GetVersion(current)
	if err != nil {
		slog.Warn("current version missing from manifest, performing full build", "version", tag)
		return e.Build(ctx, tag)
	}

	if _, err := e.loadState(ctx); err != nil {
		return err
	}
	if _, err := e.ensureIndex(); err != nil {
		return err
	}

	files, err := ingest.Scan(e.root, ingest.ScanOptions{
		Include: e.cfg.Ingest.Include,
		Ignore:  e.cfg.Ingest.Ignore,
	})
	if err != nil {
		return fmt.Errorf("scan source: %w", err)
	}
	toVer, err := e.versions.CreateVersion(tag, files, nil)
	if err != nil {
		return err
	}

	var targets []string
	if changedOnly {
		diff := version.Compute(fromVer, toVer)
		targets = diff.ChangedFiles()
		slog.Info("incremental update", "changed", len(targets), "from", current, "to", tag)
	} else {
		for _, f := range toVer.Files {
			targets = append(targets, f.Path)
		}
		slog.Info("full update", "files", len(targets), "version", tag)
	}

	batch, err := e.ingestFiles(tag, targets)
	if err != nil {
		return err
	}
	if err := e.indexBatch(ctx, batch); err != nil {
		return err
	}
	if err := e.persist(); err != nil {
		return err
	}
	slog.Info("update complete", "records", len(batch), "version", tag)
	return nil
}

// ingestFiles runs each file through ingestion and the transform
// pipeline. Files that fail to read are logged and skipped so the rest of
// the batch completes; files that no longer exist (removed paths from a
// diff) are silently skipped.
func (e *Engine) ingestFiles(tag string, files []string) ([]model.Record, error) {
	pipeline, err := e.buildPipeline()
	if err != nil {
		return nil, err
	}
	pipeline.Reset()

	auto := ingest.NewAuto(tag)
	var batch []model.Record
	for _, rel := range files {
		full := filepath.Join(e.root, rel)
		if _, err := os.Stat(full); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		recs, err := auto.Ingest(full)
		if err != nil {
			slog.Warn("skipping file", "path", full, "error", err)
			continue
		}
		for _, rec := range recs {
			batch = append(batch, pipeline.Run(rec)...)
		}
	}
	return batch, nil
}

// indexBatch embeds a record batch in one call, then stores each record
// in the registry, graph and vector index, linking adjacent chunks.
func (e *Engine) indexBatch(ctx context.Context, batch []model.Record) error {
	if len(batch) == 0 {
		return nil
	}

	emb, err := e.ensureEmbedder()
	if err != nil {
		return err
	}
	idx, err := e.ensureIndex()
	if err != nil {
		return err
	}

	texts := make([]string, len(batch))
	for i, rec := range batch {
		texts[i] = rec.Content
	}
	vectors, err := emb.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed batch: %w", err)
	}

	var bar *progressbar.ProgressBar
	if e.progress {
		bar = progressbar.Default(int64(len(batch)), "indexing")
	}

	for i, rec := range batch {
		if err := e.reg.Put(ctx, rec); err != nil {
			return fmt.Errorf("store record %s: %w", rec.ID, err)
		}
		e.g.AddNode(rec)
		if e.records != nil {
			e.records[rec.ID] = rec
		}
		if err := idx.Add(rec.ID, vectors[i]); err != nil {
			return fmt.Errorf("index record %s: %w", rec.ID, err)
		}
		e.linkAdjacentChunk(rec.ID)
		if bar != nil {
			bar.Add(1)
		}
	}
	return nil
}

// linkAdjacentChunk connects a chunk to its predecessor sibling.
func (e *Engine) linkAdjacentChunk(id string) {
	pos := strings.LastIndex(id, "_chunk_")
	if pos < 0 {
		return
	}
	n, err := strconv.Atoi(id[pos+len("_chunk_"):])
	if err != nil || n == 0 {
		return
	}
	prev := fmt.Sprintf("%s_chunk_%d", id[:pos], n-1)
	if !e.g.Contains(prev) {
		return
	}
	if err := e.g.AddEdge(prev, id, graph.EdgeAdjacent); err != nil {
		slog.Warn("failed to link adjacent chunks", "from", prev, "to", id, "error", err)
	}
}

// QueryOptions tunes a single query.
type QueryOptions struct {
	K          int
	Filters    *retrieval.FilterConfig
	GraphDepth int // -1 uses the configured depth
}

// Query retrieves passages for a question and assembles an answer with
// full lineage. The answer text is a placeholder concatenation, not a
// generation step.
func (e *Engine) Query(ctx context.Context, question string, opts QueryOptions) (model.Answer, error) {
	emb, err := e.ensureEmbedder()
	if err != nil {
		return model.Answer{}, err
	}
	idx, err := e.ensureIndex()
	if err != nil {
		return model.Answer{}, err
	}
	records, err := e.loadState(ctx)
	if err != nil {
		return model.Answer{}, err
	}

	k := opts.K
	if k <= 0 {
		k = e.cfg.Retrieval.TopK
	}
	depth := opts.GraphDepth
	if depth < 0 {
		depth = e.cfg.Retrieval.GraphDepth
	}

	retr := retrieval.New(emb, idx, e.g, records)
	hits, err := retr.Retrieve(ctx, question, k, opts.Filters, depth)
	if err != nil {
		return model.Answer{}, err
	}

	answerText := fmt.Sprintf("Based on %d retrieved documents: %s", len(hits), question)
	if len(hits) > 0 {
		if top, ok := records[hits[0].ID]; ok {
			answerText += "\n\nRelevant information: " + truncate(top.Content, 200) + "..."
		}
	}

	lineage := make([]model.LineageEntry, 0, len(hits))
	for _, hit := range hits {
		rec, ok := records[hit.ID]
		if !ok {
			continue
		}
		lineage = append(lineage, model.LineageEntry{
			RecordID:       rec.ID,
			Score:          hit.Score,
			Source:         rec.Source,
			DatasetVersion: rec.DatasetVersion,
			TransformChain: rec.TransformChain,
		})
	}

	return model.Answer{
		ID:       ulid.Make().String(),
		Question: question,
		Answer:   answerText,
		Lineage:  lineage,
	}, nil
}

// Audit inspects an answer's provenance against the current version.
func (e *Engine) Audit(ans model.Answer) model.AuditReport {
	auditor := audit.Auditor{CurrentVersion: e.versions.CurrentVersion()}
	return auditor.Audit(ans)
}

// Diff compares two recorded dataset versions.
func (e *Engine) Diff(from, to string) (version.Diff, error) {
	fromVer, err := e.versions.GetVersion(from)
	if err != nil {
		return version.Diff{}, err
	}
	toVer, err := e.versions.GetVersion(to)
	if err != nil {
		return version.Diff{}, err
	}
	return version.Compute(fromVer, toVer), nil
}

// CurrentVersion returns the manifest's current version tag.
func (e *Engine) CurrentVersion() string {
	return e.versions.CurrentVersion()
}

// NextVersion derives the follow-up tag for automated updates: the minor
// component of the current numeric tag plus 0.1 (v1.0 -> v1.1). A dataset
// without versions starts at v1.0.
func (e *Engine) NextVersion() string {
	current := e.versions.CurrentVersion()
	if current == "" {
		return "v1.0"
	}
	prefix := ""
	num := current
	if len(current) > 0 && (current[0] < '0' || current[0] > '9') {
		prefix = current[:1]
		num = current[1:]
	}
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return current + ".1"
	}
	return fmt.Sprintf("%s%.1f", prefix, n+0.1)
}

// Stats summarises the dataset state.
type Stats struct {
	DatasetName    string `json:"dataset_name"`
	CurrentVersion string `json:"current_version"`
	Versions       int    `json:"versions"`
	Records        int    `json:"records"`
	GraphNodes     int    `json:"graph_nodes"`
	GraphEdges     int    `json:"graph_edges"`
	Vectors        int    `json:"vectors"`
}

// Stats reports counts across the manifest, registry, graph and index.
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	st := Stats{DatasetName: filepath.Base(e.root)}
	if m := e.versions.LoadManifest(); m != nil {
		st.DatasetName = m.DatasetName
		st.CurrentVersion = m.CurrentVersion
		st.Versions = len(m.Versions)
	}
	count, err := e.reg.Count(ctx)
	if err != nil {
		return st, err
	}
	st.Records = count

	if _, err := e.loadState(ctx); err != nil {
		return st, err
	}
	st.GraphNodes = e.g.Len()
	st.GraphEdges = e.g.EdgeCount()
	if idx, err := e.ensureIndex(); err == nil {
		st.Vectors = idx.Size()
	}
	return st, nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
