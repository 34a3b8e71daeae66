// Package godeck converts PowerPoint decks into a normalized JSON content
// tree: sections, slides, and typed content blocks, with media extracted to
// disk. The engine batches conversions, skips unchanged inputs by content
// hash, and records every outcome in a SQLite catalog.
package godeck

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/brunobiangulo/godeck/catalog"
	"github.com/brunobiangulo/godeck/deck"
	"github.com/brunobiangulo/godeck/extract"
	"github.com/brunobiangulo/godeck/report"
	"github.com/brunobiangulo/godeck/site"
)

// Engine is the main entry point for deck conversion.
type Engine interface {
	// Convert discovers .pptx files under input (a file or a directory),
	// extracts each into the normalized deck model, writes the JSON site
	// into OutputDir, and records the batch in the catalog.
	Convert(ctx context.Context, input string, opts ...ConvertOption) (*BatchResult, error)

	// History returns the latest catalog record per source file.
	History(ctx context.Context) ([]catalog.Record, error)

	// Close cleanly shuts down the engine.
	Close() error
}

// BatchResult reports one Convert run.
type BatchResult struct {
	RunID         string               `json:"run_id"`
	Presentations []*deck.Presentation `json:"presentations"`
	Skipped       []string             `json:"skipped,omitempty"`
	Failed        []FileError          `json:"failed,omitempty"`
	Elapsed       time.Duration        `json:"-"`
}

// FileError pairs a failed input with its error.
type FileError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// ConvertOption configures a single Convert call.
type ConvertOption func(*convertOptions)

type convertOptions struct {
	force bool
}

// WithForce re-extracts every input even when its content hash is unchanged.
func WithForce() ConvertOption {
	return func(o *convertOptions) { o.force = true }
}

// engine is the concrete implementation of Engine.
type engine struct {
	cfg      Config
	catalog  *catalog.Store
	pipeline *extract.Pipeline
	logger   *slog.Logger
}

// New creates a GoDeck engine with the given configuration.
func New(cfg Config, logger *slog.Logger) (Engine, error) {
	if cfg.OutputDir == "" {
		return nil, fmt.Errorf("%w: output_dir is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}

	cat, err := catalog.Open(cfg.resolveCatalogPath())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}

	pipeline := extract.New(extract.Config{
		OutputDir:   cfg.OutputDir,
		Logger:      logger,
		Concurrency: cfg.Concurrency,
	})

	return &engine{
		cfg:      cfg,
		catalog:  cat,
		pipeline: pipeline,
		logger:   logger,
	}, nil
}

// Convert runs the full batch pipeline: discover, hash-filter, extract,
// generate site, record history, and optionally write the XLSX report.
func (e *engine) Convert(ctx context.Context, input string, opts ...ConvertOption) (*BatchResult, error) {
	options := &convertOptions{}
	for _, o := range opts {
		o(options)
	}

	start := time.Now()
	paths, err := discover(input)
	if err != nil {
		return nil, err
	}

	runID, err := e.catalog.BeginRun(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}

	batch := &BatchResult{RunID: runID}
	hashes := make(map[string]string, len(paths))

	var pending []string
	for _, path := range paths {
		hash, err := catalog.FileHash(path)
		if err != nil {
			e.logger.Error("hashing input failed", "file", path, "error", err)
			batch.Failed = append(batch.Failed, FileError{Path: path, Error: err.Error()})
			e.record(ctx, runID, path, "", nil, "failed", err)
			continue
		}
		hashes[path] = hash

		if e.cfg.SkipUnchanged && !options.force {
			prev, err := e.catalog.LookupHash(ctx, path)
			if err == nil && prev == hash {
				e.logger.Info("skipping unchanged file", "file", filepath.Base(path))
				batch.Skipped = append(batch.Skipped, path)
				e.record(ctx, runID, path, hash, nil, "skipped", nil)
				continue
			}
		}
		pending = append(pending, path)
	}

	results := e.pipeline.ExtractAll(ctx, pending)
	for _, res := range results {
		if res.Err != nil {
			batch.Failed = append(batch.Failed, FileError{Path: res.Path, Error: res.Err.Error()})
			e.record(ctx, runID, res.Path, hashes[res.Path], nil, "failed", res.Err)
			continue
		}
		batch.Presentations = append(batch.Presentations, res.Presentation)
		e.record(ctx, runID, res.Path, hashes[res.Path], res.Presentation, "ok", nil)
	}

	if len(batch.Presentations) > 0 {
		if err := site.Generate(batch.Presentations, e.cfg.OutputDir); err != nil {
			return nil, fmt.Errorf("generating site: %w", err)
		}
	}

	if e.cfg.ReportPath != "" && len(results) > 0 {
		if err := report.Write(e.cfg.ReportPath, results); err != nil {
			e.logger.Error("writing report failed", "path", e.cfg.ReportPath, "error", err)
		}
	}

	if err := e.catalog.FinishRun(ctx, runID, len(paths),
		len(batch.Presentations)+len(batch.Skipped), len(batch.Failed)); err != nil {
		e.logger.Error("finishing run failed", "run", runID, "error", err)
	}

	batch.Elapsed = time.Since(start)
	e.logger.Info("batch complete",
		"run", runID,
		"files", len(paths),
		"converted", len(batch.Presentations),
		"skipped", len(batch.Skipped),
		"failed", len(batch.Failed),
		"elapsed", batch.Elapsed.Round(time.Millisecond))
	return batch, nil
}

// record appends one catalog row; failures are logged, never fatal.
func (e *engine) record(ctx context.Context, runID, path, hash string, pres *deck.Presentation, status string, cause error) {
	rec := catalog.Record{
		RunID:       runID,
		SourcePath:  path,
		ContentHash: hash,
		Status:      status,
	}
	if pres != nil {
		rec.ID = pres.Metadata.ID
		rec.SlideCount = pres.Metadata.Stats.SlideCount
		rec.ImageCount = pres.Metadata.Stats.ImageCount
	} else {
		rec.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if cause != nil {
		rec.Error = cause.Error()
	}
	if err := e.catalog.RecordPresentation(ctx, rec); err != nil {
		e.logger.Error("recording outcome failed", "file", path, "error", err)
	}
}

// History returns the latest record per source file.
func (e *engine) History(ctx context.Context) ([]catalog.Record, error) {
	return e.catalog.ListPresentations(ctx)
}

// Close shuts down the engine.
func (e *engine) Close() error {
	return e.catalog.Close()
}

// discover resolves an input path into the sorted list of .pptx files to
// convert: the file itself, or every *.pptx directly inside a directory.
func discover(input string) ([]string, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoInputs, input, err)
	}

	if !info.IsDir() {
		if !strings.EqualFold(filepath.Ext(input), ".pptx") {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, input)
		}
		return []string{input}, nil
	}

	entries, err := os.ReadDir(input)
	if err != nil {
		return nil, fmt.Errorf("reading input dir: %w", err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		// Skip Office lock files (~$Deck.pptx) left by open editors.
		if strings.HasPrefix(name, "~$") {
			continue
		}
		if strings.EqualFold(filepath.Ext(name), ".pptx") {
			paths = append(paths, filepath.Join(input, name))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no .pptx files in %s", ErrNoInputs, input)
	}
	sort.Strings(paths)
	return paths, nil
}
