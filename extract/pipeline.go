// Package extract drives structured-content extraction: it resolves a deck's
// sections, orders and classifies each slide's shapes into content blocks,
// and assembles the normalized presentation tree. Extraction of one file is
// a synchronous pure transform; batches run files in parallel with per-file
// failure isolation.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/brunobiangulo/godeck/deck"
	"github.com/brunobiangulo/godeck/pptx"
)

// ErrUnreadable marks an input that could not be opened as a presentation
// package. Fatal for that file only; a batch continues with its remaining
// inputs.
var ErrUnreadable = errors.New("extract: unreadable document")

// Config configures a Pipeline.
type Config struct {
	// OutputDir receives the media/ tree. Required.
	OutputDir string
	// Logger is the diagnostics sink; slog.Default() when nil.
	Logger *slog.Logger
	// Concurrency bounds parallel file extraction in ExtractAll.
	// Values below 1 mean 4.
	Concurrency int
}

// Pipeline extracts presentations into the normalized deck model.
type Pipeline struct {
	out         string
	logger      *slog.Logger
	concurrency int
}

// New creates a Pipeline.
func New(cfg Config) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 4
	}
	return &Pipeline{out: cfg.OutputDir, logger: logger, concurrency: concurrency}
}

// Result is the outcome of extracting one input file.
type Result struct {
	Path         string
	Presentation *deck.Presentation
	Err          error
}

// ExtractFile extracts a single .pptx file.
func (p *Pipeline) ExtractFile(ctx context.Context, path string) (*deck.Presentation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filename := filepath.Base(path)
	fileID := strings.TrimSuffix(filename, filepath.Ext(filename))

	p.logger.Info("parsing presentation", "file", filename)
	start := time.Now()

	doc, err := pptx.Open(path, pptx.WithLogger(p.logger))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, filename, err)
	}
	defer doc.Close()

	media, err := NewMediaStore(p.out, fileID)
	if err != nil {
		return nil, err
	}

	pres := p.extract(doc, fileID, filename, media)

	p.logger.Info("extraction complete",
		"file", filename,
		"sections", len(pres.Sections),
		"slides", pres.Metadata.Stats.SlideCount,
		"images", pres.Metadata.Stats.ImageCount,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return pres, nil
}

// extract assembles the full presentation tree from an opened document.
func (p *Pipeline) extract(doc *pptx.Document, fileID, filename string, media *MediaStore) *deck.Presentation {
	groups := resolveSections(doc, doc.Slides(), p.logger)

	order := 0
	images := 0
	sections := make([]deck.Section, 0, len(groups))
	for _, group := range groups {
		section := deck.Section{Title: group.title}
		for _, sl := range group.slides {
			order++
			assembled, imgs := assembleSlide(sl, order, media, p.logger)
			section.Slides = append(section.Slides, assembled)
			images += imgs
		}
		sections = append(sections, section)
	}

	return &deck.Presentation{
		Metadata: deck.Metadata{
			ID:          fileID,
			SourceFile:  filename,
			ProcessedAt: time.Now().Format(time.RFC3339),
			Stats: deck.Stats{
				SlideCount: order,
				ImageCount: images,
			},
		},
		Sections: sections,
	}
}

// ExtractAll extracts every input concurrently. Results keep the input
// order; a failed file carries its error and nothing else, and never affects
// its neighbors.
func (p *Pipeline) ExtractAll(ctx context.Context, paths []string) []Result {
	results := make([]Result, len(paths))
	sem := make(chan struct{}, p.concurrency)

	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			pres, err := p.ExtractFile(ctx, path)
			if err != nil {
				p.logger.Error("file excluded from output", "file", path, "error", err)
			}
			results[i] = Result{Path: path, Presentation: pres, Err: err}
		}(i, path)
	}
	wg.Wait()
	return results
}
