// Package site serializes extracted presentations into the static JSON
// layout the learning-site viewer consumes: one json/<id>.json per
// presentation plus a top-level index.json. Media files are already in place
// under media/ by the time generation runs.
package site

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/brunobiangulo/godeck/deck"
)

// IndexEntry is one row of index.json.
type IndexEntry struct {
	ID    string `json:"id"`
	File  string `json:"file"`
	Title string `json:"title"`
}

// Generate writes the JSON site for the given presentations into outputDir
// and refreshes index.json. Entries from earlier runs survive as long as
// their presentation file is still on disk, so an incremental batch that
// skips unchanged decks never shrinks the index.
func Generate(presentations []*deck.Presentation, outputDir string) error {
	jsonDir := filepath.Join(outputDir, "json")
	if err := os.MkdirAll(jsonDir, 0o755); err != nil {
		return fmt.Errorf("creating json dir: %w", err)
	}

	index := loadIndex(outputDir, jsonDir)
	pos := make(map[string]int, len(index))
	for i, e := range index {
		pos[e.ID] = i
	}

	for _, p := range presentations {
		name := p.Metadata.ID + ".json"
		data, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding %s: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(jsonDir, name), data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}

		entry := IndexEntry{
			ID:    p.Metadata.ID,
			File:  "json/" + name,
			Title: p.Title(),
		}
		if i, ok := pos[entry.ID]; ok {
			index[i] = entry
		} else {
			pos[entry.ID] = len(index)
			index = append(index, entry)
		}
	}

	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outputDir, "index.json"), data, 0o644); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	return nil
}

// loadIndex reads the previous index.json, keeping only entries whose
// presentation file still exists. A missing or corrupt index starts fresh.
func loadIndex(outputDir, jsonDir string) []IndexEntry {
	index := make([]IndexEntry, 0)
	data, err := os.ReadFile(filepath.Join(outputDir, "index.json"))
	if err != nil {
		return index
	}
	var prev []IndexEntry
	if err := json.Unmarshal(data, &prev); err != nil {
		return index
	}
	for _, e := range prev {
		if _, err := os.Stat(filepath.Join(jsonDir, e.ID+".json")); err == nil {
			index = append(index, e)
		}
	}
	return index
}
