package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	runID, err := s.BeginRun(ctx)
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if runID == "" {
		t.Fatal("run id should not be empty")
	}

	if err := s.FinishRun(ctx, runID, 3, 2, 1); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
}

func TestRecordAndListPresentations(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	runID, err := s.BeginRun(ctx)
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}

	records := []Record{
		{ID: "alpha", RunID: runID, SourcePath: "/decks/alpha.pptx", ContentHash: "h1", SlideCount: 10, ImageCount: 3, Status: "ok"},
		{ID: "beta", RunID: runID, SourcePath: "/decks/beta.pptx", ContentHash: "h2", Status: "failed", Error: "unreadable document"},
	}
	for _, rec := range records {
		if err := s.RecordPresentation(ctx, rec); err != nil {
			t.Fatalf("RecordPresentation(%s): %v", rec.ID, err)
		}
	}

	got, err := s.ListPresentations(ctx)
	if err != nil {
		t.Fatalf("ListPresentations: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}

	byPath := make(map[string]Record)
	for _, rec := range got {
		byPath[rec.SourcePath] = rec
	}
	alpha := byPath["/decks/alpha.pptx"]
	if alpha.SlideCount != 10 || alpha.ImageCount != 3 || alpha.Status != "ok" {
		t.Errorf("alpha record = %+v", alpha)
	}
	beta := byPath["/decks/beta.pptx"]
	if beta.Status != "failed" || beta.Error != "unreadable document" {
		t.Errorf("beta record = %+v", beta)
	}
}

func TestLookupHash(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	runID, err := s.BeginRun(ctx)
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}

	hash, err := s.LookupHash(ctx, "/decks/new.pptx")
	if err != nil {
		t.Fatalf("LookupHash: %v", err)
	}
	if hash != "" {
		t.Errorf("unseen path hash = %q, want empty", hash)
	}

	// A failed attempt must never satisfy the skip check.
	if err := s.RecordPresentation(ctx, Record{
		ID: "deck", RunID: runID, SourcePath: "/decks/deck.pptx",
		ContentHash: "badhash", Status: "failed",
	}); err != nil {
		t.Fatal(err)
	}
	hash, err = s.LookupHash(ctx, "/decks/deck.pptx")
	if err != nil {
		t.Fatalf("LookupHash: %v", err)
	}
	if hash != "" {
		t.Errorf("failed-only path hash = %q, want empty", hash)
	}

	if err := s.RecordPresentation(ctx, Record{
		ID: "deck", RunID: runID, SourcePath: "/decks/deck.pptx",
		ContentHash: "goodhash", Status: "ok",
	}); err != nil {
		t.Fatal(err)
	}
	hash, err = s.LookupHash(ctx, "/decks/deck.pptx")
	if err != nil {
		t.Fatalf("LookupHash: %v", err)
	}
	if hash != "goodhash" {
		t.Errorf("hash = %q, want goodhash", hash)
	}
}

func TestFileHash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.pptx")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	hash, err := FileHash(path)
	if err != nil {
		t.Fatalf("FileHash: %v", err)
	}
	// sha256("hello")
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if hash != want {
		t.Errorf("hash = %s, want %s", hash, want)
	}

	if _, err := FileHash(filepath.Join(t.TempDir(), "nope.pptx")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
