// Package catalog persists the processing history of converted
// presentations: which source files were seen, under which batch run, with
// which content hash and counters. The hash makes re-runs cheap — unchanged
// files are skipped without re-extraction.
package catalog

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
-- One row per conversion batch
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    finished_at DATETIME,
    files INTEGER DEFAULT 0,
    ok INTEGER DEFAULT 0,
    failed INTEGER DEFAULT 0
);

-- Processing record per source file, hash-keyed for change detection
CREATE TABLE IF NOT EXISTS presentations (
    id TEXT NOT NULL,
    run_id TEXT NOT NULL REFERENCES runs(id),
    source_path TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    slide_count INTEGER DEFAULT 0,
    image_count INTEGER DEFAULT 0,
    status TEXT NOT NULL,
    error TEXT,
    processed_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_presentations_path
    ON presentations(source_path, processed_at);
`

// Record is one presentation's processing outcome.
type Record struct {
	ID          string `json:"id"`
	RunID       string `json:"run_id"`
	SourcePath  string `json:"source_path"`
	ContentHash string `json:"content_hash"`
	SlideCount  int    `json:"slide_count"`
	ImageCount  int    `json:"image_count"`
	Status      string `json:"status"` // "ok", "failed", "skipped"
	Error       string `json:"error,omitempty"`
	ProcessedAt string `json:"processed_at"`
}

// Store wraps the SQLite catalog database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the catalog at the given path.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating catalog directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging catalog: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating catalog schema: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

// BeginRun registers a new conversion batch and returns its id.
func (s *Store) BeginRun(ctx context.Context) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `INSERT INTO runs (id) VALUES (?)`, id)
	if err != nil {
		return "", fmt.Errorf("beginning run: %w", err)
	}
	return id, nil
}

// FinishRun records a batch's final counters.
func (s *Store) FinishRun(ctx context.Context, runID string, files, ok, failed int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = CURRENT_TIMESTAMP, files = ?, ok = ?, failed = ?
		WHERE id = ?`, files, ok, failed, runID)
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", runID, err)
	}
	return nil
}

// RecordPresentation appends one processing record.
func (s *Store) RecordPresentation(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO presentations (id, run_id, source_path, content_hash, slide_count, image_count, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.RunID, rec.SourcePath, rec.ContentHash,
		rec.SlideCount, rec.ImageCount, rec.Status, rec.Error)
	if err != nil {
		return fmt.Errorf("recording %s: %w", rec.SourcePath, err)
	}
	return nil
}

// ListPresentations returns the latest record per source path, most recent
// first.
func (s *Store) ListPresentations(ctx context.Context) ([]Record, error) {
	// rowid breaks ties: CURRENT_TIMESTAMP only has second resolution and
	// back-to-back runs land on the same instant.
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, source_path, content_hash, slide_count, image_count,
		       status, COALESCE(error, ''), processed_at
		FROM presentations
		WHERE rowid IN (
			SELECT MAX(rowid) FROM presentations GROUP BY source_path
		)
		ORDER BY processed_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing presentations: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.SourcePath, &rec.ContentHash,
			&rec.SlideCount, &rec.ImageCount, &rec.Status, &rec.Error, &rec.ProcessedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// LookupHash returns the content hash from the most recent successful record
// for a source path, or "" when the file was never processed.
func (s *Store) LookupHash(ctx context.Context, sourcePath string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, `
		SELECT content_hash FROM presentations
		WHERE source_path = ? AND status = 'ok'
		ORDER BY processed_at DESC, rowid DESC LIMIT 1`, sourcePath).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("looking up %s: %w", sourcePath, err)
	}
	return hash, nil
}

// FileHash returns the hex SHA-256 of a file's content.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
