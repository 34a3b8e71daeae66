package extract

import (
	"fmt"
	"os"
	"path/filepath"
)

// MediaStore writes extracted media blobs for one presentation under
// <root>/media/<fileID>/ and hands back the relative path the content blocks
// reference them by. Filenames are deterministic and keyed by slide order and
// shape id, so concurrent extractions never collide.
type MediaStore struct {
	dir    string
	fileID string
}

// NewMediaStore creates the presentation's media directory.
func NewMediaStore(outputDir, fileID string) (*MediaStore, error) {
	dir := filepath.Join(outputDir, "media", fileID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating media dir: %w", err)
	}
	return &MediaStore{dir: dir, fileID: fileID}, nil
}

// Save writes one blob and returns its reference path, media/<fileID>/<name>.
func (m *MediaStore) Save(name string, data []byte) (string, error) {
	if err := os.WriteFile(filepath.Join(m.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("writing media %s: %w", name, err)
	}
	return "media/" + m.fileID + "/" + name, nil
}
