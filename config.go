package godeck

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the GoDeck engine.
type Config struct {
	// OutputDir receives the generated site: json/, media/ and index.json.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// CatalogPath is the full path to the SQLite history database.
	// If empty, defaults to <OutputDir>/catalog.db.
	CatalogPath string `json:"catalog_path" yaml:"catalog_path"`

	// ReportPath, when set, makes Convert write an XLSX batch report there.
	ReportPath string `json:"report_path" yaml:"report_path"`

	// Concurrency bounds how many files are extracted in parallel.
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// SkipUnchanged skips files whose content hash matches the most recent
	// successful catalog record.
	SkipUnchanged bool `json:"skip_unchanged" yaml:"skip_unchanged"`
}

// DefaultConfig returns a Config with sensible defaults. Output lands in
// ./site, unchanged inputs are skipped.
func DefaultConfig() Config {
	return Config{
		OutputDir:     "site",
		Concurrency:   4,
		SkipUnchanged: true,
	}
}

// LoadConfig reads a YAML or JSON config file, layered over DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &cfg)
	default: // .yaml, .yml
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("%w: parsing %s: %v", ErrInvalidConfig, path, err)
	}
	return cfg, nil
}

// resolveCatalogPath computes the final catalog database path.
func (c *Config) resolveCatalogPath() string {
	if c.CatalogPath != "" {
		return c.CatalogPath
	}
	return filepath.Join(c.OutputDir, "catalog.db")
}
