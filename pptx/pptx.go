// Package pptx reads the PresentationML object model the extraction engine
// consumes: ordered slides, per-slide shapes with their capabilities computed
// once at parse time, and relationship-id resolution to related parts.
//
// The package deliberately stops at the object model. Classification of
// shapes into content blocks, section resolution, and diagram reconstruction
// live in the extract and diagram packages.
package pptx

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
)

const (
	nsR = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

	uriDiagram = "http://schemas.openxmlformats.org/drawingml/2006/diagram"
	uriTable   = "http://schemas.openxmlformats.org/drawingml/2006/table"
)

// Relationship type suffixes (the full type is a schema URL; the suffix is
// stable across ECMA-376 editions).
const (
	relTypeSlideLayout = "/slideLayout"
	relTypeNotesSlide  = "/notesSlide"
)

// Document is an opened presentation package.
type Document struct {
	files  map[string]*zip.File
	closer io.Closer
	types  contentTypes
	slides []*Slide
	logger *slog.Logger

	presXML []byte
}

// Option configures an opened document.
type Option func(*Document)

// WithLogger sets the diagnostics sink for part-level degradation notices.
// slog.Default() when unset.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Document) { d.logger = logger }
}

// Open opens a .pptx file from disk.
func Open(name string, opts ...Option) (*Document, error) {
	zr, err := zip.OpenReader(name)
	if err != nil {
		return nil, fmt.Errorf("opening pptx: %w", err)
	}
	doc, err := newDocument(&zr.Reader, zr, opts)
	if err != nil {
		zr.Close()
		return nil, err
	}
	return doc, nil
}

// NewReader opens a presentation from in-memory zip content.
func NewReader(r io.ReaderAt, size int64, opts ...Option) (*Document, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("opening pptx: %w", err)
	}
	return newDocument(zr, nil, opts)
}

func newDocument(zr *zip.Reader, closer io.Closer, opts []Option) (*Document, error) {
	doc := &Document{
		files:  make(map[string]*zip.File, len(zr.File)),
		closer: closer,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(doc)
	}
	for _, f := range zr.File {
		doc.files[f.Name] = f
	}

	doc.types = parseContentTypes(doc)

	presXML, err := doc.readPart("ppt/presentation.xml")
	if err != nil {
		return nil, fmt.Errorf("not a presentation: %w", err)
	}
	doc.presXML = presXML

	if err := doc.loadSlides(); err != nil {
		return nil, err
	}
	return doc, nil
}

// Close releases the underlying file handle, if any.
func (d *Document) Close() error {
	if d.closer != nil {
		return d.closer.Close()
	}
	return nil
}

// Slides returns the deck's slides in presentation order.
func (d *Document) Slides() []*Slide { return d.slides }

// readPart returns the raw bytes of one package part.
func (d *Document) readPart(name string) ([]byte, error) {
	f, ok := d.files[name]
	if !ok {
		return nil, fmt.Errorf("pptx: part %q not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("pptx: opening part %q: %w", name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("pptx: reading part %q: %w", name, err)
	}
	return data, nil
}

// ---------------------------------------------------------------------------
// Content types
// ---------------------------------------------------------------------------

type contentTypes struct {
	defaults  map[string]string // extension (lowercase, no dot) -> type
	overrides map[string]string // part name with leading slash -> type
}

type contentTypesXML struct {
	Defaults []struct {
		Extension   string `xml:"Extension,attr"`
		ContentType string `xml:"ContentType,attr"`
	} `xml:"Default"`
	Overrides []struct {
		PartName    string `xml:"PartName,attr"`
		ContentType string `xml:"ContentType,attr"`
	} `xml:"Override"`
}

func parseContentTypes(d *Document) contentTypes {
	ct := contentTypes{
		defaults:  make(map[string]string),
		overrides: make(map[string]string),
	}
	data, err := d.readPart("[Content_Types].xml")
	if err != nil {
		return ct
	}
	var parsed contentTypesXML
	if err := xml.Unmarshal(data, &parsed); err != nil {
		return ct
	}
	for _, def := range parsed.Defaults {
		ct.defaults[strings.ToLower(def.Extension)] = def.ContentType
	}
	for _, ov := range parsed.Overrides {
		ct.overrides[ov.PartName] = ov.ContentType
	}
	return ct
}

func (ct contentTypes) lookup(partName string) string {
	if t, ok := ct.overrides["/"+partName]; ok {
		return t
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(partName), "."))
	return ct.defaults[ext]
}

// ---------------------------------------------------------------------------
// Relationships
// ---------------------------------------------------------------------------

type relationship struct {
	Type   string
	Target string
	Mode   string
}

type relationshipsXML struct {
	XMLName xml.Name `xml:"Relationships"`
	Rels    []struct {
		ID         string `xml:"Id,attr"`
		Type       string `xml:"Type,attr"`
		Target     string `xml:"Target,attr"`
		TargetMode string `xml:"TargetMode,attr"`
	} `xml:"Relationship"`
}

// relsFor reads the .rels file belonging to a part. Parts with no
// relationships get an empty map.
func (d *Document) relsFor(partName string) map[string]relationship {
	relsName := path.Join(path.Dir(partName), "_rels", path.Base(partName)+".rels")
	data, err := d.readPart(relsName)
	if err != nil {
		return map[string]relationship{}
	}
	var parsed relationshipsXML
	if err := xml.Unmarshal(data, &parsed); err != nil {
		return map[string]relationship{}
	}
	rels := make(map[string]relationship, len(parsed.Rels))
	for _, r := range parsed.Rels {
		rels[r.ID] = relationship{Type: r.Type, Target: r.Target, Mode: r.TargetMode}
	}
	return rels
}

// ---------------------------------------------------------------------------
// Parts
// ---------------------------------------------------------------------------

// PartRef is one resolved package part: its binary content, declared content
// type, and the ability to resolve the part's own relationship ids.
type PartRef interface {
	Name() string
	Blob() ([]byte, error)
	ContentType() string
	PartResolver
}

// PartResolver resolves relationship ids declared by one part. It is the
// capability handed to the extraction engine for media and diagram lookup.
type PartResolver interface {
	// Related resolves an internal relationship to the referenced part.
	Related(rID string) (PartRef, error)
	// TargetRef returns the raw relationship target and whether it points
	// outside the package (an external URL).
	TargetRef(rID string) (target string, external bool, ok bool)
}

// Part is the concrete PartRef backed by the opened package.
type Part struct {
	name string
	doc  *Document
	rels map[string]relationship
}

func (d *Document) partRef(name string) *Part {
	return &Part{name: name, doc: d, rels: d.relsFor(name)}
}

func (p *Part) Name() string { return p.name }

func (p *Part) Blob() ([]byte, error) { return p.doc.readPart(p.name) }

func (p *Part) ContentType() string { return p.doc.types.lookup(p.name) }

func (p *Part) Related(rID string) (PartRef, error) {
	rel, ok := p.rels[rID]
	if !ok {
		return nil, fmt.Errorf("pptx: no relationship %q in %s", rID, p.name)
	}
	if rel.Mode == "External" {
		return nil, fmt.Errorf("pptx: relationship %q in %s is external (%s)", rID, p.name, rel.Target)
	}
	target := rel.Target
	var resolved string
	if strings.HasPrefix(target, "/") {
		resolved = strings.TrimPrefix(target, "/")
	} else {
		resolved = path.Clean(path.Join(path.Dir(p.name), target))
	}
	if _, exists := p.doc.files[resolved]; !exists {
		return nil, fmt.Errorf("pptx: relationship %q target %q not found", rID, resolved)
	}
	return p.doc.partRef(resolved), nil
}

func (p *Part) TargetRef(rID string) (string, bool, bool) {
	rel, ok := p.rels[rID]
	if !ok {
		return "", false, false
	}
	return rel.Target, rel.Mode == "External", true
}
